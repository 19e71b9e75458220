package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hirepath/llmops/internal/provider"
	"github.com/rs/zerolog"
)

// HitType distinguishes how a lookup matched.
type HitType string

const (
	HitExact    HitType = "exact"
	HitSemantic HitType = "semantic"
)

// Entry is one cached response, keyed by request hash.
type Entry struct {
	ID             string        `json:"id"`
	Key            string        `json:"key"`
	RequestText    string        `json:"request_text"`
	Response       string        `json:"response"`
	Metadata       Metadata      `json:"metadata"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	AccessCount    int           `json:"access_count"`
	TTL            time.Duration `json:"ttl"`
}

// LookupResult is returned on a cache hit. Semantic hits carry the
// similarity score and the key of the matched prior request.
type LookupResult struct {
	Response   string
	Metadata   Metadata
	Type       HitType
	MatchedKey string
	Similarity float64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries      int
	ExactHits    uint64
	SemanticHits uint64
	Misses       uint64
	Stores       uint64
	Rejected     uint64
	Evicted      uint64
}

// Options configure a ResponseCache.
type Options struct {
	SemanticMatching    bool
	SimilarityThreshold float64
	MaxEntries          int
	OptimizeInterval    time.Duration
}

// ResponseCache owns the request-hash -> Entry map. Matching is
// delegated to the Matcher and lifecycle decisions to the Optimizer;
// the optional Store persists entries with their TTL so restarts can
// rehydrate. All operations on shared state hold the cache mutex, so
// lookup's access bump, store's evict-then-insert, and optimize's
// scan-and-evict are atomic with respect to one another.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]*Entry

	matcher   *Matcher
	optimizer *Optimizer
	store     Store // may be nil

	semantic         bool
	maxEntries       int
	optimizeInterval time.Duration
	lastOptimize     time.Time

	exactHits    uint64
	semanticHits uint64
	misses       uint64
	stores       uint64
	rejected     uint64
	evicted      uint64

	logger zerolog.Logger
}

// NewResponseCache creates a cache. store may be nil to run purely
// in-memory.
func NewResponseCache(opts Options, store Store, logger zerolog.Logger) *ResponseCache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 10000
	}
	if opts.OptimizeInterval <= 0 {
		opts.OptimizeInterval = time.Hour
	}

	return &ResponseCache{
		entries:          make(map[string]*Entry),
		matcher:          NewMatcher(opts.SimilarityThreshold, logger),
		optimizer:        NewOptimizer(logger),
		store:            store,
		semantic:         opts.SemanticMatching,
		maxEntries:       opts.MaxEntries,
		optimizeInterval: opts.OptimizeInterval,
		lastOptimize:     time.Now(),
		logger:           logger,
	}
}

// RequestKey derives the stable cache key for a request: a hash over
// the ordered message list, model, and sampling parameters. Sampling
// noise such as a random seed is deliberately not part of the key.
func RequestKey(messages []provider.Message, model string, temperature float64, maxTokens int, topP float64) string {
	payload := struct {
		Messages    []provider.Message `json:"messages"`
		Model       string             `json:"model"`
		Temperature float64            `json:"temperature"`
		MaxTokens   int                `json:"max_tokens"`
		TopP        float64            `json:"top_p"`
	}{messages, model, temperature, maxTokens, topP}

	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RequestText flattens a transcript into the text used for semantic
// matching.
func RequestText(messages []provider.Message) string {
	var parts []string
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return joinNonEmpty(parts)
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}

// Lookup checks the exact-hash map first, then the similarity index
// when semantic matching is enabled. Every hit bumps the underlying
// entry's access count and last-accessed time.
func (c *ResponseCache) Lookup(ctx context.Context, key, requestText string) (*LookupResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.touchLocked(entry)
		c.exactHits++
		return &LookupResult{
			Response:   entry.Response,
			Metadata:   entry.Metadata,
			Type:       HitExact,
			MatchedKey: key,
		}, true
	}

	if c.semantic {
		if matchKey, score, ok := c.matcher.FindBestMatch(requestText); ok {
			if entry, exists := c.entries[matchKey]; exists {
				c.touchLocked(entry)
				c.semanticHits++
				return &LookupResult{
					Response:   entry.Response,
					Metadata:   entry.Metadata,
					Type:       HitSemantic,
					MatchedKey: matchKey,
					Similarity: score,
				}, true
			}
		}
	}

	c.misses++
	return nil, false
}

// Store caches a response if the optimizer accepts it. Capacity
// eviction (oldest by creation) runs before insertion; the entry is
// then registered with the similarity index and persisted to the
// durable store with its computed TTL. Returns false without mutating
// state when the optimizer rejects caching.
func (c *ResponseCache) Store(ctx context.Context, key, requestText, response string, meta Metadata) bool {
	if !c.optimizer.ShouldCache(response, meta) {
		c.mu.Lock()
		c.rejected++
		c.mu.Unlock()
		return false
	}

	ttl := c.optimizer.ComputeTTL(response, meta)
	now := time.Now()
	entry := &Entry{
		ID:             uuid.NewString(),
		Key:            key,
		RequestText:    requestText,
		Response:       response,
		Metadata:       meta,
		CreatedAt:      now,
		LastAccessedAt: now,
		AccessCount:    1,
		TTL:            ttl,
	}

	c.mu.Lock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked(len(c.entries) - c.maxEntries + 1)
	}
	c.entries[key] = entry
	c.matcher.Add(key, requestText)
	c.stores++
	persisted := *entry
	c.mu.Unlock()

	c.persist(ctx, &persisted)

	c.logger.Debug().
		Str("key", key).
		Str("task_type", meta.TaskType).
		Dur("ttl", ttl).
		Msg("Response cached")

	c.maybeOptimize(ctx)

	return true
}

// Optimize scans all entries and evicts those meeting the eviction
// policy, removing their texts from the similarity index. It can be
// invoked on demand and also runs automatically at most once per
// optimize interval as a side effect of Store. Returns the number of
// evicted entries.
func (c *ResponseCache) Optimize(ctx context.Context) int {
	c.mu.Lock()
	var evicted []string
	for key, entry := range c.entries {
		if c.optimizer.ShouldEvict(entry) {
			evicted = append(evicted, key)
		}
	}
	for _, key := range evicted {
		delete(c.entries, key)
		c.matcher.Remove(key)
	}
	c.evicted += uint64(len(evicted))
	c.lastOptimize = time.Now()
	c.mu.Unlock()

	for _, key := range evicted {
		c.forget(ctx, key)
	}

	if len(evicted) > 0 {
		c.logger.Info().
			Int("evicted", len(evicted)).
			Msg("Cache optimization pass completed")
	}

	return len(evicted)
}

// Rehydrate loads persisted entries from the durable store into the
// in-memory map, typically at startup. Entries that fail to decode are
// skipped. Returns the number of entries restored.
func (c *ResponseCache) Rehydrate(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}

	keys, err := c.store.Keys(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, key := range keys {
		data, ok, err := c.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			c.logger.Warn().Str("key", key).Err(err).Msg("Skipping undecodable cache entry")
			continue
		}

		c.mu.Lock()
		if len(c.entries) < c.maxEntries {
			c.entries[entry.Key] = &entry
			c.matcher.Add(entry.Key, entry.RequestText)
			restored++
		}
		c.mu.Unlock()
	}

	if restored > 0 {
		c.logger.Info().Int("entries", restored).Msg("Cache rehydrated from durable store")
	}

	return restored, nil
}

// Stats returns a snapshot of cache counters.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:      len(c.entries),
		ExactHits:    c.exactHits,
		SemanticHits: c.semanticHits,
		Misses:       c.misses,
		Stores:       c.stores,
		Rejected:     c.rejected,
		Evicted:      c.evicted,
	}
}

// touchLocked bumps access bookkeeping. Caller holds the mutex.
func (c *ResponseCache) touchLocked(entry *Entry) {
	entry.LastAccessedAt = time.Now()
	entry.AccessCount++
}

// evictOldestLocked drops the n oldest-by-creation entries. Capacity
// eviction takes precedence over TTL and idle eviction. Caller holds
// the mutex.
func (c *ResponseCache) evictOldestLocked(n int) {
	if n <= 0 {
		return
	}

	type aged struct {
		key     string
		created time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		all = append(all, aged{key, entry.CreatedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].created.Before(all[j].created)
	})

	if n > len(all) {
		n = len(all)
	}
	for _, victim := range all[:n] {
		delete(c.entries, victim.key)
		c.matcher.Remove(victim.key)
		c.evicted++
	}

	c.logger.Debug().Int("evicted", n).Msg("Capacity eviction")
}

// persist writes an entry to the durable store. Backend failures are
// logged and otherwise ignored; the in-memory cache keeps operating.
func (c *ResponseCache) persist(ctx context.Context, entry *Entry) {
	if c.store == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn().Str("key", entry.Key).Err(err).Msg("Failed to encode cache entry")
		return
	}

	if err := c.store.Set(ctx, entry.Key, data, entry.TTL); err != nil {
		c.logger.Warn().Str("key", entry.Key).Err(err).Msg("Durable cache write failed, continuing in-memory")
	}
}

// forget removes an entry from the durable store, best effort.
func (c *ResponseCache) forget(ctx context.Context, key string) {
	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn().Str("key", key).Err(err).Msg("Durable cache delete failed")
	}
}

// maybeOptimize runs an optimization pass when the interval since the
// last pass has elapsed.
func (c *ResponseCache) maybeOptimize(ctx context.Context) {
	c.mu.Lock()
	due := time.Since(c.lastOptimize) >= c.optimizeInterval
	c.mu.Unlock()

	if due {
		c.Optimize(ctx)
	}
}
