package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/hirepath/llmops/internal/provider"
	"github.com/rs/zerolog"
)

const cacheableResponse = "The agreement includes an auto-renewal clause with a ninety day cancellation notice window that should be reviewed."

func newTestCache(store Store) *ResponseCache {
	return NewResponseCache(Options{
		SemanticMatching:    true,
		SimilarityThreshold: 0.85,
		MaxEntries:          100,
		OptimizeInterval:    time.Hour,
	}, store, zerolog.New(io.Discard))
}

// memStore is a minimal in-memory Store for cache tests.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failSet bool
}

func newMemStore() *memStore {
	return &memStore{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (s *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return fmt.Errorf("%w: injected failure", ErrStoreUnavailable)
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	delete(s.ttls, key)
	return nil
}

func (s *memStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *memStore) Close() error { return nil }

func TestStoreThenExactLookup(t *testing.T) {
	c := newTestCache(nil)
	ctx := context.Background()

	stored := c.Store(ctx, "key-1", "summarize the renewal clause", cacheableResponse, Metadata{Temperature: 0.2, TaskType: "analysis"})
	if !stored {
		t.Fatal("Store() rejected a cacheable response")
	}

	hit, ok := c.Lookup(ctx, "key-1", "summarize the renewal clause")
	if !ok {
		t.Fatal("Lookup() missed immediately after Store()")
	}
	if hit.Type != HitExact {
		t.Errorf("hit type = %s, want exact", hit.Type)
	}
	if hit.Response != cacheableResponse {
		t.Errorf("response = %q, want stored response", hit.Response)
	}

	// Access count starts at 1 and the hit bumped it to 2.
	c.mu.Lock()
	entry := c.entries["key-1"]
	c.mu.Unlock()
	if entry.AccessCount != 2 {
		t.Errorf("access count = %d, want 2", entry.AccessCount)
	}
	if entry.LastAccessedAt.Before(entry.CreatedAt) {
		t.Error("last accessed time is before creation time")
	}
}

func TestStoreRejectsUncacheable(t *testing.T) {
	c := newTestCache(nil)
	ctx := context.Background()

	if c.Store(ctx, "key-1", "query", "too short", Metadata{Temperature: 0.2}) {
		t.Error("Store() accepted a response below the length threshold")
	}

	if _, ok := c.Lookup(ctx, "key-1", "query"); ok {
		t.Error("rejected response is retrievable")
	}

	stats := c.Stats()
	if stats.Entries != 0 || stats.Rejected != 1 {
		t.Errorf("stats = %+v, want 0 entries and 1 rejected", stats)
	}
}

func TestSemanticLookup(t *testing.T) {
	c := newTestCache(nil)
	ctx := context.Background()

	texts := map[string]string{
		"key-1": "summarize the quarterly revenue report for the sales team",
		"key-2": "list the termination clauses in the employment agreement",
	}
	for key, text := range texts {
		if !c.Store(ctx, key, text, cacheableResponse, Metadata{Temperature: 0.2}) {
			t.Fatalf("Store(%s) rejected", key)
		}
	}

	// Different hash, near-identical meaning.
	hit, ok := c.Lookup(ctx, "key-3", "summarize the quarterly revenue report for the sales department")
	if !ok {
		t.Fatal("expected a semantic hit for a near-duplicate request")
	}
	if hit.Type != HitSemantic {
		t.Errorf("hit type = %s, want semantic", hit.Type)
	}
	if hit.MatchedKey != "key-1" {
		t.Errorf("matched key = %s, want key-1", hit.MatchedKey)
	}
	if hit.Similarity < 0.85 {
		t.Errorf("similarity = %v, want >= threshold", hit.Similarity)
	}

	stats := c.Stats()
	if stats.SemanticHits != 1 {
		t.Errorf("semantic hits = %d, want 1", stats.SemanticHits)
	}
}

func TestSemanticLookupDisabledBelowTwoEntries(t *testing.T) {
	c := newTestCache(nil)
	ctx := context.Background()

	c.Store(ctx, "key-1", "summarize the quarterly revenue report", cacheableResponse, Metadata{Temperature: 0.2})

	// Only one entry: the index is unfit, only exact lookups match.
	if _, ok := c.Lookup(ctx, "other-key", "summarize the quarterly revenue reports"); ok {
		t.Error("semantic match should be impossible with a single cached text")
	}
}

func TestCapacityEvictionOldestFirst(t *testing.T) {
	c := NewResponseCache(Options{
		SemanticMatching: true,
		MaxEntries:       3,
		OptimizeInterval: time.Hour,
	}, nil, zerolog.New(io.Discard))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("key-%d", i)
		c.Store(ctx, key, fmt.Sprintf("distinct request text number %d about topic %d", i, i), cacheableResponse, Metadata{Temperature: 0.2})
		// Distinct creation times so oldest-first is deterministic.
		c.mu.Lock()
		c.entries[key].CreatedAt = time.Now().Add(time.Duration(i-10) * time.Minute)
		c.mu.Unlock()
	}

	c.Store(ctx, "key-3", "a completely new request text about something else", cacheableResponse, Metadata{Temperature: 0.2})

	if _, ok := c.Lookup(ctx, "key-0", ""); ok {
		t.Error("oldest entry survived capacity eviction")
	}
	for _, key := range []string{"key-1", "key-2", "key-3"} {
		if _, ok := c.Lookup(ctx, key, ""); !ok {
			t.Errorf("entry %s was evicted unexpectedly", key)
		}
	}

	stats := c.Stats()
	if stats.Entries != 3 {
		t.Errorf("entries = %d, want 3", stats.Entries)
	}
}

func TestOptimizeEvictsStaleEntries(t *testing.T) {
	c := newTestCache(nil)
	ctx := context.Background()

	c.Store(ctx, "stale", "an old request text about contract review", cacheableResponse, Metadata{Temperature: 0.2})
	c.Store(ctx, "fresh", "a recent request text about resume feedback", cacheableResponse, Metadata{Temperature: 0.2})

	c.mu.Lock()
	c.entries["stale"].CreatedAt = time.Now().Add(-8 * 24 * time.Hour)
	c.mu.Unlock()

	evicted := c.Optimize(ctx)
	if evicted != 1 {
		t.Fatalf("Optimize() evicted %d entries, want 1", evicted)
	}

	if _, ok := c.Lookup(ctx, "stale", ""); ok {
		t.Error("stale entry survived optimization")
	}
	if _, ok := c.Lookup(ctx, "fresh", ""); !ok {
		t.Error("fresh entry was evicted")
	}

	// The evicted text must no longer be semantically matchable.
	if _, ok := c.Lookup(ctx, "unrelated", "an old request text about contract review"); ok {
		t.Error("evicted entry still matchable through the similarity index")
	}
}

func TestStorePersistsWithTTL(t *testing.T) {
	store := newMemStore()
	c := newTestCache(store)
	ctx := context.Background()

	c.Store(ctx, "key-1", "analyze the quarterly figures", cacheableResponse, Metadata{Temperature: 0.1, TaskType: "analysis"})

	store.mu.Lock()
	data, ok := store.data["key-1"]
	ttl := store.ttls["key-1"]
	store.mu.Unlock()
	if !ok {
		t.Fatal("entry was not persisted to the durable store")
	}
	if ttl != 28800*time.Second {
		t.Errorf("persisted TTL = %v, want 28800s", ttl)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("persisted entry does not decode: %v", err)
	}
	if entry.Response != cacheableResponse {
		t.Errorf("persisted response = %q", entry.Response)
	}
}

func TestStoreBackendFailureDegradesGracefully(t *testing.T) {
	store := newMemStore()
	store.failSet = true
	c := newTestCache(store)
	ctx := context.Background()

	if !c.Store(ctx, "key-1", "some request text", cacheableResponse, Metadata{Temperature: 0.2}) {
		t.Fatal("Store() failed because of the durable backend")
	}

	// In-memory cache still serves the entry.
	if _, ok := c.Lookup(ctx, "key-1", ""); !ok {
		t.Error("in-memory entry lost after backend failure")
	}
}

func TestRehydrate(t *testing.T) {
	store := newMemStore()
	first := newTestCache(store)
	ctx := context.Background()

	first.Store(ctx, "key-1", "summarize the quarterly revenue report", cacheableResponse, Metadata{Temperature: 0.2})
	first.Store(ctx, "key-2", "list the termination clauses in the agreement", cacheableResponse, Metadata{Temperature: 0.2})

	// Simulate a restart with the same durable store.
	second := newTestCache(store)
	restored, err := second.Rehydrate(ctx)
	if err != nil {
		t.Fatalf("Rehydrate() error: %v", err)
	}
	if restored != 2 {
		t.Fatalf("Rehydrate() restored %d entries, want 2", restored)
	}

	hit, ok := second.Lookup(ctx, "key-1", "")
	if !ok {
		t.Fatal("rehydrated entry not found")
	}
	if hit.Response != cacheableResponse {
		t.Errorf("rehydrated response = %q", hit.Response)
	}

	// Semantic matching works again after rehydration: the known text
	// under a fresh key misses the hash map but matches the index.
	if _, ok := second.Lookup(ctx, "new-key", "summarize the quarterly revenue report"); !ok {
		t.Error("semantic index not rebuilt during rehydration")
	}
}

func TestConcurrentStoreAndLookup(t *testing.T) {
	c := newTestCache(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				key := fmt.Sprintf("key-%d-%d", worker, j)
				c.Store(ctx, key, fmt.Sprintf("request text from worker %d iteration %d", worker, j), cacheableResponse, Metadata{Temperature: 0.2})
				c.Lookup(ctx, key, "")
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	if stats.Entries == 0 {
		t.Error("no entries after concurrent stores")
	}
	if stats.Entries > 100 {
		t.Errorf("entries = %d exceeds capacity bound", stats.Entries)
	}
}

func TestRequestKeyStability(t *testing.T) {
	messages := []provider.Message{
		{Role: "system", Content: "You are a contract assistant."},
		{Role: "user", Content: "Summarize the renewal clause."},
	}

	key1 := RequestKey(messages, "gpt-4o-mini", 0.2, 1024, 0)
	key2 := RequestKey(messages, "gpt-4o-mini", 0.2, 1024, 0)
	if key1 != key2 {
		t.Error("identical requests produced different keys")
	}

	if RequestKey(messages, "gpt-4o-mini", 0.3, 1024, 0) == key1 {
		t.Error("temperature change did not change the key")
	}
	if RequestKey(messages, "other-model", 0.2, 1024, 0) == key1 {
		t.Error("model change did not change the key")
	}

	reordered := []provider.Message{messages[1], messages[0]}
	if RequestKey(reordered, "gpt-4o-mini", 0.2, 1024, 0) == key1 {
		t.Error("message order is not part of the key")
	}
}
