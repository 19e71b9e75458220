package cache

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Metadata describes the request that produced a response. It travels
// with the cache entry and drives the lifecycle heuristics.
type Metadata struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TaskType    string  `json:"task_type"`
	Stream      bool    `json:"stream"`
	Error       bool    `json:"error,omitempty"`
}

// Lifecycle policy bounds.
const (
	minContentLength = 50
	maxCacheableTemp = 0.8

	baseTTL = time.Hour
	minTTL  = 5 * time.Minute
	maxTTL  = 24 * time.Hour

	maxEntryAge = 7 * 24 * time.Hour
	maxIdleTime = 24 * time.Hour
	minHotHits  = 3
)

// recencyWords flag responses whose content goes stale quickly.
var recencyWords = []string{"today", "now", "current", "latest", "recent"}

// highCapabilityModels get a longer TTL: their output is expensive to
// regenerate and usually worth keeping around.
var highCapabilityModels = []string{"gpt-4", "claude", "opus", "sonnet", "70b"}

// Optimizer is the stateless cache-lifecycle policy: whether a
// response is worth caching, how long it should live, and when an
// existing entry should be evicted.
type Optimizer struct {
	logger zerolog.Logger
}

// NewOptimizer creates the lifecycle policy.
func NewOptimizer(logger zerolog.Logger) *Optimizer {
	return &Optimizer{logger: logger}
}

// ShouldCache decides whether a response is worth caching. Failed
// responses, trivially short content, high-temperature sampling
// (non-reproducible output), and streaming requests are all rejected.
func (o *Optimizer) ShouldCache(content string, meta Metadata) bool {
	if meta.Error {
		return false
	}
	if len(content) < minContentLength {
		return false
	}
	if meta.Temperature > maxCacheableTemp {
		return false
	}
	if meta.Stream {
		return false
	}
	return true
}

// ComputeTTL derives a time-to-live from response and metadata
// heuristics. The recency check runs last so time-sensitive content is
// shortened regardless of earlier multipliers. The result is clamped
// to [5m, 24h].
func (o *Optimizer) ComputeTTL(content string, meta Metadata) time.Duration {
	ttl := baseTTL.Seconds()

	// Analysis results are stable and expensive; keep them longer.
	if strings.Contains(strings.ToLower(meta.TaskType), "analysis") {
		ttl *= 4
	}

	// Low temperature output is near-deterministic, high temperature
	// output drifts. The two ranges are disjoint.
	if meta.Temperature <= 0.1 {
		ttl *= 2
	} else if meta.Temperature >= 0.5 {
		ttl *= 0.5
	}

	if isHighCapabilityModel(meta.Model) {
		ttl *= 3
	}

	// Recency-sensitive language overrides everything above.
	lower := strings.ToLower(content)
	for _, word := range recencyWords {
		if strings.Contains(lower, word) {
			ttl *= 0.3
			break
		}
	}

	if ttl < minTTL.Seconds() {
		ttl = minTTL.Seconds()
	}
	if ttl > maxTTL.Seconds() {
		ttl = maxTTL.Seconds()
	}

	return time.Duration(ttl * float64(time.Second))
}

// ShouldEvict reports whether an entry has outlived its usefulness:
// older than 7 days, or idle for over 24 hours with fewer than 3
// lifetime hits. A frequently-hit entry is protected from idle
// eviction but never from the absolute age cap.
func (o *Optimizer) ShouldEvict(entry *Entry) bool {
	now := time.Now()

	if now.Sub(entry.CreatedAt) > maxEntryAge {
		return true
	}

	if now.Sub(entry.LastAccessedAt) > maxIdleTime && entry.AccessCount < minHotHits {
		return true
	}

	return false
}

func isHighCapabilityModel(model string) bool {
	lower := strings.ToLower(model)
	for _, marker := range highCapabilityModels {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
