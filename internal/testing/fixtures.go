package testing

import (
	"io"
	"time"

	"github.com/hirepath/llmops/internal/config"
	"github.com/hirepath/llmops/internal/provider"
	"github.com/rs/zerolog"
)

// Sample response texts used across cache and benchmark tests.
const (
	// SampleAnalysisResponse is long enough to be cacheable and
	// carries no recency-sensitive language.
	SampleAnalysisResponse = "The quarterly revenue grew by 12% due to strong product adoption across all regions."

	// SampleRecencyResponse contains recency-sensitive language that
	// shortens the TTL.
	SampleRecencyResponse = "Revenue is currently trending up today. Based on the latest figures, adoption remains strong across all monitored regions."

	// SampleShortResponse is below the minimum cacheable length.
	SampleShortResponse = "Looks fine to me overall."

	// SampleStructuredResponse exercises the clarity structure bonus.
	SampleStructuredResponse = "Based on the contract terms, three risks stand out.\n- The renewal window is short.\n- The notice period is long.\n- Pricing indicates an annual escalator."
)

// NewTestProviderConfig creates a provider.Config suitable for testing.
func NewTestProviderConfig(name string, priority int, capabilities ...string) provider.Config {
	if len(capabilities) == 0 {
		capabilities = []string{"generation"}
	}
	return provider.Config{
		Name:         name,
		Family:       provider.FamilyOpenAI,
		Model:        "test-model-v1",
		Temperature:  0.3,
		MaxTokens:    1024,
		CostPerToken: 0.000001,
		Timeout:      5 * time.Second,
		Priority:     priority,
		Capabilities: capabilities,
		Enabled:      true,
		APIKey:       "test-key-12345",
	}
}

// NewTestConfig creates a config.Config suitable for testing, with no
// Redis and a single fast provider.
func NewTestConfig() *config.Config {
	cfg := &config.Config{
		Providers: []provider.Config{
			NewTestProviderConfig("primary", 1, "generation", "analysis"),
		},
		Cache: config.CacheConfig{
			Enabled:             true,
			SemanticMatching:    true,
			SimilarityThreshold: 0.85,
			MaxEntries:          100,
			OptimizeInterval:    time.Hour,
		},
		Benchmark: config.BenchmarkConfig{
			Concurrency:  1,
			TestDelay:    time.Millisecond,
			HistoryLimit: 10,
		},
		CostLimits: config.CostLimits{
			DailyMaxUSD:       10.0,
			AlertThresholdUSD: 8.0,
		},
	}
	return cfg
}

// NewTestLogger creates a zerolog.Logger that discards output (for quiet tests).
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
