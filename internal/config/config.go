// Package config loads and validates the LLM operations configuration.
//
// The configuration file enumerates providers, task-routing rules, and
// cache/benchmark settings. When the file is absent a sane default is
// generated and written back so deployments start with a working setup.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hirepath/llmops/internal/provider"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Providers   []provider.Config   `yaml:"providers"`
	TaskRouting map[string][]string `yaml:"task_routing,omitempty"`
	Cache       CacheConfig         `yaml:"cache"`
	Redis       RedisConfig         `yaml:"redis"`
	Benchmark   BenchmarkConfig     `yaml:"benchmark"`
	CostLimits  CostLimits          `yaml:"cost_limits"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled             bool          `yaml:"enabled"`
	SemanticMatching    bool          `yaml:"semantic_matching"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	MaxEntries          int           `yaml:"max_entries"`
	OptimizeInterval    time.Duration `yaml:"optimize_interval"`
}

// RedisConfig points at the durable cache tier. An empty address
// disables persistence; the in-memory cache still operates.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// BenchmarkConfig controls the benchmark runner.
type BenchmarkConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	TestDelay    time.Duration `yaml:"test_delay"`
	HistoryLimit int           `yaml:"history_limit"`
}

// CostLimits defines spend constraints for cost tracking.
type CostLimits struct {
	DailyMaxUSD       float64 `yaml:"daily_max_usd"`
	AlertThresholdUSD float64 `yaml:"alert_threshold_usd"`
}

// Load reads configuration from a YAML file. A missing file triggers
// generation of defaults, persisted back to the same path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		config := Default()
		if saveErr := config.Save(path); saveErr != nil {
			return nil, fmt.Errorf("write default config: %w", saveErr)
		}
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the config (API keys etc.)
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks document-level settings and fills defaults. Provider
// entries are validated individually at registration time so one bad
// provider does not take down the others.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	for i := range c.Providers {
		if c.Providers[i].Timeout <= 0 {
			c.Providers[i].Timeout = 30 * time.Second
		}
		if c.Providers[i].MaxTokens <= 0 {
			c.Providers[i].MaxTokens = 1024
		}
	}

	if c.Cache.SimilarityThreshold <= 0 || c.Cache.SimilarityThreshold > 1 {
		c.Cache.SimilarityThreshold = 0.85
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 10000
	}
	if c.Cache.OptimizeInterval <= 0 {
		c.Cache.OptimizeInterval = time.Hour
	}

	if c.Benchmark.Concurrency <= 0 {
		c.Benchmark.Concurrency = 1
	}
	if c.Benchmark.TestDelay <= 0 {
		c.Benchmark.TestDelay = 500 * time.Millisecond
	}
	if c.Benchmark.HistoryLimit <= 0 {
		c.Benchmark.HistoryLimit = 100
	}

	if c.CostLimits.DailyMaxUSD <= 0 {
		c.CostLimits.DailyMaxUSD = 25.0
	}
	if c.CostLimits.AlertThresholdUSD <= 0 {
		c.CostLimits.AlertThresholdUSD = c.CostLimits.DailyMaxUSD * 0.8
	}

	return nil
}

// Default returns the generated default configuration: one provider
// per supported family with conservative priorities and routing rules
// for the common task types.
func Default() *Config {
	return &Config{
		Providers: []provider.Config{
			{
				Name:              "openai",
				Family:            provider.FamilyOpenAI,
				Model:             "gpt-4o-mini",
				Temperature:       0.3,
				MaxTokens:         2048,
				CostPerToken:      0.00000045,
				RequestsPerMinute: 500,
				TokensPerMinute:   200000,
				Timeout:           30 * time.Second,
				Priority:          1,
				Capabilities:      []string{"reasoning", "analysis", "generation"},
				Enabled:           true,
			},
			{
				Name:              "groq",
				Family:            provider.FamilyGroq,
				Model:             "llama-3.1-8b-instant",
				Temperature:       0.3,
				MaxTokens:         2048,
				CostPerToken:      0.00000008,
				RequestsPerMinute: 30,
				TokensPerMinute:   14400,
				Timeout:           20 * time.Second,
				Priority:          2,
				Capabilities:      []string{"fast_analysis", "generation"},
				Enabled:           true,
			},
			{
				Name:              "ollama",
				Family:            provider.FamilyOllama,
				Model:             "llama3",
				Temperature:       0.3,
				MaxTokens:         2048,
				CostPerToken:      0,
				Timeout:           60 * time.Second,
				Priority:          3,
				Capabilities:      []string{"generation", "fast_analysis"},
				Enabled:           true,
			},
		},
		TaskRouting: map[string][]string{
			"analysis":      {"openai", "groq"},
			"fast_analysis": {"groq", "ollama"},
			"generation":    {"openai", "groq", "ollama"},
		},
		Cache: CacheConfig{
			Enabled:             true,
			SemanticMatching:    true,
			SimilarityThreshold: 0.85,
			MaxEntries:          10000,
			OptimizeInterval:    time.Hour,
		},
		Benchmark: BenchmarkConfig{
			Concurrency:  1,
			TestDelay:    500 * time.Millisecond,
			HistoryLimit: 100,
		},
		CostLimits: CostLimits{
			DailyMaxUSD:       25.0,
			AlertThresholdUSD: 20.0,
		},
	}
}
