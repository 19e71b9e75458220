// Package llmops is the composition root of the LLM operations core.
//
// The Manager wires the provider registry, the semantic response
// cache, the benchmark runner, and cost tracking behind one façade:
// Generate for cached text generation with provider fallback, and
// RunBenchmark/CompareBenchmarks for provider scoring.
package llmops

import (
	"context"
	"fmt"

	"github.com/hirepath/llmops/internal/benchmark"
	"github.com/hirepath/llmops/internal/cache"
	"github.com/hirepath/llmops/internal/config"
	"github.com/hirepath/llmops/internal/factory"
	"github.com/hirepath/llmops/internal/provider"
	"github.com/hirepath/llmops/pkg/telemetry"
	"github.com/rs/zerolog"
)

// maxGenerateAttempts bounds how many candidate invocations one
// Generate call may make before surfacing a failure.
const maxGenerateAttempts = 3

// Manager is the façade over the LLM operations core. Construct with
// New and release resources with Close; inject into request-handling
// contexts instead of sharing a global.
type Manager struct {
	cfg      *config.Config
	registry *provider.Registry
	invokers map[string]provider.Invoker
	cache    *cache.ResponseCache
	store    cache.Store
	runner   *benchmark.Runner
	costs    *telemetry.CostTracker
	logger   zerolog.Logger
}

// GenerateOptions tune a single generation request.
type GenerateOptions struct {
	// PreferredProvider is tried first when it can serve the task.
	PreferredProvider string

	// Temperature overrides the provider's configured default.
	Temperature *float64

	// MaxTokens overrides the provider's configured default.
	MaxTokens int

	// TopP is passed through when > 0.
	TopP float64

	// Stream marks the request as streaming; streamed responses are
	// never cached.
	Stream bool

	// SkipCache bypasses the cache lookup (the response may still be
	// stored).
	SkipCache bool
}

// GenerateResult is the outcome of a generation request.
type GenerateResult struct {
	Content      string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Cached       bool
	CacheType    cache.HitType
	Similarity   float64
}

// New builds a Manager from configuration. Providers that fail
// validation or invoker construction are skipped with a warning;
// the rest remain usable. A missing or unreachable Redis leaves the
// cache running purely in-memory.
func New(cfg *config.Config, logger zerolog.Logger) (*Manager, error) {
	var store cache.Store
	if cfg.Redis.Addr != "" {
		redisStore, err := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			// Never fatal: the in-memory cache keeps working.
			logger.Warn().Err(err).Msg("Durable cache store unavailable, running in-memory only")
		} else {
			store = redisStore
		}
	}

	m := NewWithStore(cfg, store, logger)

	for _, pc := range cfg.Providers {
		if err := m.RegisterProvider(pc, nil); err != nil {
			logger.Warn().
				Str("provider", pc.Name).
				Err(err).
				Msg("Skipping provider")
		}
	}
	if len(m.invokers) == 0 {
		return nil, fmt.Errorf("no usable providers configured")
	}

	if m.store != nil {
		if restored, err := m.cache.Rehydrate(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Cache rehydration failed")
		} else if restored > 0 {
			logger.Info().Int("entries", restored).Msg("Restored cache entries from durable store")
		}
	}

	return m, nil
}

// NewWithStore assembles a manager around an explicit durable store
// (which may be nil) without registering any providers. Callers then
// register providers, typically with injected invokers.
func NewWithStore(cfg *config.Config, store cache.Store, logger zerolog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		registry: provider.NewRegistry(logger),
		invokers: make(map[string]provider.Invoker),
		store:    store,
		runner:   benchmark.NewRunner(cfg.Benchmark.HistoryLimit, logger),
		costs:    telemetry.NewCostTracker(cfg.CostLimits.DailyMaxUSD, cfg.CostLimits.AlertThresholdUSD, logger),
		logger:   logger,
	}

	m.cache = cache.NewResponseCache(cache.Options{
		SemanticMatching:    cfg.Cache.SemanticMatching,
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		MaxEntries:          cfg.Cache.MaxEntries,
		OptimizeInterval:    cfg.Cache.OptimizeInterval,
	}, store, logger)

	for taskType, names := range cfg.TaskRouting {
		m.registry.SetRouting(taskType, names)
	}

	return m
}

// RegisterProvider validates and registers a provider. When invoker is
// nil one is built from the configuration; tests inject mocks here.
func (m *Manager) RegisterProvider(pc provider.Config, invoker provider.Invoker) error {
	if err := m.registry.Register(pc); err != nil {
		return err
	}

	if invoker == nil {
		built, err := factory.NewInvoker(pc, m.logger)
		if err != nil {
			return err
		}
		invoker = built
	}

	m.invokers[pc.Name] = invoker
	return nil
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Generate answers a request from the cache when possible, otherwise
// walks the ordered candidate list for the task type, invoking each
// provider with its configured timeout until one succeeds or the
// attempt budget is spent.
func (m *Manager) Generate(ctx context.Context, messages []provider.Message, taskType string, opts GenerateOptions) (*GenerateResult, error) {
	candidates := m.usableCandidates(taskType, opts.PreferredProvider)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("task %q: %w", taskType, provider.ErrNoProviderAvailable)
	}

	primary := candidates[0]
	temperature := primary.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := primary.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	key := cache.RequestKey(messages, primary.Model, temperature, maxTokens, opts.TopP)
	requestText := cache.RequestText(messages)

	if m.cfg.Cache.Enabled && !opts.SkipCache {
		if hit, ok := m.cache.Lookup(ctx, key, requestText); ok {
			m.logger.Debug().
				Str("cache_type", string(hit.Type)).
				Float64("similarity", hit.Similarity).
				Str("task_type", taskType).
				Msg("Cache hit")
			return &GenerateResult{
				Content:    hit.Response,
				Provider:   "cache",
				Model:      hit.Metadata.Model,
				Cached:     true,
				CacheType:  hit.Type,
				Similarity: hit.Similarity,
			}, nil
		}
	}

	var lastErr error
	attempts := 0
	for _, candidate := range candidates {
		if attempts >= maxGenerateAttempts {
			break
		}
		attempts++

		invoker := m.invokers[candidate.Name]
		if invoker == nil {
			continue
		}

		ictx, cancel := context.WithTimeout(ctx, candidate.Timeout)
		result, err := invoker.Invoke(ictx, messages, provider.Params{
			Model:       candidate.Model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
			TopP:        opts.TopP,
		})
		cancel()

		if err != nil {
			lastErr = &provider.InvocationError{Provider: candidate.Name, Err: err}
			m.logger.Warn().
				Str("provider", candidate.Name).
				Str("task_type", taskType).
				Err(err).
				Msg("Provider invocation failed, trying next candidate")

			// A canceled caller context should not trigger fallback.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("generation canceled: %w", ctx.Err())
			}
			continue
		}

		tokens := result.InputTokens + result.OutputTokens
		costUSD := float64(tokens) * candidate.CostPerToken
		m.costs.Record(candidate.Name, tokens, costUSD)

		if m.cfg.Cache.Enabled {
			m.cache.Store(ctx, key, requestText, result.Content, cache.Metadata{
				Model:       result.Model,
				Temperature: temperature,
				TaskType:    taskType,
				Stream:      opts.Stream,
			})
		}

		return &GenerateResult{
			Content:      result.Content,
			Provider:     candidate.Name,
			Model:        result.Model,
			InputTokens:  result.InputTokens,
			OutputTokens: result.OutputTokens,
			CostUSD:      costUSD,
		}, nil
	}

	return nil, fmt.Errorf("all %d candidate providers failed for task %q: %w", attempts, taskType, lastErr)
}

// RunBenchmark runs a benchmark suite against one named provider.
func (m *Manager) RunBenchmark(ctx context.Context, providerName, model, suite string, concurrency int) (*benchmark.ProviderBenchmark, error) {
	pc, ok := m.registry.Get(providerName)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
	invoker, ok := m.invokers[providerName]
	if !ok {
		return nil, fmt.Errorf("provider %s has no invoker", providerName)
	}

	if model == "" {
		model = pc.Model
	}
	if concurrency <= 0 {
		concurrency = m.cfg.Benchmark.Concurrency
	}

	return m.runner.Run(ctx, invoker, providerName, model, benchmark.RunOptions{
		Suite:        suite,
		Concurrency:  concurrency,
		Timeout:      pc.Timeout,
		Delay:        m.cfg.Benchmark.TestDelay,
		CostPerToken: pc.CostPerToken,
	})
}

// CompareBenchmarks ranks previously produced benchmarks.
func (m *Manager) CompareBenchmarks(benchmarks []benchmark.ProviderBenchmark) (*benchmark.Comparison, error) {
	return m.runner.Compare(benchmarks)
}

// BenchmarkHistory returns the retained benchmark aggregates.
func (m *Manager) BenchmarkHistory() []benchmark.ProviderBenchmark {
	return m.runner.History()
}

// CacheStats exposes cache counters for observability.
func (m *Manager) CacheStats() cache.Stats {
	return m.cache.Stats()
}

// OptimizeCache runs an on-demand cache optimization pass and returns
// the number of evicted entries.
func (m *Manager) OptimizeCache(ctx context.Context) int {
	return m.cache.Optimize(ctx)
}

// CostStats exposes total spend statistics.
func (m *Manager) CostStats() telemetry.TotalStats {
	return m.costs.GetTotalStats()
}

// Providers returns the names of registered providers.
func (m *Manager) Providers() []string {
	return m.registry.Names()
}

// usableCandidates filters the registry's candidates to those with a
// working invoker.
func (m *Manager) usableCandidates(taskType, preferred string) []provider.Config {
	candidates := m.registry.Candidates(taskType, preferred)
	usable := candidates[:0:0]
	for _, c := range candidates {
		if _, ok := m.invokers[c.Name]; ok {
			usable = append(usable, c)
		}
	}
	return usable
}
