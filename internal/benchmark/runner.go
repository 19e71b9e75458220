package benchmark

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hirepath/llmops/internal/provider"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// ErrInsufficientComparison is returned by Compare when fewer than two
// benchmarks are supplied.
var ErrInsufficientComparison = errors.New("at least two benchmarks are required for comparison")

// Weighting of the per-test score: quality dominates, latency is
// penalized mildly, and anything slower than 10s gets no latency
// credit at all.
const (
	qualityShare   = 0.7
	latencyShare   = 0.3
	latencyCeiling = 10 * time.Second
	defaultTimeout = 30 * time.Second
	defaultDelay   = 500 * time.Millisecond
	defaultHistory = 100
)

// Result is one outcome of running one test against one provider.
type Result struct {
	TestID     string        `json:"test_id"`
	Success    bool          `json:"success"`
	Latency    time.Duration `json:"latency"`
	TokensUsed int           `json:"tokens_used"`
	Cost       float64       `json:"cost"`
	Content    string        `json:"content,omitempty"`
	Error      string        `json:"error,omitempty"`
	Quality    float64       `json:"quality"` // populated only on success
	Timestamp  time.Time     `json:"timestamp"`
}

// ProviderBenchmark aggregates a run of a test set against one
// provider/model pair.
type ProviderBenchmark struct {
	Provider      string        `json:"provider"`
	Model         string        `json:"model"`
	Timestamp     time.Time     `json:"timestamp"`
	TotalTests    int           `json:"total_tests"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	AvgLatency    time.Duration `json:"avg_latency"`
	MedianLatency time.Duration `json:"median_latency"`
	P95Latency    time.Duration `json:"p95_latency"`
	TotalTokens   int           `json:"total_tokens"`
	TotalCost     float64       `json:"total_cost"`
	AvgQuality    float64       `json:"avg_quality"`
	OverallScore  float64       `json:"overall_score"`
	Results       []Result      `json:"results"`
}

// RunOptions control one benchmark run. Explicit Tests take precedence
// over a named Suite; with neither set the full catalogue runs.
type RunOptions struct {
	Suite        string
	Tests        []Test
	Concurrency  int           // bounded in-flight tests; <= 1 runs sequentially
	Timeout      time.Duration // per-test invocation bound
	Delay        time.Duration // inter-test delay in sequential mode
	CostPerToken float64
}

// Ranked is one row of a comparison ranking.
type Ranked struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	OverallScore float64 `json:"overall_score"`
}

// Comparison reports the best provider per metric and an overall
// ranking by overall score.
type Comparison struct {
	BestByMetric map[string]string `json:"best_by_metric"`
	Ranking      []Ranked          `json:"ranking"`
}

// Runner drives benchmark suites against provider invokers and keeps a
// bounded history of aggregated results.
type Runner struct {
	mu           sync.Mutex
	history      []ProviderBenchmark
	historyLimit int

	evaluator Evaluator
	logger    zerolog.Logger
}

// NewRunner creates a runner keeping the most recent historyLimit
// benchmarks (default 100).
func NewRunner(historyLimit int, logger zerolog.Logger) *Runner {
	if historyLimit <= 0 {
		historyLimit = defaultHistory
	}
	return &Runner{
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Run executes the resolved test list against the invoker and
// aggregates the outcomes. Provider failures and timeouts become
// failed Results; they never abort the run. Concurrency above 1 uses a
// counting semaphore so in-flight invocations stay bounded.
func (r *Runner) Run(ctx context.Context, invoker provider.Invoker, providerName, model string, opts RunOptions) (*ProviderBenchmark, error) {
	tests, err := resolveTests(opts)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r.logger.Info().
		Str("provider", providerName).
		Str("model", model).
		Int("tests", len(tests)).
		Int("concurrency", opts.Concurrency).
		Msg("Starting benchmark run")

	results := make([]Result, len(tests))

	if opts.Concurrency <= 1 {
		delay := opts.Delay
		if delay <= 0 {
			delay = defaultDelay
		}
		for i, test := range tests {
			if i > 0 {
				// Pace sequential runs so a single benchmark does not
				// hammer a rate-limited provider.
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
			}
			results[i] = r.runOne(ctx, invoker, model, test, timeout, opts.CostPerToken)
		}
	} else {
		sem := semaphore.NewWeighted(int64(opts.Concurrency))
		var wg sync.WaitGroup
		for i, test := range tests {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil, err
			}
			wg.Add(1)
			go func(i int, test Test) {
				defer wg.Done()
				defer sem.Release(1)
				results[i] = r.runOne(ctx, invoker, model, test, timeout, opts.CostPerToken)
			}(i, test)
		}
		wg.Wait()
	}

	bench := r.aggregate(providerName, model, tests, results)

	r.mu.Lock()
	r.history = append(r.history, *bench)
	if len(r.history) > r.historyLimit {
		r.history = r.history[len(r.history)-r.historyLimit:]
	}
	r.mu.Unlock()

	r.logger.Info().
		Str("provider", providerName).
		Int("succeeded", bench.Succeeded).
		Int("failed", bench.Failed).
		Float64("overall_score", bench.OverallScore).
		Msg("Benchmark run completed")

	return bench, nil
}

// runOne wraps a single invocation so provider errors and timeouts
// produce a failed Result instead of aborting the run.
func (r *Runner) runOne(ctx context.Context, invoker provider.Invoker, model string, test Test, timeout time.Duration, costPerToken float64) Result {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := invoker.Invoke(tctx, test.Prompt, provider.Params{
		Model:       model,
		Temperature: test.Temperature,
		MaxTokens:   test.MaxTokens,
	})
	latency := time.Since(start)

	result := Result{
		TestID:    test.ID,
		Latency:   latency,
		Timestamp: time.Now(),
	}

	if err != nil {
		result.Error = err.Error()
		r.logger.Warn().
			Str("test", test.ID).
			Dur("latency", latency).
			Err(err).
			Msg("Benchmark test failed")
		return result
	}

	tokens := resp.InputTokens + resp.OutputTokens
	result.Success = true
	result.TokensUsed = tokens
	result.Cost = float64(tokens) * costPerToken
	result.Content = resp.Content
	result.Quality = r.evaluator.Evaluate(resp.Content, test)

	return result
}

// aggregate folds per-test results into a ProviderBenchmark. Latency
// statistics and quality cover successful results only; the overall
// score is the weight-normalized sum of per-test scores, where a
// failed test contributes zero regardless of how fast it failed.
func (r *Runner) aggregate(providerName, model string, tests []Test, results []Result) *ProviderBenchmark {
	bench := &ProviderBenchmark{
		Provider:   providerName,
		Model:      model,
		Timestamp:  time.Now(),
		TotalTests: len(results),
		Results:    results,
	}

	var latencies []time.Duration
	var qualitySum float64
	var weightSum, scoreSum float64

	for i, result := range results {
		weight := tests[i].Weight
		if weight <= 0 {
			weight = 1
		}
		weightSum += weight

		if !result.Success {
			bench.Failed++
			continue
		}

		bench.Succeeded++
		bench.TotalTokens += result.TokensUsed
		bench.TotalCost += result.Cost
		latencies = append(latencies, result.Latency)
		qualitySum += result.Quality

		latencyPenalty := float64(result.Latency) / float64(latencyCeiling)
		if latencyPenalty > 1 {
			latencyPenalty = 1
		}
		testScore := qualityShare*result.Quality + latencyShare*(1-latencyPenalty)
		scoreSum += weight * testScore
	}

	if bench.Succeeded > 0 {
		bench.AvgQuality = qualitySum / float64(bench.Succeeded)

		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var total time.Duration
		for _, l := range latencies {
			total += l
		}
		bench.AvgLatency = total / time.Duration(len(latencies))
		bench.MedianLatency = latencies[len(latencies)/2]
		bench.P95Latency = latencies[percentileIndex(len(latencies), 0.95)]
	}

	if weightSum > 0 {
		bench.OverallScore = scoreSum / weightSum
	}

	return bench
}

// History returns a copy of the retained benchmarks, oldest first.
func (r *Runner) History() []ProviderBenchmark {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProviderBenchmark, len(r.history))
	copy(out, r.history)
	return out
}

// Compare determines the best provider per tracked metric and ranks
// all inputs by overall score. Latency and cost are lower-is-better;
// everything else is higher-is-better. Equal overall scores keep their
// input order in the ranking.
func (r *Runner) Compare(benchmarks []ProviderBenchmark) (*Comparison, error) {
	if len(benchmarks) < 2 {
		return nil, ErrInsufficientComparison
	}

	best := map[string]int{
		"overall_score":     0,
		"avg_response_time": 0,
		"avg_quality":       0,
		"success_count":     0,
		"total_cost":        0,
	}

	for i := 1; i < len(benchmarks); i++ {
		b := benchmarks[i]
		if b.OverallScore > benchmarks[best["overall_score"]].OverallScore {
			best["overall_score"] = i
		}
		if b.AvgLatency < benchmarks[best["avg_response_time"]].AvgLatency {
			best["avg_response_time"] = i
		}
		if b.AvgQuality > benchmarks[best["avg_quality"]].AvgQuality {
			best["avg_quality"] = i
		}
		if b.Succeeded > benchmarks[best["success_count"]].Succeeded {
			best["success_count"] = i
		}
		if b.TotalCost < benchmarks[best["total_cost"]].TotalCost {
			best["total_cost"] = i
		}
	}

	comparison := &Comparison{
		BestByMetric: make(map[string]string, len(best)),
	}
	for metric, idx := range best {
		comparison.BestByMetric[metric] = benchmarks[idx].Provider
	}

	ranking := make([]Ranked, 0, len(benchmarks))
	for _, b := range benchmarks {
		ranking = append(ranking, Ranked{
			Provider:     b.Provider,
			Model:        b.Model,
			OverallScore: b.OverallScore,
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].OverallScore > ranking[j].OverallScore
	})
	comparison.Ranking = ranking

	return comparison, nil
}

// resolveTests applies the precedence explicit list > named suite >
// full catalogue.
func resolveTests(opts RunOptions) ([]Test, error) {
	if len(opts.Tests) > 0 {
		return opts.Tests, nil
	}
	if opts.Suite != "" {
		return SuiteTests(opts.Suite)
	}
	return AllTests(), nil
}

// percentileIndex returns the index of the p-th percentile in a sorted
// slice of length n.
func percentileIndex(n int, p float64) int {
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return idx
}
