package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/hirepath/llmops/internal/provider"
	mocks "github.com/hirepath/llmops/internal/testing"
	"github.com/rs/zerolog"
)

func fastTests(n int) []Test {
	tests := make([]Test, n)
	for i := range tests {
		tests[i] = Test{
			ID:               fmt.Sprintf("test-%d", i),
			Prompt:           []provider.Message{{Role: "user", Content: fmt.Sprintf("prompt %d", i)}},
			ExpectedKeywords: []string{"response"},
			MaxTokens:        64,
			Weight:           1,
		}
	}
	return tests
}

func newTestRunner(limit int) *Runner {
	return NewRunner(limit, zerolog.New(io.Discard))
}

func TestRunSequential(t *testing.T) {
	invoker := &mocks.MockInvoker{}
	r := newTestRunner(10)

	bench, err := r.Run(context.Background(), invoker, "mock", "mock-model", RunOptions{
		Tests:        fastTests(3),
		Delay:        time.Millisecond,
		CostPerToken: 0.00001,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if bench.TotalTests != 3 || bench.Succeeded != 3 || bench.Failed != 0 {
		t.Errorf("counts = %d/%d/%d, want 3/3/0", bench.TotalTests, bench.Succeeded, bench.Failed)
	}
	if invoker.Calls() != 3 {
		t.Errorf("invoker called %d times, want 3", invoker.Calls())
	}
	if bench.AvgQuality <= 0 || bench.AvgQuality > 1 {
		t.Errorf("avg quality = %v, want within (0, 1]", bench.AvgQuality)
	}
	if bench.OverallScore <= 0 || bench.OverallScore > 1 {
		t.Errorf("overall score = %v, want within (0, 1]", bench.OverallScore)
	}
	// 150 tokens per mock invocation.
	if bench.TotalTokens != 450 {
		t.Errorf("total tokens = %d, want 450", bench.TotalTokens)
	}
	if diff := bench.TotalCost - 0.0045; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("total cost = %v, want 0.0045", bench.TotalCost)
	}
	for i, result := range bench.Results {
		if result.TestID != fmt.Sprintf("test-%d", i) {
			t.Errorf("results[%d].TestID = %s, out of order", i, result.TestID)
		}
	}
}

func TestRunConcurrent(t *testing.T) {
	invoker := &mocks.MockInvoker{Latency: 5 * time.Millisecond}
	r := newTestRunner(10)

	bench, err := r.Run(context.Background(), invoker, "mock", "mock-model", RunOptions{
		Tests:       fastTests(6),
		Concurrency: 3,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if bench.Succeeded != 6 {
		t.Errorf("succeeded = %d, want 6", bench.Succeeded)
	}
	// Positions must match the input order even with concurrent workers.
	for i, result := range bench.Results {
		if result.TestID != fmt.Sprintf("test-%d", i) {
			t.Errorf("results[%d].TestID = %s, out of order", i, result.TestID)
		}
	}
}

func TestRunFailuresDoNotAbort(t *testing.T) {
	invoker := &mocks.ErrorInvoker{ErrorMessage: "provider unavailable"}
	r := newTestRunner(10)

	bench, err := r.Run(context.Background(), invoker, "mock", "mock-model", RunOptions{
		Tests: fastTests(2),
		Delay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run() should not fail when every test fails: %v", err)
	}

	if bench.Succeeded != 0 || bench.Failed != 2 {
		t.Errorf("counts = %d/%d, want 0/2", bench.Succeeded, bench.Failed)
	}
	if bench.OverallScore != 0 {
		t.Errorf("overall score = %v, want 0 for an all-failed run", bench.OverallScore)
	}
	for _, result := range bench.Results {
		if result.Success {
			t.Errorf("result %s marked successful", result.TestID)
		}
		if result.Error == "" {
			t.Errorf("result %s has no error message", result.TestID)
		}
	}
}

func TestRunMixedOutcomes(t *testing.T) {
	calls := 0
	invoker := &mocks.MockInvoker{
		InvokeFunc: func(ctx context.Context, messages []provider.Message, params provider.Params) (*provider.Result, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("transient failure")
			}
			return &provider.Result{
				Content:      "Based on the request, this response indicates the expected behavior with enough detail.",
				InputTokens:  50,
				OutputTokens: 25,
			}, nil
		},
	}
	r := newTestRunner(10)

	bench, err := r.Run(context.Background(), invoker, "mock", "mock-model", RunOptions{
		Tests: fastTests(3),
		Delay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if bench.Succeeded != 2 || bench.Failed != 1 {
		t.Errorf("counts = %d/%d, want 2/1", bench.Succeeded, bench.Failed)
	}
	if !bench.Results[1].Success || !bench.Results[2].Success {
		t.Error("later tests did not run after the first failure")
	}
}

func TestRunPerTestTimeout(t *testing.T) {
	invoker := &mocks.MockInvoker{Latency: 200 * time.Millisecond}
	r := newTestRunner(10)

	bench, err := r.Run(context.Background(), invoker, "mock", "mock-model", RunOptions{
		Tests:   fastTests(1),
		Timeout: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if bench.Failed != 1 {
		t.Errorf("slow test did not fail: %+v", bench.Results[0])
	}
}

func TestHistoryRing(t *testing.T) {
	invoker := &mocks.MockInvoker{}
	r := newTestRunner(2)

	for i := 0; i < 3; i++ {
		_, err := r.Run(context.Background(), invoker, fmt.Sprintf("provider-%d", i), "m", RunOptions{
			Tests: fastTests(1),
			Delay: time.Millisecond,
		})
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	}

	history := r.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Provider != "provider-1" || history[1].Provider != "provider-2" {
		t.Errorf("history = [%s %s], want oldest entry dropped", history[0].Provider, history[1].Provider)
	}
}

func TestCompareRequiresTwo(t *testing.T) {
	r := newTestRunner(10)

	_, err := r.Compare([]ProviderBenchmark{{Provider: "solo"}})
	if !errors.Is(err, ErrInsufficientComparison) {
		t.Errorf("Compare() error = %v, want ErrInsufficientComparison", err)
	}
}

func TestCompareMetrics(t *testing.T) {
	r := newTestRunner(10)

	benchA := ProviderBenchmark{
		Provider:     "a",
		Model:        "model-a",
		OverallScore: 0.9,
		AvgLatency:   2 * time.Second,
		AvgQuality:   0.95,
		Succeeded:    7,
		TotalCost:    0.50,
	}
	benchB := ProviderBenchmark{
		Provider:     "b",
		Model:        "model-b",
		OverallScore: 0.7,
		AvgLatency:   500 * time.Millisecond,
		AvgQuality:   0.70,
		Succeeded:    7,
		TotalCost:    0.10,
	}

	comparison, err := r.Compare([]ProviderBenchmark{benchA, benchB})
	if err != nil {
		t.Fatalf("Compare() error: %v", err)
	}

	want := map[string]string{
		"overall_score":     "a",
		"avg_response_time": "b",
		"avg_quality":       "a",
		"success_count":     "a", // tie keeps the first input
		"total_cost":        "b",
	}
	for metric, provider := range want {
		if got := comparison.BestByMetric[metric]; got != provider {
			t.Errorf("BestByMetric[%s] = %s, want %s", metric, got, provider)
		}
	}

	if comparison.Ranking[0].Provider != "a" || comparison.Ranking[1].Provider != "b" {
		t.Errorf("ranking = %v, want a before b", comparison.Ranking)
	}
}

func TestResolveTestsPrecedence(t *testing.T) {
	explicit := fastTests(1)

	tests, err := resolveTests(RunOptions{Tests: explicit, Suite: "code_generation"})
	if err != nil {
		t.Fatalf("resolveTests() error: %v", err)
	}
	if len(tests) != 1 || tests[0].ID != explicit[0].ID {
		t.Error("explicit tests should win over a named suite")
	}

	tests, err = resolveTests(RunOptions{Suite: "code_generation"})
	if err != nil {
		t.Fatalf("resolveTests() error: %v", err)
	}
	want, _ := SuiteTests("code_generation")
	if len(tests) != len(want) {
		t.Errorf("suite run has %d tests, want %d", len(tests), len(want))
	}

	tests, err = resolveTests(RunOptions{})
	if err != nil {
		t.Fatalf("resolveTests() error: %v", err)
	}
	if len(tests) != len(AllTests()) {
		t.Errorf("default run has %d tests, want the full catalogue (%d)", len(tests), len(AllTests()))
	}

	if _, err := resolveTests(RunOptions{Suite: "does-not-exist"}); err == nil {
		t.Error("unknown suite should be an error")
	}
}
