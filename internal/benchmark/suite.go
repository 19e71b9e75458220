// Package benchmark scores provider quality, latency, and cost across
// a fixed test catalogue and ranks providers against each other.
package benchmark

import (
	"fmt"
	"sort"

	"github.com/hirepath/llmops/internal/provider"
)

// Test is one benchmark case: a prompt, the keywords a good answer
// should contain, sampling parameters, and a relative weight.
type Test struct {
	ID               string
	Prompt           []provider.Message
	ExpectedKeywords []string
	Temperature      float64
	MaxTokens        int
	Weight           float64
}

// builtinSuites is the fixed catalogue, grouped into named suites.
var builtinSuites = map[string][]Test{
	"general_reasoning": {
		{
			ID: "reasoning-trains",
			Prompt: []provider.Message{
				{Role: "user", Content: "Two trains leave stations 300 km apart at the same time, one at 60 km/h and one at 90 km/h, heading toward each other. How long until they meet? Explain your reasoning step by step."},
			},
			ExpectedKeywords: []string{"150", "2 hours", "combined"},
			Temperature:      0.2,
			MaxTokens:        512,
			Weight:           1.0,
		},
		{
			ID: "reasoning-logic",
			Prompt: []provider.Message{
				{Role: "user", Content: "All contracts in the folder are signed. Some signed contracts are expired. Can we conclude that some contracts in the folder are expired? Explain."},
			},
			ExpectedKeywords: []string{"no", "cannot", "conclude"},
			Temperature:      0.2,
			MaxTokens:        512,
			Weight:           1.0,
		},
	},
	"code_generation": {
		{
			ID: "code-dedupe",
			Prompt: []provider.Message{
				{Role: "user", Content: "Write a function that removes duplicate strings from a list while preserving order. Include a short explanation."},
			},
			ExpectedKeywords: []string{"def", "seen", "order"},
			Temperature:      0.1,
			MaxTokens:        768,
			Weight:           1.2,
		},
		{
			ID: "code-review",
			Prompt: []provider.Message{
				{Role: "user", Content: "Explain what is wrong with reading a shared counter from multiple threads without synchronization and how to fix it."},
			},
			ExpectedKeywords: []string{"race", "lock", "atomic"},
			Temperature:      0.1,
			MaxTokens:        768,
			Weight:           1.0,
		},
	},
	"analysis": {
		{
			ID: "analysis-clause",
			Prompt: []provider.Message{
				{Role: "system", Content: "You are a contract review assistant."},
				{Role: "user", Content: "Summarize the risks of an auto-renewal clause with a 90-day cancellation notice window in a vendor contract."},
			},
			ExpectedKeywords: []string{"renewal", "notice", "cancellation", "risk"},
			Temperature:      0.3,
			MaxTokens:        768,
			Weight:           1.5,
		},
		{
			ID: "analysis-metrics",
			Prompt: []provider.Message{
				{Role: "user", Content: "A company's revenue grew 12% while costs grew 20%. Analyze what this indicates about margin trends and what management should investigate."},
			},
			ExpectedKeywords: []string{"margin", "costs", "revenue"},
			Temperature:      0.3,
			MaxTokens:        768,
			Weight:           1.0,
		},
	},
	"summarization": {
		{
			ID: "summarize-meeting",
			Prompt: []provider.Message{
				{Role: "user", Content: "Summarize in three bullet points: The hiring committee met on Monday. They reviewed 14 applications, shortlisted 5 candidates, and scheduled interviews for next week. Budget approval for a second position is still pending with finance."},
			},
			ExpectedKeywords: []string{"14", "5", "budget"},
			Temperature:      0.2,
			MaxTokens:        256,
			Weight:           0.8,
		},
	},
}

// Suites returns the names of the built-in suites, sorted.
func Suites() []string {
	names := make([]string, 0, len(builtinSuites))
	for name := range builtinSuites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SuiteTests returns the tests of a named suite.
func SuiteTests(name string) ([]Test, error) {
	tests, ok := builtinSuites[name]
	if !ok {
		return nil, fmt.Errorf("unknown benchmark suite: %s (available: %v)", name, Suites())
	}
	return tests, nil
}

// AllTests returns the full catalogue across every suite, in suite
// name order.
func AllTests() []Test {
	var all []Test
	for _, name := range Suites() {
		all = append(all, builtinSuites[name]...)
	}
	return all
}
