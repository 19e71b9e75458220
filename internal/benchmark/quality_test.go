package benchmark

import (
	"strings"
	"testing"
)

func TestEvaluateBounded(t *testing.T) {
	contents := []string{
		"",
		"Yes.",
		"I don't know anything about this topic, not sure at all.",
		strings.Repeat("Based on the figures, revenue indicates sustained growth across all markets. ", 30),
		"Based on the contract terms:\n- The renewal window is short.\n- Pricing includes an annual escalator.",
	}

	var e Evaluator
	for _, content := range contents {
		score := e.Evaluate(content, Test{ExpectedKeywords: []string{"revenue", "growth"}})
		if score < 0 || score > 1 {
			t.Errorf("Evaluate(%.30q) = %v, outside [0, 1]", content, score)
		}
	}
}

func TestRelevance(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		keywords []string
		want     float64
	}{
		{
			name:     "all keywords found",
			content:  "Revenue grew due to strong product adoption.",
			keywords: []string{"revenue", "adoption"},
			want:     1.0,
		},
		{
			name:     "half the keywords found",
			content:  "Revenue grew this quarter.",
			keywords: []string{"revenue", "churn"},
			want:     0.5,
		},
		{
			name:     "case insensitive",
			content:  "REVENUE grew this quarter.",
			keywords: []string{"Revenue"},
			want:     1.0,
		},
		{
			name:     "no keywords defaults to 0.8",
			content:  "Anything at all.",
			keywords: nil,
			want:     0.8,
		},
		{
			name:     "nothing found",
			content:  "Unrelated text.",
			keywords: []string{"revenue", "churn"},
			want:     0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relevance(tt.content, tt.keywords); got != tt.want {
				t.Errorf("relevance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracyHeuristic(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"hedging scores low", "I don't know whether this clause is enforceable.", 0.3},
		{"confidence marker scores high", "Based on the wording, the clause is enforceable.", 0.9},
		{"neutral text sits in the middle", "The clause appears enforceable in most jurisdictions.", 0.7},
		{"hedging wins over confidence", "Based on the wording I'm not sure this is enforceable.", 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accuracy(tt.content); got != tt.want {
				t.Errorf("accuracy(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestCompleteness(t *testing.T) {
	long := strings.Repeat("This sentence pads the response with additional words for scoring. ", 20)
	if got := completeness(long); got != 1.0 {
		t.Errorf("completeness(long) = %v, want 1.0", got)
	}

	if got := completeness("Yes."); got >= 0.5 {
		t.Errorf("completeness(short) = %v, want well below full score", got)
	}

	if got := completeness(""); got != 0 {
		t.Errorf("completeness(empty) = %v, want 0", got)
	}
}

func TestClarityStructureBonus(t *testing.T) {
	flat := "The renewal window is short and the notice period for cancellation is long."
	structured := flat + "\n- renewal window\n- notice period"

	if clarity(structured) <= clarity(flat) {
		t.Errorf("structured clarity %v not above flat clarity %v", clarity(structured), clarity(flat))
	}
}

func TestCountSentences(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"One sentence.", 1},
		{"One. Two! Three?", 3},
		{"Trailing text without a terminator", 1},
		{"Ellipsis... still one segment.", 2},
		{"...", 0},
	}

	for _, tt := range tests {
		if got := countSentences(tt.content); got != tt.want {
			t.Errorf("countSentences(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}
