package benchmark

import "strings"

// Sub-score weights for the composite quality score.
const (
	relevanceWeight    = 0.30
	completenessWeight = 0.25
	accuracyWeight     = 0.25
	clarityWeight      = 0.20
)

var hedgingPhrases = []string{"i don't know", "not sure", "insufficient information"}

var confidenceMarkers = []string{"based on", "indicates", "demonstrates"}

// Evaluator scores response text against a test's expectations. It is
// a pure function over the response; scores are always in [0, 1].
type Evaluator struct{}

// Evaluate combines relevance, completeness, heuristic accuracy, and
// clarity into one quality score.
func (Evaluator) Evaluate(content string, test Test) float64 {
	score := relevanceWeight*relevance(content, test.ExpectedKeywords) +
		completenessWeight*completeness(content) +
		accuracyWeight*accuracy(content) +
		clarityWeight*clarity(content)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// relevance is the fraction of expected keywords present in the
// response (case-insensitive substring match). Tests without keywords
// get a 0.8 default rather than a free pass.
func relevance(content string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0.8
	}

	lower := strings.ToLower(content)
	found := 0
	for _, keyword := range keywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

// completeness averages a word-count target (100 words) and a
// sentence-count target (3 sentences), each capped at full score.
func completeness(content string) float64 {
	words := float64(len(strings.Fields(content))) / 100.0
	if words > 1 {
		words = 1
	}

	sentences := float64(countSentences(content)) / 3.0
	if sentences > 1 {
		sentences = 1
	}

	return (words + sentences) / 2
}

// accuracy is a heuristic: hedging language scores low, confidence
// markers score high, everything else sits in the middle.
func accuracy(content string) float64 {
	lower := strings.ToLower(content)

	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			return 0.3
		}
	}

	for _, marker := range confidenceMarkers {
		if strings.Contains(lower, marker) {
			return 0.9
		}
	}

	return 0.7
}

// clarity averages a sentence-length band score (10-20 words per
// sentence is ideal) with a structure bonus for line breaks or list
// markers.
func clarity(content string) float64 {
	sentences := countSentences(content)
	if sentences == 0 {
		sentences = 1
	}
	avgLen := float64(len(strings.Fields(content))) / float64(sentences)

	var lengthScore float64
	switch {
	case avgLen >= 10 && avgLen <= 20:
		lengthScore = 1.0
	case avgLen < 5:
		lengthScore = 0.5
	case avgLen > 30:
		lengthScore = 0.6
	default:
		lengthScore = 0.8
	}

	structureScore := 0.7
	if strings.Contains(content, "\n") || strings.Contains(content, "- ") || strings.Contains(content, "* ") {
		structureScore = 1.0
	}

	return (lengthScore + structureScore) / 2
}

// countSentences counts non-empty segments terminated by . ! or ?
func countSentences(content string) int {
	count := 0
	segment := false
	for _, r := range content {
		switch r {
		case '.', '!', '?':
			if segment {
				count++
				segment = false
			}
		default:
			if r != ' ' && r != '\n' && r != '\t' {
				segment = true
			}
		}
	}
	if segment {
		count++
	}
	return count
}
