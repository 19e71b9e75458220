// Package cache implements the semantic response cache.
//
// The cache package combines an exact-hash entry map, a TF-IDF
// similarity index over cached request texts, a heuristic lifecycle
// policy (cacheability, TTL, eviction), and an optional durable
// key-value tier so hot entries survive restarts.
package cache

import (
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// DefaultSimilarityThreshold is the minimum cosine similarity for
	// a semantic match.
	DefaultSimilarityThreshold = 0.85

	// maxFeatures bounds the vocabulary of the fitted index.
	maxFeatures = 1000
)

// Matcher maintains a TF-IDF vector index over cached request texts
// and answers nearest-neighbor queries by cosine similarity.
//
// The index is refit over the whole corpus whenever membership changes
// because IDF weights depend on every tracked document. Full refits
// trade throughput for correctness; fine for caches in the thousands
// of entries. Matcher is not safe for concurrent use on its own - the
// owning ResponseCache serializes access.
type Matcher struct {
	threshold float64

	texts map[string]string // key -> normalized request text

	// Fitted state, rebuilt by refit(). Empty until >= 2 texts exist.
	fitted  bool
	vocab   map[string]int       // term -> column index
	idf     []float64            // per-column inverse document frequency
	vectors map[string][]float64 // key -> l2-normalized tf-idf vector

	logger zerolog.Logger
}

// NewMatcher creates an empty matcher. A threshold <= 0 uses the
// default.
func NewMatcher(threshold float64, logger zerolog.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Matcher{
		threshold: threshold,
		texts:     make(map[string]string),
		logger:    logger,
	}
}

// Len returns the number of tracked texts.
func (m *Matcher) Len() int {
	return len(m.texts)
}

// Add tracks a request text under its cache key and refits the index.
func (m *Matcher) Add(key, text string) {
	m.texts[key] = strings.ToLower(strings.TrimSpace(text))
	m.refit()
}

// Remove drops a tracked text and refits the index. Removing below
// two texts returns the index to the unfit state.
func (m *Matcher) Remove(key string) {
	if _, ok := m.texts[key]; !ok {
		return
	}
	delete(m.texts, key)
	m.refit()
}

// FindBestMatch vectorizes the query with the currently fit model and
// returns the highest-scoring key when its cosine similarity meets the
// threshold. Returns false while the index is unfit (fewer than two
// tracked texts). When several keys tie at the maximum score, which
// one is returned depends on iteration order; only the surfaced
// duplicate differs, never correctness.
func (m *Matcher) FindBestMatch(text string) (string, float64, bool) {
	if !m.fitted {
		return "", 0, false
	}

	query := m.vectorize(strings.ToLower(strings.TrimSpace(text)))
	if query == nil {
		return "", 0, false
	}

	bestKey := ""
	bestScore := 0.0
	for key, vec := range m.vectors {
		score := cosine(query, vec)
		if score > bestScore {
			bestKey = key
			bestScore = score
		}
	}

	if bestKey == "" || bestScore < m.threshold {
		return "", 0, false
	}

	m.logger.Debug().
		Str("matched_key", bestKey).
		Float64("similarity", bestScore).
		Msg("Semantic match found")

	return bestKey, bestScore, true
}

// refit rebuilds the vocabulary, IDF weights, and document vectors
// over the whole corpus. With fewer than two texts the index stays
// unfit and only exact-hash lookups can match.
func (m *Matcher) refit() {
	if len(m.texts) < 2 {
		m.fitted = false
		m.vocab = nil
		m.idf = nil
		m.vectors = nil
		return
	}

	// Term counts per document and document frequency per term.
	docTerms := make(map[string]map[string]int, len(m.texts))
	df := make(map[string]int)
	total := make(map[string]int)

	for key, text := range m.texts {
		counts := make(map[string]int)
		for _, term := range tokenize(text) {
			counts[term]++
			total[term]++
		}
		for term := range counts {
			df[term]++
		}
		docTerms[key] = counts
	}

	// Keep the top terms by corpus frequency, ties broken
	// alphabetically for a stable vocabulary.
	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if total[terms[i]] != total[terms[j]] {
			return total[terms[i]] > total[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(m.texts))
	for i, term := range terms {
		vocab[term] = i
		// Smoothed IDF so terms present in every document still
		// carry a small weight.
		idf[i] = math.Log((1+n)/float64(1+df[term])) + 1
	}

	vectors := make(map[string][]float64, len(m.texts))
	for key, counts := range docTerms {
		vec := make([]float64, len(terms))
		for term, count := range counts {
			if col, ok := vocab[term]; ok {
				vec[col] = float64(count) * idf[col]
			}
		}
		normalize(vec)
		vectors[key] = vec
	}

	m.fitted = true
	m.vocab = vocab
	m.idf = idf
	m.vectors = vectors
}

// vectorize maps a query onto the fitted vocabulary. Returns nil when
// no query term is in the vocabulary.
func (m *Matcher) vectorize(text string) []float64 {
	vec := make([]float64, len(m.idf))
	hit := false
	for _, term := range tokenize(text) {
		if col, ok := m.vocab[term]; ok {
			vec[col] += m.idf[col]
			hit = true
		}
	}
	if !hit {
		return nil
	}
	normalize(vec)
	return vec
}

// tokenize lowercases, strips punctuation, removes English stopwords,
// and emits unigrams plus adjacent bigrams.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_')
	})

	filtered := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) > 1 && !stopWords[word] {
			filtered = append(filtered, word)
		}
	}

	terms := make([]string, 0, len(filtered)*2)
	terms = append(terms, filtered...)
	for i := 0; i+1 < len(filtered); i++ {
		terms = append(terms, filtered[i]+" "+filtered[i+1])
	}

	return terms
}

// stopWords is the English stoplist applied before vectorization.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "but": true, "by": true, "can": true,
	"could": true, "did": true, "do": true, "does": true, "for": true,
	"from": true, "had": true, "has": true, "have": true, "how": true,
	"i": true, "if": true, "in": true, "is": true, "it": true, "its": true,
	"may": true, "might": true, "must": true, "not": true, "of": true,
	"on": true, "or": true, "shall": true, "should": true, "that": true,
	"the": true, "then": true, "these": true, "this": true, "those": true,
	"to": true, "was": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "who": true, "why": true, "will": true,
	"with": true, "would": true, "you": true, "your": true,
}

// normalize scales a vector to unit length in place.
func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// cosine computes the cosine similarity of two l2-normalized vectors.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
