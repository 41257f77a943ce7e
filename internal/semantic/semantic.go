// Package semantic resolves an utterance to the closest configured phrase by
// embedding cosine similarity.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch reports vectors of different lengths.
var ErrDimensionMismatch = errors.New("embedding dimensions differ")

// Embedder is the text -> vector collaborator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Cosine returns the cosine similarity of a and b. Zero vectors score 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Result is the best-scoring phrase for an utterance.
type Result struct {
	Phrase string
	Score  float64
}

// Matcher holds one precomputed vector per phrase.
type Matcher struct {
	embedder  Embedder
	threshold float64
	phrases   []string
	vectors   [][]float32
}

// NewMatcher embeds every phrase once. Phrase order fixes the tie-break.
func NewMatcher(ctx context.Context, embedder Embedder, phrases []string, threshold float64) (*Matcher, error) {
	if embedder == nil {
		return nil, errors.New("semantic matcher requires an embedder")
	}
	m := &Matcher{
		embedder:  embedder,
		threshold: threshold,
		phrases:   append([]string(nil), phrases...),
		vectors:   make([][]float32, 0, len(phrases)),
	}
	for _, phrase := range m.phrases {
		vector, err := embedder.Embed(ctx, phrase)
		if err != nil {
			return nil, fmt.Errorf("embed phrase %q: %w", phrase, err)
		}
		m.vectors = append(m.vectors, vector)
	}
	return m, nil
}

// Threshold returns the minimum score a match must exceed.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Best scores utterance against every phrase and returns the first maximum,
// without applying the threshold. ok is false when there are no phrases.
func (m *Matcher) Best(ctx context.Context, utterance string) (Result, bool, error) {
	if len(m.phrases) == 0 {
		return Result{}, false, nil
	}
	target, err := m.embedder.Embed(ctx, utterance)
	if err != nil {
		return Result{}, false, fmt.Errorf("embed utterance: %w", err)
	}

	best := Result{Score: math.Inf(-1)}
	found := false
	for i, vector := range m.vectors {
		score, err := Cosine(target, vector)
		if err != nil {
			return Result{}, false, fmt.Errorf("score phrase %q: %w", m.phrases[i], err)
		}
		if !found || score > best.Score {
			best = Result{Phrase: m.phrases[i], Score: score}
			found = true
		}
	}
	return best, found, nil
}

// Match returns the best phrase only when its score strictly exceeds the threshold.
func (m *Matcher) Match(ctx context.Context, utterance string) (Result, bool, error) {
	best, ok, err := m.Best(ctx, utterance)
	if err != nil || !ok {
		return Result{}, false, err
	}
	if best.Score <= m.threshold {
		return best, false, nil
	}
	return best, true, nil
}
