// Package rank scores embedding vectors against a query vector by cosine
// similarity and returns the best candidates in order. It is the pure math
// core of template matching — no I/O, no provider calls.
package rank

import (
	"fmt"
	"math"
	"sort"
)

// Candidate pairs an identifier with its embedding vector.
type Candidate struct {
	ID     string
	Vector []float32
}

// Scored is a ranked candidate with its cosine similarity to the query.
type Scored struct {
	ID    string
	Score float64
}

// Cosine returns the cosine similarity of two vectors. It returns an error
// when the vectors differ in length or either has zero magnitude — a
// zero-magnitude embedding means the upstream embedder misbehaved, and
// silently scoring it 0 would let a broken candidate slip through ranking.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("rank: vector length mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("rank: empty vectors")
	}

	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}
	if magA == 0 || magB == 0 {
		return 0, fmt.Errorf("rank: zero-magnitude vector")
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}

// Rank scores every candidate against the query vector and returns up to
// topK results in non-increasing score order. Ties preserve the candidates'
// input order, so ranking is deterministic. topK <= 0 means all candidates.
func Rank(query []float32, candidates []Candidate, topK int) ([]Scored, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		score, err := Cosine(query, c.Vector)
		if err != nil {
			return nil, fmt.Errorf("rank: candidate %s: %w", c.ID, err)
		}
		scored = append(scored, Scored{ID: c.ID, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
