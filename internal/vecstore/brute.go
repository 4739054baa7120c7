// Package vecstore provides the matcher's candidate retrieval backends: a
// default brute-force scan over the SQLite store and an optional
// Qdrant-backed index for larger template collections.
package vecstore

import (
	"context"
	"fmt"

	"github.com/veritaslegal/lexdraft-go/internal/matcher"
	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/rank"
)

// TemplateLister supplies the matchable templates for brute-force ranking.
type TemplateLister interface {
	ListMatchable(ctx context.Context) ([]*model.Template, error)
}

// BruteForceFinder ranks every embedded template against the query in
// memory. Template collections are small (tens to low hundreds), so a full
// scan per query is cheaper than maintaining an index.
type BruteForceFinder struct {
	lister TemplateLister
}

// NewBruteForceFinder constructs a BruteForceFinder over the given lister.
func NewBruteForceFinder(lister TemplateLister) (*BruteForceFinder, error) {
	if lister == nil {
		return nil, fmt.Errorf("vecstore: lister must not be nil")
	}
	return &BruteForceFinder{lister: lister}, nil
}

// FindCandidates returns the topK templates most similar to the query
// vector, descending by cosine similarity.
func (f *BruteForceFinder) FindCandidates(ctx context.Context, queryVector []float32, topK int) ([]matcher.ScoredTemplate, error) {
	templates, err := f.lister.ListMatchable(ctx)
	if err != nil {
		return nil, fmt.Errorf("vecstore: list matchable: %w", err)
	}
	if len(templates) == 0 {
		return nil, nil
	}

	byID := make(map[string]*model.Template, len(templates))
	candidates := make([]rank.Candidate, 0, len(templates))
	for _, t := range templates {
		byID[t.TemplateID] = t
		candidates = append(candidates, rank.Candidate{ID: t.TemplateID, Vector: t.Embedding})
	}

	scored, err := rank.Rank(queryVector, candidates, topK)
	if err != nil {
		return nil, fmt.Errorf("vecstore: rank: %w", err)
	}

	out := make([]matcher.ScoredTemplate, len(scored))
	for i, s := range scored {
		out[i] = matcher.ScoredTemplate{Template: byID[s.ID], Score: s.Score}
	}
	return out, nil
}
