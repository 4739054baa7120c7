// Package matcher picks the best template for a user query. It is a two-stage
// pipeline: cheap vector retrieval narrows all templates down to a handful of
// candidates, then a classification oracle adjudicates among them. When the
// oracle fails, a deterministic similarity fallback keeps matching available.
package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/veritaslegal/lexdraft-go/internal/embedder"
	"github.com/veritaslegal/lexdraft-go/internal/logging"
	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/oracle"
)

// Defaults for the matching stage.
const (
	DefaultConfidenceThreshold = 0.6
	DefaultTopK                = 3

	// maxAlternatives caps the alternatives list on an accepted match.
	maxAlternatives = 2

	fallbackJustification = "Selected based on highest similarity score"
)

const classifySystemPrompt = `You are a legal template classifier. Given a user's request and candidate templates, identify the best match.

Rules:
1. Return ONLY valid JSON
2. Consider: doc_type, jurisdiction, similarity_tags, and title
3. Return confidence score (0.0-1.0)
4. If confidence < 0.6, return "none" as best_match_id
5. Provide brief justification (1 sentence)
6. List alternative template IDs in order of relevance`

// State names the stages of one match request. Every request ends in
// StateAccepted or StateRejected.
type State string

const (
	StateNoCandidates State = "no_candidates"
	StateRanked       State = "ranked"
	StateClassified   State = "classified"
	StateAccepted     State = "accepted"
	StateRejected     State = "rejected"
)

// ScoredTemplate is a candidate template with its similarity to the query.
type ScoredTemplate struct {
	Template *model.Template
	Score    float64
}

// CandidateFinder retrieves the templates most similar to a query vector.
// Implementations must only return templates that have embeddings and must
// order results by descending similarity.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, queryVector []float32, topK int) ([]ScoredTemplate, error)
}

// Result is the outcome of one match request. Template is non-nil only in
// StateAccepted; Reason explains a rejection.
type Result struct {
	State         State             `json:"state"`
	Template      *model.Template   `json:"template,omitempty"`
	Confidence    float64           `json:"confidence"`
	Justification string            `json:"justification,omitempty"`
	Alternatives  []*model.Template `json:"alternatives,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}

// Config holds matcher tuning. Zero values select the defaults.
type Config struct {
	ConfidenceThreshold float64
	TopK                int
}

// Matcher orchestrates embed -> rank -> classify for one query at a time.
type Matcher struct {
	embedder  embedder.Embedder
	completer oracle.Completer
	finder    CandidateFinder
	threshold float64
	topK      int
}

// New constructs a Matcher. All three collaborators are required.
func New(emb embedder.Embedder, completer oracle.Completer, finder CandidateFinder, cfg Config) (*Matcher, error) {
	if emb == nil || completer == nil || finder == nil {
		return nil, fmt.Errorf("matcher: embedder, completer and finder must not be nil")
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Matcher{
		embedder:  emb,
		completer: completer,
		finder:    finder,
		threshold: cfg.ConfidenceThreshold,
		topK:      cfg.TopK,
	}, nil
}

// classification is the JSON shape the oracle returns.
type classification struct {
	BestMatchID   string   `json:"best_match_id"`
	Confidence    float64  `json:"confidence"`
	Justification string   `json:"justification"`
	Alternatives  []string `json:"alternatives"`
}

// candidateSummary is what the classification oracle sees per candidate.
type candidateSummary struct {
	TemplateID      string   `json:"template_id"`
	Title           string   `json:"title"`
	DocType         string   `json:"doc_type"`
	Jurisdiction    string   `json:"jurisdiction"`
	SimilarityTags  []string `json:"similarity_tags"`
	SimilarityScore float64  `json:"similarity_score"`
}

// Match runs the full pipeline for one query.
//
// An embedding or retrieval failure aborts the request. A classification
// failure does not: the matcher falls back to the highest-similarity
// candidate with its raw cosine score as the confidence. The fallback score
// is clamped to [0, 1] — cosine similarity is not a calibrated probability,
// and the threshold comparison expects one.
func (m *Matcher) Match(ctx context.Context, query string) (*Result, error) {
	log := logging.FromContext(ctx)

	queryVec, err := embedder.EmbedOne(ctx, m.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("matcher: embed query: %w", err)
	}

	candidates, err := m.finder.FindCandidates(ctx, queryVec, m.topK)
	if err != nil {
		return nil, fmt.Errorf("matcher: find candidates: %w", err)
	}
	if len(candidates) == 0 {
		log.Info("matcher: no matchable templates")
		return &Result{State: StateRejected, Reason: "no templates"}, nil
	}

	cls, usedFallback := m.classify(ctx, query, candidates)
	if usedFallback {
		log.Warn("matcher: classification failed, using similarity fallback",
			slog.String("best_match_id", cls.BestMatchID),
			slog.Float64("confidence", cls.Confidence),
		)
	}

	if cls.Confidence < m.threshold {
		log.Info("matcher: confidence below threshold",
			slog.Float64("confidence", cls.Confidence),
			slog.Float64("threshold", m.threshold),
		)
		return &Result{
			State:      StateRejected,
			Confidence: cls.Confidence,
			Reason:     fmt.Sprintf("confidence %.2f below threshold %.2f", cls.Confidence, m.threshold),
		}, nil
	}

	best := resolve(candidates, cls.BestMatchID)
	if best == nil {
		return &Result{
			State:      StateRejected,
			Confidence: cls.Confidence,
			Reason:     fmt.Sprintf("best match %q does not resolve to a known template", cls.BestMatchID),
		}, nil
	}

	var alternatives []*model.Template
	for _, altID := range cls.Alternatives {
		if len(alternatives) == maxAlternatives {
			break
		}
		if altID == best.TemplateID {
			continue
		}
		if alt := resolve(candidates, altID); alt != nil {
			alternatives = append(alternatives, alt)
		}
	}

	log.Info("matcher: accepted",
		slog.String("template_id", best.TemplateID),
		slog.Float64("confidence", cls.Confidence),
		slog.Int("alternatives", len(alternatives)),
	)
	return &Result{
		State:         StateAccepted,
		Template:      best,
		Confidence:    cls.Confidence,
		Justification: cls.Justification,
		Alternatives:  alternatives,
	}, nil
}

// classify asks the oracle to adjudicate among candidates. Any failure —
// transport, exhausted retries, unparsable output — produces the
// deterministic fallback instead of an error. The second return reports
// whether the fallback was used.
func (m *Matcher) classify(ctx context.Context, query string, candidates []ScoredTemplate) (*classification, bool) {
	summaries := make([]candidateSummary, len(candidates))
	for i, c := range candidates {
		summaries[i] = candidateSummary{
			TemplateID:      c.Template.TemplateID,
			Title:           c.Template.Title,
			DocType:         c.Template.DocType,
			Jurisdiction:    c.Template.Jurisdiction,
			SimilarityTags:  c.Template.SimilarityTags,
			SimilarityScore: c.Score,
		}
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fallback(candidates), true
	}

	userPrompt := fmt.Sprintf(`User request: %q

Candidate templates:
%s

Return JSON:
{
  "best_match_id": "tpl_incident_notice_v1",
  "confidence": 0.85,
  "justification": "This template matches the user's request for an insurance notice in India",
  "alternatives": ["tpl_id_2", "tpl_id_3"]
}`, query, data)

	obj, err := m.completer.CompleteJSON(ctx, classifySystemPrompt, userPrompt)
	if err != nil {
		return fallback(candidates), true
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return fallback(candidates), true
	}
	var cls classification
	if err := json.Unmarshal(raw, &cls); err != nil {
		return fallback(candidates), true
	}
	return &cls, false
}

// fallback builds the deterministic classification used when the oracle
// fails: the top-ranked candidate wins with its clamped similarity as the
// confidence, and the remaining candidates become alternatives in rank order.
func fallback(candidates []ScoredTemplate) *classification {
	cls := &classification{
		BestMatchID:   candidates[0].Template.TemplateID,
		Confidence:    clamp01(candidates[0].Score),
		Justification: fallbackJustification,
	}
	for _, c := range candidates[1:] {
		cls.Alternatives = append(cls.Alternatives, c.Template.TemplateID)
	}
	return cls
}

// resolve returns the candidate template with the given template_id, or nil.
// The oracle only ever sees candidate ids, so resolution is scoped to the
// candidate set — a hallucinated id rejects the match rather than pulling in
// an unranked template.
func resolve(candidates []ScoredTemplate, templateID string) *model.Template {
	if templateID == "" || templateID == "none" {
		return nil
	}
	for _, c := range candidates {
		if c.Template.TemplateID == templateID {
			return c.Template
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
