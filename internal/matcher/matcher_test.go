package matcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veritaslegal/lexdraft-go/internal/embedder"
	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/oracle"
	"github.com/veritaslegal/lexdraft-go/internal/retry"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

type fakeCompleter struct {
	result map[string]any
	err    error
	calls  int
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _, _ string) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeFinder struct {
	candidates []ScoredTemplate
	err        error
}

func (f *fakeFinder) FindCandidates(_ context.Context, _ []float32, topK int) ([]ScoredTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.candidates) > topK {
		return f.candidates[:topK], nil
	}
	return f.candidates, nil
}

func tpl(id, title string) *model.Template {
	return &model.Template{ID: "row-" + id, TemplateID: id, Title: title, Embedding: []float32{1, 0}}
}

func candidates() []ScoredTemplate {
	return []ScoredTemplate{
		{Template: tpl("tpl_notice_to_insurer", "Notice to Insurer"), Score: 0.91},
		{Template: tpl("tpl_demand_letter", "Demand Letter"), Score: 0.74},
		{Template: tpl("tpl_lease_agreement", "Lease Agreement"), Score: 0.40},
	}
}

func newMatcher(t *testing.T, comp *fakeCompleter, finder *fakeFinder) *Matcher {
	t.Helper()
	m, err := New(&fakeEmbedder{vec: []float32{1, 0}}, comp, finder, Config{})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMatch_Accepted(t *testing.T) {
	t.Parallel()

	comp := &fakeCompleter{result: map[string]any{
		"best_match_id": "tpl_notice_to_insurer",
		"confidence":    0.85,
		"justification": "Insurance notice matches the request",
		"alternatives":  []any{"tpl_demand_letter", "tpl_lease_agreement"},
	}}
	m := newMatcher(t, comp, &fakeFinder{candidates: candidates()})

	res, err := m.Match(context.Background(), "notice to my insurer about a car accident")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.State != StateAccepted {
		t.Fatalf("state = %s, want accepted (reason: %s)", res.State, res.Reason)
	}
	if res.Template.TemplateID != "tpl_notice_to_insurer" {
		t.Errorf("template = %s", res.Template.TemplateID)
	}
	if res.Confidence != 0.85 {
		t.Errorf("confidence = %v", res.Confidence)
	}
	if len(res.Alternatives) != 2 {
		t.Errorf("alternatives = %d, want 2", len(res.Alternatives))
	}
}

func TestMatch_RejectsBelowThreshold(t *testing.T) {
	t.Parallel()

	comp := &fakeCompleter{result: map[string]any{
		"best_match_id": "tpl_notice_to_insurer",
		"confidence":    0.4,
		"justification": "weak match",
	}}
	m := newMatcher(t, comp, &fakeFinder{candidates: candidates()})

	res, err := m.Match(context.Background(), "something unrelated")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.State != StateRejected {
		t.Fatalf("state = %s, want rejected", res.State)
	}
	if res.Template != nil {
		t.Error("rejected result must not carry a template")
	}
}

func TestMatch_NoCandidates(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, &fakeCompleter{}, &fakeFinder{})
	res, err := m.Match(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.State != StateRejected || res.Reason != "no templates" {
		t.Errorf("got state=%s reason=%q", res.State, res.Reason)
	}
}

func TestMatch_FallbackOnOracleFailure(t *testing.T) {
	t.Parallel()

	comp := &fakeCompleter{err: errors.New("oracle exploded")}
	m := newMatcher(t, comp, &fakeFinder{candidates: candidates()})

	res, err := m.Match(context.Background(), "insurance notice")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.State != StateAccepted {
		t.Fatalf("state = %s, want accepted via fallback (reason: %s)", res.State, res.Reason)
	}
	if res.Template.TemplateID != "tpl_notice_to_insurer" {
		t.Errorf("fallback should pick top-ranked candidate, got %s", res.Template.TemplateID)
	}
	if res.Confidence != 0.91 {
		t.Errorf("fallback confidence = %v, want raw similarity 0.91", res.Confidence)
	}
	if res.Justification != fallbackJustification {
		t.Errorf("justification = %q", res.Justification)
	}
	if len(res.Alternatives) != 2 {
		t.Fatalf("alternatives = %d, want remaining candidates in rank order", len(res.Alternatives))
	}
	if res.Alternatives[0].TemplateID != "tpl_demand_letter" {
		t.Errorf("alternatives out of rank order: %s", res.Alternatives[0].TemplateID)
	}
}

func TestMatch_FallbackClampsConfidence(t *testing.T) {
	t.Parallel()

	over := []ScoredTemplate{{Template: tpl("tpl_x", "X"), Score: 1.0000002}}
	m := newMatcher(t, &fakeCompleter{err: errors.New("boom")}, &fakeFinder{candidates: over})

	res, err := m.Match(context.Background(), "q")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Confidence > 1 {
		t.Errorf("confidence %v not clamped to [0,1]", res.Confidence)
	}
}

func TestMatch_RejectsUnresolvableBestMatch(t *testing.T) {
	t.Parallel()

	comp := &fakeCompleter{result: map[string]any{
		"best_match_id": "tpl_hallucinated",
		"confidence":    0.95,
	}}
	m := newMatcher(t, comp, &fakeFinder{candidates: candidates()})

	res, err := m.Match(context.Background(), "q")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.State != StateRejected {
		t.Errorf("state = %s, want rejected for unresolvable id", res.State)
	}
}

func TestMatch_NoneBestMatchRejects(t *testing.T) {
	t.Parallel()

	comp := &fakeCompleter{result: map[string]any{
		"best_match_id": "none",
		"confidence":    0.9,
	}}
	m := newMatcher(t, comp, &fakeFinder{candidates: candidates()})

	res, err := m.Match(context.Background(), "q")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.State != StateRejected {
		t.Errorf("state = %s, want rejected when oracle answers none", res.State)
	}
}

func TestMatch_AlternativesCappedAtTwo(t *testing.T) {
	t.Parallel()

	comp := &fakeCompleter{result: map[string]any{
		"best_match_id": "tpl_notice_to_insurer",
		"confidence":    0.9,
		"alternatives":  []any{"tpl_demand_letter", "tpl_lease_agreement", "tpl_demand_letter"},
	}}
	m := newMatcher(t, comp, &fakeFinder{candidates: candidates()})

	res, err := m.Match(context.Background(), "q")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(res.Alternatives) > 2 {
		t.Errorf("alternatives = %d, want at most 2", len(res.Alternatives))
	}
}

func TestMatch_EmbedFailureAborts(t *testing.T) {
	t.Parallel()

	m, err := New(&fakeEmbedder{err: errors.New("quota exceeded")}, &fakeCompleter{}, &fakeFinder{candidates: candidates()}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Match(context.Background(), "q"); err == nil {
		t.Fatal("embedding failure must abort the match")
	}
}

// recoveringEmbedder fails once with a transient provider error, then serves
// the fixed vector.
type recoveringEmbedder struct {
	calls int
}

func (f *recoveringEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls == 1 {
		return nil, oracle.Classify("embed", errors.New("rate limit exceeded"))
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func TestMatch_TransientEmbedFailureIsRetried(t *testing.T) {
	t.Parallel()

	inner := &recoveringEmbedder{}
	emb := embedder.WithRetry(inner, retry.Policy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})
	comp := &fakeCompleter{result: map[string]any{
		"best_match_id": "tpl_notice_to_insurer",
		"confidence":    0.9,
		"justification": "closest title",
	}}

	m, err := New(emb, comp, &fakeFinder{candidates: candidates()}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Match(context.Background(), "notice to my insurer")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.State != StateAccepted {
		t.Errorf("state = %v, want accepted", res.State)
	}
	if inner.calls != 2 {
		t.Errorf("embed calls = %d, want 2 (one transient failure, one success)", inner.calls)
	}
}
