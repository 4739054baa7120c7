package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/veritaslegal/lexdraft-go/internal/matcher"
	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/questions"
)

const testBody = `---
template_id: tpl_insurer_notice
title: Notice to Insurer
---

<!-- UOIONHHC -->

Date: {{incident_date}}

Dear {{insurer_name}},

I write regarding policy number {{policy_number}}.

Yours faithfully,
{{claimant_name}}`

func testTemplate() *model.Template {
	return &model.Template{
		ID:         "uuid-1",
		TemplateID: "tpl_insurer_notice",
		Title:      "Notice to Insurer",
		DocType:    "Notice",
		Body:       testBody,
		Variables: []model.Variable{
			{Key: "incident_date", Label: "Incident Date", Required: true, Dtype: "date"},
			{Key: "insurer_name", Label: "Insurer Name", Required: true},
			{Key: "policy_number", Label: "Policy Number", Required: true},
			{Key: "claimant_name", Label: "Claimant Name", Required: false},
		},
	}
}

type fakeStore struct {
	templates map[string]*model.Template
	instances map[string]*model.DraftInstance
	nextID    int
}

func newFakeStore(templates ...*model.Template) *fakeStore {
	s := &fakeStore{
		templates: map[string]*model.Template{},
		instances: map[string]*model.DraftInstance{},
	}
	for _, t := range templates {
		s.templates[t.TemplateID] = t
	}
	return s
}

func (s *fakeStore) GetTemplate(_ context.Context, templateID string) (*model.Template, error) {
	t, ok := s.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("fake: template %s: %w", templateID, model.ErrNotFound)
	}
	return t, nil
}

func (s *fakeStore) ListTemplates(_ context.Context) ([]*model.Template, error) {
	var out []*model.Template
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) CreateInstance(_ context.Context, inst *model.DraftInstance) error {
	s.nextID++
	inst.ID = fmt.Sprintf("inst-%d", s.nextID)
	if inst.DraftNumber == 0 {
		inst.DraftNumber = 1
	}
	if inst.Answers == nil {
		inst.Answers = map[string]any{}
	}
	cp := *inst
	s.instances[inst.ID] = &cp
	return nil
}

func (s *fakeStore) GetInstance(_ context.Context, id string) (*model.DraftInstance, error) {
	inst, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("fake: instance %s: %w", id, model.ErrNotFound)
	}
	cp := *inst
	return &cp, nil
}

func (s *fakeStore) UpdateInstance(_ context.Context, inst *model.DraftInstance) error {
	if _, ok := s.instances[inst.ID]; !ok {
		return fmt.Errorf("fake: instance %s: %w", inst.ID, model.ErrNotFound)
	}
	cp := *inst
	s.instances[inst.ID] = &cp
	return nil
}

type fakeMatcher struct {
	result *matcher.Result
	err    error
	query  string
}

func (f *fakeMatcher) Match(_ context.Context, query string) (*matcher.Result, error) {
	f.query = query
	return f.result, f.err
}

// fakeCompleter scripts oracle replies for the question generator. An error
// entry makes both prefill and generation fall back.
type fakeCompleter struct {
	results []map[string]any
	errs    []error
	calls   int
}

func (f *fakeCompleter) CompleteJSON(context.Context, string, string) (map[string]any, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.results) {
		return nil, errors.New("fake: no scripted reply")
	}
	return f.results[i], nil
}

func newTestService(t *testing.T, store Store, m TemplateMatcher, completer *fakeCompleter) *Service {
	t.Helper()
	gen, err := questions.New(completer)
	if err != nil {
		t.Fatalf("questions.New: %v", err)
	}
	svc, err := New(store, m, gen)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestStart_DirectTemplate(t *testing.T) {
	t.Parallel()

	store := newFakeStore(
		testTemplate(),
		&model.Template{ID: "uuid-2", TemplateID: "tpl_affidavit", Title: "Affidavit", DocType: "Affidavit"},
	)
	// No user query, so prefill is skipped and generation falls back.
	completer := &fakeCompleter{errs: []error{errors.New("down")}}

	svc := newTestService(t, store, &fakeMatcher{}, completer)

	res, err := svc.Start(context.Background(), StartRequest{TemplateID: "tpl_insurer_notice"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.Confidence)
	}
	if res.Justification != "Using selected template: Notice to Insurer" {
		t.Errorf("justification = %q", res.Justification)
	}
	if len(res.MissingVariables) != 4 {
		t.Errorf("missing = %v, want all 4 variables", res.MissingVariables)
	}
	if len(res.Questions) != 4 {
		t.Fatalf("got %d questions", len(res.Questions))
	}
	if res.Questions[0].Question != "Please provide incident date" {
		t.Errorf("fallback question = %q", res.Questions[0].Question)
	}
	if len(res.Alternatives) != 1 || res.Alternatives[0].TemplateID != "tpl_affidavit" {
		t.Errorf("alternatives = %+v", res.Alternatives)
	}
	inst, err := store.GetInstance(context.Background(), res.InstanceID)
	if err != nil {
		t.Fatalf("instance not persisted: %v", err)
	}
	if inst.UserQuery != "Load template: Notice to Insurer" {
		t.Errorf("user query = %q", inst.UserQuery)
	}
}

func TestStart_DirectTemplateNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeStore(), &fakeMatcher{}, &fakeCompleter{})

	_, err := svc.Start(context.Background(), StartRequest{TemplateID: "tpl_missing"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestStart_QueryMatchWithPrefill(t *testing.T) {
	t.Parallel()

	tpl := testTemplate()
	store := newFakeStore(tpl)
	m := &fakeMatcher{result: &matcher.Result{
		State:         matcher.StateAccepted,
		Template:      tpl,
		Confidence:    0.85,
		Justification: "doc_type and jurisdiction align",
		Alternatives: []*model.Template{
			{TemplateID: "tpl_affidavit", Title: "Affidavit", DocType: "Affidavit"},
		},
	}}
	completer := &fakeCompleter{results: []map[string]any{
		// prefill, then question generation
		{"filled_variables": map[string]any{"incident_date": "2025-07-12", "unknown_key": "x"}},
		{"questions": []any{
			map[string]any{"variable_key": "insurer_name", "question": "Which insurer should be notified?"},
			map[string]any{"variable_key": "policy_number", "question": "What is the policy number?"},
			map[string]any{"variable_key": "claimant_name", "question": "Who is the claimant?"},
		}},
	}}

	svc := newTestService(t, store, m, completer)

	res, err := svc.Start(context.Background(), StartRequest{UserQuery: "notice to insurer about accident on 2025-07-12"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if m.query != "notice to insurer about accident on 2025-07-12" {
		t.Errorf("matcher query = %q", m.query)
	}
	if res.Confidence != 0.85 {
		t.Errorf("confidence = %v", res.Confidence)
	}
	if got := res.PreFilled["incident_date"]; got != "2025-07-12" {
		t.Errorf("prefilled incident_date = %v", got)
	}
	if _, ok := res.PreFilled["unknown_key"]; ok {
		t.Error("unknown prefill key was not dropped")
	}
	if len(res.MissingVariables) != 3 {
		t.Errorf("missing = %v", res.MissingVariables)
	}
	if len(res.Questions) != 3 {
		t.Errorf("got %d questions", len(res.Questions))
	}
	if len(res.Alternatives) != 1 || res.Alternatives[0].Title != "Affidavit" {
		t.Errorf("alternatives = %+v", res.Alternatives)
	}
	if !strings.Contains(res.Message, "85% confidence") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestStart_QueryRejected(t *testing.T) {
	t.Parallel()

	m := &fakeMatcher{result: &matcher.Result{
		State:  matcher.StateRejected,
		Reason: "confidence 0.40 below threshold 0.60",
	}}
	svc := newTestService(t, newFakeStore(testTemplate()), m, &fakeCompleter{})

	_, err := svc.Start(context.Background(), StartRequest{UserQuery: "something vague"})
	var noMatch *NoMatchError
	if !errors.As(err, &noMatch) {
		t.Fatalf("want NoMatchError, got %v", err)
	}
	if !strings.Contains(noMatch.Reason, "below threshold") {
		t.Errorf("reason = %q", noMatch.Reason)
	}
}

func TestStart_EmptyRequestRejected(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeStore(), &fakeMatcher{}, &fakeCompleter{})

	_, err := svc.Start(context.Background(), StartRequest{})
	if !model.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func startedInstance(t *testing.T, store *fakeStore, answers map[string]any) string {
	t.Helper()
	inst := &model.DraftInstance{TemplateID: "tpl_insurer_notice", Answers: answers}
	if err := store.CreateInstance(context.Background(), inst); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	return inst.ID
}

func TestFinalize_RendersAndPersists(t *testing.T) {
	t.Parallel()

	store := newFakeStore(testTemplate())
	id := startedInstance(t, store, map[string]any{"incident_date": "2025-07-12"})

	svc := newTestService(t, store, &fakeMatcher{}, &fakeCompleter{})

	res, err := svc.Finalize(context.Background(), id, map[string]any{
		"insurer_name":  "Acme General Insurance",
		"policy_number": "302786965",
		"claimant_name": "Rajesh Kumar",
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.DraftNumber != 1 {
		t.Errorf("draft number = %d", res.DraftNumber)
	}
	for _, want := range []string{"2025-07-12", "Acme General Insurance", "302786965", "Rajesh Kumar"} {
		if !strings.Contains(res.DraftText, want) {
			t.Errorf("draft missing %q:\n%s", want, res.DraftText)
		}
	}
	if strings.Contains(res.DraftText, "{{") {
		t.Errorf("draft still has placeholders:\n%s", res.DraftText)
	}
	if strings.Contains(res.DraftText, "UOIONHHC") {
		t.Error("tracking marker leaked into draft")
	}
	if strings.Contains(res.DraftText, "template_id:") {
		t.Error("front matter leaked into draft")
	}

	inst, err := store.GetInstance(context.Background(), id)
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if inst.DraftText != res.DraftText {
		t.Error("draft text was not persisted")
	}
	if inst.Answers["incident_date"] != "2025-07-12" {
		t.Error("prefilled answer lost during merge")
	}
}

func TestFinalize_MissingRequiredRejected(t *testing.T) {
	t.Parallel()

	store := newFakeStore(testTemplate())
	id := startedInstance(t, store, nil)

	svc := newTestService(t, store, &fakeMatcher{}, &fakeCompleter{})

	_, err := svc.Finalize(context.Background(), id, map[string]any{
		"incident_date": "2025-07-12",
		"insurer_name":  "Acme",
	})
	if !model.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "policy_number") {
		t.Errorf("error does not name the missing key: %v", err)
	}
	if strings.Contains(err.Error(), "claimant_name") {
		t.Errorf("optional variable reported as required: %v", err)
	}
}

func TestFinalize_TemplateWithoutVariablesRejected(t *testing.T) {
	t.Parallel()

	bare := &model.Template{ID: "uuid-3", TemplateID: "tpl_article", Title: "Article", Body: "Just prose."}
	store := newFakeStore(bare)
	inst := &model.DraftInstance{TemplateID: "tpl_article"}
	if err := store.CreateInstance(context.Background(), inst); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	svc := newTestService(t, store, &fakeMatcher{}, &fakeCompleter{})

	_, err := svc.Finalize(context.Background(), inst.ID, nil)
	if !model.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestFinalize_UnknownInstance(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeStore(testTemplate()), &fakeMatcher{}, &fakeCompleter{})

	_, err := svc.Finalize(context.Background(), "inst-404", nil)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRegenerate_BumpsDraftNumber(t *testing.T) {
	t.Parallel()

	store := newFakeStore(testTemplate())
	id := startedInstance(t, store, map[string]any{
		"incident_date": "2025-07-12",
		"insurer_name":  "Acme General Insurance",
		"policy_number": "302786965",
		"claimant_name": "Rajesh Kumar",
	})

	svc := newTestService(t, store, &fakeMatcher{}, &fakeCompleter{})

	res, err := svc.Regenerate(context.Background(), id)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if res.DraftNumber != 2 {
		t.Errorf("draft number = %d, want 2", res.DraftNumber)
	}
	if !strings.Contains(res.DraftText, "Acme General Insurance") {
		t.Errorf("draft missing answer:\n%s", res.DraftText)
	}

	res, err = svc.Regenerate(context.Background(), id)
	if err != nil {
		t.Fatalf("second Regenerate: %v", err)
	}
	if res.DraftNumber != 3 {
		t.Errorf("draft number = %d, want 3", res.DraftNumber)
	}
}

func TestEditQuestions_CoversAllVariables(t *testing.T) {
	t.Parallel()

	store := newFakeStore(testTemplate())
	id := startedInstance(t, store, map[string]any{"incident_date": "2025-07-12"})

	svc := newTestService(t, store, &fakeMatcher{}, &fakeCompleter{})

	res, err := svc.EditQuestions(context.Background(), id)
	if err != nil {
		t.Fatalf("EditQuestions: %v", err)
	}
	if len(res.Questions) != 4 {
		t.Errorf("got %d questions, want 4", len(res.Questions))
	}
	if res.PreFilled["incident_date"] != "2025-07-12" {
		t.Errorf("prefilled = %v", res.PreFilled)
	}
	if res.Message != "Edit mode: 4 variables available" {
		t.Errorf("message = %q", res.Message)
	}
}
