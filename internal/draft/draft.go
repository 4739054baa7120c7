// Package draft runs the drafting lifecycle: match or select a template,
// prefill answers from the user's query, ask for what is missing, render
// the draft, and regenerate it on demand.
package draft

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/veritaslegal/lexdraft-go/internal/logging"
	"github.com/veritaslegal/lexdraft-go/internal/matcher"
	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/questions"
	"github.com/veritaslegal/lexdraft-go/internal/renderer"
)

// maxAlternatives caps how many sibling templates a draft response offers.
const maxAlternatives = 2

// Store is the persistence surface the draft service needs.
type Store interface {
	GetTemplate(ctx context.Context, templateID string) (*model.Template, error)
	ListTemplates(ctx context.Context) ([]*model.Template, error)
	CreateInstance(ctx context.Context, inst *model.DraftInstance) error
	GetInstance(ctx context.Context, id string) (*model.DraftInstance, error)
	UpdateInstance(ctx context.Context, inst *model.DraftInstance) error
}

// TemplateMatcher resolves a free-form query to a template.
type TemplateMatcher interface {
	Match(ctx context.Context, query string) (*matcher.Result, error)
}

// NoMatchError reports that no template cleared the confidence bar for a
// query. It maps to a not-found response at the API layer.
type NoMatchError struct {
	Reason string
}

func (e *NoMatchError) Error() string {
	return "draft: no suitable template: " + e.Reason
}

// Alternative is a sibling template the user may pick instead.
type Alternative struct {
	TemplateID string `json:"template_id"`
	Title      string `json:"title"`
	DocType    string `json:"doc_type,omitempty"`
}

// StartRequest begins a draft either from an explicit template choice or
// from a free-form query. TemplateID wins when both are set.
type StartRequest struct {
	TemplateID string `json:"template_id,omitempty"`
	UserQuery  string `json:"user_query,omitempty"`
}

// StartResult carries everything the caller needs to collect answers.
type StartResult struct {
	InstanceID       string               `json:"instance_id"`
	TemplateID       string               `json:"template_id"`
	TemplateTitle    string               `json:"template_title"`
	Confidence       float64              `json:"confidence"`
	Justification    string               `json:"justification,omitempty"`
	PreFilled        map[string]any       `json:"pre_filled_variables"`
	MissingVariables []string             `json:"missing_variables"`
	Questions        []questions.Question `json:"questions"`
	Alternatives     []Alternative        `json:"alternatives,omitempty"`
	Message          string               `json:"message"`
}

// Result is a rendered draft.
type Result struct {
	InstanceID  string `json:"instance_id"`
	DraftText   string `json:"draft_md"`
	DraftNumber int    `json:"draft_number"`
	Message     string `json:"message"`
}

// Service orchestrates the draft lifecycle on top of the store, the
// matcher, and the question generator.
type Service struct {
	store     Store
	matcher   TemplateMatcher
	questions *questions.Generator
}

// New constructs a Service. All collaborators are required.
func New(store Store, m TemplateMatcher, q *questions.Generator) (*Service, error) {
	if store == nil || m == nil || q == nil {
		return nil, fmt.Errorf("draft: store, matcher and question generator must not be nil")
	}
	return &Service{store: store, matcher: m, questions: q}, nil
}

// Start resolves a template for the request, prefills what the query gives
// away, creates a draft instance, and returns the questions still open.
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logging.FromContext(ctx)

	var (
		t             *model.Template
		confidence    float64
		justification string
		alternatives  []Alternative
	)

	switch {
	case req.TemplateID != "":
		var err error
		t, err = s.store.GetTemplate(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		confidence = 1.0
		justification = "Using selected template: " + t.Title
		alternatives, err = s.siblingAlternatives(ctx, t.TemplateID)
		if err != nil {
			return nil, err
		}
	case strings.TrimSpace(req.UserQuery) != "":
		res, err := s.matcher.Match(ctx, req.UserQuery)
		if err != nil {
			return nil, fmt.Errorf("draft: match template: %w", err)
		}
		if res.State != matcher.StateAccepted {
			return nil, &NoMatchError{Reason: res.Reason}
		}
		t = res.Template
		confidence = res.Confidence
		justification = res.Justification
		for _, alt := range res.Alternatives {
			alternatives = append(alternatives, Alternative{
				TemplateID: alt.TemplateID,
				Title:      alt.Title,
				DocType:    alt.DocType,
			})
		}
	default:
		return nil, model.Invalidf("either template_id or user_query is required")
	}

	userQuery := req.UserQuery
	if userQuery == "" {
		userQuery = "Load template: " + t.Title
	}

	preFilled := s.questions.Prefill(ctx, userQuery, t.Variables)

	var missing []model.Variable
	for _, v := range t.Variables {
		if val, ok := preFilled[v.Key]; !ok || val == nil {
			missing = append(missing, v)
		}
	}
	qs := s.questions.Generate(ctx, missing)

	inst := &model.DraftInstance{
		TemplateID: t.TemplateID,
		UserQuery:  userQuery,
		Answers:    preFilled,
	}
	if err := s.store.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("draft: create instance: %w", err)
	}

	log.Info("draft: instance started",
		slog.String("instance_id", inst.ID),
		slog.String("template_id", t.TemplateID),
		slog.Float64("confidence", confidence),
		slog.Int("questions", len(qs)),
	)

	missingKeys := make([]string, len(missing))
	for i, v := range missing {
		missingKeys[i] = v.Key
	}
	return &StartResult{
		InstanceID:       inst.ID,
		TemplateID:       t.TemplateID,
		TemplateTitle:    t.Title,
		Confidence:       confidence,
		Justification:    justification,
		PreFilled:        preFilled,
		MissingVariables: missingKeys,
		Questions:        qs,
		Alternatives:     alternatives,
		Message: fmt.Sprintf("Matched template '%s' with %.0f%% confidence. %d questions to answer.",
			t.Title, confidence*100, len(qs)),
	}, nil
}

// Finalize merges the submitted answers into the instance, checks required
// variables, renders the draft, and persists it.
func (s *Service) Finalize(ctx context.Context, instanceID string, answers map[string]any) (*Result, error) {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTemplate(ctx, inst.TemplateID)
	if err != nil {
		return nil, err
	}
	if len(t.Variables) == 0 {
		return nil, model.Invalidf("template has no variables; it appears to be an article, not a template")
	}

	merged := make(map[string]any, len(inst.Answers)+len(answers))
	for k, v := range inst.Answers {
		merged[k] = v
	}
	for k, v := range answers {
		merged[k] = v
	}

	if missing := missingRequired(t.Variables, merged); len(missing) > 0 {
		return nil, model.Invalidf("missing required variables: %s", strings.Join(missing, ", "))
	}

	text := s.render(t, merged)

	inst.Answers = merged
	inst.DraftText = text
	if err := s.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("draft: update instance: %w", err)
	}

	return &Result{
		InstanceID:  inst.ID,
		DraftText:   text,
		DraftNumber: inst.DraftNumber,
		Message:     "Draft generated successfully",
	}, nil
}

// Regenerate re-renders the draft from the stored answers and bumps the
// draft number.
func (s *Service) Regenerate(ctx context.Context, instanceID string) (*Result, error) {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTemplate(ctx, inst.TemplateID)
	if err != nil {
		return nil, err
	}

	text := s.render(t, inst.Answers)

	inst.DraftText = text
	inst.DraftNumber++
	if err := s.store.UpdateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("draft: update instance: %w", err)
	}

	return &Result{
		InstanceID:  inst.ID,
		DraftText:   text,
		DraftNumber: inst.DraftNumber,
		Message:     "Draft regenerated successfully",
	}, nil
}

// EditQuestions returns questions for every variable of the instance's
// template along with the answers already on file, so a client can revise
// them.
func (s *Service) EditQuestions(ctx context.Context, instanceID string) (*StartResult, error) {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTemplate(ctx, inst.TemplateID)
	if err != nil {
		return nil, err
	}

	qs := s.questions.Generate(ctx, t.Variables)
	keys := make([]string, len(t.Variables))
	for i, v := range t.Variables {
		keys[i] = v.Key
	}

	return &StartResult{
		InstanceID:       inst.ID,
		TemplateID:       t.TemplateID,
		TemplateTitle:    t.Title,
		PreFilled:        inst.Answers,
		MissingVariables: keys,
		Questions:        qs,
		Message:          fmt.Sprintf("Edit mode: %d variables available", len(qs)),
	}, nil
}

func (s *Service) render(t *model.Template, answers map[string]any) string {
	body := renderer.StripFrontMatter(t.Body)
	return renderer.FormatDraft(renderer.Render(body, answers))
}

// siblingAlternatives lists other stored templates, newest first, as
// pick-instead options.
func (s *Service) siblingAlternatives(ctx context.Context, excludeID string) ([]Alternative, error) {
	all, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("draft: list alternatives: %w", err)
	}
	var alts []Alternative
	for _, t := range all {
		if t.TemplateID == excludeID {
			continue
		}
		alts = append(alts, Alternative{TemplateID: t.TemplateID, Title: t.Title, DocType: t.DocType})
		if len(alts) == maxAlternatives {
			break
		}
	}
	return alts, nil
}

func missingRequired(vars []model.Variable, answers map[string]any) []string {
	var missing []string
	for _, v := range vars {
		if !v.Required {
			continue
		}
		val, ok := answers[v.Key]
		if !ok || val == nil {
			missing = append(missing, v.Key)
			continue
		}
		if str, isStr := val.(string); isStr && strings.TrimSpace(str) == "" {
			missing = append(missing, v.Key)
		}
	}
	sort.Strings(missing)
	return missing
}
