package questions

import (
	"context"
	"errors"
	"testing"

	"github.com/veritaslegal/lexdraft-go/internal/model"
)

type fakeCompleter struct {
	result map[string]any
	err    error
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _, _ string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

var testVars = []model.Variable{
	{Key: "policy_number", Label: "Policy number", Example: "302786965", Required: true, Dtype: "string"},
	{Key: "incident_date", Label: "Date of incident", Required: true, Dtype: "date"},
}

func TestGenerate_FromOracle(t *testing.T) {
	t.Parallel()

	comp := &fakeCompleter{result: map[string]any{
		"questions": []any{
			map[string]any{
				"variable_key": "policy_number",
				"question":     "What is the insurance policy number?",
				"format_hint":  "Example: 302786965",
			},
			map[string]any{
				"variable_key": "incident_date",
				"question":     "On what date did the incident occur?",
				"format_hint":  "YYYY-MM-DD",
			},
		},
	}}
	g, err := New(comp)
	if err != nil {
		t.Fatal(err)
	}

	qs := g.Generate(context.Background(), testVars)
	if len(qs) != 2 {
		t.Fatalf("questions = %d, want 2", len(qs))
	}
	if qs[0].VariableKey != "policy_number" || qs[0].Question == "" {
		t.Errorf("unexpected question: %+v", qs[0])
	}
}

func TestGenerate_FallbackOnOracleFailure(t *testing.T) {
	t.Parallel()

	g, _ := New(&fakeCompleter{err: errors.New("quota exceeded")})
	qs := g.Generate(context.Background(), testVars)

	if len(qs) != 2 {
		t.Fatalf("fallback questions = %d, want one per variable", len(qs))
	}
	if qs[0].Question != "Please provide policy number" {
		t.Errorf("generic question = %q", qs[0].Question)
	}
	if qs[0].FormatHint != "302786965" {
		t.Errorf("format hint = %q, want the example", qs[0].FormatHint)
	}
}

func TestGenerate_NoVariables(t *testing.T) {
	t.Parallel()

	g, _ := New(&fakeCompleter{})
	if qs := g.Generate(context.Background(), nil); qs != nil {
		t.Errorf("expected nil for empty variables, got %v", qs)
	}
}

func TestPrefill(t *testing.T) {
	t.Parallel()

	comp := &fakeCompleter{result: map[string]any{
		"filled_variables": map[string]any{
			"policy_number":  "302786965",
			"incident_date":  nil,
			"unknown_key":    "ignored",
		},
	}}
	g, _ := New(comp)

	got := g.Prefill(context.Background(), "my policy 302786965", testVars)
	if got["policy_number"] != "302786965" {
		t.Errorf("prefill = %v", got)
	}
	if _, present := got["incident_date"]; present {
		t.Error("null values must be dropped")
	}
	if _, present := got["unknown_key"]; present {
		t.Error("keys outside the variable schema must be dropped")
	}
}

func TestPrefill_EmptyOnFailure(t *testing.T) {
	t.Parallel()

	g, _ := New(&fakeCompleter{err: errors.New("boom")})
	got := g.Prefill(context.Background(), "query", testVars)
	if len(got) != 0 {
		t.Errorf("expected empty map on oracle failure, got %v", got)
	}
}
