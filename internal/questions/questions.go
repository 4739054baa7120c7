// Package questions turns missing template variables into human-friendly
// prompts and pulls answer values out of the user's original query. Both
// operations degrade gracefully: oracle failures produce templated generic
// questions or an empty prefill, never an error.
package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veritaslegal/lexdraft-go/internal/logging"
	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/oracle"
)

const questionsSystemPrompt = `You are a conversational assistant that generates human-friendly questions for missing legal document variables.

Rules:
1. NO raw variable names (e.g., "policy_number?")
2. Use clear, polite, unambiguous language
3. Include format hints where applicable (dates, currency, IDs)
4. One question per variable
5. Return JSON array of questions
6. Make questions conversational and easy to understand`

const prefillSystemPrompt = `Extract values from the user's query that match template variables.

Rules:
1. Return ONLY valid JSON
2. Extract dates, names, amounts, locations, etc.
3. If uncertain, return null for that variable
4. Normalize dates to ISO 8601 format (YYYY-MM-DD)
5. Keep original casing for names`

// Question is one prompt shown to the user for a missing variable.
type Question struct {
	VariableKey string `json:"variable_key"`
	Question    string `json:"question"`
	FormatHint  string `json:"format_hint,omitempty"`
}

// Generator wraps a completion oracle behind the two question operations.
type Generator struct {
	completer oracle.Completer
}

// New constructs a Generator. The completer must not be nil.
func New(completer oracle.Completer) (*Generator, error) {
	if completer == nil {
		return nil, fmt.Errorf("questions: completer must not be nil")
	}
	return &Generator{completer: completer}, nil
}

// Generate writes one friendly question per variable. If the oracle fails,
// every variable gets the templated generic question instead — question
// generation is never the reason a draft session dies.
func (g *Generator) Generate(ctx context.Context, variables []model.Variable) []Question {
	if len(variables) == 0 {
		return nil
	}
	log := logging.FromContext(ctx)

	data, err := json.MarshalIndent(variables, "", "  ")
	if err != nil {
		return genericQuestions(variables)
	}

	userPrompt := fmt.Sprintf(`Missing variables:
%s

Generate friendly questions. Return JSON:
{
  "questions": [
    {
      "variable_key": "policy_number",
      "question": "What is the insurance policy number exactly as it appears on the policy schedule?",
      "format_hint": "Example: 302786965"
    }
  ]
}`, data)

	obj, err := g.completer.CompleteJSON(ctx, questionsSystemPrompt, userPrompt)
	if err != nil {
		log.Warn("questions: generation failed, using templated fallback", slog.Any("error", err))
		return genericQuestions(variables)
	}

	var parsed struct {
		Questions []Question `json:"questions"`
	}
	raw, err := json.Marshal(obj)
	if err == nil {
		err = json.Unmarshal(raw, &parsed)
	}
	if err != nil || len(parsed.Questions) == 0 {
		log.Warn("questions: unusable oracle output, using templated fallback")
		return genericQuestions(variables)
	}
	return parsed.Questions
}

// Prefill extracts variable values already present in the user's query.
// Returns an empty map when the oracle fails or nothing matches; nulls and
// unknown keys in the oracle output are dropped.
func (g *Generator) Prefill(ctx context.Context, query string, variables []model.Variable) map[string]any {
	if len(variables) == 0 || strings.TrimSpace(query) == "" {
		return map[string]any{}
	}
	log := logging.FromContext(ctx)

	data, err := json.MarshalIndent(variables, "", "  ")
	if err != nil {
		return map[string]any{}
	}

	userPrompt := fmt.Sprintf(`User query: %q

Template variables:
%s

Extract any values present in the query. Return JSON:
{
  "filled_variables": {
    "incident_date": "2025-07-12",
    "claimant_full_name": "Rajesh Kumar",
    "policy_number": null
  }
}`, query, data)

	obj, err := g.completer.CompleteJSON(ctx, prefillSystemPrompt, userPrompt)
	if err != nil {
		log.Warn("questions: prefill extraction failed", slog.Any("error", err))
		return map[string]any{}
	}

	filled, ok := obj["filled_variables"].(map[string]any)
	if !ok {
		return map[string]any{}
	}

	known := make(map[string]bool, len(variables))
	for _, v := range variables {
		known[v.Key] = true
	}

	out := make(map[string]any, len(filled))
	for key, value := range filled {
		if value == nil || !known[key] {
			continue
		}
		out[key] = value
	}
	return out
}

// genericQuestions is the templated fallback: "Please provide <label>" with
// the example as the format hint.
func genericQuestions(variables []model.Variable) []Question {
	out := make([]Question, len(variables))
	for i, v := range variables {
		out[i] = Question{
			VariableKey: v.Key,
			Question:    "Please provide " + strings.ToLower(v.Label),
			FormatHint:  v.Example,
		}
	}
	return out
}
