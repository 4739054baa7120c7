package renderer

import (
	"strings"
	"testing"

	"github.com/veritaslegal/lexdraft-go/internal/extractor"
)

func TestRender_SubstitutesAnswers(t *testing.T) {
	t.Parallel()

	body := "This agreement is between {{party_name}} and {{counterparty}} dated {{agreement_date}}."
	answers := map[string]any{
		"party_name":     "Acme Corp",
		"counterparty":   "Bharat Logistics Pvt Ltd",
		"agreement_date": "2026-08-29",
	}

	out := Render(body, answers)
	if !strings.Contains(out, "Acme Corp") || !strings.Contains(out, "Bharat Logistics Pvt Ltd") {
		t.Errorf("values missing:\n%s", out)
	}
	if strings.Contains(out, "{{party_name}}") {
		t.Errorf("placeholder survived substitution:\n%s", out)
	}
}

func TestRender_TolerantOfExtraAndMissingAnswers(t *testing.T) {
	t.Parallel()

	body := "Claimant: {{claimant_full_name}}. Amount: {{claim_amount}}."
	answers := map[string]any{
		"claimant_full_name": "Rajesh Kumar",
		"not_in_template":    "ignored",
		"claim_amount":       nil,
	}

	out := Render(body, answers)
	if !strings.Contains(out, "Rajesh Kumar") {
		t.Errorf("known answer not substituted:\n%s", out)
	}
	// nil answer: leave the placeholder for a later pass.
	if !strings.Contains(out, "{{claim_amount}}") {
		t.Errorf("nil answer must not consume its placeholder:\n%s", out)
	}
	if strings.Contains(out, "ignored") {
		t.Errorf("answer without placeholder leaked into output:\n%s", out)
	}
}

func TestRender_ExactCaseMatching(t *testing.T) {
	t.Parallel()

	body := "{{Party_Name}} and {{party_name}}"
	out := Render(body, map[string]any{"party_name": "Acme"})
	if !strings.Contains(out, "{{Party_Name}}") {
		t.Errorf("differently-cased key must not match:\n%s", out)
	}
	if strings.Contains(out, "{{party_name}}") {
		t.Errorf("exact key must match:\n%s", out)
	}
}

func TestRender_StripsTrackingMarker(t *testing.T) {
	t.Parallel()

	body := "<!-- " + extractor.TrackingMarker + " -->\n\nNotice text {{party_name}}."
	out := Render(body, map[string]any{"party_name": "Acme"})

	if strings.Contains(out, extractor.TrackingMarker) {
		t.Errorf("tracking marker survived:\n%s", out)
	}
	if strings.Contains(out, "<!--") {
		t.Errorf("empty comment residue survived:\n%s", out)
	}
}

func TestRender_Idempotent(t *testing.T) {
	t.Parallel()

	body := "NOTICE\n\nDate: {{notice_date}}\nTo,\nThe Manager\n\nDear Sir,\nI write regarding {{party_name}}.\nYours faithfully,\n{{party_name}}"
	answers := map[string]any{
		"notice_date": "2026-08-29",
		"party_name":  "Acme Corp",
	}

	once := Render(body, answers)
	twice := Render(once, answers)
	if once != twice {
		t.Errorf("render is not idempotent:\n--- once ---\n%s\n--- twice ---\n%s", once, twice)
	}
}

func TestRender_EndToEndPartyName(t *testing.T) {
	t.Parallel()

	out := Render("Agreement with {{party_name}}.", map[string]any{"party_name": "Acme Corp"})
	if !strings.Contains(out, "Acme Corp") {
		t.Errorf("missing value:\n%s", out)
	}
	if strings.Contains(out, "{{party_name}}") {
		t.Errorf("placeholder remains:\n%s", out)
	}
}

func TestRender_NonStringValues(t *testing.T) {
	t.Parallel()

	out := Render("Amount: {{claim_amount}}", map[string]any{"claim_amount": 50000})
	if !strings.Contains(out, "Amount: 50000") {
		t.Errorf("numeric answer not stringified:\n%s", out)
	}
}

func TestStripFrontMatter(t *testing.T) {
	t.Parallel()

	content := "---\ntemplate_id: tpl_x\ntitle: X\n---\n\nBody starts here."
	if got := StripFrontMatter(content); got != "Body starts here." {
		t.Errorf("StripFrontMatter = %q", got)
	}

	plain := "No front matter here."
	if got := StripFrontMatter(plain); got != plain {
		t.Errorf("content without front-matter changed: %q", got)
	}
}

func TestFormatDraft(t *testing.T) {
	t.Parallel()

	content := "LEGAL NOTICE\n\nDate: 2026-08-29\nTo,\nThe Branch Manager\n\nDear Sir,\n\nI am writing to notify you.\n\nYours faithfully,\nRajesh Kumar"
	out := FormatDraft(content)

	for _, want := range []string{
		"# LEGAL NOTICE",
		"**Date: 2026-08-29**",
		"**To,**",
		"**Dear Sir,**",
		"**Yours faithfully,**",
		"**Rajesh Kumar**",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatDraft missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDraft_Idempotent(t *testing.T) {
	t.Parallel()

	content := "NOTICE OF CLAIM\n\nDate: 2026-01-15\n\nDear Madam,\n\nBody text.\n\nYours sincerely,\nA Signatory"
	once := FormatDraft(content)
	twice := FormatDraft(once)
	if once != twice {
		t.Errorf("FormatDraft is not idempotent:\n--- once ---\n%s\n--- twice ---\n%s", once, twice)
	}
}

func TestFormatDraft_DoesNotAlterValues(t *testing.T) {
	t.Parallel()

	content := "TITLE\n\nThe claim amount is Rs. 50,000 payable to Acme Corp."
	out := FormatDraft(content)
	if !strings.Contains(out, "Rs. 50,000 payable to Acme Corp.") {
		t.Errorf("substituted values altered:\n%s", out)
	}
}
