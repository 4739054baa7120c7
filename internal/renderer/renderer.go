// Package renderer substitutes collected answers into template bodies and
// cleans the result into a presentable document. Substitution is tolerant:
// answers without a matching placeholder are ignored, placeholders without an
// answer are left in place for a later pass.
package renderer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/veritaslegal/lexdraft-go/internal/extractor"
)

var (
	dateLine      = regexp.MustCompile(`Date:[ \t]*([^\n]+)\n?`)
	subjectLine   = regexp.MustCompile(`Subject:[ \t]*([^\n]+)\n?`)
	toLine        = regexp.MustCompile(`To,[ \t]*\n?[ \t]*`)
	salutation    = regexp.MustCompile(`Dear +([^\n]+),\n?`)
	closingLine   = regexp.MustCompile(`(?i)\n(Yours +(?:faithfully|sincerely))`)
	excessNewline = regexp.MustCompile(`\n{3,}`)
	lineIndent    = regexp.MustCompile(`\n[ \t]+`)
)

// Render substitutes answers into body and strips internal residue.
//
// Each (key, value) pair with a non-nil value replaces every literal
// occurrence of {{key}}; matching is exact including case. Rendering is
// idempotent: a second pass over already-rendered output with the same
// answers changes nothing.
func Render(body string, answers map[string]any) string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := body
	for _, key := range keys {
		value := answers[key]
		if value == nil {
			continue
		}
		out = strings.ReplaceAll(out, "{{"+key+"}}", fmt.Sprintf("%v", value))
	}

	return tidy(stripMarkers(out))
}

// stripMarkers removes the tracking marker and the empty comment shells it
// leaves behind.
func stripMarkers(text string) string {
	text = strings.ReplaceAll(text, extractor.TrackingMarker, "")
	text = strings.ReplaceAll(text, "<!--  -->", "")
	return text
}

// tidy normalizes paragraph spacing around structural cues: recipient lines,
// dates, subjects, salutations, and closings each get their own paragraph
// break. The pass converges after one application, which keeps Render
// idempotent.
func tidy(text string) string {
	text = strings.TrimSpace(text)

	text = toLine.ReplaceAllString(text, "To,\n\n")
	text = dateLine.ReplaceAllString(text, "Date: $1\n\n")
	text = subjectLine.ReplaceAllString(text, "Subject: $1\n\n")
	text = salutation.ReplaceAllString(text, "Dear $1,\n\n")
	text = closingLine.ReplaceAllString(text, "\n\n$1")

	text = lineIndent.ReplaceAllString(text, "\n")
	text = excessNewline.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
