package extractor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/veritaslegal/lexdraft-go/internal/model"
)

// TrackingMarker is the opaque sentinel embedded in every synthesized
// template body. The renderer strips it from final output; its presence in a
// document identifies text that originated from one of our templates.
const TrackingMarker = "UOIONHHC"

// minExampleChars is the shortest example worth substituting. Replacing one-
// or two-character examples would mangle unrelated text all over the body.
const minExampleChars = 3

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateTemplateID derives a tpl_-prefixed slug from a template title:
// "Notice to Insurer" -> "tpl_notice_to_insurer".
func GenerateTemplateID(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "_")
	slug = strings.Trim(slug, "_")
	return "tpl_" + slug
}

// TemplateMeta carries the header fields for a synthesized template.
type TemplateMeta struct {
	TemplateID      string
	Title           string
	DocType         string
	Jurisdiction    string
	SimilarityTags  []string
	FileDescription string
}

// BuildMarkdown synthesizes a template from source document text and its
// extracted variables: every variable example found in the body is replaced
// with the {{key}} placeholder, and a YAML front-matter header plus the
// tracking marker are prepended.
//
// Substitution runs longest-example-first so a shorter example that is a
// substring of a longer one ("Kumar" inside "Rajesh Kumar") cannot clobber
// the longer match. Matching is case-insensitive because legal documents
// routinely restate the same value in different casing.
func BuildMarkdown(documentText string, variables []model.Variable, meta TemplateMeta) string {
	body := documentText

	subs := make([]model.Variable, 0, len(variables))
	for _, v := range variables {
		if len(v.Example) >= minExampleChars {
			subs = append(subs, v)
		}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return len(subs[i].Example) > len(subs[j].Example)
	})

	for _, v := range subs {
		pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(v.Example))
		if err != nil {
			continue
		}
		body = pattern.ReplaceAllLiteralString(body, "{{"+v.Key+"}}")
	}

	return frontMatter(meta) + body
}

// frontMatter renders the YAML header and tracking marker comment.
func frontMatter(meta TemplateMeta) string {
	docType := meta.DocType
	if docType == "" {
		docType = "Unknown"
	}
	jurisdiction := meta.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = "Unknown"
	}

	tags := "[]"
	if len(meta.SimilarityTags) > 0 {
		tags = "[" + strings.Join(meta.SimilarityTags, ", ") + "]"
	}

	return fmt.Sprintf(`---
template_id: %s
title: %s
doc_type: %s
jurisdiction: %s
similarity_tags: %s
file_description: %s
---

<!-- %s -->

`, meta.TemplateID, meta.Title, docType, jurisdiction, tags, meta.FileDescription, TrackingMarker)
}
