// Package model holds the domain types shared across the pipeline: templates,
// their variable schemas, source documents, and draft instances.
package model

import "time"

// Variable is one reusable field in a template. It belongs to exactly one
// Template; Key is unique within that template and appears in the body as a
// {{key}} placeholder.
type Variable struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Example     string   `json:"example,omitempty"`
	Required    bool     `json:"required"`
	Dtype       string   `json:"dtype"`
	Regex       string   `json:"regex,omitempty"`
	EnumValues  []string `json:"enum_values,omitempty"`
}

// Template is a reusable legal document with {{key}} placeholders and the
// variable schema describing them. TemplateID is the human-assignable unique
// identifier ("tpl_notice_to_insurer"); ID is the internal row id.
//
// Embedding is derived from title + doc_type + jurisdiction + tags. A
// template without an embedding is valid but excluded from matching.
type Template struct {
	ID              string     `json:"id"`
	TemplateID      string     `json:"template_id"`
	Title           string     `json:"title"`
	FileDescription string     `json:"file_description,omitempty"`
	DocType         string     `json:"doc_type,omitempty"`
	Jurisdiction    string     `json:"jurisdiction,omitempty"`
	SimilarityTags  []string   `json:"similarity_tags,omitempty"`
	Body            string     `json:"body"`
	Embedding       []float32  `json:"-"`
	Variables       []Variable `json:"variables,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// EmbeddingText returns the text a template's embedding is computed from.
// Matching quality depends on this being stable, so change it only together
// with a re-embedding migration.
func (t *Template) EmbeddingText() string {
	text := t.Title
	if t.DocType != "" {
		text += " " + t.DocType
	}
	if t.Jurisdiction != "" {
		text += " " + t.Jurisdiction
	}
	for _, tag := range t.SimilarityTags {
		text += " " + tag
	}
	return text
}

// Document is ephemeral source text ingested from an upload or a web fetch.
// Created once, read many times, never mutated.
type Document struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	RawText   string    `json:"raw_text"`
	CreatedAt time.Time `json:"created_at"`
}

// DraftInstance is one fill-out session against a template. Answers map
// variable keys to the user's values; DraftText is empty until the first
// render. DraftNumber starts at 1 and increments on every regeneration.
type DraftInstance struct {
	ID          string         `json:"id"`
	TemplateID  string         `json:"template_id"`
	UserQuery   string         `json:"user_query,omitempty"`
	Answers     map[string]any `json:"answers"`
	DraftText   string         `json:"draft_text,omitempty"`
	DraftNumber int            `json:"draft_number"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
