package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veritaslegal/lexdraft-go/internal/model"
)

// CreateTemplate persists a template and its variables in one transaction.
// The template's ID and timestamps are assigned here. A template_id collision
// is a ValidationError; nothing is written on any failure.
func (s *Store) CreateTemplate(ctx context.Context, t *model.Template) error {
	if t.TemplateID == "" || t.Title == "" {
		return model.Invalidf("template_id and title are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM templates WHERE template_id = ?`, t.TemplateID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("store: check template_id: %w", err)
	}
	if exists > 0 {
		return model.Invalidf("template_id %q already exists", t.TemplateID)
	}

	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now

	var embedding any
	if len(t.Embedding) > 0 {
		embedding = marshalJSON(t.Embedding, "[]")
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO templates (id, template_id, title, file_description, doc_type, jurisdiction, similarity_tags, body, embedding, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TemplateID, t.Title, t.FileDescription, t.DocType, t.Jurisdiction,
		marshalJSON(t.SimilarityTags, "[]"), t.Body, embedding, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("store: insert template: %w", err)
	}

	for i := range t.Variables {
		v := &t.Variables[i]
		if v.Key == "" {
			return model.Invalidf("variable %d has no key", i)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO template_variables (id, template_id, key, label, description, example, required, dtype, regex, enum_values)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), t.ID, v.Key, v.Label, v.Description, v.Example,
			boolInt(v.Required), v.Dtype, v.Regex, marshalJSON(v.EnumValues, "[]"))
		if err != nil {
			return fmt.Errorf("store: insert variable %s: %w", v.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit template: %w", err)
	}
	return nil
}

// GetTemplate returns a template with its variables by template_id.
func (s *Store) GetTemplate(ctx context.Context, templateID string) (*model.Template, error) {
	const q = `
SELECT id, template_id, title, file_description, doc_type, jurisdiction, similarity_tags, body, embedding, created_at, updated_at
FROM templates WHERE template_id = ?`
	t, err := scanTemplate(s.db.QueryRowContext(ctx, q, templateID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: template %s: %w", templateID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("store: get template: %w", err)
	}

	vars, err := s.templateVariables(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Variables = vars
	return t, nil
}

// ListTemplates returns all templates, newest first, without variables.
func (s *Store) ListTemplates(ctx context.Context) ([]*model.Template, error) {
	const q = `
SELECT id, template_id, title, file_description, doc_type, jurisdiction, similarity_tags, body, embedding, created_at, updated_at
FROM templates ORDER BY created_at DESC, template_id`
	return s.queryTemplates(ctx, q)
}

// ListMatchable returns all templates that carry an embedding, without
// variables. Templates without embeddings are simply not candidates; their
// absence here is not an error.
func (s *Store) ListMatchable(ctx context.Context) ([]*model.Template, error) {
	const q = `
SELECT id, template_id, title, file_description, doc_type, jurisdiction, similarity_tags, body, embedding, created_at, updated_at
FROM templates WHERE embedding IS NOT NULL ORDER BY created_at, template_id`
	return s.queryTemplates(ctx, q)
}

// UpdateEmbedding stores a freshly computed embedding for a template.
func (s *Store) UpdateEmbedding(ctx context.Context, templateID string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE templates SET embedding = ?, updated_at = ? WHERE template_id = ?`,
		marshalJSON(embedding, "[]"), time.Now().UTC().Unix(), templateID)
	if err != nil {
		return fmt.Errorf("store: update embedding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update embedding: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: template %s: %w", templateID, model.ErrNotFound)
	}
	return nil
}

func (s *Store) queryTemplates(ctx context.Context, q string, args ...any) ([]*model.Template, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query templates: %w", err)
	}
	defer rows.Close()

	var out []*model.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate templates: %w", err)
	}
	return out, nil
}

func (s *Store) templateVariables(ctx context.Context, ownerID string) ([]model.Variable, error) {
	const q = `
SELECT key, label, description, example, required, dtype, regex, enum_values
FROM template_variables WHERE template_id = ? ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: query variables: %w", err)
	}
	defer rows.Close()

	var out []model.Variable
	for rows.Next() {
		var v model.Variable
		var required int
		var enumValues string
		if err := rows.Scan(&v.Key, &v.Label, &v.Description, &v.Example, &required, &v.Dtype, &v.Regex, &enumValues); err != nil {
			return nil, fmt.Errorf("store: scan variable: %w", err)
		}
		v.Required = required != 0
		v.EnumValues = unmarshalStrings(enumValues)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate variables: %w", err)
	}
	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*model.Template, error) {
	var t model.Template
	var tags string
	var embedding sql.NullString
	var createdAt, updatedAt int64
	err := row.Scan(&t.ID, &t.TemplateID, &t.Title, &t.FileDescription, &t.DocType,
		&t.Jurisdiction, &tags, &t.Body, &embedding, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.SimilarityTags = unmarshalStrings(tags)
	t.Embedding = unmarshalFloats(embedding)
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
