package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veritaslegal/lexdraft-go/internal/model"
)

// CreateDocument persists ingested source text. Documents are immutable
// after creation.
func (s *Store) CreateDocument(ctx context.Context, d *model.Document) error {
	d.ID = uuid.NewString()
	d.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, mime_type, raw_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Filename, d.MimeType, d.RawText, d.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("store: insert document: %w", err)
	}
	return nil
}

// GetDocument returns a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var d model.Document
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, mime_type, raw_text, created_at FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Filename, &d.MimeType, &d.RawText, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: document %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document: %w", err)
	}
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &d, nil
}

// CreateInstance persists a new draft instance. The instance's ID,
// timestamps, and initial draft_number are assigned here.
func (s *Store) CreateInstance(ctx context.Context, inst *model.DraftInstance) error {
	if inst.TemplateID == "" {
		return model.Invalidf("instance requires a template_id")
	}
	now := time.Now().UTC()
	inst.ID = uuid.NewString()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	if inst.DraftNumber == 0 {
		inst.DraftNumber = 1
	}
	if inst.Answers == nil {
		inst.Answers = map[string]any{}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO instances (id, template_id, user_query, answers, draft_text, draft_number, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID, inst.TemplateID, inst.UserQuery, marshalJSON(inst.Answers, "{}"),
		inst.DraftText, inst.DraftNumber, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("store: insert instance: %w", err)
	}
	return nil
}

// GetInstance returns a draft instance by id.
func (s *Store) GetInstance(ctx context.Context, id string) (*model.DraftInstance, error) {
	var inst model.DraftInstance
	var answers string
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, `
SELECT id, template_id, user_query, answers, draft_text, draft_number, created_at, updated_at
FROM instances WHERE id = ?`, id).
		Scan(&inst.ID, &inst.TemplateID, &inst.UserQuery, &answers, &inst.DraftText,
			&inst.DraftNumber, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: instance %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get instance: %w", err)
	}

	inst.Answers = map[string]any{}
	if answers != "" {
		if err := json.Unmarshal([]byte(answers), &inst.Answers); err != nil {
			return nil, fmt.Errorf("store: decode answers for instance %s: %w", id, err)
		}
	}
	inst.CreatedAt = time.Unix(createdAt, 0).UTC()
	inst.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &inst, nil
}

// UpdateInstance persists the mutable fields of a draft instance: answers,
// draft text, and draft number.
func (s *Store) UpdateInstance(ctx context.Context, inst *model.DraftInstance) error {
	inst.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
UPDATE instances SET answers = ?, draft_text = ?, draft_number = ?, updated_at = ? WHERE id = ?`,
		marshalJSON(inst.Answers, "{}"), inst.DraftText, inst.DraftNumber, inst.UpdatedAt.Unix(), inst.ID)
	if err != nil {
		return fmt.Errorf("store: update instance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update instance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: instance %s: %w", inst.ID, model.ErrNotFound)
	}
	return nil
}
