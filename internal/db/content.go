package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"qamod/internal/models"
)

// contentLookups maps each content type to the query returning its owner and
// the question whose tags it falls under.
var contentLookups = map[models.ContentType]string{
	models.ContentQuestion: `SELECT owner_id, id FROM questions WHERE id = $1`,
	models.ContentAnswer:   `SELECT owner_id, question_id FROM answers WHERE id = $1`,
	models.ContentComment: `
		SELECT c.owner_id, COALESCE(c.question_id, a.question_id)
		FROM comments c
		LEFT JOIN answers a ON a.id = c.answer_id
		WHERE c.id = $1
	`,
}

// GetContent loads the owner and tags of a question, answer or comment.
func (d *Queries) GetContent(ctx context.Context, ref models.ContentRef) (*models.Content, error) {
	query, ok := contentLookups[ref.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q", ref.Type)
	}

	content := models.Content{ContentRef: ref}
	var questionID *uuid.UUID
	err := d.q.QueryRow(ctx, query, ref.ID).Scan(&content.OwnerID, &questionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, err
	}

	if questionID != nil {
		content.Tags, err = d.questionTags(ctx, *questionID)
		if err != nil {
			return nil, err
		}
	}
	return &content, nil
}

// HasActiveContentFlag reports whether the content carries an active flag of flagType.
func (d *Queries) HasActiveContentFlag(ctx context.Context, ref models.ContentRef, flagType string) (bool, error) {
	var exists bool
	err := d.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM content_flags
			WHERE content_type = $1 AND content_id = $2 AND flag_type = $3 AND is_active
		)
	`, ref.Type, ref.ID, flagType).Scan(&exists)
	return exists, err
}

// ApplyContentFlag marks content with an active flag, reactivating an older one.
func (d *Queries) ApplyContentFlag(ctx context.Context, ref models.ContentRef, flagType string, itemID uuid.UUID) error {
	_, err := d.q.Exec(ctx, `
		INSERT INTO content_flags (content_type, content_id, flag_type, review_queue_item_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_type, content_id, flag_type) DO UPDATE SET
			is_active = TRUE,
			review_queue_item_id = EXCLUDED.review_queue_item_id,
			created_at = NOW()
	`, ref.Type, ref.ID, flagType, itemID)
	return err
}

// GetContentFlags returns the active flags on a piece of content.
func (d *Queries) GetContentFlags(ctx context.Context, ref models.ContentRef) ([]models.ContentFlag, error) {
	rows, err := d.q.Query(ctx, `
		SELECT id, content_type, content_id, flag_type, is_active, review_queue_item_id, created_at
		FROM content_flags
		WHERE content_type = $1 AND content_id = $2 AND is_active
		ORDER BY created_at
	`, ref.Type, ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []models.ContentFlag
	for rows.Next() {
		var f models.ContentFlag
		if err := rows.Scan(&f.ID, &f.ContentType, &f.ContentID, &f.FlagType, &f.IsActive, &f.ItemID, &f.CreatedAt); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}
