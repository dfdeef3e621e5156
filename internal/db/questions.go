package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"qamod/internal/models"
	"qamod/internal/moderation"
)

const questionColumns = `
	id, owner_id, title, status, close_reason_code, close_details,
	closed_by, closed_at, duplicate_of_id, created_at
`

func (d *Queries) scanQuestion(ctx context.Context, row pgx.Row) (*models.Question, error) {
	var q models.Question
	err := row.Scan(
		&q.ID,
		&q.OwnerID,
		&q.Title,
		&q.Status,
		&q.CloseReasonCode,
		&q.CloseDetails,
		&q.ClosedBy,
		&q.ClosedAt,
		&q.DuplicateOfID,
		&q.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}

	q.Tags, err = d.questionTags(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (d *Queries) questionTags(ctx context.Context, questionID uuid.UUID) ([]string, error) {
	rows, err := d.q.Query(ctx, `SELECT tag FROM question_tags WHERE question_id = $1 ORDER BY tag`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// GetQuestion retrieves a question with its tags.
func (d *Queries) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return d.scanQuestion(ctx, d.q.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// LockQuestion retrieves a question and locks its row for the rest of the
// transaction. All close and reopen votes on the question serialize here.
func (d *Queries) LockQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return d.scanQuestion(ctx, d.q.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1 FOR UPDATE`, id))
}

// CloseQuestion moves an open question to closed.
func (d *Queries) CloseQuestion(ctx context.Context, id uuid.UUID, c moderation.Closure) error {
	result, err := d.q.Exec(ctx, `
		UPDATE questions
		SET status = $2, close_reason_code = $3, close_details = $4,
			closed_by = $5, closed_at = $6, duplicate_of_id = $7
		WHERE id = $1 AND status = $8
	`, id, models.QuestionClosed, c.ReasonCode, c.Details, c.ClosedBy, c.At, c.DuplicateOfID, models.QuestionOpen)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// ReopenQuestion moves a closed question to open and clears its close metadata.
func (d *Queries) ReopenQuestion(ctx context.Context, id uuid.UUID) error {
	result, err := d.q.Exec(ctx, `
		UPDATE questions
		SET status = $2, close_reason_code = NULL, close_details = NULL,
			closed_by = NULL, closed_at = NULL, duplicate_of_id = NULL
		WHERE id = $1 AND status = $3
	`, id, models.QuestionOpen, models.QuestionClosed)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}
