package db

import (
	"context"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// InsertCloseVote records an active close vote. When the user already has
// an active vote for the same reason nothing is inserted and false is
// returned; a hammer vote instead marks that existing row as the hammer.
func (d *Queries) InsertCloseVote(ctx context.Context, v *models.CloseVote) (bool, error) {
	var inserted bool
	err := d.q.QueryRow(ctx, `
		INSERT INTO close_votes (question_id, user_id, reason_code, details, duplicate_of_id, is_hammer)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (question_id, user_id, reason_code) WHERE is_active
		DO UPDATE SET is_hammer = close_votes.is_hammer OR EXCLUDED.is_hammer
		RETURNING id, is_active, created_at, (xmax = 0) AS inserted
	`, v.QuestionID, v.UserID, v.ReasonCode, v.Details, v.DuplicateOfID, v.IsHammer,
	).Scan(&v.ID, &v.IsActive, &v.CreatedAt, &inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// GetActiveCloseVotes returns the active votes for one reason, oldest first.
func (d *Queries) GetActiveCloseVotes(ctx context.Context, questionID uuid.UUID, reasonCode string) ([]models.CloseVote, error) {
	rows, err := d.q.Query(ctx, `
		SELECT id, question_id, user_id, reason_code, details, duplicate_of_id, is_active, is_hammer, created_at
		FROM close_votes
		WHERE question_id = $1 AND reason_code = $2 AND is_active
		ORDER BY created_at ASC, id ASC
	`, questionID, reasonCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.CloseVote
	for rows.Next() {
		var v models.CloseVote
		if err := rows.Scan(
			&v.ID, &v.QuestionID, &v.UserID, &v.ReasonCode, &v.Details,
			&v.DuplicateOfID, &v.IsActive, &v.IsHammer, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// CountActiveCloseVotes returns active vote counts keyed by reason code.
func (d *Queries) CountActiveCloseVotes(ctx context.Context, questionID uuid.UUID) (map[string]int, error) {
	rows, err := d.q.Query(ctx, `
		SELECT reason_code, COUNT(*)
		FROM close_votes
		WHERE question_id = $1 AND is_active
		GROUP BY reason_code
	`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		counts[code] = n
	}
	return counts, rows.Err()
}

// DeactivateCloseVote soft-revokes one user's active vote for a reason.
func (d *Queries) DeactivateCloseVote(ctx context.Context, questionID, userID uuid.UUID, reasonCode string) (bool, error) {
	result, err := d.q.Exec(ctx, `
		UPDATE close_votes SET is_active = FALSE
		WHERE question_id = $1 AND user_id = $2 AND reason_code = $3 AND is_active
	`, questionID, userID, reasonCode)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// DeactivateCloseVotes soft-revokes every active close vote on a question.
func (d *Queries) DeactivateCloseVotes(ctx context.Context, questionID uuid.UUID) error {
	_, err := d.q.Exec(ctx, `UPDATE close_votes SET is_active = FALSE WHERE question_id = $1 AND is_active`, questionID)
	return err
}
