package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"qamod/internal/models"
)

// AwardReputation appends a ledger entry and moves the cached total by the
// same amount, clamped at zero. The UPDATE takes the user's row lock first,
// so concurrent awards to one user serialize. Returns the new total.
func (d *Queries) AwardReputation(ctx context.Context, userID uuid.UUID, points int, reason string, ref models.ReputationRef) (int, error) {
	var total int
	err := d.q.QueryRow(ctx, `
		UPDATE users SET reputation = GREATEST(0, reputation + $2)
		WHERE id = $1
		RETURNING reputation
	`, userID, points).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}

	_, err = d.q.Exec(ctx, `
		INSERT INTO reputation_history (user_id, points, reason, reference_type, reference_id)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, points, reason, ref.Type, ref.ID)
	if err != nil {
		return 0, err
	}

	return total, nil
}

// GetReputationHistory returns a user's newest ledger entries.
func (d *Queries) GetReputationHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReputationEntry, error) {
	rows, err := d.q.Query(ctx, `
		SELECT id, user_id, points, reason, reference_type, reference_id, created_at
		FROM reputation_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ReputationEntry
	for rows.Next() {
		var e models.ReputationEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Points, &e.Reason, &e.ReferenceType, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumReputationHistory returns the sum of a user's ledger entries.
func (d *Queries) SumReputationHistory(ctx context.Context, userID uuid.UUID) (int, error) {
	var sum int
	err := d.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM reputation_history WHERE user_id = $1
	`, userID).Scan(&sum)
	return sum, err
}

// ReputationDrift is a user whose cached total disagrees with their ledger.
type ReputationDrift struct {
	UserID    uuid.UUID
	Cached    int
	LedgerSum int
}

// FindReputationDrift returns users whose cached reputation differs from the
// sum of their ledger entries.
func (d *Queries) FindReputationDrift(ctx context.Context, limit int) ([]ReputationDrift, error) {
	rows, err := d.q.Query(ctx, `
		SELECT u.id, u.reputation, COALESCE(SUM(h.points), 0) AS ledger
		FROM users u
		LEFT JOIN reputation_history h ON h.user_id = u.id
		GROUP BY u.id, u.reputation
		HAVING u.reputation <> COALESCE(SUM(h.points), 0)
		ORDER BY u.id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drift []ReputationDrift
	for rows.Next() {
		var r ReputationDrift
		if err := rows.Scan(&r.UserID, &r.Cached, &r.LedgerSum); err != nil {
			return nil, err
		}
		drift = append(drift, r)
	}
	return drift, rows.Err()
}
