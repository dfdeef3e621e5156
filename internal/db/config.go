package db

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"qamod/internal/models"
)

// GetClosureConfig returns the close and reopen thresholds.
func (d *Queries) GetClosureConfig(ctx context.Context) (*models.ClosureConfig, error) {
	var c models.ClosureConfig
	err := d.q.QueryRow(ctx, `
		SELECT close_votes_needed, reopen_votes_needed, min_reputation_close, min_reputation_reopen
		FROM closure_config
		LIMIT 1
	`).Scan(&c.CloseVotesNeeded, &c.ReopenVotesNeeded, &c.MinReputationClose, &c.MinReputationReopen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClosureConfigMissing
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateClosureConfig applies the non-nil fields of patch and returns the
// resulting configuration.
func (d *Queries) UpdateClosureConfig(ctx context.Context, patch models.ClosureConfigPatch) (*models.ClosureConfig, error) {
	var sets []string
	var args []any
	add := func(column string, v *int) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, column+` = $`+strconv.Itoa(len(args)))
	}
	add("close_votes_needed", patch.CloseVotesNeeded)
	add("reopen_votes_needed", patch.ReopenVotesNeeded)
	add("min_reputation_close", patch.MinReputationClose)
	add("min_reputation_reopen", patch.MinReputationReopen)

	if len(sets) == 0 {
		return d.GetClosureConfig(ctx)
	}

	var c models.ClosureConfig
	err := d.q.QueryRow(ctx, `
		UPDATE closure_config SET `+strings.Join(sets, ", ")+`
		RETURNING close_votes_needed, reopen_votes_needed, min_reputation_close, min_reputation_reopen
	`, args...).Scan(&c.CloseVotesNeeded, &c.ReopenVotesNeeded, &c.MinReputationClose, &c.MinReputationReopen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClosureConfigMissing
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const closeReasonColumns = `code, label, requires_details, votes_needed, is_active`

func scanCloseReason(row pgx.Row) (*models.CloseReason, error) {
	var r models.CloseReason
	err := row.Scan(&r.Code, &r.Label, &r.RequiresDetails, &r.VotesNeeded, &r.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCloseReasonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetCloseReason retrieves a close reason by code, active or not.
func (d *Queries) GetCloseReason(ctx context.Context, code string) (*models.CloseReason, error) {
	return scanCloseReason(d.q.QueryRow(ctx, `SELECT `+closeReasonColumns+` FROM close_reasons WHERE code = $1`, code))
}

// ListCloseReasons returns the active close reasons.
func (d *Queries) ListCloseReasons(ctx context.Context) ([]models.CloseReason, error) {
	rows, err := d.q.Query(ctx, `SELECT `+closeReasonColumns+` FROM close_reasons WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reasons []models.CloseReason
	for rows.Next() {
		r, err := scanCloseReason(rows)
		if err != nil {
			return nil, err
		}
		reasons = append(reasons, *r)
	}
	return reasons, rows.Err()
}

// GetReviewThreshold returns the threshold and reputation floor of a review type.
func (d *Queries) GetReviewThreshold(ctx context.Context, rt models.ReviewType) (*models.ReviewThreshold, error) {
	t := models.ReviewThreshold{ReviewType: rt}
	err := d.q.QueryRow(ctx, `
		SELECT votes_needed, min_reputation FROM review_thresholds WHERE review_type = $1
	`, rt).Scan(&t.VotesNeeded, &t.MinReputation)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThresholdNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
