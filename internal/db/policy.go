package db

import (
	"context"
	"fmt"

	"qamod/internal/models"
)

// UpsertCloseReason creates or replaces a close reason.
func (d *Queries) UpsertCloseReason(ctx context.Context, r models.CloseReason) error {
	_, err := d.q.Exec(ctx, `
		INSERT INTO close_reasons (code, label, requires_details, votes_needed, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			label = EXCLUDED.label,
			requires_details = EXCLUDED.requires_details,
			votes_needed = EXCLUDED.votes_needed,
			is_active = EXCLUDED.is_active
	`, r.Code, r.Label, r.RequiresDetails, r.VotesNeeded, r.IsActive)
	return err
}

// UpsertReviewThreshold creates or replaces the threshold of a review type.
func (d *Queries) UpsertReviewThreshold(ctx context.Context, t models.ReviewThreshold) error {
	_, err := d.q.Exec(ctx, `
		INSERT INTO review_thresholds (review_type, votes_needed, min_reputation)
		VALUES ($1, $2, $3)
		ON CONFLICT (review_type) DO UPDATE SET
			votes_needed = EXCLUDED.votes_needed,
			min_reputation = EXCLUDED.min_reputation
	`, t.ReviewType, t.VotesNeeded, t.MinReputation)
	return err
}

// ApplyPolicy writes a moderation policy in a single transaction.
func (d *DB) ApplyPolicy(ctx context.Context, patch models.ClosureConfigPatch, reasons []models.CloseReason, thresholds []models.ReviewThreshold) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := &Queries{q: tx}
	if _, err := q.UpdateClosureConfig(ctx, patch); err != nil {
		return fmt.Errorf("failed to update closure config: %w", err)
	}
	for _, r := range reasons {
		if err := q.UpsertCloseReason(ctx, r); err != nil {
			return fmt.Errorf("failed to upsert close reason %q: %w", r.Code, err)
		}
	}
	for _, t := range thresholds {
		if err := q.UpsertReviewThreshold(ctx, t); err != nil {
			return fmt.Errorf("failed to upsert review threshold %q: %w", t.ReviewType, err)
		}
	}

	return tx.Commit(ctx)
}
