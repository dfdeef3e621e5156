package db

import (
	"context"

	"github.com/google/uuid"

	"qamod/internal/models"
	"qamod/internal/moderation"
)

var _ moderation.BadgeRegistry = (*Queries)(nil)

// tiersAtLeast returns every tier that satisfies min.
func tiersAtLeast(min models.BadgeTier) []string {
	var tiers []string
	for _, t := range []models.BadgeTier{models.BadgeBronze, models.BadgeSilver, models.BadgeGold} {
		if t.Satisfies(min) {
			tiers = append(tiers, string(t))
		}
	}
	return tiers
}

// HasTagBadge reports whether the user holds an active badge of at least
// tier in tag. Badges are written by the external scorer; this is read-only.
func (d *Queries) HasTagBadge(ctx context.Context, userID uuid.UUID, tag string, tier models.BadgeTier) (bool, error) {
	var exists bool
	err := d.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_tag_badges
			WHERE user_id = $1 AND tag = $2 AND tier = ANY($3) AND is_active
		)
	`, userID, tag, tiersAtLeast(tier)).Scan(&exists)
	return exists, err
}

// GrantTagBadge records a tag badge for a user. It backs the seed tooling and
// tests; production badges come from the scorer.
func (d *DB) GrantTagBadge(ctx context.Context, userID uuid.UUID, tag string, tier models.BadgeTier) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO user_tag_badges (user_id, tag, tier)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tag, tier) DO UPDATE SET is_active = TRUE
	`, userID, tag, tier)
	return err
}
