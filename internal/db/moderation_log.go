package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// InsertModerationLog appends an audit entry.
func (d *Queries) InsertModerationLog(ctx context.Context, e *models.ModerationLogEntry) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode log details: %w", err)
	}

	return d.q.QueryRow(ctx, `
		INSERT INTO moderation_log (actor_id, action, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, e.ActorID, e.Action, e.TargetType, e.TargetID, raw).Scan(&e.ID, &e.CreatedAt)
}

// GetModerationLog returns the audit entries for a target, newest first.
func (d *Queries) GetModerationLog(ctx context.Context, targetType string, targetID uuid.UUID, limit int) ([]models.ModerationLogEntry, error) {
	rows, err := d.q.Query(ctx, `
		SELECT id, actor_id, action, target_type, target_id, details, created_at
		FROM moderation_log
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, targetType, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ModerationLogEntry
	for rows.Next() {
		var e models.ModerationLogEntry
		var raw []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &e.Details); err != nil {
			return nil, fmt.Errorf("failed to decode log details: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
