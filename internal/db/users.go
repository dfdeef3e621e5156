package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"qamod/internal/models"
)

const userColumns = `id, sub, name, reputation, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Sub, &user.Name, &user.Reputation, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUser creates or updates a user based on their OIDC subject.
func (d *Queries) UpsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (sub, name)
		VALUES ($1, $2)
		ON CONFLICT (sub) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, reputation, created_at
	`
	return d.q.QueryRow(ctx, query, user.Sub, user.Name).Scan(&user.ID, &user.Reputation, &user.CreatedAt)
}

// GetUser retrieves a user by ID.
func (d *Queries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(d.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// LockUser retrieves a user by ID and locks the row for the rest of the transaction.
func (d *Queries) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(d.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

// GetUserBySub retrieves a user by their OIDC subject identifier.
func (d *Queries) GetUserBySub(ctx context.Context, sub string) (*models.User, error) {
	return scanUser(d.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE sub = $1`, sub))
}
