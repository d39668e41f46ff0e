package repository

import (
	"context"
	"time"

	"github.com/diagraph/accounts/internal/model"
)

func (s *Postgres) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, name, image, plan, two_factor_enabled, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Image,
		&user.Plan,
		&user.TwoFactorEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, mapNotFound(err)
}

func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, name, image, plan, two_factor_enabled, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Image,
		&user.Plan,
		&user.TwoFactorEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, mapNotFound(err)
}

func (s *Postgres) UpdateUser(ctx context.Context, userID string, name string, image *string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $1, image = $2, updated_at = $3
		WHERE id = $4
		RETURNING id, email, name, image, plan, two_factor_enabled, created_at, updated_at
	`, name, image, time.Now().UTC(), userID)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Image,
		&user.Plan,
		&user.TwoFactorEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, mapNotFound(err)
}

func (s *Postgres) GetTwoFactorSecret(ctx context.Context, userID string) (string, error) {
	var secret string
	row := s.pool.QueryRow(ctx, `SELECT secret FROM two_factors WHERE user_id = $1`, userID)
	if err := row.Scan(&secret); err != nil {
		return "", mapNotFound(err)
	}
	return secret, nil
}
