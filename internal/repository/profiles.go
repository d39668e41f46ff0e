package repository

import (
	"context"

	"github.com/diagraph/accounts/internal/model"
)

func (s *Postgres) EnsureProfile(ctx context.Context, profile model.Profile) (model.Profile, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, plan, max_graphs, retention_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
	`, profile.UserID, profile.Plan, profile.MaxGraphs, profile.RetentionDays, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return model.Profile{}, err
	}
	return s.GetProfile(ctx, profile.UserID)
}

func (s *Postgres) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	var profile model.Profile
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, plan, max_graphs, retention_days, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`, userID)
	err := row.Scan(
		&profile.UserID,
		&profile.Plan,
		&profile.MaxGraphs,
		&profile.RetentionDays,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	return profile, mapNotFound(err)
}
