package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/diagraph/accounts/internal/model"
	"github.com/diagraph/accounts/internal/quota"
)

func (s *Postgres) CreateTemplateWithinLimit(ctx context.Context, template model.NodeTemplate, limit int) (bool, error) {
	inserted := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockUserResource(ctx, tx, quota.KindNodeTemplate, template.UserID); err != nil {
			return err
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM node_templates WHERE user_id = $1`, template.UserID).Scan(&count); err != nil {
			return err
		}
		if count >= limit {
			return nil
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO node_templates (id, user_id, name, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, template.ID, template.UserID, template.Name, template.Data, template.CreatedAt, template.UpdatedAt)
		if err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (s *Postgres) ListTemplates(ctx context.Context, userID string) ([]model.NodeTemplate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, data, created_at, updated_at
		FROM node_templates
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []model.NodeTemplate
	for rows.Next() {
		var t model.NodeTemplate
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Data, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *Postgres) DeleteTemplate(ctx context.Context, templateID, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM node_templates WHERE id = $1 AND user_id = $2`, templateID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CountTemplates(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM node_templates WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}
