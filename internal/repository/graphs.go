package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/diagraph/accounts/internal/model"
	"github.com/diagraph/accounts/internal/quota"
)

// CreateGraphWithinLimit inserts the graph only while the owner holds fewer
// than limit graphs. A per-user advisory lock serializes concurrent creates,
// so the ceiling is never exceeded.
func (s *Postgres) CreateGraphWithinLimit(ctx context.Context, graph model.Graph, limit int) (bool, error) {
	inserted := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockUserResource(ctx, tx, quota.KindGraph, graph.UserID); err != nil {
			return err
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM graphs WHERE user_id = $1`, graph.UserID).Scan(&count); err != nil {
			return err
		}
		if count >= limit {
			return nil
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO graphs (id, user_id, title, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, graph.ID, graph.UserID, graph.Title, graph.Data, graph.CreatedAt, graph.UpdatedAt)
		if err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// lockUserResource takes a transaction-scoped advisory lock keyed on the
// resource kind and owner, serializing quota-guarded inserts per user.
func lockUserResource(ctx context.Context, tx pgx.Tx, kind quota.Kind, userID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, string(kind)+":"+userID)
	return err
}

func (s *Postgres) ListGraphs(ctx context.Context, userID string) ([]model.Graph, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, data, created_at, updated_at
		FROM graphs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var graphs []model.Graph
	for rows.Next() {
		var g model.Graph
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Data, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, rows.Err()
}

func (s *Postgres) GetGraph(ctx context.Context, graphID, userID string) (model.Graph, error) {
	var g model.Graph
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, data, created_at, updated_at
		FROM graphs
		WHERE id = $1 AND user_id = $2
	`, graphID, userID)
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Data, &g.CreatedAt, &g.UpdatedAt)
	return g, mapNotFound(err)
}

func (s *Postgres) UpdateGraph(ctx context.Context, graph model.Graph) (model.Graph, error) {
	var g model.Graph
	row := s.pool.QueryRow(ctx, `
		UPDATE graphs
		SET title = $1, data = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
		RETURNING id, user_id, title, data, created_at, updated_at
	`, graph.Title, graph.Data, time.Now().UTC(), graph.ID, graph.UserID)
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Data, &g.CreatedAt, &g.UpdatedAt)
	return g, mapNotFound(err)
}

func (s *Postgres) DeleteGraph(ctx context.Context, graphID, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM graphs WHERE id = $1 AND user_id = $2`, graphID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CountGraphs(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM graphs WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}
