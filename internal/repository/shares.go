package repository

import (
	"context"
	"time"

	"github.com/diagraph/accounts/internal/model"
)

func (s *Postgres) CreateShareToken(ctx context.Context, token model.ShareToken) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO share_tokens (id, graph_id, user_id, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, token.ID, token.GraphID, token.UserID, token.Token, token.CreatedAt, token.ExpiresAt)
	return err
}

// ResolveSharedGraph returns the shared graph for a live token. Expired and
// unknown tokens are indistinguishable.
func (s *Postgres) ResolveSharedGraph(ctx context.Context, token string, now time.Time) (model.Graph, error) {
	var g model.Graph
	row := s.pool.QueryRow(ctx, `
		SELECT g.id, g.user_id, g.title, g.data, g.created_at, g.updated_at
		FROM share_tokens st
		JOIN graphs g ON g.id = st.graph_id
		WHERE st.token = $1 AND st.expires_at > $2
	`, token, now)
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Data, &g.CreatedAt, &g.UpdatedAt)
	return g, mapNotFound(err)
}

func (s *Postgres) ListShareTokens(ctx context.Context, userID string) ([]model.ShareToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT st.id, st.graph_id, st.user_id, st.token, st.created_at, st.expires_at, g.title
		FROM share_tokens st
		JOIN graphs g ON g.id = st.graph_id
		WHERE st.user_id = $1
		ORDER BY st.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []model.ShareToken
	for rows.Next() {
		var t model.ShareToken
		if err := rows.Scan(&t.ID, &t.GraphID, &t.UserID, &t.Token, &t.CreatedAt, &t.ExpiresAt, &t.GraphTitle); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *Postgres) DeleteShareToken(ctx context.Context, tokenID, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM share_tokens WHERE id = $1 AND user_id = $2`, tokenID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteExpiredShareTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM share_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
