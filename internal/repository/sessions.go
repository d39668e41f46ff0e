package repository

import (
	"context"
	"time"

	"github.com/diagraph/accounts/internal/model"
)

func (s *Postgres) GetSession(ctx context.Context, sessionID string) (model.Session, error) {
	var session model.Session
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, created_at, updated_at, expires_at, user_agent, ip_address
		FROM sessions
		WHERE id = $1
	`, sessionID)
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.ExpiresAt,
		&session.UserAgent,
		&session.IPAddress,
	)
	return session, mapNotFound(err)
}

func (s *Postgres) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]model.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, token_hash, created_at, updated_at, expires_at, user_agent, ip_address
		FROM sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at ASC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.CreatedAt, &sess.UpdatedAt, &sess.ExpiresAt, &sess.UserAgent, &sess.IPAddress); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Postgres) DeleteSession(ctx context.Context, sessionID, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteOtherSessions(ctx context.Context, userID, currentSessionID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND id <> $2`, userID, currentSessionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Postgres) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
