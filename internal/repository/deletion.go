package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/diagraph/accounts/internal/model"
)

// SubmitDeletionRequest records a pending request and purges the user's
// content in one transaction. The pending row is inserted first so the
// partial unique index rejects a duplicate before anything is deleted;
// graphs (share tokens cascade) and email preferences go with it, identity
// and login stay until the administrative step.
func (s *Postgres) SubmitDeletionRequest(ctx context.Context, request model.DeletionRequest) (model.DeletionRequest, error) {
	var out model.DeletionRequest
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO deletion_requests (id, user_id, email, reason, status, created_at, processed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, user_id, email, reason, status, created_at, processed_at
		`, request.ID, request.UserID, request.Email, request.Reason, request.Status, request.CreatedAt, request.ProcessedAt)
		if err := row.Scan(&out.ID, &out.UserID, &out.Email, &out.Reason, &out.Status, &out.CreatedAt, &out.ProcessedAt); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicatePending
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM graphs WHERE user_id = $1`, request.UserID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM email_preferences WHERE user_id = $1`, request.UserID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return model.DeletionRequest{}, err
	}
	return out, nil
}

// CancelDeletionRequest flips the newest pending request to cancelled.
// No pending request is not an error.
func (s *Postgres) CancelDeletionRequest(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE deletion_requests
		SET status = $1
		WHERE id = (
			SELECT id FROM deletion_requests
			WHERE user_id = $2 AND status = $3
			ORDER BY created_at DESC
			LIMIT 1
		)
	`, model.DeletionCancelled, userID, model.DeletionPending)
	return err
}

func (s *Postgres) GetPendingDeletionRequest(ctx context.Context, userID string) (model.DeletionRequest, error) {
	var req model.DeletionRequest
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, email, reason, status, created_at, processed_at
		FROM deletion_requests
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, model.DeletionPending)
	err := row.Scan(&req.ID, &req.UserID, &req.Email, &req.Reason, &req.Status, &req.CreatedAt, &req.ProcessedAt)
	return req, mapNotFound(err)
}

func (s *Postgres) ListDeletionRequests(ctx context.Context) ([]model.DeletionRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, email, reason, status, created_at, processed_at
		FROM deletion_requests
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []model.DeletionRequest
	for rows.Next() {
		var req model.DeletionRequest
		if err := rows.Scan(&req.ID, &req.UserID, &req.Email, &req.Reason, &req.Status, &req.CreatedAt, &req.ProcessedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ProcessDeletionRequest removes the principal (cascading sessions, linked
// accounts, second factor, remaining resources and profile) and marks the
// request processed. The row lock keeps two administrators from processing
// the same request. A request whose user is already gone is marked processed
// without further effect; ErrNotPending carries the row so callers can name
// the terminal status.
func (s *Postgres) ProcessDeletionRequest(ctx context.Context, requestID string, now time.Time) (model.DeletionRequest, error) {
	var out model.DeletionRequest
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var req model.DeletionRequest
		row := tx.QueryRow(ctx, `
			SELECT id, user_id, email, reason, status, created_at, processed_at
			FROM deletion_requests
			WHERE id = $1
			FOR UPDATE
		`, requestID)
		if err := row.Scan(&req.ID, &req.UserID, &req.Email, &req.Reason, &req.Status, &req.CreatedAt, &req.ProcessedAt); err != nil {
			return mapNotFound(err)
		}
		if req.Status != model.DeletionPending {
			out = req
			return ErrNotPending
		}
		if req.UserID != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, *req.UserID); err != nil {
				return err
			}
		}
		updated := tx.QueryRow(ctx, `
			UPDATE deletion_requests
			SET status = $1, processed_at = $2
			WHERE id = $3
			RETURNING id, user_id, email, reason, status, created_at, processed_at
		`, model.DeletionProcessed, now, requestID)
		return updated.Scan(&out.ID, &out.UserID, &out.Email, &out.Reason, &out.Status, &out.CreatedAt, &out.ProcessedAt)
	})
	if err != nil {
		return out, err
	}
	return out, nil
}
