// Package repository defines the persistence surface of the accounts service
// and its Postgres implementation. Handlers depend on the Store interface so
// tests can substitute an in-memory fake.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagraph/accounts/internal/model"
)

var (
	// ErrNotFound covers both absent rows and rows owned by someone else;
	// callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")
	// ErrDuplicatePending signals the one-pending-deletion-per-user constraint.
	ErrDuplicatePending = errors.New("pending deletion request exists")
	// ErrNotPending signals a process attempt on a terminal deletion request.
	ErrNotPending = errors.New("deletion request not pending")
)

type Store interface {
	// Users & second factor.
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UpdateUser(ctx context.Context, userID string, name string, image *string) (model.User, error)
	GetTwoFactorSecret(ctx context.Context, userID string) (string, error)

	// Profiles.
	EnsureProfile(ctx context.Context, profile model.Profile) (model.Profile, error)
	GetProfile(ctx context.Context, userID string) (model.Profile, error)

	// Graphs.
	CreateGraphWithinLimit(ctx context.Context, graph model.Graph, limit int) (bool, error)
	ListGraphs(ctx context.Context, userID string) ([]model.Graph, error)
	GetGraph(ctx context.Context, graphID, userID string) (model.Graph, error)
	UpdateGraph(ctx context.Context, graph model.Graph) (model.Graph, error)
	DeleteGraph(ctx context.Context, graphID, userID string) error
	CountGraphs(ctx context.Context, userID string) (int, error)

	// Node templates.
	CreateTemplateWithinLimit(ctx context.Context, template model.NodeTemplate, limit int) (bool, error)
	ListTemplates(ctx context.Context, userID string) ([]model.NodeTemplate, error)
	DeleteTemplate(ctx context.Context, templateID, userID string) error
	CountTemplates(ctx context.Context, userID string) (int, error)

	// Share tokens.
	CreateShareToken(ctx context.Context, token model.ShareToken) error
	ResolveSharedGraph(ctx context.Context, token string, now time.Time) (model.Graph, error)
	ListShareTokens(ctx context.Context, userID string) ([]model.ShareToken, error)
	DeleteShareToken(ctx context.Context, tokenID, userID string) error

	// Sessions (rows written by the identity provider, queried here).
	GetSession(ctx context.Context, sessionID string) (model.Session, error)
	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]model.Session, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
	DeleteOtherSessions(ctx context.Context, userID, currentSessionID string) (int64, error)

	// Email preferences.
	GetEmailPreferences(ctx context.Context, userID string) (model.EmailPreferences, error)
	UpsertEmailPreferences(ctx context.Context, prefs model.EmailPreferences) (model.EmailPreferences, error)

	// Linked accounts.
	ListOAuthAccounts(ctx context.Context, userID string) ([]model.OAuthAccount, error)

	// Deletion workflow.
	SubmitDeletionRequest(ctx context.Context, request model.DeletionRequest) (model.DeletionRequest, error)
	CancelDeletionRequest(ctx context.Context, userID string) error
	GetPendingDeletionRequest(ctx context.Context, userID string) (model.DeletionRequest, error)
	ListDeletionRequests(ctx context.Context) ([]model.DeletionRequest, error)
	ProcessDeletionRequest(ctx context.Context, requestID string, now time.Time) (model.DeletionRequest, error)

	// Housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredShareTokens(ctx context.Context, now time.Time) (int64, error)
}
