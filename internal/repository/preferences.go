package repository

import (
	"context"

	"github.com/diagraph/accounts/internal/model"
)

func (s *Postgres) GetEmailPreferences(ctx context.Context, userID string) (model.EmailPreferences, error) {
	var prefs model.EmailPreferences
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, marketing_emails, product_updates, unsubscribed_at, created_at, updated_at
		FROM email_preferences
		WHERE user_id = $1
	`, userID)
	err := row.Scan(
		&prefs.UserID,
		&prefs.MarketingEmail,
		&prefs.ProductUpdates,
		&prefs.UnsubscribedAt,
		&prefs.CreatedAt,
		&prefs.UpdatedAt,
	)
	return prefs, mapNotFound(err)
}

// UpsertEmailPreferences writes the final flag values. unsubscribed_at is
// stamped at most once: an existing timestamp always wins over the incoming
// one, and a nil incoming value leaves it untouched.
func (s *Postgres) UpsertEmailPreferences(ctx context.Context, prefs model.EmailPreferences) (model.EmailPreferences, error) {
	var out model.EmailPreferences
	row := s.pool.QueryRow(ctx, `
		INSERT INTO email_preferences (user_id, marketing_emails, product_updates, unsubscribed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET marketing_emails = EXCLUDED.marketing_emails,
		    product_updates = EXCLUDED.product_updates,
		    unsubscribed_at = COALESCE(email_preferences.unsubscribed_at, EXCLUDED.unsubscribed_at),
		    updated_at = EXCLUDED.updated_at
		RETURNING user_id, marketing_emails, product_updates, unsubscribed_at, created_at, updated_at
	`, prefs.UserID, prefs.MarketingEmail, prefs.ProductUpdates, prefs.UnsubscribedAt, prefs.CreatedAt, prefs.UpdatedAt)
	err := row.Scan(
		&out.UserID,
		&out.MarketingEmail,
		&out.ProductUpdates,
		&out.UnsubscribedAt,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	return out, err
}

func (s *Postgres) ListOAuthAccounts(ctx context.Context, userID string) ([]model.OAuthAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, provider_id, provider_account_id, created_at, updated_at
		FROM oauth_accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.OAuthAccount
	for rows.Next() {
		var a model.OAuthAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProviderID, &a.ProviderAccountID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
