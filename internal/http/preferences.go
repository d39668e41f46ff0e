package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/diagraph/accounts/internal/crypto"
	"github.com/diagraph/accounts/internal/model"
	"github.com/diagraph/accounts/internal/repository"
)

const (
	categoryMarketing      = "marketing"
	categoryProductUpdates = "product-updates"
)

type emailPreferencesResponse struct {
	MarketingEmails bool       `json:"marketingEmails"`
	ProductUpdates  bool       `json:"productUpdates"`
	UnsubscribedAt  *time.Time `json:"unsubscribedAt"`
}

func preferencesToResponse(p model.EmailPreferences) emailPreferencesResponse {
	return emailPreferencesResponse{
		MarketingEmails: p.MarketingEmail,
		ProductUpdates:  p.ProductUpdates,
		UnsubscribedAt:  p.UnsubscribedAt,
	}
}

// defaultPreferences is the opt-in state of a user who never touched their
// preferences; no row is written until the first mutation.
func defaultPreferences(userID string, now time.Time) model.EmailPreferences {
	return model.EmailPreferences{
		UserID:         userID,
		MarketingEmail: true,
		ProductUpdates: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *Server) handleGetEmailPreferences(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	prefs, err := s.store.GetEmailPreferences(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, preferencesToResponse(defaultPreferences(claims.UserID, nowUTC())))
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, preferencesToResponse(prefs))
}

type updatePreferencesRequest struct {
	MarketingEmails *bool `json:"marketingEmails"`
	ProductUpdates  *bool `json:"productUpdates"`
}

// handleUpdateEmailPreferences overlays the supplied fields on the stored
// values; a field left out of the request is never reset.
func (s *Server) handleUpdateEmailPreferences(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req updatePreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	now := nowUTC()
	prefs, err := s.store.GetEmailPreferences(r.Context(), claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		prefs = defaultPreferences(claims.UserID, now)
	}

	if req.MarketingEmails != nil {
		prefs.MarketingEmail = *req.MarketingEmails
	}
	if req.ProductUpdates != nil {
		prefs.ProductUpdates = *req.ProductUpdates
	}
	prefs.UserID = claims.UserID
	prefs.UnsubscribedAt = nil
	prefs.UpdatedAt = now
	if prefs.CreatedAt.IsZero() {
		prefs.CreatedAt = now
	}

	updated, err := s.store.UpsertEmailPreferences(r.Context(), prefs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, preferencesToResponse(updated))
}

type unsubscribeRequest struct {
	Token    string `json:"token"`
	Category string `json:"category"`
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	s.handleSubscriptionChange(w, r, false)
}

func (s *Server) handleResubscribe(w http.ResponseWriter, r *http.Request) {
	s.handleSubscriptionChange(w, r, true)
}

// handleSubscriptionChange is the shared unsubscribe/resubscribe path. The
// token decodes to an email; the named category flips to subscribed.
// unsubscribedAt is stamped on the first unsubscribe and never moved.
func (s *Server) handleSubscriptionChange(w http.ResponseWriter, r *http.Request, subscribed bool) {
	var req unsubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Category != categoryMarketing && req.Category != categoryProductUpdates {
		writeError(w, http.StatusBadRequest, "invalid_category")
		return
	}

	email, err := crypto.DecodeUnsubscribeToken(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_token")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := nowUTC()
	prefs, err := s.store.GetEmailPreferences(r.Context(), user.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		prefs = defaultPreferences(user.ID, now)
	}

	switch req.Category {
	case categoryMarketing:
		prefs.MarketingEmail = subscribed
	case categoryProductUpdates:
		prefs.ProductUpdates = subscribed
	}
	prefs.UserID = user.ID
	prefs.UpdatedAt = now
	if prefs.CreatedAt.IsZero() {
		prefs.CreatedAt = now
	}
	if subscribed {
		// Resubscribing leaves the original unsubscribe timestamp in place.
		prefs.UnsubscribedAt = nil
	} else {
		prefs.UnsubscribedAt = &now
	}

	updated, err := s.store.UpsertEmailPreferences(r.Context(), prefs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, preferencesToResponse(updated))
}
