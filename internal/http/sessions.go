package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagraph/accounts/internal/repository"
)

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserAgent *string   `json:"userAgent"`
	IPAddress *string   `json:"ipAddress"`
	Location  *string   `json:"location"`
	IsCurrent bool      `json:"isCurrent"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	sessions, err := s.store.ListActiveSessions(r.Context(), claims.UserID, nowUTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		entry := sessionResponse{
			ID:        sess.ID,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
			UserAgent: sess.UserAgent,
			IPAddress: sess.IPAddress,
			IsCurrent: sess.ID == claims.SessionID,
		}
		if sess.IPAddress != nil {
			if loc := s.locator.Locate(r.Context(), *sess.IPAddress); loc != "" {
				entry.Location = &loc
			}
		}
		resp = append(resp, entry)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	// The current session ends through sign-out, never through this path.
	if sessionID == claims.SessionID {
		writeError(w, http.StatusBadRequest, "invalid_operation")
		return
	}

	if err := s.store.DeleteSession(r.Context(), sessionID, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *Server) handleRevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	revoked, err := s.store.DeleteOtherSessions(r.Context(), claims.UserID, claims.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"revoked": revoked})
}
