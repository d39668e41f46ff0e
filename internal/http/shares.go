package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/diagraph/accounts/internal/crypto"
	"github.com/diagraph/accounts/internal/model"
	"github.com/diagraph/accounts/internal/repository"
)

type shareLinkResponse struct {
	ID         string    `json:"id"`
	GraphID    string    `json:"graphId"`
	GraphTitle string    `json:"graphTitle"`
	Token      string    `json:"token"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (s *Server) handleCreateShareToken(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	graphID := chi.URLParam(r, "graphID")

	// Ownership check doubles as the existence check.
	if _, err := s.store.GetGraph(r.Context(), graphID, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	token, err := crypto.NewShareToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := nowUTC()
	share := model.ShareToken{
		ID:        uuid.NewString(),
		GraphID:   graphID,
		UserID:    claims.UserID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ShareTokenTTL),
	}
	if err := s.store.CreateShareToken(r.Context(), share); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":     share.Token,
		"expiresAt": share.ExpiresAt,
	})
}

// handleResolveShare is public: possession of a live token is the only
// credential. The projection leaves out the owner.
func (s *Server) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	graph, err := s.store.ResolveSharedGraph(r.Context(), token, nowUTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        graph.ID,
		"title":     graph.Title,
		"data":      json.RawMessage(graph.Data),
		"createdAt": graph.CreatedAt,
		"updatedAt": graph.UpdatedAt,
	})
}

func (s *Server) handleListShareLinks(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	tokens, err := s.store.ListShareTokens(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]shareLinkResponse, 0, len(tokens))
	for _, t := range tokens {
		resp = append(resp, shareLinkResponse{
			ID:         t.ID,
			GraphID:    t.GraphID,
			GraphTitle: t.GraphTitle,
			Token:      t.Token,
			CreatedAt:  t.CreatedAt,
			ExpiresAt:  t.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeShareLink(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	linkID := chi.URLParam(r, "linkID")

	if err := s.store.DeleteShareToken(r.Context(), linkID, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
