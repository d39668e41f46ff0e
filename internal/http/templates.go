package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/diagraph/accounts/internal/model"
	"github.com/diagraph/accounts/internal/quota"
	"github.com/diagraph/accounts/internal/repository"
)

type createTemplateRequest struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

type templateResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func templateToResponse(t model.NodeTemplate) templateResponse {
	return templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Data:      json.RawMessage(t.Data),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Name == "" || len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	used, limit, plan, err := s.templateQuota(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if used >= limit {
		writeQuotaExceeded(w, quota.Snapshot{Used: used, Max: limit, Plan: plan})
		return
	}

	now := nowUTC()
	template := model.NodeTemplate{
		ID:        uuid.NewString(),
		UserID:    claims.UserID,
		Name:      req.Name,
		Data:      []byte(req.Data),
		CreatedAt: now,
		UpdatedAt: now,
	}

	inserted, err := s.store.CreateTemplateWithinLimit(r.Context(), template, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !inserted {
		used = limit
		if n, cerr := s.store.CountTemplates(r.Context(), claims.UserID); cerr == nil {
			used = n
		}
		writeQuotaExceeded(w, quota.Snapshot{Used: used, Max: limit, Plan: plan})
		return
	}

	writeJSON(w, http.StatusCreated, templateToResponse(template))
}

// templateQuota reads the owner's template count and the plan-table ceiling
// concurrently. Template limits come from the plan tier, not the profile row.
func (s *Server) templateQuota(ctx context.Context, userID string) (used, limit int, plan string, err error) {
	type countResult struct {
		n   int
		err error
	}
	countCh := make(chan countResult, 1)
	go func() {
		n, err := s.store.CountTemplates(ctx, userID)
		countCh <- countResult{n, err}
	}()

	user, uerr := s.store.GetUserByID(ctx, userID)
	if uerr != nil {
		<-countCh
		return 0, 0, "", uerr
	}

	res := <-countCh
	if res.err != nil {
		return 0, 0, "", res.err
	}
	return res.n, s.limits.TemplateLimit(user.Plan), user.Plan, nil
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	templates, err := s.store.ListTemplates(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, templateToResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	templateID := chi.URLParam(r, "templateID")

	if err := s.store.DeleteTemplate(r.Context(), templateID, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
