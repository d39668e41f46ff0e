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

type createGraphRequest struct {
	Title string          `json:"title"`
	Data  json.RawMessage `json:"data"`
}

type updateGraphRequest struct {
	Title string          `json:"title"`
	Data  json.RawMessage `json:"data"`
}

type graphResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func graphToResponse(g model.Graph) graphResponse {
	return graphResponse{
		ID:        g.ID,
		Title:     g.Title,
		Data:      json.RawMessage(g.Data),
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req createGraphRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if len(req.Data) == 0 {
		req.Data = json.RawMessage(`{}`)
	}

	used, limit, plan, err := s.graphQuota(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if used >= limit {
		writeQuotaExceeded(w, quota.Snapshot{Used: used, Max: limit, Plan: plan})
		return
	}

	now := nowUTC()
	graph := model.Graph{
		ID:        uuid.NewString(),
		UserID:    claims.UserID,
		Title:     req.Title,
		Data:      []byte(req.Data),
		CreatedAt: now,
		UpdatedAt: now,
	}

	inserted, err := s.store.CreateGraphWithinLimit(r.Context(), graph, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !inserted {
		// Lost the race to a concurrent create; report the live count.
		used = limit
		if n, cerr := s.store.CountGraphs(r.Context(), claims.UserID); cerr == nil {
			used = n
		}
		writeQuotaExceeded(w, quota.Snapshot{Used: used, Max: limit, Plan: plan})
		return
	}

	writeJSON(w, http.StatusCreated, graphToResponse(graph))
}

// graphQuota reads the owner's current count and plan ceiling. The two reads
// touch disjoint tables and run concurrently.
func (s *Server) graphQuota(ctx context.Context, userID string) (used, limit int, plan string, err error) {
	type countResult struct {
		n   int
		err error
	}
	countCh := make(chan countResult, 1)
	go func() {
		n, err := s.store.CountGraphs(ctx, userID)
		countCh <- countResult{n, err}
	}()

	maxGraphs := 0
	plan = model.PlanFree
	profile, perr := s.store.GetProfile(ctx, userID)
	switch {
	case perr == nil:
		maxGraphs = profile.MaxGraphs
		plan = profile.Plan
	case errors.Is(perr, repository.ErrNotFound):
		// No profile row yet; plan defaults apply.
	default:
		<-countCh
		return 0, 0, "", perr
	}

	res := <-countCh
	if res.err != nil {
		return 0, 0, "", res.err
	}
	return res.n, s.limits.GraphLimit(maxGraphs), plan, nil
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	graphs, err := s.store.ListGraphs(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]graphResponse, 0, len(graphs))
	for _, g := range graphs {
		resp = append(resp, graphToResponse(g))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	graphID := chi.URLParam(r, "graphID")

	graph, err := s.store.GetGraph(r.Context(), graphID, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, graphToResponse(graph))
}

func (s *Server) handleUpdateGraph(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	graphID := chi.URLParam(r, "graphID")

	var req updateGraphRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Title == "" || len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	graph, err := s.store.UpdateGraph(r.Context(), model.Graph{
		ID:     graphID,
		UserID: claims.UserID,
		Title:  req.Title,
		Data:   []byte(req.Data),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, graphToResponse(graph))
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	graphID := chi.URLParam(r, "graphID")

	if err := s.store.DeleteGraph(r.Context(), graphID, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeQuotaExceeded(w http.ResponseWriter, snapshot quota.Snapshot) {
	writeJSON(w, http.StatusForbidden, map[string]interface{}{
		"error": "quota_exceeded",
		"used":  snapshot.Used,
		"max":   snapshot.Max,
		"plan":  snapshot.Plan,
	})
}
