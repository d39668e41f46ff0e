package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagraph/accounts/internal/model"
	"github.com/diagraph/accounts/internal/repository"
)

func (s *Server) handleAdminListDeletions(w http.ResponseWriter, r *http.Request) {
	requests, err := s.store.ListDeletionRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]deletionRequestResponse, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, deletionToResponse(req))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAdminProcessDeletion is the only path that removes login capability:
// it deletes the principal row and lets the foreign keys cascade.
func (s *Server) handleAdminProcessDeletion(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	processed, err := s.store.ProcessDeletionRequest(r.Context(), requestID, nowUTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found")
		case errors.Is(err, repository.ErrNotPending):
			writeError(w, http.StatusBadRequest, terminalStatusCode(processed.Status))
		default:
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, deletionToResponse(processed))
}

func terminalStatusCode(status model.DeletionStatus) string {
	switch status {
	case model.DeletionProcessed:
		return "request_already_processed"
	case model.DeletionCancelled:
		return "request_already_cancelled"
	default:
		return "request_not_pending"
	}
}
