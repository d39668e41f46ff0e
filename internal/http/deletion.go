package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/diagraph/accounts/internal/model"
	"github.com/diagraph/accounts/internal/repository"
)

type submitDeletionRequest struct {
	Reason             string `json:"reason"`
	AdditionalFeedback string `json:"additionalFeedback"`
	TOTPCode           string `json:"totpCode"`
}

type deletionRequestResponse struct {
	ID          string     `json:"id"`
	UserID      *string    `json:"userId,omitempty"`
	Email       string     `json:"email"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt"`
}

func deletionToResponse(req model.DeletionRequest) deletionRequestResponse {
	return deletionRequestResponse{
		ID:          req.ID,
		UserID:      req.UserID,
		Email:       req.Email,
		Reason:      req.Reason,
		Status:      string(req.Status),
		CreatedAt:   req.CreatedAt,
		ProcessedAt: req.ProcessedAt,
	}
}

// handleSubmitDeletion gates the request on the second factor when the user
// has one, then purges content (graphs, share tokens, email preferences) and
// records the pending request in one transaction. Identity and login survive
// until an administrator processes the request.
func (s *Server) handleSubmitDeletion(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req submitDeletionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if user.TwoFactorEnabled {
		if req.TOTPCode == "" {
			writeError(w, http.StatusBadRequest, "two_factor_required")
			return
		}
		secret, err := s.store.GetTwoFactorSecret(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_two_factor_code")
			return
		}
		if !verifyTOTP(req.TOTPCode, secret) {
			writeError(w, http.StatusBadRequest, "invalid_two_factor_code")
			return
		}
	}

	userID := claims.UserID
	request := model.DeletionRequest{
		ID:        uuid.NewString(),
		UserID:    &userID,
		Email:     user.Email,
		Reason:    auditReason(req.Reason, req.AdditionalFeedback),
		Status:    model.DeletionPending,
		CreatedAt: nowUTC(),
	}

	created, err := s.store.SubmitDeletionRequest(r.Context(), request)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			writeError(w, http.StatusBadRequest, "pending_request_exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, deletionToResponse(created))
}

// verifyTOTP accepts codes one step either side of now to absorb clock drift.
func verifyTOTP(code, secret string) bool {
	valid, err := totp.ValidateCustom(code, secret, nowUTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}

func auditReason(reason, feedback string) string {
	parts := make([]string, 0, 2)
	if v := strings.TrimSpace(reason); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(feedback); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, "; ")
}

// handleCancelDeletion is idempotent: cancelling with nothing pending is
// still a success.
func (s *Server) handleCancelDeletion(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	if err := s.store.CancelDeletionRequest(r.Context(), claims.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleDeletionStatus(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	request, err := s.store.GetPendingDeletionRequest(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"hasPendingRequest": false})
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hasPendingRequest": true,
		"request":           deletionToResponse(request),
	})
}
