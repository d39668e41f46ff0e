package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/diagraph/accounts/internal/model"
	"github.com/diagraph/accounts/internal/repository"
)

type userSummary struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Image            *string   `json:"image"`
	Plan             string    `json:"plan"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
}

type profileSummary struct {
	Plan          string    `json:"plan"`
	MaxGraphs     int       `json:"maxGraphs"`
	RetentionDays int       `json:"retentionDays"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type linkedAccountResponse struct {
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func userToSummary(u model.User) userSummary {
	return userSummary{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Image:            u.Image,
		Plan:             u.Plan,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
	}
}

func profileToSummary(p model.Profile) profileSummary {
	return profileSummary{
		Plan:          p.Plan,
		MaxGraphs:     p.MaxGraphs,
		RetentionDays: p.RetentionDays,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func linkedAccountsToResponse(accounts []model.OAuthAccount) []linkedAccountResponse {
	resp := make([]linkedAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, linkedAccountResponse{
			Provider:  a.ProviderID,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		})
	}
	return resp
}

// defaultProfile is what a user without a profile row looks like; it is also
// the row EnsureProfile lazily inserts on first read.
func (s *Server) defaultProfile(user model.User, now time.Time) model.Profile {
	return model.Profile{
		UserID:        user.ID,
		Plan:          user.Plan,
		MaxGraphs:     s.limits.DefaultGraphs,
		RetentionDays: 30,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	fallback := s.defaultProfile(user, nowUTC())
	profile := fetchOr(r.Context(), s.logger, "profile", fallback, func(ctx context.Context) (model.Profile, error) {
		return s.store.EnsureProfile(ctx, fallback)
	})
	accounts := fetchOr(r.Context(), s.logger, "linked_accounts", nil, func(ctx context.Context) ([]model.OAuthAccount, error) {
		return s.store.ListOAuthAccounts(ctx, claims.UserID)
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":           userToSummary(user),
		"profile":        profileToSummary(profile),
		"linkedAccounts": linkedAccountsToResponse(accounts),
	})
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Image *string `json:"image"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req updateProfileRequest
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

	name := user.Name
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		name = strings.TrimSpace(*req.Name)
	}

	image := user.Image
	if req.Image != nil {
		switch {
		case *req.Image == "":
			image = nil
		case isValidImageURL(*req.Image):
			image = req.Image
		default:
			writeError(w, http.StatusBadRequest, "invalid_image_url")
			return
		}
	}

	updated, err := s.store.UpdateUser(r.Context(), claims.UserID, name, image)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, userToSummary(updated))
}

func isValidImageURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// handleDataExport assembles every section concurrently; a failing section
// degrades to empty instead of failing the export.
func (s *Server) handleDataExport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := nowUTC()
	var (
		wg       sync.WaitGroup
		profile  model.Profile
		prefs    model.EmailPreferences
		accounts []model.OAuthAccount
		graphs   []model.Graph
		shares   []model.ShareToken
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		profile = fetchOr(r.Context(), s.logger, "export_profile", s.defaultProfile(user, now), func(ctx context.Context) (model.Profile, error) {
			return s.store.GetProfile(ctx, claims.UserID)
		})
	}()
	go func() {
		defer wg.Done()
		prefs = fetchOr(r.Context(), s.logger, "export_preferences", defaultPreferences(claims.UserID, now), func(ctx context.Context) (model.EmailPreferences, error) {
			return s.store.GetEmailPreferences(ctx, claims.UserID)
		})
	}()
	go func() {
		defer wg.Done()
		accounts = fetchOr(r.Context(), s.logger, "export_linked_accounts", nil, func(ctx context.Context) ([]model.OAuthAccount, error) {
			return s.store.ListOAuthAccounts(ctx, claims.UserID)
		})
	}()
	go func() {
		defer wg.Done()
		graphs = fetchOr(r.Context(), s.logger, "export_graphs", nil, func(ctx context.Context) ([]model.Graph, error) {
			return s.store.ListGraphs(ctx, claims.UserID)
		})
	}()
	go func() {
		defer wg.Done()
		shares = fetchOr(r.Context(), s.logger, "export_share_links", nil, func(ctx context.Context) ([]model.ShareToken, error) {
			return s.store.ListShareTokens(ctx, claims.UserID)
		})
	}()
	wg.Wait()

	graphSection := make([]graphResponse, 0, len(graphs))
	for _, g := range graphs {
		graphSection = append(graphSection, graphToResponse(g))
	}
	shareSection := make([]shareLinkResponse, 0, len(shares))
	for _, t := range shares {
		shareSection = append(shareSection, shareLinkResponse{
			ID:         t.ID,
			GraphID:    t.GraphID,
			GraphTitle: t.GraphTitle,
			Token:      t.Token,
			CreatedAt:  t.CreatedAt,
			ExpiresAt:  t.ExpiresAt,
		})
	}

	filename := fmt.Sprintf("%s-data-export-%s.json", slugify(user.Name), now.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exportedAt":       now,
		"user":             userToSummary(user),
		"profile":          profileToSummary(profile),
		"emailPreferences": preferencesToResponse(prefs),
		"linkedAccounts":   linkedAccountsToResponse(accounts),
		"graphs":           graphSection,
		"shareLinks":       shareSection,
	})
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "account"
	}
	return slug
}
