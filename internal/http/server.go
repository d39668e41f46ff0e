package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/diagraph/accounts/internal/auth"
	"github.com/diagraph/accounts/internal/config"
	"github.com/diagraph/accounts/internal/geo"
	"github.com/diagraph/accounts/internal/quota"
	"github.com/diagraph/accounts/internal/repository"
)

type Server struct {
	cfg     config.Config
	store   repository.Store
	locator *geo.Locator
	limits  quota.Limits
	logger  *slog.Logger
}

func NewServer(cfg config.Config, store repository.Store, locator *geo.Locator, limits quota.Limits, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		locator: locator,
		limits:  limits,
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/share/{token}", s.handleResolveShare)
	r.Post("/unsubscribe", s.handleUnsubscribe)
	r.Post("/unsubscribe/resubscribe", s.handleResubscribe)

	r.With(s.authMiddleware).Post("/graphs", s.handleCreateGraph)
	r.With(s.authMiddleware).Get("/graphs", s.handleListGraphs)
	r.With(s.authMiddleware).Get("/graphs/{graphID}", s.handleGetGraph)
	r.With(s.authMiddleware).Put("/graphs/{graphID}", s.handleUpdateGraph)
	r.With(s.authMiddleware).Delete("/graphs/{graphID}", s.handleDeleteGraph)
	r.With(s.authMiddleware).Post("/graphs/{graphID}/share", s.handleCreateShareToken)

	r.With(s.authMiddleware).Post("/node-templates", s.handleCreateTemplate)
	r.With(s.authMiddleware).Get("/node-templates", s.handleListTemplates)
	r.With(s.authMiddleware).Delete("/node-templates/{templateID}", s.handleDeleteTemplate)

	r.With(s.authMiddleware).Get("/share-links", s.handleListShareLinks)
	r.With(s.authMiddleware).Delete("/share-links/{linkID}", s.handleRevokeShareLink)

	r.With(s.authMiddleware).Get("/sessions", s.handleListSessions)
	r.With(s.authMiddleware).Delete("/sessions/{sessionID}", s.handleRevokeSession)
	r.With(s.authMiddleware).Delete("/sessions", s.handleRevokeOtherSessions)

	r.With(s.authMiddleware).Get("/profile", s.handleGetProfile)
	r.With(s.authMiddleware).Patch("/profile", s.handleUpdateProfile)
	r.With(s.authMiddleware).Get("/profile/email-preferences", s.handleGetEmailPreferences)
	r.With(s.authMiddleware).Put("/profile/email-preferences", s.handleUpdateEmailPreferences)
	r.With(s.authMiddleware).Get("/profile/data-export", s.handleDataExport)

	r.With(s.authMiddleware).Post("/profile/deletion-request", s.handleSubmitDeletion)
	r.With(s.authMiddleware).Delete("/profile/deletion-request", s.handleCancelDeletion)
	r.With(s.authMiddleware).Get("/profile/deletion-request", s.handleDeletionStatus)

	r.Route("/admin", func(r chi.Router) {
		r.With(s.requireAdminKey).Get("/deletion-requests", s.handleAdminListDeletions)
		r.With(s.requireAdminKey).Post("/deletion-requests/{requestID}/process", s.handleAdminProcessDeletion)
	})

	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", clientIP(r),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// authMiddleware resolves the bearer token to a live session row. A valid
// signature is not enough: the sid claim must still name an unexpired
// session, so revocation takes effect on the next request.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.SessionJWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		session, err := s.store.GetSession(r.Context(), claims.SessionID)
		if err != nil || session.UserID != claims.UserID {
			writeError(w, http.StatusUnauthorized, "invalid_session")
			return
		}
		if !session.ExpiresAt.After(nowUTC()) {
			writeError(w, http.StatusUnauthorized, "session_expired")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdminKey gates the administrative surface on a static header. An
// unconfigured key disables the surface entirely rather than opening it.
func (s *Server) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminAPIKey == "" {
			writeError(w, http.StatusServiceUnavailable, "admin_disabled")
			return
		}
		key := r.Header.Get("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.AdminAPIKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid_admin_key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
