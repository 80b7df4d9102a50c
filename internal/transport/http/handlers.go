// Copyright 2026 The Agora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agoramarket/agora/internal/audit"
	"github.com/agoramarket/agora/internal/authz"
	"github.com/agoramarket/agora/internal/errs"
	"github.com/agoramarket/agora/internal/id"
	"github.com/agoramarket/agora/internal/identity"
	"github.com/agoramarket/agora/internal/observability/metrics"
	"github.com/agoramarket/agora/internal/ratelimit"
	"github.com/agoramarket/agora/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	tokenService    *token.Service
	guard           *authz.Guard
	auditLogger     audit.Logger
	metrics         *metrics.AuthMetrics
}

// NewHandler creates a new HTTP handler. metrics may be nil in tests.
func NewHandler(
	identityService *identity.Service,
	tokenService *token.Service,
	guard *authz.Guard,
	auditLogger audit.Logger,
	authMetrics *metrics.AuthMetrics,
) *Handler {
	return &Handler{
		identityService: identityService,
		tokenService:    tokenService,
		guard:           guard,
		auditLogger:     auditLogger,
		metrics:         authMetrics,
	}
}

// NewRouter creates a new HTTP router. The general limiter covers every
// route; the login limiter stacks on top of it for the credential-check
// endpoint only.
func NewRouter(h *Handler, general, login *ratelimit.Limiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(h.RateLimitMiddleware(general))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", h.Register)
		r.With(h.RateLimitMiddleware(login)).Post("/users/authenticate", h.Authenticate)
		// Profile lookup is public; it only ever serves the public
		// projection.
		r.Get("/users/{id}", h.GetUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/users/me", h.Me)
			r.Put("/users/{id}/password", h.ChangePassword)

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.RequireRole(authz.RoleAdmin))
				r.Post("/users/{id}/unlock", h.Unlock)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "agora",
	})
}

// RegisterRequest represents registration data
type RegisterRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	PGPPublicKey string `json:"pgp_public_key,omitempty"`
}

// Register handles account creation. Every self-registered account is a
// buyer.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errs.Validation("invalid request body"))
		return
	}

	user, err := h.identityService.Register(r.Context(), req.Username, req.Password, req.PGPPublicKey)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user.Public())
}

// AuthenticateRequest represents login credentials
type AuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthenticateResponse carries the issued token and the authenticated
// user's public profile.
type AuthenticateResponse struct {
	AccessToken string              `json:"access_token"`
	User        identity.PublicUser `json:"user"`
}

// Authenticate handles login: credential check, then token issuance.
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errs.Validation("invalid request body"))
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	accessToken, err := h.tokenService.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssued.Add(r.Context(), 1)
	}
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:     audit.TypeTokenIssued,
		ActorID:  user.ID,
		Resource: "token",
	})

	respondJSON(w, http.StatusOK, AuthenticateResponse{
		AccessToken: accessToken,
		User:        user.Public(),
	})
}

// Me returns the authenticated user's own profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	if err := h.guard.RequireIdentity(r.Context(), ident); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.identityService.GetByID(r.Context(), ident.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user.Public())
}

// GetUser returns a user's public profile by ID.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.identityService.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user.Public())
}

// ChangePasswordRequest carries the credential rotation payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword rotates a user's password. Only the account owner or an
// admin may do this, and the old password must verify first.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.guard.RequireOwnership(r.Context(), GetIdentity(r.Context()), userID); err != nil {
		respondError(w, r, err)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errs.Validation("invalid request body"))
		return
	}

	if err := h.identityService.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Unlock clears an account's lock state. Admin only; the role gate sits in
// the router.
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ident := GetIdentity(r.Context())
	if err := h.guard.RequireIdentity(r.Context(), ident); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.identityService.Unlock(r.Context(), ident.UserID, userID); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "account unlocked"})
}

// pathID extracts and validates the {id} URL parameter.
func pathID(r *http.Request) (string, error) {
	userID := chi.URLParam(r, "id")
	if !id.Valid(userID) {
		return "", errs.New(errs.KindParseID, "invalid id")
	}
	return userID, nil
}
