package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/morerecipes/apiserver/internal/auth"
	"github.com/morerecipes/apiserver/internal/services"
	"github.com/morerecipes/apiserver/types"
)

// TokenVerifier checks identity tokens. *auth.TokenService satisfies it.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// AuthHandler serves registration, login and the current user.
type AuthHandler struct {
	users  *services.UserService
	logger *slog.Logger
}

func NewAuthHandler(users *services.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, users *services.UserService, verifier TokenVerifier, logger *slog.Logger) {
	h := NewAuthHandler(users, logger)

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(RequireAuth(verifier, logger)).Get("/me", h.Me)
}

type authResponse struct {
	Message string           `json:"message"`
	User    types.PublicUser `json:"user"`
	Token   string           `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Message: "registration successful", User: res.User, Token: res.Token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.users.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: "log in successful", User: res.User, Token: res.Token})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, services.ErrInvalidToken)
		return
	}

	user, err := h.users.Me(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// RequireAuth rejects requests without a valid token and stores the verified
// claims in the request context.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := requestToken(r)
			if !ok {
				writeError(w, r, logger, services.ErrInvalidToken)
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				writeError(w, r, logger, tokenError(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth stores the claims of a valid token when one is present. A
// missing or invalid token leaves the request anonymous.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := requestToken(r); ok {
				if claims, err := verifier.Verify(token); err == nil {
					r = r.WithContext(withClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenError(err error) error {
	if errors.Is(err, auth.ErrExpiredToken) {
		return services.ErrExpiredToken
	}
	return services.ErrInvalidToken
}

// requestToken reads a bearer token from Authorization, falling back to the
// x-access-token header.
func requestToken(r *http.Request) (string, bool) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	token := strings.TrimSpace(r.Header.Get("x-access-token"))
	return token, token != ""
}
