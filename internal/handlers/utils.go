package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/morerecipes/apiserver/internal/auth"
	"github.com/morerecipes/apiserver/internal/services"
)

const maxJSONBody = 1 << 20

type contextKey string

const contextClaimsKey contextKey = "claims"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Kind   services.Kind       `json:"kind"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// MessageResponse is the body of a request that only reports an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

func withClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, contextClaimsKey, claims)
}

// claimsFromContext returns the verified identity of the caller, if any.
func claimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(auth.Claims)
	if !ok || claims.UserID < 1 {
		return auth.Claims{}, false
	}
	return claims, true
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeBadRequest reports a malformed request that never reached a service.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Kind: services.KindValidation})
}

// writeError renders err by its service kind. Errors without a kind are
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var serr *services.Error
	if !errors.As(err, &serr) {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Kind: "internal_error"})
		return
	}
	writeJSON(w, statusFor(serr.Kind), ErrorResponse{
		Error:  serr.Message,
		Kind:   serr.Kind,
		Fields: serr.Fields,
	})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindPasswordMismatch, services.KindPersistence:
		return http.StatusBadRequest
	case services.KindDuplicateRecipe, services.KindDuplicateUser:
		return http.StatusConflict
	case services.KindNotFound, services.KindUserNotFound, services.KindForbidden:
		return http.StatusNotFound
	case services.KindInvalidCredentials, services.KindInvalidToken, services.KindExpiredToken:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
