package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/logger"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/middleware"
)

// maxJSONBody caps decoded request bodies.
const maxJSONBody = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// UpgradeResponse is returned with 402 when a credit counter is exhausted.
type UpgradeResponse struct {
	Error      string         `json:"error"`
	Code       string         `json:"code"`
	Feature    domain.Feature `json:"feature"`
	UpgradeURL string         `json:"upgradeUrl"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps service errors onto status codes. Anything
// unrecognised is logged and reported as a 500 without internals.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var (
		upgrade  *domain.UpgradeRequiredError
		upstream *domain.UpstreamError
		conflict *domain.ConflictError
		invalid  *domain.ValidationError
	)
	switch {
	case errors.As(err, &upgrade):
		writeJSON(w, http.StatusPaymentRequired, UpgradeResponse{
			Error:      "upgrade required",
			Code:       "UPGRADE_REQUIRED",
			Feature:    upgrade.Feature,
			UpgradeURL: "/pricing",
		})
	case errors.As(err, &conflict):
		writeError(w, http.StatusBadRequest, conflict.Message)
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTokenConsumed):
		writeError(w, http.StatusGone, "link has already been used")
	case errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid or expired link")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "service not configured")
	case errors.As(err, &upstream):
		log.Warn("upstream provider failed",
			slog.String("request_id", logger.RequestID(r.Context())),
			slog.String("provider", upstream.Provider),
			slog.String("error", upstream.Err.Error()),
		)
		msg := upstream.Summary
		if msg == "" {
			msg = "upstream provider failed"
		}
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: msg, Details: upstream.Err.Error()})
	default:
		log.Error("request failed",
			slog.String("request_id", logger.RequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Warn("failed to decode request",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// requireSession returns the caller or answers 401.
func requireSession(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	s := middleware.SessionFromContext(r.Context())
	if s == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return s, true
}

// listOptions reads limit and offset query parameters.
func listOptions(r *http.Request) domain.ListOptions {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return domain.ListOptions{Limit: limit, Offset: offset}.Normalize()
}
