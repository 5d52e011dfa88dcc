package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

// IntegrationHandler serves OAuth connections to accounting providers.
type IntegrationHandler struct {
	integrations *service.IntegrationService
	// returnURL is the frontend page the callback redirects to.
	returnURL string
	logger    *slog.Logger
}

// NewIntegrationHandler creates a new integration handler. publicBaseURL is
// the frontend origin.
func NewIntegrationHandler(integrations *service.IntegrationService, publicBaseURL string, logger *slog.Logger) *IntegrationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrationHandler{
		integrations: integrations,
		returnURL:    strings.TrimRight(publicBaseURL, "/") + "/integrations",
		logger:       logger,
	}
}

// Mount registers the integration routes.
func (h *IntegrationHandler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/integrations", h.List)
	mux.HandleFunc("POST /api/integrations/{provider}/connect", h.Connect)
	mux.HandleFunc("GET /api/integrations/{provider}/callback", h.Callback)
	mux.HandleFunc("DELETE /api/integrations/{provider}", h.Disconnect)
}

func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.integrations.List(r.Context(), sess.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Connect handles POST /api/integrations/{provider}/connect
func (h *IntegrationHandler) Connect(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	authURL, err := h.integrations.Connect(r.Context(), sess.UserID, r.PathValue("provider"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authorizationUrl": authURL})
}

// Callback handles GET /api/integrations/{provider}/callback. The browser
// arrives here from the provider, so outcomes are reported by redirecting
// back to the frontend.
func (h *IntegrationHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	q := r.URL.Query()

	result := url.Values{"provider": {provider}}
	if providerErr := q.Get("error"); providerErr != "" {
		h.logger.Warn("provider denied authorization",
			slog.String("provider", provider),
			slog.String("error", providerErr),
		)
		result.Set("status", "denied")
		http.Redirect(w, r, h.returnURL+"?"+result.Encode(), http.StatusFound)
		return
	}

	_, err := h.integrations.Callback(r.Context(), provider, q.Get("state"), q.Get("code"))
	switch {
	case err == nil:
		result.Set("status", "connected")
	case errors.Is(err, domain.ErrTokenInvalid):
		result.Set("status", "invalid_state")
	default:
		h.logger.Error("integration callback failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		result.Set("status", "error")
	}
	http.Redirect(w, r, h.returnURL+"?"+result.Encode(), http.StatusFound)
}

// Disconnect handles DELETE /api/integrations/{provider}
func (h *IntegrationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.integrations.Disconnect(r.Context(), sess.UserID, r.PathValue("provider")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
