package handler

import (
	"log/slog"
	"net/http"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

// PortalHandler serves client portal invitations and the public view.
type PortalHandler struct {
	portal *service.PortalService
	logger *slog.Logger
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(portal *service.PortalService, logger *slog.Logger) *PortalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortalHandler{portal: portal, logger: logger}
}

// Mount registers the portal routes.
func (h *PortalHandler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/portal/invitations", h.Invite)
	mux.HandleFunc("GET /api/public/portal/{token}", h.View)
}

// Invite handles POST /api/portal/invitations
func (h *PortalHandler) Invite(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req service.InviteInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	inv, err := h.portal.Invite(r.Context(), sess.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// View handles GET /api/public/portal/{token}
func (h *PortalHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.portal.View(r.Context(), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}
