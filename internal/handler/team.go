package handler

import (
	"log/slog"
	"net/http"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

// TeamHandler serves organization membership.
type TeamHandler struct {
	team   *service.TeamService
	logger *slog.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(team *service.TeamService, logger *slog.Logger) *TeamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamHandler{team: team, logger: logger}
}

// Mount registers the team routes.
func (h *TeamHandler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/team/members", h.Members)
	mux.HandleFunc("DELETE /api/team/members/{id}", h.Remove)
}

func (h *TeamHandler) Members(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.team.Members(r.Context(), sess)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Remove handles DELETE /api/team/members/{id}
func (h *TeamHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.team.Remove(r.Context(), sess, r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
