package handler

import (
	"log/slog"
	"net/http"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/interview"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

// InterviewHandler serves the guided question flow.
type InterviewHandler struct {
	interviews *service.InterviewService
	logger     *slog.Logger
}

// NewInterviewHandler creates a new interview handler
func NewInterviewHandler(interviews *service.InterviewService, logger *slog.Logger) *InterviewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InterviewHandler{interviews: interviews, logger: logger}
}

// AnswerRequest answers one question of a session.
type AnswerRequest struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// ApplyRequest optionally redirects the merge to another report.
type ApplyRequest struct {
	ReportID *string `json:"reportId"`
}

// Mount registers the interview routes.
func (h *InterviewHandler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/interview/questions", h.Questions)
	mux.HandleFunc("POST /api/interview/sessions", h.Start)
	mux.HandleFunc("GET /api/interview/sessions/{id}", h.Get)
	mux.HandleFunc("POST /api/interview/sessions/{id}/answers", h.Answer)
	mux.HandleFunc("POST /api/interview/sessions/{id}/apply", h.Apply)
}

// Questions handles POST /api/interview/questions
func (h *InterviewHandler) Questions(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req interview.Context
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	qs, err := h.interviews.Questions(r.Context(), sess.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

// Start handles POST /api/interview/sessions
func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req service.StartInterviewInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	view, err := h.interviews.Start(r.Context(), sess.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	view, err := h.interviews.Get(r.Context(), sess.UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Answer handles POST /api/interview/sessions/{id}/answers
func (h *InterviewHandler) Answer(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req AnswerRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	view, err := h.interviews.Answer(r.Context(), sess.UserID, r.PathValue("id"), req.QuestionID, req.Answer)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Apply handles POST /api/interview/sessions/{id}/apply
func (h *InterviewHandler) Apply(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req ApplyRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, h.logger, &req) {
		return
	}
	report, err := h.interviews.Apply(r.Context(), sess.UserID, r.PathValue("id"), req.ReportID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
