package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/middleware"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

// FormHandler serves templates, submissions and signature links.
type FormHandler struct {
	forms      *service.FormService
	signatures *service.SignatureService
	logger     *slog.Logger
}

// NewFormHandler creates a new form handler
func NewFormHandler(forms *service.FormService, signatures *service.SignatureService, logger *slog.Logger) *FormHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormHandler{forms: forms, signatures: signatures, logger: logger}
}

// Mount registers the authenticated form routes and the public signing page.
func (h *FormHandler) Mount(mux *http.ServeMux) {
	NewResourceHandler[domain.FormTemplate](templateRecords{h.forms}, h.logger).Mount(mux, "/api/forms/templates")
	mux.HandleFunc("GET /api/forms/submissions", h.ListSubmissions)
	mux.HandleFunc("POST /api/forms/submissions", h.CreateSubmission)
	mux.HandleFunc("GET /api/forms/submissions/{id}", h.GetSubmission)
	mux.HandleFunc("PUT /api/forms/submissions/{id}", h.UpdateSubmission)
	mux.HandleFunc("POST /api/forms/submissions/{id}/signature-link", h.CreateSignatureLink)
	mux.HandleFunc("POST /api/forms/submissions/{id}/generate", h.GenerateDocument)

	mux.HandleFunc("GET /api/public/sign/{token}", h.ViewSigning)
	mux.HandleFunc("POST /api/public/sign/{token}", h.Sign)
}

func (h *FormHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.forms.ListSubmissions(r.Context(), sess, listOptions(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *FormHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req service.SubmissionInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	out, err := h.forms.CreateSubmission(r.Context(), sess.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *FormHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.forms.GetSubmission(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *FormHandler) UpdateSubmission(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req service.SubmissionInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	out, err := h.forms.UpdateSubmission(r.Context(), sess.UserID, r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateSignatureLink handles POST /api/forms/submissions/{id}/signature-link
func (h *FormHandler) CreateSignatureLink(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	link, err := h.signatures.CreateLink(r.Context(), sess.UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// GenerateDocument handles POST /api/forms/submissions/{id}/generate
func (h *FormHandler) GenerateDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.forms.RenderSubmission(r.Context(), sess, r.PathValue("id"), w); err != nil {
		writeServiceError(w, r, h.logger, err)
	}
}

// ViewSigning handles GET /api/public/sign/{token}
func (h *FormHandler) ViewSigning(w http.ResponseWriter, r *http.Request) {
	view, err := h.signatures.View(r.Context(), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Sign handles POST /api/public/sign/{token}
func (h *FormHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req service.SignInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	sig, err := h.signatures.Sign(r.Context(), r.PathValue("token"), req, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sig)
}

// templateRecords adapts the template half of FormService to the generic
// CRUD routes.
type templateRecords struct {
	forms *service.FormService
}

func (templateRecords) Name() string { return "form_template" }

func (t templateRecords) Create(ctx context.Context, ownerID string, v *domain.FormTemplate) (*domain.FormTemplate, error) {
	return t.forms.CreateTemplate(ctx, ownerID, v)
}

func (t templateRecords) Get(ctx context.Context, ownerID, id string) (*domain.FormTemplate, error) {
	return t.forms.GetTemplate(ctx, ownerID, id)
}

func (t templateRecords) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.FormTemplate, error) {
	return t.forms.ListTemplates(ctx, ownerID, opts)
}

func (t templateRecords) Update(ctx context.Context, ownerID, id string, v *domain.FormTemplate) (*domain.FormTemplate, error) {
	return t.forms.UpdateTemplate(ctx, ownerID, id, v)
}

func (t templateRecords) Delete(ctx context.Context, ownerID, id string) error {
	return t.forms.DeleteTemplate(ctx, ownerID, id)
}
