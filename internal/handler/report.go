package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/storage"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

// ReportHandler serves report lifecycle, site data, generation and export.
type ReportHandler struct {
	reports *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *service.ReportService, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{reports: reports, logger: logger}
}

// StatusRequest is the body of PATCH /api/reports/{id}/status.
type StatusRequest struct {
	Status domain.ReportStatus `json:"status"`
}

// Mount registers the report routes.
func (h *ReportHandler) Mount(mux *http.ServeMux) {
	NewResourceHandler[domain.Report](reportRecords{h.reports}, h.logger).Mount(mux, "/api/reports")
	mux.HandleFunc("PATCH /api/reports/{id}/status", h.UpdateStatus)
	mux.HandleFunc("GET /api/reports/{id}/nir-data", h.NIRData)
	mux.HandleFunc("PUT /api/reports/{id}/nir-data", h.UpdateNIRData)
	mux.HandleFunc("POST /api/reports/{id}/generate", h.Generate)
	mux.HandleFunc("GET /api/reports/{id}/pdf", h.ExportPDF)
	mux.HandleFunc("GET /api/reports/{id}/document", h.Document)
	mux.HandleFunc("POST /api/reports/{id}/photos", h.UploadPhoto)
}

// UpdateStatus handles PATCH /api/reports/{id}/status
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	out, err := h.reports.UpdateStatus(r.Context(), sess.UserID, r.PathValue("id"), req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// NIRData handles GET /api/reports/{id}/nir-data
func (h *ReportHandler) NIRData(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.reports.NIRData(r.Context(), sess.UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateNIRData handles PUT /api/reports/{id}/nir-data
func (h *ReportHandler) UpdateNIRData(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req service.NIRData
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	out, err := h.reports.UpdateNIRData(r.Context(), sess.UserID, r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Generate handles POST /api/reports/{id}/generate
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.reports.Generate(r.Context(), sess.UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ExportPDF handles GET /api/reports/{id}/pdf
func (h *ReportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+id+`.pdf"`)
	if err := h.reports.ExportPDF(r.Context(), sess.UserID, id, w); err != nil {
		w.Header().Del("Content-Disposition")
		writeServiceError(w, r, h.logger, err)
	}
}

// Document handles GET /api/reports/{id}/document, the printable HTML.
func (h *ReportHandler) Document(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.reports.RenderHTML(r.Context(), sess.UserID, r.PathValue("id"), w); err != nil {
		writeServiceError(w, r, h.logger, err)
	}
}

// UploadPhoto handles POST /api/reports/{id}/photos (multipart field "photo").
func (h *ReportHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxPhotoBytes+(1<<20))
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "photo is larger than 15 MB")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	photo, err := h.reports.AddPhoto(r.Context(), sess.UserID, r.PathValue("id"), service.PhotoUpload{
		Caption:     r.FormValue("caption"),
		ContentType: strings.TrimSpace(contentType),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

// reportRecords adapts ReportService to the generic CRUD routes.
type reportRecords struct {
	*service.ReportService
}

func (reportRecords) Name() string { return "report" }
