package handler

import (
	"log/slog"
	"net/http"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

// InvoiceHandler serves invoices, payments and analytics.
type InvoiceHandler struct {
	invoices *service.InvoiceService
	logger   *slog.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoices *service.InvoiceService, logger *slog.Logger) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{invoices: invoices, logger: logger}
}

// PaymentRequest records a payment in cents.
type PaymentRequest struct {
	Amount int64 `json:"amount"`
}

// Mount registers the invoice routes.
func (h *InvoiceHandler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/invoices", h.List)
	mux.HandleFunc("POST /api/invoices", h.Create)
	mux.HandleFunc("GET /api/invoices/analytics", h.Analytics)
	mux.HandleFunc("GET /api/invoices/{id}", h.Get)
	mux.HandleFunc("PUT /api/invoices/{id}", h.Update)
	mux.HandleFunc("DELETE /api/invoices/{id}", h.Delete)
	mux.HandleFunc("POST /api/invoices/{id}/payments", h.RecordPayment)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.invoices.List(r.Context(), sess.UserID, listOptions(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req service.InvoiceInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	out, err := h.invoices.Create(r.Context(), sess.UserID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.invoices.Get(r.Context(), sess.UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req service.InvoiceInput
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	out, err := h.invoices.Update(r.Context(), sess.UserID, r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.invoices.Delete(r.Context(), sess.UserID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordPayment handles POST /api/invoices/{id}/payments
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	out, err := h.invoices.RecordPayment(r.Context(), sess.UserID, r.PathValue("id"), req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Analytics handles GET /api/invoices/analytics
func (h *InvoiceHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.invoices.Analytics(r.Context(), sess.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
