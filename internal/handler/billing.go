package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

// maxWebhookBody matches Stripe's documented event size ceiling.
const maxWebhookBody = 65536

// BillingHandler serves credit status and the Stripe webhook.
type BillingHandler struct {
	billing *service.BillingService
	logger  *slog.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billing *service.BillingService, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{billing: billing, logger: logger}
}

// Mount registers the billing routes.
func (h *BillingHandler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/billing/status", h.Status)
	mux.HandleFunc("POST /api/billing/webhook", h.Webhook)
}

// Status handles GET /api/billing/status
func (h *BillingHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.billing.Status(r.Context(), sess.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Webhook handles POST /api/billing/webhook. The body is verified against
// the Stripe-Signature header before anything is applied.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	event, err := h.billing.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("rejected billing webhook", slog.String("error", err.Error()))
		writeServiceError(w, r, h.logger, err)
		return
	}

	if err := h.billing.HandleEvent(r.Context(), event); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
