package handler

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth          *AuthHandler
	Health        *HealthHandler
	Reports       *ReportHandler
	Invoices      *InvoiceHandler
	Forms         *FormHandler
	Portal        *PortalHandler
	Interview     *InterviewHandler
	Search        *SearchHandler
	Integrations  *IntegrationHandler
	Notifications *NotificationHandler
	Team          *TeamHandler
	Billing       *BillingHandler

	Clients     RecordService[domain.Client]
	Inspections RecordService[domain.Inspection]
	Contacts    RecordService[domain.Contact]
	Companies   RecordService[domain.Company]
	CostLibrary RecordService[domain.CostLibraryItem]
}

// NewRouter builds the route table.
func NewRouter(h Handlers, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.Health)
	mux.HandleFunc("GET /healthz", h.Health.Live)
	mux.HandleFunc("GET /readyz", h.Health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.HandleFunc("POST /api/auth/change-password", h.Auth.ChangePassword)
	mux.HandleFunc("GET /api/me", h.Auth.Me)

	NewResourceHandler(h.Clients, logger).Mount(mux, "/api/clients")
	NewResourceHandler(h.Inspections, logger).Mount(mux, "/api/inspections")
	NewResourceHandler(h.Contacts, logger).Mount(mux, "/api/contacts")
	NewResourceHandler(h.Companies, logger).Mount(mux, "/api/companies")
	NewResourceHandler(h.CostLibrary, logger).Mount(mux, "/api/cost-library")

	h.Reports.Mount(mux)
	h.Invoices.Mount(mux)
	h.Forms.Mount(mux)
	h.Portal.Mount(mux)
	h.Interview.Mount(mux)
	mux.Handle("GET /api/search", h.Search)
	h.Integrations.Mount(mux)
	h.Notifications.Mount(mux)
	h.Team.Mount(mux)
	h.Billing.Mount(mux)

	return mux
}
