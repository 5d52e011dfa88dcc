package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/middleware"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
)

type testServer struct {
	*httptest.Server
	tokens *auth.TokenManager
}

// newTestServer mounts every route behind the session and content-type
// middleware. Services run without repositories, so only paths that fail
// before storage is touched are exercised here.
func newTestServer(t *testing.T, db Pinger) *testServer {
	t.Helper()
	log := discardLogger()
	tokens := auth.NewTokenManager("test-secret", "restoreassist")
	billing := service.NewBillingService(nil, nil, nil, log)
	notifications := service.NewNotificationService(nil, nil, log)
	forms := service.NewFormService(nil, nil, nil, nil, log)

	mux := NewRouter(Handlers{
		Auth:          NewAuthHandler(service.NewAuthService(nil, nil, tokens, time.Hour, log), CookieSettings{}, log),
		Health:        NewHealthHandler(db, nil, log),
		Reports:       NewReportHandler(service.NewReportService(nil, nil, billing, nil, nil, nil, log), log),
		Invoices:      NewInvoiceHandler(service.NewInvoiceService(nil, nil, nil, "INV", 10, 14, log), log),
		Forms:         NewFormHandler(forms, service.NewSignatureService(nil, tokens, nil, notifications, nil, "https://app.example.com", time.Hour, log), log),
		Portal:        NewPortalHandler(service.NewPortalService(nil, nil, nil, nil, tokens, nil, nil, "https://app.example.com", time.Hour, log), log),
		Interview:     NewInterviewHandler(service.NewInterviewService(nil, nil, nil, billing, nil, time.Hour, log), log),
		Search:        NewSearchHandler(service.NewSearchService(nil, log), log),
		Integrations:  NewIntegrationHandler(service.NewIntegrationService(nil, nil, "https://api.example.com", time.Minute, log), "https://app.example.com", log),
		Notifications: NewNotificationHandler(notifications, []string{"https://app.example.com"}, time.Second, log),
		Team:          NewTeamHandler(service.NewTeamService(nil, nil, nil, log), log),
		Billing:       NewBillingHandler(billing, log),

		Clients:     service.NewClientService(nil, nil, log),
		Inspections: service.NewInspectionService(nil, nil, nil, nil, log),
		Contacts:    service.NewContactService(nil, nil, nil, log),
		Companies:   service.NewCompanyService(nil, nil, log),
		CostLibrary: service.NewCostLibraryService(nil, nil, log),
	}, log)

	root := middleware.Chain(mux,
		middleware.RequestID,
		middleware.ValidateJSONContentType(log),
		middleware.SessionMiddleware(auth.NewJWTResolver(tokens), log),
		middleware.RequirePermission(security.NewAuthorizationService(log), log),
	)
	srv := httptest.NewServer(root)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, tokens: tokens}
}

func (s *testServer) bearer(t *testing.T, userID string) string {
	t.Helper()
	return s.bearerAs(t, userID, domain.RoleOwner)
}

func (s *testServer) bearerAs(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(&domain.User{ID: userID, Email: userID + "@example.com", Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func okDB() Pinger {
	return PingFunc(func(context.Context) error { return nil })
}

func TestLivenessEndpoint(t *testing.T) {
	srv := newTestServer(t, okDB())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestHealthEndpointReflectsDatabase(t *testing.T) {
	srv := newTestServer(t, PingFunc(func(context.Context) error { return errors.New("down") }))

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, okDB())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t, okDB())

	for _, path := range []string{"/api/clients", "/api/reports", "/api/invoices", "/api/notifications", "/api/me"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestBearerSessionReachesHandler(t *testing.T) {
	srv := newTestServer(t, okDB())

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/search?q=x", nil)
	req.Header.Set("Authorization", srv.bearer(t, "u1"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The search handler rejects one-character queries, which proves the
	// session was accepted.
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJSONContentTypeEnforced(t *testing.T) {
	srv := newTestServer(t, okDB())

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/clients", strings.NewReader("name=Acme"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", srv.bearer(t, "u1"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestPublicSignLinkRejectsGarbageToken(t *testing.T) {
	srv := newTestServer(t, okDB())

	resp, err := http.Get(srv.URL + "/api/public/sign/not-a-token")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTechnicianForbiddenFromInvoices(t *testing.T) {
	srv := newTestServer(t, okDB())

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/invoices", nil)
	req.Header.Set("Authorization", srv.bearerAs(t, "tech", domain.RoleTechnician))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/search?q=x", nil)
	req.Header.Set("Authorization", srv.bearerAs(t, "tech", domain.RoleTechnician))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "reads stay open to technicians")
}
