package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/handler"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/llm"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/logger"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/mailer"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/redis"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/storage"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/metrics"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/tracing"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/reliability/retry"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/repository"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/middleware"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/ratelimit"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/worker"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/config"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/database"
)

const serviceName = "restoreassist"

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting RestoreAssist server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, serviceName, cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Connect Postgres and Redis, waiting for them if they are still booting
	pool, err := retry.Do(ctx, retry.StartupConfig(), log, "connect database", func(ctx context.Context) (*database.ConnectionPool, error) {
		return database.NewConnectionPool(ctx, &database.Config{
			Driver:          cfg.DatabaseDriver,
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		}, log)
	})
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.GetDB()

	if cfg.AutoMigrate {
		applied, err := database.Migrate(ctx, db, log)
		if err != nil {
			log.Error("failed to apply migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("migrations applied", slog.Int("count", len(applied)))
	}

	redisClient, err := retry.Do(ctx, retry.StartupConfig(), log, "connect redis", func(ctx context.Context) (*redis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, log)
	})
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	caps := database.NewCapabilities(database.RegclassProber{DB: db}, log)

	// 4. Initialize repositories
	users := repository.NewPostgresUserRepository(db, log)
	orgs := repository.NewPostgresOrganizationRepository(db, log)
	addons := repository.NewPostgresAddonPurchaseRepository(db)
	clients := repository.NewPostgresClientRepository(db, log)
	inspections := repository.NewPostgresInspectionRepository(db, log)
	contacts := repository.NewPostgresContactRepository(db, log)
	companies := repository.NewPostgresCompanyRepository(db, log)
	costLibrary := repository.NewPostgresCostLibraryRepository(db, log)
	reports := repository.NewPostgresReportRepository(db, log)
	invoices := repository.NewPostgresInvoiceRepository(db, log)
	forms := repository.NewPostgresFormRepository(db, log)
	invitations := repository.NewPostgresPortalRepository(db, log)
	integrations := repository.NewPostgresIntegrationRepository(db, log)
	notifications := repository.NewPostgresNotificationRepository(db, log)
	searchRepo := repository.NewPostgresSearchRepository(db, log)
	auditRepo := repository.NewPostgresAuditRepository(db, log)
	interviews := repository.NewRedisInterviewRepository(redisClient, log)
	ledger := repository.NewRedisTokenLedger(redisClient, log)

	// 5. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, serviceName)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(auditRepo, log)
	authz := security.NewAuthorizationService(log)

	// 6. Initialize outbound providers
	httpClient := &http.Client{
		Timeout:   60 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	generator := llm.NewGenerator(llm.ConfiguredProviders(httpClient), log)
	photos := storage.NewStore(log)
	mail := mailer.New(httpClient, log)

	// 7. Initialize services
	authService := service.NewAuthService(users, orgs, tokenManager, cfg.SessionTTL, log)
	billingService := service.NewBillingService(users, addons, caps, log)
	notificationService := service.NewNotificationService(notifications, caps, log)
	reportService := service.NewReportService(reports, clients, billingService, generator, photos, auditLogger, log)
	interviewService := service.NewInterviewService(interviews, reports, users, billingService, auditLogger, cfg.InterviewSessionTTL, log)
	invoiceService := service.NewInvoiceService(invoices, clients, auditLogger, cfg.InvoicePrefix, cfg.DefaultGSTRate, cfg.InvoiceDueDays, log)
	formService := service.NewFormService(forms, reports, authz, auditLogger, log)
	signatureService := service.NewSignatureService(forms, tokenManager, ledger, notificationService, auditLogger, cfg.PublicBaseURL, cfg.LinkTokenTTL, log)
	portalService := service.NewPortalService(invitations, reports, clients, users, tokenManager, mail, auditLogger, cfg.PublicBaseURL, cfg.PortalTTL, log)
	integrationService := service.NewIntegrationService(integrations, auditLogger, cfg.APIBaseURL, cfg.HandshakeMaxAge, log)
	teamService := service.NewTeamService(users, authz, auditLogger, log)
	searchService := service.NewSearchService(searchRepo, log)

	// 8. Initialize handlers and routes
	var redisPinger handler.Pinger = handler.PingFunc(redisClient.Ping)
	mux := handler.NewRouter(handler.Handlers{
		Auth:          handler.NewAuthHandler(authService, handler.CookieSettings{Secure: cfg.Environment == "production"}, log),
		Health:        handler.NewHealthHandler(db, redisPinger, log),
		Reports:       handler.NewReportHandler(reportService, log),
		Invoices:      handler.NewInvoiceHandler(invoiceService, log),
		Forms:         handler.NewFormHandler(formService, signatureService, log),
		Portal:        handler.NewPortalHandler(portalService, log),
		Interview:     handler.NewInterviewHandler(interviewService, log),
		Search:        handler.NewSearchHandler(searchService, log),
		Integrations:  handler.NewIntegrationHandler(integrationService, cfg.PublicBaseURL, log),
		Notifications: handler.NewNotificationHandler(notificationService, cfg.CORSAllowedOrigins, 5*time.Second, log),
		Team:          handler.NewTeamHandler(teamService, log),
		Billing:       handler.NewBillingHandler(billingService, log),

		Clients:     service.NewClientService(clients, auditLogger, log),
		Inspections: service.NewInspectionService(inspections, reports, clients, auditLogger, log),
		Contacts:    service.NewContactService(contacts, companies, auditLogger, log),
		Companies:   service.NewCompanyService(companies, auditLogger, log),
		CostLibrary: service.NewCostLibraryService(costLibrary, auditLogger, log),
	}, log)

	// Outermost first: request ID -> recover -> logging -> metrics -> tracing
	// -> CORS -> input hygiene -> session -> permission -> rate limit -> audit
	rootHandler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recover(log),
		middleware.RequestLogger(log),
		metrics.HTTPMetricsMiddleware(mux),
		func(next http.Handler) http.Handler { return otelhttp.NewHandler(next, serviceName) },
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.SanitizeInputs(log),
		middleware.ValidateJSONContentType(log),
		middleware.SessionMiddleware(auth.NewCurrentUserResolver(auth.NewJWTResolver(tokenManager), users), log),
		middleware.RequirePermission(authz, log),
		middleware.RateLimitMiddleware(rateLimiter, cfg.PublicRateLimitPerMinute, log),
		middleware.AuditMiddleware(auditLogger),
	)

	// 9. Start cleanup worker in background
	cleanupWorker := worker.NewCleanupWorker(integrationService, caps, log, cfg.SweepInterval)
	go cleanupWorker.Start(ctx)

	// 10. Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           rootHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "session cookie"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Int("public_rate_limit", cfg.PublicRateLimitPerMinute),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop cleanup worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
