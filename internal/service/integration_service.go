package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/metrics"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/config"
)

// IntegrationService connects third-party accounts with OAuth2 + PKCE.
type IntegrationService struct {
	repo        domain.IntegrationRepository
	audit       *audit.Logger
	providers   func(name string) (config.OAuthProvider, bool)
	httpClient  *http.Client
	callbackURL string
	maxAge      time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewIntegrationService creates an integration service. apiBaseURL is the
// externally reachable base of this API, used to build callback URLs.
// Handshakes older than maxAge are rejected and swept.
func NewIntegrationService(
	repo domain.IntegrationRepository,
	auditLog *audit.Logger,
	apiBaseURL string,
	maxAge time.Duration,
	logger *slog.Logger,
) *IntegrationService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, logger)
	}
	if maxAge <= 0 {
		maxAge = 15 * time.Minute
	}
	return &IntegrationService{
		repo:        repo,
		audit:       auditLog,
		providers:   config.OAuth,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		callbackURL: strings.TrimRight(apiBaseURL, "/") + "/api/integrations/%s/callback",
		maxAge:      maxAge,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns the owner's integrations.
func (s *IntegrationService) List(ctx context.Context, ownerID string) ([]*domain.Integration, error) {
	return s.repo.List(ctx, ownerID)
}

// Connect starts a handshake and returns the provider's authorization URL.
// Existing tokens are kept until the new handshake completes.
func (s *IntegrationService) Connect(ctx context.Context, ownerID, provider string) (string, error) {
	conf, name, err := s.oauthConfig(provider)
	if err != nil {
		return "", err
	}

	in, err := s.repo.Get(ctx, ownerID, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		in = &domain.Integration{ID: uuid.NewString(), UserID: ownerID, Provider: name}
	case err != nil:
		return "", err
	}

	started := s.now().UTC()
	state := ownerID + "." + rand.Text()
	verifier := oauth2.GenerateVerifier()
	in.Config = domain.NewBlob(domain.HandshakeState{
		State:        state,
		CodeVerifier: verifier,
		StartedAt:    &started,
	})
	if in.Status != domain.IntegrationConnected {
		in.Status = domain.IntegrationPending
	}
	if err := s.repo.Upsert(ctx, in); err != nil {
		return "", err
	}

	s.logger.Info("integration handshake started",
		slog.String("user_id", ownerID),
		slog.String("provider", name),
	)
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)), nil
}

// Callback completes a handshake. The owner is recovered from state, which
// must match the stored value and be younger than the handshake limit.
func (s *IntegrationService) Callback(ctx context.Context, provider, state, code string) (*domain.Integration, error) {
	conf, name, err := s.oauthConfig(provider)
	if err != nil {
		return nil, err
	}
	ownerID, _, ok := strings.Cut(state, ".")
	if !ok || ownerID == "" || code == "" {
		return nil, fmt.Errorf("%w: malformed callback", domain.ErrTokenInvalid)
	}

	in, err := s.repo.Get(ctx, ownerID, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no pending handshake", domain.ErrTokenInvalid)
		}
		return nil, err
	}
	hs := in.Config.Data
	if hs.State == "" || subtle.ConstantTimeCompare([]byte(hs.State), []byte(state)) != 1 {
		s.logger.Warn("integration callback state mismatch",
			slog.String("user_id", ownerID),
			slog.String("provider", name),
		)
		return nil, fmt.Errorf("%w: state mismatch", domain.ErrTokenInvalid)
	}
	if hs.StartedAt == nil || s.now().Sub(*hs.StartedAt) > s.maxAge {
		return nil, fmt.Errorf("%w: handshake expired", domain.ErrTokenInvalid)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(hs.CodeVerifier))
	if err != nil {
		s.logger.Error("oauth code exchange failed",
			slog.String("provider", name),
			slog.String("error", err.Error()),
		)
		return nil, &domain.UpstreamError{Provider: name, Err: err}
	}

	in.Status = domain.IntegrationConnected
	in.AccessToken = tok.AccessToken
	in.RefreshToken = tok.RefreshToken
	in.TokenExpiresAt = nil
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		in.TokenExpiresAt = &exp
	}
	in.Config = domain.NewBlob(domain.HandshakeState{})
	if err := s.repo.Upsert(ctx, in); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, ownerID, "connect", "integration", in.ID, nil, map[string]any{"provider": name})
	return in, nil
}

// Disconnect revokes the stored tokens locally.
func (s *IntegrationService) Disconnect(ctx context.Context, ownerID, provider string) error {
	name := strings.ToLower(provider)
	if err := s.repo.Disconnect(ctx, ownerID, name); err != nil {
		return err
	}
	s.audit.Record(ctx, ownerID, "disconnect", "integration", name, nil, map[string]any{"provider": name})
	return nil
}

// SweepStaleHandshakes clears handshake state older than the handshake limit.
func (s *IntegrationService) SweepStaleHandshakes(ctx context.Context) (int64, error) {
	n, err := s.repo.ClearStaleHandshakes(ctx, s.now().UTC().Add(-s.maxAge))
	if err != nil {
		return 0, err
	}
	metrics.AddHandshakesSwept(n)
	return n, nil
}

func (s *IntegrationService) oauthConfig(provider string) (*oauth2.Config, string, error) {
	p, ok := s.providers(provider)
	if !ok {
		return nil, "", fmt.Errorf("integration %q: %w", provider, domain.ErrNotFound)
	}
	if !p.Configured() {
		return nil, "", fmt.Errorf("integration %s: %w", p.Name, domain.ErrNotConfigured)
	}
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: p.AuthURL, TokenURL: p.TokenURL},
		RedirectURL:  fmt.Sprintf(s.callbackURL, p.Name),
		Scopes:       p.Scopes,
	}, p.Name, nil
}
