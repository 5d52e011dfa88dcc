package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/document"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/mailer"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
)

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, m mailer.Message) error
}

// InviteInput names the client and report to share.
type InviteInput struct {
	ClientID string `json:"clientId"`
	ReportID string `json:"reportId"`
	// SendEmail mails the link to the client's address.
	SendEmail bool `json:"sendEmail"`
}

// Invitation is a created portal invitation with its link.
type Invitation struct {
	*domain.PortalInvitation
	URL       string `json:"url"`
	Token     string `json:"token"`
	EmailSent bool   `json:"emailSent"`
}

// PortalView is the read-only report shown to a client.
type PortalView struct {
	Report     *domain.Report `json:"report"`
	ClientName string         `json:"clientName"`
	ExpiresAt  time.Time      `json:"expiresAt"`
}

// PortalService shares reports with clients through signed links.
type PortalService struct {
	invitations domain.PortalRepository
	reports     domain.ReportRepository
	clients     domain.ClientRepository
	users       domain.UserRepository
	tokens      *auth.TokenManager
	mail        Mailer
	audit       *audit.Logger
	baseURL     string
	ttl         time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewPortalService creates a portal service. publicBaseURL is the frontend
// origin hosting the portal page. mail may be nil.
func NewPortalService(
	invitations domain.PortalRepository,
	reports domain.ReportRepository,
	clients domain.ClientRepository,
	users domain.UserRepository,
	tokens *auth.TokenManager,
	mail Mailer,
	auditLog *audit.Logger,
	publicBaseURL string,
	ttl time.Duration,
	logger *slog.Logger,
) *PortalService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, logger)
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &PortalService{
		invitations: invitations,
		reports:     reports,
		clients:     clients,
		users:       users,
		tokens:      tokens,
		mail:        mail,
		audit:       auditLog,
		baseURL:     strings.TrimRight(publicBaseURL, "/"),
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// Invite creates an invitation for one of the owner's clients to view one of
// the owner's reports. An email is attempted when requested; a missing
// email provider does not fail the invitation.
func (s *PortalService) Invite(ctx context.Context, ownerID string, in InviteInput) (*Invitation, error) {
	client, err := s.clients.Get(ctx, ownerID, in.ClientID)
	if err != nil {
		return nil, refErr(err, "clientId")
	}
	report, err := s.reports.Get(ctx, ownerID, in.ReportID)
	if err != nil {
		return nil, refErr(err, "reportId")
	}
	if client.Email == "" {
		return nil, domain.Invalid("clientId", "client has no email address")
	}

	inv := &domain.PortalInvitation{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		ClientID:  client.ID,
		ReportID:  report.ID,
		Email:     client.Email,
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}
	link, err := s.tokens.IssueLink(auth.PurposePortal, ownerID, inv.ID, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("issue portal link: %w", err)
	}
	inv.ExpiresAt = link.ExpiresAt
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}

	out := &Invitation{PortalInvitation: inv, URL: s.baseURL + "/portal/" + link.Token, Token: link.Token}
	if in.SendEmail {
		out.EmailSent = s.sendInvite(ctx, ownerID, client, report, out)
	}
	s.audit.Record(ctx, ownerID, "invite", "portal_invitation", inv.ID, nil, inv)
	return out, nil
}

func (s *PortalService) sendInvite(ctx context.Context, ownerID string, client *domain.Client, report *domain.Report, inv *Invitation) bool {
	if s.mail == nil {
		return false
	}
	sender := "Your restoration contractor"
	if u, err := s.users.GetByID(ctx, ownerID); err == nil && u.Name != "" {
		sender = u.Name
	}
	subject, html, text, err := document.RenderPortalInvite(document.PortalInvite{
		ClientName:  client.Name,
		SenderName:  sender,
		ReportTitle: report.Title,
		URL:         inv.URL,
		ExpiresAt:   inv.ExpiresAt,
	})
	if err != nil {
		s.logger.Error("failed to render portal invite", slog.String("error", err.Error()))
		return false
	}
	err = s.mail.Send(ctx, mailer.Message{To: []string{client.Email}, Subject: subject, HTML: html, Text: text})
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, domain.ErrNotConfigured) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "portal invite email not sent",
			slog.String("invitation_id", inv.ID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// View resolves a portal link to its report. The first view marks the
// invitation accepted.
func (s *PortalService) View(ctx context.Context, token string) (*PortalView, error) {
	claims, err := s.tokens.ParseLink(token, auth.PurposePortal)
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: invitation no longer exists", domain.ErrTokenInvalid)
		}
		return nil, err
	}
	now := s.now().UTC()
	if inv.UserID != claims.OwnerID || now.After(inv.ExpiresAt) {
		return nil, fmt.Errorf("%w: invitation expired", domain.ErrTokenInvalid)
	}

	report, err := s.reports.GetForPortal(ctx, inv.ReportID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: report no longer exists", domain.ErrTokenInvalid)
		}
		return nil, err
	}
	if report.UserID != inv.UserID {
		return nil, fmt.Errorf("%w: owner mismatch", domain.ErrTokenInvalid)
	}

	if inv.AcceptedAt == nil {
		if err := s.invitations.MarkAccepted(ctx, inv.ID, now); err != nil {
			s.logger.Warn("failed to mark portal invitation accepted",
				slog.String("invitation_id", inv.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	name := ""
	if c, err := s.clients.Get(ctx, inv.UserID, inv.ClientID); err == nil {
		name = c.Name
	}
	return &PortalView{Report: report, ClientName: name, ExpiresAt: inv.ExpiresAt}, nil
}
