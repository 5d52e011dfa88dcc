package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
)

const (
	signatureDataPrefix = "data:image/png;base64,"
	maxSignatureBytes   = 512 << 10
	// ledgerGrace keeps a consumed jti past the token's own expiry.
	ledgerGrace = time.Minute
)

// SignatureLink is a shareable single-use signing URL.
type SignatureLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SigningView is what an external signatory sees before signing.
type SigningView struct {
	Submission *domain.FormSubmission `json:"submission"`
	Template   *domain.FormTemplate   `json:"template"`
	ExpiresAt  time.Time              `json:"expiresAt"`
}

// SignInput is the signatory's submission.
type SignInput struct {
	SignerName    string `json:"signerName"`
	SignerEmail   string `json:"signerEmail"`
	SignatureData string `json:"signatureData"`
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, title, message, link string)
}

// SignatureService issues and redeems single-use signature links.
type SignatureService struct {
	forms    domain.FormRepository
	tokens   *auth.TokenManager
	ledger   domain.TokenLedger
	notifier Notifier
	audit    *audit.Logger
	baseURL  string
	linkTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewSignatureService creates a signature service. publicBaseURL is the
// frontend origin that hosts the signing page. notifier may be nil.
func NewSignatureService(
	forms domain.FormRepository,
	tokens *auth.TokenManager,
	ledger domain.TokenLedger,
	notifier Notifier,
	auditLog *audit.Logger,
	publicBaseURL string,
	linkTTL time.Duration,
	logger *slog.Logger,
) *SignatureService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, logger)
	}
	if linkTTL <= 0 {
		linkTTL = 7 * 24 * time.Hour
	}
	return &SignatureService{
		forms:    forms,
		tokens:   tokens,
		ledger:   ledger,
		notifier: notifier,
		audit:    auditLog,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		linkTTL:  linkTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateLink issues a signing link for a submitted form.
func (s *SignatureService) CreateLink(ctx context.Context, ownerID, submissionID string) (*SignatureLink, error) {
	sub, err := s.forms.GetSubmission(ctx, ownerID, submissionID)
	if err != nil {
		return nil, err
	}
	switch sub.Status {
	case domain.SubmissionSigned:
		return nil, domain.Invalid("status", "submission is already signed")
	case domain.SubmissionDraft:
		return nil, domain.Invalid("status", "submit the form before requesting a signature")
	}

	link, err := s.tokens.IssueLink(auth.PurposeSignature, ownerID, sub.ID, s.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("issue signature link: %w", err)
	}
	s.audit.Record(ctx, ownerID, "signature_link", "form_submission", sub.ID, nil,
		map[string]any{"expiresAt": link.ExpiresAt})
	return &SignatureLink{
		URL:       s.baseURL + "/sign/" + link.Token,
		Token:     link.Token,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

// View resolves a link for display. Invalid or expired links fail with
// ErrTokenInvalid and used links with ErrTokenConsumed.
func (s *SignatureService) View(ctx context.Context, token string) (*SigningView, error) {
	claims, err := s.tokens.ParseLink(token, auth.PurposeSignature)
	if err != nil {
		return nil, err
	}
	used, err := s.ledger.IsConsumed(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, domain.ErrTokenConsumed
	}
	sub, tpl, err := s.load(ctx, claims)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.SubmissionSigned {
		return nil, domain.ErrTokenConsumed
	}
	return &SigningView{Submission: sub, Template: tpl, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Sign redeems a link. The jti is claimed in the ledger before the
// signature row is written; the row's unique token id backs the ledger up.
func (s *SignatureService) Sign(ctx context.Context, token string, in SignInput, ip, userAgent string) (*domain.Signature, error) {
	claims, err := s.tokens.ParseLink(token, auth.PurposeSignature)
	if err != nil {
		return nil, err
	}
	if err := validateSignInput(&in); err != nil {
		return nil, err
	}

	if err := s.ledger.Consume(ctx, claims.ID, claims.Remaining(s.now())+ledgerGrace); err != nil {
		if errors.Is(err, domain.ErrTokenConsumed) {
			s.logger.Warn("signature link reused", slog.String("submission_id", claims.Subject))
		}
		return nil, err
	}

	sub, _, err := s.load(ctx, claims)
	if err != nil {
		return nil, err
	}
	if sub.Status == domain.SubmissionSigned {
		return nil, domain.ErrTokenConsumed
	}

	sig := &domain.Signature{
		ID:            uuid.NewString(),
		SubmissionID:  sub.ID,
		SignerName:    in.SignerName,
		SignerEmail:   in.SignerEmail,
		SignatureData: in.SignatureData,
		TokenID:       claims.ID,
		IPAddress:     ip,
		UserAgent:     userAgent,
		SignedAt:      s.now().UTC(),
	}
	if err := s.forms.CreateSignature(ctx, sig); err != nil {
		return nil, err
	}

	s.logger.Info("form signed",
		slog.String("submission_id", sub.ID),
		slog.String("signature_id", sig.ID),
	)
	s.audit.Record(ctx, claims.OwnerID, "sign", "form_submission", sub.ID,
		map[string]any{"status": sub.Status},
		map[string]any{"status": domain.SubmissionSigned, "signerName": sig.SignerName, "signerEmail": sig.SignerEmail, "ipAddress": ip})
	if s.notifier != nil {
		s.notifier.Notify(ctx, claims.OwnerID, "signature",
			"Form signed", sig.SignerName+" signed a form submission",
			"/forms/submissions/"+sub.ID)
	}
	return sig, nil
}

// load fetches the submission and template a link points at. The owner
// embedded in the link must still own the submission.
func (s *SignatureService) load(ctx context.Context, claims *auth.LinkClaims) (*domain.FormSubmission, *domain.FormTemplate, error) {
	sub, err := s.forms.GetSubmissionForSigning(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: submission no longer exists", domain.ErrTokenInvalid)
		}
		return nil, nil, err
	}
	if sub.UserID != claims.OwnerID {
		return nil, nil, fmt.Errorf("%w: owner mismatch", domain.ErrTokenInvalid)
	}
	tpl, err := s.forms.GetTemplate(ctx, claims.OwnerID, sub.TemplateID)
	if err != nil {
		return nil, nil, err
	}
	return sub, tpl, nil
}

func validateSignInput(in *SignInput) error {
	in.SignerName = strings.TrimSpace(in.SignerName)
	in.SignerEmail = strings.ToLower(strings.TrimSpace(in.SignerEmail))
	if in.SignerName == "" {
		return domain.Invalid("signerName", "is required")
	}
	if in.SignerEmail != "" {
		if _, err := mail.ParseAddress(in.SignerEmail); err != nil {
			return domain.Invalid("signerEmail", "is not a valid email address")
		}
	}
	payload, ok := strings.CutPrefix(in.SignatureData, signatureDataPrefix)
	if !ok {
		return domain.Invalid("signatureData", "must be a PNG data URL")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxSignatureBytes {
		return domain.Invalid("signatureData", "is too large")
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return domain.Invalid("signatureData", "is not valid base64")
	}
	return nil
}
