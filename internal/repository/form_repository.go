package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/database"
)

const (
	templateColumns      = `id, user_id, name, category, version, schema, is_active, created_at, updated_at`
	submissionColumns    = `id, user_id, template_id, template_version, report_id, answers, status, created_at, updated_at`
	orgSubmissionColumns = `s.id, s.user_id, s.template_id, s.template_version, s.report_id, s.answers, s.status, s.created_at, s.updated_at`
	signatureColumns     = `id, submission_id, token_id, signer_name, signer_email, signature_data, ip_address, user_agent, signed_at`
)

// PostgresFormRepository implements domain.FormRepository
type PostgresFormRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresFormRepository(db *sql.DB, logger *slog.Logger) *PostgresFormRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFormRepository{db: db, logger: logger}
}

func scanTemplate(s scanner) (*domain.FormTemplate, error) {
	t := &domain.FormTemplate{}
	err := s.Scan(&t.ID, &t.UserID, &t.Name, &t.Category, &t.Version, &t.Schema, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func scanSubmission(s scanner) (*domain.FormSubmission, error) {
	sub := &domain.FormSubmission{}
	err := s.Scan(&sub.ID, &sub.UserID, &sub.TemplateID, &sub.TemplateVersion, &sub.ReportID, &sub.Answers,
		&sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}

func (r *PostgresFormRepository) CreateTemplate(ctx context.Context, t *domain.FormTemplate) error {
	if t.Version == 0 {
		t.Version = 1
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO form_templates (id, user_id, name, category, version, schema, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, t.ID, t.UserID, t.Name, t.Category, t.Version, t.Schema, t.IsActive,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return writeErr(err, "form template")
	}
	return nil
}

func (r *PostgresFormRepository) GetTemplate(ctx context.Context, ownerID, id string) (*domain.FormTemplate, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM form_templates WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return nil, readErr(err, "form template")
	}
	return t, nil
}

func (r *PostgresFormRepository) ListTemplates(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.FormTemplate, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+templateColumns+` FROM form_templates
		WHERE user_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3
	`, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list form templates: %w", err)
	}
	defer rows.Close()

	out := []*domain.FormTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan form template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTemplate bumps the version only when the schema changed, so existing
// submissions keep pointing at the version they were filled against.
func (r *PostgresFormRepository) UpdateTemplate(ctx context.Context, t *domain.FormTemplate, schemaChanged bool) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE form_templates
		SET name = $1, category = $2, schema = $3, is_active = $4,
		    version = version + CASE WHEN $5::boolean THEN 1 ELSE 0 END,
		    updated_at = now()
		WHERE id = $6 AND user_id = $7
		RETURNING version, created_at, updated_at
	`, t.Name, t.Category, t.Schema, t.IsActive, schemaChanged, t.ID, t.UserID,
	).Scan(&t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return writeErr(err, "form template")
	}
	return nil
}

// DeleteTemplate deactivates templates that have submissions and removes
// the rest.
func (r *PostgresFormRepository) DeleteTemplate(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM form_templates t
		WHERE t.id = $1 AND t.user_id = $2
		  AND NOT EXISTS (SELECT 1 FROM form_submissions s WHERE s.template_id = t.id)
	`, id, ownerID)
	if err != nil {
		return writeErr(err, "form template")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	res, err = r.db.ExecContext(ctx, `
		UPDATE form_templates SET is_active = false, updated_at = now() WHERE id = $1 AND user_id = $2
	`, id, ownerID)
	if err != nil {
		return writeErr(err, "form template")
	}
	return expectOne(res, "form template")
}

func (r *PostgresFormRepository) CreateSubmission(ctx context.Context, s *domain.FormSubmission) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO form_submissions (id, user_id, template_id, template_version, report_id, answers, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, s.ID, s.UserID, s.TemplateID, s.TemplateVersion, s.ReportID, s.Answers, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return writeErr(err, "form submission")
	}
	return nil
}

func (r *PostgresFormRepository) GetSubmission(ctx context.Context, ownerID, id string) (*domain.FormSubmission, error) {
	s, err := scanSubmission(r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM form_submissions WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return nil, readErr(err, "form submission")
	}
	return s, nil
}

func (r *PostgresFormRepository) GetSubmissionForSigning(ctx context.Context, id string) (*domain.FormSubmission, error) {
	s, err := scanSubmission(r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM form_submissions WHERE id = $1`, id))
	if err != nil {
		return nil, readErr(err, "form submission")
	}
	return s, nil
}

func (r *PostgresFormRepository) ListSubmissions(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.FormSubmission, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+submissionColumns+` FROM form_submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list form submissions: %w", err)
	}
	defer rows.Close()

	out := []*domain.FormSubmission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan form submission: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresFormRepository) GetOrganizationSubmission(ctx context.Context, orgID, id string) (*domain.FormSubmission, error) {
	s, err := scanSubmission(r.db.QueryRowContext(ctx, `
		SELECT `+orgSubmissionColumns+` FROM form_submissions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND u.organization_id = $2
	`, id, orgID))
	if err != nil {
		return nil, readErr(err, "form submission")
	}
	return s, nil
}

func (r *PostgresFormRepository) ListOrganizationSubmissions(ctx context.Context, orgID string, opts domain.ListOptions) ([]*domain.FormSubmission, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orgSubmissionColumns+` FROM form_submissions s
		JOIN users u ON u.id = s.user_id
		WHERE u.organization_id = $1
		ORDER BY s.created_at DESC
		LIMIT $2 OFFSET $3
	`, orgID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization form submissions: %w", err)
	}
	defer rows.Close()

	out := []*domain.FormSubmission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan form submission: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSubmission rewrites answers and status. Signed submissions are frozen.
func (r *PostgresFormRepository) UpdateSubmission(ctx context.Context, s *domain.FormSubmission) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE form_submissions
		SET report_id = $1, answers = $2, status = $3, updated_at = now()
		WHERE id = $4 AND user_id = $5 AND status <> 'signed'
		RETURNING template_version, created_at, updated_at
	`, s.ReportID, s.Answers, s.Status, s.ID, s.UserID,
	).Scan(&s.TemplateVersion, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return writeErr(err, "form submission")
	}
	return nil
}

// CreateSignature inserts the signature and flips the submission to signed
// in one transaction. A token id seen before is reported as consumed.
func (r *PostgresFormRepository) CreateSignature(ctx context.Context, sig *domain.Signature) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO signatures (id, submission_id, token_id, signer_name, signer_email, signature_data, ip_address, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING signed_at
		`, sig.ID, sig.SubmissionID, sig.TokenID, sig.SignerName, sig.SignerEmail, sig.SignatureData,
			sig.IPAddress, sig.UserAgent,
		).Scan(&sig.SignedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("signature: %w", domain.ErrTokenConsumed)
			}
			return writeErr(err, "signature")
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE form_submissions SET status = 'signed', updated_at = now() WHERE id = $1`, sig.SubmissionID)
		if err != nil {
			return writeErr(err, "form submission")
		}
		return expectOne(res, "form submission")
	})
}

func (r *PostgresFormRepository) ListSignatures(ctx context.Context, submissionID string) ([]*domain.Signature, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+signatureColumns+` FROM signatures WHERE submission_id = $1 ORDER BY signed_at`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	defer rows.Close()

	out := []*domain.Signature{}
	for rows.Next() {
		s := &domain.Signature{}
		if err := rows.Scan(&s.ID, &s.SubmissionID, &s.TokenID, &s.SignerName, &s.SignerEmail,
			&s.SignatureData, &s.IPAddress, &s.UserAgent, &s.SignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signature: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PostgresPortalRepository implements domain.PortalRepository
type PostgresPortalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresPortalRepository(db *sql.DB, logger *slog.Logger) *PostgresPortalRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPortalRepository{db: db, logger: logger}
}

func (r *PostgresPortalRepository) Create(ctx context.Context, inv *domain.PortalInvitation) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO portal_invitations (id, user_id, client_id, report_id, email, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, inv.ID, inv.UserID, inv.ClientID, inv.ReportID, inv.Email, inv.ExpiresAt,
	).Scan(&inv.CreatedAt)
	if err != nil {
		return writeErr(err, "portal invitation")
	}
	return nil
}

func (r *PostgresPortalRepository) GetByID(ctx context.Context, id string) (*domain.PortalInvitation, error) {
	inv := &domain.PortalInvitation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, client_id, report_id, email, expires_at, accepted_at, created_at
		FROM portal_invitations WHERE id = $1
	`, id).Scan(&inv.ID, &inv.UserID, &inv.ClientID, &inv.ReportID, &inv.Email, &inv.ExpiresAt,
		&inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, readErr(err, "portal invitation")
	}
	return inv, nil
}

// MarkAccepted records the first acceptance only.
func (r *PostgresPortalRepository) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE portal_invitations SET accepted_at = COALESCE(accepted_at, $1) WHERE id = $2
	`, at, id)
	if err != nil {
		return writeErr(err, "portal invitation")
	}
	return expectOne(res, "portal invitation")
}
