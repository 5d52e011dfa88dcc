package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/document"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
)

// SubmissionInput is the editable part of a form submission.
type SubmissionInput struct {
	TemplateID string                  `json:"templateId"`
	ReportID   *string                 `json:"reportId"`
	Answers    domain.FormAnswers      `json:"answers"`
	Status     domain.SubmissionStatus `json:"status"`
}

// FormService manages versioned templates and their submissions. Managers
// and above may read submissions created by anyone in their organization.
type FormService struct {
	forms   domain.FormRepository
	reports domain.ReportRepository
	authz   *security.AuthorizationService
	audit   *audit.Logger
	logger  *slog.Logger
}

func NewFormService(forms domain.FormRepository, reports domain.ReportRepository, authz *security.AuthorizationService, auditLog *audit.Logger, logger *slog.Logger) *FormService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, logger)
	}
	return &FormService{forms: forms, reports: reports, authz: authz, audit: auditLog, logger: logger}
}

// CreateTemplate stores a new template at version 1.
func (s *FormService) CreateTemplate(ctx context.Context, ownerID string, t *domain.FormTemplate) (*domain.FormTemplate, error) {
	t.ID = uuid.NewString()
	t.UserID = ownerID
	t.Version = 1
	t.IsActive = true
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.forms.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, ownerID, "create", "form_template", t.ID, nil, t)
	return t, nil
}

func (s *FormService) GetTemplate(ctx context.Context, ownerID, id string) (*domain.FormTemplate, error) {
	return s.forms.GetTemplate(ctx, ownerID, id)
}

func (s *FormService) ListTemplates(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.FormTemplate, error) {
	out, err := s.forms.ListTemplates(ctx, ownerID, opts.Normalize())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.FormTemplate{}
	}
	return out, nil
}

// UpdateTemplate replaces a template. A changed schema bumps the version;
// existing submissions keep the version they were filled against.
func (s *FormService) UpdateTemplate(ctx context.Context, ownerID, id string, in *domain.FormTemplate) (*domain.FormTemplate, error) {
	before, err := s.forms.GetTemplate(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	after := *before
	after.Name = in.Name
	after.Category = in.Category
	after.Schema = in.Schema
	after.IsActive = in.IsActive
	if err := after.Validate(); err != nil {
		return nil, err
	}
	if err := s.forms.UpdateTemplate(ctx, &after, schemaChanged(before.Schema.Data, after.Schema.Data)); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, ownerID, "update", "form_template", id, before, &after)
	return &after, nil
}

// DeleteTemplate removes a template, or deactivates it when submissions
// reference it.
func (s *FormService) DeleteTemplate(ctx context.Context, ownerID, id string) error {
	before, err := s.forms.GetTemplate(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.forms.DeleteTemplate(ctx, ownerID, id); err != nil {
		return err
	}
	s.audit.Record(ctx, ownerID, "delete", "form_template", id, before, nil)
	return nil
}

// CreateSubmission fills a template. Submitted answers are checked against
// the template schema; drafts are not.
func (s *FormService) CreateSubmission(ctx context.Context, ownerID string, in SubmissionInput) (*domain.FormSubmission, error) {
	tpl, err := s.forms.GetTemplate(ctx, ownerID, in.TemplateID)
	if err != nil {
		return nil, refErr(err, "templateId")
	}
	if !tpl.IsActive {
		return nil, domain.Invalid("templateId", "template is inactive")
	}
	sub := &domain.FormSubmission{
		ID:              uuid.NewString(),
		UserID:          ownerID,
		TemplateID:      tpl.ID,
		TemplateVersion: tpl.Version,
	}
	if err := s.apply(ctx, ownerID, tpl, sub, in); err != nil {
		return nil, err
	}
	if err := s.forms.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, ownerID, "create", "form_submission", sub.ID, nil, sub)
	return sub, nil
}

// orgReader returns the organization whose submissions viewer may read, or
// "" when viewer is limited to their own.
func (s *FormService) orgReader(viewer *auth.Session) string {
	if viewer.OrganizationID == "" || !s.authz.HasPermission(viewer.Role, security.PermReadOrganization) {
		return ""
	}
	return viewer.OrganizationID
}

// GetSubmission returns a submission owned by viewer or, for managers and
// above, created by a member of viewer's organization.
func (s *FormService) GetSubmission(ctx context.Context, viewer *auth.Session, id string) (*domain.FormSubmission, error) {
	sub, err := s.forms.GetSubmission(ctx, viewer.UserID, id)
	if !errors.Is(err, domain.ErrNotFound) {
		return sub, err
	}
	org := s.orgReader(viewer)
	if org == "" {
		return nil, err
	}
	return s.forms.GetOrganizationSubmission(ctx, org, id)
}

// ListSubmissions lists viewer's submissions, widened to the whole
// organization for managers and above.
func (s *FormService) ListSubmissions(ctx context.Context, viewer *auth.Session, opts domain.ListOptions) ([]*domain.FormSubmission, error) {
	var (
		out []*domain.FormSubmission
		err error
	)
	if org := s.orgReader(viewer); org != "" {
		out, err = s.forms.ListOrganizationSubmissions(ctx, org, opts.Normalize())
	} else {
		out, err = s.forms.ListSubmissions(ctx, viewer.UserID, opts.Normalize())
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.FormSubmission{}
	}
	return out, nil
}

// UpdateSubmission edits answers or status. Signed submissions are frozen.
func (s *FormService) UpdateSubmission(ctx context.Context, ownerID, id string, in SubmissionInput) (*domain.FormSubmission, error) {
	before, err := s.forms.GetSubmission(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if before.Status == domain.SubmissionSigned {
		return nil, domain.Invalid("status", "signed submissions cannot be changed")
	}
	tpl, err := s.forms.GetTemplate(ctx, ownerID, before.TemplateID)
	if err != nil {
		return nil, err
	}
	after := *before
	if err := s.apply(ctx, ownerID, tpl, &after, in); err != nil {
		return nil, err
	}
	if err := s.forms.UpdateSubmission(ctx, &after); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, ownerID, "update", "form_submission", id, before, &after)
	return &after, nil
}

// RenderSubmission writes the printable HTML document of a submission with
// its signatures.
func (s *FormService) RenderSubmission(ctx context.Context, viewer *auth.Session, id string, w io.Writer) error {
	sub, err := s.GetSubmission(ctx, viewer, id)
	if err != nil {
		return err
	}
	tpl, err := s.forms.GetTemplate(ctx, sub.UserID, sub.TemplateID)
	if err != nil {
		return err
	}
	sigs, err := s.forms.ListSignatures(ctx, sub.ID)
	if err != nil {
		return err
	}
	return document.RenderSubmissionHTML(w, tpl, sub, sigs)
}

func (s *FormService) apply(ctx context.Context, ownerID string, tpl *domain.FormTemplate, sub *domain.FormSubmission, in SubmissionInput) error {
	status := in.Status
	switch status {
	case "":
		status = domain.SubmissionDraft
	case domain.SubmissionDraft, domain.SubmissionSubmitted:
	default:
		return domain.Invalid("status", "must be draft or submitted")
	}
	if in.ReportID != nil {
		if _, err := s.reports.Get(ctx, ownerID, *in.ReportID); err != nil {
			return refErr(err, "reportId")
		}
	}
	answers := in.Answers
	if answers == nil {
		answers = domain.FormAnswers{}
	}
	if status == domain.SubmissionSubmitted {
		if err := tpl.Schema.Data.CheckAnswers(answers); err != nil {
			return err
		}
	}
	sub.ReportID = in.ReportID
	sub.Answers = domain.NewBlob(answers)
	sub.Status = status
	return nil
}

func schemaChanged(a, b domain.FormSchema) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return true
	}
	return string(ra) != string(rb)
}
