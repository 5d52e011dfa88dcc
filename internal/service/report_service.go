package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/document"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/llm"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/storage"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
)

// NarrativeGenerator produces report text from a prompt.
type NarrativeGenerator interface {
	Generate(ctx context.Context, prompt string) (llm.Result, error)
}

// PhotoStore uploads report photos.
type PhotoStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// NIRData is the structured site data of a report.
type NIRData struct {
	MoistureReadings domain.MoistureReadings `json:"moistureReadings"`
	ScopeItems       domain.ScopeItems       `json:"scopeItems"`
}

// PhotoUpload is one image received from a multipart request.
type PhotoUpload struct {
	Caption     string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ReportService handles report lifecycle, generation and export.
type ReportService struct {
	reports   domain.ReportRepository
	clients   domain.ClientRepository
	billing   *BillingService
	generator NarrativeGenerator
	photos    PhotoStore
	audit     *audit.Logger
	logger    *slog.Logger
	now       func() time.Time
}

// NewReportService creates a report service. generator and photos may be
// nil; the matching operations then report the service as not configured.
func NewReportService(
	reports domain.ReportRepository,
	clients domain.ClientRepository,
	billing *BillingService,
	generator NarrativeGenerator,
	photos PhotoStore,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, logger)
	}
	return &ReportService{
		reports:   reports,
		clients:   clients,
		billing:   billing,
		generator: generator,
		photos:    photos,
		audit:     auditLog,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a new report. It spends one report credit unless the
// owner is unlimited.
func (s *ReportService) Create(ctx context.Context, ownerID string, r *domain.Report) (*domain.Report, error) {
	user, err := s.billing.Check(ctx, ownerID, domain.FeatureReport)
	if err != nil {
		return nil, err
	}

	r.ID = uuid.NewString()
	r.UserID = ownerID
	r.Status = domain.ReportDraft
	r.Narrative = domain.Blob[domain.Narrative]{}
	r.Photos = domain.NewBlob(domain.Photos{})
	r.MoistureReadings.Data = nonNil(r.MoistureReadings.Data)
	r.ScopeItems.Data = nonNil(r.ScopeItems.Data)
	if err := s.validate(ctx, ownerID, r); err != nil {
		return nil, err
	}
	if err := s.reports.Create(ctx, r); err != nil {
		return nil, err
	}
	if err := s.billing.Consume(ctx, user, domain.FeatureReport); err != nil {
		// The report exists; a failed decrement is logged rather than undone.
		s.logger.Error("failed to charge report credit",
			slog.String("report_id", r.ID),
			slog.String("error", err.Error()),
		)
	}

	s.audit.Record(ctx, ownerID, "create", "report", r.ID, nil, r)
	return r, nil
}

// Get returns one report owned by ownerID.
func (s *ReportService) Get(ctx context.Context, ownerID, id string) (*domain.Report, error) {
	return s.reports.Get(ctx, ownerID, id)
}

// List returns a page of the owner's reports.
func (s *ReportService) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.Report, error) {
	out, err := s.reports.List(ctx, ownerID, opts.Normalize())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.Report{}
	}
	return out, nil
}

// Update replaces the descriptive fields of a report. Status, site data,
// photos and narrative have their own operations.
func (s *ReportService) Update(ctx context.Context, ownerID, id string, in *domain.Report) (*domain.Report, error) {
	before, err := s.reports.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	after := *before
	after.ClientID = in.ClientID
	after.Title = in.Title
	after.PropertyAddress = in.PropertyAddress
	after.JobType = in.JobType
	after.WaterCategory = in.WaterCategory
	after.WaterClass = in.WaterClass
	after.AffectedAreaM2 = in.AffectedAreaM2
	after.CauseOfLoss = in.CauseOfLoss
	if err := s.validate(ctx, ownerID, &after); err != nil {
		return nil, err
	}
	if err := s.reports.Update(ctx, &after); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, ownerID, "update", "report", id, before, &after)
	return &after, nil
}

// UpdateStatus moves a report forward in its lifecycle.
func (s *ReportService) UpdateStatus(ctx context.Context, ownerID, id string, next domain.ReportStatus) (*domain.Report, error) {
	r, err := s.reports.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransition(next) {
		return nil, domain.Invalid("status", fmt.Sprintf("cannot move from %s to %s", r.Status, next))
	}
	if err := s.reports.UpdateStatus(ctx, ownerID, id, next); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, ownerID, "update_status", "report", id,
		map[string]any{"status": r.Status}, map[string]any{"status": next})
	r.Status = next
	return r, nil
}

// Delete removes a report.
func (s *ReportService) Delete(ctx context.Context, ownerID, id string) error {
	before, err := s.reports.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.audit.Record(ctx, ownerID, "delete", "report", id, before, nil)
	return nil
}

// NIRData returns the moisture readings and scope of a report.
func (s *ReportService) NIRData(ctx context.Context, ownerID, id string) (*NIRData, error) {
	r, err := s.reports.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return &NIRData{
		MoistureReadings: nonNil(r.MoistureReadings.Data),
		ScopeItems:       nonNil(r.ScopeItems.Data),
	}, nil
}

// UpdateNIRData replaces the moisture readings and scope of a report.
func (s *ReportService) UpdateNIRData(ctx context.Context, ownerID, id string, data NIRData) (*NIRData, error) {
	if err := data.MoistureReadings.Validate(); err != nil {
		return nil, err
	}
	if err := data.ScopeItems.Validate(); err != nil {
		return nil, err
	}
	before, err := s.NIRData(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	data.MoistureReadings = nonNil(data.MoistureReadings)
	data.ScopeItems = nonNil(data.ScopeItems)
	if err := s.reports.UpdateNIRData(ctx, ownerID, id, data.MoistureReadings, data.ScopeItems); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, ownerID, "update_nir_data", "report", id, before, &data)
	return &data, nil
}

// Generate synthesizes the narrative with the configured providers. On
// failure the stored report is left unchanged.
func (s *ReportService) Generate(ctx context.Context, ownerID, id string) (*domain.Report, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("narrative generation: %w", domain.ErrNotConfigured)
	}
	r, err := s.reports.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if r.Status == domain.ReportSent {
		return nil, domain.Invalid("status", "sent reports cannot be regenerated")
	}

	res, err := s.generator.Generate(ctx, document.NarrativePrompt(r))
	if err != nil {
		s.logger.Warn("narrative generation failed",
			slog.String("report_id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	n, err := document.ParseNarrative(res.Text)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: res.Provider, Summary: domain.NarrativeFailed, Err: err}
	}
	n.Provider = res.Provider
	n.GeneratedAt = s.now().UTC()

	if err := s.reports.SaveNarrative(ctx, ownerID, id, n); err != nil {
		return nil, err
	}

	before := r.Status
	r.Narrative = domain.NewBlob(n)
	r.Status = domain.ReportGenerated
	s.audit.Record(ctx, ownerID, "generate", "report", id,
		map[string]any{"status": before}, map[string]any{"status": r.Status, "provider": n.Provider})
	return r, nil
}

// ExportPDF renders the report to w. It spends one export credit unless
// the owner is unlimited.
func (s *ReportService) ExportPDF(ctx context.Context, ownerID, id string, w io.Writer) error {
	r, err := s.reports.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	user, err := s.billing.Check(ctx, ownerID, domain.FeatureExport)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := document.RenderReportPDF(&buf, r, user.Name); err != nil {
		s.logger.Error("failed to render report pdf",
			slog.String("report_id", id),
			slog.String("error", err.Error()),
		)
		return err
	}
	if err := s.billing.Consume(ctx, user, domain.FeatureExport); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// RenderHTML writes the printable HTML form of a report.
func (s *ReportService) RenderHTML(ctx context.Context, ownerID, id string, w io.Writer) error {
	r, err := s.reports.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	return document.RenderReportHTML(w, r)
}

// AddPhoto uploads an image and appends it to the report's photo list.
func (s *ReportService) AddPhoto(ctx context.Context, ownerID, id string, up PhotoUpload) (*domain.Photo, error) {
	if s.photos == nil {
		return nil, fmt.Errorf("photo storage: %w", domain.ErrNotConfigured)
	}
	if up.Size <= 0 || up.Size > storage.MaxPhotoBytes {
		return nil, domain.Invalid("photo", "must be between 1 byte and 15 MB")
	}
	if _, err := s.reports.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	key, err := storage.PhotoKey(ownerID, id, up.ContentType)
	if err != nil {
		return nil, err
	}
	if err := s.photos.Put(ctx, key, up.Body, up.Size, up.ContentType); err != nil {
		return nil, err
	}

	p := domain.Photo{
		Key:         key,
		Caption:     up.Caption,
		ContentType: up.ContentType,
		UploadedAt:  s.now().UTC(),
	}
	if err := s.reports.AppendPhoto(ctx, ownerID, id, p); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, ownerID, "add_photo", "report", id, nil, map[string]any{"photo": p.Key})
	return &p, nil
}

func (s *ReportService) validate(ctx context.Context, ownerID string, r *domain.Report) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ClientID != nil {
		if _, err := s.clients.Get(ctx, ownerID, *r.ClientID); err != nil {
			return refErr(err, "clientId")
		}
	}
	return nil
}

func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}
