package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ReportStatus is the lifecycle position of a report.
type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportPending   ReportStatus = "pending"
	ReportGenerated ReportStatus = "generated"
	ReportSent      ReportStatus = "sent"
)

func (s ReportStatus) rank() int {
	switch s {
	case ReportDraft:
		return 1
	case ReportPending:
		return 2
	case ReportGenerated:
		return 3
	case ReportSent:
		return 4
	}
	return 0
}

// CanTransition reports whether a report may move from s to next.
// Moves are forward-only.
func (s ReportStatus) CanTransition(next ReportStatus) bool {
	return next.rank() != 0 && s.rank() != 0 && next.rank() > s.rank()
}

// MoistureReading is a single meter reading on site.
type MoistureReading struct {
	Location string    `json:"location"`
	Material string    `json:"material"`
	Value    float64   `json:"value"`
	Unit     string    `json:"unit"`
	Dry      bool      `json:"dry"`
	TakenAt  time.Time `json:"takenAt"`
}

// MoistureReadings is stored as a JSON blob.
type MoistureReadings []MoistureReading

func (m MoistureReadings) Validate() error {
	for i, r := range m {
		if strings.TrimSpace(r.Location) == "" {
			return Invalid(fmt.Sprintf("moistureReadings[%d].location", i), "is required")
		}
		if r.Value < 0 || r.Value > 100 {
			return Invalid(fmt.Sprintf("moistureReadings[%d].value", i), "must be between 0 and 100")
		}
	}
	return nil
}

// ScopeItem is a line of remediation work.
type ScopeItem struct {
	Code        string  `json:"code,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
}

// ScopeItems is stored as a JSON blob.
type ScopeItems []ScopeItem

func (s ScopeItems) Validate() error {
	for i, it := range s {
		if strings.TrimSpace(it.Description) == "" {
			return Invalid(fmt.Sprintf("scopeItems[%d].description", i), "is required")
		}
		if it.Quantity < 0 {
			return Invalid(fmt.Sprintf("scopeItems[%d].quantity", i), "must not be negative")
		}
	}
	return nil
}

// Photo references an object in storage.
type Photo struct {
	Key         string    `json:"key"`
	Caption     string    `json:"caption,omitempty"`
	ContentType string    `json:"contentType"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Photos is stored as a JSON blob.
type Photos []Photo

func (p Photos) Validate() error {
	for i, ph := range p {
		if ph.Key == "" {
			return Invalid(fmt.Sprintf("photos[%d].key", i), "is required")
		}
	}
	return nil
}

// Narrative holds LLM-synthesized report sections.
type Narrative struct {
	Summary         string    `json:"summary,omitempty"`
	CauseOfLoss     string    `json:"causeOfLoss,omitempty"`
	Recommendations string    `json:"recommendations,omitempty"`
	Provider        string    `json:"provider,omitempty"`
	GeneratedAt     time.Time `json:"generatedAt,omitempty"`
}

// Report is a damage-assessment record.
type Report struct {
	ID               string                 `json:"id"`
	UserID           string                 `json:"userId"`
	ClientID         *string                `json:"clientId,omitempty"`
	Title            string                 `json:"title"`
	PropertyAddress  string                 `json:"propertyAddress"`
	JobType          string                 `json:"jobType"`
	WaterCategory    int                    `json:"waterCategory"`
	WaterClass       int                    `json:"waterClass"`
	AffectedAreaM2   float64                `json:"affectedAreaM2"`
	CauseOfLoss      string                 `json:"causeOfLoss,omitempty"`
	Status           ReportStatus           `json:"status"`
	MoistureReadings Blob[MoistureReadings] `json:"moistureReadings"`
	ScopeItems       Blob[ScopeItems]       `json:"scopeItems"`
	Photos           Blob[Photos]           `json:"photos"`
	Narrative        Blob[Narrative]        `json:"narrative"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// Validate checks required fields and enum ranges.
func (r *Report) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return Invalid("title", "is required")
	}
	if r.WaterCategory != 0 && (r.WaterCategory < 1 || r.WaterCategory > 3) {
		return Invalid("waterCategory", "must be between 1 and 3")
	}
	if r.WaterClass != 0 && (r.WaterClass < 1 || r.WaterClass > 4) {
		return Invalid("waterClass", "must be between 1 and 4")
	}
	if r.AffectedAreaM2 < 0 {
		return Invalid("affectedAreaM2", "must not be negative")
	}
	if r.Status == "" {
		r.Status = ReportDraft
	}
	if r.Status.rank() == 0 {
		return Invalid("status", "must be one of draft, pending, generated, sent")
	}
	if err := r.MoistureReadings.Data.Validate(); err != nil {
		return err
	}
	return r.ScopeItems.Data.Validate()
}

// ReportRepository defines owner-scoped data access for reports.
type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	Get(ctx context.Context, ownerID, id string) (*Report, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*Report, error)
	Update(ctx context.Context, r *Report) error
	UpdateStatus(ctx context.Context, ownerID, id string, status ReportStatus) error
	UpdateNIRData(ctx context.Context, ownerID, id string, readings MoistureReadings, scope ScopeItems) error
	SaveNarrative(ctx context.Context, ownerID, id string, n Narrative) error
	AppendPhoto(ctx context.Context, ownerID, id string, p Photo) error
	Delete(ctx context.Context, ownerID, id string) error
	// GetForPortal loads a report without owner scoping; callers must
	// have validated a portal token first.
	GetForPortal(ctx context.Context, id string) (*Report, error)
}

// Inspection is a site visit record, optionally linked to a report.
type Inspection struct {
	ID               string                 `json:"id"`
	UserID           string                 `json:"userId"`
	ReportID         *string                `json:"reportId,omitempty"`
	ClientID         *string                `json:"clientId,omitempty"`
	PropertyAddress  string                 `json:"propertyAddress"`
	InspectorName    string                 `json:"inspectorName"`
	InspectedAt      time.Time              `json:"inspectedAt"`
	Status           string                 `json:"status"`
	Findings         string                 `json:"findings,omitempty"`
	MoistureReadings Blob[MoistureReadings] `json:"moistureReadings"`
	Photos           Blob[Photos]           `json:"photos"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// Validate checks required fields.
func (i *Inspection) Validate() error {
	i.PropertyAddress = strings.TrimSpace(i.PropertyAddress)
	if i.PropertyAddress == "" {
		return Invalid("propertyAddress", "is required")
	}
	switch i.Status {
	case "":
		i.Status = "scheduled"
	case "scheduled", "in_progress", "completed", "cancelled":
	default:
		return Invalid("status", "must be one of scheduled, in_progress, completed, cancelled")
	}
	if i.InspectedAt.IsZero() {
		i.InspectedAt = time.Now().UTC()
	}
	return i.MoistureReadings.Data.Validate()
}

// InspectionRepository defines owner-scoped data access for inspections.
type InspectionRepository interface {
	Create(ctx context.Context, i *Inspection) error
	Get(ctx context.Context, ownerID, id string) (*Inspection, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*Inspection, error)
	Update(ctx context.Context, i *Inspection) error
	Delete(ctx context.Context, ownerID, id string) error
}
