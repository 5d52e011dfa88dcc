package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FormField describes one input of a form schema.
type FormField struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// FormSchema is the versioned definition stored on a template.
type FormSchema struct {
	Fields []FormField `json:"fields"`
}

var formFieldTypes = map[string]bool{
	"text": true, "textarea": true, "number": true, "date": true,
	"select": true, "checkbox": true, "signature": true,
}

func (s FormSchema) Validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if strings.TrimSpace(f.Key) == "" {
			return Invalid(fmt.Sprintf("schema.fields[%d].key", i), "is required")
		}
		if seen[f.Key] {
			return Invalid(fmt.Sprintf("schema.fields[%d].key", i), "is duplicated")
		}
		seen[f.Key] = true
		if !formFieldTypes[f.Type] {
			return Invalid(fmt.Sprintf("schema.fields[%d].type", i), "is not a supported field type")
		}
		if f.Type == "select" && len(f.Options) == 0 {
			return Invalid(fmt.Sprintf("schema.fields[%d].options", i), "are required for select fields")
		}
	}
	return nil
}

// CheckAnswers verifies required fields are present and select values are allowed.
func (s FormSchema) CheckAnswers(answers map[string]any) error {
	for _, f := range s.Fields {
		v, ok := answers[f.Key]
		if f.Required && (!ok || v == nil || v == "") {
			return Invalid("answers."+f.Key, "is required")
		}
		if f.Type == "select" && ok {
			str, _ := v.(string)
			allowed := false
			for _, o := range f.Options {
				if o == str {
					allowed = true
					break
				}
			}
			if !allowed {
				return Invalid("answers."+f.Key, "is not an allowed option")
			}
		}
	}
	return nil
}

// FormTemplate is a versioned form definition.
type FormTemplate struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Name      string           `json:"name"`
	Category  string           `json:"category,omitempty"`
	Version   int              `json:"version"`
	Schema    Blob[FormSchema] `json:"schema"`
	IsActive  bool             `json:"isActive"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func (t *FormTemplate) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return Invalid("name", "is required")
	}
	if len(t.Schema.Data.Fields) == 0 {
		return Invalid("schema.fields", "must contain at least one field")
	}
	return t.Schema.Data.Validate()
}

// SubmissionStatus is the lifecycle of a form submission.
type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionSigned    SubmissionStatus = "signed"
)

// FormAnswers is the per-submission payload.
type FormAnswers map[string]any

// FormSubmission is a filled-in template.
type FormSubmission struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	TemplateID      string            `json:"templateId"`
	TemplateVersion int               `json:"templateVersion"`
	ReportID        *string           `json:"reportId,omitempty"`
	Answers         Blob[FormAnswers] `json:"answers"`
	Status          SubmissionStatus  `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Signature is an external signatory's mark on a submission.
type Signature struct {
	ID            string    `json:"id"`
	SubmissionID  string    `json:"submissionId"`
	SignerName    string    `json:"signerName"`
	SignerEmail   string    `json:"signerEmail"`
	SignatureData string    `json:"signatureData"`
	TokenID       string    `json:"-"`
	IPAddress     string    `json:"ipAddress"`
	UserAgent     string    `json:"userAgent"`
	SignedAt      time.Time `json:"signedAt"`
}

// FormRepository defines data access for templates, submissions and signatures.
type FormRepository interface {
	CreateTemplate(ctx context.Context, t *FormTemplate) error
	GetTemplate(ctx context.Context, ownerID, id string) (*FormTemplate, error)
	ListTemplates(ctx context.Context, ownerID string, opts ListOptions) ([]*FormTemplate, error)
	// UpdateTemplate increments the version when the schema changes.
	UpdateTemplate(ctx context.Context, t *FormTemplate, schemaChanged bool) error
	DeleteTemplate(ctx context.Context, ownerID, id string) error

	CreateSubmission(ctx context.Context, s *FormSubmission) error
	GetSubmission(ctx context.Context, ownerID, id string) (*FormSubmission, error)
	ListSubmissions(ctx context.Context, ownerID string, opts ListOptions) ([]*FormSubmission, error)
	UpdateSubmission(ctx context.Context, s *FormSubmission) error
	// GetOrganizationSubmission and ListOrganizationSubmissions scope reads to
	// submissions whose creator belongs to orgID.
	GetOrganizationSubmission(ctx context.Context, orgID, id string) (*FormSubmission, error)
	ListOrganizationSubmissions(ctx context.Context, orgID string, opts ListOptions) ([]*FormSubmission, error)
	// GetSubmissionForSigning loads a submission by id only; callers must hold
	// a validated signature token for it.
	GetSubmissionForSigning(ctx context.Context, id string) (*FormSubmission, error)

	// CreateSignature stores the signature and marks the submission signed.
	CreateSignature(ctx context.Context, sig *Signature) error
	ListSignatures(ctx context.Context, submissionID string) ([]*Signature, error)
}

// PortalInvitation grants a client read-only access to one report.
type PortalInvitation struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	ClientID   string     `json:"clientId"`
	ReportID   string     `json:"reportId"`
	Email      string     `json:"email"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// PortalRepository stores portal invitations.
type PortalRepository interface {
	Create(ctx context.Context, inv *PortalInvitation) error
	GetByID(ctx context.Context, id string) (*PortalInvitation, error)
	MarkAccepted(ctx context.Context, id string, at time.Time) error
}
