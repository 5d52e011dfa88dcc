package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
)

// OwnedRepository is the owner-scoped CRUD shape shared by the simple
// record types (clients, inspections, contacts, companies, cost items).
type OwnedRepository[T any] interface {
	Create(ctx context.Context, v *T) error
	Get(ctx context.Context, ownerID, id string) (*T, error)
	List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*T, error)
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, ownerID, id string) error
}

// Record is a pointer to a validatable record type.
type Record[T any] interface {
	*T
	Validate() error
}

// ResourceHooks adapts a record type to ResourceService.
type ResourceHooks[T any] struct {
	// Bind stamps the id and owner onto v.
	Bind func(v *T, id, ownerID string)
	// CheckRefs verifies that ids referenced by v belong to ownerID.
	CheckRefs func(ctx context.Context, ownerID string, v *T) error
	// Conflict is the message returned for a unique violation.
	Conflict string
}

// ResourceService implements validated, audited, owner-scoped CRUD.
type ResourceService[T any, P Record[T]] struct {
	name   string
	repo   OwnedRepository[T]
	hooks  ResourceHooks[T]
	audit  *audit.Logger
	logger *slog.Logger
}

// NewResourceService creates a CRUD service for the resource called name.
func NewResourceService[T any, P Record[T]](
	name string,
	repo OwnedRepository[T],
	hooks ResourceHooks[T],
	auditLog *audit.Logger,
	logger *slog.Logger,
) *ResourceService[T, P] {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, logger)
	}
	return &ResourceService[T, P]{
		name:   name,
		repo:   repo,
		hooks:  hooks,
		audit:  auditLog,
		logger: logger,
	}
}

// Name is the resource name used in audit entries.
func (s *ResourceService[T, P]) Name() string { return s.name }

// Create validates and stores v under ownerID.
func (s *ResourceService[T, P]) Create(ctx context.Context, ownerID string, v *T) (*T, error) {
	id := uuid.NewString()
	s.hooks.Bind(v, id, ownerID)
	if err := s.check(ctx, ownerID, v); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, s.conflict(err)
	}
	s.audit.Record(ctx, ownerID, "create", s.name, id, nil, v)
	return v, nil
}

// Get returns one record. Foreign records are reported as not found.
func (s *ResourceService[T, P]) Get(ctx context.Context, ownerID, id string) (*T, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns a page of the owner's records.
func (s *ResourceService[T, P]) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*T, error) {
	out, err := s.repo.List(ctx, ownerID, opts.Normalize())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*T{}
	}
	return out, nil
}

// Update replaces the editable fields of record id.
func (s *ResourceService[T, P]) Update(ctx context.Context, ownerID, id string, v *T) (*T, error) {
	before, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	s.hooks.Bind(v, id, ownerID)
	if err := s.check(ctx, ownerID, v); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, s.conflict(err)
	}
	s.audit.Record(ctx, ownerID, "update", s.name, id, before, v)
	return v, nil
}

// Delete removes record id.
func (s *ResourceService[T, P]) Delete(ctx context.Context, ownerID, id string) error {
	before, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.audit.Record(ctx, ownerID, "delete", s.name, id, before, nil)
	return nil
}

func (s *ResourceService[T, P]) check(ctx context.Context, ownerID string, v *T) error {
	if err := P(v).Validate(); err != nil {
		return err
	}
	if s.hooks.CheckRefs != nil {
		return s.hooks.CheckRefs(ctx, ownerID, v)
	}
	return nil
}

func (s *ResourceService[T, P]) conflict(err error) error {
	if s.hooks.Conflict != "" && errors.Is(err, domain.ErrAlreadyExists) {
		return &domain.ConflictError{Message: s.hooks.Conflict}
	}
	return err
}

// Concrete record services.
type (
	ClientService      = ResourceService[domain.Client, *domain.Client]
	InspectionService  = ResourceService[domain.Inspection, *domain.Inspection]
	ContactService     = ResourceService[domain.Contact, *domain.Contact]
	CompanyService     = ResourceService[domain.Company, *domain.Company]
	CostLibraryService = ResourceService[domain.CostLibraryItem, *domain.CostLibraryItem]
)

// NewClientService creates the client CRUD service.
func NewClientService(repo domain.ClientRepository, auditLog *audit.Logger, logger *slog.Logger) *ClientService {
	return NewResourceService[domain.Client, *domain.Client]("client", repo, ResourceHooks[domain.Client]{
		Bind:     func(c *domain.Client, id, owner string) { c.ID, c.UserID = id, owner },
		Conflict: "client with this email already exists",
	}, auditLog, logger)
}

// NewInspectionService creates the inspection CRUD service. Linked reports
// and clients must belong to the same owner.
func NewInspectionService(repo domain.InspectionRepository, reports domain.ReportRepository, clients domain.ClientRepository, auditLog *audit.Logger, logger *slog.Logger) *InspectionService {
	return NewResourceService[domain.Inspection, *domain.Inspection]("inspection", repo, ResourceHooks[domain.Inspection]{
		Bind: func(i *domain.Inspection, id, owner string) { i.ID, i.UserID = id, owner },
		CheckRefs: func(ctx context.Context, owner string, i *domain.Inspection) error {
			if i.ReportID != nil {
				if _, err := reports.Get(ctx, owner, *i.ReportID); err != nil {
					return refErr(err, "reportId")
				}
			}
			if i.ClientID != nil {
				if _, err := clients.Get(ctx, owner, *i.ClientID); err != nil {
					return refErr(err, "clientId")
				}
			}
			return nil
		},
	}, auditLog, logger)
}

// NewContactService creates the contact CRUD service.
func NewContactService(repo domain.ContactRepository, companies domain.CompanyRepository, auditLog *audit.Logger, logger *slog.Logger) *ContactService {
	return NewResourceService[domain.Contact, *domain.Contact]("contact", repo, ResourceHooks[domain.Contact]{
		Bind: func(c *domain.Contact, id, owner string) { c.ID, c.UserID = id, owner },
		CheckRefs: func(ctx context.Context, owner string, c *domain.Contact) error {
			if c.CompanyID == nil {
				return nil
			}
			_, err := companies.Get(ctx, owner, *c.CompanyID)
			return refErr(err, "companyId")
		},
	}, auditLog, logger)
}

// NewCompanyService creates the company CRUD service.
func NewCompanyService(repo domain.CompanyRepository, auditLog *audit.Logger, logger *slog.Logger) *CompanyService {
	return NewResourceService[domain.Company, *domain.Company]("company", repo, ResourceHooks[domain.Company]{
		Bind: func(c *domain.Company, id, owner string) { c.ID, c.UserID = id, owner },
	}, auditLog, logger)
}

// NewCostLibraryService creates the cost library CRUD service.
func NewCostLibraryService(repo domain.CostLibraryRepository, auditLog *audit.Logger, logger *slog.Logger) *CostLibraryService {
	return NewResourceService[domain.CostLibraryItem, *domain.CostLibraryItem]("cost_library_item", repo, ResourceHooks[domain.CostLibraryItem]{
		Bind: func(c *domain.CostLibraryItem, id, owner string) { c.ID, c.UserID = id, owner },
	}, auditLog, logger)
}

// refErr turns a missing referenced record into a field error so that a
// foreign id cannot be distinguished from a nonexistent one.
func refErr(err error, field string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Invalid(field, "does not exist")
	}
	return err
}
