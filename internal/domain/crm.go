package domain

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

// Contact is a person in the CRM, optionally attached to a company.
type Contact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CompanyID *string   `json:"companyId,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Position  string    `json:"position,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Contact) Validate() error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.FirstName == "" {
		return Invalid("firstName", "is required")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return Invalid("email", "is not a valid email address")
		}
	}
	return nil
}

// Company is an organisation in the CRM.
type Company struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	ABN       string    `json:"abn,omitempty"`
	Website   string    `json:"website,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Company) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Invalid("name", "is required")
	}
	abn := strings.ReplaceAll(c.ABN, " ", "")
	if abn != "" {
		if len(abn) != 11 || strings.Trim(abn, "0123456789") != "" {
			return Invalid("abn", "must be 11 digits")
		}
	}
	c.ABN = abn
	return nil
}

// CostLibraryItem is a reusable priced work item.
type CostLibraryItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Unit        string    `json:"unit"`
	RateCents   int64     `json:"rate"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *CostLibraryItem) Validate() error {
	c.Description = strings.TrimSpace(c.Description)
	if c.Description == "" {
		return Invalid("description", "is required")
	}
	if strings.TrimSpace(c.Category) == "" {
		return Invalid("category", "is required")
	}
	if c.RateCents < 0 {
		return Invalid("rate", "must not be negative")
	}
	if c.Unit == "" {
		c.Unit = "each"
	}
	return nil
}

// ContactRepository defines owner-scoped data access for contacts.
type ContactRepository interface {
	Create(ctx context.Context, c *Contact) error
	Get(ctx context.Context, ownerID, id string) (*Contact, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*Contact, error)
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, ownerID, id string) error
}

// CompanyRepository defines owner-scoped data access for companies.
type CompanyRepository interface {
	Create(ctx context.Context, c *Company) error
	Get(ctx context.Context, ownerID, id string) (*Company, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*Company, error)
	Update(ctx context.Context, c *Company) error
	Delete(ctx context.Context, ownerID, id string) error
}

// CostLibraryRepository defines owner-scoped data access for cost items.
type CostLibraryRepository interface {
	Create(ctx context.Context, c *CostLibraryItem) error
	Get(ctx context.Context, ownerID, id string) (*CostLibraryItem, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*CostLibraryItem, error)
	Update(ctx context.Context, c *CostLibraryItem) error
	Delete(ctx context.Context, ownerID, id string) error
}
