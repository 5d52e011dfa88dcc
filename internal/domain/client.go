package domain

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

// ListOptions bounds list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize applies defaults and caps.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 || o.Limit > 200 {
		o.Limit = 50
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Client is a CRM customer record owned by a user.
type Client struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Company   string    `json:"company,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks required fields.
func (c *Client) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Name == "" {
		return Invalid("name", "is required")
	}
	if len(c.Name) > 200 {
		return Invalid("name", "must be at most 200 characters")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return Invalid("email", "is not a valid email address")
		}
	}
	return nil
}

// ClientRepository defines owner-scoped data access for clients.
type ClientRepository interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, ownerID, id string) (*Client, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*Client, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, ownerID, id string) error
}
