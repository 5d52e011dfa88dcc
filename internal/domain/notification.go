package domain

import (
	"context"
	"time"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationRepository defines data access for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, ownerID string, unreadOnly bool, opts ListOptions) ([]*Notification, error)
	// ListSince returns notifications created strictly after since, oldest first.
	ListSince(ctx context.Context, ownerID string, since time.Time) ([]*Notification, error)
	MarkRead(ctx context.Context, ownerID, id string) error
	MarkAllRead(ctx context.Context, ownerID string) (int64, error)
}

// Change is one field difference recorded in the audit log.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// AuditEntry is a persisted record of a mutation.
type AuditEntry struct {
	ID         string                  `json:"id"`
	UserID     string                  `json:"userId"`
	Action     string                  `json:"action"`
	Resource   string                  `json:"resource"`
	ResourceID string                  `json:"resourceId"`
	Changes    Blob[map[string]Change] `json:"changes"`
	RequestID  string                  `json:"requestId,omitempty"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
}
