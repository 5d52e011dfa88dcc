package domain

import (
	"context"
	"time"
)

// IntegrationStatus tracks an OAuth connection.
type IntegrationStatus string

const (
	IntegrationPending      IntegrationStatus = "pending"
	IntegrationConnected    IntegrationStatus = "connected"
	IntegrationDisconnected IntegrationStatus = "disconnected"
)

// HandshakeState is transient PKCE/state data kept only while an OAuth
// handshake is in flight.
type HandshakeState struct {
	State        string     `json:"state,omitempty"`
	CodeVerifier string     `json:"codeVerifier,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
}

func (h HandshakeState) Validate() error {
	if h.State != "" && h.CodeVerifier == "" {
		return Invalid("config.codeVerifier", "is required while a handshake is pending")
	}
	return nil
}

// Integration stores a (user, provider) OAuth connection.
type Integration struct {
	ID             string               `json:"id"`
	UserID         string               `json:"userId"`
	Provider       string               `json:"provider"`
	Status         IntegrationStatus    `json:"status"`
	AccessToken    string               `json:"-"`
	RefreshToken   string               `json:"-"`
	TokenExpiresAt *time.Time           `json:"tokenExpiresAt,omitempty"`
	Config         Blob[HandshakeState] `json:"-"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// IntegrationRepository defines data access for integrations.
type IntegrationRepository interface {
	// Upsert inserts or replaces the row for (UserID, Provider).
	Upsert(ctx context.Context, in *Integration) error
	Get(ctx context.Context, ownerID, provider string) (*Integration, error)
	List(ctx context.Context, ownerID string) ([]*Integration, error)
	Disconnect(ctx context.Context, ownerID, provider string) error
	// ClearStaleHandshakes drops handshake state started before cutoff and
	// returns the number of rows touched.
	ClearStaleHandshakes(ctx context.Context, cutoff time.Time) (int64, error)
}
