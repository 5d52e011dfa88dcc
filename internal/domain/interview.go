package domain

import (
	"context"
	"time"
)

// InterviewSession is ephemeral guided-question state. Its AutoPopulated
// values are merged into a report when the session is applied.
type InterviewSession struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	ReportID      *string           `json:"reportId,omitempty"`
	JobType       string            `json:"jobType"`
	Grade         int               `json:"grade"`
	TierReached   int               `json:"tierReached"`
	Answers       map[string]string `json:"answers"`
	AutoPopulated map[string]string `json:"autoPopulated"`
	Applied       bool              `json:"applied"`
	CreatedAt     time.Time         `json:"createdAt"`
	ExpiresAt     time.Time         `json:"expiresAt"`
}

// InterviewSessionRepository stores sessions with a TTL.
type InterviewSessionRepository interface {
	Save(ctx context.Context, s *InterviewSession) error
	// Get returns ErrNotFound for missing, expired or foreign sessions.
	Get(ctx context.Context, ownerID, id string) (*InterviewSession, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// TokenLedger records single-use link tokens.
type TokenLedger interface {
	// Consume marks jti used until ttl elapses. It returns ErrTokenConsumed
	// if the token was already used.
	Consume(ctx context.Context, jti string, ttl time.Duration) error
	IsConsumed(ctx context.Context, jti string) (bool, error)
}

// SearchHit is one ranked search result.
type SearchHit struct {
	Type     string  `json:"type"`
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle,omitempty"`
	Rank     float64 `json:"rank"`
}

// SearchRepository runs owner-scoped full-text queries.
type SearchRepository interface {
	SearchReports(ctx context.Context, ownerID, tsquery string, limit int) ([]SearchHit, error)
	SearchClients(ctx context.Context, ownerID, tsquery string, limit int) ([]SearchHit, error)
	SearchInspections(ctx context.Context, ownerID, tsquery string, limit int) ([]SearchHit, error)
}
