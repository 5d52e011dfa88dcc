package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// PostgresAuditRepository implements domain.AuditRepository
type PostgresAuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresAuditRepository(db *sql.DB, logger *slog.Logger) *PostgresAuditRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAuditRepository{db: db, logger: logger}
}

func (r *PostgresAuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	var userID *string
	if e.UserID != "" {
		userID = &e.UserID
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audit_log (id, user_id, action, resource, resource_id, changes, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, e.ID, userID, e.Action, e.Resource, e.ResourceID, e.Changes, e.RequestID).Scan(&e.CreatedAt)
	if err != nil {
		return writeErr(err, "audit entry")
	}
	return nil
}
