package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// PostgresOrganizationRepository implements domain.OrganizationRepository
type PostgresOrganizationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrganizationRepository creates a new organization repository
func NewPostgresOrganizationRepository(db *sql.DB, logger *slog.Logger) *PostgresOrganizationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOrganizationRepository{db: db, logger: logger}
}

// Create creates a new organization
func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO organizations (id, name) VALUES ($1, $2) RETURNING created_at`,
		org.ID, org.Name,
	).Scan(&org.CreatedAt)
	if err != nil {
		return writeErr(err, "organization")
	}
	return nil
}

// GetByID retrieves an organization by ID
func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	org := &domain.Organization{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id = $1`, id,
	).Scan(&org.ID, &org.Name, &org.CreatedAt)
	if err != nil {
		return nil, readErr(err, "organization")
	}
	return org, nil
}

// PostgresAddonPurchaseRepository implements domain.AddonPurchaseRepository
type PostgresAddonPurchaseRepository struct {
	db *sql.DB
}

func NewPostgresAddonPurchaseRepository(db *sql.DB) *PostgresAddonPurchaseRepository {
	return &PostgresAddonPurchaseRepository{db: db}
}

// Record inserts the purchase unless the checkout session was seen before.
func (r *PostgresAddonPurchaseRepository) Record(ctx context.Context, userID, sessionID string, credits, quickFill int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO addon_purchases (id, user_id, stripe_session_id, credits, quick_fill)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		ON CONFLICT (stripe_session_id) DO NOTHING
	`, userID, sessionID, credits, quickFill)
	if err != nil {
		return false, writeErr(err, "addon purchase")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
