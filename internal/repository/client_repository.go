package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const clientColumns = `id, user_id, name, email, phone, address, company, notes, created_at, updated_at`

// PostgresClientRepository implements domain.ClientRepository. Every query
// is scoped by the owning user.
type PostgresClientRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresClientRepository(db *sql.DB, logger *slog.Logger) *PostgresClientRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresClientRepository{db: db, logger: logger}
}

func scanClient(s scanner) (*domain.Client, error) {
	c := &domain.Client{}
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Company, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PostgresClientRepository) Create(ctx context.Context, c *domain.Client) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO clients (id, user_id, name, email, phone, address, company, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Address, c.Company, c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeErr(err, "client")
	}
	return nil
}

func (r *PostgresClientRepository) Get(ctx context.Context, ownerID, id string) (*domain.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return nil, readErr(err, "client")
	}
	return c, nil
}

func (r *PostgresClientRepository) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.Client, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		r.logger.Error("failed to list clients", slog.String("user_id", ownerID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	out := []*domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresClientRepository) Update(ctx context.Context, c *domain.Client) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE clients
		SET name = $1, email = $2, phone = $3, address = $4, company = $5, notes = $6, updated_at = now()
		WHERE id = $7 AND user_id = $8
		RETURNING created_at, updated_at
	`, c.Name, c.Email, c.Phone, c.Address, c.Company, c.Notes, c.ID, c.UserID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeErr(err, "client")
	}
	return nil
}

func (r *PostgresClientRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return writeErr(err, "client")
	}
	return expectOne(res, "client")
}
