package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const integrationColumns = `id, user_id, provider, status, access_token, refresh_token, token_expires_at, config, created_at, updated_at`

// PostgresIntegrationRepository implements domain.IntegrationRepository
type PostgresIntegrationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresIntegrationRepository(db *sql.DB, logger *slog.Logger) *PostgresIntegrationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresIntegrationRepository{db: db, logger: logger}
}

func scanIntegration(s scanner) (*domain.Integration, error) {
	in := &domain.Integration{}
	err := s.Scan(&in.ID, &in.UserID, &in.Provider, &in.Status, &in.AccessToken, &in.RefreshToken,
		&in.TokenExpiresAt, &in.Config, &in.CreatedAt, &in.UpdatedAt)
	return in, err
}

// Upsert keeps one row per (user, provider); a reconnect replaces tokens
// and handshake state but keeps the original id.
func (r *PostgresIntegrationRepository) Upsert(ctx context.Context, in *domain.Integration) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO integrations (id, user_id, provider, status, access_token, refresh_token, token_expires_at, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, provider) DO UPDATE
		SET status = EXCLUDED.status,
		    access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    token_expires_at = EXCLUDED.token_expires_at,
		    config = EXCLUDED.config,
		    updated_at = now()
		RETURNING id, created_at, updated_at
	`, in.ID, in.UserID, in.Provider, in.Status, in.AccessToken, in.RefreshToken, in.TokenExpiresAt, in.Config,
	).Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return writeErr(err, "integration")
	}
	return nil
}

func (r *PostgresIntegrationRepository) Get(ctx context.Context, ownerID, provider string) (*domain.Integration, error) {
	in, err := scanIntegration(r.db.QueryRowContext(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE user_id = $1 AND provider = $2`, ownerID, provider))
	if err != nil {
		return nil, readErr(err, "integration")
	}
	return in, nil
}

func (r *PostgresIntegrationRepository) List(ctx context.Context, ownerID string) ([]*domain.Integration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE user_id = $1 ORDER BY provider`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	out := []*domain.Integration{}
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Disconnect wipes tokens and handshake state but keeps the row.
func (r *PostgresIntegrationRepository) Disconnect(ctx context.Context, ownerID, provider string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE integrations
		SET status = 'disconnected', access_token = '', refresh_token = '', token_expires_at = NULL,
		    config = '{}', updated_at = now()
		WHERE user_id = $1 AND provider = $2
	`, ownerID, provider)
	if err != nil {
		return writeErr(err, "integration")
	}
	return expectOne(res, "integration")
}

// ClearStaleHandshakes resets pending handshakes older than cutoff.
func (r *PostgresIntegrationRepository) ClearStaleHandshakes(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE integrations
		SET config = '{}',
		    status = CASE WHEN status = 'pending' THEN 'disconnected' ELSE status END,
		    updated_at = now()
		WHERE config ? 'startedAt' AND (config->>'startedAt')::timestamptz < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clear stale handshakes: %w", err)
	}
	return res.RowsAffected()
}
