package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const inspectionColumns = `id, user_id, report_id, client_id, property_address, inspector_name,
	inspected_at, status, findings, moisture_readings, photos, created_at, updated_at`

// PostgresInspectionRepository implements domain.InspectionRepository
type PostgresInspectionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresInspectionRepository(db *sql.DB, logger *slog.Logger) *PostgresInspectionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresInspectionRepository{db: db, logger: logger}
}

func scanInspection(s scanner) (*domain.Inspection, error) {
	in := &domain.Inspection{}
	err := s.Scan(
		&in.ID, &in.UserID, &in.ReportID, &in.ClientID, &in.PropertyAddress, &in.InspectorName,
		&in.InspectedAt, &in.Status, &in.Findings, &in.MoistureReadings, &in.Photos,
		&in.CreatedAt, &in.UpdatedAt,
	)
	return in, err
}

func (r *PostgresInspectionRepository) Create(ctx context.Context, in *domain.Inspection) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO inspections (id, user_id, report_id, client_id, property_address, inspector_name,
			inspected_at, status, findings, moisture_readings, photos)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`,
		in.ID, in.UserID, in.ReportID, in.ClientID, in.PropertyAddress, in.InspectorName,
		in.InspectedAt, in.Status, in.Findings, in.MoistureReadings, in.Photos,
	).Scan(&in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return writeErr(err, "inspection")
	}
	return nil
}

func (r *PostgresInspectionRepository) Get(ctx context.Context, ownerID, id string) (*domain.Inspection, error) {
	in, err := scanInspection(r.db.QueryRowContext(ctx,
		`SELECT `+inspectionColumns+` FROM inspections WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return nil, readErr(err, "inspection")
	}
	return in, nil
}

func (r *PostgresInspectionRepository) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.Inspection, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+inspectionColumns+` FROM inspections
		WHERE user_id = $1
		ORDER BY inspected_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	out := []*domain.Inspection{}
	for rows.Next() {
		in, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *PostgresInspectionRepository) Update(ctx context.Context, in *domain.Inspection) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE inspections
		SET report_id = $1, client_id = $2, property_address = $3, inspector_name = $4, inspected_at = $5,
		    status = $6, findings = $7, moisture_readings = $8, photos = $9, updated_at = now()
		WHERE id = $10 AND user_id = $11
		RETURNING created_at, updated_at
	`,
		in.ReportID, in.ClientID, in.PropertyAddress, in.InspectorName, in.InspectedAt,
		in.Status, in.Findings, in.MoistureReadings, in.Photos, in.ID, in.UserID,
	).Scan(&in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return writeErr(err, "inspection")
	}
	return nil
}

func (r *PostgresInspectionRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inspections WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return writeErr(err, "inspection")
	}
	return expectOne(res, "inspection")
}
