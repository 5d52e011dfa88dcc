package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const reportColumns = `id, user_id, client_id, title, property_address, job_type, water_category,
	water_class, affected_area_m2, cause_of_loss, status, moisture_readings, scope_items, photos,
	narrative, created_at, updated_at`

// PostgresReportRepository implements domain.ReportRepository
type PostgresReportRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresReportRepository(db *sql.DB, logger *slog.Logger) *PostgresReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReportRepository{db: db, logger: logger}
}

func scanReport(s scanner) (*domain.Report, error) {
	rp := &domain.Report{}
	err := s.Scan(
		&rp.ID,
		&rp.UserID,
		&rp.ClientID,
		&rp.Title,
		&rp.PropertyAddress,
		&rp.JobType,
		&rp.WaterCategory,
		&rp.WaterClass,
		&rp.AffectedAreaM2,
		&rp.CauseOfLoss,
		&rp.Status,
		&rp.MoistureReadings,
		&rp.ScopeItems,
		&rp.Photos,
		&rp.Narrative,
		&rp.CreatedAt,
		&rp.UpdatedAt,
	)
	return rp, err
}

func (r *PostgresReportRepository) Create(ctx context.Context, rp *domain.Report) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO reports (id, user_id, client_id, title, property_address, job_type, water_category,
			water_class, affected_area_m2, cause_of_loss, status, moisture_readings, scope_items, photos, narrative)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`,
		rp.ID, rp.UserID, rp.ClientID, rp.Title, rp.PropertyAddress, rp.JobType, rp.WaterCategory,
		rp.WaterClass, rp.AffectedAreaM2, rp.CauseOfLoss, rp.Status, rp.MoistureReadings, rp.ScopeItems,
		rp.Photos, rp.Narrative,
	).Scan(&rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create report", slog.String("user_id", rp.UserID), slog.String("error", err.Error()))
		return writeErr(err, "report")
	}
	return nil
}

func (r *PostgresReportRepository) Get(ctx context.Context, ownerID, id string) (*domain.Report, error) {
	rp, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return nil, readErr(err, "report")
	}
	return rp, nil
}

func (r *PostgresReportRepository) GetForPortal(ctx context.Context, id string) (*domain.Report, error) {
	rp, err := scanReport(r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err != nil {
		return nil, readErr(err, "report")
	}
	return rp, nil
}

func (r *PostgresReportRepository) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.Report, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	out := []*domain.Report{}
	for rows.Next() {
		rp, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// Update writes the editable header fields. Status, readings, photos and the
// narrative have dedicated methods.
func (r *PostgresReportRepository) Update(ctx context.Context, rp *domain.Report) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE reports
		SET client_id = $1, title = $2, property_address = $3, job_type = $4, water_category = $5,
		    water_class = $6, affected_area_m2 = $7, cause_of_loss = $8, updated_at = now()
		WHERE id = $9 AND user_id = $10
		RETURNING updated_at
	`,
		rp.ClientID, rp.Title, rp.PropertyAddress, rp.JobType, rp.WaterCategory,
		rp.WaterClass, rp.AffectedAreaM2, rp.CauseOfLoss, rp.ID, rp.UserID,
	).Scan(&rp.UpdatedAt)
	if err != nil {
		return writeErr(err, "report")
	}
	return nil
}

func (r *PostgresReportRepository) UpdateStatus(ctx context.Context, ownerID, id string, status domain.ReportStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET status = $1, updated_at = now() WHERE id = $2 AND user_id = $3`,
		status, id, ownerID)
	if err != nil {
		return writeErr(err, "report")
	}
	return expectOne(res, "report")
}

func (r *PostgresReportRepository) UpdateNIRData(ctx context.Context, ownerID, id string, readings domain.MoistureReadings, scope domain.ScopeItems) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET moisture_readings = $1, scope_items = $2, updated_at = now()
		WHERE id = $3 AND user_id = $4
	`, domain.NewBlob(readings), domain.NewBlob(scope), id, ownerID)
	if err != nil {
		return writeErr(err, "report")
	}
	return expectOne(res, "report")
}

// SaveNarrative stores generated text and marks the report generated.
func (r *PostgresReportRepository) SaveNarrative(ctx context.Context, ownerID, id string, n domain.Narrative) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET narrative = $1, status = $2, updated_at = now()
		WHERE id = $3 AND user_id = $4
	`, domain.NewBlob(n), domain.ReportGenerated, id, ownerID)
	if err != nil {
		return writeErr(err, "report")
	}
	return expectOne(res, "report")
}

// AppendPhoto adds one photo to the report's photo blob atomically.
func (r *PostgresReportRepository) AppendPhoto(ctx context.Context, ownerID, id string, p domain.Photo) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET photos = photos || $1::jsonb, updated_at = now()
		WHERE id = $2 AND user_id = $3
	`, domain.NewBlob(domain.Photos{p}), id, ownerID)
	if err != nil {
		return writeErr(err, "report")
	}
	return expectOne(res, "report")
}

func (r *PostgresReportRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return writeErr(err, "report")
	}
	return expectOne(res, "report")
}
