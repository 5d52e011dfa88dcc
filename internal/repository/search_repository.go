package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// PostgresSearchRepository implements domain.SearchRepository over the
// generated search_vector columns. Callers pass an already sanitised
// tsquery expression.
type PostgresSearchRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresSearchRepository(db *sql.DB, logger *slog.Logger) *PostgresSearchRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSearchRepository{db: db, logger: logger}
}

func (r *PostgresSearchRepository) search(ctx context.Context, kind, query string, args ...any) ([]domain.SearchHit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("search query failed", slog.String("type", kind), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to search %s: %w", kind, err)
	}
	defer rows.Close()

	hits := []domain.SearchHit{}
	for rows.Next() {
		h := domain.SearchHit{Type: kind}
		if err := rows.Scan(&h.ID, &h.Title, &h.Subtitle, &h.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan %s hit: %w", kind, err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (r *PostgresSearchRepository) SearchReports(ctx context.Context, ownerID, tsquery string, limit int) ([]domain.SearchHit, error) {
	return r.search(ctx, "report", `
		SELECT id, title, property_address, ts_rank(search_vector, q)
		FROM reports, to_tsquery('english', $2) q
		WHERE user_id = $1 AND search_vector @@ q
		ORDER BY ts_rank(search_vector, q) DESC, created_at DESC
		LIMIT $3
	`, ownerID, tsquery, limit)
}

func (r *PostgresSearchRepository) SearchClients(ctx context.Context, ownerID, tsquery string, limit int) ([]domain.SearchHit, error) {
	return r.search(ctx, "client", `
		SELECT id, name, email, ts_rank(search_vector, q)
		FROM clients, to_tsquery('english', $2) q
		WHERE user_id = $1 AND search_vector @@ q
		ORDER BY ts_rank(search_vector, q) DESC, created_at DESC
		LIMIT $3
	`, ownerID, tsquery, limit)
}

func (r *PostgresSearchRepository) SearchInspections(ctx context.Context, ownerID, tsquery string, limit int) ([]domain.SearchHit, error) {
	return r.search(ctx, "inspection", `
		SELECT id, property_address, inspector_name, ts_rank(search_vector, q)
		FROM inspections, to_tsquery('english', $2) q
		WHERE user_id = $1 AND search_vector @@ q
		ORDER BY ts_rank(search_vector, q) DESC, inspected_at DESC
		LIMIT $3
	`, ownerID, tsquery, limit)
}
