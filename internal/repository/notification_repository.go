package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const notificationColumns = `id, user_id, type, title, message, link, read, created_at`

// PostgresNotificationRepository implements domain.NotificationRepository.
// The notifications table is optional; a missing table surfaces as
// domain.ErrUnavailable.
type PostgresNotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresNotificationRepository(db *sql.DB, logger *slog.Logger) *PostgresNotificationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotificationRepository{db: db, logger: logger}
}

func (r *PostgresNotificationRepository) collect(rows *sql.Rows) ([]*domain.Notification, error) {
	defer rows.Close()
	out := []*domain.Notification{}
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, link)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Link).Scan(&n.CreatedAt)
	if err != nil {
		return writeErr(err, "notification")
	}
	return nil
}

func (r *PostgresNotificationRepository) List(ctx context.Context, ownerID string, unreadOnly bool, opts domain.ListOptions) ([]*domain.Notification, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND (NOT $2::boolean OR read = false)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, ownerID, unreadOnly, opts.Limit, opts.Offset)
	if err != nil {
		return nil, readErr(err, "notifications")
	}
	return r.collect(rows)
}

func (r *PostgresNotificationRepository) ListSince(ctx context.Context, ownerID string, since time.Time) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at
		LIMIT 100
	`, ownerID, since)
	if err != nil {
		return nil, readErr(err, "notifications")
	}
	return r.collect(rows)
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return writeErr(err, "notification")
	}
	return expectOne(res, "notification")
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`, ownerID)
	if err != nil {
		return 0, writeErr(err, "notifications")
	}
	return res.RowsAffected()
}
