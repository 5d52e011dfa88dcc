package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/metrics"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/database"
)

// NotificationService reads and writes in-app notifications. When the
// notifications table is absent every read returns nothing and writes are
// dropped.
type NotificationService struct {
	repo   domain.NotificationRepository
	caps   *database.Capabilities
	logger *slog.Logger
}

// NewNotificationService creates a notification service. caps may be nil, in
// which case the table is assumed present.
func NewNotificationService(repo domain.NotificationRepository, caps *database.Capabilities, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{repo: repo, caps: caps, logger: logger}
}

func (s *NotificationService) available(ctx context.Context) bool {
	if s.caps == nil || s.caps.Has(ctx, database.TableNotifications) {
		return true
	}
	metrics.ObserveDegraded(database.TableNotifications)
	return false
}

// degrade reports whether err means the table vanished and records it.
func (s *NotificationService) degrade(err error) bool {
	if !errors.Is(err, domain.ErrUnavailable) {
		return false
	}
	if s.caps != nil {
		s.caps.MarkMissing(database.TableNotifications)
	}
	metrics.ObserveDegraded(database.TableNotifications)
	s.logger.Warn("notifications table unavailable, running degraded")
	return true
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, ownerID string, unreadOnly bool, opts domain.ListOptions) ([]*domain.Notification, error) {
	if !s.available(ctx) {
		return []*domain.Notification{}, nil
	}
	out, err := s.repo.List(ctx, ownerID, unreadOnly, opts.Normalize())
	if err != nil {
		if s.degrade(err) {
			return []*domain.Notification{}, nil
		}
		return nil, err
	}
	if out == nil {
		out = []*domain.Notification{}
	}
	return out, nil
}

// Since returns notifications created after since, oldest first.
func (s *NotificationService) Since(ctx context.Context, ownerID string, since time.Time) ([]*domain.Notification, error) {
	if !s.available(ctx) {
		return nil, nil
	}
	out, err := s.repo.ListSince(ctx, ownerID, since)
	if err != nil {
		if s.degrade(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, ownerID, id string) error {
	if !s.available(ctx) {
		return domain.ErrNotFound
	}
	err := s.repo.MarkRead(ctx, ownerID, id)
	if err != nil && s.degrade(err) {
		return domain.ErrNotFound
	}
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, ownerID string) (int64, error) {
	if !s.available(ctx) {
		return 0, nil
	}
	n, err := s.repo.MarkAllRead(ctx, ownerID)
	if err != nil {
		if s.degrade(err) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Notify stores a notification. Failures are logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, userID, kind, title, message, link string) {
	if !s.available(ctx) {
		return
	}
	n := &domain.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := s.repo.Create(ctx, n); err != nil && !s.degrade(err) {
		s.logger.Error("failed to store notification",
			slog.String("user_id", userID),
			slog.String("type", kind),
			slog.String("error", err.Error()),
		)
	}
}
