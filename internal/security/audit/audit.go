package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/logger"
)

// Fields never written to the audit trail.
var redacted = map[string]bool{
	"passwordHash":  true,
	"accessToken":   true,
	"refreshToken":  true,
	"signatureData": true,
	"updatedAt":     true,
}

type Logger struct {
	repo   domain.AuditRepository
	logger *slog.Logger
}

// NewLogger creates an audit logger. repo may be nil, in which case entries
// only go to the structured log.
func NewLogger(repo domain.AuditRepository, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{repo: repo, logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", logger.RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}

// Record persists a mutation with the field-level difference between before
// and after. Either side may be nil for creates and deletes. Failures are
// logged and never fail the caller's request.
func (al *Logger) Record(ctx context.Context, userID, action, resource, resourceID string, before, after any) {
	changes := Diff(before, after)
	entry := &domain.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Changes:    domain.NewBlob(changes),
		RequestID:  logger.RequestID(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	al.LogAction(ctx, userID, action, resource, resourceID, "recorded", "")
	if al.repo == nil {
		return
	}
	if err := al.repo.Insert(ctx, entry); err != nil {
		al.logger.Error("failed to persist audit entry",
			slog.String("resource", resource),
			slog.String("resource_id", resourceID),
			slog.String("error", err.Error()),
		)
	}
}

// Diff compares the JSON forms of before and after and returns changed
// top-level fields.
func Diff(before, after any) map[string]domain.Change {
	b := toMap(before)
	a := toMap(after)
	out := map[string]domain.Change{}
	for k, av := range a {
		if redacted[k] {
			continue
		}
		bv, ok := b[k]
		if !ok || !reflect.DeepEqual(av, bv) {
			out[k] = domain.Change{From: bv, To: av}
		}
	}
	for k, bv := range b {
		if redacted[k] {
			continue
		}
		if _, ok := a[k]; !ok {
			out[k] = domain.Change{From: bv, To: nil}
		}
	}
	return out
}

func toMap(v any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return map[string]any{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
