package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/redis"
)

// InterviewSessionTTL bounds how long an unapplied interview survives.
const InterviewSessionTTL = 24 * time.Hour

// RedisInterviewRepository implements domain.InterviewSessionRepository.
// Sessions are stored as JSON under interview:<id> and expire with the key.
type RedisInterviewRepository struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisInterviewRepository(client *redis.Client, logger *slog.Logger) *RedisInterviewRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisInterviewRepository{client: client, logger: logger}
}

func interviewKey(id string) string { return "interview:" + id }

func (r *RedisInterviewRepository) Save(ctx context.Context, s *domain.InterviewSession) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = s.CreatedAt.Add(InterviewSessionTTL)
	}
	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("interview session: %w", domain.ErrNotFound)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal interview session: %w", err)
	}
	if err := r.client.Set(ctx, interviewKey(s.ID), data, ttl); err != nil {
		r.logger.Error("failed to save interview session",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to save interview session: %w", err)
	}
	return nil
}

func (r *RedisInterviewRepository) Get(ctx context.Context, ownerID, id string) (*domain.InterviewSession, error) {
	raw, err := r.client.Get(ctx, interviewKey(id))
	if err != nil {
		if redis.IsNil(err) {
			return nil, fmt.Errorf("interview session: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get interview session: %w", err)
	}

	var s domain.InterviewSession
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to decode interview session: %w", err)
	}
	if s.UserID != ownerID {
		return nil, fmt.Errorf("interview session: %w", domain.ErrNotFound)
	}
	return &s, nil
}

func (r *RedisInterviewRepository) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := r.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return r.client.Delete(ctx, interviewKey(id))
}

// RedisTokenLedger implements domain.TokenLedger with SETNX on link:used:<jti>.
type RedisTokenLedger struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisTokenLedger(client *redis.Client, logger *slog.Logger) *RedisTokenLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisTokenLedger{client: client, logger: logger}
}

func ledgerKey(jti string) string { return "link:used:" + jti }

// Consume records jti for ttl. The key outlives the token so a replay
// inside the token's lifetime is always detected.
func (l *RedisTokenLedger) Consume(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := l.client.SetNX(ctx, ledgerKey(jti), time.Now().UTC().Format(time.RFC3339), ttl)
	if err != nil {
		return fmt.Errorf("failed to record token use: %w", err)
	}
	if !ok {
		l.logger.Warn("link token replayed", slog.String("jti", jti))
		return fmt.Errorf("link %s: %w", jti, domain.ErrTokenConsumed)
	}
	return nil
}

func (l *RedisTokenLedger) IsConsumed(ctx context.Context, jti string) (bool, error) {
	return l.client.Exists(ctx, ledgerKey(jti))
}
