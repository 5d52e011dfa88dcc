package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/redis"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return redis.Wrap(rdb, nil), mr
}

func TestInterviewSessionRoundTrip(t *testing.T) {
	client, mr := newRedis(t)
	repo := NewRedisInterviewRepository(client, nil)
	ctx := context.Background()

	s := &domain.InterviewSession{
		ID:      "sess-1",
		UserID:  "u-1",
		JobType: "water",
		Grade:   2,
		Answers: map[string]string{"water_source": "burst pipe"},
	}
	require.NoError(t, repo.Save(ctx, s))
	assert.False(t, s.ExpiresAt.IsZero())
	assert.InDelta(t, InterviewSessionTTL.Seconds(), mr.TTL("interview:sess-1").Seconds(), 5)

	got, err := repo.Get(ctx, "u-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "burst pipe", got.Answers["water_source"])

	_, err = repo.Get(ctx, "u-2", "sess-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.Delete(ctx, "u-2", "sess-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "u-1", "sess-1"))

	_, err = repo.Get(ctx, "u-1", "sess-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInterviewSessionExpires(t *testing.T) {
	client, mr := newRedis(t)
	repo := NewRedisInterviewRepository(client, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &domain.InterviewSession{ID: "sess-2", UserID: "u-1"}))
	mr.FastForward(InterviewSessionTTL + time.Second)

	_, err := repo.Get(ctx, "u-1", "sess-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenLedgerSingleUse(t *testing.T) {
	client, mr := newRedis(t)
	ledger := NewRedisTokenLedger(client, nil)
	ctx := context.Background()

	used, err := ledger.IsConsumed(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, ledger.Consume(ctx, "jti-1", time.Hour))
	assert.ErrorIs(t, ledger.Consume(ctx, "jti-1", time.Hour), domain.ErrTokenConsumed)

	used, err = ledger.IsConsumed(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, used)
	assert.True(t, mr.Exists("link:used:jti-1"))
}
