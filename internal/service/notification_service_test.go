package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/database"
)

type staticProber map[string]bool

func (p staticProber) TableExists(_ context.Context, table string) (bool, error) {
	return p[table], nil
}

func TestNotificationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := &memNotificationRepo{}
	s := NewNotificationService(repo, nil, nil)

	start := time.Now().Add(-time.Second)
	s.Notify(ctx, "u1", "signature", "Form signed", "Jane signed", "/forms/submissions/s1")
	s.Notify(ctx, "u1", "invoice", "Invoice paid", "INV-2025-00001", "")
	s.Notify(ctx, "u2", "invoice", "Other", "", "")

	all, err := s.List(ctx, "u1", false, domain.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	recent, err := s.Since(ctx, "u1", start)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	require.NoError(t, s.MarkRead(ctx, "u1", all[0].ID))
	assert.ErrorIs(t, s.MarkRead(ctx, "u2", all[0].ID), domain.ErrNotFound)

	unread, err := s.List(ctx, "u1", true, domain.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	n, err := s.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNotificationsDegradeWhenTableMissing(t *testing.T) {
	ctx := context.Background()
	caps := database.NewCapabilities(staticProber{database.TableNotifications: false}, nil)
	repo := &memNotificationRepo{}
	s := NewNotificationService(repo, caps, nil)

	s.Notify(ctx, "u1", "signature", "Form signed", "", "")
	assert.Empty(t, repo.items)

	list, err := s.List(ctx, "u1", false, domain.ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	n, err := s.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, s.MarkRead(ctx, "u1", "n1"), domain.ErrNotFound)
}

func TestNotificationsDegradeOnUndefinedTable(t *testing.T) {
	ctx := context.Background()
	caps := database.NewCapabilities(staticProber{database.TableNotifications: true}, nil)
	repo := &memNotificationRepo{err: fmt.Errorf("list notifications: %w", domain.ErrUnavailable)}
	s := NewNotificationService(repo, caps, nil)

	list, err := s.List(ctx, "u1", false, domain.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, caps.Has(ctx, database.TableNotifications), "missing table is remembered")

	since, err := s.Since(ctx, "u1", time.Now())
	require.NoError(t, err)
	assert.Empty(t, since)
}
