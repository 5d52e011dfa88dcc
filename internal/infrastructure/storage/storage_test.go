package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/config"
)

func TestPhotoKey(t *testing.T) {
	key, err := PhotoKey("u-1", "r-1", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "reports/u-1/r-1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	_, err = PhotoKey("u-1", "r-1", "application/pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPutNotConfigured(t *testing.T) {
	s := NewStore(nil)
	s.settings = func() config.StorageSettings { return config.StorageSettings{} }

	err := s.Put(context.Background(), "k", strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
