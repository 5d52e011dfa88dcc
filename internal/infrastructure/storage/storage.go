// Package storage keeps report photos in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/config"
)

// MaxPhotoBytes caps a single upload.
const MaxPhotoBytes = 15 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Store uploads objects using credentials read on every call.
type Store struct {
	settings func() config.StorageSettings
	logger   *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{settings: config.Storage, logger: logger}
}

func (s *Store) client() (*minio.Client, config.StorageSettings, error) {
	cfg := s.settings()
	if !cfg.Configured() {
		return nil, cfg, fmt.Errorf("object storage: %w", domain.ErrNotConfigured)
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to create storage client: %w", err)
	}
	return mc, cfg, nil
}

// PhotoKey builds the object key for a new photo on a report.
func PhotoKey(ownerID, reportID, contentType string) (string, error) {
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", domain.Invalid("photo", "must be a JPEG, PNG, WebP or HEIC image")
	}
	return path.Join("reports", ownerID, reportID, uuid.NewString()+ext), nil
}

// Put uploads size bytes from r under key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	mc, cfg, err := s.client()
	if err != nil {
		return err
	}
	info, err := mc.PutObject(ctx, cfg.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		s.logger.Error("photo upload failed", slog.String("key", key), slog.String("error", err.Error()))
		return &domain.UpstreamError{Provider: "storage", Err: err}
	}
	s.logger.Info("photo uploaded", slog.String("key", key), slog.Int64("size", info.Size))
	return nil
}

// PresignedURL returns a time-limited download URL for key.
func (s *Store) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	mc, cfg, err := s.client()
	if err != nil {
		return "", err
	}
	u, err := mc.PresignedGetObject(ctx, cfg.Bucket, key, ttl, url.Values{})
	if err != nil {
		return "", &domain.UpstreamError{Provider: "storage", Err: err}
	}
	return u.String(), nil
}
