package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	cfg "github.com/lineaapp/linea/internal/config"
)

var (
	// ErrUnavailable is returned while the backend is considered down.
	ErrUnavailable = errors.New("storage unavailable")
	ErrInvalidPath = errors.New("invalid storage path")
)

// Storage is the media storage collaborator. Upload stores data under
// bucket/path and returns a URL the client can load it from.
type Storage interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, bucket, path string) error
}

// New builds the configured backend behind a circuit breaker.
func New(c *cfg.Config) (Storage, error) {
	var (
		s   Storage
		err error
	)

	switch c.StorageProvider {
	case cfg.StorageProviderS3:
		slog.Info("initializing S3 storage", "bucket", c.S3Bucket, "region", c.S3Region, "endpoint", c.S3Endpoint)
		s, err = NewS3Storage(S3Config{
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Endpoint:  c.S3Endpoint,
			PublicURL: c.S3PublicURL,
		})
	case cfg.StorageProviderSupabase:
		slog.Info("initializing Supabase storage", "bucket", c.SupabaseBucket)
		s, err = NewSupabaseStorage(c.SupabaseURL, c.SupabaseServiceKey)
	case cfg.StorageProviderLocal:
		slog.Info("initializing local storage", "path", c.LocalStoragePath)
		s, err = NewLocalStorage(c.LocalStoragePath, c.LocalStorageURL)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", c.StorageProvider)
	}
	if err != nil {
		return nil, err
	}

	return NewBreaker(s, DefaultBreakerConfig("storage-"+c.StorageProvider)), nil
}

// Bucket returns the bucket media is uploaded to for the configured provider.
func Bucket(c *cfg.Config) string {
	switch c.StorageProvider {
	case cfg.StorageProviderS3:
		return c.S3Bucket
	case cfg.StorageProviderSupabase:
		return c.SupabaseBucket
	default:
		return "media"
	}
}
