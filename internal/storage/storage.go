// Package storage keeps card images in object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/huangang/ideaforge/backend/internal/config"
)

// ErrInvalidKey is returned for keys that would escape the store root.
var ErrInvalidKey = errors.New("invalid object key")

// ObjectStore provides access to object storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// URL returns a link a browser can load the object from.
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// presignExpiry is how long MinIO image links stay valid.
const presignExpiry = 24 * time.Hour

// New builds the store selected by cfg.Driver.
func New(cfg *config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.UploadsDir, cfg.PublicPrefix)
	case "minio":
		return NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// CleanKey normalises key and rejects absolute paths and parent references.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
