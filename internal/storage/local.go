package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects on disk under dir. The HTTP server serves dir at
// publicPrefix.
type LocalStore struct {
	dir          string
	publicPrefix string
}

func NewLocalStore(dir, publicPrefix string) (*LocalStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalStore{dir: dir, publicPrefix: strings.TrimSuffix(publicPrefix, "/")}, nil
}

// Dir is the directory objects are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// PublicPrefix is the URL path the directory is served under.
func (s *LocalStore) PublicPrefix() string {
	return s.publicPrefix
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if size >= 0 {
		src = io.LimitReader(r, size)
	}
	if _, err := io.Copy(tmp, readerWithContext(ctx, src)); err != nil {
		tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	return os.Rename(tmp.Name(), p)
}

func (s *LocalStore) URL(_ context.Context, key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return s.publicPrefix + "/" + key, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *LocalStore) path(key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
