package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore implements ObjectStore on the local filesystem for development
// runs without MinIO. Objects are served by the API under baseURL.
type FileStore struct {
	basePath string
	baseURL  string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath, baseURL string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes the object under the base directory.
func (f *FileStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	target := filepath.Join(f.basePath, safeKey(key))
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// PublicURL returns the URL the API serves the file under.
func (f *FileStore) PublicURL(key string) string {
	return f.baseURL + "/" + safeKey(key)
}

// PresignGet returns the public URL; local files need no signing.
func (f *FileStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return f.PublicURL(key), nil
}

// Delete removes the object file.
func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(f.basePath, safeKey(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Dir exposes the base directory so the server can mount a file handler.
func (f *FileStore) Dir() string {
	return f.basePath
}

func safeKey(key string) string {
	return filepath.Base(strings.TrimSpace(key))
}
