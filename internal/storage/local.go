package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalClient stores objects as files below a root directory.
type LocalClient struct {
	root string
}

// NewLocalClient constructs a filesystem backend rooted at dir.
func NewLocalClient(dir string) (*LocalClient, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("local storage directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalClient{root: abs}, nil
}

// EnsureBucket creates the root directory.
func (l *LocalClient) EnsureBucket(ctx context.Context) error {
	return os.MkdirAll(l.root, 0o755)
}

// Put writes the object atomically by renaming a temp file into place.
func (l *LocalClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Get opens the stored file.
func (l *LocalClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes the stored file. Missing files are not an error.
func (l *LocalClient) Delete(ctx context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Bucket returns the root directory.
func (l *LocalClient) Bucket() string {
	return l.root
}

func (l *LocalClient) path(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}
