package oss

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// FileSystem stores objects under a local root directory. Intended for
// development and tests; its URLs are plain file URLs without signing.
type FileSystem struct {
	root string
}

// NewFileSystem creates a filesystem storage rooted at the given directory.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

func (fs *FileSystem) fullPath(path string) string {
	return filepath.Join(fs.root, filepath.Clean("/"+path))
}

func (fs *FileSystem) Put(_ context.Context, path string, reader io.Reader, _ int64) (*Object, error) {
	full := fs.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("failed to create object file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, reader)
	if err != nil {
		os.Remove(full)
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	return &Object{
		Path:         path,
		Name:         filepath.Base(path),
		Size:         size,
		LastModified: time.Now(),
	}, nil
}

func (fs *FileSystem) GetStream(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(fs.fullPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

func (fs *FileSystem) Delete(_ context.Context, path string) error {
	if err := os.Remove(fs.fullPath(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (fs *FileSystem) Exists(_ context.Context, path string) (bool, error) {
	if _, err := os.Stat(fs.fullPath(path)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (fs *FileSystem) GetURL(_ context.Context, path string, _ time.Duration) (string, error) {
	abs, err := filepath.Abs(fs.fullPath(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve object path: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: abs}).String(), nil
}

func (fs *FileSystem) GetEndpoint() string {
	return "file://" + fs.root
}
