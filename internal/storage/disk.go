package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DiskStorage saves uploads to a local directory.
type DiskStorage struct {
	basePath string
}

// NewDiskStorage creates the base directory if missing.
func NewDiskStorage(basePath string) (*DiskStorage, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DiskStorage{basePath: basePath}, nil
}

func (d *DiskStorage) path(name string) (string, error) {
	if !ValidObjectName(name) {
		return "", ErrObjectNotFound
	}
	return filepath.Join(d.basePath, name), nil
}

func (d *DiskStorage) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	target, err := d.path(name)
	if err != nil {
		return fmt.Errorf("invalid object name %q", name)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func (d *DiskStorage) Open(_ context.Context, name string) (io.ReadCloser, int64, string, error) {
	target, err := d.path(name)
	if err != nil {
		return nil, 0, "", err
	}

	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, "", ErrObjectNotFound
	}
	if err != nil {
		return nil, 0, "", fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, "", fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, 0, "", ErrObjectNotFound
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, info.Size(), contentType, nil
}

func (d *DiskStorage) Remove(_ context.Context, name string) error {
	target, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Ping checks that the upload directory is still there.
func (d *DiskStorage) Ping(_ context.Context) error {
	info, err := os.Stat(d.basePath)
	if err != nil {
		return fmt.Errorf("stat upload dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("upload path %s is not a directory", d.basePath)
	}
	return nil
}
