// Package storage keeps uploaded media files on disk or in an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrObjectNotFound is returned by MediaStorage.Open for unknown names.
var ErrObjectNotFound = errors.New("object not found")

// MediaStorage holds uploaded files under flat names.
type MediaStorage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// Open returns the object body with its size and content type.
	Open(ctx context.Context, name string) (io.ReadCloser, int64, string, error)
	Remove(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

// ValidObjectName rejects names that could escape the storage root.
func ValidObjectName(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > 255 {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}
