// Package repository persists schemaless records grouped in named collections.
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"cmsadmin/internal/models"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when a created record carries an id already in use.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrVersionMismatch is returned by an UpdateFunc whose expected version is stale.
	ErrVersionMismatch = errors.New("version mismatch")
	// ErrUnknownCollection is returned for collection names outside models.Collections.
	ErrUnknownCollection = errors.New("unknown collection")
)

// UpdateFunc computes the next version of a record from the current one. It
// runs while the store holds its write lock, so it must not call back into the
// repository. Returning an error aborts the update.
type UpdateFunc func(current models.Record) (models.Record, error)

// DocumentRepository is the document store behind the CRUD API. Every write is
// serialized: at most one writer touches the store at a time.
type DocumentRepository interface {
	// List returns every record of the collection in insertion order.
	List(ctx context.Context, collection string) ([]models.Record, error)
	Get(ctx context.Context, collection string, id int64) (models.Record, error)
	// Create stores rec, assigning max(id)+1 when rec has no id.
	Create(ctx context.Context, collection string, rec models.Record) (models.Record, error)
	// Update atomically replaces the record with fn's result. The id is preserved.
	Update(ctx context.Context, collection string, id int64, fn UpdateFunc) (models.Record, error)
	Delete(ctx context.Context, collection string, id int64) (models.Record, error)
	// Truncate removes every record of the collection.
	Truncate(ctx context.Context, collection string) error
	Ping(ctx context.Context) error
	Close() error
}

// Fingerprint returns a stable version tag for rec, used as an HTTP ETag.
func Fingerprint(rec models.Record) string {
	// encoding/json sorts map keys, which makes the encoding canonical.
	data, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

func checkCollection(name string) error {
	if !models.IsCollection(name) {
		return ErrUnknownCollection
	}
	return nil
}

func nextID(records []models.Record) int64 {
	var max int64
	for _, r := range records {
		if id, ok := r.ID(); ok && id > max {
			max = id
		}
	}
	return max + 1
}

func indexOf(records []models.Record, id int64) int {
	for i, r := range records {
		if rid, ok := r.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}

// prepareCreate validates or assigns the id of a new record.
func prepareCreate(existing []models.Record, rec models.Record) (models.Record, error) {
	out := rec.Clone()
	if _, present := out["id"]; present {
		id, ok := out.ID()
		if !ok {
			return nil, models.NewValidationError("id must be an integer")
		}
		if indexOf(existing, id) >= 0 {
			return nil, ErrDuplicateID
		}
		out.SetID(id)
		return out, nil
	}
	out.SetID(nextID(existing))
	return out, nil
}

// applyUpdate runs fn and pins the id of the result.
func applyUpdate(current models.Record, id int64, fn UpdateFunc) (models.Record, error) {
	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	next = next.Clone()
	next.SetID(id)
	return next, nil
}

func toJSON(rec models.Record) ([]byte, error) {
	return json.Marshal(rec)
}
