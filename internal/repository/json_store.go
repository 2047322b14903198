package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cmsadmin/internal/models"
)

// JSONFileRepository keeps the whole document in memory and rewrites the file
// after every mutation. One RWMutex guards both: writers are exclusive.
type JSONFileRepository struct {
	mu    sync.RWMutex
	path  string
	data  map[string][]models.Record
	extra map[string]any
}

// NewJSONFileRepository loads path, creating it with empty collections when absent.
func NewJSONFileRepository(path string) (*JSONFileRepository, error) {
	r := &JSONFileRepository{
		path:  path,
		data:  make(map[string][]models.Record),
		extra: make(map[string]any),
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		for _, c := range models.Collections {
			r.data[c] = []models.Record{}
		}
		if err := r.persist(); err != nil {
			return nil, err
		}
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := r.load(raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}

func (r *JSONFileRepository) load(raw []byte) error {
	doc, err := models.DecodeRecord(raw)
	if err != nil {
		return err
	}

	for key, value := range doc {
		list, ok := value.([]any)
		if !ok {
			// Non-collection top-level values survive rewrites untouched.
			r.extra[key] = value
			continue
		}
		records := make([]models.Record, 0, len(list))
		for _, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("collection %q holds a non-object entry", key)
			}
			rec := models.Record(obj)
			if id, ok := rec.ID(); ok {
				rec.SetID(id)
			}
			records = append(records, rec)
		}
		r.data[key] = records
	}

	for _, c := range models.Collections {
		if _, ok := r.data[c]; !ok {
			r.data[c] = []models.Record{}
		}
	}
	return nil
}

// persist writes the document through a temp file and rename so readers of
// the file never observe a partial write. Callers hold the write lock.
func (r *JSONFileRepository) persist() error {
	doc := make(map[string]any, len(r.data)+len(r.extra))
	for k, v := range r.extra {
		doc[k] = v
	}
	for k, v := range r.data {
		doc[k] = v
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

// commit swaps in next for collection and persists, restoring the previous
// slice if the write fails.
func (r *JSONFileRepository) commit(collection string, next []models.Record) error {
	prev := r.data[collection]
	r.data[collection] = next
	if err := r.persist(); err != nil {
		r.data[collection] = prev
		return err
	}
	return nil
}

// List returns every record of the collection in insertion order.
func (r *JSONFileRepository) List(_ context.Context, collection string) ([]models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.data[collection]
	out := make([]models.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out, nil
}

func (r *JSONFileRepository) Get(_ context.Context, collection string, id int64) (models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := indexOf(r.data[collection], id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return r.data[collection][idx].Clone(), nil
}

func (r *JSONFileRepository) Create(_ context.Context, collection string, rec models.Record) (models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.data[collection]
	stored, err := prepareCreate(current, rec)
	if err != nil {
		return nil, err
	}

	next := make([]models.Record, len(current), len(current)+1)
	copy(next, current)
	next = append(next, stored)
	if err := r.commit(collection, next); err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func (r *JSONFileRepository) Update(_ context.Context, collection string, id int64, fn UpdateFunc) (models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.data[collection]
	idx := indexOf(current, id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	updated, err := applyUpdate(current[idx], id, fn)
	if err != nil {
		return nil, err
	}

	next := make([]models.Record, len(current))
	copy(next, current)
	next[idx] = updated
	if err := r.commit(collection, next); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func (r *JSONFileRepository) Delete(_ context.Context, collection string, id int64) (models.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.data[collection]
	idx := indexOf(current, id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	removed := current[idx]
	next := make([]models.Record, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	if err := r.commit(collection, next); err != nil {
		return nil, err
	}
	return removed.Clone(), nil
}

func (r *JSONFileRepository) Truncate(_ context.Context, collection string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.commit(collection, []models.Record{})
}

// Ping checks that the document file is still readable.
func (r *JSONFileRepository) Ping(_ context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("stat %s: %w", r.path, err)
	}
	return nil
}

func (r *JSONFileRepository) Close() error {
	return nil
}
