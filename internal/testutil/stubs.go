// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"sync"

	"cmsadmin/internal/models"
	"cmsadmin/internal/repository"
	"cmsadmin/internal/storage"
)

// T is the subset of testing.TB the helpers need.
type T interface {
	Helper()
	Fatalf(string, ...any)
	TempDir() string
}

// NewJSONRepo opens a JSON file repository in a temporary directory.
func NewJSONRepo(t T) *repository.JSONFileRepository {
	t.Helper()
	repo, err := repository.NewJSONFileRepository(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatalf("open json repository: %v", err)
	}
	return repo
}

// RepoStub delegates to Next unless the matching fn field is set.
type RepoStub struct {
	repository.DocumentRepository

	ListFn   func(ctx context.Context, collection string) ([]models.Record, error)
	GetFn    func(ctx context.Context, collection string, id int64) (models.Record, error)
	CreateFn func(ctx context.Context, collection string, rec models.Record) (models.Record, error)
	UpdateFn func(ctx context.Context, collection string, id int64, fn repository.UpdateFunc) (models.Record, error)
	DeleteFn func(ctx context.Context, collection string, id int64) (models.Record, error)
	PingFn   func(ctx context.Context) error
}

// NewRepoStub wraps next.
func NewRepoStub(next repository.DocumentRepository) *RepoStub {
	return &RepoStub{DocumentRepository: next}
}

func (s *RepoStub) List(ctx context.Context, collection string) ([]models.Record, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, collection)
	}
	return s.DocumentRepository.List(ctx, collection)
}

func (s *RepoStub) Get(ctx context.Context, collection string, id int64) (models.Record, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, collection, id)
	}
	return s.DocumentRepository.Get(ctx, collection, id)
}

func (s *RepoStub) Create(ctx context.Context, collection string, rec models.Record) (models.Record, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, collection, rec)
	}
	return s.DocumentRepository.Create(ctx, collection, rec)
}

func (s *RepoStub) Update(ctx context.Context, collection string, id int64, fn repository.UpdateFunc) (models.Record, error) {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, collection, id, fn)
	}
	return s.DocumentRepository.Update(ctx, collection, id, fn)
}

func (s *RepoStub) Delete(ctx context.Context, collection string, id int64) (models.Record, error) {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, collection, id)
	}
	return s.DocumentRepository.Delete(ctx, collection, id)
}

func (s *RepoStub) Ping(ctx context.Context) error {
	if s.PingFn != nil {
		return s.PingFn(ctx)
	}
	return s.DocumentRepository.Ping(ctx)
}

// StorageStub is an in-memory MediaStorage.
type StorageStub struct {
	mu      sync.Mutex
	objects map[string]storedObject

	SaveErr error
	PingErr error
}

type storedObject struct {
	data        []byte
	contentType string
}

// NewStorageStub creates an empty in-memory media storage.
func NewStorageStub() *StorageStub {
	return &StorageStub{objects: make(map[string]storedObject)}
}

func (s *StorageStub) Save(_ context.Context, name string, r io.Reader, _ int64, contentType string) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = storedObject{data: data, contentType: contentType}
	return nil
}

func (s *StorageStub) Open(_ context.Context, name string) (io.ReadCloser, int64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[name]
	if !ok {
		return nil, 0, "", storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), int64(len(obj.data)), obj.contentType, nil
}

func (s *StorageStub) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	return nil
}

func (s *StorageStub) Ping(context.Context) error {
	return s.PingErr
}

// Names lists stored object names.
func (s *StorageStub) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for name := range s.objects {
		out = append(out, name)
	}
	return out
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
