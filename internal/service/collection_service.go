package service

import (
	"context"
	"strings"
	"time"

	"cmsadmin/internal/featureflags"
	"cmsadmin/internal/models"
	"cmsadmin/internal/repository"
)

// WriteInput describes one create, patch or replace request.
type WriteInput struct {
	Collection string
	ID         int64
	Payload    models.Record
	// SessionUserID is the resolved session user, or 0 for anonymous callers.
	SessionUserID int64
	// IfMatch is the raw If-Match header; empty means last write wins.
	IfMatch string
}

// CollectionOptions tunes CollectionService behavior.
type CollectionOptions struct {
	Flags         *featureflags.Manager
	HashPasswords bool
}

// CollectionService implements the generic CRUD contract on top of the
// document store, running the per-collection record hooks on every write.
type CollectionService struct {
	repo          repository.DocumentRepository
	flags         *featureflags.Manager
	hashPasswords bool
	now           func() time.Time
}

func NewCollectionService(repo repository.DocumentRepository, opts CollectionOptions) *CollectionService {
	return &CollectionService{
		repo:          repo,
		flags:         opts.Flags,
		hashPasswords: opts.HashPasswords,
		now:           time.Now,
	}
}

// List returns the filtered, sorted and paged records of a collection.
func (s *CollectionService) List(ctx context.Context, collection string, params map[string][]string, viewer int64) (repository.Result, error) {
	q, err := repository.ParseQuery(params)
	if err != nil {
		return repository.Result{}, err
	}

	records, err := s.repo.List(ctx, collection)
	if err != nil {
		return repository.Result{}, translateError(err, collection, 0)
	}

	// Derived fields are added before filtering so they can be queried.
	records, err = s.presentRead(ctx, collection, records, viewer)
	if err != nil {
		return repository.Result{}, err
	}
	return q.Apply(records), nil
}

// Get returns one record and its version tag.
func (s *CollectionService) Get(ctx context.Context, collection string, id int64, viewer int64) (models.Record, string, error) {
	rec, err := s.repo.Get(ctx, collection, id)
	if err != nil {
		return nil, "", translateError(err, collection, id)
	}
	etag := repository.Fingerprint(rec)

	out, err := s.presentRead(ctx, collection, []models.Record{rec}, viewer)
	if err != nil {
		return nil, "", err
	}
	return out[0], etag, nil
}

// Create stores a new record. The id is assigned unless the payload carries one.
func (s *CollectionService) Create(ctx context.Context, in WriteInput) (models.Record, string, error) {
	next := in.Payload.Clone()
	wc := s.writeContext(writeCreate, nil, in)
	if err := applyHooks(in.Collection, wc, next); err != nil {
		return nil, "", err
	}

	stored, err := s.repo.Create(ctx, in.Collection, next)
	if err != nil {
		id, _ := next.ID()
		return nil, "", translateError(err, in.Collection, id)
	}
	return s.presentWrite(in.Collection, stored, in.SessionUserID), repository.Fingerprint(stored), nil
}

// Patch shallow-merges the payload into the stored record.
func (s *CollectionService) Patch(ctx context.Context, in WriteInput) (models.Record, string, error) {
	return s.update(ctx, writePatch, in)
}

// Replace swaps the stored record for the payload, keeping its id.
func (s *CollectionService) Replace(ctx context.Context, in WriteInput) (models.Record, string, error) {
	return s.update(ctx, writeReplace, in)
}

func (s *CollectionService) update(ctx context.Context, kind writeKind, in WriteInput) (models.Record, string, error) {
	if in.IfMatch == "" && s.flags.Enabled(featureflags.RequireIfMatch, in.SessionUserID) {
		return nil, "", models.NewPreconditionRequiredError("Cabeçalho If-Match obrigatório")
	}

	stored, err := s.repo.Update(ctx, in.Collection, in.ID, func(current models.Record) (models.Record, error) {
		if in.IfMatch != "" && !etagMatches(in.IfMatch, current) {
			return nil, repository.ErrVersionMismatch
		}

		var next models.Record
		if kind == writePatch {
			next = current.Merge(in.Payload)
		} else {
			next = in.Payload.Clone()
		}
		if err := applyHooks(in.Collection, s.writeContext(kind, current, in), next); err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		return nil, "", translateError(err, in.Collection, in.ID)
	}
	return s.presentWrite(in.Collection, stored, in.SessionUserID), repository.Fingerprint(stored), nil
}

// Delete removes a record. Related records are left untouched.
func (s *CollectionService) Delete(ctx context.Context, collection string, id int64) error {
	if _, err := s.repo.Delete(ctx, collection, id); err != nil {
		return translateError(err, collection, id)
	}
	return nil
}

func (s *CollectionService) writeContext(kind writeKind, current models.Record, in WriteInput) writeContext {
	payload := in.Payload
	if payload == nil {
		payload = models.Record{}
	}
	return writeContext{
		kind:          kind,
		current:       current,
		payload:       payload,
		sessionUserID: in.SessionUserID,
		now:           models.Timestamp(s.now()),
		hashPasswords: s.hashPasswords,
	}
}

// presentRead adds derived fields and applies response redaction.
func (s *CollectionService) presentRead(ctx context.Context, collection string, records []models.Record, viewer int64) ([]models.Record, error) {
	switch collection {
	case models.CollectionCategories:
		counts, err := s.postCounts(ctx)
		if err != nil {
			return nil, err
		}
		for i, rec := range records {
			out := rec.Clone()
			out["postCount"] = counts[rec.String("slug")]
			records[i] = out
		}
	case models.CollectionUsers:
		for i, rec := range records {
			records[i] = s.presentWrite(collection, rec, viewer)
		}
	}
	return records, nil
}

func (s *CollectionService) presentWrite(collection string, rec models.Record, viewer int64) models.Record {
	if collection == models.CollectionUsers && s.flags.Enabled(featureflags.RedactUserPasswords, viewer) {
		return rec.Without("password")
	}
	return rec
}

// postCounts counts posts per category slug.
func (s *CollectionService) postCounts(ctx context.Context) (map[string]int, error) {
	posts, err := s.repo.List(ctx, models.CollectionPosts)
	if err != nil {
		return nil, translateError(err, models.CollectionPosts, 0)
	}
	counts := make(map[string]int)
	for _, p := range posts {
		if slug := models.Stringify(p["category"]); slug != "" {
			counts[slug]++
		}
	}
	return counts, nil
}

// etagMatches evaluates an If-Match header against the current record.
func etagMatches(header string, current models.Record) bool {
	want := repository.Fingerprint(current)
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		if tag == "*" || tag == want {
			return true
		}
	}
	return false
}
