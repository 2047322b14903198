package repository

import (
	"context"
	"errors"

	"cmsadmin/internal/models"
	"cmsadmin/internal/observability"
)

// Instrumented decorates a DocumentRepository with spans, metrics and store logs.
type Instrumented struct {
	next    DocumentRepository
	backend string
	logger  *observability.StoreLogger
}

// NewInstrumented wraps next. backend names the storage system in spans and logs.
func NewInstrumented(next DocumentRepository, backend string, logger *observability.StoreLogger) *Instrumented {
	return &Instrumented{next: next, backend: backend, logger: logger}
}

func (r *Instrumented) observe(ctx context.Context, op, collection string) (context.Context, func(error)) {
	ctx, span := observability.StartStoreSpan(ctx, r.backend, op, collection)
	track := observability.TrackStoreOperation(op, collection)
	return ctx, func(err error) {
		track(err)
		observability.EndSpan(span, err)
		if err != nil && !isClientFault(err) {
			r.logger.LogError(ctx, collection, op, err)
		}
	}
}

// isClientFault reports errors caused by the request rather than the store.
func isClientFault(err error) bool {
	var appErr *models.AppError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrVersionMismatch) ||
		errors.As(err, &appErr)
}

func (r *Instrumented) List(ctx context.Context, collection string) ([]models.Record, error) {
	ctx, done := r.observe(ctx, "list", collection)
	records, err := r.next.List(ctx, collection)
	done(err)
	if err == nil {
		r.logger.LogRead(ctx, collection, map[string]any{"count": len(records)})
	}
	return records, err
}

func (r *Instrumented) Get(ctx context.Context, collection string, id int64) (models.Record, error) {
	ctx, done := r.observe(ctx, "get", collection)
	rec, err := r.next.Get(ctx, collection, id)
	done(err)
	if err == nil {
		r.logger.LogRead(ctx, collection, map[string]any{"id": id})
	}
	return rec, err
}

func (r *Instrumented) Create(ctx context.Context, collection string, rec models.Record) (models.Record, error) {
	ctx, done := r.observe(ctx, "create", collection)
	stored, err := r.next.Create(ctx, collection, rec)
	done(err)
	if err == nil {
		id, _ := stored.ID()
		r.logger.LogCreate(ctx, collection, map[string]any{"id": id})
	}
	return stored, err
}

func (r *Instrumented) Update(ctx context.Context, collection string, id int64, fn UpdateFunc) (models.Record, error) {
	ctx, done := r.observe(ctx, "update", collection)
	updated, err := r.next.Update(ctx, collection, id, fn)
	done(err)
	if err == nil {
		r.logger.LogUpdate(ctx, collection, map[string]any{"id": id})
	}
	return updated, err
}

func (r *Instrumented) Delete(ctx context.Context, collection string, id int64) (models.Record, error) {
	ctx, done := r.observe(ctx, "delete", collection)
	removed, err := r.next.Delete(ctx, collection, id)
	done(err)
	if err == nil {
		r.logger.LogDelete(ctx, collection, map[string]any{"id": id})
	}
	return removed, err
}

func (r *Instrumented) Truncate(ctx context.Context, collection string) error {
	ctx, done := r.observe(ctx, "truncate", collection)
	err := r.next.Truncate(ctx, collection)
	done(err)
	if err == nil {
		r.logger.LogDelete(ctx, collection, map[string]any{"truncate": true})
	}
	return err
}

func (r *Instrumented) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *Instrumented) Close() error {
	return r.next.Close()
}
