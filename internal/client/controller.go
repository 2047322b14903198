package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cmsadmin/internal/models"
)

// Phase is the load state of a page.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// Mode is the interaction sub-state of a ready page.
type Mode string

const (
	ModeIdle           Mode = "idle"
	ModeFormOpen       Mode = "form-open"
	ModeFormSubmitting Mode = "form-submitting"
	ModeDeleting       Mode = "deleting"
)

// ErrBusy is returned when an action starts while another is in flight.
var ErrBusy = errors.New("controller busy")

// CollectionAPI is what a Controller needs from a resource endpoint.
type CollectionAPI[T Resource] interface {
	GetAll(ctx context.Context) ([]T, error)
	Create(ctx context.Context, payload models.Record) (T, error)
	Update(ctx context.Context, id int64, payload models.Record) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Controller drives one resource page. Its list is a cache filled once by
// Load and then patched locally by each mutation; it is never refetched, so
// server-computed fields can go stale.
type Controller[T Resource] struct {
	api    CollectionAPI[T]
	alert  func(string)
	logger *slog.Logger
	name   string

	mu      sync.Mutex
	phase   Phase
	mode    Mode
	items   []T
	editing *int64
	loaded  bool
}

// NewController builds a controller for api. alert receives one message per
// failed action and may be nil.
func NewController[T Resource](name string, api CollectionAPI[T], alert func(string), logger *slog.Logger) *Controller[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if alert == nil {
		alert = func(string) {}
	}
	return &Controller[T]{
		api:    api,
		alert:  alert,
		logger: logger.With("page", name),
		name:   name,
		phase:  PhaseLoading,
		mode:   ModeIdle,
	}
}

func (c *Controller[T]) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller[T]) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Busy reports whether a submit or delete is in flight.
func (c *Controller[T]) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode == ModeFormSubmitting || c.mode == ModeDeleting
}

// Items returns a copy of the cached list.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Editing returns the id of the record in the open edit form.
func (c *Controller[T]) Editing() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editing == nil {
		return 0, false
	}
	return *c.editing, true
}

// Load fetches the list. Only the first call hits the API.
func (c *Controller[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.loaded {
		c.mu.Unlock()
		return nil
	}
	c.loaded = true
	c.mu.Unlock()

	items, err := c.api.GetAll(ctx)

	c.mu.Lock()
	c.phase = PhaseReady
	if err == nil {
		c.items = items
	}
	c.mu.Unlock()

	if err != nil {
		return c.fail("load", err)
	}
	return nil
}

// OpenCreate opens an empty form.
func (c *Controller[T]) OpenCreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeFormSubmitting || c.mode == ModeDeleting {
		return ErrBusy
	}
	c.mode = ModeFormOpen
	c.editing = nil
	return nil
}

// OpenEdit opens the form on a cached record.
func (c *Controller[T]) OpenEdit(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeFormSubmitting || c.mode == ModeDeleting {
		return ErrBusy
	}
	if c.indexOf(id) < 0 {
		return models.NewNotFoundError(c.name, id)
	}
	c.mode = ModeFormOpen
	c.editing = &id
	return nil
}

// Cancel closes the form.
func (c *Controller[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeFormOpen {
		c.mode = ModeIdle
		c.editing = nil
	}
}

// Submit saves the open form. A create prepends the record returned by the
// server; an edit merges payload into the cached record without a refetch.
// A rejected save leaves the same form open so it can be retried.
func (c *Controller[T]) Submit(ctx context.Context, payload models.Record) error {
	c.mu.Lock()
	if c.mode != ModeFormOpen {
		c.mu.Unlock()
		return fmt.Errorf("%s: no form open", c.name)
	}
	c.mode = ModeFormSubmitting
	editing := c.editing
	c.mu.Unlock()

	if editing == nil {
		created, err := c.api.Create(ctx, payload)
		if err != nil {
			return c.failSubmit("create", editing, err)
		}
		c.mu.Lock()
		c.items = append([]T{created}, c.items...)
		c.closeForm()
		c.mu.Unlock()
		return nil
	}

	id := *editing
	if _, err := c.api.Update(ctx, id, payload); err != nil {
		return c.failSubmit("update", editing, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		merged, err := mergeInto(c.items[i], payload)
		if err != nil {
			c.closeForm()
			c.logger.Error("page action failed", "action", "update", "error", err)
			c.alert(alertMessage("update", err))
			return err
		}
		c.items[i] = merged
	}
	c.closeForm()
	return nil
}

// Delete removes a record once the server confirms.
func (c *Controller[T]) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	if c.mode == ModeFormSubmitting || c.mode == ModeDeleting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mode = ModeDeleting
	c.mu.Unlock()

	if err := c.api.Delete(ctx, id); err != nil {
		return c.fail("delete", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
	c.closeForm()
	return nil
}

func (c *Controller[T]) fail(action string, err error) error {
	c.mu.Lock()
	c.mode = ModeIdle
	c.editing = nil
	c.mu.Unlock()

	c.logger.Error("page action failed", "action", action, "error", err)
	c.alert(alertMessage(action, err))
	return err
}

// failSubmit reopens the form that was being saved.
func (c *Controller[T]) failSubmit(action string, editing *int64, err error) error {
	c.mu.Lock()
	c.mode = ModeFormOpen
	c.editing = editing
	c.mu.Unlock()

	c.logger.Error("page action failed", "action", action, "error", err)
	c.alert(alertMessage(action, err))
	return err
}

// closeForm must be called with mu held.
func (c *Controller[T]) closeForm() {
	c.mode = ModeIdle
	c.editing = nil
}

func (c *Controller[T]) indexOf(id int64) int {
	for i, item := range c.items {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}

func alertMessage(action string, err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch action {
	case "load":
		return "Erro ao carregar dados"
	case "delete":
		return "Erro ao excluir"
	default:
		return "Erro ao salvar"
	}
}

// mergeInto overlays payload on item one level deep.
func mergeInto[T Resource](item T, payload models.Record) (T, error) {
	rec, err := models.ToRecord(item)
	if err != nil {
		return item, err
	}
	var out T
	if err := rec.Merge(payload).Decode(&out); err != nil {
		return item, err
	}
	return out, nil
}
