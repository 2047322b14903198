package client

import (
	"context"
	"fmt"
	"net/http"

	"cmsadmin/internal/models"
)

// Resource is a record type the admin client manages.
type Resource interface {
	RecordID() int64
}

// ResourceAPI covers one collection endpoint.
type ResourceAPI[T Resource] struct {
	client    *Client
	path      string
	listQuery string
}

func (a *ResourceAPI[T]) GetAll(ctx context.Context) ([]T, error) {
	var items []T
	if err := a.client.Do(ctx, http.MethodGet, a.path+a.listQuery, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *ResourceAPI[T]) Get(ctx context.Context, id int64) (T, error) {
	var item T
	err := a.client.Do(ctx, http.MethodGet, a.itemPath(id), nil, &item)
	return item, err
}

// Create posts payload and returns the stored record.
func (a *ResourceAPI[T]) Create(ctx context.Context, payload models.Record) (T, error) {
	var item T
	err := a.client.Do(ctx, http.MethodPost, a.path, payload, &item)
	return item, err
}

// Update sends payload as a PATCH.
func (a *ResourceAPI[T]) Update(ctx context.Context, id int64, payload models.Record) (T, error) {
	var item T
	err := a.client.Do(ctx, http.MethodPatch, a.itemPath(id), payload, &item)
	return item, err
}

func (a *ResourceAPI[T]) Delete(ctx context.Context, id int64) error {
	return a.client.Do(ctx, http.MethodDelete, a.itemPath(id), nil, nil)
}

func (a *ResourceAPI[T]) itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", a.path, id)
}

// Posts lists newest first.
func (c *Client) Posts() *ResourceAPI[models.Post] {
	return &ResourceAPI[models.Post]{client: c, path: "/" + models.CollectionPosts, listQuery: "?_sort=createdAt&_order=desc"}
}

func (c *Client) Categories() *ResourceAPI[models.Category] {
	return &ResourceAPI[models.Category]{client: c, path: "/" + models.CollectionCategories}
}

func (c *Client) Users() *ResourceAPI[models.User] {
	return &ResourceAPI[models.User]{client: c, path: "/" + models.CollectionUsers}
}

// Media lists the latest uploads first.
func (c *Client) Media() *ResourceAPI[models.Media] {
	return &ResourceAPI[models.Media]{client: c, path: "/" + models.CollectionMedia, listQuery: "?_sort=uploadedAt&_order=desc"}
}

// SettingsAPI reads and patches the settings singleton.
type SettingsAPI struct {
	client *Client
}

func (c *Client) Settings() *SettingsAPI { return &SettingsAPI{client: c} }

func (a *SettingsAPI) Get(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	err := a.client.Do(ctx, http.MethodGet, a.path(), nil, &s)
	return s, err
}

func (a *SettingsAPI) Update(ctx context.Context, payload models.Record) (models.Settings, error) {
	var s models.Settings
	err := a.client.Do(ctx, http.MethodPatch, a.path(), payload, &s)
	return s, err
}

func (a *SettingsAPI) path() string {
	return fmt.Sprintf("/%s/%d", models.CollectionSettings, models.SettingsID)
}
