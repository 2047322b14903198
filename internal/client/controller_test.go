package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"cmsadmin/internal/config"
	"cmsadmin/internal/models"
	"cmsadmin/internal/server"
	"cmsadmin/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory CollectionAPI with per-call failure injection.
type fakeAPI struct {
	items     []models.Category
	nextID    int64
	getCalls  int
	failNext  error
	lastPatch models.Record
}

func (f *fakeAPI) take() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeAPI) GetAll(context.Context) ([]models.Category, error) {
	f.getCalls++
	if err := f.take(); err != nil {
		return nil, err
	}
	return append([]models.Category(nil), f.items...), nil
}

func (f *fakeAPI) Create(_ context.Context, payload models.Record) (models.Category, error) {
	if err := f.take(); err != nil {
		return models.Category{}, err
	}
	f.nextID++
	var c models.Category
	if err := payload.Decode(&c); err != nil {
		return c, err
	}
	c.ID = f.nextID
	c.Slug = models.Slugify(c.Name)
	f.items = append(f.items, c)
	return c, nil
}

func (f *fakeAPI) Update(_ context.Context, id int64, payload models.Record) (models.Category, error) {
	if err := f.take(); err != nil {
		return models.Category{}, err
	}
	f.lastPatch = payload
	return models.Category{ID: id, Name: "server-side value"}, nil
}

func (f *fakeAPI) Delete(context.Context, int64) error {
	return f.take()
}

func newFakeController(api *fakeAPI) (*Controller[models.Category], *[]string) {
	var alerts []string
	ctrl := NewController[models.Category]("categories", api, func(msg string) { alerts = append(alerts, msg) }, nil)
	return ctrl, &alerts
}

func TestControllerLoadOnce(t *testing.T) {
	api := &fakeAPI{items: []models.Category{{ID: 1, Name: "Go"}}}
	ctrl, _ := newFakeController(api)
	assert.Equal(t, PhaseLoading, ctrl.Phase())

	require.NoError(t, ctrl.Load(context.Background()))
	require.NoError(t, ctrl.Load(context.Background()))

	assert.Equal(t, PhaseReady, ctrl.Phase())
	assert.Equal(t, 1, api.getCalls)
	assert.Len(t, ctrl.Items(), 1)
}

func TestControllerCreatePrependsServerRecord(t *testing.T) {
	api := &fakeAPI{items: []models.Category{{ID: 1, Name: "Go"}}, nextID: 1}
	ctrl, _ := newFakeController(api)
	require.NoError(t, ctrl.Load(context.Background()))

	require.NoError(t, ctrl.OpenCreate())
	assert.Equal(t, ModeFormOpen, ctrl.Mode())
	require.NoError(t, ctrl.Submit(context.Background(), models.Record{"name": "Design Gráfico"}))

	items := ctrl.Items()
	require.Len(t, items, 2)
	assert.EqualValues(t, 2, items[0].ID)
	assert.Equal(t, "design-grafico", items[0].Slug, "the server's record is cached, not the payload")
	assert.Equal(t, ModeIdle, ctrl.Mode())
}

func TestControllerUpdateMergesPayload(t *testing.T) {
	api := &fakeAPI{items: []models.Category{{ID: 1, Name: "Go", Slug: "go", Description: "old"}}}
	ctrl, _ := newFakeController(api)
	require.NoError(t, ctrl.Load(context.Background()))

	require.NoError(t, ctrl.OpenEdit(1))
	id, editing := ctrl.Editing()
	require.True(t, editing)
	assert.EqualValues(t, 1, id)

	require.NoError(t, ctrl.Submit(context.Background(), models.Record{"description": "new"}))

	item := ctrl.Items()[0]
	assert.Equal(t, "Go", item.Name, "the server response is ignored")
	assert.Equal(t, "go", item.Slug)
	assert.Equal(t, "new", item.Description)
	assert.Equal(t, models.Record{"description": "new"}, api.lastPatch)
}

func TestControllerDeleteAfterConfirmation(t *testing.T) {
	api := &fakeAPI{items: []models.Category{{ID: 1}, {ID: 2}}}
	ctrl, alerts := newFakeController(api)
	require.NoError(t, ctrl.Load(context.Background()))

	api.failNext = &APIError{Status: http.StatusInternalServerError, Message: "Erro interno do servidor"}
	require.Error(t, ctrl.Delete(context.Background(), 1))
	assert.Len(t, ctrl.Items(), 2, "nothing removed before the server confirms")
	assert.Equal(t, []string{"Erro interno do servidor"}, *alerts)

	require.NoError(t, ctrl.Delete(context.Background(), 1))
	items := ctrl.Items()
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].ID)
	assert.False(t, ctrl.Busy())
}

func TestControllerFailuresAlertOnce(t *testing.T) {
	api := &fakeAPI{}
	ctrl, alerts := newFakeController(api)

	api.failNext = errors.New("connection refused")
	require.Error(t, ctrl.Load(context.Background()))
	assert.Equal(t, PhaseReady, ctrl.Phase())
	assert.Empty(t, ctrl.Items())

	require.NoError(t, ctrl.OpenCreate())
	api.failNext = errors.New("boom")
	require.Error(t, ctrl.Submit(context.Background(), models.Record{"name": "X"}))

	assert.Equal(t, ModeFormOpen, ctrl.Mode(), "the create form stays open")
	_, editing := ctrl.Editing()
	assert.False(t, editing)
	assert.False(t, ctrl.Busy())
	assert.Equal(t, []string{"Erro ao carregar dados", "Erro ao salvar"}, *alerts, "one alert per failure")

	api.failNext = errors.New("boom")
	require.Error(t, ctrl.Delete(context.Background(), 1))
	assert.Equal(t, ModeIdle, ctrl.Mode())
	assert.Len(t, *alerts, 3)
}

func TestControllerSubmitRetryAfterFailure(t *testing.T) {
	api := &fakeAPI{items: []models.Category{{ID: 1, Name: "Go", Description: "old"}}}
	ctrl, alerts := newFakeController(api)
	require.NoError(t, ctrl.Load(context.Background()))

	require.NoError(t, ctrl.OpenEdit(1))
	api.failNext = &APIError{Status: http.StatusBadRequest, Message: "Nome é obrigatório"}
	require.Error(t, ctrl.Submit(context.Background(), models.Record{"description": "new"}))

	assert.Equal(t, ModeFormOpen, ctrl.Mode())
	id, editing := ctrl.Editing()
	require.True(t, editing, "the same record is still being edited")
	assert.EqualValues(t, 1, id)
	assert.Equal(t, "old", ctrl.Items()[0].Description)
	assert.Equal(t, []string{"Nome é obrigatório"}, *alerts)

	require.NoError(t, ctrl.Submit(context.Background(), models.Record{"description": "new"}))
	assert.Equal(t, "new", ctrl.Items()[0].Description)
	assert.Equal(t, ModeIdle, ctrl.Mode())
	_, editing = ctrl.Editing()
	assert.False(t, editing)
}

func TestControllerDeleteClosesOpenForm(t *testing.T) {
	api := &fakeAPI{items: []models.Category{{ID: 1}, {ID: 2}}}
	ctrl, _ := newFakeController(api)
	require.NoError(t, ctrl.Load(context.Background()))

	require.NoError(t, ctrl.OpenEdit(1))
	require.NoError(t, ctrl.Delete(context.Background(), 1))

	assert.Equal(t, ModeIdle, ctrl.Mode())
	_, editing := ctrl.Editing()
	assert.False(t, editing)
	assert.Len(t, ctrl.Items(), 1)
}

func TestControllerGuards(t *testing.T) {
	ctrl, _ := newFakeController(&fakeAPI{items: []models.Category{{ID: 1}}})
	require.NoError(t, ctrl.Load(context.Background()))

	assert.Error(t, ctrl.Submit(context.Background(), models.Record{}), "no form open")
	assert.Error(t, ctrl.OpenEdit(99))

	require.NoError(t, ctrl.OpenEdit(1))
	ctrl.Cancel()
	assert.Equal(t, ModeIdle, ctrl.Mode())
	_, editing := ctrl.Editing()
	assert.False(t, editing)
}

// liveServer runs the real API on a loopback port.
func liveServer(t *testing.T) (*Client, context.Context) {
	t.Helper()
	cfg := &config.Config{
		Env:                    "test",
		StoreDriver:            "json",
		UploadMaxSizeMB:        10,
		TokenMode:              "legacy",
		LoginRateLimit:         10,
		LoginRateWindowSeconds: 300,
	}
	srv := server.NewServerWithDeps(cfg, testutil.NewJSONRepo(t), nil, testutil.NewStorageStub())
	app := srv.App()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return NewClient("http://"+ln.Addr().String(), newSession(t)), context.Background()
}

func TestCategoryPostCountGoesStale(t *testing.T) {
	c, ctx := liveServer(t)
	ctrl := NewController[models.Category]("categories", c.Categories(), nil, nil)
	require.NoError(t, ctrl.Load(ctx))

	require.NoError(t, ctrl.OpenCreate())
	require.NoError(t, ctrl.Submit(ctx, WithSlug(models.Record{"name": "Programação"}, "name")))
	cached := ctrl.Items()[0]
	assert.Equal(t, "programacao", cached.Slug)
	assert.Equal(t, 0, cached.PostCount)

	_, err := c.Posts().Create(ctx, models.Record{"title": "Olá", "category": "programacao", "status": "draft"})
	require.NoError(t, err)

	fresh, err := c.Categories().Get(ctx, cached.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.PostCount)
	assert.Equal(t, 0, ctrl.Items()[0].PostCount, "the page cache is not invalidated")
}

func TestPostServerStampsGoStale(t *testing.T) {
	c, ctx := liveServer(t)
	ctrl := NewController[models.Post]("posts", c.Posts(), nil, nil)
	require.NoError(t, ctrl.Load(ctx))

	require.NoError(t, ctrl.OpenCreate())
	require.NoError(t, ctrl.Submit(ctx, WithSlug(models.Record{"title": "Primeiro Post", "status": "draft"}, "title")))
	created := ctrl.Items()[0]
	require.NotEmpty(t, created.UpdatedAt)

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, ctrl.OpenEdit(created.ID))
	require.NoError(t, ctrl.Submit(ctx, models.Record{"status": "published"}))

	cached := ctrl.Items()[0]
	assert.Equal(t, models.StatusPublished, cached.Status)
	assert.Equal(t, created.UpdatedAt, cached.UpdatedAt)
	assert.Empty(t, cached.PublishedAt)

	fresh, err := c.Posts().Get(ctx, created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, cached.UpdatedAt, fresh.UpdatedAt)
	assert.NotEmpty(t, fresh.PublishedAt)
}

func TestLiveLoginAndUpload(t *testing.T) {
	c, ctx := liveServer(t)

	_, err := c.Users().Create(ctx, models.Record{
		"name": "Admin", "email": "admin@example.com", "password": "admin123", "role": models.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = c.Upload(ctx, "foto.png", "image/png", bytesReader(testutil.TinyPNG(t, 2, 2)))
	require.True(t, IsUnauthorized(err), "uploads need a session")

	user, err := c.Login(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.Empty(t, user.Password)
	assert.True(t, c.Session().IsAuthenticated())

	media, err := c.Upload(ctx, "foto.png", "image/png", bytesReader(testutil.TinyPNG(t, 2, 2)))
	require.NoError(t, err)
	assert.Equal(t, user.ID, media.UploadedBy)
	assert.Equal(t, 2, media.Width)

	require.NoError(t, c.Logout())
	assert.False(t, c.Session().IsAuthenticated())
}
