package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cmsadmin/internal/config"
	"cmsadmin/internal/models"
	"cmsadmin/internal/repository"
	"cmsadmin/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv   *Server
	app   *fiber.App
	repo  repository.DocumentRepository
	media *testutil.StorageStub
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                   "3001",
		Env:                    "test",
		StoreDriver:            "json",
		UploadMaxSizeMB:        10,
		MediaStorage:           "disk",
		TokenMode:              "legacy",
		LoginRateLimit:         10,
		LoginRateWindowSeconds: 300,
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	return newTestEnvWithRepo(t, testutil.NewJSONRepo(t), mutate...)
}

func newTestEnvWithRepo(t *testing.T, repo repository.DocumentRepository, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	media := testutil.NewStorageStub()
	srv := NewServerWithDeps(cfg, repo, nil, media)
	return &testEnv{srv: srv, app: srv.App(), repo: repo, media: media}
}

// seedUser stores a user and returns its id.
func (e *testEnv) seedUser(t *testing.T, email, password string) int64 {
	t.Helper()
	rec, err := e.repo.Create(context.Background(), models.CollectionUsers, models.Record{
		"name":     "Admin",
		"email":    email,
		"password": password,
		"role":     "admin",
	})
	require.NoError(t, err)
	id, _ := rec.ID()
	return id
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decodeJSON[models.ErrorResponse](t, resp).Error
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "disabled", checks["redis"])
}

func TestReadinessFailsWhenMediaStorageIsDown(t *testing.T) {
	env := newTestEnv(t)
	env.media.PingErr = errors.New("bucket gone")

	resp := env.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "unhealthy", body["checks"].(map[string]any)["media"])
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, MsgRouteNotFound, errorMessage(t, resp))
}

func TestInternalErrorsAreHidden(t *testing.T) {
	stub := testutil.NewRepoStub(testutil.NewJSONRepo(t))
	stub.ListFn = func(context.Context, string) ([]models.Record, error) {
		return nil, errors.New("disk on fire")
	}
	env := newTestEnvWithRepo(t, stub)

	resp := env.do(t, http.MethodGet, "/posts", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeJSON[models.ErrorResponse](t, resp)
	assert.Equal(t, models.InternalErrorMessage, body.Error)
	assert.Equal(t, models.CodeInternal, body.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	t.Run("preflight answers 200", func(t *testing.T) {
		resp := env.do(t, http.MethodOptions, "/posts/1", nil,
			"Origin", "http://localhost:5173",
			"Access-Control-Request-Method", "PATCH")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, corsAllowMethods, resp.Header.Get("Access-Control-Allow-Methods"))
		assert.Equal(t, corsAllowHeaders, resp.Header.Get("Access-Control-Allow-Headers"))
	})

	t.Run("plain OPTIONS answers 200", func(t *testing.T) {
		resp := env.do(t, http.MethodOptions, "/anything", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("simple request exposes paging header", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/posts", nil, "Origin", "http://localhost:5173")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "X-Total-Count")
	})
}

func TestGlobalLimiterOutsideTests(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Env = "staging" })

	var last *http.Response
	for i := 0; i < 301; i++ {
		last = env.do(t, http.MethodGet, "/health/live", nil)
	}
	require.Equal(t, http.StatusTooManyRequests, last.StatusCode)
	assert.Equal(t, models.CodeRateLimited, decodeJSON[models.ErrorResponse](t, last).Code)
}

func TestFeatureFlags(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.FeatureFlags = "require_if_match=on" })

	resp := env.do(t, http.MethodGet, "/feature-flags", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}](t, resp)
	assert.Equal(t, "on", body.Raw["require_if_match"])
	assert.True(t, body.Evaluated["require_if_match"])
}
