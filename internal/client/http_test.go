package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"cmsadmin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(NewFileSessionStore(filepath.Join(t.TempDir(), "session.json")))
}

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer ts.Close()

	s := newSession(t)
	c := NewClient(ts.URL, s)
	_, err := c.Categories().GetAll(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Login(models.User{ID: 1}, "dummy-token-1"))
	_, err = c.Categories().GetAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer dummy-token-1"}, gotAuth)
}

func TestClientTearsDownSessionOn401(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Sessão inválida", Code: "UNAUTHORIZED"})
	}))
	defer ts.Close()

	s := newSession(t)
	require.NoError(t, s.Login(models.User{ID: 1}, "dummy-token-1"))

	var sawSession []bool
	c := NewClient(ts.URL, s, WithUnauthorizedHandler(func() {
		sawSession = append(sawSession, s.IsAuthenticated())
	}))

	_, err := c.Posts().GetAll(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Sessão inválida", apiErr.Message)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)

	assert.Equal(t, []bool{false}, sawSession, "session is cleared before the callback runs")
	assert.False(t, s.IsAuthenticated())
}

func TestClientRequestShapes(t *testing.T) {
	type call struct{ method, uri, body string }
	var calls []call
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.RequestURI(), strings.TrimSpace(string(body))})
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	defer ts.Close()

	ctx := context.Background()
	c := NewClient(ts.URL+"/", nil)
	_, err := c.Posts().GetAll(ctx)
	require.NoError(t, err)
	_, err = c.Media().GetAll(ctx)
	require.NoError(t, err)
	_, err = c.Users().Update(ctx, 3, models.Record{"name": "Ana"})
	require.NoError(t, err)
	require.NoError(t, c.Categories().Delete(ctx, 4))
	_, err = c.Settings().Update(ctx, models.Record{"siteName": "Blog"})
	require.NoError(t, err)

	assert.Equal(t, []call{
		{http.MethodGet, "/posts?_sort=createdAt&_order=desc", ""},
		{http.MethodGet, "/media?_sort=uploadedAt&_order=desc", ""},
		{http.MethodPatch, "/users/3", `{"name":"Ana"}`},
		{http.MethodDelete, "/categories/4", ""},
		{http.MethodPatch, "/settings/1", `{"siteName":"Blog"}`},
	}, calls)
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	c := NewClient("", nil)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
