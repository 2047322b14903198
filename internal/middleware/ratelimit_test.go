package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit_NilRedis(t *testing.T) {
	allowed, _, err := CheckRateLimit(context.Background(), nil, "login", "ip:1", 1, time.Minute)
	assert.ErrorIs(t, err, ErrNoLimiterStore)
	assert.False(t, allowed)
}

func TestCheckRateLimit_CountsWithinWindow(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := CheckRateLimit(ctx, rdb, "login", "ip:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should pass", i+1)
	}

	allowed, retryAfter, err := CheckRateLimit(ctx, rdb, "login", "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)

	// Other callers keep their own budget.
	allowed, _, err = CheckRateLimit(ctx, rdb, "login", "ip:10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(2 * time.Minute)
	allowed, _, err = CheckRateLimit(ctx, rdb, "login", "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	get := func(t *testing.T, app *fiber.App, path string) *http.Response {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		return resp
	}

	t.Run("bypass", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(nil, RateLimitOptions{Limit: 1, Window: time.Minute, Bypass: true}), ok)
		assert.Equal(t, http.StatusOK, get(t, app, "/test").StatusCode)
	})

	t.Run("fail open without redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(nil, RateLimitOptions{Limit: 1, Window: time.Minute}), ok)
		assert.Equal(t, http.StatusOK, get(t, app, "/test").StatusCode)
	})

	t.Run("fail closed without redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/sensitive", RateLimit(nil, RateLimitOptions{Limit: 1, Window: time.Minute, Policy: FailClosed}), ok)
		assert.Equal(t, http.StatusServiceUnavailable, get(t, app, "/sensitive").StatusCode)
	})

	t.Run("429 once the budget is spent", func(t *testing.T) {
		_, rdb := newMiniRedis(t)
		app := fiber.New()
		app.Get("/login", RateLimit(rdb, RateLimitOptions{Name: "login", Limit: 2, Window: time.Minute}), ok)

		codes := make([]int, 0, 3)
		var last *http.Response
		for i := 0; i < 3; i++ {
			last = get(t, app, "/login")
			codes = append(codes, last.StatusCode)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
		assert.NotEmpty(t, last.Header.Get("Retry-After"))
	})

	t.Run("zero limit disables the limiter", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(nil, RateLimitOptions{Window: time.Minute, Policy: FailClosed}), ok)
		assert.Equal(t, http.StatusOK, get(t, app, "/test").StatusCode)
	})
}
