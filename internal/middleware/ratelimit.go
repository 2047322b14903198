package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cmsadmin/internal/cache"
	"cmsadmin/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// MsgTooManyAttempts is returned with 429 by RateLimit.
const MsgTooManyAttempts = "Muitas tentativas, tente novamente mais tarde"

// ErrNoLimiterStore is returned by CheckRateLimit without a Redis client.
var ErrNoLimiterStore = errors.New("rate limit store unavailable")

// FailPolicy decides what happens when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// RateLimitOptions configures one fixed-window limiter.
type RateLimitOptions struct {
	// Name keys the counters. Defaults to the request path.
	Name   string
	Limit  int
	Window time.Duration
	Policy FailPolicy
	// Bypass turns the limiter off, as in test and development environments.
	Bypass bool
}

// CheckRateLimit counts one hit for id against resource. It reports whether
// the hit is within limit and, when it is not, how long until the window resets.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, time.Duration, error) {
	if rdb == nil {
		return false, 0, ErrNoLimiterStore
	}

	key := cache.RateLimitKey(resource, id)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, err
		}
	}
	if cnt <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return false, ttl, nil
}

// RateLimit enforces opts.Limit hits per opts.Window, keyed by session user
// when one was resolved and by client IP otherwise. A non-positive limit
// disables it.
func RateLimit(rdb *redis.Client, opts RateLimitOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if opts.Bypass || opts.Limit <= 0 {
			return c.Next()
		}

		id := "ip:" + c.IP()
		if uid, ok := UserID(c); ok {
			id = fmt.Sprintf("user:%d", uid)
		}
		resource := opts.Name
		if resource == "" {
			resource = c.Path()
		}

		allowed, retryAfter, err := CheckRateLimit(c.UserContext(), rdb, resource, id, opts.Limit, opts.Window)
		if err != nil {
			if opts.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, rejecting",
					"resource", resource, "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Error: "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			secs := int(retryAfter.Round(time.Second) / time.Second)
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(max(secs, 1)))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError(MsgTooManyAttempts))
		}
		return c.Next()
	}
}
