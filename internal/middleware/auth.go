// Package middleware provides session, logging, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"strings"

	"cmsadmin/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionResolver maps a bearer token onto the id of an existing user.
type SessionResolver interface {
	ResolveToken(ctx context.Context, token string) (int64, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Session resolves the bearer token when one is presented. Anonymous requests
// pass through untouched; a presented token that does not resolve is rejected
// with 401 so clients tear their session down.
func Session(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return c.Next()
		}

		userID, err := resolver.ResolveToken(c.UserContext(), token)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}

		c.Locals("userID", userID)
		ctx := context.WithValue(c.UserContext(), UserIDKey, userID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// UserID returns the session user id set by Session.
func UserID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals("userID").(int64)
	return id, ok && id > 0
}

// AuthRequired rejects requests that carry no resolved session.
func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserID(c); !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Sessão obrigatória"))
		}
		return c.Next()
	}
}

// AuthRequiredIf applies AuthRequired only when enabled.
func AuthRequiredIf(enabled bool) fiber.Handler {
	if !enabled {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return AuthRequired()
}
