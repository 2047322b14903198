package server

import (
	"strconv"

	"cmsadmin/internal/middleware"
	"cmsadmin/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts the :id route parameter. Ids that are not integers can
// never match a stored record, so they are reported as not found.
func parseID(c *fiber.Ctx, collection string) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, models.NewNotFoundError(collection, raw)
	}
	return id, nil
}

// queryParams collects the query string keeping repeated keys.
func queryParams(c *fiber.Ctx) map[string][]string {
	params := make(map[string][]string)
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		params[k] = append(params[k], string(value))
	})
	return params
}

// sessionUserID returns the resolved session user, or 0 for anonymous callers.
func sessionUserID(c *fiber.Ctx) int64 {
	id, _ := middleware.UserID(c)
	return id
}

// decodeBody parses the request body as a JSON object.
func decodeBody(c *fiber.Ctx) (models.Record, error) {
	rec, err := models.DecodeRecord(c.Body())
	if err != nil {
		return nil, models.NewValidationError("Corpo da requisição inválido: esperado um objeto JSON")
	}
	return rec, nil
}
