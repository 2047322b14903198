package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"cmsadmin/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLine struct {
	level  slog.Level
	status int64
}

type recordingHandler struct {
	lines []recordedLine
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	line := recordedLine{level: r.Level}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "status" {
			line.status = a.Value.Int64()
		}
		return true
	})
	h.lines = append(h.lines, line)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestStructuredLogger_StatusFromError(t *testing.T) {
	h := &recordingHandler{}
	prev := Logger
	Logger = slog.New(h)
	t.Cleanup(func() { Logger = prev })

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *models.AppError
			if errors.As(err, &appErr) {
				return models.RespondWithError(c, appErr.Status(), appErr)
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	app.Use(StructuredLogger())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/invalid", func(*fiber.Ctx) error { return models.NewValidationError("Nome é obrigatório") })
	app.Get("/missing", func(*fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/broken", func(*fiber.Ctx) error { return errors.New("disk full") })

	cases := []struct {
		path   string
		status int
		level  slog.Level
	}{
		{"/ok", fiber.StatusNoContent, slog.LevelInfo},
		{"/invalid", fiber.StatusBadRequest, slog.LevelWarn},
		{"/missing", fiber.StatusNotFound, slog.LevelWarn},
		{"/broken", fiber.StatusInternalServerError, slog.LevelError},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			h.lines = nil
			resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			require.Len(t, h.lines, 1)
			assert.EqualValues(t, tc.status, h.lines[0].status, "logged status matches the response")
			assert.Equal(t, tc.level, h.lines[0].level)
		})
	}
}
