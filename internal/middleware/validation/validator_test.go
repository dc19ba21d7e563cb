package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(cfg))
	app.Post("/api/v1/chat", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/v1/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func postChat(t *testing.T, app *fiber.App, contentType, body string) int {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/chat", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestMiddlewareAcceptsValidChat(t *testing.T) {
	app := newTestApp(Config{})

	status := postChat(t, app, "application/json", `{"message": "What is the vacation policy?"}`)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestMiddlewareRejectsWrongContentType(t *testing.T) {
	app := newTestApp(Config{})

	status := postChat(t, app, "text/plain", `{"message": "hi"}`)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, status)
}

func TestMiddlewareRejectsBadPayloads(t *testing.T) {
	app := newTestApp(Config{MaxMessageLength: 20})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"message": `},
		{"missing message", `{}`},
		{"empty message", `{"message": "   "}`},
		{"non-string message", `{"message": 42}`},
		{"oversized message", `{"message": "` + strings.Repeat("a", 21) + `"}`},
		{"null byte", `{"message": "hi\u0000there"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := postChat(t, app, "application/json", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
		})
	}
}

func TestMiddlewareIgnoresNonChatRoutes(t *testing.T) {
	app := newTestApp(Config{})

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
