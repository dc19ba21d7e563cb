package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, maxPerMinute int) *RateLimiter {
	t.Helper()

	rl := New(Config{MaxRequestsPerMinute: maxPerMinute})
	t.Cleanup(rl.Stop)
	return rl
}

func TestAllowExhaustsBucket(t *testing.T) {
	rl := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("sess-1"), "request %d should pass", i+1)
	}
	assert.False(t, rl.allow("sess-1"))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, 1)

	assert.True(t, rl.allow("sess-1"))
	assert.False(t, rl.allow("sess-1"))
	assert.True(t, rl.allow("sess-2"))
}

func TestAllowRefills(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 2, WindowDuration: 20 * time.Millisecond})
	t.Cleanup(rl.Stop)

	require.True(t, rl.allow("sess-1"))
	require.True(t, rl.allow("sess-1"))
	require.False(t, rl.allow("sess-1"))

	time.Sleep(15 * time.Millisecond)
	assert.True(t, rl.allow("sess-1"))
}

func TestMiddlewareKeysBySessionHeader(t *testing.T) {
	rl := newTestLimiter(t, 1)

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	get := func(sessionID string) int {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		if sessionID != "" {
			req.Header.Set("X-Session-ID", sessionID)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, get("sess-1"))
	assert.Equal(t, fiber.StatusTooManyRequests, get("sess-1"))
	assert.Equal(t, fiber.StatusOK, get("sess-2"), "a different session has its own bucket")
}
