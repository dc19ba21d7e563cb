package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/policybot/backend/internal/metrics"
	"github.com/policybot/backend/internal/session"
	"github.com/policybot/backend/pkg/logger"
)

type SessionHandler struct {
	sessions *session.Store
}

func NewSessionHandler(sessions *session.Store) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// ClearSession deletes a session. Clearing an unknown id succeeds so the
// operation stays idempotent.
func (h *SessionHandler) ClearSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session id is required",
		})
	}

	if err := h.sessions.Clear(c.Context(), sessionID); err != nil {
		logger.Error("Failed to clear session",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear session",
		})
	}

	metrics.SessionsCleared.Inc()

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Session cleared",
	})
}
