package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/policybot/backend/pkg/config"
)

type HealthHandler struct {
	cfg config.TrainingConfig
}

func NewHealthHandler(cfg config.TrainingConfig) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"metrics": fiber.Map{
			"self_training_enabled":       h.cfg.SelfTrainingEnabled,
			"feedback_collection_enabled": h.cfg.FeedbackCollectionEnabled,
			"quality_threshold":           h.cfg.MinConfidence,
			"timestamp":                   time.Now().UTC().Format(time.RFC3339),
		},
	})
}
