package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/policybot/backend/internal/training"
	"github.com/policybot/backend/pkg/logger"
)

type TrainingHandler struct {
	analyzer *training.Analyzer
	enabled  bool
}

func NewTrainingHandler(analyzer *training.Analyzer, enabled bool) *TrainingHandler {
	return &TrainingHandler{
		analyzer: analyzer,
		enabled:  enabled,
	}
}

func (h *TrainingHandler) GetReport(c *fiber.Ctx) error {
	if !h.enabled {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Self-training is disabled",
		})
	}

	report, err := h.analyzer.GenerateReport(c.Context())
	if err != nil {
		logger.Error("Failed to generate training report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate report",
		})
	}

	return c.JSON(fiber.Map{
		"report": report,
		"status": "success",
	})
}

func (h *TrainingHandler) GetSuggestions(c *fiber.Ctx) error {
	if !h.enabled {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Self-training is disabled",
		})
	}

	suggestions, err := h.analyzer.GenerateSuggestions(c.Context())
	if err != nil {
		logger.Error("Failed to generate suggestions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate suggestions",
		})
	}

	return c.JSON(fiber.Map{
		"suggestions": suggestions,
	})
}

func (h *TrainingHandler) GetExamples(c *fiber.Ctx) error {
	if !h.enabled {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Self-training is disabled",
		})
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	examples, err := h.analyzer.HighQualityExamples(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to load training examples", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load examples",
		})
	}

	return c.JSON(fiber.Map{
		"examples": examples,
	})
}
