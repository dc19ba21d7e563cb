package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/policybot/backend/internal/metrics"
	"github.com/policybot/backend/internal/session"
	"github.com/policybot/backend/internal/store"
	"github.com/policybot/backend/pkg/config"
	"github.com/policybot/backend/pkg/logger"
)

type FeedbackHandler struct {
	sessions *session.Store
	records  *store.Client
	cfg      config.TrainingConfig
}

func NewFeedbackHandler(sessions *session.Store, records *store.Client, cfg config.TrainingConfig) *FeedbackHandler {
	return &FeedbackHandler{
		sessions: sessions,
		records:  records,
		cfg:      cfg,
	}
}

type feedbackRequest struct {
	SessionID     string `json:"session_id"`
	UserMessage   string `json:"user_message"`
	BotResponse   string `json:"bot_response"`
	FeedbackScore int    `json:"feedback_score"`
	FeedbackText  string `json:"feedback_text"`
}

func (h *FeedbackHandler) HandleFeedback(c *fiber.Ctx) error {
	if !h.cfg.FeedbackCollectionEnabled {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Feedback collection is disabled",
		})
	}

	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse feedback request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SessionID == "" || req.UserMessage == "" || req.BotResponse == "" {
		metrics.FeedbackTotal.WithLabelValues("rejected").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id, user_message and bot_response are required",
		})
	}

	if req.FeedbackScore < h.cfg.FeedbackScoreMin || req.FeedbackScore > h.cfg.FeedbackScoreMax {
		metrics.FeedbackTotal.WithLabelValues("rejected").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "feedback_score is out of range",
		})
	}

	ctx := c.Context()

	known, err := h.sessions.Exists(ctx, req.SessionID)
	if err != nil {
		logger.Error("Failed to check session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate session",
		})
	}
	if !known {
		metrics.FeedbackTotal.WithLabelValues("rejected").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown session",
		})
	}

	err = h.records.RecordFeedback(ctx, store.FeedbackRecord{
		SessionID: req.SessionID,
		Question:  req.UserMessage,
		Answer:    req.BotResponse,
		Score:     req.FeedbackScore,
		Comment:   req.FeedbackText,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to record feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record feedback",
		})
	}

	metrics.FeedbackTotal.WithLabelValues("accepted").Inc()
	metrics.FeedbackScore.Observe(float64(req.FeedbackScore))

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Feedback recorded successfully",
	})
}
