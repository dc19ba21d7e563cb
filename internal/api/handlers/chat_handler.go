package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/policybot/backend/internal/answer"
	"github.com/policybot/backend/internal/metrics"
	"github.com/policybot/backend/internal/retrieval"
	"github.com/policybot/backend/internal/session"
	"github.com/policybot/backend/internal/store"
	"github.com/policybot/backend/pkg/logger"
)

type ChatHandler struct {
	sessions          *session.Store
	retriever         *retrieval.Orchestrator
	composer          *answer.Composer
	records           *store.Client
	collectionEnabled bool
}

func NewChatHandler(sessions *session.Store, retriever *retrieval.Orchestrator, composer *answer.Composer, records *store.Client, collectionEnabled bool) *ChatHandler {
	return &ChatHandler{
		sessions:          sessions,
		retriever:         retriever,
		composer:          composer,
		records:           records,
		collectionEnabled: collectionEnabled,
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	start := time.Now()

	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse chat request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	ctx := c.Context()

	sessionID, history := h.sessions.GetOrCreate(ctx, req.SessionID)

	// Small talk never consults the chunk store.
	var passages []retrieval.Passage
	if !answer.IsSmallTalk(req.Message) {
		var contextUsed bool
		passages, contextUsed = h.retriever.Retrieve(ctx, req.Message, history)
		metrics.RetrievalHits.WithLabelValues(fmt.Sprintf("%t", contextUsed)).Inc()
		metrics.DocsFound.Observe(float64(len(passages)))
	}

	ans := h.composer.Compose(ctx, req.Message, history, passages)

	// The turn is appended even for degraded answers so the conversation
	// stays coherent across retries.
	now := time.Now().UTC()
	err := h.sessions.Append(ctx, sessionID,
		session.Turn{Role: session.RoleUser, Text: req.Message, Timestamp: now},
		session.Turn{Role: session.RoleAssistant, Text: ans.Text, Timestamp: now},
	)
	if err != nil {
		logger.Warn("Failed to append session turns",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
	}

	if h.collectionEnabled {
		err = h.records.RecordConversation(ctx, store.ConversationRecord{
			Question:     req.Message,
			Answer:       ans.Text,
			ResponseType: ans.ResponseType,
			Confidence:   ans.Confidence,
			Timestamp:    now,
		})
		if err != nil {
			logger.Warn("Failed to record conversation", zap.Error(err))
		}
	}

	metrics.ChatTurnsTotal.WithLabelValues(ans.ResponseType).Inc()
	metrics.ConfidenceScore.Observe(ans.Confidence)
	metrics.ChatDuration.Observe(time.Since(start).Seconds())

	logger.Info("Chat turn completed",
		zap.String("session_id", sessionID),
		zap.String("response_type", ans.ResponseType),
		zap.Float64("confidence", ans.Confidence),
		zap.Bool("context_used", ans.ContextUsed),
		zap.Int("docs_found", ans.DocsFound),
		zap.Duration("latency", time.Since(start)),
	)

	return c.JSON(fiber.Map{
		"session_id":    sessionID,
		"answer":        ans.Text,
		"confidence":    ans.Confidence,
		"sources":       ans.Sources,
		"context_used":  ans.ContextUsed,
		"docs_found":    ans.DocsFound,
		"response_type": ans.ResponseType,
	})
}
