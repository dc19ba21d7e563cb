package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policybot/backend/pkg/config"
)

func TestGetHealth(t *testing.T) {
	handler := NewHealthHandler(config.TrainingConfig{
		SelfTrainingEnabled:       true,
		FeedbackCollectionEnabled: false,
		MinConfidence:             0.8,
	})

	app := fiber.New()
	app.Get("/health", handler.GetHealth)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status  string `json:"status"`
		Metrics struct {
			SelfTrainingEnabled       bool    `json:"self_training_enabled"`
			FeedbackCollectionEnabled bool    `json:"feedback_collection_enabled"`
			QualityThreshold          float64 `json:"quality_threshold"`
			Timestamp                 string  `json:"timestamp"`
		} `json:"metrics"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "healthy", body.Status)
	assert.True(t, body.Metrics.SelfTrainingEnabled)
	assert.False(t, body.Metrics.FeedbackCollectionEnabled)
	assert.Equal(t, 0.8, body.Metrics.QualityThreshold)
	assert.NotEmpty(t, body.Metrics.Timestamp)
}
