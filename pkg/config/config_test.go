package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 6, cfg.RAG.TopK)
	assert.Equal(t, 0.7, cfg.RAG.SimilarityThreshold)
	assert.Equal(t, 20, cfg.Chat.MaxHistory)
	assert.Equal(t, 12, cfg.Chat.MinAnswerWords)
	assert.Equal(t, 0.85, cfg.Confidence.SimilarityWeight)
	assert.Equal(t, 0.15, cfg.Confidence.CoverageWeight)
	assert.Equal(t, 3, cfg.Confidence.CoverageCap)
	assert.Equal(t, 0.95, cfg.Confidence.SmallTalk)
	assert.Equal(t, 0.8, cfg.Training.MinConfidence)
	assert.Equal(t, 1, cfg.Training.FeedbackScoreMin)
	assert.Equal(t, 5, cfg.Training.FeedbackScoreMax)
	assert.True(t, cfg.Training.SelfTrainingEnabled)
	assert.True(t, cfg.Training.FeedbackCollectionEnabled)
	assert.Equal(t, 3600, cfg.Redis.SessionTTLSec)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("POLICYBOT_SERVER_PORT", "9090")
	t.Setenv("POLICYBOT_RAG_SIMILARITYTHRESHOLD", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.RAG.SimilarityThreshold)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"threshold above one", "POLICYBOT_RAG_SIMILARITYTHRESHOLD", "1.5"},
		{"negative min confidence", "POLICYBOT_TRAINING_MINCONFIDENCE", "-0.1"},
		{"inverted feedback scale", "POLICYBOT_TRAINING_FEEDBACKSCOREMIN", "9"},
		{"zero history", "POLICYBOT_CHAT_MAXHISTORY", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
