package llm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveSampling(t *testing.T) {
	c := &Client{temperature: 0.7, maxTokens: 256}

	t.Run("defaults when unset", func(t *testing.T) {
		temperature, maxTokens := c.resolveSampling(CompletionRequest{})
		assert.Equal(t, float32(0.7), temperature)
		assert.Equal(t, 256, maxTokens)
	})

	t.Run("request overrides win", func(t *testing.T) {
		temp := float32(0.2)
		tokens := 64
		temperature, maxTokens := c.resolveSampling(CompletionRequest{
			Temperature: &temp,
			MaxTokens:   &tokens,
		})
		assert.Equal(t, float32(0.2), temperature)
		assert.Equal(t, 64, maxTokens)
	})

	t.Run("explicit zero temperature is preserved", func(t *testing.T) {
		temp := float32(0)
		temperature, _ := c.resolveSampling(CompletionRequest{Temperature: &temp})
		assert.Equal(t, float32(math.SmallestNonzeroFloat32), temperature,
			"encoded as the smallest positive value, not the configured default")
	})

	t.Run("zero configured default is encoded the same way", func(t *testing.T) {
		deterministic := &Client{temperature: 0, maxTokens: 256}
		temperature, _ := deterministic.resolveSampling(CompletionRequest{})
		assert.Equal(t, float32(math.SmallestNonzeroFloat32), temperature)
	})
}
