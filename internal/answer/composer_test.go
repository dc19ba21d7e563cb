package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policybot/backend/internal/llm"
	"github.com/policybot/backend/internal/retrieval"
	"github.com/policybot/backend/internal/session"
	"github.com/policybot/backend/pkg/config"
)

type mockCompleter struct {
	content  string
	err      error
	requests []llm.CompletionRequest
}

func (m *mockCompleter) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.content}, nil
}

func testWeights() config.ConfidenceConfig {
	return config.ConfidenceConfig{
		SimilarityWeight: 0.85,
		CoverageWeight:   0.15,
		CoverageCap:      3,
		ShortPenalty:     0.15,
		HedgePenalty:     0.2,
		SmallTalk:        0.95,
	}
}

func newTestComposer(completer Completer) *Composer {
	return NewComposer(completer, testWeights(), config.ChatConfig{MinAnswerWords: 12}, 0.8, 0.7)
}

const longAnswer = "Employees accrue fifteen days of paid vacation per year, prorated monthly from the start date as described in the leave policy."

func passages(scores ...float64) []retrieval.Passage {
	out := make([]retrieval.Passage, len(scores))
	for i, s := range scores {
		out[i] = retrieval.Passage{
			Text:      "Vacation accrues at 1.25 days per month.",
			Source:    "handbook.pdf",
			ChunkType: "policy",
			Score:     s,
		}
	}
	return out
}

func TestComposeSmallTalkTakesPrecedence(t *testing.T) {
	completer := &mockCompleter{content: longAnswer}
	composer := newTestComposer(completer)

	got := composer.Compose(context.Background(), "thanks!", nil, passages(0.95))

	assert.Equal(t, TypeSmallTalk, got.ResponseType)
	assert.Equal(t, 0.95, got.Confidence)
	assert.False(t, got.ContextUsed)
	assert.Equal(t, 0, got.DocsFound)
	assert.Empty(t, got.Sources)
	assert.Empty(t, completer.requests, "small talk must not call the model")
}

func TestComposeGreetingRegardlessOfCorpus(t *testing.T) {
	composer := newTestComposer(&mockCompleter{content: longAnswer})

	for _, corpus := range [][]retrieval.Passage{nil, passages(0.95)} {
		got := composer.Compose(context.Background(), "Hi there!", nil, corpus)

		assert.Equal(t, TypeSmallTalk, got.ResponseType)
		assert.Equal(t, 0.95, got.Confidence)
	}
}

func TestComposeGrounded(t *testing.T) {
	completer := &mockCompleter{content: longAnswer}
	composer := newTestComposer(completer)

	got := composer.Compose(context.Background(), "How many vacation days do I get?", nil, passages(0.92, 0.88, 0.85))

	assert.Equal(t, TypeCompanyDocs, got.ResponseType)
	assert.Equal(t, longAnswer, got.Text)
	assert.True(t, got.ContextUsed)
	assert.Equal(t, 3, got.DocsFound)
	assert.GreaterOrEqual(t, got.Confidence, 0.8,
		"confident answer over strong passages must reach the quality threshold")

	require.Len(t, completer.requests, 1)
	assert.Contains(t, completer.requests[0].UserPrompt, "handbook.pdf")
	assert.Contains(t, completer.requests[0].UserPrompt, "How many vacation days do I get?")
}

func TestComposeGroundedSingleStrongPassage(t *testing.T) {
	composer := newTestComposer(&mockCompleter{content: longAnswer})

	got := composer.Compose(context.Background(), "How many vacation days do I get?", nil, passages(0.92))

	assert.Equal(t, TypeCompanyDocs, got.ResponseType)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "handbook.pdf", got.Sources[0].Source)
	assert.GreaterOrEqual(t, got.Confidence, 0.8,
		"one strong passage alone must clear the quality threshold")
}

func TestComposeGroundedDedupesSources(t *testing.T) {
	composer := newTestComposer(&mockCompleter{content: longAnswer})

	in := []retrieval.Passage{
		{Source: "handbook.pdf", ChunkType: "policy", Score: 0.9, Text: "a"},
		{Source: "benefits.pdf", ChunkType: "policy", Score: 0.85, Text: "b"},
		{Source: "handbook.pdf", ChunkType: "faq", Score: 0.8, Text: "c"},
	}
	got := composer.Compose(context.Background(), "What is the vacation policy?", nil, in)

	require.Len(t, got.Sources, 2)
	assert.Equal(t, "handbook.pdf", got.Sources[0].Source)
	assert.Equal(t, 0.9, got.Sources[0].Score, "first passage per source wins")
	assert.Equal(t, "benefits.pdf", got.Sources[1].Source)
	assert.Equal(t, 3, got.DocsFound)
}

func TestComposeGenericConfidenceStaysBelowThreshold(t *testing.T) {
	composer := newTestComposer(&mockCompleter{content: longAnswer})

	got := composer.Compose(context.Background(), "What is the capital of France?", nil, nil)

	assert.Equal(t, TypeGeneric, got.ResponseType)
	assert.False(t, got.ContextUsed)
	assert.Less(t, got.Confidence, 0.8)
	assert.Empty(t, got.Sources)
}

func TestComposeErrorFallback(t *testing.T) {
	tests := []struct {
		name      string
		completer *mockCompleter
		passages  []retrieval.Passage
	}{
		{"grounded completion error", &mockCompleter{err: errors.New("upstream down")}, passages(0.9)},
		{"generic completion error", &mockCompleter{err: errors.New("upstream down")}, nil},
		{"grounded empty content", &mockCompleter{content: "   \n"}, passages(0.9)},
		{"generic empty content", &mockCompleter{content: ""}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composer := newTestComposer(tt.completer)

			got := composer.Compose(context.Background(), "What is the sick leave policy?", nil, tt.passages)

			assert.Equal(t, TypeError, got.ResponseType)
			assert.Equal(t, 0.0, got.Confidence)
			assert.Equal(t, fallbackText, got.Text)
			assert.False(t, got.ContextUsed)
		})
	}
}

func TestGroundedConfidenceMonotonicity(t *testing.T) {
	composer := newTestComposer(&mockCompleter{})

	t.Run("higher top score raises confidence", func(t *testing.T) {
		low := composer.groundedConfidence(longAnswer, passages(0.75))
		high := composer.groundedConfidence(longAnswer, passages(0.95))
		assert.Greater(t, high, low)
	})

	t.Run("more passages raise confidence until the cap", func(t *testing.T) {
		one := composer.groundedConfidence(longAnswer, passages(0.8))
		two := composer.groundedConfidence(longAnswer, passages(0.8, 0.75))
		three := composer.groundedConfidence(longAnswer, passages(0.8, 0.75, 0.72))
		four := composer.groundedConfidence(longAnswer, passages(0.8, 0.75, 0.72, 0.71))

		assert.Greater(t, two, one)
		assert.Greater(t, three, two)
		assert.Equal(t, three, four, "coverage saturates at the cap")
	})

	t.Run("result stays in [0,1]", func(t *testing.T) {
		got := composer.groundedConfidence("short", passages(0.01))
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	})
}

func TestSpecificityPenalty(t *testing.T) {
	composer := newTestComposer(&mockCompleter{})

	assert.Equal(t, 0.0, composer.specificityPenalty(longAnswer))
	assert.Equal(t, 0.15, composer.specificityPenalty("Fifteen days."))
	assert.Equal(t, 0.2, composer.specificityPenalty(longAnswer+" However, I'm not sure about carry-over."))
	assert.Equal(t, 0.35, composer.specificityPenalty("I don't know."))
}

func TestGenericConfidenceCeiling(t *testing.T) {
	composer := NewComposer(&mockCompleter{}, testWeights(), config.ChatConfig{MinAnswerWords: 12}, 0.3, 0.7)

	got := composer.genericConfidence(longAnswer)
	assert.InDelta(t, 0.25, got, 1e-9, "ceiling sits just below the quality threshold")
}

func TestBuildGroundedPromptIncludesHistory(t *testing.T) {
	history := []session.Turn{
		{Role: session.RoleUser, Text: "What is the remote work policy?"},
		{Role: session.RoleAssistant, Text: "Up to three days per week."},
	}

	prompt := buildGroundedPrompt("What about equipment?", history, passages(0.9))

	assert.True(t, strings.Contains(prompt, "User: What is the remote work policy?"))
	assert.True(t, strings.Contains(prompt, "Assistant: Up to three days per week."))
	assert.True(t, strings.Index(prompt, "Conversation so far:") < strings.Index(prompt, "Company documents:"))
}
