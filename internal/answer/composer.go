package answer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/policybot/backend/internal/llm"
	"github.com/policybot/backend/internal/retrieval"
	"github.com/policybot/backend/internal/session"
	"github.com/policybot/backend/pkg/config"
	"github.com/policybot/backend/pkg/logger"
)

const (
	TypeCompanyDocs = "company_docs"
	TypeGeneric     = "generic"
	TypeSmallTalk   = "small_talk"
	TypeError       = "error"
)

const fallbackText = "I apologize, but I encountered an error while processing your question. Please try again."

// Answer is the composed result of one chat turn. Immutable.
type Answer struct {
	Text         string              `json:"answer"`
	Confidence   float64             `json:"confidence"`
	ResponseType string              `json:"response_type"`
	Sources      []retrieval.Passage `json:"sources"`
	ContextUsed  bool                `json:"context_used"`
	DocsFound    int                 `json:"docs_found"`
}

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Composer builds the final answer for a turn. It never returns an error:
// completion failures produce a degraded error-type answer instead.
type Composer struct {
	completer      Completer
	weights        config.ConfidenceConfig
	minConfidence  float64
	minAnswerWords int
	temperature    float32
}

func NewComposer(completer Completer, weights config.ConfidenceConfig, chatCfg config.ChatConfig, minConfidence float64, temperature float32) *Composer {
	minWords := chatCfg.MinAnswerWords
	if minWords <= 0 {
		minWords = 12
	}

	return &Composer{
		completer:      completer,
		weights:        weights,
		minConfidence:  minConfidence,
		minAnswerWords: minWords,
		temperature:    temperature,
	}
}

// mode is the response-type decision, resolved once up front so the
// precedence order stays auditable.
type mode int

const (
	modeSmallTalk mode = iota
	modeCompanyDocs
	modeGeneric
)

func classify(query string, passages []retrieval.Passage) mode {
	if _, ok := smallTalkReply(query); ok {
		return modeSmallTalk
	}
	if len(passages) > 0 {
		return modeCompanyDocs
	}
	return modeGeneric
}

// Compose evaluates the response-type chain in precedence order:
// small talk, grounded company-docs answer, ungrounded generic answer,
// with completion failures collapsing to the error answer.
func (c *Composer) Compose(ctx context.Context, query string, history []session.Turn, passages []retrieval.Passage) Answer {
	switch classify(query, passages) {
	case modeSmallTalk:
		reply, _ := smallTalkReply(query)
		return Answer{
			Text:         reply,
			Confidence:   c.weights.SmallTalk,
			ResponseType: TypeSmallTalk,
			Sources:      []retrieval.Passage{},
			ContextUsed:  false,
			DocsFound:    0,
		}

	case modeCompanyDocs:
		return c.composeGrounded(ctx, query, history, passages)

	default:
		return c.composeGeneric(ctx, query, history)
	}
}

func (c *Composer) composeGrounded(ctx context.Context, query string, history []session.Turn, passages []retrieval.Passage) Answer {
	resp, err := c.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: groundedSystemPrompt,
		UserPrompt:   buildGroundedPrompt(query, history, passages),
		Temperature:  &c.temperature,
	})
	if err != nil {
		return c.errorAnswer(err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return c.errorAnswer(fmt.Errorf("completion returned empty text"))
	}

	sources := dedupeBySource(passages)
	confidence := c.groundedConfidence(resp.Content, passages)

	logger.Info("Grounded answer composed",
		zap.Float64("confidence", confidence),
		zap.Int("docs_found", len(passages)),
		zap.Int("sources", len(sources)),
	)

	return Answer{
		Text:         resp.Content,
		Confidence:   confidence,
		ResponseType: TypeCompanyDocs,
		Sources:      sources,
		ContextUsed:  true,
		DocsFound:    len(passages),
	}
}

func (c *Composer) composeGeneric(ctx context.Context, query string, history []session.Turn) Answer {
	resp, err := c.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: genericSystemPrompt,
		UserPrompt:   buildGenericPrompt(query, history),
		Temperature:  &c.temperature,
	})
	if err != nil {
		return c.errorAnswer(err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return c.errorAnswer(fmt.Errorf("completion returned empty text"))
	}

	logger.Info("Generic answer composed", zap.Int("answer_length", len(resp.Content)))

	return Answer{
		Text:         resp.Content,
		Confidence:   c.genericConfidence(resp.Content),
		ResponseType: TypeGeneric,
		Sources:      []retrieval.Passage{},
		ContextUsed:  false,
		DocsFound:    0,
	}
}

func (c *Composer) errorAnswer(err error) Answer {
	logger.Error("Completion failed, returning fallback answer", zap.Error(err))

	return Answer{
		Text:         fallbackText,
		Confidence:   0.0,
		ResponseType: TypeError,
		Sources:      []retrieval.Passage{},
		ContextUsed:  false,
		DocsFound:    0,
	}
}

// groundedConfidence combines the top similarity score with a coverage
// term that saturates at CoverageCap corroborating passages, minus
// penalties for short or hedged text. Monotone in both the top score and
// the passage count.
func (c *Composer) groundedConfidence(text string, passages []retrieval.Passage) float64 {
	maxScore := 0.0
	for _, p := range passages {
		if p.Score > maxScore {
			maxScore = p.Score
		}
	}

	covCap := c.weights.CoverageCap
	if covCap <= 0 {
		covCap = 3
	}
	coverage := math.Min(float64(len(passages)), float64(covCap)) / float64(covCap)

	confidence := c.weights.SimilarityWeight*maxScore + c.weights.CoverageWeight*coverage
	confidence -= c.specificityPenalty(text)

	return clamp01(confidence)
}

// genericConfidence stays strictly below the minimum-confidence threshold
// regardless of text quality, since nothing grounds the answer.
func (c *Composer) genericConfidence(text string) float64 {
	confidence := 0.5 - c.specificityPenalty(text)

	ceiling := c.minConfidence - 0.05
	if ceiling < 0 {
		ceiling = 0
	}
	if confidence > ceiling {
		confidence = ceiling
	}

	return clamp01(confidence)
}

var hedgePhrases = []string{
	"i don't know",
	"i'm not sure",
	"not sure",
	"i cannot",
	"i don't have",
}

func (c *Composer) specificityPenalty(text string) float64 {
	penalty := 0.0

	if len(strings.Fields(text)) < c.minAnswerWords {
		penalty += c.weights.ShortPenalty
	}

	lower := strings.ToLower(text)
	for _, phrase := range hedgePhrases {
		if strings.Contains(lower, phrase) {
			penalty += c.weights.HedgePenalty
			break
		}
	}

	return penalty
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// dedupeBySource keeps one passage per source document, the first (and
// therefore highest-scoring) instance.
func dedupeBySource(passages []retrieval.Passage) []retrieval.Passage {
	seen := make(map[string]bool, len(passages))
	sources := make([]retrieval.Passage, 0, len(passages))
	for _, p := range passages {
		if seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		sources = append(sources, p)
	}
	return sources
}

const groundedSystemPrompt = `You are a helpful company policy assistant. Answer employee questions using ONLY the provided company documents.

Your responses must:
1. Be accurate and based strictly on the provided context
2. Quote specific policy details when available
3. Acknowledge when the documents do not fully cover the question
4. Be friendly and concise

Do not invent policy details that are not in the context.`

const genericSystemPrompt = `You are a helpful company policy assistant. No company documents matched this question, so answer from general knowledge.

Be clear that the answer is general guidance rather than company policy, and suggest checking with HR for the company-specific rule when relevant. Be friendly and concise.`

func buildGroundedPrompt(query string, history []session.Turn, passages []retrieval.Passage) string {
	var sb strings.Builder

	writeHistory(&sb, history)

	sb.WriteString("Company documents:\n")
	for i, p := range passages {
		sb.WriteString(fmt.Sprintf("\n[Source %d: %s (%s), relevance %.2f]\n%s\n", i+1, p.Source, p.ChunkType, p.Score, p.Text))
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer based on the documents above:")

	return sb.String()
}

func buildGenericPrompt(query string, history []session.Turn) string {
	var sb strings.Builder

	writeHistory(&sb, history)

	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer:")

	return sb.String()
}

func writeHistory(sb *strings.Builder, history []session.Turn) {
	if len(history) == 0 {
		return
	}

	sb.WriteString("Conversation so far:\n")
	for _, turn := range history {
		switch turn.Role {
		case session.RoleUser:
			sb.WriteString("User: ")
		case session.RoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			continue
		}
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}
