package retrieval

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/policybot/backend/internal/session"
	"github.com/policybot/backend/internal/vector/milvus"
	"github.com/policybot/backend/pkg/config"
	"github.com/policybot/backend/pkg/logger"
)

// Passage is a retrieved document chunk scoped to a single turn.
type Passage struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	ChunkType string  `json:"chunk_type"`
	Score     float64 `json:"score"`
}

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type ChunkSearcher interface {
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]milvus.ScoredChunk, error)
}

// Orchestrator turns a question plus recent history into a ranked,
// deduplicated set of grounding passages. Upstream failures degrade to an
// empty result so the answer composer falls back to the ungrounded path.
type Orchestrator struct {
	embedder  Embedder
	chunks    ChunkSearcher
	topK      int
	threshold float64
}

func New(embedder Embedder, chunks ChunkSearcher, cfg config.RAGConfig) *Orchestrator {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 6
	}

	return &Orchestrator{
		embedder:  embedder,
		chunks:    chunks,
		topK:      topK,
		threshold: cfg.SimilarityThreshold,
	}
}

// Retrieve returns passages at or above the similarity threshold, sorted
// descending by score with ties kept in retrieval order, deduplicated by
// (source, chunk type). The second result reports whether any grounding
// context was found.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, history []session.Turn) ([]Passage, bool) {
	searchText := buildSearchText(query, history)

	embedding, err := o.embedder.GenerateEmbedding(ctx, searchText)
	if err != nil {
		logger.Warn("Query embedding failed, skipping retrieval", zap.Error(err))
		return nil, false
	}

	results, err := o.chunks.Search(ctx, embedding, o.topK)
	if err != nil {
		logger.Warn("Chunk store search failed, skipping retrieval", zap.Error(err))
		return nil, false
	}

	passages := o.filterAndRank(results)
	if len(passages) == 0 {
		logger.Info("No passages above similarity threshold",
			zap.Float64("threshold", o.threshold),
			zap.Int("raw_results", len(results)),
		)
		return nil, false
	}

	logger.Info("Passages retrieved",
		zap.Int("raw_results", len(results)),
		zap.Int("passages", len(passages)),
		zap.Float64("top_score", passages[0].Score),
	)

	return passages, true
}

// buildSearchText augments the question with the most recent user turns
// so follow-ups like "what about vacation days" carry their topic.
func buildSearchText(query string, history []session.Turn) string {
	var recent []string
	for i := len(history) - 1; i >= 0 && len(recent) < 2; i-- {
		if history[i].Role == session.RoleUser {
			recent = append(recent, history[i].Text)
		}
	}

	if len(recent) == 0 {
		return query
	}

	var sb strings.Builder
	for i := len(recent) - 1; i >= 0; i-- {
		sb.WriteString(recent[i])
		sb.WriteString("\n")
	}
	sb.WriteString(query)
	return sb.String()
}

func (o *Orchestrator) filterAndRank(results []milvus.ScoredChunk) []Passage {
	type keyed struct {
		passage Passage
		order   int
	}

	best := make(map[string]keyed)
	for i, r := range results {
		score := float64(r.Score)
		if score < o.threshold {
			continue
		}

		key := r.Source + "\x00" + r.ChunkType
		existing, ok := best[key]
		if ok && existing.passage.Score >= score {
			continue
		}

		best[key] = keyed{
			passage: Passage{
				Text:      r.Text,
				Source:    r.Source,
				ChunkType: r.ChunkType,
				Score:     score,
			},
			order: i,
		}
	}

	ranked := make([]keyed, 0, len(best))
	for _, k := range best {
		ranked = append(ranked, k)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].passage.Score != ranked[j].passage.Score {
			return ranked[i].passage.Score > ranked[j].passage.Score
		}
		return ranked[i].order < ranked[j].order
	})

	passages := make([]Passage, len(ranked))
	for i, k := range ranked {
		passages[i] = k.passage
	}

	return passages
}
