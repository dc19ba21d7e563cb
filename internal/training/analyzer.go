package training

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/policybot/backend/internal/answer"
	"github.com/policybot/backend/internal/store"
	"github.com/policybot/backend/pkg/config"
	"github.com/policybot/backend/pkg/logger"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Report is a derived aggregate over the stored conversation and
// feedback records. Never persisted; recomputing over the same data
// yields the same counts.
type Report struct {
	GeneratedAt          time.Time      `json:"generated_at"`
	TotalConversations   int            `json:"total_conversations"`
	TotalFeedback        int            `json:"total_feedback"`
	SkippedRecords       int            `json:"skipped_records"`
	ResponseTypes        map[string]int `json:"response_types"`
	QuestionCategories   map[string]int `json:"question_categories"`
	CommonPatterns       []PatternGroup `json:"common_patterns"`
	AnswerQuality        AnswerQuality  `json:"answer_quality"`
	AverageFeedbackScore float64        `json:"average_feedback_score"`
}

type AnswerQuality struct {
	TotalAnswers     int     `json:"total_answers"`
	AverageLength    float64 `json:"average_length"`
	SpecificAnswers  int     `json:"specific_answers"`
	GenericAnswers   int     `json:"generic_answers"`
	SpecificityRatio float64 `json:"specificity_ratio"`
}

type Suggestion struct {
	Type     string  `json:"type"`
	Priority string  `json:"priority"`
	Message  string  `json:"message"`
	Metric   float64 `json:"metric"`
}

type Example struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type RecordSource interface {
	Conversations(ctx context.Context, since time.Time) ([]store.ConversationRecord, int, error)
	Feedback(ctx context.Context, since time.Time) ([]store.FeedbackRecord, int, error)
	HighQuality(ctx context.Context, minConfidence float64, positiveMin, limit int) ([]store.ConversationRecord, error)
}

// Analyzer is a read-side aggregator over recorded conversations and
// feedback. It never mutates the underlying records.
type Analyzer struct {
	records        RecordSource
	minConfidence  float64
	minAnswerWords int
	scoreMin       int
	scoreMax       int
}

func NewAnalyzer(records RecordSource, trainingCfg config.TrainingConfig, chatCfg config.ChatConfig) *Analyzer {
	minWords := chatCfg.MinAnswerWords
	if minWords <= 0 {
		minWords = 12
	}

	return &Analyzer{
		records:        records,
		minConfidence:  trainingCfg.MinConfidence,
		minAnswerWords: minWords,
		scoreMin:       trainingCfg.FeedbackScoreMin,
		scoreMax:       trainingCfg.FeedbackScoreMax,
	}
}

// GenerateReport scans every stored record. A partial report over the
// scannable rows is preferred to no report.
func (a *Analyzer) GenerateReport(ctx context.Context) (*Report, error) {
	conversations, skippedConv, err := a.records.Conversations(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	feedback, skippedFb, err := a.records.Feedback(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}

	report := &Report{
		GeneratedAt:        time.Now().UTC(),
		TotalConversations: len(conversations),
		TotalFeedback:      len(feedback),
		SkippedRecords:     skippedConv + skippedFb,
		ResponseTypes:      make(map[string]int),
		QuestionCategories: make(map[string]int),
	}

	totalWords := 0
	questions := make([]string, 0, len(conversations))
	for _, conv := range conversations {
		report.ResponseTypes[conv.ResponseType]++
		report.QuestionCategories[categorizeQuestion(conv.Question)]++
		questions = append(questions, conv.Question)

		words := wordCount(conv.Answer)
		totalWords += words

		if a.isSpecific(conv.Answer, words) {
			report.AnswerQuality.SpecificAnswers++
		} else {
			report.AnswerQuality.GenericAnswers++
		}
	}

	report.CommonPatterns = commonPatterns(questions)

	report.AnswerQuality.TotalAnswers = len(conversations)
	if len(conversations) > 0 {
		report.AnswerQuality.AverageLength = float64(totalWords) / float64(len(conversations))
		report.AnswerQuality.SpecificityRatio = float64(report.AnswerQuality.SpecificAnswers) / float64(len(conversations))
	}

	if len(feedback) > 0 {
		total := 0
		for _, fb := range feedback {
			total += fb.Score
		}
		report.AverageFeedbackScore = float64(total) / float64(len(feedback))
	}

	logger.Info("Training report generated",
		zap.Int("conversations", report.TotalConversations),
		zap.Int("feedback", report.TotalFeedback),
		zap.Int("skipped", report.SkippedRecords),
		zap.Float64("specificity_ratio", report.AnswerQuality.SpecificityRatio),
	)

	return report, nil
}

const (
	specificityTarget = 0.7
	genericShareLimit = 0.5
	feedbackFraction  = 0.75
)

// GenerateSuggestions applies the fixed rule set over a fresh report.
// Priority scales with how far each metric sits from its target.
func (a *Analyzer) GenerateSuggestions(ctx context.Context) ([]Suggestion, error) {
	report, err := a.GenerateReport(ctx)
	if err != nil {
		return nil, err
	}

	return a.suggestionsFromReport(report), nil
}

func (a *Analyzer) suggestionsFromReport(report *Report) []Suggestion {
	suggestions := []Suggestion{}

	if report.TotalConversations == 0 {
		return suggestions
	}

	ratio := report.AnswerQuality.SpecificityRatio
	if ratio < specificityTarget {
		suggestions = append(suggestions, Suggestion{
			Type:     "context_quality",
			Priority: deviationPriority(specificityTarget-ratio, 0.2),
			Message:  "Many answers are generic. Consider adding more specific policy information to the document corpus.",
			Metric:   ratio,
		})
	}

	genericShare := float64(report.ResponseTypes[answer.TypeGeneric]) / float64(report.TotalConversations)
	if genericShare > genericShareLimit {
		suggestions = append(suggestions, Suggestion{
			Type:     "document_coverage",
			Priority: deviationPriority(genericShare-genericShareLimit, 0.2),
			Message:  "A large share of questions found no matching documents. Consider expanding document coverage.",
			Metric:   genericShare,
		})
	}

	if report.TotalFeedback > 0 {
		target := float64(a.scoreMin) + feedbackFraction*float64(a.scoreMax-a.scoreMin)
		if report.AverageFeedbackScore < target {
			suggestions = append(suggestions, Suggestion{
				Type:     "prompt_tuning",
				Priority: deviationPriority(target-report.AverageFeedbackScore, 1.0),
				Message:  "User feedback scores are below target. Review recent conversations and prompt wording.",
				Metric:   report.AverageFeedbackScore,
			})
		}
	}

	if category, count, ok := dominantCategory(report.QuestionCategories); ok {
		share := float64(count) / float64(report.TotalConversations)
		if share > 0.3 && category != "general" {
			suggestions = append(suggestions, Suggestion{
				Type:     "question_type_optimization",
				Priority: PriorityLow,
				Message:  fmt.Sprintf("Many questions are about %s. Consider improving responses for this category.", category),
				Metric:   share,
			})
		}
	}

	return suggestions
}

// deviationPriority maps how far a metric deviates from its target to a
// priority: beyond span is high, inside span is medium.
func deviationPriority(deviation, span float64) string {
	if deviation >= span {
		return PriorityHigh
	}
	if deviation > 0 {
		return PriorityMedium
	}
	return PriorityLow
}

// dominantCategory picks the most frequent category, breaking ties by
// name so repeated runs stay deterministic.
func dominantCategory(categories map[string]int) (string, int, bool) {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestCount := 0
	for _, name := range names {
		if categories[name] > bestCount {
			best = name
			bestCount = categories[name]
		}
	}

	if best == "" {
		return "", 0, false
	}
	return best, bestCount, true
}

// HighQualityExamples returns the most recent grounded, confident,
// well-rated conversations as training examples.
func (a *Analyzer) HighQualityExamples(ctx context.Context, limit int) ([]Example, error) {
	if limit <= 0 {
		limit = 20
	}

	positiveMin := (a.scoreMin + a.scoreMax + 1) / 2

	records, err := a.records.HighQuality(ctx, a.minConfidence, positiveMin, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load high-quality conversations: %w", err)
	}

	examples := make([]Example, 0, len(records))
	for _, rec := range records {
		examples = append(examples, Example{
			Question: rec.Question,
			Answer:   rec.Answer,
		})
	}

	return examples, nil
}
