package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policybot_chat_turns_total",
			Help: "Total chat turns processed, by response type",
		},
		[]string{"response_type"},
	)

	ChatDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "policybot_chat_duration_seconds",
			Help:    "Chat turn processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "policybot_confidence_score",
			Help:    "Answer confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	DocsFound = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "policybot_docs_found",
			Help:    "Qualifying passages found per retrieval",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 10},
		},
	)

	RetrievalHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policybot_retrieval_total",
			Help: "Retrievals by whether grounding context was found",
		},
		[]string{"context_used"},
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policybot_feedback_total",
			Help: "Feedback submissions by outcome",
		},
		[]string{"status"},
	)

	FeedbackScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "policybot_feedback_score",
			Help:    "Submitted feedback scores",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	SessionsCleared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "policybot_sessions_cleared_total",
			Help: "Explicit session deletions",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policybot_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"type"},
	)
)

func Init() {
	prometheus.MustRegister(ChatTurnsTotal)
	prometheus.MustRegister(ChatDuration)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(DocsFound)
	prometheus.MustRegister(RetrievalHits)
	prometheus.MustRegister(FeedbackTotal)
	prometheus.MustRegister(FeedbackScore)
	prometheus.MustRegister(SessionsCleared)
	prometheus.MustRegister(LLMTokensUsed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
