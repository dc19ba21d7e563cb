package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Milvus     MilvusConfig
	Redis      RedisConfig
	SQLite     SQLiteConfig
	RAG        RAGConfig
	Chat       ChatConfig
	Confidence ConfidenceConfig
	Training   TrainingConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type RedisConfig struct {
	Host          string
	Port          int
	Password      string
	DB            int
	SessionTTLSec int
}

type SQLiteConfig struct {
	Path string
}

type RAGConfig struct {
	TopK                int
	SimilarityThreshold float64
	ChunkSize           int
	ChunkOverlap        int
}

type ChatConfig struct {
	MaxHistory     int
	MinAnswerWords int
}

// ConfidenceConfig holds the tunable weights of the answer confidence
// formula. The weights are heuristic, so they stay configurable rather
// than hard-coded.
type ConfidenceConfig struct {
	SimilarityWeight float64
	CoverageWeight   float64
	CoverageCap      int
	ShortPenalty     float64
	HedgePenalty     float64
	SmallTalk        float64
}

type TrainingConfig struct {
	SelfTrainingEnabled       bool
	FeedbackCollectionEnabled bool
	MinConfidence             float64
	FeedbackScoreMin          int
	FeedbackScoreMax          int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/policybot")

	viper.SetEnvPrefix("POLICYBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(cfg *Config) error {
	if cfg.RAG.SimilarityThreshold < 0 || cfg.RAG.SimilarityThreshold > 1 {
		return fmt.Errorf("rag.similarityThreshold must be in [0,1], got %f", cfg.RAG.SimilarityThreshold)
	}
	if cfg.Training.MinConfidence < 0 || cfg.Training.MinConfidence > 1 {
		return fmt.Errorf("training.minConfidence must be in [0,1], got %f", cfg.Training.MinConfidence)
	}
	if cfg.Training.FeedbackScoreMin >= cfg.Training.FeedbackScoreMax {
		return fmt.Errorf("training.feedbackScoreMin must be below feedbackScoreMax")
	}
	if cfg.Chat.MaxHistory <= 0 {
		return fmt.Errorf("chat.maxHistory must be positive, got %d", cfg.Chat.MaxHistory)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 30)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "company_policies")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.sessionTTLSec", 3600)

	viper.SetDefault("sqlite.path", "./data/policybot.db")

	viper.SetDefault("rag.topK", 6)
	viper.SetDefault("rag.similarityThreshold", 0.7)
	viper.SetDefault("rag.chunkSize", 1000)
	viper.SetDefault("rag.chunkOverlap", 150)

	viper.SetDefault("chat.maxHistory", 20)
	viper.SetDefault("chat.minAnswerWords", 12)

	viper.SetDefault("confidence.similarityWeight", 0.85)
	viper.SetDefault("confidence.coverageWeight", 0.15)
	viper.SetDefault("confidence.coverageCap", 3)
	viper.SetDefault("confidence.shortPenalty", 0.15)
	viper.SetDefault("confidence.hedgePenalty", 0.2)
	viper.SetDefault("confidence.smallTalk", 0.95)

	viper.SetDefault("training.selfTrainingEnabled", true)
	viper.SetDefault("training.feedbackCollectionEnabled", true)
	viper.SetDefault("training.minConfidence", 0.8)
	viper.SetDefault("training.feedbackScoreMin", 1)
	viper.SetDefault("training.feedbackScoreMax", 5)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
