package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/policybot/backend/pkg/config"
	"github.com/policybot/backend/pkg/logger"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in a conversation. Immutable once appended.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store keeps a bounded, TTL-expiring turn log per session in Redis.
// Expiry is owned by Redis; an expired session reads like an unknown one
// and a fresh session is started in its place (fail-open: continuity is
// lost, not the turn).
type Store struct {
	client     *redis.Client
	ttl        time.Duration
	maxHistory int
}

func NewStore(cfg config.RedisConfig, maxHistory int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := time.Duration(cfg.SessionTTLSec) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxHistory <= 0 {
		maxHistory = 20
	}

	logger.Info("Session store initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Duration("ttl", ttl),
		zap.Int("max_history", maxHistory),
	)

	return &Store{
		client:     client,
		ttl:        ttl,
		maxHistory: maxHistory,
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// GetOrCreate resolves a session id and its recent history. An empty,
// unknown, or expired id yields a fresh random id with empty history.
// Redis read failures also degrade to a fresh session rather than failing
// the turn.
func (s *Store) GetOrCreate(ctx context.Context, id string) (string, []Turn) {
	if id == "" {
		return uuid.NewString(), nil
	}

	exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		logger.Warn("Session lookup failed, starting fresh session",
			zap.Error(err),
			zap.String("session_id", id),
		)
		return uuid.NewString(), nil
	}
	if exists == 0 {
		return uuid.NewString(), nil
	}

	history, err := s.History(ctx, id)
	if err != nil {
		logger.Warn("Failed to load session history",
			zap.Error(err),
			zap.String("session_id", id),
		)
		return id, nil
	}

	return id, history
}

// History returns the most recent turns in chronological order, bounded
// by the configured window.
func (s *Store) History(ctx context.Context, id string) ([]Turn, error) {
	entries, err := s.client.LRange(ctx, sessionKey(id), 0, int64(s.maxHistory-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session history: %w", err)
	}

	// LPUSH stores newest first
	turns := make([]Turn, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		var turn Turn
		if err := json.Unmarshal([]byte(entries[i]), &turn); err != nil {
			logger.Warn("Skipping corrupt session entry",
				zap.Error(err),
				zap.String("session_id", id),
			)
			continue
		}
		turns = append(turns, turn)
	}

	return turns, nil
}

// Append writes turns to the session log atomically and refreshes the
// TTL. The push, trim, and expire run in a single pipeline so concurrent
// appends never interleave a partial turn.
func (s *Store) Append(ctx context.Context, id string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}

	payloads := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		payloads = append(payloads, data)
	}

	key := sessionKey(id)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payloads...)
	pipe.LTrim(ctx, key, 0, int64(s.maxHistory-1))
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append session turns: %w", err)
	}

	logger.Debug("Session turns appended",
		zap.String("session_id", id),
		zap.Int("count", len(turns)),
	)

	return nil
}

// Exists reports whether a session is currently live in the backing store.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// Clear removes a session. Clearing an unknown session is a no-op.
func (s *Store) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	logger.Info("Session cleared", zap.String("session_id", id))
	return nil
}
