package store

import (
	"context"
	"crypto/md5"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/policybot/backend/pkg/logger"
)

// ConversationRecord is the implicit training signal captured for every
// completed answer. Append-only.
type ConversationRecord struct {
	ID           int64
	Question     string
	Answer       string
	ResponseType string
	Confidence   float64
	Timestamp    time.Time
}

// FeedbackRecord is an explicit rating for a (session, question, answer)
// triple. A later submission for the same triple overwrites the earlier
// one.
type FeedbackRecord struct {
	SessionID string
	Question  string
	Answer    string
	Score     int
	Comment   string
	Timestamp time.Time
}

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("Record store initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		question_hash TEXT NOT NULL,
		answer_hash TEXT NOT NULL,
		response_type TEXT NOT NULL,
		confidence REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);
	CREATE INDEX IF NOT EXISTS idx_conversations_type ON conversations(response_type);
	CREATE INDEX IF NOT EXISTS idx_conversations_pair ON conversations(question_hash, answer_hash);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		question_hash TEXT NOT NULL,
		answer_hash TEXT NOT NULL,
		score INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL,
		UNIQUE(session_id, question_hash, answer_hash)
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);
	CREATE INDEX IF NOT EXISTS idx_feedback_pair ON feedback(question_hash, answer_hash);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Record store schema initialized")
	return nil
}

func hashText(text string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(text)))
}

func (c *Client) RecordConversation(ctx context.Context, rec ConversationRecord) error {
	query := `
		INSERT INTO conversations (question, answer, question_hash, answer_hash, response_type, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		rec.Question,
		rec.Answer,
		hashText(rec.Question),
		hashText(rec.Answer),
		rec.ResponseType,
		rec.Confidence,
		rec.Timestamp.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to record conversation: %w", err)
	}

	logger.Debug("Conversation recorded",
		zap.String("response_type", rec.ResponseType),
		zap.Float64("confidence", rec.Confidence),
	)

	return nil
}

// RecordFeedback stores explicit feedback, last-write-wins per
// (session, question, answer) triple.
func (c *Client) RecordFeedback(ctx context.Context, rec FeedbackRecord) error {
	query := `
		INSERT INTO feedback (session_id, question, answer, question_hash, answer_hash, score, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, question_hash, answer_hash) DO UPDATE SET
			score = excluded.score,
			comment = excluded.comment,
			created_at = excluded.created_at
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		rec.SessionID,
		rec.Question,
		rec.Answer,
		hashText(rec.Question),
		hashText(rec.Answer),
		rec.Score,
		rec.Comment,
		rec.Timestamp.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	logger.Info("Feedback recorded",
		zap.String("session_id", rec.SessionID),
		zap.Int("score", rec.Score),
	)

	return nil
}

// Conversations returns records created at or after since, oldest first.
// Rows that fail to scan are skipped and counted so a corrupt record
// cannot block report generation.
func (c *Client) Conversations(ctx context.Context, since time.Time) ([]ConversationRecord, int, error) {
	query := `
		SELECT id, question, answer, response_type, confidence, created_at
		FROM conversations
		WHERE created_at >= ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := c.db.QueryContext(ctx, query, since.Unix())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var records []ConversationRecord
	skipped := 0
	for rows.Next() {
		var r ConversationRecord
		var createdAt int64

		if err := rows.Scan(&r.ID, &r.Question, &r.Answer, &r.ResponseType, &r.Confidence, &createdAt); err != nil {
			logger.Warn("Skipping corrupt conversation row", zap.Error(err))
			skipped++
			continue
		}

		r.Timestamp = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return records, skipped, nil
}

// Feedback returns records created at or after since, oldest first,
// skipping and counting corrupt rows.
func (c *Client) Feedback(ctx context.Context, since time.Time) ([]FeedbackRecord, int, error) {
	query := `
		SELECT session_id, question, answer, score, COALESCE(comment, ''), created_at
		FROM feedback
		WHERE created_at >= ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := c.db.QueryContext(ctx, query, since.Unix())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var records []FeedbackRecord
	skipped := 0
	for rows.Next() {
		var r FeedbackRecord
		var createdAt int64

		if err := rows.Scan(&r.SessionID, &r.Question, &r.Answer, &r.Score, &r.Comment, &createdAt); err != nil {
			logger.Warn("Skipping corrupt feedback row", zap.Error(err))
			skipped++
			continue
		}

		r.Timestamp = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to iterate feedback: %w", err)
	}

	return records, skipped, nil
}

// HighQuality selects grounded, confident conversations whose feedback
// (when present) is at or above positiveMin, most recent first.
func (c *Client) HighQuality(ctx context.Context, minConfidence float64, positiveMin, limit int) ([]ConversationRecord, error) {
	query := `
		SELECT c.id, c.question, c.answer, c.response_type, c.confidence, c.created_at
		FROM conversations c
		WHERE c.response_type = 'company_docs'
		  AND c.confidence >= ?
		  AND NOT EXISTS (
			SELECT 1 FROM feedback f
			WHERE f.question_hash = c.question_hash
			  AND f.answer_hash = c.answer_hash
			  AND f.score < ?
		  )
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, minConfidence, positiveMin, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query high-quality conversations: %w", err)
	}
	defer rows.Close()

	var records []ConversationRecord
	for rows.Next() {
		var r ConversationRecord
		var createdAt int64

		if err := rows.Scan(&r.ID, &r.Question, &r.Answer, &r.ResponseType, &r.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Timestamp = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}
