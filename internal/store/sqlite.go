package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/rommaana-agents/internal/conversation"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	maxRetries = 3
	baseDelay  = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // Serializes writers to avoid SQLITE_BUSY under WAL
	now     func() time.Time
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversation_messages (
		agent TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (agent, conversation_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_conversation_messages_created ON conversation_messages(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Messages retrieves a conversation in insertion order.
func (s *SQLiteStore) Messages(ctx context.Context, agent, conversationID string) ([]domain.Message, error) {
	query := `
		SELECT role, content, created_at
		FROM conversation_messages
		WHERE agent = ? AND conversation_id = ?
		ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, agent, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var role string
		var createdAt int64
		if err := rows.Scan(&role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.Timestamp = time.UnixMilli(createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return messages, nil
}

// AppendMessage inserts msg at the tail and deletes everything older than
// the newest limit rows in one transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, agent, conversationID string, msg domain.Message, limit int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return shared.RetryOnConflict(ctx, maxRetries, baseDelay, func() error {
		return s.appendTx(ctx, agent, conversationID, msg, limit)
	})
}

func (s *SQLiteStore) appendTx(ctx context.Context, agent, conversationID string, msg domain.Message, limit int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM conversation_messages WHERE agent = ? AND conversation_id = ?`,
		agent, conversationID).Scan(&seq)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversation_messages (agent, conversation_id, seq, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		agent, conversationID, seq, string(msg.Role), msg.Content, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if limit > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM conversation_messages WHERE agent = ? AND conversation_id = ? AND seq <= ?`,
			agent, conversationID, seq-int64(limit))
		if err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, agent, conversationID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := shared.RetryOnConflict(ctx, maxRetries, baseDelay, func() error {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM conversation_messages WHERE agent = ? AND conversation_id = ?`,
			agent, conversationID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s after %d attempts: %w", conversationID, maxRetries, err)
	}
	return nil
}

// CleanupIdle removes conversations whose newest message is older than ttl.
// A non-positive ttl disables expiry.
func (s *SQLiteStore) CleanupIdle(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cutoff := s.now().Add(-ttl).UnixMilli()
	query := `
		DELETE FROM conversation_messages
		WHERE (agent, conversation_id) IN (
			SELECT agent, conversation_id FROM conversation_messages
			GROUP BY agent, conversation_id
			HAVING MAX(created_at) < ?
		)`

	var deleted int64
	err := shared.RetryOnConflict(ctx, maxRetries, baseDelay, func() error {
		result, err := s.db.ExecContext(ctx, query, cutoff)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup idle conversations: %w", err)
	}
	if deleted > 0 {
		slog.Info("Removed idle conversation messages", "rows", deleted, "ttl", ttl)
	}
	return deleted, nil
}

// ForAgent returns a conversation.Store scoped to one agent.
func (s *SQLiteStore) ForAgent(agent string, limit int) conversation.Store {
	if limit <= 0 {
		limit = conversation.DefaultHistoryLimit
	}
	return &agentStore{repo: s, agent: agent, limit: limit}
}

// Sweeper adapts CleanupIdle for conversation.StartSweeper.
func (s *SQLiteStore) Sweeper(ttl time.Duration) conversation.Sweeper {
	return conversation.SweeperFunc(func(ctx context.Context) (int64, error) {
		return s.CleanupIdle(ctx, ttl)
	})
}

type agentStore struct {
	repo  Repository
	agent string
	limit int
}

func (a *agentStore) History(ctx context.Context, id string) ([]domain.Message, error) {
	return a.repo.Messages(ctx, a.agent, id)
}

func (a *agentStore) Append(ctx context.Context, id string, msg domain.Message) error {
	return a.repo.AppendMessage(ctx, a.agent, id, msg, a.limit)
}

func (a *agentStore) Clear(ctx context.Context, id string) error {
	return a.repo.DeleteConversation(ctx, a.agent, id)
}
