// Package store provides durable persistence for conversation histories.
package store

import (
	"context"
	"time"

	"github.com/ashureev/rommaana-agents/internal/domain"
)

// Repository persists agent conversation histories.
type Repository interface {
	// Messages returns the history of one agent's conversation, oldest first.
	Messages(ctx context.Context, agent, conversationID string) ([]domain.Message, error)

	// AppendMessage adds msg and trims the conversation to the newest limit messages.
	AppendMessage(ctx context.Context, agent, conversationID string, msg domain.Message, limit int) error

	// DeleteConversation removes every message of a conversation.
	DeleteConversation(ctx context.Context, agent, conversationID string) error

	// CleanupIdle removes conversations with no message newer than ttl.
	CleanupIdle(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
