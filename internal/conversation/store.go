// Package conversation keeps the bounded per-conversation message history of an agent.
package conversation

import (
	"context"

	"github.com/ashureev/rommaana-agents/internal/domain"
)

// DefaultHistoryLimit is the number of messages kept per conversation.
const DefaultHistoryLimit = 20

// Store holds ordered message histories keyed by conversation id.
// Each agent owns its own Store.
type Store interface {
	// History returns a copy of the messages of id, oldest first.
	// An unknown id yields an empty history.
	History(ctx context.Context, id string) ([]domain.Message, error)
	// Append adds msg to the tail of id and trims to the history limit,
	// dropping the oldest messages first.
	Append(ctx context.Context, id string, msg domain.Message) error
	// Clear forgets the conversation.
	Clear(ctx context.Context, id string) error
}
