// Package agent implements the conversational turn protocol shared by every
// specialized insurance agent.
package agent

import (
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/tool"
)

// Type identifies a specialized agent.
type Type string

// Agent types exposed over HTTP.
const (
	TypeClaims     Type = "claims"
	TypePolicy     Type = "policy"
	TypeSupport    Type = "support"
	TypeCompliance Type = "compliance"
)

// Response is the envelope returned for every turn.
type Response struct {
	Message        string       `json:"message"`
	Reasoning      string       `json:"reasoning,omitempty"`
	RequiresAction *tool.Action `json:"requiresAction,omitempty"`
	SuggestedNext  []string     `json:"suggestedNext,omitempty"`
	Confidence     *float64     `json:"confidence,omitempty"`
	Metadata       *Metadata    `json:"metadata,omitempty"`
}

// Metadata carries accounting attached to a generated reply.
type Metadata struct {
	Usage *Usage `json:"usage,omitempty"`
}

// Usage is the estimated token cost of a turn.
type Usage struct {
	TotalTokens int `json:"totalTokens"`
}

// Info describes an agent for discovery.
type Info struct {
	Type           Type     `json:"type"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	AvailableTools []string `json:"availableTools"`
}

// SuggestFunc proposes follow-up actions from the latest history.
type SuggestFunc func(history []domain.Message, ac domain.AgentContext) []string

// Config defines a specialized agent.
type Config struct {
	Type         Type
	Name         string
	Description  string
	SystemPrompt string
	// NotebookID enables knowledge bridge augmentation when set.
	NotebookID string
	Suggest    SuggestFunc
}
