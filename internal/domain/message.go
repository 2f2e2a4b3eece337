// Package domain contains core domain types shared by the agents.
package domain

import (
	"strings"
	"time"
)

// Language selects the reply language for a turn.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
	LanguageBoth    Language = "both"
)

// ParseLanguage normalizes a caller supplied language code.
// The second return value is false for unknown codes.
func ParseLanguage(s string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageEnglish:
		return LanguageEnglish, true
	case LanguageArabic:
		return LanguageArabic, true
	case LanguageBoth:
		return LanguageBoth, true
	default:
		return "", false
	}
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation history.
// Assistant content is always the user-facing text, never a raw model envelope.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserMessage builds a user message stamped with ts.
func UserMessage(content string, ts time.Time) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: ts}
}

// AssistantMessage builds an assistant message stamped with ts.
func AssistantMessage(content string, ts time.Time) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: ts}
}

// AgentContext carries per-call information for a turn. It is never persisted.
type AgentContext struct {
	ConversationID string         `json:"conversationId"`
	Language       Language       `json:"language"`
	UserID         string         `json:"userId,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
