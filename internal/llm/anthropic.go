package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ashureev/rommaana-agents/internal/domain"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_0)

// MessagesAPI is the subset of the Anthropic SDK used here.
type MessagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// NewAnthropicMessages builds the SDK messages service for apiKey.
func NewAnthropicMessages(apiKey string) MessagesAPI {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(5),
	)
	return &client.Messages
}

// Anthropic implements Provider on the Anthropic Messages API.
type Anthropic struct {
	messages MessagesAPI
	model    string
}

// NewAnthropic returns an Anthropic provider.
func NewAnthropic(messages MessagesAPI, model string) *Anthropic {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{messages: messages, model: model}
}

// Chat implements Provider.
func (a *Anthropic) Chat(ctx context.Context, messages []domain.Message, opts Options) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(opts.maxTokens()),
		Temperature: anthropic.Float(float64(opts.temperature())),
		Messages:    toAnthropicMessages(messages),
	}
	if sys := systemInstruction(opts); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}

	msg, err := a.messages.New(ctx, params)
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &ProviderError{Code: ErrorCodeEmpty, Message: "no text blocks in response"}
	}

	return &Response{
		Content:      text.String(),
		TokensUsed:   int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		FinishReason: string(msg.StopReason),
		Model:        string(msg.Model),
	}, nil
}

// toAnthropicMessages merges consecutive same-role turns and drops assistant
// turns ahead of the first user turn. The API rejects both shapes, and a
// trimmed history can start with an assistant reply.
func toAnthropicMessages(messages []domain.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	var lastRole domain.Role
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		if len(out) == 0 && msg.Role == domain.RoleAssistant {
			continue
		}
		block := anthropic.NewTextBlock(msg.Content)
		if len(out) > 0 && msg.Role == lastRole {
			out[len(out)-1].Content = append(out[len(out)-1].Content, block)
			continue
		}
		if msg.Role == domain.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
		lastRole = msg.Role
	}
	return out
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return errorForStatus(apiErr.StatusCode, apiErr.Error(), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Code: ErrorCodeTimeout, Message: "request timed out", Underlying: err, Retryable: true}
	}
	return &ProviderError{Code: ErrorCodeNetwork, Message: "network error", Underlying: err, Retryable: true}
}
