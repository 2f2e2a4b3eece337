// Package llm wraps the hosted text generation APIs used by the agents.
package llm

import (
	"context"
	"time"

	"github.com/ashureev/rommaana-agents/internal/domain"
)

// Defaults applied when Options leave a field unset.
const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 2048
	extractTemperature float32 = 0.1
)

// Options tune a single generation call.
type Options struct {
	SystemPrompt string
	Language     domain.Language
	// Temperature is used when non-nil, otherwise DefaultTemperature.
	Temperature *float32
	MaxTokens   int
}

// Response is the free text produced by a provider.
type Response struct {
	Content      string
	TokensUsed   int
	FinishReason string
	Model        string
}

// Provider generates a reply for a conversation.
type Provider interface {
	Chat(ctx context.Context, messages []domain.Message, opts Options) (*Response, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Vision extracts text or observations from an image.
type Vision interface {
	Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// Temperature returns a pointer for Options.Temperature.
func Temperature(t float32) *float32 {
	return &t
}

// Complete runs a single-prompt generation without history.
func Complete(ctx context.Context, p Provider, prompt string, opts Options) (*Response, error) {
	return p.Chat(ctx, []domain.Message{domain.UserMessage(prompt, time.Now())}, opts)
}

func (o Options) temperature() float32 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return DefaultTemperature
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return DefaultMaxTokens
}

// languageHint is appended to the system instruction by every provider.
func languageHint(lang domain.Language) string {
	switch lang {
	case domain.LanguageArabic:
		return "Please respond in Arabic."
	case domain.LanguageBoth:
		return "Please provide your response in both English and Arabic."
	default:
		return ""
	}
}

func systemInstruction(opts Options) string {
	hint := languageHint(opts.Language)
	switch {
	case opts.SystemPrompt == "":
		return hint
	case hint == "":
		return opts.SystemPrompt
	default:
		return opts.SystemPrompt + "\n\n" + hint
	}
}

// WithTimeout bounds every Chat call of p by d. A zero d returns p unchanged.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{next: p, timeout: d}
}

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

func (t *timeoutProvider) Chat(ctx context.Context, messages []domain.Message, opts Options) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.next.Chat(ctx, messages, opts)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return nil, &ProviderError{
			Code:       ErrorCodeTimeout,
			Message:    "generation timed out after " + t.timeout.String(),
			Underlying: err,
			Retryable:  true,
		}
	}
	return resp, err
}

// Unconfigured stands in for a provider whose API key is missing. Every
// call fails with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Chat(context.Context, []domain.Message, Options) (*Response, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Describe(context.Context, []byte, string, string) (string, error) {
	return "", ErrNotConfigured
}
