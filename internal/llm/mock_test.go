package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"google.golang.org/genai"
)

// MockGeminiClient is a mock implementation of GeminiClient for testing.
type MockGeminiClient struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContentFunc    func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

func (m *MockGeminiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, model, contents, config)
	}
	return nil, errors.New("GenerateContentFunc not set")
}

func (m *MockGeminiClient) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	if m.EmbedContentFunc != nil {
		return m.EmbedContentFunc(ctx, model, contents, config)
	}
	return nil, errors.New("EmbedContentFunc not set")
}

// fakeProvider replays canned replies and records every call.
type fakeProvider struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []fakeCall
}

type fakeCall struct {
	messages []domain.Message
	opts     Options
}

func (f *fakeProvider) Chat(ctx context.Context, messages []domain.Message, opts Options) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{messages: messages, opts: opts})
	if f.err != nil {
		return nil, f.err
	}
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return &Response{Content: reply, TokensUsed: 10}, nil
}
