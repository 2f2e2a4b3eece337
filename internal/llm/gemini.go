package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"google.golang.org/genai"
)

// Default Gemini model names.
const (
	DefaultGeminiModel          = "gemini-1.5-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
)

// GeminiClient is the subset of the genai SDK used here.
// It exists so tests can swap the network client for a mock.
type GeminiClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// RealGeminiClient wraps the official SDK client to satisfy GeminiClient.
type RealGeminiClient struct {
	client *genai.Client
}

// NewRealGeminiClient creates a RealGeminiClient for apiKey.
func NewRealGeminiClient(ctx context.Context, apiKey string) (*RealGeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &RealGeminiClient{client: client}, nil
}

// GenerateContent calls the SDK's GenerateContent method.
func (c *RealGeminiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, model, contents, config)
}

// EmbedContent calls the SDK's EmbedContent method.
func (c *RealGeminiClient) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return c.client.Models.EmbedContent(ctx, model, contents, config)
}

// Gemini implements Provider, Embedder and Vision on the Gemini API.
type Gemini struct {
	client         GeminiClient
	model          string
	embeddingModel string
}

// NewGemini returns a Gemini provider. Empty model names fall back to defaults.
func NewGemini(client GeminiClient, model, embeddingModel string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	if embeddingModel == "" {
		embeddingModel = DefaultGeminiEmbeddingModel
	}
	return &Gemini{client: client, model: model, embeddingModel: embeddingModel}
}

// Chat implements Provider.
func (g *Gemini) Chat(ctx context.Context, messages []domain.Message, opts Options) (*Response, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	resp, err := g.client.GenerateContent(ctx, g.model, contents, g.config(opts))
	if err != nil {
		return nil, mapGeminiError(err)
	}
	return fromGeminiResponse(resp, g.model)
}

// Embed implements Embedder.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.EmbedContent(ctx, g.embeddingModel, []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, &ProviderError{Code: ErrorCodeEmpty, Message: "no embedding returned"}
	}
	return resp.Embeddings[0].Values, nil
}

// Describe implements Vision with an inline image part.
func (g *Gemini) Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		},
	}}
	resp, err := g.client.GenerateContent(ctx, g.model, contents, g.config(Options{}))
	if err != nil {
		return "", mapGeminiError(err)
	}
	out, err := fromGeminiResponse(resp, g.model)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

func (g *Gemini) config(opts Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(opts.temperature()),
		MaxOutputTokens: int32(opts.maxTokens()),
		TopP:            genai.Ptr[float32](0.95),
		TopK:            genai.Ptr[float32](40),
	}
	if sys := systemInstruction(opts); sys != "" {
		cfg.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}
	return cfg
}

func fromGeminiResponse(resp *genai.GenerateContentResponse, model string) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, &ProviderError{Code: ErrorCodeEmpty, Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &ProviderError{Code: ErrorCodeContentBlocked, Message: "response blocked by safety filters"}
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if text.Len() == 0 {
		return nil, &ProviderError{Code: ErrorCodeEmpty, Message: fmt.Sprintf("empty response (finish reason %q)", candidate.FinishReason)}
	}

	out := &Response{
		Content:      text.String(),
		FinishReason: string(candidate.FinishReason),
		Model:        model,
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// mapGeminiError maps Gemini API errors to provider errors.
func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := asGeminiAPIError(err); ok {
		pe := errorForStatus(apiErr.Code, apiErr.Message, err)
		if apiErr.Code == 429 && strings.Contains(strings.ToLower(apiErr.Message), "quota") {
			pe.Code = ErrorCodeQuota
		}
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Code: ErrorCodeTimeout, Message: "request timed out", Underlying: err, Retryable: true}
	}
	return &ProviderError{Code: ErrorCodeNetwork, Message: "network error", Underlying: err, Retryable: true}
}

// asGeminiAPIError finds an APIError in the chain. The SDK returns it by
// value while older callers wrap a pointer, so both forms are accepted.
func asGeminiAPIError(err error) (genai.APIError, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case genai.APIError:
			return v, true
		case *genai.APIError:
			return *v, true
		}
	}
	return genai.APIError{}, false
}
