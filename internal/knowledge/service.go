package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/llm"
)

// DefaultCollection holds the Insurance Authority regulations.
const DefaultCollection = "ia_regulations"

// NoSourcesAnswer is returned when retrieval finds nothing relevant.
const NoSourcesAnswer = "I could not find relevant regulatory information to answer your question. Please rephrase or consult the Insurance Authority directly."

const (
	querySimilarity       = 0.7
	regulationSimilarity  = 0.65
	complianceSimilarity  = 0.6
	highQualitySimilarity = 0.85
	sourcePreviewLength   = 500
	answerTemperature     = 0.3
)

// Extractor decodes structured JSON from a prompt.
type Extractor interface {
	ExtractJSON(ctx context.Context, prompt string, out any) error
}

// Service answers regulatory questions with retrieved context.
type Service struct {
	retriever  Retriever
	provider   llm.Provider
	extractor  Extractor
	logger     *slog.Logger
	collection string
}

// NewService returns a Service.
func NewService(r Retriever, p llm.Provider, ex Extractor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{retriever: r, provider: p, extractor: ex, logger: logger, collection: DefaultCollection}
}

// WithCollection points the service at a different collection.
func (s *Service) WithCollection(name string) *Service {
	if name != "" {
		s.collection = name
	}
	return s
}

// Query is a retrieval-augmented question.
type Query struct {
	Question   string
	Collection string
	MaxResults int
	// AllowNoSources generates an answer even when nothing was retrieved.
	AllowNoSources bool
	Language       domain.Language
}

// Source is a cited passage in an Answer.
type Source struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// Answer is the result of Query.
type Answer struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// RegulatoryContext is a regulation passage with its relevance.
type RegulatoryContext struct {
	Regulation string  `json:"regulation"`
	Source     string  `json:"source"`
	Relevance  float64 `json:"relevance"`
}

// ComplianceResult is the outcome of CheckCompliance.
type ComplianceResult struct {
	Compliant           bool                `json:"compliant"`
	Violations          []string            `json:"violations"`
	Recommendations     []string            `json:"recommendations"`
	RelevantRegulations []RegulatoryContext `json:"relevantRegulations"`
}

// Query answers q from the retrieved passages.
func (s *Service) Query(ctx context.Context, q Query) (*Answer, error) {
	if q.Collection == "" {
		q.Collection = s.collection
	}
	if q.MaxResults <= 0 {
		q.MaxResults = 5
	}
	if q.Language == "" {
		q.Language = domain.LanguageBoth
	}

	passages, err := s.retriever.Search(ctx, q.Collection, q.Question, SearchOptions{
		Limit:     q.MaxResults,
		Threshold: querySimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process RAG query: %w", err)
	}
	if len(passages) == 0 && !q.AllowNoSources {
		return &Answer{Answer: NoSourcesAnswer, Sources: []Source{}}, nil
	}

	text, err := s.generateAnswer(ctx, q.Question, buildContext(passages), q.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to process RAG query: %w", err)
	}

	sources := make([]Source, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, Source{
			ID:         p.ID,
			Content:    preview(p.Content, sourcePreviewLength),
			Title:      p.Title("Unknown Source"),
			Similarity: p.Similarity,
		})
	}
	return &Answer{Answer: text, Sources: sources, Confidence: confidence(passages)}, nil
}

// Regulations returns the passages relevant to topic.
func (s *Service) Regulations(ctx context.Context, topic string, maxResults int) ([]RegulatoryContext, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	passages, err := s.retriever.Search(ctx, s.collection, topic, SearchOptions{
		Limit:     maxResults,
		Threshold: regulationSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get regulations: %w", err)
	}
	return toRegulatoryContext(passages), nil
}

// CheckCompliance asks the model whether description complies with the
// retrieved regulations.
func (s *Service) CheckCompliance(ctx context.Context, description, policyType string) (*ComplianceResult, error) {
	prefix := ""
	if policyType != "" {
		prefix = policyType + " "
	}
	query := fmt.Sprintf("Regulations and requirements for %sinsurance: %s", prefix, description)

	passages, err := s.retriever.Search(ctx, s.collection, query, SearchOptions{
		Limit:     10,
		Threshold: complianceSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check compliance: %w", err)
	}

	typeLine := ""
	if policyType != "" {
		typeLine = "Policy Type: " + policyType
	}
	prompt := fmt.Sprintf(`You are an Insurance Authority (IA) compliance expert. Analyze the following policy/action for compliance with Saudi Arabian insurance regulations.

Description: %s
%s

Relevant Regulations:
%s

Provide a compliance analysis in the following JSON format:
{
  "compliant": true/false,
  "violations": ["list", "of", "violations"],
  "recommendations": ["list", "of", "recommendations"]
}`, description, typeLine, buildContext(passages))

	var result ComplianceResult
	if err := s.extractor.ExtractJSON(ctx, prompt, &result); err != nil {
		return nil, fmt.Errorf("failed to check compliance: %w", err)
	}
	if result.Violations == nil {
		result.Violations = []string{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
	result.RelevantRegulations = toRegulatoryContext(passages)
	return &result, nil
}

// DocumentMeta describes a document to index.
type DocumentMeta struct {
	ID     string
	Title  string
	Source string
	Type   string
	Date   string
	Extra  map[string]any
}

// IndexDocument chunks content and adds every chunk to the service's
// collection. It returns the number of chunks.
func (s *Service) IndexDocument(ctx context.Context, content string, meta DocumentMeta) (int, error) {
	chunks := Chunk(content, DefaultChunkSize)
	docs := make([]Document, 0, len(chunks))
	for i, chunk := range chunks {
		md := map[string]any{
			"id":           meta.ID,
			"title":        meta.Title,
			"source":       meta.Source,
			"chunk_index":  i,
			"total_chunks": len(chunks),
		}
		if meta.Type != "" {
			md["type"] = meta.Type
		}
		if meta.Date != "" {
			md["date"] = meta.Date
		}
		for k, v := range meta.Extra {
			md[k] = v
		}
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s_chunk_%d", meta.ID, i),
			Content:  chunk,
			Metadata: md,
		})
	}

	if err := s.retriever.Add(ctx, s.collection, docs); err != nil {
		return 0, fmt.Errorf("failed to index document: %w", err)
	}
	s.logger.Info("Indexed document", "title", meta.Title, "chunks", len(chunks))
	return len(chunks), nil
}

func (s *Service) generateAnswer(ctx context.Context, question, regulations string, lang domain.Language) (string, error) {
	var langRule string
	switch lang {
	case domain.LanguageArabic:
		langRule = "- Respond in Arabic"
	case domain.LanguageBoth:
		langRule = "- Provide your response in both English and Arabic"
	default:
		langRule = "- Respond in English"
	}

	system := `You are an expert Insurance Authority (IA) assistant for Saudi Arabia. Your role is to provide accurate, compliant information based on official IA regulations.

Guidelines:
- Only use information from the provided regulatory context
- Always cite the source regulation when providing information
- If the context doesn't contain enough information, say so clearly
- Be precise and professional
- Focus on factual regulatory requirements
` + langRule

	prompt := fmt.Sprintf(`Based on the following Insurance Authority regulations:

%s

Question: %s

Please provide a comprehensive answer citing the relevant regulations.`, regulations, question)

	resp, err := llm.Complete(ctx, s.provider, prompt, llm.Options{
		SystemPrompt: system,
		Language:     lang,
		Temperature:  llm.Temperature(answerTemperature),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func buildContext(passages []Passage) string {
	parts := make([]string, 0, len(passages))
	for i, p := range passages {
		parts = append(parts, fmt.Sprintf("[%d] Source: %s\n%s\n", i+1, p.Title("IA Document"), p.Content))
	}
	return strings.Join(parts, "\n---\n\n")
}

// confidence averages the top three similarities and adds 0.05 per
// passage above 0.85, capped at 0.15, never exceeding 1.
func confidence(passages []Passage) float64 {
	if len(passages) == 0 {
		return 0
	}
	top := passages
	if len(top) > 3 {
		top = top[:3]
	}
	var sum float64
	for _, p := range top {
		sum += p.Similarity
	}
	avg := sum / float64(len(top))

	var high int
	for _, p := range passages {
		if p.Similarity > highQualitySimilarity {
			high++
		}
	}
	boost := min(float64(high)*0.05, 0.15)
	return min(avg+boost, 1.0)
}

func toRegulatoryContext(passages []Passage) []RegulatoryContext {
	out := make([]RegulatoryContext, 0, len(passages))
	for _, p := range passages {
		out = append(out, RegulatoryContext{
			Regulation: p.Content,
			Source:     p.Title("IA Regulation"),
			Relevance:  p.Similarity,
		})
	}
	return out
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}
