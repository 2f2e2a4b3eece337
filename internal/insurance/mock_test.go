package insurance

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/knowledge"
	"github.com/ashureev/rommaana-agents/internal/llm"
)

// MockExtractor answers ExtractJSON with the first reply whose key is a
// substring of the prompt.
type MockExtractor struct {
	mu      sync.Mutex
	Replies map[string]string
	Errs    map[string]error
	Prompts []string
}

func (m *MockExtractor) ExtractJSON(_ context.Context, prompt string, out any) error {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	for key, err := range m.Errs {
		if strings.Contains(prompt, key) {
			return err
		}
	}
	for key, reply := range m.Replies {
		if strings.Contains(prompt, key) {
			return json.Unmarshal([]byte(reply), out)
		}
	}
	return llm.ErrEmptyResponse
}

func (m *MockExtractor) prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Prompts...)
}

// MockKnowledge implements Knowledge with function fields.
type MockKnowledge struct {
	QueryFunc           func(ctx context.Context, q knowledge.Query) (*knowledge.Answer, error)
	RegulationsFunc     func(ctx context.Context, topic string, maxResults int) ([]knowledge.RegulatoryContext, error)
	CheckComplianceFunc func(ctx context.Context, description, policyType string) (*knowledge.ComplianceResult, error)
}

func (m *MockKnowledge) Query(ctx context.Context, q knowledge.Query) (*knowledge.Answer, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, q)
	}
	return &knowledge.Answer{Answer: "regulatory context", Sources: []knowledge.Source{}}, nil
}

func (m *MockKnowledge) Regulations(ctx context.Context, topic string, maxResults int) ([]knowledge.RegulatoryContext, error) {
	if m.RegulationsFunc != nil {
		return m.RegulationsFunc(ctx, topic, maxResults)
	}
	return []knowledge.RegulatoryContext{}, nil
}

func (m *MockKnowledge) CheckCompliance(ctx context.Context, description, policyType string) (*knowledge.ComplianceResult, error) {
	if m.CheckComplianceFunc != nil {
		return m.CheckComplianceFunc(ctx, description, policyType)
	}
	return &knowledge.ComplianceResult{Compliant: true, Violations: []string{}, Recommendations: []string{}}, nil
}

// MockProvider returns Reply for every call and records prompts.
type MockProvider struct {
	Reply   string
	Err     error
	Prompts []string
}

func (m *MockProvider) Chat(_ context.Context, messages []domain.Message, _ llm.Options) (*llm.Response, error) {
	m.Prompts = append(m.Prompts, messages[len(messages)-1].Content)
	if m.Err != nil {
		return nil, m.Err
	}
	return &llm.Response{Content: m.Reply}, nil
}

// MockVision implements llm.Vision.
type MockVision struct {
	Text     string
	Err      error
	Image    []byte
	MIMEType string
}

func (m *MockVision) Describe(_ context.Context, image []byte, mimeType, _ string) (string, error) {
	m.Image, m.MIMEType = image, mimeType
	return m.Text, m.Err
}

func nonCompliant(violations ...string) *MockKnowledge {
	return &MockKnowledge{
		CheckComplianceFunc: func(context.Context, string, string) (*knowledge.ComplianceResult, error) {
			return &knowledge.ComplianceResult{Compliant: false, Violations: violations}, nil
		},
	}
}
