package insurance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/rommaana-agents/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCyberAssessorFramework(t *testing.T) {
	assert.Equal(t, FrameworkNCA, FrameworkFor("nca ecc"))
	assert.Equal(t, FrameworkSAMA, FrameworkFor("SAMA"))
	assert.Equal(t, FrameworkSAMA, FrameworkFor(""))

	var question string
	kb := &MockKnowledge{QueryFunc: func(_ context.Context, q knowledge.Query) (*knowledge.Answer, error) {
		question = q.Question
		return &knowledge.Answer{Answer: "MFA is mandatory"}, nil
	}}
	ex := &MockExtractor{Replies: map[string]string{"Assess the following security controls": `{"score":60,"status":"partial","gaps":["no SOC"]}`}}

	got, err := NewCyberAssessor(kb, ex).Assess(context.Background(), "MFA, firewalls", FrameworkNCA)
	require.NoError(t, err)
	assert.Equal(t, "What are the key requirements for NCA Essential Cybersecurity Controls (ECC)?", question)
	assert.Equal(t, "partial", got.Status)
	assert.Equal(t, []string{"no SOC"}, got.Gaps)
	assert.NotNil(t, got.SAMAReferences)
	assert.Contains(t, ex.prompts()[0], "MFA is mandatory")
}

func TestContractAnalyzerTruncatesText(t *testing.T) {
	ex := &MockExtractor{Replies: map[string]string{"Analyze the following insurance contract": `{"summary":"ok","riskScore":30,"complianceStatus":"review_required"}`}}
	long := strings.Repeat("a", 12000)

	got, err := NewContractAnalyzer(&MockKnowledge{}, ex, nil).Analyze(context.Background(), long, "")
	require.NoError(t, err)
	assert.Equal(t, "review_required", got.ComplianceStatus)
	assert.NotNil(t, got.FlaggedClauses)
	assert.NotContains(t, ex.prompts()[0], strings.Repeat("a", 10001))
	assert.Contains(t, ex.prompts()[0], strings.Repeat("a", 10000)+`" ... (truncated)`)
}

func TestContractAnalyzerRetrievalError(t *testing.T) {
	kb := &MockKnowledge{QueryFunc: func(context.Context, knowledge.Query) (*knowledge.Answer, error) {
		return nil, errors.New("down")
	}}
	_, err := NewContractAnalyzer(kb, &MockExtractor{}, nil).Analyze(context.Background(), "x", "motor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to analyze contract")
}

func TestCompareContracts(t *testing.T) {
	p := &MockProvider{Reply: "- premium raised"}
	got, err := NewContractAnalyzer(&MockKnowledge{}, &MockExtractor{}, p).Compare(context.Background(), "v1", "v2")
	require.NoError(t, err)
	assert.Equal(t, "- premium raised", got)
	assert.Contains(t, p.Prompts[0], "Version A:\nv1\n\nVersion B:\nv2")
}

func TestTrendAnalyzer(t *testing.T) {
	ex := &MockExtractor{Replies: map[string]string{"Analyze the regulatory trend": `{"trend":"increasing","impactLevel":"high"}`}}
	a := NewTrendAnalyzer(ex, nil)

	got, err := a.Analyze(context.Background(), "cyber security")
	require.NoError(t, err)
	assert.Equal(t, "cyber security", got.Topic)
	assert.Equal(t, "increasing", got.Trend)
	assert.Contains(t, ex.prompts()[0], `{"year":2020,"topics":["COVID-19","remote work","cyber security"]}`)

	risks := a.EmergingRisks()
	risks[0] = "changed"
	assert.Equal(t, "AI Ethics & Bias", EmergingRisks[0])
}

func TestReportGenerator(t *testing.T) {
	p := &MockProvider{Reply: "# Q1 Report"}
	g := NewReportGenerator(p, nil)

	got, err := g.Generate(context.Background(), ReportConfig{ReportType: "quarterly", PeriodStart: "2025-01-01", PeriodEnd: "2025-03-31"})
	require.NoError(t, err)
	assert.Equal(t, "# Q1 Report", got.Content)
	assert.Equal(t, BaselineMetrics, got.Metrics)
	assert.Contains(t, p.Prompts[0], "Period: 2025-01-01 - 2025-03-31")
	assert.Contains(t, p.Prompts[0], `"totalClaims": 1250`)

	p.Err = errors.New("quota")
	_, err = g.Generate(context.Background(), ReportConfig{ReportType: "annual"})
	assert.Error(t, err)
}

func TestDashboard(t *testing.T) {
	d := NewDashboard(&MockProvider{Reply: "above market"})
	metrics := d.Metrics()
	require.Len(t, metrics, 4)
	assert.Equal(t, "claims_vol", metrics[0].ID)
	assert.Equal(t, "warning", metrics[2].Status)
	assert.Len(t, d.Insights(), 3)

	got, err := d.MarketComparison(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "above market", got)
}
