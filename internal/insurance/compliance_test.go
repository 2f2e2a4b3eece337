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

func TestComplianceCheckRiskLevels(t *testing.T) {
	tests := []struct {
		name       string
		compliant  bool
		violations []string
		wantRisk   string
		wantAlert  string
	}{
		{"compliant", true, nil, RiskLow, ""},
		{"soft violation", false, []string{"Unclear wording"}, RiskMedium, SeverityWarning},
		{"mandatory violation", false, []string{"Unclear wording", "Insurer MUST notify within 15 days"}, RiskHigh, SeverityCritical},
		{"prohibited term", false, []string{"Prohibited exclusion clause"}, RiskHigh, SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := &MockKnowledge{CheckComplianceFunc: func(context.Context, string, string) (*knowledge.ComplianceResult, error) {
				return &knowledge.ComplianceResult{Compliant: tt.compliant, Violations: tt.violations}, nil
			}}
			m := NewComplianceMonitor(kb, nil)

			got, err := m.Check(context.Background(), "policy text", "")
			require.NoError(t, err)
			assert.Equal(t, tt.wantRisk, got.RiskLevel)
			assert.NotNil(t, got.Violations)
			assert.NotNil(t, got.Recommendations)
			assert.NotEmpty(t, got.Timestamp)

			alerts := m.Alerts(10)
			if tt.wantAlert == "" {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.wantAlert, alerts[0].Severity)
			assert.Equal(t, "Compliance violation detected in general: "+tt.violations[0], alerts[0].Message)
			assert.True(t, strings.HasPrefix(alerts[0].ID, "ALT-"))
		})
	}
}

func TestComplianceCheckFormatsRegulations(t *testing.T) {
	long := strings.Repeat("r", 150)
	kb := &MockKnowledge{CheckComplianceFunc: func(_ context.Context, _ string, pt string) (*knowledge.ComplianceResult, error) {
		assert.Equal(t, "underwriting", pt)
		return &knowledge.ComplianceResult{
			Compliant:           true,
			RelevantRegulations: []knowledge.RegulatoryContext{{Regulation: long, Source: "Motor Rules"}},
		}, nil
	}}
	got, err := NewComplianceMonitor(kb, nil).Check(context.Background(), "x", "underwriting")
	require.NoError(t, err)
	assert.Equal(t, []string{"Motor Rules: " + strings.Repeat("r", 100) + "..."}, got.RelevantRegulations)
}

func TestComplianceCheckError(t *testing.T) {
	kb := &MockKnowledge{CheckComplianceFunc: func(context.Context, string, string) (*knowledge.ComplianceResult, error) {
		return nil, errors.New("down")
	}}
	_, err := NewComplianceMonitor(kb, nil).Check(context.Background(), "x", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check compliance")
}

func TestAlertsNewestFirstAndLimited(t *testing.T) {
	kb := &MockKnowledge{CheckComplianceFunc: func(_ context.Context, d, _ string) (*knowledge.ComplianceResult, error) {
		return &knowledge.ComplianceResult{Violations: []string{d}}, nil
	}}
	m := NewComplianceMonitor(kb, nil)
	items := []BatchItem{{ID: "1", Description: "first"}, {ID: "2", Description: "second"}, {ID: "3", Description: "third"}}

	results, err := m.BatchCheck(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "2", results[1].ID)

	alerts := m.Alerts(2)
	require.Len(t, alerts, 2)
	assert.Contains(t, alerts[0].Message, "third")
	assert.Contains(t, alerts[1].Message, "second")
}
