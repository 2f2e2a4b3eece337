package insurance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyRisk = "Assess the underwriting risk"

func newUnderwriter(kb Knowledge, riskReply string) *Underwriter {
	ex := &MockExtractor{Replies: map[string]string{keyRisk: riskReply}}
	u := NewUnderwriter(NewComplianceMonitor(kb, nil), NewRiskScorer(ex, nil), func() time.Time { return time.UnixMilli(1000) }, nil)
	return u
}

func TestRiskScorerHardRules(t *testing.T) {
	reply := `{"score":20,"riskLevel":"low","factors":["clean record"],"recommendedPremiumLoading":5,"approvalStatus":"auto_approve","justification":"ok"}`
	ex := &MockExtractor{Replies: map[string]string{keyRisk: reply}}
	s := NewRiskScorer(ex, nil)

	got := s.Calculate(context.Background(), RiskFactors{Age: 30, VehicleValue: 600000, CoverageType: "comprehensive"})
	assert.Equal(t, ApprovalRefer, got.ApprovalStatus)
	assert.Equal(t, []string{"clean record", "High value vehicle > 500k"}, got.Factors)

	got = s.Calculate(context.Background(), RiskFactors{Age: 17, CoverageType: "tpl"})
	assert.Equal(t, ApprovalDecline, got.ApprovalStatus)
	assert.Equal(t, "critical", got.RiskLevel)
	assert.Contains(t, got.Factors, "Underage driver")
}

func TestRiskScorerFallback(t *testing.T) {
	ex := &MockExtractor{Errs: map[string]error{keyRisk: errors.New("timeout")}}
	got := NewRiskScorer(ex, nil).Calculate(context.Background(), RiskFactors{CoverageType: "tpl"})
	assert.Equal(t, RiskAssessment{
		Score:          50,
		RiskLevel:      RiskMedium,
		Factors:        []string{"Error in risk calculation, manual review required"},
		ApprovalStatus: ApprovalRefer,
		Justification:  "System error during assessment",
	}, got)
}

func TestUnderwriterApproves(t *testing.T) {
	u := newUnderwriter(&MockKnowledge{}, `{"score":20,"riskLevel":"low","factors":[],"recommendedPremiumLoading":10,"approvalStatus":"auto_approve","justification":"ok"}`)

	got, err := u.Process(context.Background(), "APP-1", RiskFactors{Age: 35, VehicleType: "sedan", VehicleValue: 100000, CoverageType: "comprehensive"})
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, got.Decision)
	assert.Equal(t, 4950.0, got.Premium)
	assert.Regexp(t, `^QT-1000-[0-9A-F]{5}$`, got.QuoteID)
	assert.Equal(t, "Auto-approved via accelerated underwriting", got.Notes)
}

func TestUnderwriterDecisions(t *testing.T) {
	t.Run("non compliant", func(t *testing.T) {
		u := newUnderwriter(nonCompliant("Coverage not permitted", "Limit exceeded"), `{}`)
		got, err := u.Process(context.Background(), "APP-1", RiskFactors{CoverageType: "tpl"})
		require.NoError(t, err)
		assert.Equal(t, &UnderwritingDecision{
			Decision:   DecisionDeclined,
			Conditions: []string{},
			Notes:      "Compliance violation: Coverage not permitted, Limit exceeded",
		}, got)
	})
	t.Run("declined by risk", func(t *testing.T) {
		u := newUnderwriter(&MockKnowledge{}, `{"approvalStatus":"auto_approve","factors":[],"justification":"young"}`)
		got, err := u.Process(context.Background(), "APP-1", RiskFactors{Age: 16, CoverageType: "tpl"})
		require.NoError(t, err)
		assert.Equal(t, DecisionDeclined, got.Decision)
		assert.Equal(t, "High risk: young", got.Notes)
		assert.Equal(t, []string{"Underage driver"}, got.Conditions)
	})
	t.Run("referred", func(t *testing.T) {
		u := newUnderwriter(&MockKnowledge{}, `{"approvalStatus":"refer_to_underwriter","factors":["sports car"],"justification":"needs review"}`)
		got, err := u.Process(context.Background(), "APP-1", RiskFactors{Age: 30, VehicleType: "sports", CoverageType: "tpl"})
		require.NoError(t, err)
		assert.Equal(t, DecisionReferred, got.Decision)
		assert.Equal(t, "Referral required: needs review", got.Notes)
		assert.Empty(t, got.QuoteID)
	})
}

func TestBasePremium(t *testing.T) {
	assert.Equal(t, 1000.0, BasePremium(RiskFactors{CoverageType: "tpl"}))
	assert.Equal(t, 3500.0, BasePremium(RiskFactors{CoverageType: "comprehensive", VehicleValue: 50000}))
}

func TestApplicationID(t *testing.T) {
	u := newUnderwriter(&MockKnowledge{}, `{}`)
	assert.Equal(t, "APP-1000", u.ApplicationID())
}
