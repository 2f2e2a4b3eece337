package insurance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// Underwriting decisions.
const (
	DecisionApproved = "approved"
	DecisionReferred = "referred"
	DecisionDeclined = "declined"
)

// UnderwritingDecision is the result of Underwriter.Process.
type UnderwritingDecision struct {
	Decision   string   `json:"decision"`
	QuoteID    string   `json:"quoteId,omitempty"`
	Premium    float64  `json:"premium,omitempty"`
	Conditions []string `json:"conditions"`
	Notes      string   `json:"notes"`
}

// Underwriter runs accelerated underwriting: compliance, risk, then pricing.
type Underwriter struct {
	monitor *ComplianceMonitor
	scorer  *RiskScorer
	logger  *slog.Logger
	now     func() time.Time
}

// NewUnderwriter returns an Underwriter. A nil now uses time.Now.
func NewUnderwriter(monitor *ComplianceMonitor, scorer *RiskScorer, now func() time.Time, logger *slog.Logger) *Underwriter {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Underwriter{monitor: monitor, scorer: scorer, logger: logger, now: now}
}

// ApplicationID returns a new application id.
func (u *Underwriter) ApplicationID() string {
	return fmt.Sprintf("APP-%d", u.now().UnixMilli())
}

// Process decides on an application. Only a failed compliance lookup is an error.
func (u *Underwriter) Process(ctx context.Context, applicationID string, f RiskFactors) (*UnderwritingDecision, error) {
	u.logger.Info("Processing application", "application_id", applicationID)

	check, err := u.monitor.Check(ctx,
		fmt.Sprintf("Issuing %s policy for %s value %g", f.CoverageType, f.VehicleType, f.VehicleValue),
		"underwriting")
	if err != nil {
		return nil, fmt.Errorf("process application %s: %w", applicationID, err)
	}
	if !check.Compliant {
		return &UnderwritingDecision{
			Decision:   DecisionDeclined,
			Conditions: []string{},
			Notes:      "Compliance violation: " + strings.Join(check.Violations, ", "),
		}, nil
	}

	risk := u.scorer.Calculate(ctx, f)
	switch risk.ApprovalStatus {
	case ApprovalDecline:
		return &UnderwritingDecision{
			Decision:   DecisionDeclined,
			Conditions: risk.Factors,
			Notes:      "High risk: " + risk.Justification,
		}, nil
	case ApprovalRefer:
		return &UnderwritingDecision{
			Decision:   DecisionReferred,
			Conditions: risk.Factors,
			Notes:      "Referral required: " + risk.Justification,
		}, nil
	}

	premium := BasePremium(f) * (1 + risk.RecommendedPremiumLoading/100)
	return &UnderwritingDecision{
		Decision:   DecisionApproved,
		QuoteID:    NewID("QT", u.now(), 5),
		Premium:    math.Round(premium),
		Conditions: []string{},
		Notes:      "Auto-approved via accelerated underwriting",
	}, nil
}

// BasePremium is 1000 SAR (2500 comprehensive) plus 2% of the vehicle value.
func BasePremium(f RiskFactors) float64 {
	base := 1000.0
	if f.CoverageType == "comprehensive" {
		base = 2500
	}
	return base + f.VehicleValue*0.02
}
