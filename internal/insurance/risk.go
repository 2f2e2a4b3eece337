package insurance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Underwriting approval statuses.
const (
	ApprovalAuto    = "auto_approve"
	ApprovalRefer   = "refer_to_underwriter"
	ApprovalDecline = "decline"
)

const (
	highValueVehicle = 500000
	minDriverAge     = 18
)

// RiskFactors describe a policy application.
type RiskFactors struct {
	Age            int     `json:"age,omitempty"`
	VehicleType    string  `json:"vehicleType,omitempty"`
	VehicleValue   float64 `json:"vehicleValue,omitempty"`
	Location       string  `json:"location,omitempty"`
	DrivingHistory string  `json:"drivingHistory,omitempty"`
	ClaimsHistory  int     `json:"claimsHistory,omitempty"`
	CoverageType   string  `json:"coverageType"`
}

// RiskAssessment is the result of RiskScorer.Calculate.
type RiskAssessment struct {
	Score                     float64  `json:"score"`
	RiskLevel                 string   `json:"riskLevel"`
	Factors                   []string `json:"factors"`
	RecommendedPremiumLoading float64  `json:"recommendedPremiumLoading"`
	MaxCoverageLimit          float64  `json:"maxCoverageLimit"`
	ApprovalStatus            string   `json:"approvalStatus"`
	Justification             string   `json:"justification"`
}

// RiskScorer rates underwriting risk with the model and hard rules on top.
type RiskScorer struct {
	ex     Extractor
	logger *slog.Logger
}

// NewRiskScorer returns a RiskScorer.
func NewRiskScorer(ex Extractor, logger *slog.Logger) *RiskScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskScorer{ex: ex, logger: logger}
}

// Calculate never fails. On a model error it returns a referral for manual review.
func (r *RiskScorer) Calculate(ctx context.Context, f RiskFactors) RiskAssessment {
	out, err := r.assess(ctx, f)
	if err != nil {
		r.logger.Error("Risk scoring failed", "error", err)
		return RiskAssessment{
			Score:          50,
			RiskLevel:      RiskMedium,
			Factors:        []string{"Error in risk calculation, manual review required"},
			ApprovalStatus: ApprovalRefer,
			Justification:  "System error during assessment",
		}
	}

	if f.VehicleValue > highValueVehicle {
		out.ApprovalStatus = ApprovalRefer
		out.Factors = append(out.Factors, "High value vehicle > 500k")
	}
	if f.Age > 0 && f.Age < minDriverAge {
		out.ApprovalStatus = ApprovalDecline
		out.RiskLevel = "critical"
		out.Factors = append(out.Factors, "Underage driver")
	}
	out.Factors = nonNil(out.Factors)
	return out
}

func (r *RiskScorer) assess(ctx context.Context, f RiskFactors) (RiskAssessment, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return RiskAssessment{}, err
	}
	prompt := fmt.Sprintf(`Assess the underwriting risk for this insurance application based on Saudi market standards.

Applicant Data:
%s

Consider:
- Vehicle value and type (luxury/sports cars are higher risk)
- Driver age (<25 is higher risk)
- Claims history
- Coverage type

Respond with JSON:
{
  "score": number (0-100),
  "riskLevel": "low" | "medium" | "high" | "critical",
  "factors": ["list of key risk drivers"],
  "recommendedPremiumLoading": number (percentage 0-50),
  "approvalStatus": "auto_approve" | "refer_to_underwriter" | "decline",
  "justification": "short summary"
}`, data)

	var out RiskAssessment
	err = r.ex.ExtractJSON(ctx, prompt, &out)
	return out, err
}
