package insurance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Fraud screening thresholds and recommendations.
const (
	highValueClaim     = 50000
	fraudHighScore     = 70
	fraudMediumScore   = 40
	RecommendSIU       = "Flag for manual investigation by SIU (Special Investigation Unit)."
	RecommendDocuments = "Request additional documentation/photos."
	RecommendStandard  = "Proceed with standard processing."
)

// FraudRisk is the result of FraudDetector.AssessRisk.
type FraudRisk struct {
	RiskLevel      string   `json:"riskLevel"`
	Score          float64  `json:"score"`
	Flags          []string `json:"flags"`
	Recommendation string   `json:"recommendation"`
}

// FraudAssessment is the result of FraudDetector.ExpertReview.
type FraudAssessment struct {
	RiskLevel       string   `json:"riskLevel"`
	Score           float64  `json:"score"`
	Reasons         []string `json:"reasons"`
	Recommendations []string `json:"recommendations"`
}

// FraudDetector scores claims with heuristics plus a model anomaly check.
type FraudDetector struct {
	ex     Extractor
	logger *slog.Logger
}

// NewFraudDetector returns a FraudDetector.
func NewFraudDetector(ex Extractor, logger *slog.Logger) *FraudDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &FraudDetector{ex: ex, logger: logger}
}

// AssessRisk never fails: when the anomaly check errors the heuristic score stands.
func (f *FraudDetector) AssessRisk(ctx context.Context, claim Claim, analysis *ClaimAnalysis) FraudRisk {
	var (
		flags []string
		score float64
	)
	if strings.TrimSpace(claim.DateOfIncident) == "" {
		flags = append(flags, "Missing incident date")
		score += 10
	}
	if claim.EstimatedValue > highValueClaim {
		flags = append(flags, "High value claim (>50k SAR)")
		score += 20
	}

	var ai struct {
		AnomalyScore float64  `json:"anomalyScore"`
		Reasons      []string `json:"reasons"`
	}
	if err := f.ex.ExtractJSON(ctx, anomalyPrompt(claim, analysis), &ai); err != nil {
		f.logger.Warn("Fraud anomaly analysis failed", "error", err)
	} else {
		score += ai.AnomalyScore
		flags = append(flags, ai.Reasons...)
	}

	score = min(score, 100)
	risk := FraudRisk{RiskLevel: RiskLow, Score: score, Flags: nonNil(flags), Recommendation: RecommendStandard}
	switch {
	case score >= fraudHighScore:
		risk.RiskLevel = RiskHigh
		risk.Recommendation = RecommendSIU
	case score >= fraudMediumScore:
		risk.RiskLevel = RiskMedium
		risk.Recommendation = RecommendDocuments
	}
	return risk
}

func anomalyPrompt(claim Claim, analysis *ClaimAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Analyze this insurance claim for potential fraud or anomalies.

Claim Type: %s
Description: "%s"
Value: %s
Incident Date: %s
`, claim.ClaimType, claim.Description, valueOr(claim.EstimatedValue, "Unknown"), claim.DateOfIncident)
	if analysis != nil {
		fmt.Fprintf(&b, "Category: %s\nUrgency: %s\nSentiment: %s\n", analysis.Category, analysis.Urgency, analysis.Sentiment.Label)
	}
	b.WriteString(`
Look for:
- Inconsistencies in the story
- Signs of staged accidents
- Exaggerated damages
- Suspicious timing (e.g., right after policy inception)

Respond with JSON: { "anomalyScore": number (0-100), "reasons": string[] }`)
	return b.String()
}

// ExpertReview asks the model for a full fraud assessment. A failed call
// yields a medium-risk assessment that requires manual review.
func (f *FraudDetector) ExpertReview(ctx context.Context, claim Claim) FraudAssessment {
	location := claim.Location
	if location == "" {
		location = "Not specified"
	}
	prompt := fmt.Sprintf(`You are a fraud detection expert for insurance claims in Saudi Arabia. Analyze the following claim for fraud risk.

Claim Details:
Type: %s
Description: %s
Date of Incident: %s
Location: %s
Estimated Value: %s

Analyze for red flags such as:
- Inconsistencies in the description
- Unusual timing or patterns
- Exaggerated damages
- Suspicious parties or locations
- Lack of supporting details

Provide your assessment in the following JSON format:
{
  "riskLevel": "low" | "medium" | "high",
  "score": 0-100,
  "reasons": ["list", "of", "reasons"],
  "recommendations": ["list", "of", "recommendations"]
}`, claim.ClaimType, claim.Description, claim.DateOfIncident, location, valueOr(claim.EstimatedValue, "Not specified"))

	var out FraudAssessment
	if err := f.ex.ExtractJSON(ctx, prompt, &out); err != nil {
		f.logger.Error("Fraud assessment failed", "error", err)
		return FraudAssessment{
			RiskLevel:       RiskMedium,
			Score:           50,
			Reasons:         []string{"Unable to complete automated assessment"},
			Recommendations: []string{"Manual review required"},
		}
	}
	out.Reasons = nonNil(out.Reasons)
	out.Recommendations = nonNil(out.Recommendations)
	return out
}

func valueOr(v float64, fallback string) string {
	if v == 0 {
		return fallback
	}
	return fmt.Sprintf("%g", v)
}
