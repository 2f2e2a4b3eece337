package insurance

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/rommaana-agents/internal/knowledge"
)

// Cyber security frameworks.
const (
	FrameworkSAMA = "SAMA Cyber Security Framework"
	FrameworkNCA  = "NCA Essential Cybersecurity Controls (ECC)"
)

// CyberAssessment is the result of CyberAssessor.Assess.
type CyberAssessment struct {
	Score           float64  `json:"score"`
	Status          string   `json:"status"`
	Gaps            []string `json:"gaps"`
	Recommendations []string `json:"recommendations"`
	SAMAReferences  []string `json:"samaReferences"`
	NCAReferences   []string `json:"ncaReferences"`
}

// IncidentAnalysis says whether an incident must be reported and to whom.
type IncidentAnalysis struct {
	Reportable bool   `json:"reportable"`
	Deadline   string `json:"deadline"`
	Authority  string `json:"authority"`
}

// CyberAssessor compares security controls with SAMA and NCA requirements.
type CyberAssessor struct {
	kb Knowledge
	ex Extractor
}

// NewCyberAssessor returns a CyberAssessor.
func NewCyberAssessor(kb Knowledge, ex Extractor) *CyberAssessor {
	return &CyberAssessor{kb: kb, ex: ex}
}

// FrameworkFor picks NCA when name mentions it and SAMA otherwise.
func FrameworkFor(name string) string {
	if strings.Contains(strings.ToUpper(name), "NCA") {
		return FrameworkNCA
	}
	return FrameworkSAMA
}

// Assess grades controls against framework using retrieved requirements.
func (c *CyberAssessor) Assess(ctx context.Context, controls, framework string) (*CyberAssessment, error) {
	regs, err := c.kb.Query(ctx, knowledge.Query{
		Question:   fmt.Sprintf("What are the key requirements for %s?", framework),
		MaxResults: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assess cyber security compliance: %w", err)
	}

	prompt := fmt.Sprintf(`Assess the following security controls against %s requirements based on the provided context.

Security Controls:
"%s"

Regulatory Context:
%s

Respond with JSON:
{
  "score": number (0-100),
  "status": "compliant" | "partial" | "non_compliant",
  "gaps": string[],
  "recommendations": string[],
  "samaReferences": string[],
  "ncaReferences": string[]
}`, framework, controls, regs.Answer)

	var out CyberAssessment
	if err := c.ex.ExtractJSON(ctx, prompt, &out); err != nil {
		return nil, fmt.Errorf("failed to assess cyber security compliance: %w", err)
	}
	out.Gaps = nonNil(out.Gaps)
	out.Recommendations = nonNil(out.Recommendations)
	out.SAMAReferences = nonNil(out.SAMAReferences)
	out.NCAReferences = nonNil(out.NCAReferences)
	return &out, nil
}

// AnalyzeIncident decides whether an incident is reportable to SAMA or NCA.
func (c *CyberAssessor) AnalyzeIncident(ctx context.Context, incident string) (*IncidentAnalysis, error) {
	prompt := fmt.Sprintf(`Analyze this cyber security incident and determine if it must be reported to SAMA or NCA.

Incident: "%s"

Respond with JSON:
{
  "reportable": boolean,
  "deadline": "string (e.g., 'within 24 hours')",
  "authority": "string (e.g., 'SAMA', 'NCA', or 'Both')"
}`, incident)

	var out IncidentAnalysis
	if err := c.ex.ExtractJSON(ctx, prompt, &out); err != nil {
		return nil, fmt.Errorf("analyze incident: %w", err)
	}
	return &out, nil
}
