package insurance

import (
	"context"
	"fmt"

	"github.com/ashureev/rommaana-agents/internal/knowledge"
	"github.com/ashureev/rommaana-agents/internal/llm"
)

const (
	contractAnalyzeLimit = 10000
	contractCompareLimit = 5000
)

// FlaggedClause is a clause the analyzer considers risky.
type FlaggedClause struct {
	Clause   string `json:"clause"`
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
}

// ContractAnalysis is the result of ContractAnalyzer.Analyze.
type ContractAnalysis struct {
	Summary          string          `json:"summary"`
	RiskScore        float64         `json:"riskScore"`
	FlaggedClauses   []FlaggedClause `json:"flaggedClauses"`
	MissingClauses   []string        `json:"missingClauses"`
	ComplianceStatus string          `json:"complianceStatus"`
}

// ContractAnalyzer reviews contract text against the regulations.
type ContractAnalyzer struct {
	kb       Knowledge
	ex       Extractor
	provider llm.Provider
}

// NewContractAnalyzer returns a ContractAnalyzer.
func NewContractAnalyzer(kb Knowledge, ex Extractor, p llm.Provider) *ContractAnalyzer {
	return &ContractAnalyzer{kb: kb, ex: ex, provider: p}
}

// Analyze reviews text of contractType (default "general").
func (c *ContractAnalyzer) Analyze(ctx context.Context, text, contractType string) (*ContractAnalysis, error) {
	if contractType == "" {
		contractType = "general"
	}
	regs, err := c.kb.Query(ctx, knowledge.Query{
		Question:   fmt.Sprintf("What are the mandatory clauses and prohibited terms for %s contracts?", contractType),
		MaxResults: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze contract: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze the following insurance contract/policy against Saudi Insurance Authority regulations.

Contract Text:
"%s" ... (truncated)

Regulatory Context:
%s

Identify:
1. Dangerous or ambiguous clauses
2. Missing mandatory clauses
3. Overall compliance status

Respond with JSON:
{
  "summary": "string",
  "riskScore": number (0-100),
  "flaggedClauses": [{"clause": "text", "issue": "reason", "severity": "low|medium|high"}],
  "missingClauses": ["list of missing mandatory items"],
  "complianceStatus": "compliant" | "non_compliant" | "review_required"
}`, truncate(text, contractAnalyzeLimit), regs.Answer)

	var out ContractAnalysis
	if err := c.ex.ExtractJSON(ctx, prompt, &out); err != nil {
		return nil, fmt.Errorf("failed to analyze contract: %w", err)
	}
	if out.FlaggedClauses == nil {
		out.FlaggedClauses = []FlaggedClause{}
	}
	out.MissingClauses = nonNil(out.MissingClauses)
	return &out, nil
}

// Compare summarizes the differences between two contract versions.
func (c *ContractAnalyzer) Compare(ctx context.Context, a, b string) (string, error) {
	prompt := fmt.Sprintf(`Compare these two contract versions and highlight key differences, risks, and improvements.

Version A:
%s

Version B:
%s

Provide a bulleted summary of changes.`, truncate(a, contractCompareLimit), truncate(b, contractCompareLimit))

	resp, err := llm.Complete(ctx, c.provider, prompt, llm.Options{})
	if err != nil {
		return "", fmt.Errorf("compare contracts: %w", err)
	}
	return resp.Content, nil
}
