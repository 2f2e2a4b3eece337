package agents

import (
	"context"

	"github.com/ashureev/rommaana-agents/internal/agent"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/insurance"
	"github.com/ashureev/rommaana-agents/internal/tool"
)

// ComplianceNotebook holds the regulation documents.
const ComplianceNotebook = "4a8c797a-fd59-4fe8-9d3a-b969f8d5bfa5"

const compliancePrompt = `You are an AI Compliance Agent specializing in Saudi Arabian insurance regulations (IA).

Your responsibilities:
1. Validate policies and processes against IA regulations
2. Provide compliance guidance and recommendations
3. Alert on potential regulatory violations
4. Answer questions about IA requirements
5. Monitor regulatory changes and trends

Guidelines:
- Always base answers on official IA regulations
- Cite specific regulations and sources
- Provide clear, actionable compliance guidance
- Flag potential violations immediately
- Stay updated on regulatory changes
- Be precise and authoritative`

const (
	defaultPeriodStart = "2025-01-01"
	defaultPeriodEnd   = "2025-03-31"
	reportPreview      = 200
)

// ReportSummary is the result of generate_ia_report.
type ReportSummary struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Preview string `json:"preview"`
}

// NewCompliance returns the compliance agent.
func NewCompliance(tb *Toolbox, deps agent.Deps) *agent.Agent {
	a := agent.New(agent.Config{
		Type:         agent.TypeCompliance,
		Name:         "Compliance Agent",
		Description:  "AI assistant for regulatory compliance",
		SystemPrompt: compliancePrompt,
		NotebookID:   ComplianceNotebook,
		Suggest: fixed(
			"Check policy compliance",
			"SAMA Cyber Security check",
			"Analyze regulatory trends",
			"Get regulatory guidance",
		),
	}, deps)
	a.Register(tb.complianceTools()...)
	return a
}

func (tb *Toolbox) complianceTools() []tool.Tool {
	return []tool.Tool{
		{
			Name:        "check_compliance",
			Description: "Check if a policy or action complies with IA regulations",
			Params: []tool.Param{
				{Name: "description", Hint: "string"},
				{Name: "policyType", Hint: "string (optional)"},
			},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				return tb.monitor.Check(ctx, p.String("description"), p.String("policyType"))
			},
		},
		{
			Name:        "generate_ia_report",
			Description: "Generate a regulatory report for the Insurance Authority",
			Params: []tool.Param{
				{Name: "reportType", Hint: "string (quarterly, annual)"},
				{Name: "period", Hint: "string (optional)"},
			},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				start := p.String("period")
				if start == "" {
					start = defaultPeriodStart
				}
				report, err := tb.reports.Generate(ctx, insurance.ReportConfig{
					ReportType:  p.String("reportType"),
					PeriodStart: start,
					PeriodEnd:   defaultPeriodEnd,
					Department:  "Compliance",
				})
				if err != nil {
					return nil, err
				}
				return ReportSummary{
					Status:  "generated",
					Summary: "Report generated successfully.",
					Preview: previewText(report.Content, reportPreview) + "...",
				}, nil
			},
		},
		{
			Name:        "get_metrics",
			Description: "Get key performance indicators and dashboard metrics",
			Execute: func(context.Context, tool.Params, domain.AgentContext) (any, error) {
				return tb.dashboard.Metrics(), nil
			},
		},
		{
			Name:        "get_requirements",
			Description: "Get regulatory requirements for a specific topic",
			Params:      []tool.Param{{Name: "topic", Hint: "string"}},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				return tb.kb.Regulations(ctx, p.String("topic"), 10)
			},
		},
		{
			Name:        "analyze_contract",
			Description: "Analyze a legal contract or policy against IA regulations",
			Params: []tool.Param{
				{Name: "contractText", Hint: "string"},
				{Name: "contractType", Hint: "string (optional)"},
			},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				return tb.contracts.Analyze(ctx, p.String("contractText"), p.String("contractType"))
			},
		},
		{
			Name:        "check_cyber_security",
			Description: "Assess compliance with SAMA/NCA cyber security regulations",
			Params: []tool.Param{
				{Name: "securityControls", Hint: "string"},
				{Name: "framework", Hint: "string (SAMA or NCA)"},
			},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				return tb.cyber.Assess(ctx, p.String("securityControls"), insurance.FrameworkFor(p.String("framework")))
			},
		},
		{
			Name:        "analyze_trend",
			Description: "Analyze historical regulatory trends for a topic",
			Params:      []tool.Param{{Name: "topic", Hint: "string"}},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				return tb.trends.Analyze(ctx, p.String("topic"))
			},
		},
	}
}

func previewText(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
