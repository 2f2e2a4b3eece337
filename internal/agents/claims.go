package agents

import (
	"context"
	"strings"

	"github.com/ashureev/rommaana-agents/internal/agent"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/insurance"
	"github.com/ashureev/rommaana-agents/internal/tool"
)

// ClaimsNotebook is the claims, security and compliance notebook.
const ClaimsNotebook = "2d0e5ace-1f01-4d8f-8fe1-dceff0948206"

const claimsPrompt = `You are an AI Claims Agent for Rommaana Insurance, specialized in processing insurance claims in Saudi Arabia.

Your responsibilities:
1. Guide users through the claim submission process
2. Collect all necessary information and documents
3. Validate claims against Insurance Authority (IA) regulations
4. Assess fraud risk
5. Provide claim status updates
6. Ensure compliance with IA Claims Settlement regulations

Guidelines:
- Be empathetic and professional with claimants
- Ask clarifying questions when information is missing
- Explain the claims process clearly
- Validate all information against IA requirements
- Flag suspicious patterns to human adjusters
- Provide realistic timelines
- Always maintain data privacy and security

You must comply with:
- IA Claims Settlement Companies' Services regulation
- Motor Insurance Claims Settlement Instructions (for motor claims)
- Anti-Money Laundering Law
- Data protection requirements`

// NewClaims returns the claims agent.
func NewClaims(tb *Toolbox, deps agent.Deps) *agent.Agent {
	a := agent.New(agent.Config{
		Type:         agent.TypeClaims,
		Name:         "Claims Agent",
		Description:  "AI assistant for insurance claims processing",
		SystemPrompt: claimsPrompt,
		NotebookID:   ClaimsNotebook,
		Suggest:      claimsSuggestions,
	}, deps)
	a.Register(tb.claimsTools()...)
	return a
}

type claimParams struct {
	ClaimData insurance.Claim `json:"claimData"`
}

func (tb *Toolbox) claimsTools() []tool.Tool {
	return []tool.Tool{
		{
			Name:        "process_document",
			Description: "Extract text and structured data from a document image (ID, invoice, report)",
			Params: []tool.Param{
				{Name: "imageUrl", Hint: "string"},
				{Name: "documentType", Hint: "string (optional)"},
			},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				return tb.documents.Process(ctx, p.String("imageUrl"), p.String("documentType"))
			},
		},
		{
			Name:        "analyze_claim",
			Description: "Analyze claim description for entities, sentiment, and urgency",
			Params:      []tool.Param{{Name: "description", Hint: "string"}},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				return tb.nlp.AnalyzeClaim(ctx, p.String("description"))
			},
		},
		{
			Name:        "submit_claim",
			Description: "Submit a new claim with collected information",
			Params: []tool.Param{
				{Name: "claimType", Hint: "string (motor, health, property, etc.)"},
				{Name: "description", Hint: "string"},
				{Name: "dateOfIncident", Hint: "ISO date string"},
				{Name: "location", Hint: "string (optional)"},
				{Name: "estimatedValue", Hint: "number (optional)"},
				{Name: "documents", Hint: "string[] (optional URLs)"},
			},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				var claim insurance.Claim
				if err := tool.Decode(p, &claim); err != nil {
					return nil, err
				}
				return tb.claims.Submit(ctx, claim)
			},
		},
		{
			Name:        "assess_fraud",
			Description: "Assess fraud risk for a claim",
			Params:      []tool.Param{{Name: "claimData", Hint: "ClaimData object"}},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				var in claimParams
				if err := tool.Decode(p, &in); err != nil {
					return nil, err
				}
				return tb.fraud.ExpertReview(ctx, in.ClaimData), nil
			},
		},
		{
			Name:        "check_compliance",
			Description: "Check if claim meets IA regulatory requirements",
			Params:      []tool.Param{{Name: "claimData", Hint: "ClaimData object"}},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				var in claimParams
				if err := tool.Decode(p, &in); err != nil {
					return nil, err
				}
				return tb.claims.CheckCompliance(ctx, in.ClaimData), nil
			},
		},
		{
			Name:        "get_claim_status",
			Description: "Get the status of an existing claim",
			Params:      []tool.Param{{Name: "claimId", Hint: "string"}},
			Execute: func(_ context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				return tb.claims.Status(p.String("claimId")), nil
			},
		},
	}
}

// claimsSuggestions keys off the latest message, which is the assistant
// reply on the generation path.
func claimsSuggestions(history []domain.Message, _ domain.AgentContext) []string {
	var last string
	if len(history) > 0 {
		last = strings.ToLower(history[len(history)-1].Content)
	}
	switch {
	case strings.Contains(last, "submit") || strings.Contains(last, "new claim"):
		return []string{"Provide claim details", "Upload supporting documents", "Check claim requirements"}
	case strings.Contains(last, "status"):
		return []string{"Get claim status update", "Upload additional documents", "Contact adjuster"}
	default:
		return []string{"Submit a new claim", "Check existing claim status", "Ask about claims process"}
	}
}
