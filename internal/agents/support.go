package agents

import (
	"context"

	"github.com/ashureev/rommaana-agents/internal/agent"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/insurance"
	"github.com/ashureev/rommaana-agents/internal/knowledge"
	"github.com/ashureev/rommaana-agents/internal/tool"
)

const supportPrompt = `You are an AI Support Agent for Rommaana Insurance in Saudi Arabia.

Your responsibilities:
1. Answer general insurance questions
2. Explain policy terms and coverages
3. Help with account and policy inquiries
4. Guide users to the right resources
5. Escalate to human agents when needed

Guidelines:
- Be friendly, helpful, and patient
- Provide accurate information based on IA regulations
- Always cite regulatory sources when relevant
- Offer to escalate complex issues
- Support both Arabic and English
- Maintain professionalism`

// EscalationMessage is returned to the customer by escalate_to_human.
const EscalationMessage = "Your inquiry has been escalated. A human agent will contact you within 24 hours."

// Escalation is the result of escalate_to_human.
type Escalation struct {
	Escalated bool   `json:"escalated"`
	TicketID  string `json:"ticket_id"`
	Message   string `json:"message"`
}

// NewSupport returns the support agent.
func NewSupport(tb *Toolbox, deps agent.Deps) *agent.Agent {
	a := agent.New(agent.Config{
		Type:         agent.TypeSupport,
		Name:         "Support Agent",
		Description:  "AI assistant for general customer support",
		SystemPrompt: supportPrompt,
		Suggest:      fixed("Ask about insurance coverage", "Check policy details", "Contact human agent"),
	}, deps)
	a.Register(tb.supportTools()...)
	return a
}

func (tb *Toolbox) supportTools() []tool.Tool {
	return []tool.Tool{
		{
			Name:        "search_regulations",
			Description: "Search IA regulations for specific information",
			Params:      []tool.Param{{Name: "topic", Hint: "string"}},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				regs, err := tb.kb.Regulations(ctx, p.String("topic"), 5)
				if err != nil {
					return nil, err
				}
				return struct {
					Regulations []knowledge.RegulatoryContext `json:"regulations"`
				}{regs}, nil
			},
		},
		{
			Name:        "escalate_to_human",
			Description: "Escalate inquiry to human agent",
			Params:      []tool.Param{{Name: "reason", Hint: "string"}},
			Execute: func(_ context.Context, _ tool.Params, _ domain.AgentContext) (any, error) {
				return Escalation{
					Escalated: true,
					TicketID:  insurance.TicketID(tb.now()),
					Message:   EscalationMessage,
				}, nil
			},
		},
	}
}
