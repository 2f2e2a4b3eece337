package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ashureev/rommaana-agents/internal/agent"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/insurance"
	"github.com/ashureev/rommaana-agents/internal/tool"
)

const policyPrompt = `You are an AI Policy Agent for Rommaana Insurance in Saudi Arabia.

Your responsibilities:
1. Generate insurance policy quotations
2. Guide users through policy selection
3. Process policy issuance
4. Handle policy renewals
5. Explain coverage options

Guidelines:
- Provide accurate, competitive quotations
- Explain policy terms clearly
- Ensure all policies comply with IA standards
- Recommend appropriate coverage levels
- Process policies efficiently
- Support Arabic and English`

// NewPolicy returns the policy agent.
func NewPolicy(tb *Toolbox, deps agent.Deps) *agent.Agent {
	a := agent.New(agent.Config{
		Type:         agent.TypePolicy,
		Name:         "Policy Agent",
		Description:  "AI assistant for policy management",
		SystemPrompt: policyPrompt,
		Suggest:      fixed("Get insurance quote", "Review policy options", "Purchase policy"),
	}, deps)
	a.Register(tb.policyTools()...)
	return a
}

type quoteParams struct {
	DriverAge    int     `json:"driverAge"`
	VehicleType  string  `json:"vehicleType"`
	VehicleValue float64 `json:"vehicleValue"`
	CoverageType string  `json:"coverageType"`
}

type issueParams struct {
	QuoteID        string  `json:"quoteId"`
	CustomerName   string  `json:"customerName"`
	VehicleDetails string  `json:"vehicleDetails"`
	Premium        float64 `json:"premium"`
}

type riskParams struct {
	Age         int    `json:"age"`
	VehicleType string `json:"vehicleType"`
	History     string `json:"history"`
}

func (tb *Toolbox) policyTools() []tool.Tool {
	return []tool.Tool{
		{
			Name:        "get_quote",
			Description: "Generate an insurance quote based on vehicle/driver details using accelerated underwriting",
			Params: []tool.Param{
				{Name: "driverAge", Hint: "number"},
				{Name: "vehicleType", Hint: "string"},
				{Name: "vehicleValue", Hint: "number"},
				{Name: "coverageType", Hint: "string (comprehensive, tpl)"},
			},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				var in quoteParams
				if err := tool.Decode(p, &in); err != nil {
					return nil, err
				}
				return tb.underwriter.Process(ctx, tb.underwriter.ApplicationID(), insurance.RiskFactors{
					Age:          in.DriverAge,
					VehicleType:  in.VehicleType,
					VehicleValue: in.VehicleValue,
					CoverageType: in.CoverageType,
				})
			},
		},
		{
			Name:        "issue_policy",
			Description: "Issue a policy document after approval and payment",
			Params: []tool.Param{
				{Name: "quoteId", Hint: "string"},
				{Name: "customerName", Hint: "string"},
				{Name: "vehicleDetails", Hint: "string"},
				{Name: "premium", Hint: "number"},
			},
			Execute: func(_ context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				var in issueParams
				if err := tool.Decode(p, &in); err != nil {
					return nil, err
				}
				return tb.issuer.Issue(in.QuoteID, in.CustomerName, in.VehicleDetails, in.Premium), nil
			},
		},
		{
			Name:        "assess_risk",
			Description: "Calculate risk score for a driver/vehicle profile",
			Params: []tool.Param{
				{Name: "age", Hint: "number"},
				{Name: "vehicleType", Hint: "string"},
				{Name: "history", Hint: "string (optional)"},
			},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				var in riskParams
				if err := tool.Decode(p, &in); err != nil {
					return nil, err
				}
				return tb.scorer.Calculate(ctx, insurance.RiskFactors{
					Age:            in.Age,
					VehicleType:    in.VehicleType,
					DrivingHistory: in.History,
					CoverageType:   "comprehensive",
				}), nil
			},
		},
		{
			Name:        "check_policy_compliance",
			Description: "Verify policy meets IA standards",
			Params:      []tool.Param{{Name: "policyDetails", Hint: "object"}},
			Execute: func(ctx context.Context, p tool.Params, _ domain.AgentContext) (any, error) {
				details, _ := p["policyDetails"].(map[string]any)
				if details == nil {
					return nil, errors.New("policyDetails is required")
				}
				data, err := json.Marshal(details)
				if err != nil {
					return nil, fmt.Errorf("encode policy details: %w", err)
				}
				return tb.kb.CheckCompliance(ctx, string(data), tool.Params(details).String("type"))
			},
		},
	}
}
