// Package agents defines the four specialized insurance agents: their
// prompts, tools and follow-up suggestions.
package agents

import (
	"log/slog"
	"time"

	"github.com/ashureev/rommaana-agents/internal/agent"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/insurance"
	"github.com/ashureev/rommaana-agents/internal/llm"
)

// Services are the collaborators the agents' tools run on.
type Services struct {
	Knowledge insurance.Knowledge
	Extractor insurance.Extractor
	Provider  llm.Provider
	// Vision reads document images. process_document fails without it.
	Vision llm.Vision
	Ledger *insurance.ClaimLedger
	Logger *slog.Logger
	Now    func() time.Time
}

// Toolbox holds the domain services shared by the agents' tools.
type Toolbox struct {
	kb          insurance.Knowledge
	nlp         *insurance.ClaimsNLP
	fraud       *insurance.FraudDetector
	claims      *insurance.ClaimsDesk
	documents   *insurance.DocumentProcessor
	monitor     *insurance.ComplianceMonitor
	scorer      *insurance.RiskScorer
	underwriter *insurance.Underwriter
	issuer      *insurance.PolicyIssuer
	cyber       *insurance.CyberAssessor
	contracts   *insurance.ContractAnalyzer
	trends      *insurance.TrendAnalyzer
	reports     *insurance.ReportGenerator
	dashboard   *insurance.Dashboard
	now         func() time.Time
}

// NewToolbox builds the domain services from s.
func NewToolbox(s Services) *Toolbox {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Extractor == nil && s.Provider != nil {
		s.Extractor = llm.NewExtractor(s.Provider)
	}

	nlp := insurance.NewClaimsNLP(s.Extractor)
	fraud := insurance.NewFraudDetector(s.Extractor, s.Logger)
	monitor := insurance.NewComplianceMonitor(s.Knowledge, s.Logger)
	scorer := insurance.NewRiskScorer(s.Extractor, s.Logger)
	return &Toolbox{
		kb:          s.Knowledge,
		nlp:         nlp,
		fraud:       fraud,
		claims:      insurance.NewClaimsDesk(nlp, fraud, s.Knowledge, s.Ledger, s.Now, s.Logger),
		documents:   insurance.NewDocumentProcessor(s.Vision, s.Extractor),
		monitor:     monitor,
		scorer:      scorer,
		underwriter: insurance.NewUnderwriter(monitor, scorer, s.Now, s.Logger),
		issuer:      insurance.NewPolicyIssuer(s.Now),
		cyber:       insurance.NewCyberAssessor(s.Knowledge, s.Extractor),
		contracts:   insurance.NewContractAnalyzer(s.Knowledge, s.Extractor, s.Provider),
		trends:      insurance.NewTrendAnalyzer(s.Extractor, s.Provider),
		reports:     insurance.NewReportGenerator(s.Provider, s.Logger),
		dashboard:   insurance.NewDashboard(s.Provider),
		now:         s.Now,
	}
}

// Monitor returns the compliance monitor, whose alerts outlive a turn.
func (tb *Toolbox) Monitor() *insurance.ComplianceMonitor { return tb.monitor }

// DepsFunc returns the orchestrator dependencies of one agent. Each agent
// must get its own conversation store.
type DepsFunc func(t agent.Type) agent.Deps

// NewDirectory builds the four agents in discovery order.
func NewDirectory(tb *Toolbox, deps DepsFunc) *agent.Directory {
	return agent.NewDirectory(
		NewClaims(tb, deps(agent.TypeClaims)),
		NewPolicy(tb, deps(agent.TypePolicy)),
		NewSupport(tb, deps(agent.TypeSupport)),
		NewCompliance(tb, deps(agent.TypeCompliance)),
	)
}

func fixed(suggestions ...string) agent.SuggestFunc {
	return func([]domain.Message, domain.AgentContext) []string {
		return append([]string(nil), suggestions...)
	}
}
