// Package insurance holds the domain services behind the agents' tools:
// claims analysis, fraud screening, underwriting, compliance checks,
// document processing and regulatory reporting.
package insurance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/rommaana-agents/internal/knowledge"
	"github.com/google/uuid"
)

// Extractor decodes structured JSON from a prompt.
type Extractor interface {
	ExtractJSON(ctx context.Context, prompt string, out any) error
}

// Knowledge is the regulation lookup used by the compliance services.
// *knowledge.Service implements it.
type Knowledge interface {
	Query(ctx context.Context, q knowledge.Query) (*knowledge.Answer, error)
	Regulations(ctx context.Context, topic string, maxResults int) ([]knowledge.RegulatoryContext, error)
	CheckCompliance(ctx context.Context, description, policyType string) (*knowledge.ComplianceResult, error)
}

// Risk levels shared by the fraud and compliance services.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// NewID returns "<prefix>-<unix ms>-<n random uppercase chars>".
func NewID(prefix string, now time.Time, n int) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(suffix) {
		n = len(suffix)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix[:n])
}

// TicketID returns the id of a human escalation ticket.
func TicketID(now time.Time) string {
	return fmt.Sprintf("TKT-%d", now.UnixMilli())
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
