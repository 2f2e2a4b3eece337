package insurance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const maxAlerts = 100

// ComplianceCheck is the result of ComplianceMonitor.Check.
type ComplianceCheck struct {
	Compliant           bool     `json:"compliant"`
	Violations          []string `json:"violations"`
	Recommendations     []string `json:"recommendations"`
	RelevantRegulations []string `json:"relevantRegulations"`
	RiskLevel           string   `json:"riskLevel"`
	Timestamp           string   `json:"timestamp"`
}

// BatchItem is one input of ComplianceMonitor.BatchCheck.
type BatchItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// BatchResult pairs a BatchItem id with its check.
type BatchResult struct {
	ID string `json:"id"`
	ComplianceCheck
}

// Alert is raised for every non-compliant check.
type Alert struct {
	ID        string `json:"id"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// ComplianceMonitor validates operations against the regulations and keeps
// the most recent alerts, newest first.
type ComplianceMonitor struct {
	kb     Knowledge
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	alerts []Alert
}

// NewComplianceMonitor returns a ComplianceMonitor.
func NewComplianceMonitor(kb Knowledge, logger *slog.Logger) *ComplianceMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplianceMonitor{kb: kb, logger: logger, now: time.Now}
}

// Check validates description in contextType (default "general").
func (m *ComplianceMonitor) Check(ctx context.Context, description, contextType string) (*ComplianceCheck, error) {
	if contextType == "" {
		contextType = "general"
	}
	res, err := m.kb.CheckCompliance(ctx, description, contextType)
	if err != nil {
		return nil, fmt.Errorf("failed to check compliance: %w", err)
	}

	risk := RiskLow
	if len(res.Violations) > 0 {
		risk = RiskMedium
		for _, v := range res.Violations {
			lv := strings.ToLower(v)
			if strings.Contains(lv, "prohibited") || strings.Contains(lv, "must") {
				risk = RiskHigh
				break
			}
		}
	}

	regs := make([]string, 0, len(res.RelevantRegulations))
	for _, r := range res.RelevantRegulations {
		regs = append(regs, fmt.Sprintf("%s: %s...", r.Source, truncate(r.Regulation, 100)))
	}

	out := &ComplianceCheck{
		Compliant:           res.Compliant,
		Violations:          nonNil(res.Violations),
		Recommendations:     nonNil(res.Recommendations),
		RelevantRegulations: regs,
		RiskLevel:           risk,
		Timestamp:           m.now().UTC().Format(time.RFC3339Nano),
	}

	if !out.Compliant {
		severity := SeverityWarning
		if risk == RiskHigh {
			severity = SeverityCritical
		}
		first := ""
		if len(out.Violations) > 0 {
			first = out.Violations[0]
		}
		m.raise(severity, fmt.Sprintf("Compliance violation detected in %s: %s", contextType, first), "ComplianceMonitor")
	}
	return out, nil
}

// BatchCheck checks items sequentially and stops at the first failure.
func (m *ComplianceMonitor) BatchCheck(ctx context.Context, items []BatchItem) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		res, err := m.Check(ctx, item.Description, item.Type)
		if err != nil {
			return results, fmt.Errorf("batch item %s: %w", item.ID, err)
		}
		results = append(results, BatchResult{ID: item.ID, ComplianceCheck: *res})
	}
	return results, nil
}

// ValidatePolicyDocument checks a full policy text as one block.
func (m *ComplianceMonitor) ValidatePolicyDocument(ctx context.Context, policyText string) (*ComplianceCheck, error) {
	return m.Check(ctx, policyText, "policy_document")
}

// Alerts returns up to limit recent alerts (default 10).
func (m *ComplianceMonitor) Alerts(limit int) []Alert {
	if limit <= 0 {
		limit = 10
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = min(limit, len(m.alerts))
	out := make([]Alert, limit)
	copy(out, m.alerts[:limit])
	return out
}

func (m *ComplianceMonitor) raise(severity, message, source string) {
	now := m.now()
	alert := Alert{
		ID:        NewID("ALT", now, 5),
		Severity:  severity,
		Message:   message,
		Source:    source,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}

	m.mu.Lock()
	m.alerts = append([]Alert{alert}, m.alerts...)
	if len(m.alerts) > maxAlerts {
		m.alerts = m.alerts[:maxAlerts]
	}
	m.mu.Unlock()

	if severity == SeverityCritical {
		m.logger.Error("Critical compliance alert", "alert_id", alert.ID, "message", message)
	} else {
		m.logger.Warn("Compliance alert", "alert_id", alert.ID, "message", message)
	}
}
