package insurance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Claim statuses.
const (
	StatusAutoApproved         = "auto_approved"
	StatusPendingInvestigation = "pending_investigation"
	StatusPendingReview        = "pending_review"
	StatusRejected             = "rejected"
)

const autoApproveLimit = 5000

// ErrMissingClaimFields is returned by Submit for an incomplete claim.
var ErrMissingClaimFields = errors.New("missing required fields: claimType, description, dateOfIncident")

// Claim is the data collected from a claimant.
type Claim struct {
	ClaimID        string   `json:"claimId,omitempty"`
	ClaimType      string   `json:"claimType"`
	Description    string   `json:"description"`
	DateOfIncident string   `json:"dateOfIncident"`
	Location       string   `json:"location,omitempty"`
	Parties        []string `json:"parties,omitempty"`
	EstimatedValue float64  `json:"estimatedValue,omitempty"`
	Documents      []string `json:"documents,omitempty"`
}

// ClaimCompliance is the compliance verdict on a claim.
type ClaimCompliance struct {
	Compliant       bool     `json:"compliant"`
	Violations      []string `json:"violations"`
	Recommendations []string `json:"recommendations"`
}

// SubmissionAnalysis is attached to an accepted submission.
type SubmissionAnalysis struct {
	NLP   *ClaimAnalysis `json:"nlp"`
	Fraud FraudRisk      `json:"fraud"`
}

// Submission is the result of ClaimsDesk.Submit.
type Submission struct {
	ClaimID  string              `json:"claimId"`
	Status   string              `json:"status"`
	Message  string              `json:"message"`
	Analysis *SubmissionAnalysis `json:"analysis,omitempty"`
}

// ClaimStatus is the result of a status lookup.
type ClaimStatus struct {
	ClaimID string   `json:"claimId"`
	Status  string   `json:"status"`
	Updates []string `json:"updates"`
}

// ClaimLedger keeps the claims submitted in this process.
type ClaimLedger struct {
	mu     sync.RWMutex
	claims map[string]ClaimStatus
}

// NewClaimLedger returns an empty ledger.
func NewClaimLedger() *ClaimLedger {
	return &ClaimLedger{claims: make(map[string]ClaimStatus)}
}

// Record stores the status of a claim.
func (l *ClaimLedger) Record(s ClaimStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.claims[s.ClaimID] = s
}

// Lookup returns the recorded status of claimID.
func (l *ClaimLedger) Lookup(claimID string) (ClaimStatus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.claims[claimID]
	if ok {
		s.Updates = append([]string(nil), s.Updates...)
	}
	return s, ok
}

// Len returns the number of recorded claims.
func (l *ClaimLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.claims)
}

// ClaimsDesk handles claim intake: analysis, compliance, fraud screening
// and status tracking.
type ClaimsDesk struct {
	nlp    *ClaimsNLP
	fraud  *FraudDetector
	kb     Knowledge
	ledger *ClaimLedger
	logger *slog.Logger
	now    func() time.Time
}

// NewClaimsDesk returns a ClaimsDesk. now stamps claim ids and defaults to
// time.Now.
func NewClaimsDesk(nlp *ClaimsNLP, fraud *FraudDetector, kb Knowledge, ledger *ClaimLedger, now func() time.Time, logger *slog.Logger) *ClaimsDesk {
	if logger == nil {
		logger = slog.Default()
	}
	if ledger == nil {
		ledger = NewClaimLedger()
	}
	if now == nil {
		now = time.Now
	}
	return &ClaimsDesk{nlp: nlp, fraud: fraud, kb: kb, ledger: ledger, logger: logger, now: now}
}

// CheckCompliance never fails: a failed lookup yields a non-compliant
// verdict that asks for manual review.
func (d *ClaimsDesk) CheckCompliance(ctx context.Context, c Claim) ClaimCompliance {
	res, err := d.kb.CheckCompliance(ctx, fmt.Sprintf("%s insurance claim: %s", c.ClaimType, c.Description), c.ClaimType)
	if err != nil {
		d.logger.Error("Claim compliance check failed", "error", err)
		return ClaimCompliance{
			Compliant:       false,
			Violations:      []string{"Unable to verify compliance automatically"},
			Recommendations: []string{"Manual compliance review required"},
		}
	}
	return ClaimCompliance{
		Compliant:       res.Compliant,
		Violations:      nonNil(res.Violations),
		Recommendations: nonNil(res.Recommendations),
	}
}

// Submit validates and files a claim. A non-compliant claim is rejected
// without an id and is not recorded.
func (d *ClaimsDesk) Submit(ctx context.Context, c Claim) (*Submission, error) {
	if strings.TrimSpace(c.ClaimType) == "" || strings.TrimSpace(c.Description) == "" || strings.TrimSpace(c.DateOfIncident) == "" {
		return nil, fmt.Errorf("failed to submit claim: %w", ErrMissingClaimFields)
	}

	analysis, err := d.nlp.AnalyzeClaim(ctx, c.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to submit claim: %w", err)
	}

	compliance := d.CheckCompliance(ctx, c)
	if !compliance.Compliant {
		return &Submission{
			Status:  StatusRejected,
			Message: "Claim does not meet IA requirements: " + strings.Join(compliance.Violations, ", "),
		}, nil
	}

	risk := d.fraud.AssessRisk(ctx, c, analysis)
	status := StatusPendingReview
	switch {
	case risk.RiskLevel == RiskLow && c.EstimatedValue > 0 && c.EstimatedValue < autoApproveLimit:
		status = StatusAutoApproved
	case risk.RiskLevel == RiskHigh:
		status = StatusPendingInvestigation
	}

	id := NewID("CLM", d.now(), 6)
	d.ledger.Record(ClaimStatus{
		ClaimID: id,
		Status:  status,
		Updates: []string{"Claim received and validated", risk.Recommendation},
	})
	d.logger.Info("Claim submitted", "claim_id", id, "status", status, "fraud_score", risk.Score)

	return &Submission{
		ClaimID:  id,
		Status:   status,
		Message:  fmt.Sprintf("Claim submitted successfully. Status: %s. %s", status, risk.Recommendation),
		Analysis: &SubmissionAnalysis{NLP: analysis, Fraud: risk},
	}, nil
}

// Status returns the recorded status of claimID, or the standard
// pending-review timeline when the claim is unknown.
func (d *ClaimsDesk) Status(claimID string) ClaimStatus {
	if s, ok := d.ledger.Lookup(claimID); ok {
		return s
	}
	return ClaimStatus{
		ClaimID: claimID,
		Status:  StatusPendingReview,
		Updates: []string{
			"Claim received and validated",
			"Documents under review",
			"Expected resolution: 5-7 business days",
		},
	}
}
