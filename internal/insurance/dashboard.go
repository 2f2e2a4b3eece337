package insurance

import (
	"context"
	"fmt"

	"github.com/ashureev/rommaana-agents/internal/llm"
)

// DashboardMetric is one KPI tile.
type DashboardMetric struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Value  any     `json:"value"`
	Change float64 `json:"change"`
	Trend  string  `json:"trend"`
	Status string  `json:"status"`
}

// Dashboard serves the performance KPIs.
type Dashboard struct {
	provider llm.Provider
}

// NewDashboard returns a Dashboard.
func NewDashboard(p llm.Provider) *Dashboard {
	return &Dashboard{provider: p}
}

// Metrics returns the headline KPIs.
func (d *Dashboard) Metrics() []DashboardMetric {
	return []DashboardMetric{
		{ID: "claims_vol", Label: "Total Claims", Value: 1250, Change: 12, Trend: "up", Status: "good"},
		{ID: "proc_time", Label: "Avg Process Time", Value: "3.2d", Change: -15, Trend: "down", Status: "good"},
		{ID: "fraud_rate", Label: "Fraud Rate", Value: "1.2%", Change: 0.2, Trend: "up", Status: "warning"},
		{ID: "compliance", Label: "Compliance Score", Value: "98.5%", Change: 0.5, Trend: "up", Status: "good"},
	}
}

// Insights returns predictive observations for the dashboard.
func (d *Dashboard) Insights() []string {
	return []string{
		"Claims volume expected to increase by 15% next month due to seasonality.",
		"Fraud attempts showing new pattern in vehicle repair invoices.",
		"Compliance score improved due to new automated checks.",
	}
}

// MarketComparison benchmarks current performance against the market.
func (d *Dashboard) MarketComparison(ctx context.Context) (string, error) {
	resp, err := llm.Complete(ctx, d.provider, `Compare current performance (3.2 days processing, 98.5% compliance) against Saudi insurance market benchmarks.
Provide a brief strategic summary.`, llm.Options{})
	if err != nil {
		return "", fmt.Errorf("market comparison: %w", err)
	}
	return resp.Content, nil
}
