package insurance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashureev/rommaana-agents/internal/llm"
)

// RegulatoryTrend is the result of TrendAnalyzer.Analyze.
type RegulatoryTrend struct {
	Topic       string `json:"topic"`
	Trend       string `json:"trend"`
	Description string `json:"description"`
	Prediction  string `json:"prediction"`
	ImpactLevel string `json:"impactLevel"`
}

// YearTopics lists the regulatory themes of one year.
type YearTopics struct {
	Year   int      `json:"year"`
	Topics []string `json:"topics"`
}

// RegulatoryTimeline is the timeline given to the model as context.
var RegulatoryTimeline = []YearTopics{
	{Year: 2018, Topics: []string{"digitization", "fraud"}},
	{Year: 2019, Topics: []string{"cyber security", "digitization"}},
	{Year: 2020, Topics: []string{"COVID-19", "remote work", "cyber security"}},
	{Year: 2021, Topics: []string{"insurtech", "open banking", "consumer protection"}},
	{Year: 2022, Topics: []string{"sustainability", "AI", "consumer protection"}},
	{Year: 2023, Topics: []string{"generative AI", "resilience", "sustainability"}},
}

// EmergingRisks are the risks surfaced by TrendAnalyzer.EmergingRisks.
var EmergingRisks = []string{
	"AI Ethics & Bias",
	"Climate Change Impact",
	"Cyber warfare",
	"Digital Asset Insurance",
}

// TrendAnalyzer reads regulatory trends in the Saudi insurance market.
type TrendAnalyzer struct {
	ex       Extractor
	provider llm.Provider
}

// NewTrendAnalyzer returns a TrendAnalyzer.
func NewTrendAnalyzer(ex Extractor, p llm.Provider) *TrendAnalyzer {
	return &TrendAnalyzer{ex: ex, provider: p}
}

// Analyze returns the trend of topic.
func (t *TrendAnalyzer) Analyze(ctx context.Context, topic string) (*RegulatoryTrend, error) {
	timeline, err := json.Marshal(RegulatoryTimeline)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze trend: %w", err)
	}
	prompt := fmt.Sprintf(`Analyze the regulatory trend for "%s" in the Saudi insurance market based on general knowledge and the following timeline context:
%s

Respond with JSON:
{
  "topic": "%s",
  "trend": "increasing" | "decreasing" | "stable",
  "description": "string",
  "prediction": "string",
  "impactLevel": "low" | "medium" | "high"
}`, topic, timeline, topic)

	var out RegulatoryTrend
	if err := t.ex.ExtractJSON(ctx, prompt, &out); err != nil {
		return nil, fmt.Errorf("failed to analyze trend: %w", err)
	}
	if out.Topic == "" {
		out.Topic = topic
	}
	return &out, nil
}

// EmergingRisks returns the current top emerging risks.
func (t *TrendAnalyzer) EmergingRisks() []string {
	return append([]string(nil), EmergingRisks...)
}

// Strategy drafts recommendations from trends.
func (t *TrendAnalyzer) Strategy(ctx context.Context, trends []RegulatoryTrend) (string, error) {
	data, err := json.Marshal(trends)
	if err != nil {
		return "", fmt.Errorf("generate strategy: %w", err)
	}
	prompt := fmt.Sprintf(`Generate strategic recommendations for an insurance company in Saudi Arabia based on these regulatory trends:
%s

Provide a concise strategic summary.`, data)

	resp, err := llm.Complete(ctx, t.provider, prompt, llm.Options{})
	if err != nil {
		return "", fmt.Errorf("generate strategy: %w", err)
	}
	return resp.Content, nil
}
