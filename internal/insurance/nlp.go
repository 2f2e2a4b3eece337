package insurance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Classification is the result of Classify.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Sentiment is the result of AnalyzeSentiment.
type Sentiment struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
}

// Classify asks the model to put text into one of categories.
func Classify(ctx context.Context, ex Extractor, text string, categories []string) (Classification, error) {
	prompt := fmt.Sprintf(`Classify the following text into one of these categories: %s

Text: %s

Respond with a JSON object with "category" and "confidence" (0-1) fields.`, strings.Join(categories, ", "), text)

	var out Classification
	err := ex.ExtractJSON(ctx, prompt, &out)
	return out, err
}

// ExtractEntities returns the entities of each requested type found in text.
func ExtractEntities(ctx context.Context, ex Extractor, text string, entityTypes []string) (map[string][]string, error) {
	prompt := fmt.Sprintf(`Extract the following entity types from the text: %s

Text: %s

Respond with a JSON object where keys are entity types and values are arrays of extracted entities.`, strings.Join(entityTypes, ", "), text)

	out := map[string][]string{}
	err := ex.ExtractJSON(ctx, prompt, &out)
	return out, err
}

// AnalyzeSentiment scores text from -1 (very negative) to 1 (very positive).
func AnalyzeSentiment(ctx context.Context, ex Extractor, text string) (Sentiment, error) {
	prompt := fmt.Sprintf(`Analyze the sentiment of this text and provide a score from -1 (very negative) to 1 (very positive).

Text: %s

Respond with a JSON object with "sentiment" (positive/negative/neutral) and "score" (-1 to 1) fields.`, text)

	var out Sentiment
	err := ex.ExtractJSON(ctx, prompt, &out)
	return out, err
}

// ClaimCategories are the categories a claim description is classified into.
var ClaimCategories = []string{
	"motor_accident",
	"motor_theft",
	"medical",
	"property_damage",
	"travel",
	"other",
}

var claimEntityTypes = []string{"person_name", "vehicle_details", "location", "date"}

// ClaimEntities are the entities found in a claim description.
type ClaimEntities struct {
	Parties   []string `json:"parties"`
	Vehicles  []string `json:"vehicles"`
	Locations []string `json:"locations"`
	Dates     []string `json:"dates"`
}

// SentimentScore is the sentiment of a claim description.
type SentimentScore struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// ClaimAnalysis is the result of ClaimsNLP.AnalyzeClaim.
type ClaimAnalysis struct {
	Entities  ClaimEntities  `json:"entities"`
	Category  string         `json:"category"`
	Sentiment SentimentScore `json:"sentiment"`
	Urgency   string         `json:"urgency"`
	Summary   string         `json:"summary"`
}

// Consistency is the result of ClaimsNLP.ValidateConsistency.
type Consistency struct {
	Consistent      bool     `json:"consistent"`
	Inconsistencies []string `json:"inconsistencies"`
}

// ClaimsNLP analyzes free-text claim descriptions.
type ClaimsNLP struct {
	ex Extractor
}

// NewClaimsNLP returns a ClaimsNLP backed by ex.
func NewClaimsNLP(ex Extractor) *ClaimsNLP {
	return &ClaimsNLP{ex: ex}
}

// AnalyzeClaim runs entity extraction, classification, sentiment and
// urgency analysis concurrently. Any failing call fails the analysis.
func (n *ClaimsNLP) AnalyzeClaim(ctx context.Context, description string) (*ClaimAnalysis, error) {
	var (
		entities  map[string][]string
		class     Classification
		sentiment Sentiment
		urgency   struct {
			Urgency string `json:"urgency"`
			Summary string `json:"summary"`
		}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		entities, err = ExtractEntities(gctx, n.ex, description, claimEntityTypes)
		return err
	})
	g.Go(func() (err error) {
		class, err = Classify(gctx, n.ex, description, ClaimCategories)
		return err
	})
	g.Go(func() (err error) {
		sentiment, err = AnalyzeSentiment(gctx, n.ex, description)
		return err
	})
	g.Go(func() error {
		return n.ex.ExtractJSON(gctx, fmt.Sprintf(`Analyze this claim description:
"%s"

1. Determine urgency (low/medium/high) based on severity and keywords.
2. Provide a 1-sentence summary.`, description), &urgency)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to analyze claim: %w", err)
	}

	return &ClaimAnalysis{
		Entities: ClaimEntities{
			Parties:   nonNil(entities["person_name"]),
			Vehicles:  nonNil(entities["vehicle_details"]),
			Locations: nonNil(entities["location"]),
			Dates:     nonNil(entities["date"]),
		},
		Category:  class.Category,
		Sentiment: SentimentScore{Score: sentiment.Score, Label: sentiment.Sentiment},
		Urgency:   urgency.Urgency,
		Summary:   urgency.Summary,
	}, nil
}

// ValidateConsistency compares a description with data extracted from a document.
func (n *ClaimsNLP) ValidateConsistency(ctx context.Context, description string, extracted map[string]any) (*Consistency, error) {
	data, err := json.Marshal(extracted)
	if err != nil {
		return nil, fmt.Errorf("encode extracted data: %w", err)
	}
	prompt := fmt.Sprintf(`Compare the claim description with the extracted document data.

Description: "%s"

Document Data: %s

Identify any inconsistencies (e.g., different dates, wrong vehicle, mismatched names).

Respond with JSON: { "consistent": boolean, "inconsistencies": string[] }`, description, data)

	var out Consistency
	if err := n.ex.ExtractJSON(ctx, prompt, &out); err != nil {
		return nil, fmt.Errorf("validate consistency: %w", err)
	}
	out.Inconsistencies = nonNil(out.Inconsistencies)
	return &out, nil
}
