// Package enrich fills in website, location, and industry for a discovered
// company using a search-grounded generative model.
package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/extract"
	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/pkg/gemini"
)

// Enricher researches one company at a time. One query per company trades
// throughput for prompt simplicity and per-company fault isolation: a single
// enrichment failure must not abort the batch.
type Enricher struct {
	client gemini.Client
}

// NewEnricher creates an Enricher.
func NewEnricher(client gemini.Client) *Enricher {
	return &Enricher{client: client}
}

// Enrich researches a company and returns a partial record with website,
// location, and industry only — never a category, regardless of what the
// model returns. Any failure yields the sentinel record (empty website,
// "Unknown" location and industry) so the pipeline can continue.
func (e *Enricher) Enrich(ctx context.Context, companyName, eventName string) model.Enrichment {
	log := zap.L().With(zap.String("company", companyName))

	prompt := fmt.Sprintf(`Research the company %q which participated in %q.

Find the following details:
1. Official Website URL (Home page)
2. Headquarters Location (City, Country)
3. Primary Industry Vertical (e.g., "Enterprise Software", "Biotechnology", "Digital Advertising")

CRITICAL: Return ONLY a valid JSON object. No markdown formatting.
Format: {"website": "url", "location": "city, country", "industry": "industry name"}`, companyName, eventName)

	resp, err := e.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Prompt:       prompt,
		EnableSearch: true,
	})
	if err != nil {
		log.Warn("enrich: generate content failed", zap.Error(err))
		return model.SentinelEnrichment()
	}

	text := resp.Text()
	obj, ok := extract.Object(text)
	if !ok {
		log.Warn("enrich: response not a JSON object", zap.String("raw", text))
		return model.SentinelEnrichment()
	}

	result := model.SentinelEnrichment()
	if website, isStr := obj["website"].(string); isStr {
		result.Website = website
	}
	if location, isStr := obj["location"].(string); isStr && location != "" {
		result.Location = location
	}
	if industry, isStr := obj["industry"].(string); isStr && industry != "" {
		result.Industry = industry
	}
	return result
}
