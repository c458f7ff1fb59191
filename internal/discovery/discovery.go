// Package discovery finds companies participating in an event using a
// search-grounded generative model.
package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/extract"
	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/pkg/gemini"
)

// Finder queries the generative model for event participants.
type Finder struct {
	client gemini.Client
	limit  int
}

// NewFinder creates a Finder that returns at most limit companies per event.
func NewFinder(client gemini.Client, limit int) *Finder {
	if limit <= 0 {
		limit = 15
	}
	return &Finder{client: client, limit: limit}
}

// FindParticipants issues a single search-grounded query for the event's
// confirmed sponsors and exhibitors and returns the extracted name/website
// pairs. All failures (missing credential, transport, unparseable output)
// degrade to an empty result with a diagnostic log line; the orchestrator
// treats an empty result as "no companies found", not as an error. Progress
// messages are pushed through the supplied sink as the search proceeds.
func (f *Finder) FindParticipants(ctx context.Context, event model.Event, progress func(string)) []model.RawExtraction {
	log := zap.L().With(zap.String("event", event.Name))

	progress(fmt.Sprintf("Initializing harvester for: %s...", event.Name))

	location := event.Location
	if location == "" {
		location = "Global"
	}

	prompt := fmt.Sprintf(`Find the official list of sponsors, exhibitors, or speakers for the event %q (%s).
Use Google Search to find the official event website or reliable industry news covering the event.

Extract a list of distinct company names that are confirmed to be participating.
Ignore media partners if possible, focus on paying sponsors or exhibitors.

CRITICAL: Return ONLY a valid JSON array of objects. No markdown formatting.
Format: [{"name": "Company Name", "website": "company.com"}]

Limit to top %d most relevant companies found to ensure accuracy.`, event.Name, location, f.limit)

	progress("Scanning web for participant lists...")

	resp, err := f.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Prompt:       prompt,
		EnableSearch: true,
	})
	if err != nil {
		progress("Search failed, no companies found.")
		log.Warn("discovery: generate content failed", zap.Error(err))
		return nil
	}

	text := resp.Text()
	arr, ok := extract.Array(text)
	if !ok {
		progress("Failed to parse company list from AI response.")
		log.Warn("discovery: response not a JSON array", zap.String("raw", text))
		return nil
	}

	results := parseExtractions(arr)
	if len(results) > f.limit {
		results = results[:f.limit]
	}

	progress(fmt.Sprintf("Found %d potential companies.", len(results)))
	log.Info("discovery: participants found", zap.Int("count", len(results)))
	return results
}

// parseExtractions converts the unverified parsed array into raw
// extractions, keeping only elements shaped as objects with a non-empty
// name field.
func parseExtractions(arr []any) []model.RawExtraction {
	var out []model.RawExtraction
	for _, elem := range arr {
		obj, isObj := elem.(map[string]any)
		if !isObj {
			continue
		}
		name, _ := obj["name"].(string)
		if name == "" {
			continue
		}
		website, _ := obj["website"].(string)
		out = append(out, model.RawExtraction{Name: name, Website: website})
	}
	return out
}
