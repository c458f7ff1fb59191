package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/pkg/gemini"
)

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func modelResponse(text string) string {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	return `{"candidates":[{"content":{"parts":[{"text":"` + escaped + `"}]}}]}`
}

func newTestEnricher(t *testing.T, handler http.HandlerFunc) *Enricher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewEnricher(gemini.NewClient("test-key", gemini.WithBaseURL(srv.URL)))
}

func TestEnrich(t *testing.T) {
	enricher := newTestEnricher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(modelResponse("Here is what I found:\n```json\n" +
			`{"website":"acme.com","location":"Lisbon, Portugal","industry":"Robotics"}` + "\n```")))
	})

	got := enricher.Enrich(context.Background(), "Acme", "Web Summit")
	assert.Equal(t, model.Enrichment{
		Website:  "acme.com",
		Location: "Lisbon, Portugal",
		Industry: "Robotics",
	}, got)
}

func TestEnrich_ParseFailureYieldsSentinel(t *testing.T) {
	enricher := newTestEnricher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(modelResponse("I was unable to find reliable information about this company.")))
	})

	got := enricher.Enrich(context.Background(), "Mystery Co", "Web Summit")
	assert.Equal(t, model.Enrichment{
		Website:  "",
		Location: model.UnknownValue,
		Industry: model.UnknownValue,
	}, got)
}

func TestEnrich_TransportFailureYieldsSentinel(t *testing.T) {
	enricher := newTestEnricher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	})

	got := enricher.Enrich(context.Background(), "Acme", "Web Summit")
	assert.Equal(t, model.SentinelEnrichment(), got)
}

func TestEnrich_NeverReturnsCategory(t *testing.T) {
	// Even when the model volunteers a category, the enrichment record has
	// nowhere to carry it: the Enrichment type holds exactly website,
	// location, and industry.
	enricher := newTestEnricher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(modelResponse(
			`{"website":"acme.com","location":"Lisbon","industry":"Robotics","category":"Marketing"}`)))
	})

	got := enricher.Enrich(context.Background(), "Acme", "Web Summit")
	assert.Equal(t, "acme.com", got.Website)
	assert.Equal(t, "Robotics", got.Industry)
}

func TestEnrich_PartialObjectKeepsSentinelDefaults(t *testing.T) {
	enricher := newTestEnricher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(modelResponse(`{"website":"acme.com"}`)))
	})

	got := enricher.Enrich(context.Background(), "Acme", "Web Summit")
	assert.Equal(t, "acme.com", got.Website)
	assert.Equal(t, model.UnknownValue, got.Location)
	assert.Equal(t, model.UnknownValue, got.Industry)
}

func TestEnrich_PromptNamesCompanyAndEvent(t *testing.T) {
	var prompt string
	enricher := newTestEnricher(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			Tools []map[string]any `json:"tools"`
		}
		require.NoError(t, jsonDecode(r, &body))
		prompt = body.Contents[0].Parts[0].Text
		require.Len(t, body.Tools, 1, "search tool must be enabled")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(modelResponse(`{}`)))
	})

	enricher.Enrich(context.Background(), "Globex", "Collision")
	assert.Contains(t, prompt, "Globex")
	assert.Contains(t, prompt, "Collision")
}
