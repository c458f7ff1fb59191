package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-harvest/internal/credential"
	"github.com/sells-group/lead-harvest/internal/discovery"
	"github.com/sells-group/lead-harvest/internal/enrich"
	"github.com/sells-group/lead-harvest/internal/harvest"
	"github.com/sells-group/lead-harvest/internal/records"
	"github.com/sells-group/lead-harvest/internal/state"
	"github.com/sells-group/lead-harvest/pkg/airtable"
	"github.com/sells-group/lead-harvest/pkg/gemini"
)

// appEnv wires the full application graph for a command invocation.
type appEnv struct {
	State       *state.Store
	Records     *records.Service
	Harvester   *harvest.Harvester
	Credentials *credential.Store
}

// initApp builds the application environment: the persisted credential is
// resolved first (seeding or healing as needed), then the store client and
// pipeline are assembled around it.
func initApp(ctx context.Context) (*appEnv, error) {
	creds, err := credential.Open(cfg.Airtable.CredentialPath)
	if err != nil {
		return nil, err
	}
	if err := creds.Migrate(ctx); err != nil {
		creds.Close()
		return nil, err
	}
	token, err := creds.Resolve(ctx, cfg.Airtable.Token)
	if err != nil {
		creds.Close()
		return nil, err
	}
	if token == "" {
		creds.Close()
		return nil, eris.New("no records-store token configured; set airtable.token or PUT /api/token")
	}

	store := airtable.NewClient(token,
		airtable.WithBaseURL(cfg.Airtable.BaseURL),
		airtable.WithRateLimit(cfg.Airtable.RateLimitPerSec),
	)
	recordsSvc := records.NewService(store, cfg.Airtable)

	gem := gemini.NewClient(cfg.Gemini.Key,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
	)

	st := state.NewStore(cfg.Harvest.LogRetention)
	harvester := harvest.New(
		discovery.NewFinder(gem, cfg.Harvest.MaxCompanies),
		enrich.NewEnricher(gem),
		recordsSvc,
		st,
	)

	return &appEnv{
		State:       st,
		Records:     recordsSvc,
		Harvester:   harvester,
		Credentials: creds,
	}, nil
}

// Close releases the environment's resources.
func (e *appEnv) Close() {
	if e.Credentials != nil {
		e.Credentials.Close()
	}
}

// loadEvents pulls the event list from the records store into state.
func (e *appEnv) loadEvents(ctx context.Context) error {
	events, err := e.Records.ListEvents(ctx)
	if err != nil {
		return err
	}
	e.State.SetEvents(events)
	return nil
}
