// Package harvest orchestrates the per-event workflow: discover companies,
// enrich each one, check the destination store for duplicates, and expose
// the results for manual sync.
package harvest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/internal/state"
)

// ErrRunActive is returned when a harvest is triggered while another run
// is in flight.
var ErrRunActive = eris.New("harvest: a run is already active")

// ErrEventNotFound is returned when the requested event is not loaded.
var ErrEventNotFound = eris.New("harvest: event not found")

// ErrCompanyNotFound is returned when the requested company is not loaded.
var ErrCompanyNotFound = eris.New("harvest: company not found")

// ParticipantFinder discovers companies tied to an event.
type ParticipantFinder interface {
	FindParticipants(ctx context.Context, event model.Event, progress func(string)) []model.RawExtraction
}

// CompanyEnricher fills in website, location, and industry for one company.
type CompanyEnricher interface {
	Enrich(ctx context.Context, companyName, eventName string) model.Enrichment
}

// RecordStore is the destination-store surface the pipeline needs.
type RecordStore interface {
	CheckDuplicate(ctx context.Context, website string) model.DuplicateCheck
	UpsertCompany(ctx context.Context, company model.Company) (string, error)
}

// Harvester drives the end-to-end per-event pipeline. Companies are
// enriched strictly one at a time, in discovery order; read-path failures
// are contained so one bad step never aborts the run.
type Harvester struct {
	finder   ParticipantFinder
	enricher CompanyEnricher
	records  RecordStore
	state    *state.Store

	mu      sync.Mutex
	running bool
}

// New creates a Harvester.
func New(finder ParticipantFinder, enricher CompanyEnricher, records RecordStore, st *state.Store) *Harvester {
	return &Harvester{
		finder:   finder,
		enricher: enricher,
		records:  records,
		state:    st,
	}
}

// acquire claims the single run slot. The slot is global, not per event:
// the state store holds one companies list and one current-action line, so
// a second run for any event would clobber the first's results.
func (h *Harvester) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return false
	}
	h.running = true
	return true
}

func (h *Harvester) release() {
	h.mu.Lock()
	h.running = false
	h.mu.Unlock()
}

// Run executes the harvest pipeline for one event. The returned error only
// reports trigger problems (unknown event, run already active); everything
// that happens inside the run resolves through the event's status instead,
// and the event always lands on a terminal status.
func (h *Harvester) Run(ctx context.Context, eventID string) error {
	event, ok := h.state.Event(eventID)
	if !ok {
		return ErrEventNotFound
	}
	if !h.acquire() {
		return ErrRunActive
	}
	defer h.release()

	h.run(ctx, event)
	return nil
}

// Start triggers Run asynchronously. Trigger errors are still reported
// synchronously so callers can answer "already running" immediately; the
// run itself proceeds in the background and resolves through state.
func (h *Harvester) Start(ctx context.Context, eventID string) error {
	event, ok := h.state.Event(eventID)
	if !ok {
		return ErrEventNotFound
	}
	if !h.acquire() {
		return ErrRunActive
	}
	go func() {
		defer h.release()
		h.run(ctx, event)
	}()
	return nil
}

func (h *Harvester) run(ctx context.Context, event model.Event) {
	eventID := event.ID
	log := zap.L().With(zap.String("event", event.Name), zap.String("event_id", eventID))

	h.state.ReplaceCompanies(nil)
	h.state.SetEventStatus(eventID, model.EventStatusProcessing)
	h.state.SetCurrentAction("Harvesting: " + event.Name)
	defer h.state.SetCurrentAction("Idle")

	// Last line of defense: the run must never leave the event stuck in
	// processing, whatever goes wrong inside.
	defer func() {
		if r := recover(); r != nil {
			log.Error("harvest: run panicked", zap.Any("panic", r))
			h.state.Log(model.LogLevelError, fmt.Sprintf("Critical error processing %s", event.Name))
			h.state.SetEventStatus(eventID, model.EventStatusError)
		}
	}()

	h.state.Log(model.LogLevelInfo, fmt.Sprintf("AI Agent searching for participants of %s...", event.Name))
	raw := h.finder.FindParticipants(ctx, event, h.state.SetCurrentAction)

	if len(raw) == 0 {
		h.state.Log(model.LogLevelWarning, fmt.Sprintf("No companies found for %s.", event.Name))
		h.state.SetEventStatus(eventID, model.EventStatusError)
		return
	}

	category := event.Category
	if category == "" {
		category = model.DefaultCategory
	}

	companies := make([]model.Company, 0, len(raw))
	for _, rc := range raw {
		companies = append(companies, model.Company{
			ID:          uuid.New().String(),
			Name:        rc.Name,
			Website:     rc.Website,
			Location:    model.PlaceholderPending,
			Industry:    model.PlaceholderPending,
			Category:    category,
			SourceEvent: event.Name,
			Status:      model.CompanyStatusEnriching,
		})
	}
	h.state.ReplaceCompanies(companies)

	for i, company := range companies {
		h.state.SetCurrentAction(fmt.Sprintf("Enriching %s (%d/%d)", company.Name, i+1, len(companies)))

		enriched := h.enricher.Enrich(ctx, company.Name, event.Name)
		h.state.UpdateCompany(company.ID, func(c model.Company) model.Company {
			// Enrichment coming back without a website keeps the one
			// discovery found; it only ever replaces, never erases.
			if enriched.Website != "" {
				c.Website = enriched.Website
			}
			c.Location = enriched.Location
			c.Industry = enriched.Industry
			c.Status = model.CompanyStatusReady
			return c
		})

		if enriched.Website != "" {
			check := h.records.CheckDuplicate(ctx, enriched.Website)
			h.state.UpdateCompany(company.ID, func(c model.Company) model.Company {
				if check.Exists {
					c.Remote = model.RemoteStatusExists
				} else {
					c.Remote = model.RemoteStatusNew
				}
				c.RemoteID = check.RecordID
				return c
			})
		}
	}

	h.state.SetEventStatus(eventID, model.EventStatusCompleted)
	h.state.Log(model.LogLevelSuccess,
		fmt.Sprintf("Completed harvesting for %s. Found %d leads.", event.Name, len(companies)))
	log.Info("harvest: run complete", zap.Int("companies", len(companies)))
}

// SyncCompany writes one harvested company to the destination store. Write
// failures propagate so the caller can surface them; the company is marked
// failed and can be retried individually.
func (h *Harvester) SyncCompany(ctx context.Context, companyID string) error {
	company, ok := h.state.Company(companyID)
	if !ok {
		return ErrCompanyNotFound
	}

	h.state.UpdateCompany(companyID, func(c model.Company) model.Company {
		c.Status = model.CompanyStatusEnriching
		return c
	})

	remoteID, err := h.records.UpsertCompany(ctx, company)
	if err != nil {
		h.state.UpdateCompany(companyID, func(c model.Company) model.Company {
			c.Status = model.CompanyStatusError
			return c
		})
		h.state.Log(model.LogLevelError, fmt.Sprintf("Failed to sync %s: %s", company.Name, err.Error()))
		return err
	}

	h.state.UpdateCompany(companyID, func(c model.Company) model.Company {
		c.Status = model.CompanyStatusSaved
		c.Remote = model.RemoteStatusSynced
		if remoteID != "" {
			c.RemoteID = remoteID
		}
		return c
	})
	h.state.Log(model.LogLevelSuccess, fmt.Sprintf("Synced %s", company.Name))

	return nil
}
