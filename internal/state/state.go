// Package state holds the application state shared between the harvest
// pipeline and its callers: the event list, the harvested company list, the
// harvest log, and the current-action line.
//
// The pipeline is the only writer during a run; the mutex exists because
// the HTTP surface reads concurrently. All mutations go through the pure
// transition functions in transitions.go applied under the lock.
package state

import (
	"sync"

	"github.com/sells-group/lead-harvest/internal/model"
)

// Snapshot is a point-in-time copy of the application state.
type Snapshot struct {
	Events        []model.Event    `json:"events"`
	Companies     []model.Company  `json:"companies"`
	Logs          []model.LogEntry `json:"logs"`
	CurrentAction string           `json:"current_action"`
}

// Store owns the mutable application state.
type Store struct {
	mu            sync.RWMutex
	events        []model.Event
	companies     []model.Company
	logs          []model.LogEntry
	currentAction string
	logRetention  int
}

// NewStore creates a Store retaining at most logRetention log entries.
func NewStore(logRetention int) *Store {
	if logRetention <= 0 {
		logRetention = 500
	}
	return &Store{
		currentAction: "Idle",
		logRetention:  logRetention,
	}
}

// Snapshot returns a copy of the full state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Events:        append([]model.Event(nil), s.events...),
		Companies:     append([]model.Company(nil), s.companies...),
		Logs:          append([]model.LogEntry(nil), s.logs...),
		CurrentAction: s.currentAction,
	}
}

// SetEvents replaces the event list, typically after a (re)load from the
// records store.
func (s *Store) SetEvents(events []model.Event) {
	s.mu.Lock()
	s.events = append([]model.Event(nil), events...)
	s.mu.Unlock()
}

// Events returns a copy of the event list.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Event(nil), s.events...)
}

// Event looks up an event by id.
func (s *Store) Event(eventID string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.ID == eventID {
			return e, true
		}
	}
	return model.Event{}, false
}

// SetEventStatus transitions one event's lifecycle status.
func (s *Store) SetEventStatus(eventID string, status model.EventStatus) {
	s.mu.Lock()
	s.events = setEventStatus(s.events, eventID, status)
	s.mu.Unlock()
}

// ReplaceCompanies swaps in a new company list (cleared at run start,
// seeded in bulk after discovery).
func (s *Store) ReplaceCompanies(companies []model.Company) {
	s.mu.Lock()
	s.companies = append([]model.Company(nil), companies...)
	s.mu.Unlock()
}

// Companies returns a copy of the company list.
func (s *Store) Companies() []model.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Company(nil), s.companies...)
}

// Company looks up a company by id.
func (s *Store) Company(companyID string) (model.Company, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.companies {
		if c.ID == companyID {
			return c, true
		}
	}
	return model.Company{}, false
}

// UpdateCompany replaces one company with the result of fn applied to its
// current value.
func (s *Store) UpdateCompany(companyID string, fn func(model.Company) model.Company) {
	s.mu.Lock()
	s.companies = updateCompany(s.companies, companyID, fn)
	s.mu.Unlock()
}

// Log appends a harvest log entry, newest first.
func (s *Store) Log(level model.LogLevel, message string) {
	s.mu.Lock()
	s.logs = appendLog(s.logs, newLogEntry(message, level), s.logRetention)
	s.mu.Unlock()
}

// Logs returns a copy of the log, newest first.
func (s *Store) Logs() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.LogEntry(nil), s.logs...)
}

// SetCurrentAction replaces the live status line.
func (s *Store) SetCurrentAction(action string) {
	s.mu.Lock()
	s.currentAction = action
	s.mu.Unlock()
}

// CurrentAction returns the live status line.
func (s *Store) CurrentAction() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentAction
}
