package state

import (
	"time"

	"github.com/sells-group/lead-harvest/internal/model"
)

// Transition functions are pure: each takes a snapshot slice and returns a
// new slice, never mutating its input. Records are replaced whole, so every
// update is atomic from an observer's viewpoint.

// setEventStatus returns events with the status of the matching event
// replaced.
func setEventStatus(events []model.Event, eventID string, status model.EventStatus) []model.Event {
	out := make([]model.Event, len(events))
	for i, e := range events {
		if e.ID == eventID {
			e.Status = status
		}
		out[i] = e
	}
	return out
}

// updateCompany returns companies with the matching company replaced by the
// result of applying fn to a copy of it.
func updateCompany(companies []model.Company, companyID string, fn func(model.Company) model.Company) []model.Company {
	out := make([]model.Company, len(companies))
	for i, c := range companies {
		if c.ID == companyID {
			c = fn(c)
		}
		out[i] = c
	}
	return out
}

// appendLog prepends an entry (newest first) and drops the oldest entries
// beyond the retention limit.
func appendLog(logs []model.LogEntry, entry model.LogEntry, retain int) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(logs)+1)
	out = append(out, entry)
	out = append(out, logs...)
	if retain > 0 && len(out) > retain {
		out = out[:retain]
	}
	return out
}

// newLogEntry stamps a log entry with the current time.
func newLogEntry(message string, level model.LogLevel) model.LogEntry {
	return model.LogEntry{Time: time.Now(), Message: message, Level: level}
}
