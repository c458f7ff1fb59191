// Package model defines the domain types shared across the harvesting pipeline.
package model

import "time"

// EventStatus represents the lifecycle state of an event in the queue.
type EventStatus string

const (
	EventStatusPending    EventStatus = "pending"
	EventStatusProcessing EventStatus = "processing"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusError      EventStatus = "error"
)

// CompanyStatus tracks the local harvesting lifecycle of a company.
type CompanyStatus string

const (
	CompanyStatusNew       CompanyStatus = "new"
	CompanyStatusEnriching CompanyStatus = "enriching"
	CompanyStatusReady     CompanyStatus = "ready"
	CompanyStatusSaved     CompanyStatus = "saved"
	CompanyStatusError     CompanyStatus = "error"
)

// RemoteStatus tracks a company's relationship to the destination store.
// It is orthogonal to CompanyStatus: both can independently reach a
// terminal value.
type RemoteStatus string

const (
	RemoteStatusNew    RemoteStatus = "new"
	RemoteStatusExists RemoteStatus = "exists"
	RemoteStatusSynced RemoteStatus = "synced"
)

// LogLevel is the severity of a harvest log entry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Sentinel values distinguishing "not yet determined" from a genuine
// empty result.
const (
	PlaceholderPending = "Pending..."
	UnknownValue       = "Unknown"
	DefaultEventName   = "Unnamed Event"
	DefaultCategory    = "Other"
)

// Event is a source record describing a gathering whose participants are
// to be discovered. The records store is the source of truth; events are
// never deleted locally.
type Event struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Website  string      `json:"website,omitempty"`
	Location string      `json:"location,omitempty"`
	Category string      `json:"category,omitempty"`
	Status   EventStatus `json:"status"`
}

// Company is a harvested lead record associated with one event.
// Category is copied from the source event at creation and is never
// overwritten by enrichment.
type Company struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Website     string        `json:"website"`
	Location    string        `json:"location"`
	Industry    string        `json:"industry"`
	Category    string        `json:"category,omitempty"`
	SourceEvent string        `json:"source_event"`
	Status      CompanyStatus `json:"status"`
	Remote      RemoteStatus  `json:"remote_status,omitempty"`
	RemoteID    string        `json:"remote_id,omitempty"`
}

// Enrichment is the partial company record produced by the enrichment
// client. It deliberately has no category field.
type Enrichment struct {
	Website  string `json:"website"`
	Location string `json:"location"`
	Industry string `json:"industry"`
}

// SentinelEnrichment is returned when enrichment fails for any reason so
// the pipeline can continue without marking the company failed.
func SentinelEnrichment() Enrichment {
	return Enrichment{Website: "", Location: UnknownValue, Industry: UnknownValue}
}

// RawExtraction is a transient name/website pair produced by discovery
// and consumed immediately to seed Company entries.
type RawExtraction struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

// LogEntry is an immutable harvest log record.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Level   LogLevel  `json:"level"`
}

// DuplicateCheck is the outcome of probing the destination store for an
// existing record with the same website.
type DuplicateCheck struct {
	Exists   bool   `json:"exists"`
	RecordID string `json:"record_id,omitempty"`
}
