// Package records reads events from and writes harvested companies to the
// external tabular store. The events source and companies destination are
// two fixed base/table pairs which may live in different bases.
package records

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/config"
	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/pkg/airtable"
)

// Destination field names for harvested company records.
const (
	fieldCompanyName = "Company Name"
	fieldWebsite     = "Website"
	fieldSourceEvent = "Participated Event"
	fieldLocation    = "Location"
	fieldIndustry    = "Industry Vertical"
	fieldCategory    = "Category"
)

// Service binds the store client to the configured table identities.
type Service struct {
	client airtable.Client
	cfg    config.AirtableConfig
}

// NewService creates a records service.
func NewService(client airtable.Client, cfg config.AirtableConfig) *Service {
	return &Service{client: client, cfg: cfg}
}

// SetToken replaces the store credential for all subsequent requests.
func (s *Service) SetToken(token string) {
	s.client.SetToken(token)
}

// ListEvents fetches all rows of the events table and maps them onto the
// canonical Event shape. Field labels are resolved through per-field
// candidate-key chains so rows authored in Portuguese or English both work.
// Every fetched event starts pending. Failures propagate to the caller;
// 403 and 404 arrive as typed errors carrying remediation detail.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	offset := ""
	for {
		list, err := s.client.ListRecords(ctx, s.cfg.EventsBase, s.cfg.EventsTable, airtable.ListOptions{Offset: offset})
		if err != nil {
			return nil, err
		}

		for _, rec := range list.Records {
			name := fieldString(rec.Fields, eventNameKeys...)
			if name == "" {
				name = model.DefaultEventName
			}
			events = append(events, model.Event{
				ID:       rec.ID,
				Name:     name,
				Website:  fieldString(rec.Fields, eventWebsiteKeys...),
				Location: fieldString(rec.Fields, eventLocationKeys...),
				Category: fieldString(rec.Fields, eventCategoryKeys...),
				Status:   model.EventStatusPending,
			})
		}

		if list.Offset == "" {
			break
		}
		offset = list.Offset
	}

	return events, nil
}

// CheckDuplicate queries the companies table for an exact website match.
// An empty website short-circuits to "not a duplicate" without a network
// call. Any request failure is swallowed and treated as "not a duplicate":
// duplicate-checking is best-effort and must never block the pipeline.
func (s *Service) CheckDuplicate(ctx context.Context, website string) model.DuplicateCheck {
	if website == "" {
		return model.DuplicateCheck{Exists: false}
	}

	formula := "({" + fieldWebsite + "} = '" + escapeFormulaValue(website) + "')"
	list, err := s.client.ListRecords(ctx, s.cfg.CompaniesBase, s.cfg.CompaniesTable, airtable.ListOptions{
		FilterByFormula: formula,
	})
	if err != nil {
		zap.L().Warn("records: duplicate check failed, treating as new",
			zap.String("website", website),
			zap.Error(err),
		)
		return model.DuplicateCheck{Exists: false}
	}

	if len(list.Records) > 0 {
		return model.DuplicateCheck{Exists: true, RecordID: list.Records[0].ID}
	}
	return model.DuplicateCheck{Exists: false}
}

// UpsertCompany writes a company to the destination table. It updates when
// the record already carries a remote identity and was flagged as a
// pre-existing duplicate, and creates otherwise. Category is sent only when
// it holds a real value, never the placeholder, so constrained-choice fields
// on the remote side don't reject the write. Failures propagate so the
// caller can mark the specific record failed and let the user retry it.
func (s *Service) UpsertCompany(ctx context.Context, company model.Company) (string, error) {
	fields := map[string]any{
		fieldCompanyName: company.Name,
		fieldWebsite:     company.Website,
		fieldSourceEvent: company.SourceEvent,
		fieldLocation:    company.Location,
		fieldIndustry:    company.Industry,
	}
	if company.Category != "" && company.Category != model.PlaceholderPending {
		fields[fieldCategory] = company.Category
	}

	isUpdate := company.Remote == model.RemoteStatusExists && company.RemoteID != ""
	if isUpdate {
		rec, err := s.client.UpdateRecord(ctx, s.cfg.CompaniesBase, s.cfg.CompaniesTable, company.RemoteID, fields)
		if err != nil {
			return "", err
		}
		return rec.ID, nil
	}

	rec, err := s.client.CreateRecord(ctx, s.cfg.CompaniesBase, s.cfg.CompaniesTable, fields)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// escapeFormulaValue escapes single quotes for interpolation into an
// Airtable filter formula string literal.
func escapeFormulaValue(v string) string {
	return strings.ReplaceAll(v, "'", "\\'")
}
