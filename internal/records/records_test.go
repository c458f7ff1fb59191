package records

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-harvest/internal/config"
	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/pkg/airtable"
)

// fakeClient is a scriptable airtable.Client for service tests.
type fakeClient struct {
	listFn   func(ctx context.Context, baseID, tableID string, opts airtable.ListOptions) (*airtable.RecordList, error)
	createFn func(ctx context.Context, baseID, tableID string, fields map[string]any) (*airtable.Record, error)
	updateFn func(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*airtable.Record, error)

	listCalls   int
	createCalls int
	updateCalls int
	token       string
}

func (f *fakeClient) ListRecords(ctx context.Context, baseID, tableID string, opts airtable.ListOptions) (*airtable.RecordList, error) {
	f.listCalls++
	if f.listFn == nil {
		return &airtable.RecordList{}, nil
	}
	return f.listFn(ctx, baseID, tableID, opts)
}

func (f *fakeClient) CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*airtable.Record, error) {
	f.createCalls++
	if f.createFn == nil {
		return &airtable.Record{ID: "recCreated", Fields: fields}, nil
	}
	return f.createFn(ctx, baseID, tableID, fields)
}

func (f *fakeClient) UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*airtable.Record, error) {
	f.updateCalls++
	if f.updateFn == nil {
		return &airtable.Record{ID: recordID, Fields: fields}, nil
	}
	return f.updateFn(ctx, baseID, tableID, recordID, fields)
}

func (f *fakeClient) SetToken(token string) {
	f.token = token
}

func testCfg() config.AirtableConfig {
	return config.AirtableConfig{
		EventsBase:     "appEvents",
		EventsTable:    "tblEvents",
		CompaniesBase:  "appCompanies",
		CompaniesTable: "tblCompanies",
	}
}

func TestListEvents_FieldFallbacks(t *testing.T) {
	client := &fakeClient{
		listFn: func(_ context.Context, baseID, tableID string, _ airtable.ListOptions) (*airtable.RecordList, error) {
			assert.Equal(t, "appEvents", baseID)
			assert.Equal(t, "tblEvents", tableID)
			return &airtable.RecordList{Records: []airtable.Record{
				{ID: "rec1", Fields: map[string]any{
					"Nome do Evento": "Feira de Tecnologia",
					"Localização":    "São Paulo",
					"Categoria":      "Tech",
				}},
				{ID: "rec2", Fields: map[string]any{
					"Event Name":    "Health Expo",
					"Event Website": "healthexpo.com",
					"Location":      "Berlin",
					"Category":      "Health",
				}},
				{ID: "rec3", Fields: map[string]any{}},
			}}, nil
		},
	}
	svc := NewService(client, testCfg())

	events, err := svc.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "Feira de Tecnologia", events[0].Name)
	assert.Equal(t, "São Paulo", events[0].Location)
	assert.Equal(t, "Tech", events[0].Category)
	assert.Equal(t, model.EventStatusPending, events[0].Status)

	assert.Equal(t, "Health Expo", events[1].Name)
	assert.Equal(t, "healthexpo.com", events[1].Website)

	assert.Equal(t, model.DefaultEventName, events[2].Name)
	assert.Equal(t, model.EventStatusPending, events[2].Status)
}

func TestListEvents_Pagination(t *testing.T) {
	client := &fakeClient{}
	client.listFn = func(_ context.Context, _, _ string, opts airtable.ListOptions) (*airtable.RecordList, error) {
		if opts.Offset == "" {
			return &airtable.RecordList{
				Records: []airtable.Record{{ID: "rec1", Fields: map[string]any{"Name": "First"}}},
				Offset:  "page2",
			}, nil
		}
		assert.Equal(t, "page2", opts.Offset)
		return &airtable.RecordList{
			Records: []airtable.Record{{ID: "rec2", Fields: map[string]any{"Name": "Second"}}},
		}, nil
	}
	svc := NewService(client, testCfg())

	events, err := svc.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 2, client.listCalls)
}

func TestListEvents_PermissionErrorPropagates(t *testing.T) {
	client := &fakeClient{
		listFn: func(_ context.Context, baseID, _ string, _ airtable.ListOptions) (*airtable.RecordList, error) {
			return nil, &airtable.PermissionError{BaseID: baseID}
		},
	}
	svc := NewService(client, testCfg())

	_, err := svc.ListEvents(context.Background())
	require.Error(t, err)

	var permErr *airtable.PermissionError
	require.True(t, errors.As(err, &permErr))
	assert.Contains(t, err.Error(), "Permission Denied")
	assert.Contains(t, err.Error(), "appEvents")
}

func TestCheckDuplicate_EmptyWebsiteSkipsNetwork(t *testing.T) {
	client := &fakeClient{}
	svc := NewService(client, testCfg())

	check := svc.CheckDuplicate(context.Background(), "")
	assert.False(t, check.Exists)
	assert.Equal(t, 0, client.listCalls)
}

func TestCheckDuplicate_Match(t *testing.T) {
	client := &fakeClient{
		listFn: func(_ context.Context, baseID, tableID string, opts airtable.ListOptions) (*airtable.RecordList, error) {
			assert.Equal(t, "appCompanies", baseID)
			assert.Equal(t, "tblCompanies", tableID)
			assert.Equal(t, `({Website} = 'acme.com')`, opts.FilterByFormula)
			return &airtable.RecordList{Records: []airtable.Record{{ID: "recDup"}}}, nil
		},
	}
	svc := NewService(client, testCfg())

	check := svc.CheckDuplicate(context.Background(), "acme.com")
	assert.True(t, check.Exists)
	assert.Equal(t, "recDup", check.RecordID)
}

func TestCheckDuplicate_NoMatch(t *testing.T) {
	svc := NewService(&fakeClient{}, testCfg())

	check := svc.CheckDuplicate(context.Background(), "nobody.com")
	assert.False(t, check.Exists)
	assert.Empty(t, check.RecordID)
}

func TestCheckDuplicate_FailureTreatedAsNew(t *testing.T) {
	// Deliberate behavior: a transient failure during duplicate checking is
	// swallowed and the company is treated as new rather than blocking the
	// pipeline, accepting the risk of a duplicate remote record.
	client := &fakeClient{
		listFn: func(_ context.Context, _, _ string, _ airtable.ListOptions) (*airtable.RecordList, error) {
			return nil, &airtable.APIError{StatusCode: 500, Body: "boom"}
		},
	}
	svc := NewService(client, testCfg())

	check := svc.CheckDuplicate(context.Background(), "acme.com")
	assert.False(t, check.Exists)
	assert.Equal(t, 1, client.listCalls)
}

func TestCheckDuplicate_EscapesQuotes(t *testing.T) {
	client := &fakeClient{
		listFn: func(_ context.Context, _, _ string, opts airtable.ListOptions) (*airtable.RecordList, error) {
			assert.Equal(t, `({Website} = 'o\'reilly.com')`, opts.FilterByFormula)
			return &airtable.RecordList{}, nil
		},
	}
	svc := NewService(client, testCfg())
	svc.CheckDuplicate(context.Background(), "o'reilly.com")
}

func TestUpsertCompany_CreateSendsCategoryOnlyWhenReal(t *testing.T) {
	tests := []struct {
		name         string
		category     string
		wantCategory bool
	}{
		{"real_category", "Tech", true},
		{"placeholder", model.PlaceholderPending, false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFields map[string]any
			client := &fakeClient{
				createFn: func(_ context.Context, _, _ string, fields map[string]any) (*airtable.Record, error) {
					gotFields = fields
					return &airtable.Record{ID: "recNew"}, nil
				},
			}
			svc := NewService(client, testCfg())

			id, err := svc.UpsertCompany(context.Background(), model.Company{
				Name:        "Acme",
				Website:     "acme.com",
				Location:    "Lisbon, Portugal",
				Industry:    "Robotics",
				Category:    tt.category,
				SourceEvent: "Web Summit",
			})
			require.NoError(t, err)
			assert.Equal(t, "recNew", id)

			assert.Equal(t, "Acme", gotFields["Company Name"])
			assert.Equal(t, "acme.com", gotFields["Website"])
			assert.Equal(t, "Web Summit", gotFields["Participated Event"])
			assert.Equal(t, "Lisbon, Portugal", gotFields["Location"])
			assert.Equal(t, "Robotics", gotFields["Industry Vertical"])

			_, hasCategory := gotFields["Category"]
			assert.Equal(t, tt.wantCategory, hasCategory)
		})
	}
}

func TestUpsertCompany_UpdatesWhenDuplicateWithRemoteID(t *testing.T) {
	client := &fakeClient{
		updateFn: func(_ context.Context, _, _, recordID string, _ map[string]any) (*airtable.Record, error) {
			assert.Equal(t, "recExisting", recordID)
			return &airtable.Record{ID: "recExisting"}, nil
		},
	}
	svc := NewService(client, testCfg())

	id, err := svc.UpsertCompany(context.Background(), model.Company{
		Name:     "Acme",
		Remote:   model.RemoteStatusExists,
		RemoteID: "recExisting",
	})
	require.NoError(t, err)
	assert.Equal(t, "recExisting", id)
	assert.Equal(t, 1, client.updateCalls)
	assert.Equal(t, 0, client.createCalls)
}

func TestUpsertCompany_CreatesWithoutRemoteID(t *testing.T) {
	client := &fakeClient{}
	svc := NewService(client, testCfg())

	// Flagged as duplicate but no remote id known: create, don't update.
	_, err := svc.UpsertCompany(context.Background(), model.Company{
		Name:   "Acme",
		Remote: model.RemoteStatusExists,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, client.createCalls)
	assert.Equal(t, 0, client.updateCalls)
}

func TestUpsertCompany_WriteFailurePropagates(t *testing.T) {
	client := &fakeClient{
		createFn: func(_ context.Context, _, _ string, _ map[string]any) (*airtable.Record, error) {
			return nil, &airtable.APIError{StatusCode: 422, Body: "INVALID_VALUE_FOR_COLUMN"}
		},
	}
	svc := NewService(client, testCfg())

	_, err := svc.UpsertCompany(context.Background(), model.Company{Name: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestSetTokenForwards(t *testing.T) {
	client := &fakeClient{}
	svc := NewService(client, testCfg())
	svc.SetToken("new-token")
	assert.Equal(t, "new-token", client.token)
}
