// Package airtable is a minimal client for the Airtable REST API covering
// record listing, creation, and updates against base/table pairs.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Record is a single Airtable row.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// RecordList is the response of a list request.
type RecordList struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// ListOptions narrow a list request.
type ListOptions struct {
	FilterByFormula string
	Offset          string
}

// Client defines the Airtable operations used by this application.
type Client interface {
	ListRecords(ctx context.Context, baseID, tableID string, opts ListOptions) (*RecordList, error)
	CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*Record, error)
	UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*Record, error)
	SetToken(token string)
}

// PermissionError is returned on HTTP 403. Its message carries the exact
// access-scope remediation so the UI can surface it verbatim.
type PermissionError struct {
	BaseID string
	Body   string
}

func (e *PermissionError) Error() string {
	return "Permission Denied (403). The token does not have access to Base '" + e.BaseID +
		"'. In Airtable's Developer Hub, ensure the token has 'data.records:read' scope AND access to the correct workspace (Tip: Try setting 'All bases in workspace')."
}

// NotFoundError is returned on HTTP 404 and names the missing base/table.
type NotFoundError struct {
	BaseID  string
	TableID string
}

func (e *NotFoundError) Error() string {
	return "Not Found (404). Base '" + e.BaseID + "' or Table '" + e.TableID + "' not found."
}

// APIError is returned for any other non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airtable: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default Airtable rate limit (5 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	mu      sync.RWMutex
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Airtable client with the given personal access token.
// API calls are throttled to 5 req/s (Airtable's per-base rate limit).
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetToken replaces the bearer token for subsequent requests. Used for
// in-place credential replacement without a process restart.
func (c *httpClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *httpClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) tableURL(baseID, tableID string) string {
	return c.baseURL + "/" + url.PathEscape(baseID) + "/" + url.PathEscape(tableID)
}

func (c *httpClient) do(ctx context.Context, method, endpoint, baseID, tableID string, body any) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "airtable: rate limit")
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "airtable: marshal request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, eris.Wrap(err, "airtable: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "airtable: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "airtable: read response")
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, &PermissionError{BaseID: baseID, Body: string(respBody)}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{BaseID: baseID, TableID: tableID}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func (c *httpClient) ListRecords(ctx context.Context, baseID, tableID string, opts ListOptions) (*RecordList, error) {
	endpoint := c.tableURL(baseID, tableID)
	q := url.Values{}
	if opts.FilterByFormula != "" {
		q.Set("filterByFormula", opts.FilterByFormula)
	}
	if opts.Offset != "" {
		q.Set("offset", opts.Offset)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, baseID, tableID, nil)
	if err != nil {
		return nil, err
	}

	var list RecordList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, eris.Wrap(err, "airtable: unmarshal record list")
	}
	return &list, nil
}

func (c *httpClient) CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*Record, error) {
	body, err := c.do(ctx, http.MethodPost, c.tableURL(baseID, tableID), baseID, tableID, map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, eris.Wrap(err, "airtable: unmarshal record")
	}
	return &rec, nil
}

func (c *httpClient) UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*Record, error) {
	endpoint := c.tableURL(baseID, tableID) + "/" + url.PathEscape(recordID)
	body, err := c.do(ctx, http.MethodPatch, endpoint, baseID, tableID, map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, eris.Wrap(err, "airtable: unmarshal record")
	}
	return &rec, nil
}
