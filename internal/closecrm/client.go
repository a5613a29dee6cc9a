// Package closecrm is a thin client for the Close CRM REST API. It covers
// only the calls the history pipeline reads: contact search, the user
// directory, activity fetch, and outbound email. Calls fail fast on non-2xx
// responses; retry and fallback policy lives with the callers.
package closecrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"careops/backend/internal/config"
)

const defaultSearchLimit = 100

// APIError is a non-2xx response from the Close API. The status and body are
// surfaced verbatim so callers can decide whether to try another strategy.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("close api: status %d: %s", e.StatusCode, e.Body)
}

// Client issues authenticated requests to the Close API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Close API client. The configured timeout applies to every
// outbound call; a timeout surfaces as a transport error to the caller.
func New(cfg config.CloseConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SearchContacts runs a structured contact search, e.g. "email:a@x.com" or
// "phone:+61400000000". A single bounded page is returned.
func (c *Client) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("_limit", strconv.Itoa(defaultSearchLimit))

	var resp struct {
		Data    []Contact `json:"data"`
		HasMore bool      `json:"has_more"`
	}
	if err := c.get(ctx, "/contact/", params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListUsers fetches the organization's user directory in one bulk call
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp struct {
		Data    []User `json:"data"`
		HasMore bool   `json:"has_more"`
	}
	if err := c.get(ctx, "/user/", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListActivities fetches one bounded page of activities matching the filter.
// has_more is decoded but not followed; exhaustive pagination is a drop-in
// extension point, not current scope.
func (c *Client) ListActivities(ctx context.Context, filter ActivityFilter) ([]Activity, error) {
	params := url.Values{}
	switch {
	case filter.ContactID != "":
		params.Set("contact_id", filter.ContactID)
	case filter.LeadID != "":
		params.Set("lead_id", filter.LeadID)
	case !filter.Since.IsZero():
		params.Set("date_created__gt", filter.Since.UTC().Format(time.RFC3339))
	default:
		return nil, fmt.Errorf("activity filter requires a contact id, lead id, or since date")
	}
	if filter.Limit > 0 {
		params.Set("_limit", strconv.Itoa(filter.Limit))
	}

	var resp struct {
		Data    []Activity `json:"data"`
		HasMore bool       `json:"has_more"`
	}
	if err := c.get(ctx, "/activity/", params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SendEmail creates an outbound email activity in Close
func (c *Client) SendEmail(ctx context.Context, req EmailRequest) (*Activity, error) {
	if req.Status == "" {
		req.Status = "outbox"
	}

	var activity Activity
	if err := c.post(ctx, "/activity/email/", req, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	// HTTP Basic auth, API key as username with an empty password
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("close api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode close api response: %w", err)
	}
	return nil
}
