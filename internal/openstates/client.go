// Package openstates fetches bill and legislator detail from the Open States API.
package openstates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/DeafMist/bills-enricher/internal/models"
)

// HTTPClient matches the Do method of *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-200 response from the API.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("open states returned HTTP %d for %s", e.StatusCode, e.URL)
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string
	State       string
	Session     string
	Timeout     time.Duration
	MaxInFlight int
	HTTPClient  HTTPClient
}

// Client talks to the Open States v1 API.
type Client struct {
	http     HTTPClient
	base     string
	billPath string
	apiKey   string
	timeout  time.Duration
	inFlight *semaphore.Weighted
}

// New builds a Client. A nil HTTPClient falls back to http.DefaultClient.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	billPath := base + "/bills/"
	if cfg.State != "" && cfg.Session != "" {
		billPath += url.PathEscape(cfg.State) + "/" + url.PathEscape(cfg.Session) + "/"
	}

	return &Client{
		http:     hc,
		base:     base,
		billPath: billPath,
		apiKey:   cfg.APIKey,
		timeout:  timeout,
		inFlight: semaphore.NewWeighted(int64(maxInFlight)),
	}
}

// BillURL returns the detail URL for a bill id, percent-encoding the id.
func (c *Client) BillURL(billID string) string {
	return c.billPath + url.PathEscape(billID) + "/?apikey=" + url.QueryEscape(c.apiKey)
}

// LegislatorURL returns the detail URL for a legislator id.
func (c *Client) LegislatorURL(legID string) string {
	return c.base + "/legislators/" + url.PathEscape(legID) + "/?apikey=" + url.QueryEscape(c.apiKey)
}

// FetchBill retrieves bill detail.
func (c *Client) FetchBill(ctx context.Context, billID string) (*models.BillDetail, error) {
	var detail models.BillDetail
	if err := c.getJSON(ctx, c.BillURL(billID), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FetchLegislator retrieves legislator detail.
func (c *Client) FetchLegislator(ctx context.Context, legID string) (*models.Legislator, error) {
	var leg models.Legislator
	if err := c.getJSON(ctx, c.LegislatorURL(legID), &leg); err != nil {
		return nil, err
	}
	return &leg, nil
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	if err := c.inFlight.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for request slot: %w", err)
	}
	defer c.inFlight.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", target, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, res.Body)
		return &StatusError{URL: target, StatusCode: res.StatusCode}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}
	return nil
}
