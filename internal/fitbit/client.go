// Package fitbit is a minimal client for the Fitbit Web API time-series
// endpoints. Authentication is delegated to an oauth2.TokenSource; every
// request carries the bearer token it provides.
package fitbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Fitbit Web API root.
const DefaultBaseURL = "https://api.fitbit.com"

// requestTimeout bounds each API call; a single yearly series is a small
// JSON document.
const requestTimeout = 60 * time.Second

// Time-series periods accepted by the API.
const (
	Period1Day   = "1d"
	Period1Month = "1m"
	Period1Year  = "1y"
	PeriodMax    = "max"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (e.g. for tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithTransport sets a custom base transport underneath the bearer-token
// transport. If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.base = transport
	}
}

// Client calls the Fitbit Web API on behalf of a single user.
type Client struct {
	baseURL    string
	base       http.RoundTripper
	httpClient *http.Client
}

// New creates a Client that authenticates every request with tokens from
// source.
func New(source oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = &http.Client{
		Timeout: requestTimeout,
		Transport: &oauth2.Transport{
			Source: source,
			Base:   c.base,
		},
	}
	return c
}

// Point is one day of a time series. Value keeps the server's numeric
// precision (steps are integral, distances are not).
type Point struct {
	Date  string
	Value float64
}

// APIError is a non-2xx response from the Fitbit API.
type APIError struct {
	StatusCode int
	// RetryAfter is the server-requested backoff on rate limiting, zero
	// otherwise.
	RetryAfter time.Duration
	Body       string
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("fitbit API rate limited (HTTP %d, retry after %s)", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("fitbit API error (HTTP %d): %s", e.StatusCode, e.Body)
}

// TimeSeries fetches one period of the given resource (e.g.
// "activities/steps") anchored at baseDate. The period extends backwards
// from baseDate per the API contract.
func (c *Client) TimeSeries(ctx context.Context, resource string, baseDate time.Time, period string) ([]Point, error) {
	url := fmt.Sprintf("%s/1/user/-/%s/date/%s/%s.json",
		c.baseURL, resource, baseDate.Format("2006-01-02"), period)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building time-series request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", resource, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	// The response keys the series by the resource path with slashes
	// flattened: activities/steps -> activities-steps.
	var payload map[string][]rawPoint
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", resource, err)
	}

	key := strings.ReplaceAll(resource, "/", "-")
	raw, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("response missing %q series", key)
	}

	points := make([]Point, 0, len(raw))
	for _, p := range raw {
		value, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric value %q for %s on %s: %w", p.Value, resource, p.DateTime, err)
		}
		points = append(points, Point{Date: p.DateTime, Value: value})
	}
	return points, nil
}

// rawPoint mirrors the wire format; values arrive as strings.
type rawPoint struct {
	DateTime string `json:"dateTime"`
	Value    string `json:"value"`
}

func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return apiErr
}
