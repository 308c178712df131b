package fitbit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func staticSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

func TestTimeSeries(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"activities-steps": [
			{"dateTime": "2015-07-26", "value": "4352"},
			{"dateTime": "2015-07-27", "value": "0"},
			{"dateTime": "2015-07-28", "value": "11023"}
		]}`))
	}))
	defer server.Close()

	client := New(staticSource("tok1"), WithBaseURL(server.URL))
	points, err := client.TimeSeries(context.Background(), "activities/steps",
		time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC), Period1Year)
	if err != nil {
		t.Fatalf("TimeSeries(): %v", err)
	}

	if gotPath != "/1/user/-/activities/steps/date/2015-12-31/1y.json" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer tok1" {
		t.Errorf("Authorization = %q, want Bearer tok1", gotAuth)
	}

	want := []Point{
		{Date: "2015-07-26", Value: 4352},
		{Date: "2015-07-27", Value: 0},
		{Date: "2015-07-28", Value: 11023},
	}
	if len(points) != len(want) {
		t.Fatalf("got %d points, want %d", len(points), len(want))
	}
	for i, p := range want {
		if points[i] != p {
			t.Errorf("point %d = %+v, want %+v", i, points[i], p)
		}
	}
}

func TestTimeSeriesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors": [{"errorType": "expired_token"}]}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(staticSource("stale"), WithBaseURL(server.URL))
	_, err := client.TimeSeries(context.Background(), "activities/steps", time.Now(), Period1Year)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("TimeSeries() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
}

func TestTimeSeriesRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(staticSource("tok1"), WithBaseURL(server.URL))
	_, err := client.TimeSeries(context.Background(), "activities/steps", time.Now(), Period1Year)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("TimeSeries() error = %v, want *APIError", err)
	}
	if apiErr.RetryAfter != time.Hour {
		t.Errorf("RetryAfter = %s, want 1h", apiErr.RetryAfter)
	}
}

func TestTimeSeriesMissingSeriesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activities-distance": []}`))
	}))
	defer server.Close()

	client := New(staticSource("tok1"), WithBaseURL(server.URL))
	if _, err := client.TimeSeries(context.Background(), "activities/steps", time.Now(), Period1Year); err == nil {
		t.Error("TimeSeries() accepted a response without the requested series")
	}
}

func TestTimeSeriesNonNumericValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activities-steps": [{"dateTime": "2015-07-26", "value": "lots"}]}`))
	}))
	defer server.Close()

	client := New(staticSource("tok1"), WithBaseURL(server.URL))
	if _, err := client.TimeSeries(context.Background(), "activities/steps", time.Now(), Period1Year); err == nil {
		t.Error("TimeSeries() accepted a non-numeric value")
	}
}
