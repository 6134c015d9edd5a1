// Package weather retrieves and summarizes CIMIS daily weather data: a
// fetch-or-load file cache in front of the station API, and a tolerant parser
// that aggregates type errors instead of failing on the first bad field.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the CIMIS daily-data endpoint.
const DefaultBaseURL = "https://et.water.ca.gov/api/data"

// DateParam is the date format the CIMIS API expects in query parameters.
const DateParam = "2006-01-02"

// ErrFetch marks network or HTTP failures retrieving the weather document.
// Fetch failures are fatal for the cycle; no stale data is substituted.
var ErrFetch = errors.New("weather fetch failed")

// Fetcher retrieves the raw provider document for one inclusive date range.
type Fetcher interface {
	Fetch(ctx context.Context, start, end time.Time) ([]byte, error)
}

// Client fetches daily records for one station. Requests run behind a
// circuit breaker so a flapping provider trips fast in interval mode instead
// of stalling every cycle on its timeout.
type Client struct {
	baseURL string
	station string
	appKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(station, appKey string) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		station: station,
		appKey:  appKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "cimis",
			Timeout: 60 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Fetch performs the GET for [start, end] and returns the raw JSON document.
func (c *Client) Fetch(ctx context.Context, start, end time.Time) ([]byte, error) {
	if c.station == "" || c.appKey == "" {
		return nil, fmt.Errorf("%w: missing station id or app key", ErrFetch)
	}

	q := url.Values{}
	q.Set("appKey", c.appKey)
	q.Set("targets", c.station)
	q.Set("startDate", start.Format(DateParam))
	q.Set("endDate", end.Format(DateParam))
	reqURL := c.baseURL + "?" + q.Encode()

	res, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: station %s [%s..%s]: %w", ErrFetch,
			c.station, start.Format(DateParam), end.Format(DateParam), err)
	}
	return res.([]byte), nil
}
