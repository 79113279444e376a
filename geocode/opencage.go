// Package geocode turns GPS coordinates into human-readable place names
// through the OpenCage reverse-geocoding API, with a quantized cache that
// bounds external calls to at most one per distinct location key.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"photodb/logging"
	"photodb/types"
)

const (
	defaultBaseURL = "https://api.opencagedata.com/geocode/v1/json"
	requestTimeout = 10 * time.Second

	// allowedRequests is the free-tier daily quota assumed until the
	// first response reports the real remaining count.
	allowedRequests = 2500

	// quotaFloor stops the run before the very last requests are spent.
	quotaFloor = 5
)

var (
	// ErrAuthFailed means the API rejected the credentials; no further
	// call this run can succeed.
	ErrAuthFailed = errors.New("geocoding authentication failed")

	// ErrQuotaExhausted means the remaining request quota fell below the
	// floor; the run stops rather than burning the last requests.
	ErrQuotaExhausted = errors.New("geocoding request quota exhausted")

	// ErrRateLimited means the service asked us to back off.
	ErrRateLimited = errors.New("geocoding rate limit hit")

	// ErrNoResult means the service had no place for these coordinates.
	ErrNoResult = errors.New("geocoding returned no result")
)

// IsFatal reports whether an error dooms every subsequent resolution,
// so the whole run should stop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrQuotaExhausted)
}

// IsRetryable reports whether one bounded retry with backoff is worthwhile.
// Malformed responses and empty results are not: the same request would
// fail the same way.
func IsRetryable(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Client issues reverse-geocoding requests against the OpenCage API and
// tracks the remaining request quota reported in each response.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string

	mu        sync.Mutex
	remaining int
}

// NewClient creates an API client with a request timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		remaining:  allowedRequests,
	}
}

// NewClientWithBaseURL is NewClient against a non-default endpoint.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type opencageResponse struct {
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	// Rate is a pointer so a response omitting it entirely can be told
	// apart from one reporting the quota as fully spent.
	Rate *struct {
		Remaining int `json:"remaining"`
	} `json:"rate"`
	Results []struct {
		Components struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
			State   string `json:"state"`
			Country string `json:"country"`
		} `json:"components"`
	} `json:"results"`
}

// Lookup issues one reverse-geocoding request and composes the place
// description as "City, Region, Country" from the response components.
func (c *Client) Lookup(ctx context.Context, coords types.Coordinates) (string, error) {
	c.mu.Lock()
	if c.remaining < quotaFloor {
		c.mu.Unlock()
		return "", ErrQuotaExhausted
	}
	c.mu.Unlock()

	query := fmt.Sprintf("%f+%f", coords.Latitude, coords.Longitude)
	reqURL := fmt.Sprintf("%s?q=%s&key=%s", c.baseURL, url.QueryEscape(query), url.QueryEscape(c.apiKey))

	logging.Info("retrieving inverse geolocation for %s", coords)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("building geocoding request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrAuthFailed
	}

	// Rate-limited responses still carry rate.remaining, so decode the
	// body before acting on the status: an exhausted quota must stop the
	// run instead of soft-failing every record.
	var parsed opencageResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
	if parsed.Rate != nil {
		c.mu.Lock()
		c.remaining = parsed.Rate.Remaining
		c.mu.Unlock()
	}

	switch resp.StatusCode {
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return "", c.rateLimitErr()
	}
	if decodeErr != nil {
		return "", fmt.Errorf("malformed geocoding response: %v", decodeErr)
	}

	switch parsed.Status.Code {
	case 0, http.StatusOK:
		// fall through to results
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrAuthFailed
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return "", c.rateLimitErr()
	default:
		return "", fmt.Errorf("geocoding status %d: %s", parsed.Status.Code, parsed.Status.Message)
	}

	if len(parsed.Results) == 0 {
		return "", ErrNoResult
	}

	comp := parsed.Results[0].Components
	city := comp.City
	if city == "" {
		city = comp.Town
	}
	if city == "" {
		city = comp.Village
	}

	var parts []string
	for _, p := range []string{city, comp.State, comp.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoResult
	}

	return strings.Join(parts, ", "), nil
}

// rateLimitErr distinguishes an exhausted quota from a transient
// throttle. Lookup only runs while remaining is at or above the floor,
// so a below-floor count here was reported by the response just seen.
func (c *Client) rateLimitErr() error {
	c.mu.Lock()
	below := c.remaining < quotaFloor
	c.mu.Unlock()
	if below {
		return ErrQuotaExhausted
	}
	return ErrRateLimited
}

// Remaining reports the request quota last seen from the service.
func (c *Client) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
