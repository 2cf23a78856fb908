// Package googlebooks is a client for the Google Books volume API.
package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://www.googleapis.com/books/v1/volumes"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxResults = 10
	// MaxResultsLimit is the largest page the provider serves.
	MaxResultsLimit = 40

	userAgent = "BookStack/1.0 (https://github.com/mrlokans/bookstack)"
)

// ErrVolumeNotFound is returned by GetByID when the provider has no volume
// with the requested id.
var ErrVolumeNotFound = errors.New("volume not found")

// StatusError reports a non-success response from the provider.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google books: unexpected status %d for %s", e.StatusCode, e.URL)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond limits outgoing calls; zero disables the limit.
	RequestsPerSecond float64
}

// Client fetches volumes from Google Books. It never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// Search runs a free-text query. maxResults outside 1..40 is clamped, and
// zero means the default page size.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (*Volumes, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(ClampMaxResults(maxResults)))
	return c.search(ctx, params)
}

// SearchByISBN queries volumes carrying the given ISBN.
func (c *Client) SearchByISBN(ctx context.Context, isbn string) (*Volumes, error) {
	params := url.Values{}
	params.Set("q", "isbn:"+isbn)
	return c.search(ctx, params)
}

// GetByID fetches a single volume.
func (c *Client) GetByID(ctx context.Context, id string) (*Volume, error) {
	var volume Volume
	err := c.get(ctx, c.baseURL+"/"+url.PathEscape(id), url.Values{}, &volume)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrVolumeNotFound, id)
		}
		return nil, err
	}
	volume.normalize()
	return &volume, nil
}

func (c *Client) search(ctx context.Context, params url.Values) (*Volumes, error) {
	var volumes Volumes
	if err := c.get(ctx, c.baseURL, params, &volumes); err != nil {
		return nil, err
	}
	volumes.normalize()
	return &volumes, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch volumes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, URL: redact(endpoint)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ClampMaxResults maps a requested page size onto the provider's range.
func ClampMaxResults(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxResults
	case n > MaxResultsLimit:
		return MaxResultsLimit
	default:
		return n
	}
}

// redact drops the API key from URLs that end up in error messages.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
