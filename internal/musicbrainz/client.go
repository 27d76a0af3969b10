package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tagbrain/internal/services"
)

const (
	recordingIncludes = "releases+release-groups+artists"
	releaseIncludes   = "artists+recordings+labels+release-groups"
)

// Catalog defines the catalog operations the scanner depends on.
type Catalog interface {
	FetchRecording(ctx context.Context, id string) (*Recording, error)
	FetchRelease(ctx context.Context, id string) (*Release, error)
	SearchByTitle(ctx context.Context, title string) ([]Recording, error)
}

// Client provides rate-limited access to the MusicBrainz web service.
type Client struct {
	baseURL     string
	userAgent   string
	searchLimit int
	gate        *Gate
	httpClient  *http.Client
}

var _ Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithGate shares an existing gate instead of creating one.
func WithGate(gate *Gate) Option {
	return func(c *Client) {
		if gate != nil {
			c.gate = gate
		}
	}
}

// WithSearchLimit sets the maximum number of recordings a search returns.
func WithSearchLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.searchLimit = limit
		}
	}
}

// New creates a MusicBrainz client. The default gate holds for one second.
func New(baseURL, userAgent string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("musicbrainz base url required")
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return nil, errors.New("musicbrainz user agent required")
	}
	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   userAgent,
		searchLimit: 15,
		gate:        NewGate(time.Second),
		httpClient:  &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchRecording returns a recording with its releases, release groups, and
// artist credits.
func (c *Client) FetchRecording(ctx context.Context, id string) (*Recording, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "fetch recording", "empty id", nil)
	}
	var recording Recording
	params := url.Values{"inc": {recordingIncludes}}
	if err := c.get(ctx, "/recording/"+url.PathEscape(id), params, &recording); err != nil {
		return nil, services.Wrap(services.ErrCatalogRequest, "catalog", "fetch recording", id, err)
	}
	return &recording, nil
}

// FetchRelease returns the full release record including media and tracks.
func (c *Client) FetchRelease(ctx context.Context, id string) (*Release, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "fetch release", "empty id", nil)
	}
	var release Release
	params := url.Values{"inc": {releaseIncludes}}
	if err := c.get(ctx, "/release/"+url.PathEscape(id), params, &release); err != nil {
		return nil, services.Wrap(services.ErrCatalogRequest, "catalog", "fetch release", id, err)
	}
	return &release, nil
}

// SearchByTitle runs a recording search on the exact title phrase.
func (c *Client) SearchByTitle(ctx context.Context, title string) ([]Recording, error) {
	if strings.TrimSpace(title) == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "search", "empty title", nil)
	}
	params := url.Values{
		"query": {TitleQuery(title)},
		"limit": {strconv.Itoa(c.searchLimit)},
	}
	var payload searchResponse
	if err := c.get(ctx, "/recording", params, &payload); err != nil {
		return nil, services.Wrap(services.ErrCatalogRequest, "catalog", "search", title, err)
	}
	return payload.Recordings, nil
}

// TitleQuery builds the Lucene phrase query for a recording title.
func TitleQuery(title string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(title)
	return `recording:"` + escaped + `"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("fmt", "json")
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	if err := c.gate.Acquire(ctx); err != nil {
		return fmt.Errorf("wait for rate gate: %w", err)
	}
	defer c.gate.Release()

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("musicbrainz returned %d (latency=%v): %s", resp.StatusCode, latency, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", services.ErrNotFound, statusErr)
		}
		return statusErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode musicbrainz response: %w", err)
	}
	return nil
}
