// Package acoustid looks up Chromaprint fingerprints against the AcoustID web
// service and returns the best-scoring match above the configured threshold.
package acoustid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tagbrain/internal/services"
)

// Match is the best AcoustID result for a fingerprint.
type Match struct {
	ID           string   `json:"id"`
	Score        float64  `json:"score"`
	RecordingIDs []string `json:"recording_ids"`
}

type lookupResponse struct {
	Status  string         `json:"status"`
	Results []lookupResult `json:"results"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type lookupResult struct {
	ID         string  `json:"id"`
	Score      float64 `json:"score"`
	Recordings []struct {
		ID string `json:"id"`
	} `json:"recordings"`
}

// Client provides access to the AcoustID lookup endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	threshold  float64
	limiter    *rate.Limiter
	httpClient *http.Client
}

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

// WithRateLimit overrides the request rate. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// New creates an AcoustID client. An empty apiKey is accepted; every Lookup
// then fails with services.ErrConfiguration so callers take their fallback.
func New(apiKey, baseURL string, threshold float64, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("acoustid base url required")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("acoustid match threshold %v out of range", threshold)
	}
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		threshold:  threshold,
		limiter:    rate.NewLimiter(rate.Limit(3), 1),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Lookup submits the fingerprint and returns the highest-scoring result.
// It fails with services.ErrNoMatch when no result carries recordings or the
// best score is below the threshold.
func (c *Client) Lookup(ctx context.Context, fp string, duration float64) (Match, error) {
	if c.apiKey == "" {
		return Match{}, services.Wrap(services.ErrConfiguration, "lookup", "acoustid", "api key not configured", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Match{}, services.Wrap(services.ErrTransient, "lookup", "acoustid", "rate limiter", err)
	}

	form := url.Values{}
	form.Set("client", c.apiKey)
	form.Set("meta", "recordingids")
	form.Set("format", "json")
	form.Set("duration", strconv.Itoa(int(math.Round(duration))))
	form.Set("fingerprint", fp)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lookup", strings.NewReader(form.Encode()))
	if err != nil {
		return Match{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return Match{}, services.Wrap(services.ErrTransient, "lookup", "acoustid", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Match{}, services.Wrap(services.ErrTransient, "lookup", "acoustid", fmt.Sprintf("decode response (status=%d)", resp.StatusCode), err)
	}
	if payload.Status != "ok" {
		msg := fmt.Sprintf("status %q (http %d)", payload.Status, resp.StatusCode)
		if payload.Error != nil {
			msg = fmt.Sprintf("error %d: %s", payload.Error.Code, payload.Error.Message)
		}
		return Match{}, services.Wrap(services.ErrTransient, "lookup", "acoustid", msg, nil)
	}
	return c.best(payload.Results)
}

func (c *Client) best(results []lookupResult) (Match, error) {
	if len(results) == 0 {
		return Match{}, services.Wrap(services.ErrNoMatch, "lookup", "acoustid", "no results", nil)
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	if len(best.Recordings) == 0 {
		return Match{}, services.Wrap(services.ErrNoMatch, "lookup", "acoustid", fmt.Sprintf("best result %s has no recordings", best.ID), nil)
	}
	if best.Score < c.threshold {
		return Match{}, services.Wrap(services.ErrNoMatch, "lookup", "acoustid",
			fmt.Sprintf("best score %.3f below threshold %.3f", best.Score, c.threshold), nil)
	}

	seen := make(map[string]struct{}, len(best.Recordings))
	ids := make([]string, 0, len(best.Recordings))
	for _, rec := range best.Recordings {
		if rec.ID == "" {
			continue
		}
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		ids = append(ids, rec.ID)
	}
	return Match{ID: best.ID, Score: best.Score, RecordingIDs: ids}, nil
}
