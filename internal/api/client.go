package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tagbrain/internal/config"
)

// ErrAPIUnavailable reports that no daemon is listening.
var ErrAPIUnavailable = errors.New("daemon API unavailable")

// Error is a non-2xx response from the daemon.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("daemon returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the daemon HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient builds a client for the daemon bound at bind, which may be a
// host:port or a full URL.
func NewClient(bind string, opts ...ClientOption) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address is required")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	c := &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Scan queues path for identification.
func (c *Client) Scan(ctx context.Context, path string) (Task, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodPost, "/api/scan", nil, ScanRequest{Path: path}, &resp)
	return resp.Task, err
}

// ScanAll queues every file under the source directory.
func (c *Client) ScanAll(ctx context.Context) (int, error) {
	var resp ScanAllResponse
	err := c.do(ctx, http.MethodPost, "/api/scan-all", nil, nil, &resp)
	return resp.Queued, err
}

// Queue lists pending tasks.
func (c *Client) Queue(ctx context.Context) (QueueResponse, error) {
	var resp QueueResponse
	err := c.do(ctx, http.MethodGet, "/api/queue", nil, nil, &resp)
	return resp, err
}

// ClearQueue drops pending tasks.
func (c *Client) ClearQueue(ctx context.Context) (int64, error) {
	var resp ClearResponse
	err := c.do(ctx, http.MethodDelete, "/api/queue", nil, nil, &resp)
	return resp.Removed, err
}

// Logs returns one page of the scan log, newest first.
func (c *Client) Logs(ctx context.Context, limit, page int) (LogsResponse, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	var resp LogsResponse
	err := c.do(ctx, http.MethodGet, "/api/logs", values, nil, &resp)
	return resp, err
}

// FailedLogs returns every failed entry.
func (c *Client) FailedLogs(ctx context.Context) (LogsResponse, error) {
	var resp LogsResponse
	err := c.do(ctx, http.MethodGet, "/api/logs", url.Values{"failed": {"1"}}, nil, &resp)
	return resp, err
}

// ClearLogs deletes scan-log rows. keepFailed preserves failures.
func (c *Client) ClearLogs(ctx context.Context, keepFailed bool) (int64, error) {
	var values url.Values
	if keepFailed {
		values = url.Values{"keep_failed": {"1"}}
	}
	var resp ClearResponse
	err := c.do(ctx, http.MethodDelete, "/api/logs", values, nil, &resp)
	return resp.Removed, err
}

// Fix queues a re-tag of an organized file.
func (c *Client) Fix(ctx context.Context, req FixRequest) (Task, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodPost, "/api/fix", nil, req, &resp)
	return resp.Task, err
}

// FixFailed queues filing of a failed source.
func (c *Client) FixFailed(ctx context.Context, req FixFailedRequest) (Task, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodPost, "/api/fix-failed", nil, req, &resp)
	return resp.Task, err
}

// Config reads the daemon configuration.
func (c *Client) Config(ctx context.Context) (ConfigResponse, error) {
	var resp ConfigResponse
	err := c.do(ctx, http.MethodGet, "/api/config", nil, nil, &resp)
	return resp, err
}

// PutConfig replaces the daemon configuration and persists it.
func (c *Client) PutConfig(ctx context.Context, cfg config.Config) (ConfigResponse, error) {
	var resp ConfigResponse
	err := c.do(ctx, http.MethodPut, "/api/config", nil, cfg, &resp)
	return resp, err
}

// Status returns daemon diagnostics.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &Error{StatusCode: resp.StatusCode}
		var decoded ErrorResponse
		if json.Unmarshal(raw, &decoded) == nil && decoded.Error != "" {
			apiErr.Message = decoded.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
