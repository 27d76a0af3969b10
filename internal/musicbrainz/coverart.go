package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tagbrain/internal/services"
)

const maxCoverBytes = 32 << 20

// CoverArt is an image downloaded from the Cover Art Archive.
type CoverArt struct {
	Data     []byte
	MIMEType string
}

// CoverArtClient downloads front covers by release id.
type CoverArtClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewCoverArtClient creates a Cover Art Archive client.
func NewCoverArtClient(baseURL, userAgent string, httpClient *http.Client) (*CoverArtClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("cover art base url required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &CoverArtClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  strings.TrimSpace(userAgent),
		httpClient: httpClient,
	}, nil
}

// FetchFront downloads /release/{id}/front, following the archive's redirect.
// A release without artwork yields services.ErrNotFound.
func (c *CoverArtClient) FetchFront(ctx context.Context, releaseID string) (*CoverArt, error) {
	releaseID = strings.TrimSpace(releaseID)
	if releaseID == "" {
		return nil, services.Wrap(services.ErrValidation, "cover art", "fetch", "empty release id", nil)
	}
	endpoint := c.baseURL + "/release/" + url.PathEscape(releaseID) + "/front"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "cover art", "fetch", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "cover art", "fetch", releaseID, nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrTransient, "cover art", "fetch", fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "cover art", "read body", releaseID, err)
	}
	if len(data) > maxCoverBytes {
		return nil, services.Wrap(services.ErrValidation, "cover art", "read body", "image exceeds 32 MiB", nil)
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &CoverArt{Data: data, MIMEType: mimeType}, nil
}
