package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the per-request timeout for upstream calls.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for upstream requests
	UserAgent = "registry-proxy/1.0"

	// MaxPageLimit is the largest page size the upstream list endpoint accepts.
	MaxPageLimit = 100
)

// Client is the interface for upstream registry operations.
type Client interface {
	// ListServers fetches one page of server entities.
	ListServers(ctx context.Context, params ListParams) (*ListResponse, error)

	// GetServer resolves a single server entity by name. An empty version
	// means "latest".
	GetServer(ctx context.Context, name, version string) (*ServerEntity, error)
}

// HTTPClient is the default Client implementation over net/http.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the given registry base URL. A trailing
// slash on the base URL is stripped. If timeout is 0, DefaultTimeout is used.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListServers fetches one page of server entities from /v0/servers.
func (c *HTTPClient) ListServers(ctx context.Context, params ListParams) (*ListResponse, error) {
	q := url.Values{}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Version != "" {
		q.Set("version", params.Version)
	}

	reqURL := c.baseURL + "/v0/servers"
	if encoded := q.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse server list response: %w", err)
	}
	return &resp, nil
}

// GetServer resolves a single server entity from /v0/servers/{name}.
func (c *HTTPClient) GetServer(ctx context.Context, name, version string) (*ServerEntity, error) {
	if name == "" {
		return nil, fmt.Errorf("server name is required")
	}

	reqURL := c.baseURL + "/v0/servers/" + url.PathEscape(name)
	if version != "" {
		reqURL += "?version=" + url.QueryEscape(version)
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var entity ServerEntity
	if err := json.Unmarshal(body, &entity); err != nil {
		return nil, fmt.Errorf("failed to parse server response: %w", err)
	}
	return &entity, nil
}

// get performs an HTTP GET request with size limits and status checking.
func (c *HTTPClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, reqURL, resp.Status)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
			resp.ContentLength, MaxResponseSize)
	}

	// Use LimitReader to prevent reading more than MaxResponseSize;
	// +1 to detect if the limit was exceeded.
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	return body, nil
}
