// ABOUTME: HTTP client for the backend run API: run creation and URL construction for streams and artifacts.
// ABOUTME: Owns the two configured base URLs (HTTP and WebSocket) and derives every endpoint from them.
package runapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Default base URLs used when none are configured.
const (
	DefaultHTTPBase = "http://127.0.0.1:8000"
	DefaultWSBase   = "ws://127.0.0.1:8000"
)

// ArtifactPath is the static path under which the backend serves plot files.
const ArtifactPath = "/xrd_outputs/"

// ErrNoRunID is returned when the backend accepts a run but omits its id.
var ErrNoRunID = errors.New("runapi: response missing run_id")

// RunID is an opaque identifier for one backend execution.
type RunID string

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("runapi: http %d", e.Status)
	}
	return fmt.Sprintf("runapi: http %d: %s", e.Status, e.Message)
}

// Client talks to the run API.
type Client struct {
	httpBase   *url.URL
	wsBase     *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. No timeout is applied by
// default; callers bound requests through the context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New builds a Client. Empty bases fall back to the loopback defaults; an
// empty WS base is derived from the HTTP base.
func New(httpBase, wsBase string, opts ...Option) (*Client, error) {
	if httpBase == "" {
		httpBase = DefaultHTTPBase
	}
	if wsBase == "" {
		wsBase = DeriveWSBase(httpBase)
	}
	hu, err := parseBase(httpBase, "http", "https")
	if err != nil {
		return nil, fmt.Errorf("runapi: http base: %w", err)
	}
	wu, err := parseBase(wsBase, "ws", "wss")
	if err != nil {
		return nil, fmt.Errorf("runapi: ws base: %w", err)
	}
	c := &Client{
		httpBase:   hu,
		wsBase:     wu,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DeriveWSBase swaps the scheme of an HTTP base for its WebSocket counterpart.
func DeriveWSBase(httpBase string) string {
	switch {
	case strings.HasPrefix(httpBase, "https://"):
		return "wss://" + strings.TrimPrefix(httpBase, "https://")
	case strings.HasPrefix(httpBase, "http://"):
		return "ws://" + strings.TrimPrefix(httpBase, "http://")
	}
	return DefaultWSBase
}

func parseBase(raw string, schemes ...string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return nil, fmt.Errorf("missing host in %q", raw)
			}
			return u, nil
		}
	}
	return nil, fmt.Errorf("unsupported scheme %q in %q", u.Scheme, raw)
}

// HTTPBase returns the configured HTTP base URL.
func (c *Client) HTTPBase() string { return c.httpBase.String() }

// WSBase returns the configured WebSocket base URL.
func (c *Client) WSBase() string { return c.wsBase.String() }

type createRunRequest struct {
	Input string `json:"input"`
}

type createRunResponse struct {
	RunID RunID `json:"run_id"`
}

// CreateRun posts the prompt and returns the new run's id.
func (c *Client) CreateRun(ctx context.Context, input string) (RunID, error) {
	body, err := json.Marshal(createRunRequest{Input: input})
	if err != nil {
		return "", fmt.Errorf("runapi: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/runs"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("runapi: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("runapi: create run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeAPIError(resp)
	}

	var out createRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("runapi: decode response: %w", err)
	}
	if out.RunID == "" {
		return "", ErrNoRunID
	}
	return out.RunID, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body map[string]any
	if err := json.Unmarshal(data, &body); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			if msg, ok := body[key].(string); ok {
				apiErr.Message = msg
				return apiErr
			}
		}
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

// StreamURL returns the WebSocket URL for a run's event stream.
func (c *Client) StreamURL(id RunID) string {
	u := *c.wsBase
	u.Path = c.wsBase.Path + "/api/runs/" + string(id) + "/stream"
	return u.String()
}

// ArtifactURL returns the URL serving a plot artifact. Only the base
// filename of artifactPath is used.
func (c *Client) ArtifactURL(artifactPath string) string {
	return ArtifactURL(c.HTTPBase(), artifactPath)
}

// ArtifactURL joins an HTTP base with the artifact-serving path and the base
// filename of artifactPath.
func ArtifactURL(httpBase, artifactPath string) string {
	name := artifactPath
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimRight(httpBase, "/") + ArtifactPath + url.PathEscape(name)
}

func (c *Client) endpoint(path string) string {
	u := *c.httpBase
	u.Path = c.httpBase.Path + path
	return u.String()
}
