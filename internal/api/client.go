// Package api is the client for the session server's REST surface:
// session create/status/delete, prompt submission and approval
// decisions.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 30 * time.Second

// Client talks to one session server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	var resp CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", req, &resp); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &resp, nil
}

// ListSessions lists active sessions, optionally filtered by status.
// A limit of zero uses the server default.
func (c *Client) ListSessions(ctx context.Context, status string, limit int) (*SessionList, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp SessionList
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return &resp, nil
}

func (c *Client) SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	var resp SessionStatus
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &resp); err != nil {
		return nil, fmt.Errorf("session status: %w", err)
	}
	return &resp, nil
}

func (c *Client) SubmitPrompt(ctx context.Context, sessionID string, req PromptRequest) (*PromptResponse, error) {
	var resp PromptResponse
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/prompt"), req, &resp); err != nil {
		return nil, fmt.Errorf("submit prompt: %w", err)
	}
	return &resp, nil
}

func (c *Client) SubmitApproval(ctx context.Context, sessionID, decision string) (*ApprovalResponse, error) {
	var resp ApprovalResponse
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/approval"), ApprovalRequest{Decision: decision}, &resp); err != nil {
		return nil, fmt.Errorf("submit approval: %w", err)
	}
	return &resp, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) (*DeleteSessionResponse, error) {
	var resp DeleteSessionResponse
	if err := c.do(ctx, http.MethodDelete, sessionPath(sessionID, ""), nil, &resp); err != nil {
		return nil, fmt.Errorf("delete session: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListProfiles(ctx context.Context) (*ProfileList, error) {
	var resp ProfileList
	if err := c.do(ctx, http.MethodGet, "/profiles", nil, &resp); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	return &resp, nil
}

// EventsURL is the SSE endpoint for a session.
func (c *Client) EventsURL(sessionID string) string {
	return c.baseURL + sessionPath(sessionID, "/events")
}

func sessionPath(sessionID, suffix string) string {
	return "/sessions/" + url.PathEscape(sessionID) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
