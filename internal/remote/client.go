package remote

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
	"time"

	"github.com/five82/nudge/internal/reminders"
)

// SettingsStore defines load/save of reminder settings.
// This interface is implemented by *Client and can be used for testing.
type SettingsStore interface {
	Load(ctx context.Context) (reminders.Settings, error)
	Save(ctx context.Context, s reminders.Settings) (reminders.Settings, error)
}

// Ensure Client implements SettingsStore at compile time.
var _ SettingsStore = (*Client)(nil)

// ErrNotFound is returned when the API has no settings resource.
var ErrNotFound = errors.New("settings not found")

// StatusError is returned for 4xx/5xx responses.
type StatusError struct {
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Client talks to the settings HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIBind   = "127.0.0.1:7490"
	defaultUserAgent = "nudge/0.1"
	defaultTimeout   = 5 * time.Second
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a Client using the provided apiBind host:port value.
func NewClient(apiBind string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Load fetches the stored reminder settings.
func (c *Client) Load(ctx context.Context) (reminders.Settings, error) {
	if c == nil {
		return reminders.Settings{}, fmt.Errorf("client is nil")
	}
	var payload Payload
	if err := c.do(ctx, http.MethodGet, SettingsPath, nil, &payload); err != nil {
		return reminders.Settings{}, err
	}
	s, err := payload.Settings()
	if err != nil {
		return reminders.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Save replaces the stored reminder settings and returns what the server kept.
func (c *Client) Save(ctx context.Context, s reminders.Settings) (reminders.Settings, error) {
	if c == nil {
		return reminders.Settings{}, fmt.Errorf("client is nil")
	}
	var payload Payload
	if err := c.do(ctx, http.MethodPut, SettingsPath, FromSettings(s), &payload); err != nil {
		return reminders.Settings{}, err
	}
	saved, err := payload.Settings()
	if err != nil {
		return reminders.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return saved, nil
}

// Ping checks that the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

type requestIDKey struct{}

// WithRequestID attaches an id sent as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&apiErr)
		return &StatusError{Path: rel.String(), Code: resp.StatusCode, Message: strings.TrimSpace(apiErr.Error)}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
