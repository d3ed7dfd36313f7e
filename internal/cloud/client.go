// Package cloud is the client side of the API: a thin HTTP client for the
// single endpoint and the Syncer that keeps the background layer in step
// with the server.
package cloud

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

	"PaintingOnWeb/internal/api"
)

var (
	ErrInvalidPassword = errors.New("cloud: invalid password")
	ErrOffline         = errors.New("cloud: server is not online")
)

// StatusError is returned for any response status the client does not map to
// a sentinel.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cloud: unexpected status %d: %s", e.Code, e.Body)
}

type (
	Status     = api.StatusResponse
	Prefs      = api.PrefsResponse
	Write      = api.SetBackgroundResponse
	AuthResult = api.AuthResponse
)

const defaultTimeout = 30 * time.Second

// Client calls one API path, e.g. http://host:8080/api/app.
type Client struct {
	endpoint   *url.URL
	apiPath    string
	eventsPath string
	http       *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption { return func(cl *Client) { cl.http = c } }

// WithAPIPath sets the path used when the endpoint URL names none. Empty
// keeps the default.
func WithAPIPath(p string) ClientOption {
	return func(cl *Client) {
		if p != "" {
			cl.apiPath = p
		}
	}
}

// WithEventsPath sets the websocket path used by EventsURL. Empty keeps the
// default.
func WithEventsPath(p string) ClientOption {
	return func(cl *Client) {
		if p != "" {
			cl.eventsPath = p
		}
	}
}

func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("cloud: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("cloud: endpoint %q: scheme must be http or https", endpoint)
	}
	c := &Client{
		endpoint:   u,
		apiPath:    api.DefaultAPIPath,
		eventsPath: api.DefaultEventsPath,
		http:       &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = c.apiPath
	}
	return c, nil
}

func (c *Client) Endpoint() string { return c.endpoint.String() }

// EventsURL is the websocket URL of the background event stream on the same
// host as the endpoint.
func (c *Client) EventsURL() string {
	u := *c.endpoint
	u.RawQuery = ""
	u.Path = c.eventsPath
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}

// Status probes the server and fails with ErrOffline unless it reports
// itself online.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := c.get(ctx, "", &st); err != nil {
		return Status{}, err
	}
	if st.Status != "online" {
		return st, fmt.Errorf("%w: status %q", ErrOffline, st.Status)
	}
	return st, nil
}

// Prefs fetches the global background; Background is nil when none was set.
func (c *Client) Prefs(ctx context.Context) (Prefs, error) {
	var p Prefs
	err := c.get(ctx, api.ActionGetPrefs, &p)
	return p, err
}

// SetBackground overwrites the global background with data.
func (c *Client) SetBackground(ctx context.Context, data string) (Write, error) {
	var w Write
	err := c.post(ctx, api.Request{Action: api.ActionSetBackground, Data: &data}, &w)
	return w, err
}

// Auth registers or logs in. A wrong password is ErrInvalidPassword.
func (c *Client) Auth(ctx context.Context, username, password string) (AuthResult, error) {
	var res AuthResult
	err := c.post(ctx, api.Request{Action: api.ActionAuth, Username: username, Password: password}, &res)
	return res, err
}

func (c *Client) get(ctx context.Context, action string, out any) error {
	u := *c.endpoint
	if action != "" {
		q := u.Query()
		q.Set("action", action)
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("cloud: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, body api.Request, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("cloud: encode %s: %w", body.Action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("cloud: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cloud: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrInvalidPassword
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cloud: decode response: %w", err)
	}
	return nil
}
