// Package api is the HTTP client for the calendar backend. Every method
// maps to one endpoint, attaches the stored bearer token and returns the
// decoded body or a typed error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/theakshaypant/calmerge/internal/core"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// Alerter receives failures a user should see immediately. Recoverable
// statuses (404, 422) are never passed to it.
type Alerter interface {
	Alert(err error)
}

// AlertFunc adapts a function to the Alerter interface.
type AlertFunc func(err error)

func (f AlertFunc) Alert(err error) { f(err) }

// Client talks to the backend.
type Client struct {
	base    *url.URL
	baseErr error
	// auth carries the stored bearer token, anon is used for login and
	// registration.
	auth    *http.Client
	anon    *http.Client
	alerter Alerter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout   time.Duration
	transport http.RoundTripper
	alerter   Alerter
	logger    *slog.Logger
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTransport sets the base RoundTripper (tests, proxies).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithAlerter registers the receiver of non-recoverable failures.
func WithAlerter(a Alerter) Option {
	return func(o *clientOptions) { o.alerter = a }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// New builds a client for baseURL. An empty or invalid base URL does not
// fail here; every request fails fast with a *ConfigError instead.
func New(baseURL string, creds core.CredentialStore, opts ...Option) *Client {
	o := clientOptions{
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		alerter: o.alerter,
		logger:  o.logger,
		anon:    &http.Client{Timeout: o.timeout, Transport: o.transport},
		auth: &http.Client{
			Timeout: o.timeout,
			Transport: &oauth2.Transport{
				Source: storeTokenSource{store: creds},
				Base:   o.transport,
			},
		},
	}
	c.base, c.baseErr = parseBaseURL(baseURL)

	return c
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ConfigError{Reason: "backend URL is not set (set api_url or CALMERGE_API_URL)"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ConfigError{Reason: fmt.Sprintf("backend URL %q is not an absolute http(s) URL", raw)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ConfigError{Reason: fmt.Sprintf("backend URL %q must use http or https", raw)}
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// BaseURL returns the configured backend URL, or an error if it is unusable.
func (c *Client) BaseURL() (*url.URL, error) {
	if c.baseErr != nil {
		return nil, c.baseErr
	}
	u := *c.base
	return &u, nil
}

// storeTokenSource hands the persisted session token to oauth2.Transport.
// The store is read on every request, so a login or logout in another
// process is picked up without restarting.
type storeTokenSource struct {
	store core.CredentialStore
}

func (s storeTokenSource) Token() (*oauth2.Token, error) {
	if s.store == nil {
		return nil, ErrNotSignedIn
	}
	creds, err := s.store.Load()
	if errors.Is(err, core.ErrNoCredentials) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if creds.Token == "" {
		return nil, ErrNotSignedIn
	}
	return &oauth2.Token{AccessToken: creds.Token, TokenType: "Bearer"}, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// anonymous requests skip the bearer token
	anonymous bool
}

// do sends req and decodes a successful body into out (if non-nil).
// Every failure goes through fail before being returned.
func (c *Client) do(ctx context.Context, req request, out any) error {
	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(req, "", fmt.Errorf("decode %s %s response: %w", req.method, req.path, err))
	}
	return nil
}

// send returns the raw response body of a successful request. A non-nil
// redirect receives 3xx responses instead of following them.
func (c *Client) send(ctx context.Context, req request, redirect func(*http.Response) error) ([]byte, error) {
	if c.baseErr != nil {
		return nil, c.fail(req, "", c.baseErr)
	}

	target := c.base.JoinPath(req.path)
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s request: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, c.fail(req, "", &ConfigError{Reason: err.Error()})
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := c.auth
	if req.anonymous {
		client = c.anon
	}
	if redirect != nil {
		noFollow := *client
		noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		client = &noFollow
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if errors.Is(err, ErrNotSignedIn) {
			return nil, c.fail(req, requestID, ErrNotSignedIn)
		}
		return nil, c.fail(req, requestID, &TransportError{Method: req.method, Path: req.path, Err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(req, requestID, &TransportError{Method: req.method, Path: req.path, Err: err})
	}

	if redirect != nil && resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return nil, redirect(resp)
	}

	if resp.StatusCode >= 400 {
		return nil, c.fail(req, requestID, &Error{
			Status:    resp.StatusCode,
			Message:   errorMessage(resp.StatusCode, raw),
			Method:    req.method,
			Path:      req.path,
			RequestID: requestID,
		})
	}

	return raw, nil
}

// fail is the single interception point for failures: everything is
// logged, and anything the caller is not expected to handle is alerted.
func (c *Client) fail(req request, requestID string, err error) error {
	attrs := []any{"method", req.method, "path", req.path, "err", err}
	if requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		attrs = append(attrs, "status", apiErr.Status)
		if apiErr.Recoverable() {
			c.logger.Info("backend request failed", attrs...)
			return err
		}
	}

	c.logger.Error("backend request failed", attrs...)
	if c.alerter != nil {
		c.alerter.Alert(err)
	}
	return err
}

func eventPath(prefix, id string) string {
	return prefix + "/" + url.PathEscape(id)
}
