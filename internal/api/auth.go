package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/theakshaypant/calmerge/internal/core"
)

// Register creates an account and returns the session for it.
func (c *Client) Register(ctx context.Context, email, password, name string) (core.Credentials, error) {
	var resp authResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/api/auth/register",
		body:      map[string]string{"email": email, "password": password, "name": name},
		anonymous: true,
	}, &resp)
	if err != nil {
		return core.Credentials{}, err
	}
	return resp.credentials()
}

// Login exchanges email and password for a session.
func (c *Client) Login(ctx context.Context, email, password string) (core.Credentials, error) {
	var resp authResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/api/auth/login",
		body:      map[string]string{"email": email, "password": password},
		anonymous: true,
	}, &resp)
	if err != nil {
		return core.Credentials{}, err
	}
	return resp.credentials()
}

// GoogleLoginURL is the page that starts the backend's Google sign-in. The
// backend redirects to redirectURI with token and user once it completes.
func (c *Client) GoogleLoginURL(redirectURI string) (string, error) {
	base, err := c.BaseURL()
	if err != nil {
		return "", err
	}
	u := base.JoinPath("/api/google/login")
	if redirectURI != "" {
		u.RawQuery = url.Values{"redirect_uri": {redirectURI}}.Encode()
	}
	return u.String(), nil
}

// MicrosoftLoginURL asks the backend for the Microsoft authorization page
// that links an Outlook account to the signed-in user. Both a JSON body
// ({"auth_url": ...}) and a redirect are understood.
func (c *Client) MicrosoftLoginURL(ctx context.Context) (string, error) {
	req := request{method: http.MethodGet, path: "/api/microsoft/auth/login"}

	var location string
	raw, err := c.send(ctx, req, func(resp *http.Response) error {
		location = resp.Header.Get("Location")
		return nil
	})
	if err != nil {
		return "", err
	}
	if location != "" {
		return location, nil
	}

	var body struct {
		AuthURL string `json:"auth_url"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", c.fail(req, "", fmt.Errorf("decode microsoft login response: %w", err))
	}
	for _, u := range []string{body.AuthURL, body.URL} {
		if u = strings.TrimSpace(u); u != "" {
			return u, nil
		}
	}
	return "", c.fail(req, "", fmt.Errorf("microsoft login response has no auth_url"))
}

// DisconnectMicrosoft unlinks the Outlook account.
func (c *Client) DisconnectMicrosoft(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodGet, path: "/api/microsoft/auth/disconnect"}, nil)
}
