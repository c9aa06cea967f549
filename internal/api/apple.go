package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theakshaypant/calmerge/internal/core"
)

const appleEvents = "/api/apple/calendar/events"

// appleStatus is the loose body of the Apple auth, connect and sync calls.
// A 200 can still carry success=false.
type appleStatus struct {
	Success   *bool                `json:"success"`
	Connected *bool                `json:"connected"`
	Message   string               `json:"message"`
	Error     string               `json:"error"`
	Detail    string               `json:"detail"`
	Calendars []core.AppleCalendar `json:"calendars"`
}

func (s appleStatus) message() string {
	for _, m := range []string{s.Message, s.Error, s.Detail} {
		if m != "" {
			return m
		}
	}
	return ""
}

func (s appleStatus) rejected() bool {
	return (s.Success != nil && !*s.Success) || (s.Success == nil && s.Error != "")
}

func (s appleStatus) connection() core.AppleConnection {
	connected := true
	if s.Connected != nil {
		connected = *s.Connected
	} else if s.Success != nil {
		connected = *s.Success
	}
	return core.AppleConnection{Connected: connected, Message: s.message(), Calendars: s.Calendars}
}

func appleCredentialsBody(creds core.AppleCredentials) map[string]string {
	return map[string]string{
		"apple_id":              strings.TrimSpace(creds.AppleID),
		"app_specific_password": creds.AppPassword,
	}
}

// AppleSignIn verifies an Apple ID and app-specific password with the
// backend.
func (c *Client) AppleSignIn(ctx context.Context, creds core.AppleCredentials) (core.AppleConnection, error) {
	return c.appleConnect(ctx, "apple sign-in", "/api/apple/auth/signin", creds)
}

// ConnectApple links the Apple calendar account to the signed-in user.
func (c *Client) ConnectApple(ctx context.Context, creds core.AppleCredentials) (core.AppleConnection, error) {
	return c.appleConnect(ctx, "apple connect", "/api/apple/calendar/connect", creds)
}

func (c *Client) appleConnect(ctx context.Context, op, path string, creds core.AppleCredentials) (core.AppleConnection, error) {
	req := request{method: http.MethodPost, path: path, body: appleCredentialsBody(creds)}
	var status appleStatus
	if err := c.do(ctx, req, &status); err != nil {
		return core.AppleConnection{}, err
	}
	if status.rejected() {
		return core.AppleConnection{}, c.fail(req, "", &RejectedError{Op: op, Message: status.message()})
	}
	return status.connection(), nil
}

// AppleInstructions fetches the steps for creating an app-specific password.
func (c *Client) AppleInstructions(ctx context.Context) (core.Instructions, error) {
	req := request{method: http.MethodGet, path: "/api/apple/auth/instructions"}
	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return core.Instructions{}, err
	}

	var body struct {
		Title        string          `json:"title"`
		Steps        json.RawMessage `json:"steps"`
		Instructions json.RawMessage `json:"instructions"`
		URL          string          `json:"url"`
		HelpURL      string          `json:"help_url"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return core.Instructions{}, c.fail(req, "", fmt.Errorf("decode apple instructions: %w", err))
	}

	in := core.Instructions{Title: body.Title, URL: body.URL}
	if in.URL == "" {
		in.URL = body.HelpURL
	}
	in.Steps = steps(body.Steps)
	if len(in.Steps) == 0 {
		in.Steps = steps(body.Instructions)
	}
	return in, nil
}

// steps reads a list of strings, a list of {step|text|description}
// objects, or a single newline separated string.
func steps(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var objs []struct {
		Step        string `json:"step"`
		Text        string `json:"text"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &objs); err == nil {
		var out []string
		for _, o := range objs {
			for _, s := range []string{o.Step, o.Text, o.Description} {
				if s != "" {
					out = append(out, s)
					break
				}
			}
		}
		return out
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// AppleCalendars lists the calendars of the connected Apple account.
func (c *Client) AppleCalendars(ctx context.Context) ([]core.AppleCalendar, error) {
	req := request{method: http.MethodGet, path: "/api/apple/calendar/calendars"}
	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	var cals []core.AppleCalendar
	if err := decodeList(raw, "calendars", &cals); err != nil {
		return nil, c.fail(req, "", fmt.Errorf("decode apple calendars: %w", err))
	}
	return cals, nil
}

// AppleEvents lists Apple events between from and to. Zero bounds are
// left to the backend's default window.
func (c *Client) AppleEvents(ctx context.Context, from, to time.Time) ([]core.Event, error) {
	req := request{method: http.MethodGet, path: appleEvents, query: url.Values{}}
	if !from.IsZero() {
		req.query.Set("start_date", formatTime(from))
	}
	if !to.IsZero() {
		req.query.Set("end_date", formatTime(to))
	}

	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	events, err := decodeEventList(raw, core.ProviderApple, c.logger)
	if err != nil {
		return nil, c.fail(req, "", err)
	}
	return events, nil
}

func (c *Client) CreateAppleEvent(ctx context.Context, in core.EventInput) (core.Event, error) {
	return c.createEvent(ctx, appleEvents, core.ProviderApple, in)
}

func (c *Client) UpdateAppleEvent(ctx context.Context, id string, patch core.EventPatch) (core.Event, error) {
	return c.updateEvent(ctx, appleEvents, core.ProviderApple, id, patch)
}

func (c *Client) DeleteAppleEvent(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: eventPath(appleEvents, id)}, nil)
}

// SyncApple asks the backend to copy events between the Apple calendar and
// the user's other calendars.
func (c *Client) SyncApple(ctx context.Context, sr core.SyncRequest) (core.SyncResult, error) {
	direction := sr.Direction
	if direction == "" {
		direction = core.SyncBoth
	}
	days := sr.Days
	if days <= 0 {
		days = 30
	}

	req := request{
		method: http.MethodPost,
		path:   "/api/apple/calendar/sync",
		body:   map[string]any{"sync_direction": string(direction), "date_range_days": days},
	}
	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return core.SyncResult{}, err
	}

	var status appleStatus
	var counts struct {
		Imported    json.RawMessage `json:"imported"`
		Exported    json.RawMessage `json:"exported"`
		SyncedCount json.RawMessage `json:"synced_count"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return core.SyncResult{}, c.fail(req, "", fmt.Errorf("decode apple sync response: %w", err))
	}
	_ = json.Unmarshal(raw, &counts)

	if status.rejected() {
		return core.SyncResult{}, c.fail(req, "", &RejectedError{Op: "apple sync", Message: status.message()})
	}

	res := core.SyncResult{
		Imported: count(counts.Imported),
		Exported: count(counts.Exported),
		Message:  status.message(),
	}
	if res.Imported == 0 && res.Exported == 0 {
		res.Imported = count(counts.SyncedCount)
	}
	return res, nil
}
