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

// Events fetches the merged event list. sources restricts the calendar
// sources server-side; empty means all.
func (c *Client) Events(ctx context.Context, sources []string) (core.Aggregate, error) {
	req := request{method: http.MethodGet, path: "/api/events"}
	if len(sources) > 0 {
		req.query = url.Values{"calendar_sources": {strings.Join(sources, ",")}}
	}

	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return core.Aggregate{}, err
	}

	agg, err := decodeAggregate(raw, c.logger)
	if err != nil {
		return core.Aggregate{}, c.fail(req, "", err)
	}
	return agg, nil
}

// CalendarSources lists the calendar sources the backend knows about.
func (c *Client) CalendarSources(ctx context.Context) ([]core.CalendarSource, error) {
	req := request{method: http.MethodGet, path: "/api/calendar-sources"}
	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	var sources []core.CalendarSource
	if err := decodeList(raw, "sources", &sources); err != nil {
		return nil, c.fail(req, "", fmt.Errorf("decode calendar sources: %w", err))
	}
	return sources, nil
}

// CreateEvent creates an event and returns it with its server id.
func (c *Client) CreateEvent(ctx context.Context, in core.EventInput) (core.Event, error) {
	return c.createEvent(ctx, "/api/events", core.ProviderLocal, in)
}

// UpdateEvent applies patch to event id.
func (c *Client) UpdateEvent(ctx context.Context, id string, patch core.EventPatch) (core.Event, error) {
	return c.updateEvent(ctx, "/api/events", core.ProviderLocal, id, patch)
}

// DeleteEvent removes event id. Deleting an unknown id is a 404 *Error.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: eventPath("/api/events", id)}, nil)
}

// RespondToInvite records the user's answer to an invitation.
func (c *Client) RespondToInvite(ctx context.Context, id string, status core.InviteStatus) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   eventPath("/api/events", id) + "/respond",
		body:   map[string]string{"status": string(status)},
	}, nil)
}

func (c *Client) createEvent(ctx context.Context, prefix string, bucket core.Provider, in core.EventInput) (core.Event, error) {
	req := request{method: http.MethodPost, path: prefix, body: newEventRequest(in)}
	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return core.Event{}, err
	}
	e, err := decodeSingle(raw, bucket)
	if err != nil {
		return core.Event{}, c.fail(req, "", fmt.Errorf("decode created event: %w", err))
	}
	return e, nil
}

func (c *Client) updateEvent(ctx context.Context, prefix string, bucket core.Provider, id string, patch core.EventPatch) (core.Event, error) {
	req := request{method: http.MethodPut, path: eventPath(prefix, id), body: newPatchRequest(patch)}
	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return core.Event{}, err
	}
	e, err := decodeSingle(raw, bucket)
	if err != nil {
		return core.Event{}, c.fail(req, "", fmt.Errorf("decode updated event: %w", err))
	}
	return e, nil
}

// decodeList reads a JSON array, or an object holding the array under key.
func decodeList(raw []byte, key string, out any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(raw, out)
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return err
	}
	inner, ok := wrapper[key]
	if !ok {
		return fmt.Errorf("expected an array or an object with %q", key)
	}
	return json.Unmarshal(inner, out)
}
