package api

import (
	"context"
	"net/http"

	"github.com/theakshaypant/calmerge/internal/core"
)

const microsoftEvents = "/api/microsoft/calendar/events"

// MicrosoftEvents lists the events of the linked Outlook calendar. The
// backend may relay Graph event resources untouched.
func (c *Client) MicrosoftEvents(ctx context.Context) ([]core.Event, error) {
	req := request{method: http.MethodGet, path: microsoftEvents}
	raw, err := c.send(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	events, err := decodeEventList(raw, core.ProviderMicrosoft, c.logger)
	if err != nil {
		return nil, c.fail(req, "", err)
	}
	return events, nil
}

func (c *Client) CreateMicrosoftEvent(ctx context.Context, in core.EventInput) (core.Event, error) {
	return c.createEvent(ctx, microsoftEvents, core.ProviderMicrosoft, in)
}

func (c *Client) UpdateMicrosoftEvent(ctx context.Context, id string, patch core.EventPatch) (core.Event, error) {
	return c.updateEvent(ctx, microsoftEvents, core.ProviderMicrosoft, id, patch)
}

func (c *Client) DeleteMicrosoftEvent(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: eventPath(microsoftEvents, id)}, nil)
}

var _ core.Backend = (*Client)(nil)
