package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/theakshaypant/calmerge/internal/adapter/google"
	"github.com/theakshaypant/calmerge/internal/adapter/outlook"
	"github.com/theakshaypant/calmerge/internal/core"
)

// flexString accepts a JSON string or number, for ids that some backends
// send as integers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// wireEvent is the backend's own event shape.
type wireEvent struct {
	ID           flexString `json:"id"`
	MongoID      flexString `json:"_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Location     string     `json:"location"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	IsAllDay     bool       `json:"is_all_day"`
	Source       string     `json:"source"`
	IsInvite     bool       `json:"is_invite"`
	InviteStatus string     `json:"invite_status"`
	CreatedAt    string     `json:"created_at"`
	CalendarID   flexString `json:"calendar_id"`
	CalendarName string     `json:"calendar_name"`
	URL          string     `json:"html_link"`
	MeetingLink  string     `json:"meeting_link"`
	ExternalID   flexString `json:"external_id"`
}

func (w wireEvent) toEvent(bucket core.Provider) core.Event {
	id := string(w.ID)
	if id == "" {
		id = string(w.MongoID)
	}

	source, ok := core.ParseProvider(w.Source)
	if !ok {
		source = bucket
	}
	if source == "" {
		source = core.ProviderLocal
	}

	e := core.Event{
		ID:          id,
		Title:       w.Title,
		Description: w.Description,
		Location:    w.Location,
		Start:       parseTime(w.StartTime),
		End:         parseTime(w.EndTime),
		IsAllDay:    w.IsAllDay,
		Source:      source,
		IsInvite:    w.IsInvite,
		CreatedAt:   parseTime(w.CreatedAt),
		Calendar:    core.Calendar{ID: string(w.CalendarID), Name: w.CalendarName},
		URL:         w.URL,
		MeetingLink: w.MeetingLink,
	}
	if status, ok := core.ParseInviteStatus(w.InviteStatus); ok {
		e.InviteStatus = status
	} else if w.IsInvite {
		e.InviteStatus = core.InvitePending
	}
	if w.ExternalID != "" {
		e.Metadata = map[string]string{"external_id": string(w.ExternalID)}
	}
	return e
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseTime accepts RFC 3339 and the zone-less forms Python backends emit
// (interpreted as UTC). Anything else yields the zero time, which the view
// layer treats as missing.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// eventsEnvelope is the bucketed response of GET /api/events.
type eventsEnvelope struct {
	Local              []json.RawMessage `json:"local_events"`
	Google             []json.RawMessage `json:"google_events"`
	Apple              []json.RawMessage `json:"apple_events"`
	Microsoft          []json.RawMessage `json:"microsoft_events"`
	Outlook            []json.RawMessage `json:"outlook_events"`
	Events             []json.RawMessage `json:"events"`
	AppleConnected     *bool             `json:"apple_connected"`
	MicrosoftConnected *bool             `json:"microsoft_connected"`
}

// decodeAggregate joins the buckets in aggregation order. A flat array is
// tolerated; its items keep their own source tags.
func decodeAggregate(raw []byte, logger *slog.Logger) (core.Aggregate, error) {
	raw = bytes.TrimSpace(raw)
	var agg core.Aggregate

	if len(raw) == 0 || string(raw) == "null" {
		return agg, nil
	}

	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return agg, fmt.Errorf("decode events: %w", err)
		}
		agg.Events = decodeItems(items, core.ProviderLocal, logger)
		for _, e := range agg.Events {
			switch e.Source {
			case core.ProviderApple:
				agg.AppleConnected = true
			case core.ProviderMicrosoft:
				agg.MicrosoftConnected = true
			}
		}
		return agg, nil
	}

	var env eventsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return agg, fmt.Errorf("decode events: %w", err)
	}

	microsoft := append(env.Microsoft, env.Outlook...)

	agg.Events = append(agg.Events, decodeItems(env.Local, core.ProviderLocal, logger)...)
	agg.Events = append(agg.Events, decodeItems(env.Events, core.ProviderLocal, logger)...)
	agg.Events = append(agg.Events, decodeItems(env.Google, core.ProviderGoogle, logger)...)
	agg.Events = append(agg.Events, decodeItems(env.Apple, core.ProviderApple, logger)...)
	agg.Events = append(agg.Events, decodeItems(microsoft, core.ProviderMicrosoft, logger)...)

	agg.AppleConnected = len(env.Apple) > 0
	if env.AppleConnected != nil {
		agg.AppleConnected = *env.AppleConnected
	}
	agg.MicrosoftConnected = len(microsoft) > 0
	if env.MicrosoftConnected != nil {
		agg.MicrosoftConnected = *env.MicrosoftConnected
	}

	return agg, nil
}

// decodeEventList accepts an array, a Graph collection ({"value": [...]})
// or an {"events": [...]} wrapper.
func decodeEventList(raw []byte, bucket core.Provider, logger *slog.Logger) ([]core.Event, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var items []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		return decodeItems(items, bucket, logger), nil
	}

	var wrapper struct {
		Value  []json.RawMessage `json:"value"`
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	items = append(wrapper.Value, wrapper.Events...)
	return decodeItems(items, bucket, logger), nil
}

func decodeItems(items []json.RawMessage, bucket core.Provider, logger *slog.Logger) []core.Event {
	events := make([]core.Event, 0, len(items))
	for _, item := range items {
		e, err := decodeItem(item, bucket)
		if err != nil {
			logger.Debug("skipping undecodable event", "source", bucket, "err", err)
			continue
		}
		events = append(events, e)
	}
	return events
}

// decodeItem recognises the three item shapes the backend relays: its own,
// a Google Calendar event resource and a Microsoft Graph event.
func decodeItem(item json.RawMessage, bucket core.Provider) (core.Event, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(item, &probe); err != nil {
		return core.Event{}, err
	}

	switch {
	case google.IsNative(probe):
		e, err := google.Decode(item)
		if err != nil {
			return core.Event{}, err
		}
		return e, nil
	case outlook.IsNative(probe):
		return outlook.Decode(item)
	}

	var w wireEvent
	if err := json.Unmarshal(item, &w); err != nil {
		return core.Event{}, err
	}
	return w.toEvent(bucket), nil
}

// decodeSingle reads one event, possibly wrapped as {"event": {...}}.
func decodeSingle(raw []byte, bucket core.Provider) (core.Event, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return core.Event{}, nil
	}
	var wrapper struct {
		Event json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Event) > 0 {
		raw = wrapper.Event
	}
	return decodeItem(raw, bucket)
}

// eventRequest is the create body shared by every provider endpoint.
type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Source      string `json:"source,omitempty"`
}

func newEventRequest(in core.EventInput) eventRequest {
	return eventRequest{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Location:    in.Location,
		StartTime:   formatTime(in.Start),
		EndTime:     formatTime(in.End),
		Source:      string(in.Source),
	}
}

type patchRequest struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	Location     *string `json:"location,omitempty"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	InviteStatus *string `json:"invite_status,omitempty"`
}

func newPatchRequest(p core.EventPatch) patchRequest {
	req := patchRequest{
		Title:       p.Title,
		Description: p.Description,
		Location:    p.Location,
	}
	if p.Start != nil {
		s := formatTime(*p.Start)
		req.StartTime = &s
	}
	if p.End != nil {
		s := formatTime(*p.End)
		req.EndTime = &s
	}
	if p.InviteStatus != nil {
		s := string(*p.InviteStatus)
		req.InviteStatus = &s
	}
	return req
}

// authResponse is returned by login and register.
type authResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	User        struct {
		ID    flexString `json:"id"`
		Email string     `json:"email"`
		Name  string     `json:"name"`
	} `json:"user"`
}

func (r authResponse) credentials() (core.Credentials, error) {
	token := r.AccessToken
	if token == "" {
		token = r.Token
	}
	if token == "" {
		return core.Credentials{}, fmt.Errorf("login response has no access token")
	}
	return core.Credentials{
		Token: token,
		User:  core.User{ID: string(r.User.ID), Email: r.User.Email, Name: r.User.Name},
	}, nil
}

// count reads an integer that may arrive as a number or a numeric string.
func count(raw json.RawMessage) int {
	var f flexString
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	n, _ := strconv.Atoi(string(f))
	return n
}
