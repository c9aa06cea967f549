// Package google converts Google Calendar event resources, as relayed by
// the backend, into core events.
package google

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/theakshaypant/calmerge/internal/core"
)

// ErrCancelled marks an event the provider reports as cancelled.
var ErrCancelled = errors.New("google event is cancelled")

// IsNative reports whether a relayed item is a Google Calendar event
// resource rather than the backend's own event shape.
func IsNative(fields map[string]json.RawMessage) bool {
	if raw, ok := fields["kind"]; ok {
		var kind string
		if json.Unmarshal(raw, &kind) == nil && kind == "calendar#event" {
			return true
		}
	}
	if _, ok := fields["summary"]; !ok {
		return false
	}
	start := bytes.TrimSpace(fields["start"])
	return len(start) > 0 && start[0] == '{'
}

// Decode parses one event resource.
func Decode(raw []byte) (core.Event, error) {
	var item calendar.Event
	if err := json.Unmarshal(raw, &item); err != nil {
		return core.Event{}, fmt.Errorf("decode google event: %w", err)
	}
	if item.Status == "cancelled" {
		return core.Event{}, ErrCancelled
	}
	return ParseEvent(&item), nil
}

// ParseEvent converts a Google Calendar event to our unified Event type.
func ParseEvent(item *calendar.Event) core.Event {
	start, isAllDay := parseDateTime(item.Start)
	end, _ := parseDateTime(item.End)

	isInvite, status := parseInvite(item)

	e := core.Event{
		ID:           item.Id,
		Title:        item.Summary,
		Description:  item.Description,
		Location:     item.Location,
		Start:        start,
		End:          end,
		IsAllDay:     isAllDay,
		Source:       core.ProviderGoogle,
		IsInvite:     isInvite,
		InviteStatus: status,
		URL:          item.HtmlLink,
		MeetingLink:  extractMeetingLink(item),
	}

	if item.Created != "" {
		e.CreatedAt, _ = time.Parse(time.RFC3339, item.Created)
	}
	if item.Organizer != nil {
		e.Calendar = core.Calendar{ID: item.Organizer.Email, Name: item.Organizer.DisplayName}
	}

	meta := map[string]string{}
	if item.ICalUID != "" {
		meta["ical_uid"] = item.ICalUID
	}
	if item.EventType != "" && item.EventType != "default" {
		meta["event_type"] = item.EventType
	}
	if item.RecurringEventId != "" {
		meta["recurring_event_id"] = item.RecurringEventId
	}
	if len(meta) > 0 {
		e.Metadata = meta
	}

	return e
}

// parseDateTime reads either a timed (dateTime) or all-day (date) value.
// All-day dates are midnight in the local zone so they land on the right
// calendar day.
func parseDateTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t, false
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", dt.Date, time.Local)
		if err != nil {
			return time.Time{}, true
		}
		return t, true
	}
	return time.Time{}, false
}

// extractMeetingLink gets the video conferencing link from Google Calendar event.
func extractMeetingLink(item *calendar.Event) string {
	if item.ConferenceData != nil {
		for _, entry := range item.ConferenceData.EntryPoints {
			if entry.EntryPointType == "video" {
				return entry.Uri
			}
		}
	}
	return item.HangoutLink
}

// parseInvite finds the user in the attendee list. Events the user
// organizes are never invites; tentative answers still count as pending.
func parseInvite(item *calendar.Event) (bool, core.InviteStatus) {
	if item.Organizer != nil && item.Organizer.Self {
		return false, ""
	}

	for _, attendee := range item.Attendees {
		if !attendee.Self || attendee.Organizer {
			continue
		}
		switch attendee.ResponseStatus {
		case "accepted":
			return true, core.InviteAccepted
		case "declined":
			return true, core.InviteDeclined
		default:
			return true, core.InvitePending
		}
	}

	return false, ""
}
