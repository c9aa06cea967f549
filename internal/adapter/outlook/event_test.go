package outlook

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/theakshaypant/calmerge/internal/core"
)

const graphInvite = `{
  "@odata.etag": "W/\"abc\"",
  "id": "AAMkAGI2",
  "iCalUId": "040000008200E00074C5B7101A82E008",
  "subject": "Quarterly planning",
  "isAllDay": false,
  "isCancelled": false,
  "isOrganizer": false,
  "createdDateTime": "2024-05-20T08:00:00Z",
  "webLink": "https://outlook.office365.com/owa/?itemid=AAMkAGI2",
  "body": {"contentType": "html", "content": "<p>Agenda</p><ul><li>Budget</li></ul>"},
  "start": {"dateTime": "2024-06-03T14:00:00.0000000", "timeZone": "UTC"},
  "end": {"dateTime": "2024-06-03T15:30:00.0000000", "timeZone": "UTC"},
  "location": {"displayName": "Teams"},
  "responseStatus": {"response": "notResponded", "time": "0001-01-01T00:00:00Z"},
  "onlineMeeting": {"joinUrl": "https://teams.microsoft.com/l/meetup-join/xyz"}
}`

func TestDecodeGraphInvite(t *testing.T) {
	e, err := Decode([]byte(graphInvite))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if e.ID != "AAMkAGI2" || e.Title != "Quarterly planning" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.Source != core.ProviderMicrosoft {
		t.Errorf("source = %q", e.Source)
	}
	if !e.IsInvite || e.InviteStatus != core.InvitePending {
		t.Errorf("invite = %v/%q, want pending invite", e.IsInvite, e.InviteStatus)
	}
	if want := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC); !e.Start.Equal(want) {
		t.Errorf("start = %v, want %v", e.Start, want)
	}
	if e.Duration() != 90*time.Minute {
		t.Errorf("duration = %v", e.Duration())
	}
	if e.Location != "Teams" || !strings.HasPrefix(e.MeetingLink, "https://teams.microsoft.com/") {
		t.Errorf("location/link = %q/%q", e.Location, e.MeetingLink)
	}
	if strings.Contains(e.Description, "<") || !strings.Contains(e.Description, "Budget") {
		t.Errorf("description not converted to text: %q", e.Description)
	}
}

func TestDecodeGraphOrganizer(t *testing.T) {
	payload := `{"id": "1", "subject": "My meeting", "isOrganizer": true,
	  "start": {"dateTime": "2024-06-03T14:00:00", "timeZone": "UTC"},
	  "end": {"dateTime": "2024-06-03T15:00:00", "timeZone": "UTC"},
	  "responseStatus": {"response": "organizer"}}`
	e, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if e.IsInvite {
		t.Errorf("organizer's own meeting flagged as invite")
	}
}

func TestDecodeGraphTimeZone(t *testing.T) {
	payload := `{"id": "1", "subject": "Berlin sync",
	  "start": {"dateTime": "2024-06-03T10:00:00.0000000", "timeZone": "Europe/Berlin"},
	  "end": {"dateTime": "2024-06-03T11:00:00.0000000", "timeZone": "Europe/Berlin"}}`
	e, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if want := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC); !e.Start.Equal(want) {
		t.Errorf("start = %v, want %v", e.Start.UTC(), want)
	}
}

func TestDecodeGraphCancelled(t *testing.T) {
	payload := `{"id": "1", "subject": "Cancelled: sync", "isCancelled": true}`
	if _, err := Decode([]byte(payload)); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestIsNative(t *testing.T) {
	var graph, backend map[string]json.RawMessage
	if err := json.Unmarshal([]byte(graphInvite), &graph); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"title": "x", "source": "microsoft"}`), &backend); err != nil {
		t.Fatal(err)
	}
	if !IsNative(graph) {
		t.Errorf("graph payload not recognised")
	}
	if IsNative(backend) {
		t.Errorf("backend payload recognised as graph")
	}
}
