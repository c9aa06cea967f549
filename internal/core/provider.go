package core

import (
	"context"
	"time"
)

// Aggregate is the result of one events request, buckets already joined in
// aggregation order (local, google, apple, microsoft).
type Aggregate struct {
	Events             []Event
	AppleConnected     bool
	MicrosoftConnected bool
}

// Backend is the remote calendar service. It owns persistence, provider
// sync and merging; the client only orchestrates calls.
type Backend interface {
	// Events returns the merged event list for the given calendar source
	// IDs. An empty list lets the backend decide (all sources).
	Events(ctx context.Context, sources []string) (Aggregate, error)
	CalendarSources(ctx context.Context) ([]CalendarSource, error)

	CreateEvent(ctx context.Context, in EventInput) (Event, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	RespondToInvite(ctx context.Context, id string, status InviteStatus) error

	AppleBackend
	MicrosoftBackend
}

// AppleBackend covers the Apple calendar endpoints.
type AppleBackend interface {
	AppleSignIn(ctx context.Context, creds AppleCredentials) (AppleConnection, error)
	AppleInstructions(ctx context.Context) (Instructions, error)
	ConnectApple(ctx context.Context, creds AppleCredentials) (AppleConnection, error)
	AppleCalendars(ctx context.Context) ([]AppleCalendar, error)
	AppleEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	CreateAppleEvent(ctx context.Context, in EventInput) (Event, error)
	UpdateAppleEvent(ctx context.Context, id string, patch EventPatch) (Event, error)
	DeleteAppleEvent(ctx context.Context, id string) error
	SyncApple(ctx context.Context, req SyncRequest) (SyncResult, error)
}

// MicrosoftBackend covers the Microsoft calendar endpoints.
type MicrosoftBackend interface {
	MicrosoftLoginURL(ctx context.Context) (string, error)
	DisconnectMicrosoft(ctx context.Context) error
	MicrosoftEvents(ctx context.Context) ([]Event, error)
	CreateMicrosoftEvent(ctx context.Context, in EventInput) (Event, error)
	UpdateMicrosoftEvent(ctx context.Context, id string, patch EventPatch) (Event, error)
	DeleteMicrosoftEvent(ctx context.Context, id string) error
}

// AppleCredentials are the Apple ID and app-specific password used for
// CalDAV access. They are sent to the backend and never stored locally.
type AppleCredentials struct {
	AppleID     string
	AppPassword string
}

// AppleConnection reports the outcome of a sign-in or connect call.
type AppleConnection struct {
	Connected bool            `json:"connected"`
	Message   string          `json:"message,omitempty"`
	Calendars []AppleCalendar `json:"calendars,omitempty"`
}

// AppleCalendar is one calendar of a connected Apple account.
type AppleCalendar struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Instructions explain how to create an app-specific password.
type Instructions struct {
	Title string   `json:"title,omitempty"`
	Steps []string `json:"steps"`
	URL   string   `json:"url,omitempty"`
}

// SyncDirection selects which way an Apple sync copies events.
type SyncDirection string

const (
	SyncPull SyncDirection = "pull"
	SyncPush SyncDirection = "push"
	SyncBoth SyncDirection = "bidirectional"
)

// SyncRequest is the body of an Apple sync call.
type SyncRequest struct {
	Direction SyncDirection
	Days      int
}

// SyncResult is what the backend reports after a sync.
type SyncResult struct {
	Imported int    `json:"imported"`
	Exported int    `json:"exported"`
	Message  string `json:"message,omitempty"`
}
