package core

import (
	"strings"
	"time"
)

// Provider tags where an event originated.
type Provider string

const (
	ProviderLocal     Provider = "local"
	ProviderGoogle    Provider = "google"
	ProviderApple     Provider = "apple"
	ProviderMicrosoft Provider = "microsoft"
)

// Providers lists every provider in aggregation order.
var Providers = []Provider{ProviderLocal, ProviderGoogle, ProviderApple, ProviderMicrosoft}

// ParseProvider maps a wire tag onto a Provider. "outlook" is an alias of
// microsoft. Unknown tags return false.
func ParseProvider(s string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return ProviderLocal, true
	case "google":
		return ProviderGoogle, true
	case "apple", "icloud":
		return ProviderApple, true
	case "microsoft", "outlook":
		return ProviderMicrosoft, true
	}
	return "", false
}

// InviteStatus is the user's answer to an invitation.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// ParseInviteStatus accepts pending, accepted or declined (case-insensitive).
func ParseInviteStatus(s string) (InviteStatus, bool) {
	switch InviteStatus(strings.ToLower(strings.TrimSpace(s))) {
	case InvitePending:
		return InvitePending, true
	case InviteAccepted:
		return InviteAccepted, true
	case InviteDeclined:
		return InviteDeclined, true
	}
	return "", false
}

// Calendar identifies the provider calendar an event belongs to.
type Calendar struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Event is one entry of the aggregate list. Every decoder (backend, Google,
// Microsoft) converts into this shape.
type Event struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Location     string       `json:"location,omitempty"`
	Start        time.Time    `json:"start"`
	End          time.Time    `json:"end"`
	IsAllDay     bool         `json:"is_all_day,omitempty"`
	Source       Provider     `json:"source"`
	IsInvite     bool         `json:"is_invite"`
	InviteStatus InviteStatus `json:"invite_status,omitempty"`
	CreatedAt    time.Time    `json:"created_at,omitzero"`
	Calendar     Calendar     `json:"calendar,omitzero"`
	// Calendar event page URL
	URL string `json:"url,omitempty"`
	// Video conferencing link (Google Meet, Teams, Zoom, ...)
	MeetingLink string `json:"meeting_link,omitempty"`
	// Provider identifiers the client carries without interpreting
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Duration returns the length of the event.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// InProgress checks if the event is happening right now.
func (e Event) InProgress(now time.Time) bool {
	return now.After(e.Start) && now.Before(e.End)
}

// HasTimes reports whether both timestamps were present and parseable.
func (e Event) HasTimes() bool {
	return !e.Start.IsZero() && !e.End.IsZero()
}

// HasValidRange reports whether the event has both timestamps and ends
// after it starts.
func (e Event) HasValidRange() bool {
	return e.HasTimes() && e.End.After(e.Start)
}

// PendingInvite reports whether the event is an invitation still awaiting
// an answer.
func (e Event) PendingInvite() bool {
	return e.IsInvite && e.InviteStatus == InvitePending
}

// CalendarSource is a backend-owned descriptor of a connectable calendar.
type CalendarSource struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Color  string `json:"color,omitempty"`
	Active bool   `json:"is_active"`
}

// User is the signed-in account as reported by the backend.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
