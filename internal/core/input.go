package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports input rejected before it was sent anywhere.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EventInput is the payload for creating an event.
type EventInput struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// Source is optional; the backend defaults to its local calendar.
	Source Provider
}

// Validate rejects an empty title and a non-positive duration.
func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if in.Start.IsZero() || in.End.IsZero() {
		return &ValidationError{Field: "time", Reason: "start and end are required"}
	}
	if !in.End.After(in.Start) {
		return &ValidationError{Field: "time", Reason: "end must be after start"}
	}
	return nil
}

// EventPatch carries the fields of an update. Nil fields are left alone.
type EventPatch struct {
	Title        *string
	Description  *string
	Location     *string
	Start        *time.Time
	End          *time.Time
	InviteStatus *InviteStatus
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil &&
		p.Start == nil && p.End == nil && p.InviteStatus == nil
}

// Validate checks the fields that are set. A range is only checked when
// both ends are present; the backend owns the merge with stored values.
func (p EventPatch) Validate() error {
	if p.Empty() {
		return &ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if p.Start != nil && p.End != nil && !p.End.After(*p.Start) {
		return &ValidationError{Field: "time", Reason: "end must be after start"}
	}
	return nil
}
