// Package view holds the pure functions that turn the aggregate event list
// into what a screen shows: filter modes, day and month scoping, ordering.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theakshaypant/calmerge/internal/core"
)

// Mode selects which events a list shows.
type Mode string

const (
	ModeUpcoming Mode = "upcoming"
	ModePast     Mode = "past"
	ModeInvites  Mode = "invites"
	ModeAll      Mode = "all"
)

// Modes lists the filter modes in cycling order.
var Modes = []Mode{ModeUpcoming, ModePast, ModeInvites, ModeAll}

// ParseMode accepts a mode name, case-insensitive. Empty means upcoming.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeUpcoming, nil
	case ModeUpcoming, ModePast, ModeInvites, ModeAll:
		return m, nil
	}
	return "", fmt.Errorf("unknown filter %q (expected upcoming|past|invites|all)", s)
}

// Next returns the mode after m in cycling order.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeUpcoming
}

// Scope narrows a list to a month or a single day. Zero fields are
// inactive; Day wins over Month.
type Scope struct {
	Month time.Time
	Day   time.Time
}

// MonthScope scopes to the month containing t.
func MonthScope(t time.Time) Scope { return Scope{Month: t} }

// DayScope scopes to the calendar day containing t.
func DayScope(t time.Time) Scope { return Scope{Day: t} }

// Filter returns the events matching mode, in their original order.
//
// upcoming keeps events starting at or after the start of now's day and,
// with a month scope, starting in that month. past keeps events that ended
// strictly before now. invites keeps pending invitations. all keeps
// everything, still honoring the scope. Events without parseable
// timestamps never appear.
func Filter(events []core.Event, mode Mode, now time.Time, scope Scope) []core.Event {
	today := StartOfDay(now)
	out := make([]core.Event, 0, len(events))

	for _, e := range events {
		if !e.HasTimes() {
			continue
		}

		var keep bool
		switch mode {
		case ModeUpcoming:
			keep = !e.Start.Before(today) && inMonth(e, scope.Month)
		case ModePast:
			keep = e.End.Before(now)
		case ModeInvites:
			keep = e.PendingInvite()
		case ModeAll:
			keep = inScope(e, scope)
		}

		if keep {
			out = append(out, e)
		}
	}

	return out
}

func inScope(e core.Event, scope Scope) bool {
	if !scope.Day.IsZero() {
		return SameDay(e.Start, scope.Day)
	}
	return inMonth(e, scope.Month)
}

func inMonth(e core.Event, month time.Time) bool {
	if month.IsZero() {
		return true
	}
	return SameMonth(e.Start, month)
}

// OnDay returns the events whose start falls on day's calendar date, in
// their original order.
func OnDay(events []core.Event, day time.Time) []core.Event {
	var out []core.Event
	for _, e := range events {
		if e.Start.IsZero() {
			continue
		}
		if SameDay(e.Start, day) {
			out = append(out, e)
		}
	}
	return out
}

// SameDay compares calendar dates in b's location, ignoring time of day.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SameMonth compares year and month in b's location.
func SameMonth(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// StartOfDay returns midnight of t's date in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SortByStart orders events chronologically. Ties keep aggregation order.
func SortByStart(events []core.Event) []core.Event {
	out := make([]core.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Next returns the first event at or after now, or an in-progress one,
// from a chronologically sorted list.
func Next(sorted []core.Event, now time.Time) []core.Event {
	var first []core.Event
	for _, e := range sorted {
		if !e.HasTimes() {
			continue
		}
		if e.Start.Before(now) && !(e.InProgress(now) && !e.IsAllDay) {
			continue
		}
		if len(first) > 0 && !e.Start.Equal(first[0].Start) {
			break
		}
		first = append(first, e)
	}
	return first
}
