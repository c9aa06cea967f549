// Package store holds the aggregated calendar state shared by the CLI and
// the TUI. All changes go through reduce; network calls live in Store.
package store

import (
	"slices"
	"time"

	"github.com/theakshaypant/calmerge/internal/core"
)

// State is everything a view renders.
type State struct {
	Events  []core.Event
	Sources []core.CalendarSource
	// Active holds the calendar source ids sent with every fetch, in the
	// order they were enabled. Empty means all sources.
	Active   []string
	Selected time.Time
	Loading  bool

	AppleConnected     bool
	MicrosoftConnected bool

	// LastError holds the message of the latest failed provider call,
	// cleared by the next successful one.
	LastError map[core.Provider]string
}

// IsActive reports whether source id is in the active set.
func (s State) IsActive(id string) bool {
	return slices.Contains(s.Active, id)
}

func (s State) clone() State {
	c := s
	c.Events = slices.Clone(s.Events)
	c.Sources = slices.Clone(s.Sources)
	c.Active = slices.Clone(s.Active)
	if s.LastError != nil {
		c.LastError = make(map[core.Provider]string, len(s.LastError))
		for k, v := range s.LastError {
			c.LastError[k] = v
		}
	}
	return c
}

type action interface{ isAction() }

type (
	fetchStarted   struct{}
	fetchSucceeded struct{ agg core.Aggregate }
	fetchFailed    struct{}
	sourcesLoaded  struct{ sources []core.CalendarSource }
	sourceToggled  struct{ id string }
	activeSet      struct{ ids []string }
	dateSelected   struct{ t time.Time }
	providerResult struct {
		provider core.Provider
		message  string
	}
)

func (fetchStarted) isAction()   {}
func (fetchSucceeded) isAction() {}
func (fetchFailed) isAction()    {}
func (sourcesLoaded) isAction()  {}
func (sourceToggled) isAction()  {}
func (activeSet) isAction()      {}
func (dateSelected) isAction()   {}
func (providerResult) isAction() {}

// reduce returns the state after a. It never mutates s.
func reduce(s State, a action) State {
	s = s.clone()

	switch a := a.(type) {
	case fetchStarted:
		s.Loading = true
	case fetchSucceeded:
		s.Loading = false
		s.Events = slices.Clone(a.agg.Events)
		s.AppleConnected = a.agg.AppleConnected
		s.MicrosoftConnected = a.agg.MicrosoftConnected
	case fetchFailed:
		s.Loading = false
	case sourcesLoaded:
		s.Sources = slices.Clone(a.sources)
	case sourceToggled:
		if i := slices.Index(s.Active, a.id); i >= 0 {
			s.Active = slices.Delete(s.Active, i, i+1)
		} else {
			s.Active = append(s.Active, a.id)
		}
	case activeSet:
		s.Active = nil
		for _, id := range a.ids {
			if id != "" && !slices.Contains(s.Active, id) {
				s.Active = append(s.Active, id)
			}
		}
	case dateSelected:
		s.Selected = a.t
	case providerResult:
		if a.message == "" {
			delete(s.LastError, a.provider)
			break
		}
		if s.LastError == nil {
			s.LastError = make(map[core.Provider]string)
		}
		s.LastError[a.provider] = a.message
	}

	return s
}
