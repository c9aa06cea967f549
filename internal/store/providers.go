package store

import (
	"context"
	"time"

	"github.com/theakshaypant/calmerge/internal/core"
)

func (s *Store) AppleSignIn(ctx context.Context, creds core.AppleCredentials) (core.AppleConnection, error) {
	if err := validateApple(creds); err != nil {
		return core.AppleConnection{}, err
	}
	conn, err := s.backend.AppleSignIn(ctx, creds)
	return conn, s.providerMutation(ctx, core.ProviderApple, "apple sign-in", err)
}

func (s *Store) AppleInstructions(ctx context.Context) (core.Instructions, error) {
	in, err := s.backend.AppleInstructions(ctx)
	return in, s.record(core.ProviderApple, "apple instructions", err)
}

func (s *Store) ConnectApple(ctx context.Context, creds core.AppleCredentials) (core.AppleConnection, error) {
	if err := validateApple(creds); err != nil {
		return core.AppleConnection{}, err
	}
	conn, err := s.backend.ConnectApple(ctx, creds)
	return conn, s.providerMutation(ctx, core.ProviderApple, "apple connect", err)
}

func (s *Store) AppleCalendars(ctx context.Context) ([]core.AppleCalendar, error) {
	cals, err := s.backend.AppleCalendars(ctx)
	return cals, s.record(core.ProviderApple, "apple calendars", err)
}

func (s *Store) AppleEvents(ctx context.Context, from, to time.Time) ([]core.Event, error) {
	events, err := s.backend.AppleEvents(ctx, from, to)
	return events, s.record(core.ProviderApple, "apple events", err)
}

func (s *Store) SyncApple(ctx context.Context, req core.SyncRequest) (core.SyncResult, error) {
	switch req.Direction {
	case "", core.SyncPull, core.SyncPush, core.SyncBoth:
	default:
		return core.SyncResult{}, &core.ValidationError{Field: "direction", Reason: "must be pull, push or bidirectional"}
	}
	res, err := s.backend.SyncApple(ctx, req)
	return res, s.providerMutation(ctx, core.ProviderApple, "apple sync", err)
}

func (s *Store) CreateAppleEvent(ctx context.Context, in core.EventInput) (core.Event, error) {
	if err := in.Validate(); err != nil {
		return core.Event{}, err
	}
	e, err := s.backend.CreateAppleEvent(ctx, in)
	return e, s.providerMutation(ctx, core.ProviderApple, "create apple event", err)
}

func (s *Store) UpdateAppleEvent(ctx context.Context, id string, patch core.EventPatch) (core.Event, error) {
	if err := patch.Validate(); err != nil {
		return core.Event{}, err
	}
	e, err := s.backend.UpdateAppleEvent(ctx, id, patch)
	return e, s.providerMutation(ctx, core.ProviderApple, "update apple event", err)
}

func (s *Store) DeleteAppleEvent(ctx context.Context, id string) error {
	return s.providerMutation(ctx, core.ProviderApple, "delete apple event", s.backend.DeleteAppleEvent(ctx, id))
}

func (s *Store) MicrosoftLoginURL(ctx context.Context) (string, error) {
	u, err := s.backend.MicrosoftLoginURL(ctx)
	return u, s.record(core.ProviderMicrosoft, "microsoft login", err)
}

func (s *Store) DisconnectMicrosoft(ctx context.Context) error {
	return s.providerMutation(ctx, core.ProviderMicrosoft, "microsoft disconnect", s.backend.DisconnectMicrosoft(ctx))
}

func (s *Store) MicrosoftEvents(ctx context.Context) ([]core.Event, error) {
	events, err := s.backend.MicrosoftEvents(ctx)
	return events, s.record(core.ProviderMicrosoft, "microsoft events", err)
}

func (s *Store) CreateMicrosoftEvent(ctx context.Context, in core.EventInput) (core.Event, error) {
	if err := in.Validate(); err != nil {
		return core.Event{}, err
	}
	e, err := s.backend.CreateMicrosoftEvent(ctx, in)
	return e, s.providerMutation(ctx, core.ProviderMicrosoft, "create microsoft event", err)
}

func (s *Store) UpdateMicrosoftEvent(ctx context.Context, id string, patch core.EventPatch) (core.Event, error) {
	if err := patch.Validate(); err != nil {
		return core.Event{}, err
	}
	e, err := s.backend.UpdateMicrosoftEvent(ctx, id, patch)
	return e, s.providerMutation(ctx, core.ProviderMicrosoft, "update microsoft event", err)
}

func (s *Store) DeleteMicrosoftEvent(ctx context.Context, id string) error {
	return s.providerMutation(ctx, core.ProviderMicrosoft, "delete microsoft event", s.backend.DeleteMicrosoftEvent(ctx, id))
}

func validateApple(creds core.AppleCredentials) error {
	if creds.AppleID == "" {
		return &core.ValidationError{Field: "apple_id", Reason: "is required"}
	}
	if creds.AppPassword == "" {
		return &core.ValidationError{Field: "app_specific_password", Reason: "is required"}
	}
	return nil
}
