package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/theakshaypant/calmerge/internal/api"
	"github.com/theakshaypant/calmerge/internal/core"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeBackend answers Events from a queue of scripted responses. Calls
// not scripted succeed with zero values.
type fakeBackend struct {
	mu        sync.Mutex
	responses []eventsResponse
	sources   [][]string
	calls     map[string]int
	mutateErr error
	syncErr   error
}

type eventsResponse struct {
	agg     core.Aggregate
	err     error
	release chan struct{}
}

func newFake(responses ...eventsResponse) *fakeBackend {
	return &fakeBackend{responses: responses, calls: map[string]int{}}
}

func (f *fakeBackend) called(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) Events(_ context.Context, sources []string) (core.Aggregate, error) {
	f.mu.Lock()
	f.calls["events"]++
	f.sources = append(f.sources, sources)
	var r eventsResponse
	if len(f.responses) > 0 {
		r, f.responses = f.responses[0], f.responses[1:]
	}
	f.mu.Unlock()

	if r.release != nil {
		<-r.release
	}
	return r.agg, r.err
}

func (f *fakeBackend) CalendarSources(context.Context) ([]core.CalendarSource, error) {
	f.called("sources")
	return []core.CalendarSource{{ID: "google", Name: "Google", Type: "google", Active: true}}, nil
}

func (f *fakeBackend) CreateEvent(_ context.Context, in core.EventInput) (core.Event, error) {
	f.called("create")
	return core.Event{ID: "new", Title: in.Title}, f.mutateErr
}

func (f *fakeBackend) UpdateEvent(_ context.Context, id string, _ core.EventPatch) (core.Event, error) {
	f.called("update")
	return core.Event{ID: id}, f.mutateErr
}

func (f *fakeBackend) DeleteEvent(context.Context, string) error {
	f.called("delete")
	return f.mutateErr
}

func (f *fakeBackend) RespondToInvite(context.Context, string, core.InviteStatus) error {
	f.called("respond")
	return f.mutateErr
}

func (f *fakeBackend) AppleSignIn(context.Context, core.AppleCredentials) (core.AppleConnection, error) {
	f.called("apple-signin")
	return core.AppleConnection{Connected: true}, f.mutateErr
}

func (f *fakeBackend) AppleInstructions(context.Context) (core.Instructions, error) {
	return core.Instructions{Steps: []string{"one"}}, nil
}

func (f *fakeBackend) ConnectApple(context.Context, core.AppleCredentials) (core.AppleConnection, error) {
	f.called("apple-connect")
	return core.AppleConnection{Connected: true}, f.mutateErr
}

func (f *fakeBackend) AppleCalendars(context.Context) ([]core.AppleCalendar, error) {
	return nil, nil
}

func (f *fakeBackend) AppleEvents(context.Context, time.Time, time.Time) ([]core.Event, error) {
	return nil, nil
}

func (f *fakeBackend) CreateAppleEvent(context.Context, core.EventInput) (core.Event, error) {
	return core.Event{}, f.mutateErr
}

func (f *fakeBackend) UpdateAppleEvent(context.Context, string, core.EventPatch) (core.Event, error) {
	return core.Event{}, f.mutateErr
}

func (f *fakeBackend) DeleteAppleEvent(context.Context, string) error { return f.mutateErr }

func (f *fakeBackend) SyncApple(context.Context, core.SyncRequest) (core.SyncResult, error) {
	f.called("apple-sync")
	return core.SyncResult{Imported: 2}, f.syncErr
}

func (f *fakeBackend) MicrosoftLoginURL(context.Context) (string, error) {
	return "https://login.example", nil
}

func (f *fakeBackend) DisconnectMicrosoft(context.Context) error { return f.mutateErr }

func (f *fakeBackend) MicrosoftEvents(context.Context) ([]core.Event, error) { return nil, nil }

func (f *fakeBackend) CreateMicrosoftEvent(context.Context, core.EventInput) (core.Event, error) {
	return core.Event{}, f.mutateErr
}

func (f *fakeBackend) UpdateMicrosoftEvent(context.Context, string, core.EventPatch) (core.Event, error) {
	return core.Event{}, f.mutateErr
}

func (f *fakeBackend) DeleteMicrosoftEvent(context.Context, string) error { return f.mutateErr }

func events(ids ...string) []core.Event {
	out := make([]core.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.Event{ID: id})
	}
	return out
}

func ids(es []core.Event) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFetchEventsReplacesList(t *testing.T) {
	fake := newFake(
		eventsResponse{agg: core.Aggregate{Events: events("a", "b"), AppleConnected: true}},
		eventsResponse{agg: core.Aggregate{Events: events("c")}},
	)
	s := New(fake, WithLogger(quietLogger), WithActiveSources([]string{"local", "google"}))

	if err := s.FetchEvents(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if !equal(ids(snap.Events), []string{"a", "b"}) || !snap.AppleConnected || snap.Loading {
		t.Fatalf("after first fetch: %+v", snap)
	}
	if !equal(fake.sources[0], []string{"local", "google"}) {
		t.Errorf("sources sent = %v", fake.sources[0])
	}

	if err := s.FetchEvents(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap = s.Snapshot()
	if !equal(ids(snap.Events), []string{"c"}) || snap.AppleConnected {
		t.Fatalf("after second fetch: %+v", snap)
	}
}

func TestFailedFetchKeepsList(t *testing.T) {
	boom := errors.New("boom")
	fake := newFake(
		eventsResponse{agg: core.Aggregate{Events: events("a")}},
		eventsResponse{err: boom},
	)
	s := New(fake, WithLogger(quietLogger))

	_ = s.FetchEvents(context.Background())
	if err := s.FetchEvents(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	snap := s.Snapshot()
	if !equal(ids(snap.Events), []string{"a"}) {
		t.Errorf("events = %v, want previous list", ids(snap.Events))
	}
	if snap.Loading {
		t.Errorf("loading should be false after a failure")
	}
}

func TestLoadingDuringFetch(t *testing.T) {
	release := make(chan struct{})
	fake := newFake(eventsResponse{agg: core.Aggregate{Events: events("a")}, release: release})
	s := New(fake, WithLogger(quietLogger))

	loading := make(chan bool, 4)
	s.Subscribe(func(st State) { loading <- st.Loading })

	done := make(chan error)
	go func() { done <- s.FetchEvents(context.Background()) }()

	if !<-loading {
		t.Fatalf("first notification should report loading")
	}
	if !s.Snapshot().Loading {
		t.Errorf("snapshot should be loading while the request is in flight")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if <-loading {
		t.Errorf("loading should end with the fetch")
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	slow := make(chan struct{})
	fake := newFake(
		eventsResponse{agg: core.Aggregate{Events: events("old")}, release: slow},
		eventsResponse{agg: core.Aggregate{Events: events("new")}},
	)
	s := New(fake, WithLogger(quietLogger))

	first := make(chan error)
	go func() { first <- s.FetchEvents(context.Background()) }()

	// Wait until the slow request has been issued.
	for fake.count("events") == 0 {
		time.Sleep(time.Millisecond)
	}

	if err := s.FetchEvents(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(slow)
	if err := <-first; err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if !equal(ids(snap.Events), []string{"new"}) {
		t.Fatalf("events = %v, want the newest response", ids(snap.Events))
	}
	if snap.Loading {
		t.Errorf("loading stuck true")
	}
}

func TestToggleSourceRefetches(t *testing.T) {
	fake := newFake()
	s := New(fake, WithLogger(quietLogger), WithActiveSources([]string{"local", "google"}))

	if err := s.ToggleSource(context.Background(), "google"); err != nil {
		t.Fatal(err)
	}
	if err := s.ToggleSource(context.Background(), "apple"); err != nil {
		t.Fatal(err)
	}

	if got := s.Snapshot().Active; !equal(got, []string{"local", "apple"}) {
		t.Errorf("active = %v", got)
	}
	if fake.count("events") != 2 {
		t.Errorf("events fetched %d times, want 2", fake.count("events"))
	}
	if !equal(fake.sources[1], []string{"local", "apple"}) {
		t.Errorf("second fetch sent %v", fake.sources[1])
	}
}

func TestInvalidInputNeverReachesBackend(t *testing.T) {
	fake := newFake()
	s := New(fake, WithLogger(quietLogger))
	ctx := context.Background()
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		run  func() error
	}{
		{"blank title", func() error {
			_, err := s.CreateEvent(ctx, core.EventInput{Title: "  ", Start: start, End: start.Add(time.Hour)})
			return err
		}},
		{"end before start", func() error {
			_, err := s.CreateEvent(ctx, core.EventInput{Title: "x", Start: start, End: start.Add(-time.Hour)})
			return err
		}},
		{"empty patch", func() error {
			_, err := s.UpdateEvent(ctx, "e1", core.EventPatch{})
			return err
		}},
		{"missing status", func() error {
			return s.RespondToInvite(ctx, "e1", "")
		}},
		{"misspelled status", func() error {
			return s.RespondToInvite(ctx, "e1", "acepted")
		}},
		{"apple without password", func() error {
			_, err := s.ConnectApple(ctx, core.AppleCredentials{AppleID: "a@icloud.com"})
			return err
		}},
		{"bad sync direction", func() error {
			_, err := s.SyncApple(ctx, core.SyncRequest{Direction: "sideways"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *core.ValidationError
			if err := tt.run(); !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	for _, name := range []string{"create", "update", "respond", "apple-connect", "apple-sync", "events"} {
		if n := fake.count(name); n != 0 {
			t.Errorf("%s called %d times", name, n)
		}
	}
}

func TestMutationsAlwaysRefetch(t *testing.T) {
	notFound := &api.Error{Status: 404, Message: "Event not found"}
	fake := newFake()
	fake.mutateErr = notFound
	s := New(fake, WithLogger(quietLogger))

	err := s.DeleteEvent(context.Background(), "gone")
	if !errors.Is(err, notFound) {
		t.Fatalf("expected the delete error, got %v", err)
	}
	if fake.count("events") != 1 {
		t.Errorf("failed mutation should still re-fetch")
	}

	fake.mutateErr = nil
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	e, err := s.CreateEvent(context.Background(), core.EventInput{Title: "Lunch", Start: start, End: start.Add(time.Hour)})
	if err != nil || e.ID != "new" {
		t.Fatalf("CreateEvent = %+v, %v", e, err)
	}
	if err := s.RespondToInvite(context.Background(), "e1", core.InviteAccepted); err != nil {
		t.Fatal(err)
	}
	if fake.count("events") != 3 {
		t.Errorf("events fetched %d times, want 3", fake.count("events"))
	}
}

func TestProviderErrorsRecorded(t *testing.T) {
	fake := newFake()
	fake.syncErr = &api.RejectedError{Op: "apple sync", Message: "Apple account not connected"}
	s := New(fake, WithLogger(quietLogger))
	ctx := context.Background()

	_, err := s.SyncApple(ctx, core.SyncRequest{Direction: core.SyncPull, Days: 7})
	var rej *api.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if got := s.Snapshot().LastError[core.ProviderApple]; got != rej.Error() {
		t.Errorf("LastError = %q", got)
	}
	if fake.count("events") != 0 {
		t.Errorf("failed sync should not refresh")
	}

	fake.syncErr = nil
	res, err := s.SyncApple(ctx, core.SyncRequest{})
	if err != nil || res.Imported != 2 {
		t.Fatalf("SyncApple = %+v, %v", res, err)
	}
	if _, ok := s.Snapshot().LastError[core.ProviderApple]; ok {
		t.Errorf("LastError should be cleared by a success")
	}
	if fake.count("events") != 1 {
		t.Errorf("successful sync should refresh once")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	fake := newFake(eventsResponse{agg: core.Aggregate{Events: events("a")}})
	s := New(fake, WithLogger(quietLogger), WithActiveSources([]string{"local"}))
	_ = s.FetchEvents(context.Background())

	snap := s.Snapshot()
	snap.Events[0].ID = "mutated"
	snap.Active[0] = "mutated"

	again := s.Snapshot()
	if again.Events[0].ID != "a" || again.Active[0] != "local" {
		t.Fatalf("snapshot shares memory with the store")
	}
}

func TestSelectDate(t *testing.T) {
	s := New(newFake(), WithLogger(quietLogger))
	day := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	s.SelectDate(day)
	if !s.Snapshot().Selected.Equal(day) {
		t.Errorf("selected = %v", s.Snapshot().Selected)
	}
}
