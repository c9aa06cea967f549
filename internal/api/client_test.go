package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/secrets"
)

type recordingAlerter struct {
	mu   sync.Mutex
	errs []error
}

func (a *recordingAlerter) Alert(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs = append(a.errs, err)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errs)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func signedInStore(t *testing.T) core.CredentialStore {
	t.Helper()
	store := secrets.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err := store.Save(core.Credentials{Token: "secret-token", User: core.User{Email: "ada@example.com"}}); err != nil {
		t.Fatal(err)
	}
	return store
}

func newTestClient(t *testing.T, h http.Handler, store core.CredentialStore) (*Client, *recordingAlerter) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	alerts := &recordingAlerter{}
	return New(srv.URL, store, WithAlerter(alerts), WithLogger(quietLogger)), alerts
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestBearerTokenAndRequestID(t *testing.T) {
	var gotAuth, gotID string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, `[]`)
	}), signedInStore(t))

	if _, err := c.CalendarSources(context.Background()); err != nil {
		t.Fatalf("CalendarSources: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotID == "" {
		t.Errorf("X-Request-ID missing")
	}
}

func TestNotSignedInSkipsNetwork(t *testing.T) {
	called := false
	store := secrets.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), store)

	_, err := c.Events(context.Background(), nil)
	if !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if called {
		t.Fatalf("request reached the server without a token")
	}
}

func TestLoginIsAnonymous(t *testing.T) {
	store := secrets.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login sent a bearer token")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ada@example.com" || body["password"] != "pw" {
			t.Errorf("body = %v", body)
		}
		writeJSON(w, http.StatusOK, `{"access_token":"t1","token_type":"bearer","user":{"id":7,"email":"ada@example.com","name":"Ada"}}`)
	}), store)

	creds, err := c.Login(context.Background(), "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if creds.Token != "t1" || creds.User.ID != "7" || creds.User.Name != "Ada" {
		t.Fatalf("credentials = %+v", creds)
	}
}

func TestMissingBaseURL(t *testing.T) {
	alerts := &recordingAlerter{}
	c := New("", signedInStore(t), WithAlerter(alerts), WithLogger(quietLogger))

	_, err := c.Events(context.Background(), nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if alerts.count() != 1 {
		t.Errorf("config errors should be alerted")
	}

	if _, err := New("ftp://example.com", nil).BaseURL(); err == nil {
		t.Errorf("expected ftp scheme to be rejected")
	}
}

func TestErrorMessageAndAlerting(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		alerted bool
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"Invalid credentials"}`, "Invalid credentials", true},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","title"],"msg":"field required"}]}`, "title: field required", false},
		{"not found", http.StatusNotFound, `{"detail":"Event not found"}`, "Event not found", false},
		{"message key", http.StatusInternalServerError, `{"message":"boom"}`, "boom", true},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, alerts := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}), signedInStore(t))

			err := c.DeleteEvent(context.Background(), "e1")
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.message {
				t.Errorf("got %d %q, want %d %q", apiErr.Status, apiErr.Message, tt.status, tt.message)
			}
			if Message(err) != tt.message {
				t.Errorf("Message = %q", Message(err))
			}
			if got := alerts.count() == 1; got != tt.alerted {
				t.Errorf("alerted = %v, want %v", got, tt.alerted)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	alerts := &recordingAlerter{}
	c := New(url, signedInStore(t), WithAlerter(alerts), WithLogger(quietLogger), WithTimeout(2*time.Second))

	_, err := c.Events(context.Background(), nil)
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if alerts.count() != 1 {
		t.Errorf("transport errors should be alerted")
	}
}

func TestEventsBucketOrder(t *testing.T) {
	var gotSources string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSources = r.URL.Query().Get("calendar_sources")
		writeJSON(w, http.StatusOK, `{
			"microsoft_events": [{"id":"m1","subject":"Graph","start":{"dateTime":"2024-06-03T09:00:00","timeZone":"UTC"},"end":{"dateTime":"2024-06-03T10:00:00","timeZone":"UTC"}}],
			"apple_events": [{"id":"a1","title":"Apple","start_time":"2024-06-03T09:00:00Z","end_time":"2024-06-03T10:00:00Z"}],
			"google_events": [{"kind":"calendar#event","id":"g1","summary":"Google","start":{"dateTime":"2024-06-03T09:00:00Z"},"end":{"dateTime":"2024-06-03T10:00:00Z"}}],
			"local_events": [{"id":1,"title":"Local","start_time":"2024-06-03T09:00:00","end_time":"2024-06-03T10:00:00"}]
		}`)
	}), signedInStore(t))

	agg, err := c.Events(context.Background(), []string{"local", "google"})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if gotSources != "local,google" {
		t.Errorf("calendar_sources = %q", gotSources)
	}

	var ids []string
	for _, e := range agg.Events {
		ids = append(ids, e.ID+":"+string(e.Source))
	}
	want := "1:local,g1:google,a1:apple,m1:microsoft"
	if strings.Join(ids, ",") != want {
		t.Fatalf("order = %v, want %s", ids, want)
	}
	if !agg.AppleConnected || !agg.MicrosoftConnected {
		t.Errorf("connected flags = %v/%v", agg.AppleConnected, agg.MicrosoftConnected)
	}
}

func TestEventsExplicitConnectedFlag(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, `{"local_events":[],"apple_events":[],"apple_connected":true}`)
	}), signedInStore(t))

	agg, err := c.Events(context.Background(), nil)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(agg.Events) != 0 || !agg.AppleConnected || agg.MicrosoftConnected {
		t.Fatalf("aggregate = %+v", agg)
	}
}

func TestEventsFlatArray(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"id":"x","title":"Mine","start_time":"2024-06-03T09:00:00Z","end_time":"2024-06-03T10:00:00Z"},
			{"id":"y","title":"Theirs","source":"apple","start_time":"2024-06-03T09:00:00Z","end_time":"2024-06-03T10:00:00Z"},
			"garbage"
		]`)
	}), signedInStore(t))

	agg, err := c.Events(context.Background(), nil)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(agg.Events) != 2 {
		t.Fatalf("expected undecodable item to be skipped, got %d events", len(agg.Events))
	}
	if agg.Events[0].Source != core.ProviderLocal || agg.Events[1].Source != core.ProviderApple {
		t.Errorf("sources = %q, %q", agg.Events[0].Source, agg.Events[1].Source)
	}
	if !agg.AppleConnected {
		t.Errorf("apple should be connected when apple events are present")
	}
}

func TestMicrosoftEventsGraphCollection(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"value":[
			{"id":"m1","subject":"Standup","start":{"dateTime":"2024-06-03T09:00:00.0000000","timeZone":"UTC"},"end":{"dateTime":"2024-06-03T09:15:00.0000000","timeZone":"UTC"}},
			{"id":"m2","subject":"Gone","isCancelled":true,"start":{"dateTime":"2024-06-03T11:00:00","timeZone":"UTC"},"end":{"dateTime":"2024-06-03T12:00:00","timeZone":"UTC"}}
		]}`)
	}), signedInStore(t))

	events, err := c.MicrosoftEvents(context.Background())
	if err != nil {
		t.Fatalf("MicrosoftEvents: %v", err)
	}
	if len(events) != 1 || events[0].ID != "m1" || events[0].Duration() != 15*time.Minute {
		t.Fatalf("events = %+v", events)
	}
}

// fakeBackend is a tiny in-memory events API.
type fakeBackend struct {
	mu     sync.Mutex
	nextID int
	events map[string]map[string]any
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := strings.TrimPrefix(r.URL.Path, "/api/events/")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/events":
		list := make([]map[string]any, 0, len(f.events))
		for n := 1; n <= f.nextID; n++ {
			if ev, ok := f.events[jsonNumber(n)]; ok {
				list = append(list, ev)
			}
		}
		b, _ := json.Marshal(map[string]any{"local_events": list})
		writeJSON(w, http.StatusOK, string(b))
	case r.Method == http.MethodPost && r.URL.Path == "/api/events":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, `{"detail":"bad json"}`)
			return
		}
		f.nextID++
		body["id"] = f.nextID
		f.events[jsonNumber(f.nextID)] = body
		b, _ := json.Marshal(body)
		writeJSON(w, http.StatusCreated, string(b))
	case r.Method == http.MethodDelete:
		if _, ok := f.events[id]; !ok {
			writeJSON(w, http.StatusNotFound, `{"detail":"Event not found"}`)
			return
		}
		delete(f.events, id)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/respond"):
		id = strings.TrimSuffix(id, "/respond")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		ev, ok := f.events[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, `{"detail":"Event not found"}`)
			return
		}
		ev["invite_status"] = body["status"]
		writeJSON(w, http.StatusOK, `{"ok":true}`)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, `{"detail":"unsupported"}`)
	}
}

func jsonNumber(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCreateAndDeleteEvent(t *testing.T) {
	backend := &fakeBackend{events: map[string]map[string]any{}}
	c, alerts := newTestClient(t, backend, signedInStore(t))
	ctx := context.Background()

	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	created, err := c.CreateEvent(ctx, core.EventInput{Title: "  Lunch ", Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.ID != "1" || created.Title != "Lunch" || !created.Start.Equal(start) || created.Source != core.ProviderLocal {
		t.Fatalf("created = %+v", created)
	}

	if err := c.RespondToInvite(ctx, created.ID, core.InviteAccepted); err != nil {
		t.Fatalf("RespondToInvite: %v", err)
	}
	if got := backend.events["1"]["invite_status"]; got != "accepted" {
		t.Errorf("invite_status = %v", got)
	}

	if err := c.DeleteEvent(ctx, created.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	err = c.DeleteEvent(ctx, created.ID)
	if !IsNotFound(err) {
		t.Fatalf("second delete: expected 404, got %v", err)
	}
	if alerts.count() != 0 {
		t.Errorf("a 404 must not be alerted")
	}
}

func TestCreateThenFetchRoundTrip(t *testing.T) {
	backend := &fakeBackend{events: map[string]map[string]any{}}
	c, _ := newTestClient(t, backend, signedInStore(t))
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if _, err := c.CreateEvent(ctx, core.EventInput{Title: "A", Start: start, End: start.Add(time.Hour)}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	agg, err := c.Events(ctx, nil)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(agg.Events) != 1 {
		t.Fatalf("events = %+v, want exactly one", agg.Events)
	}
	got := agg.Events[0]
	if got.ID == "" || got.Title != "A" || !got.Start.Equal(start) || !got.End.Equal(start.Add(time.Hour)) {
		t.Errorf("fetched = %+v", got)
	}
}

func TestMicrosoftLoginURLRedirect(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://login.microsoftonline.com/common/oauth2/v2.0/authorize?state=abc", http.StatusFound)
	}), signedInStore(t))

	u, err := c.MicrosoftLoginURL(context.Background())
	if err != nil {
		t.Fatalf("MicrosoftLoginURL: %v", err)
	}
	if !strings.HasPrefix(u, "https://login.microsoftonline.com/") {
		t.Fatalf("url = %q", u)
	}
}

func TestMicrosoftLoginURLJSON(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"auth_url":"https://login.example/authorize"}`)
	}), signedInStore(t))

	u, err := c.MicrosoftLoginURL(context.Background())
	if err != nil || u != "https://login.example/authorize" {
		t.Fatalf("MicrosoftLoginURL = %q, %v", u, err)
	}
}

func TestAppleSyncRejected(t *testing.T) {
	c, alerts := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["sync_direction"] != "bidirectional" || body["date_range_days"] != float64(30) {
			t.Errorf("body = %v", body)
		}
		writeJSON(w, http.StatusOK, `{"success":false,"message":"Apple account not connected"}`)
	}), signedInStore(t))

	_, err := c.SyncApple(context.Background(), core.SyncRequest{})
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Message != "Apple account not connected" {
		t.Fatalf("expected *RejectedError, got %v", err)
	}
	if alerts.count() != 1 {
		t.Errorf("rejections should be alerted")
	}
}

func TestAppleSyncCounts(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"imported":"3","exported":2,"message":"done"}`)
	}), signedInStore(t))

	res, err := c.SyncApple(context.Background(), core.SyncRequest{Direction: core.SyncPull, Days: 7})
	if err != nil {
		t.Fatalf("SyncApple: %v", err)
	}
	if res.Imported != 3 || res.Exported != 2 || res.Message != "done" {
		t.Fatalf("result = %+v", res)
	}
}

func TestAppleInstructionsShapes(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`{"steps":["one","two"]}`, 2},
		{`{"instructions":[{"step":"one"},{"text":"two"},{"description":"three"}]}`, 3},
		{`{"instructions":"one\n\ntwo\n"}`, 2},
	}
	for _, tt := range tests {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, tt.body)
		}), signedInStore(t))

		in, err := c.AppleInstructions(context.Background())
		if err != nil {
			t.Fatalf("AppleInstructions(%s): %v", tt.body, err)
		}
		if len(in.Steps) != tt.want {
			t.Errorf("AppleInstructions(%s) steps = %v", tt.body, in.Steps)
		}
	}
}

func TestStepsFromObjectList(t *testing.T) {
	got := steps(json.RawMessage(`[{"step":"one"},{"text":"two"},{"description":"three"}]`))
	want := []string{"one", "two", "three"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("steps = %q, want %q", got, want)
	}
	if got := steps(json.RawMessage(`42`)); got != nil {
		t.Errorf("steps(42) = %q, want nil", got)
	}
}
