package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/theakshaypant/calmerge/internal/api"
	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/secrets"
)

// eventsServer is an in-memory /api/events backend keeping insertion order.
type eventsServer struct {
	mu     sync.Mutex
	nextID int
	order  []string
	events map[string]map[string]any
}

func (s *eventsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/events/")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/events":
		list := make([]map[string]any, 0, len(s.order))
		for _, id := range s.order {
			list = append(list, s.events[id])
		}
		reply(http.StatusOK, map[string]any{"local_events": list})
	case r.Method == http.MethodPost && r.URL.Path == "/api/events":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			reply(http.StatusBadRequest, map[string]string{"detail": "bad json"})
			return
		}
		s.nextID++
		id := strconv.Itoa(s.nextID)
		body["id"] = id
		s.events[id] = body
		s.order = append(s.order, id)
		reply(http.StatusCreated, body)
	case r.Method == http.MethodDelete:
		if _, ok := s.events[id]; !ok {
			reply(http.StatusNotFound, map[string]string{"detail": "Event not found"})
			return
		}
		delete(s.events, id)
		for i, o := range s.order {
			if o == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		reply(http.StatusMethodNotAllowed, map[string]string{"detail": "unsupported"})
	}
}

func newHTTPStore(t *testing.T) *Store {
	t.Helper()
	srv := httptest.NewServer(&eventsServer{events: map[string]map[string]any{}})
	t.Cleanup(srv.Close)

	creds := secrets.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err := creds.Save(core.Credentials{Token: "tok", User: core.User{Email: "ada@example.com"}}); err != nil {
		t.Fatal(err)
	}
	client := api.New(srv.URL, creds, api.WithLogger(quietLogger))
	return New(client, WithLogger(quietLogger))
}

func TestCreateThenFetchOverHTTP(t *testing.T) {
	s := newHTTPStore(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	created, err := s.CreateEvent(ctx, core.EventInput{Title: "A", Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	got := s.Snapshot().Events
	if len(got) != 1 {
		t.Fatalf("events = %+v, want exactly one", got)
	}
	e := got[0]
	if e.ID == "" || e.ID != created.ID {
		t.Errorf("id = %q, created %q", e.ID, created.ID)
	}
	if e.Title != "A" || !e.Start.Equal(start) || !e.End.Equal(start.Add(time.Hour)) {
		t.Errorf("fetched = %+v", e)
	}
}

func TestSecondDeleteIsNotFoundAndKeepsOthers(t *testing.T) {
	s := newHTTPStore(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	a, err := s.CreateEvent(ctx, core.EventInput{Title: "A", Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	if _, err := s.CreateEvent(ctx, core.EventInput{Title: "B", Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour)}); err != nil {
		t.Fatalf("create B: %v", err)
	}

	if err := s.DeleteEvent(ctx, a.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	err = s.DeleteEvent(ctx, a.ID)
	if !api.IsNotFound(err) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}

	got := s.Snapshot().Events
	if len(got) != 1 || got[0].Title != "B" {
		t.Errorf("events after second delete = %+v, want only B", got)
	}
}
