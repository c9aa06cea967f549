package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theakshaypant/calmerge/internal/api"
	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/secrets"
	"github.com/theakshaypant/calmerge/internal/session"
	"github.com/theakshaypant/calmerge/internal/store"
	"github.com/theakshaypant/calmerge/internal/view"
)

var fixedNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.Local)

// fakeBackend serves a fixed aggregate. Methods not overridden panic
// through the nil embedded interface.
type fakeBackend struct {
	core.Backend

	mu        sync.Mutex
	events    []core.Event
	deleted   []string
	responses map[string]core.InviteStatus
}

func (f *fakeBackend) Events(context.Context, []string) (core.Aggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return core.Aggregate{Events: append([]core.Event{}, f.events...)}, nil
}

func (f *fakeBackend) CalendarSources(context.Context) ([]core.CalendarSource, error) {
	return []core.CalendarSource{{ID: "google", Name: "Google", Active: true}}, nil
}

func (f *fakeBackend) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) RespondToInvite(_ context.Context, id string, status core.InviteStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.responses == nil {
		f.responses = map[string]core.InviteStatus{}
	}
	f.responses[id] = status
	return nil
}

type fakeAuth struct {
	creds core.Credentials
	err   error
}

func (f fakeAuth) Login(context.Context, string, string) (core.Credentials, error) {
	return f.creds, f.err
}

func (f fakeAuth) Register(context.Context, string, string, string) (core.Credentials, error) {
	return f.creds, f.err
}

func (f fakeAuth) GoogleLoginURL(string) (string, error) {
	return "https://backend.example/google", nil
}

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.Local)
}

func sampleEvents() []core.Event {
	return []core.Event{
		{ID: "standup", Title: "Standup", Start: at(12, 9), End: at(12, 9).Add(15 * time.Minute), Source: core.ProviderGoogle},
		{ID: "review", Title: "Design review", Start: at(12, 14), End: at(12, 15), Source: core.ProviderMicrosoft,
			IsInvite: true, InviteStatus: core.InvitePending},
		{ID: "retro", Title: "Retro", Start: at(10, 16), End: at(10, 17), Source: core.ProviderLocal},
		{ID: "offsite", Title: "Offsite", Start: at(13, 0), End: at(14, 0), IsAllDay: true, Source: core.ProviderApple},
	}
}

func newTestModel(t *testing.T, backend *fakeBackend, authErr error) Model {
	t.Helper()
	st := store.New(backend)
	auth := fakeAuth{
		creds: core.Credentials{Token: "tok", User: core.User{ID: "1", Email: "ada@example.com", Name: "Ada"}},
		err:   authErr,
	}
	sess := session.New(auth, secrets.NewFileStore(filepath.Join(t.TempDir(), "session.json")),
		session.WithCallbackPort(0))

	m, err := NewModel(st, sess, NewFeed(), Config{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	m.now = func() time.Time { return fixedNow }
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// signIn types a password, submits the form and loads the events.
func signIn(t *testing.T, m Model) Model {
	t.Helper()
	m = update(t, m, keyMsg("secret"))
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	if cmd == nil {
		t.Fatal("submitting the form returned no command")
	}
	if !m.login.busy {
		t.Error("form not busy while signing in")
	}
	m = update(t, m, cmd())
	if m.screen != screenAgenda {
		t.Fatalf("screen = %v after sign in, want agenda (login error %q)", m.screen, m.login.err)
	}
	return update(t, m, m.loadAll()())
}

func titles(events []core.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func TestNewModelRejectsInvalidSchedule(t *testing.T) {
	st := store.New(&fakeBackend{})
	sess := session.New(fakeAuth{}, secrets.NewFileStore(filepath.Join(t.TempDir(), "s.json")))
	if _, err := NewModel(st, sess, NewFeed(), Config{Refresh: "every so often"}); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
	if _, err := NewModel(st, sess, NewFeed(), Config{Refresh: "*/5 * * * *"}); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}
}

func TestStartsOnLoginForm(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, nil)
	if m.screen != screenLogin {
		t.Fatalf("screen = %v, want login", m.screen)
	}
	if m.login.email() != "ada@example.com" {
		t.Errorf("email = %q, want prefilled", m.login.email())
	}
	if m.login.focus != fieldPassword {
		t.Error("focus should start on the password when the email is known")
	}
	if !strings.Contains(m.View(), "Sign in to calmerge") {
		t.Error("login view missing title")
	}
}

func TestLoginLoadsEvents(t *testing.T) {
	m := signIn(t, newTestModel(t, &fakeBackend{events: sampleEvents()}, nil))

	if m.user.Name != "Ada" {
		t.Errorf("user = %+v", m.user)
	}
	// upcoming keeps everything from the start of today, sorted
	want := []string{"Standup", "Design review", "Offsite"}
	if got := titles(m.events); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", got, want)
	}
	if !strings.Contains(m.View(), "Standup") {
		t.Error("agenda view missing event title")
	}
}

func TestLoginFailureStaysOnForm(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, &api.Error{Status: 401, Message: "invalid credentials"})
	m = update(t, m, keyMsg("nope"))
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	m = update(t, m, cmd())

	if m.screen != screenLogin {
		t.Fatalf("screen = %v, want login", m.screen)
	}
	if m.login.busy || m.login.err == "" {
		t.Errorf("form state busy=%v err=%q", m.login.busy, m.login.err)
	}
}

func TestEnterWithEmptyPasswordMovesFocus(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, nil)
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	if cmd != nil || m.login.busy {
		t.Fatal("submitted an incomplete form")
	}
	if m.login.focus != fieldEmail {
		t.Errorf("focus = %d, want wrap to email", m.login.focus)
	}
}

func TestFilterCycles(t *testing.T) {
	m := signIn(t, newTestModel(t, &fakeBackend{events: sampleEvents()}, nil))

	m = update(t, m, keyMsg("f"))
	if m.mode != view.ModePast {
		t.Fatalf("mode = %s, want past", m.mode)
	}
	if got := titles(m.events); len(got) != 2 || got[0] != "Retro" || got[1] != "Standup" {
		t.Errorf("past events = %v", got)
	}

	m = update(t, m, keyMsg("f"))
	if got := titles(m.events); len(got) != 1 || got[0] != "Design review" {
		t.Errorf("invites = %v", got)
	}

	m = update(t, m, keyMsg("f"))
	if len(m.events) != 4 {
		t.Errorf("all = %v", titles(m.events))
	}
}

func TestDayNavigationScopesList(t *testing.T) {
	m := signIn(t, newTestModel(t, &fakeBackend{events: sampleEvents()}, nil))

	m = update(t, m, keyMsg("right"))
	if !m.dayScoped {
		t.Fatal("moving a day should scope the list to it")
	}
	if !view.SameDay(m.state.Selected, at(13, 0)) {
		t.Errorf("selected = %v", m.state.Selected)
	}
	if got := titles(m.events); len(got) != 1 || got[0] != "Offsite" {
		t.Errorf("day events = %v", got)
	}

	m = update(t, m, keyMsg("t"))
	if got := titles(m.events); len(got) != 2 {
		t.Errorf("today = %v", got)
	}
	if !strings.Contains(m.View(), "NOW") {
		t.Error("today's list missing the now divider")
	}
}

func TestAlertModalSwallowsKeys(t *testing.T) {
	m := signIn(t, newTestModel(t, &fakeBackend{events: sampleEvents()}, nil))

	m = update(t, m, alertMsg{err: errors.New("backend unreachable")})
	if !strings.Contains(m.View(), "backend unreachable") {
		t.Fatal("alert not shown")
	}

	m, cmd := updateCmd(t, m, keyMsg("q"))
	if cmd != nil {
		t.Error("q should not quit while the alert is open")
	}
	if m.alert == "" {
		t.Fatal("alert dismissed by an unrelated key")
	}

	m = update(t, m, keyMsg("enter"))
	if m.alert != "" {
		t.Error("enter should dismiss the alert")
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	backend := &fakeBackend{events: sampleEvents()}
	m := signIn(t, newTestModel(t, backend, nil))

	m = update(t, m, keyMsg("D"))
	if m.confirm == nil {
		t.Fatal("delete did not ask for confirmation")
	}
	m = update(t, m, keyMsg("n"))
	if m.confirm != nil || m.status != "Cancelled" {
		t.Errorf("confirm=%v status=%q", m.confirm, m.status)
	}

	m = update(t, m, keyMsg("D"))
	m, cmd := updateCmd(t, m, keyMsg("y"))
	if cmd == nil {
		t.Fatal("confirming returned no command")
	}
	m = update(t, m, cmd())

	if len(backend.deleted) != 1 || backend.deleted[0] != "standup" {
		t.Errorf("deleted = %v", backend.deleted)
	}
	if m.status != "delete done" {
		t.Errorf("status = %q", m.status)
	}
}

func TestRespondOnlyToInvitations(t *testing.T) {
	backend := &fakeBackend{events: sampleEvents()}
	m := signIn(t, newTestModel(t, backend, nil))

	m, cmd := updateCmd(t, m, keyMsg("a"))
	if cmd != nil || m.status != "Not an invitation" {
		t.Fatalf("status = %q", m.status)
	}

	m = update(t, m, keyMsg("j"))
	m, cmd = updateCmd(t, m, keyMsg("x"))
	if cmd == nil {
		t.Fatal("declining returned no command")
	}
	update(t, m, cmd())
	if backend.responses["review"] != core.InviteDeclined {
		t.Errorf("responses = %v", backend.responses)
	}
}

func TestMonthView(t *testing.T) {
	m := signIn(t, newTestModel(t, &fakeBackend{events: sampleEvents()}, nil))

	m = update(t, m, keyMsg("m"))
	if m.screen != screenMonth {
		t.Fatalf("screen = %v, want month", m.screen)
	}
	out := m.View()
	for _, want := range []string{"March 2025", "Sun", "31", "Standup"} {
		if !strings.Contains(out, want) {
			t.Errorf("month view missing %q", want)
		}
	}

	m = update(t, m, keyMsg("j"))
	if !view.SameDay(m.state.Selected, at(19, 0)) {
		t.Errorf("down should move a week, selected = %v", m.state.Selected)
	}

	m = update(t, m, keyMsg("enter"))
	if m.screen != screenAgenda || !m.dayScoped {
		t.Error("enter should open the selected day")
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	m := signIn(t, newTestModel(t, &fakeBackend{events: sampleEvents()}, nil))
	gen := m.refreshGen

	m = update(t, m, keyMsg("L"))
	if m.screen != screenLogin {
		t.Fatalf("screen = %v, want login", m.screen)
	}
	if m.refreshGen == gen {
		t.Error("logout should invalidate pending refreshes")
	}
	if m.login.email() != "ada@example.com" {
		t.Errorf("email = %q", m.login.email())
	}

	// A refresh scheduled before the logout is ignored
	if _, cmd := updateCmd(t, m, refreshMsg{gen: gen}); cmd != nil {
		t.Error("stale refresh ran")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{15 * time.Minute, "15m"},
		{time.Hour, "1h"},
		{90 * time.Minute, "1h 30m"},
		{26 * time.Hour, "1d 2h"},
		{48 * time.Hour, "2d"},
		{-30 * time.Minute, "30m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
