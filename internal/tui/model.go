package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/robfig/cron/v3"

	"github.com/theakshaypant/calmerge/internal/api"
	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/session"
	"github.com/theakshaypant/calmerge/internal/store"
	"github.com/theakshaypant/calmerge/internal/util"
	"github.com/theakshaypant/calmerge/internal/view"
)

// KeyMap defines the keybindings for the TUI
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Open       key.Binding
	ViewEvent  key.Binding
	Refresh    key.Binding
	NextDay    key.Binding
	PrevDay    key.Binding
	Today      key.Binding
	DayScope   key.Binding
	Filter     key.Binding
	Month      key.Binding
	Sources    key.Binding
	Accept     key.Binding
	Decline    key.Binding
	Delete     key.Binding
	Logout     key.Binding
	Tab        key.Binding
	Quit       key.Binding
	Help       key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓", "down"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("ctrl+u", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("ctrl+d", "scroll down"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "join meeting"),
	),
	ViewEvent: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "view event"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	NextDay: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "next day"),
	),
	PrevDay: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "prev day"),
	),
	Today: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "today"),
	),
	DayScope: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "day view"),
	),
	Filter: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "filter"),
	),
	Month: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "month"),
	),
	Sources: key.NewBinding(
		key.WithKeys("1", "2", "3", "4"),
		key.WithHelp("1-4", "toggle source"),
	),
	Accept: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "accept"),
	),
	Decline: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "decline"),
	),
	Delete: key.NewBinding(
		key.WithKeys("D", "delete"),
		key.WithHelp("D", "delete"),
	),
	Logout: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "log out"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch panel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// Panel focus for compact mode
type PanelFocus int

const (
	FocusList PanelFocus = iota
	FocusDetail
)

type screen int

const (
	screenLogin screen = iota
	screenAgenda
	screenMonth
)

// Config carries the settings the TUI takes from configuration.
type Config struct {
	Mode      view.Mode
	WeekStart time.Weekday
	// Refresh is a cron expression for background refetches. Empty
	// disables them.
	Refresh string
	// Email pre-fills the login form.
	Email string
}

// confirmation is a pending destructive action waiting for y/n.
type confirmation struct {
	prompt string
	run    tea.Cmd
}

// Model is the Bubble Tea model for the TUI
type Model struct {
	store    *store.Store
	session  *session.Session
	feed     *Feed
	keys     KeyMap
	cfg      Config
	schedule cron.Schedule
	now      func() time.Time

	screen      screen
	login       loginForm
	state       store.State
	events      []core.Event // visible list, sorted
	mode        view.Mode
	dayScoped   bool
	selectedIdx int
	user        core.User
	status      string
	alert       string
	confirm     *confirmation
	refreshGen  int

	width         int
	height        int
	listWidth     int
	detailWidth   int
	contentHeight int
	listView      viewport.Model
	detailView    viewport.Model
	viewportReady bool
	compactMode   bool       // True when terminal is too narrow for side-by-side
	focusedPanel  PanelFocus // Which panel is shown in compact mode
	showHelp      bool       // Whether the help overlay is visible
}

// NewModel creates the TUI over st and sess. It always starts on the login
// form. feed must be the alerter of the API client behind st.
func NewModel(st *store.Store, sess *session.Session, feed *Feed, cfg Config) (Model, error) {
	var schedule cron.Schedule
	if cfg.Refresh != "" {
		var err error
		if schedule, err = cron.ParseStandard(cfg.Refresh); err != nil {
			return Model{}, fmt.Errorf("invalid refresh schedule %q: %w", cfg.Refresh, err)
		}
	}
	if cfg.Mode == "" {
		cfg.Mode = view.ModeUpcoming
	}

	st.Subscribe(feed.storeChanged)

	return Model{
		store:    st,
		session:  sess,
		feed:     feed,
		keys:     DefaultKeyMap,
		cfg:      cfg,
		schedule: schedule,
		now:      time.Now,
		screen:   screenLogin,
		login:    newLoginForm(cfg.Email),
		state:    st.Snapshot(),
		mode:     cfg.Mode,
	}, nil
}

// Messages
type loginDoneMsg struct {
	user core.User
	err  error
}

type opDoneMsg struct {
	op  string
	err error
}

type refreshMsg struct{ gen int }

type tickMsg time.Time

// Commands
func (m Model) loginCmd(email, password string) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		user, err := sess.Login(context.Background(), email, password)
		return loginDoneMsg{user: user, err: err}
	}
}

func (m Model) googleLoginCmd() tea.Cmd {
	sess, feed := m.session, m.feed
	return func() tea.Msg {
		user, err := sess.LoginWithGoogle(context.Background(), func(authURL string) {
			if err := util.OpenBrowser(authURL); err != nil {
				feed.Alert(fmt.Errorf("open this URL to sign in with Google: %s", authURL))
			}
		})
		return loginDoneMsg{user: user, err: err}
	}
}

// loadAll fetches the source list and then the events.
func (m Model) loadAll() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx := context.Background()
		sourcesErr := st.FetchCalendarSources(ctx)
		if err := st.FetchEvents(ctx); err != nil {
			return opDoneMsg{op: "refresh", err: err}
		}
		return opDoneMsg{op: "load calendar sources", err: sourcesErr}
	}
}

// storeCmd runs fn in the background and reports its outcome as op.
func (m Model) storeCmd(op string, fn func(st *store.Store, ctx context.Context) error) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(st, context.Background())}
	}
}

func (m Model) scheduleRefresh() tea.Cmd {
	if m.schedule == nil {
		return nil
	}
	gen := m.refreshGen
	now := m.now()
	return tea.Tick(m.schedule.Next(now).Sub(now), func(time.Time) tea.Msg {
		return refreshMsg{gen: gen}
	})
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.feed.waitForChange(), m.feed.waitForAlert(), tickCmd())
}

// calculateLayout calculates responsive layout dimensions
func (m *Model) calculateLayout() {
	// Minimum dimensions
	minHeight := 12

	width := m.width
	height := m.height

	if height < minHeight {
		height = minHeight
	}

	// Header and sources: 3 lines, status and help: 3 lines, padding: 2 lines
	m.contentHeight = height - 8
	if m.contentHeight < 5 {
		m.contentHeight = 5
	}

	// Compact mode threshold - if too narrow for side-by-side
	compactThreshold := 70
	m.compactMode = width < compactThreshold

	if m.compactMode {
		// Single panel mode - use full width
		m.listWidth = max(width-4, 20)
		m.detailWidth = max(width-4, 20)
		return
	}

	// Side-by-side mode
	// Responsive list/detail split based on width
	switch {
	case width < 100:
		// Narrow: 40% list, 60% detail
		m.listWidth = width * 40 / 100
	case width < 140:
		// Medium: 35% list, 65% detail
		m.listWidth = width * 35 / 100
	default:
		// Wide: 30% list, 70% detail (but cap list width)
		m.listWidth = min(width*30/100, 55)
	}

	m.listWidth = max(m.listWidth, 30)
	// Detail width is remainder minus gap
	m.detailWidth = max(width-m.listWidth-5, 35)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case storeChangedMsg:
		m.sync()
		return m, m.feed.waitForChange()

	case alertMsg:
		m.alert = api.Message(msg.err)
		return m, m.feed.waitForAlert()

	case loginDoneMsg:
		m.login.busy = false
		if msg.err != nil {
			m.login.err = api.Message(msg.err)
			return m, nil
		}
		m.user = msg.user
		m.screen = screenAgenda
		m.status = "Signed in as " + displayName(msg.user)
		m.refreshGen++
		m.store.SelectDate(m.now())
		m.sync()
		m.selectedIdx = m.findNowEventIdx()
		return m, tea.Batch(m.loadAll(), m.scheduleRefresh())

	case opDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %s", msg.op, api.Message(msg.err))
		} else if msg.op != "refresh" && msg.op != "load calendar sources" {
			m.status = msg.op + " done"
		}
		m.sync()
		return m, nil

	case refreshMsg:
		if msg.gen != m.refreshGen || m.screen == screenLogin {
			return m, nil
		}
		return m, tea.Batch(m.storeCmd("refresh", (*store.Store).FetchEvents), m.scheduleRefresh())

	case tickMsg:
		// Refresh the view every minute for countdown updates
		m.sync()
		return m, tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.screen == screenLogin {
		var cmd tea.Cmd
		m.login, cmd = m.login.update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// The alert modal swallows keys until dismissed
	if m.alert != "" {
		switch msg.String() {
		case "enter", "esc", " ":
			m.alert = ""
		}
		return m, nil
	}

	if m.confirm != nil {
		c := m.confirm
		m.confirm = nil
		if msg.String() == "y" || msg.String() == "Y" {
			m.status = "Working..."
			return m, c.run
		}
		m.status = "Cancelled"
		return m, nil
	}

	if m.screen == screenLogin {
		return m.handleLoginKey(msg)
	}

	// When help overlay is shown, any key dismisses it
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Month):
		if m.screen == screenMonth {
			m.screen = screenAgenda
		} else {
			m.screen = screenMonth
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.storeCmd("refresh", (*store.Store).FetchEvents)

	case key.Matches(msg, m.keys.Sources):
		p := core.Providers[int(msg.String()[0]-'1')]
		return m, m.storeCmd("toggle "+string(p), func(st *store.Store, ctx context.Context) error {
			return st.ToggleSource(ctx, string(p))
		})

	case key.Matches(msg, m.keys.Logout):
		err := m.session.Logout()
		m.screen = screenLogin
		m.login = newLoginForm(m.user.Email)
		m.user = core.User{}
		m.refreshGen++
		if err != nil {
			m.login.err = err.Error()
		}
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Today):
		m.selectDate(m.now())
		if !m.dayScoped {
			m.selectedIdx = m.findNowEventIdx()
			m.rebuild()
		}
		return m, nil
	}

	if m.screen == screenMonth {
		return m.handleMonthKey(msg)
	}
	return m.handleAgendaKey(msg)
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		m.login.setFocus(m.login.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.login.setFocus(m.login.focus - 1)
		return m, nil
	case "ctrl+g":
		m.login.busy = true
		m.login.err = ""
		return m, m.googleLoginCmd()
	case "enter":
		if !m.login.ready() {
			m.login.setFocus(m.login.focus + 1)
			return m, nil
		}
		m.login.busy = true
		m.login.err = ""
		return m, m.loginCmd(m.login.email(), m.login.password())
	}

	var cmd tea.Cmd
	m.login, cmd = m.login.update(msg)
	return m, cmd
}

func (m Model) handleAgendaKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
			m.rebuild()
			m.scrollListToSelection()
			m.detailView.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selectedIdx < len(m.events)-1 {
			m.selectedIdx++
			m.rebuild()
			m.scrollListToSelection()
			m.detailView.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		if m.compactMode && m.focusedPanel == FocusList {
			m.listView.ViewUp()
		} else {
			m.detailView.ViewUp()
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		if m.compactMode && m.focusedPanel == FocusList {
			m.listView.ViewDown()
		} else {
			m.detailView.ViewDown()
		}
		return m, nil

	case key.Matches(msg, m.keys.NextDay):
		m.dayScoped = true
		m.selectDate(m.state.Selected.AddDate(0, 0, 1))
		return m, nil

	case key.Matches(msg, m.keys.PrevDay):
		m.dayScoped = true
		m.selectDate(m.state.Selected.AddDate(0, 0, -1))
		return m, nil

	case key.Matches(msg, m.keys.DayScope):
		m.dayScoped = !m.dayScoped
		m.selectedIdx = 0
		m.rebuild()
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.mode = m.mode.Next()
		m.dayScoped = false
		m.selectedIdx = 0
		m.rebuild()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		// Toggle between panels (works in any mode, but most useful in compact)
		if m.focusedPanel == FocusList {
			m.focusedPanel = FocusDetail
		} else {
			m.focusedPanel = FocusList
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if e, ok := m.selected(); ok && e.MeetingLink != "" {
			return m, openURL(e.MeetingLink)
		}
		return m, nil

	case key.Matches(msg, m.keys.ViewEvent):
		if e, ok := m.selected(); ok && e.URL != "" {
			return m, openURL(e.URL)
		}
		return m, nil

	case key.Matches(msg, m.keys.Accept), key.Matches(msg, m.keys.Decline):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		if !e.IsInvite {
			m.status = "Not an invitation"
			return m, nil
		}
		status := core.InviteAccepted
		if key.Matches(msg, m.keys.Decline) {
			status = core.InviteDeclined
		}
		return m, m.storeCmd("respond", func(st *store.Store, ctx context.Context) error {
			return st.RespondToInvite(ctx, e.ID, status)
		})

	case key.Matches(msg, m.keys.Delete):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Delete %q from %s?", e.Title, providerLabel(e.Source)),
			run:    m.storeCmd("delete", deleteEvent(e)),
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleMonthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selectDate(m.state.Selected.AddDate(0, 0, -7))
	case key.Matches(msg, m.keys.Down):
		m.selectDate(m.state.Selected.AddDate(0, 0, 7))
	case key.Matches(msg, m.keys.PrevDay):
		m.selectDate(m.state.Selected.AddDate(0, 0, -1))
	case key.Matches(msg, m.keys.NextDay):
		m.selectDate(m.state.Selected.AddDate(0, 0, 1))
	case key.Matches(msg, m.keys.Open), key.Matches(msg, m.keys.DayScope):
		m.screen = screenAgenda
		m.dayScoped = true
		m.selectedIdx = 0
		m.rebuild()
	}
	return m, nil
}

// deleteEvent routes a delete to the provider the event came from.
func deleteEvent(e core.Event) func(*store.Store, context.Context) error {
	return func(st *store.Store, ctx context.Context) error {
		switch e.Source {
		case core.ProviderApple:
			return st.DeleteAppleEvent(ctx, e.ID)
		case core.ProviderMicrosoft:
			return st.DeleteMicrosoftEvent(ctx, e.ID)
		default:
			return st.DeleteEvent(ctx, e.ID)
		}
	}
}

// selectDate moves the selected day and rescopes the list.
func (m *Model) selectDate(t time.Time) {
	m.store.SelectDate(t)
	if m.dayScoped {
		m.selectedIdx = 0
	}
	m.sync()
}

// sync pulls a fresh snapshot from the store and rebuilds the views.
func (m *Model) sync() {
	m.state = m.store.Snapshot()
	m.rebuild()
}

// visible returns the events the list shows: the selected day's events
// when day scoped, otherwise the current filter mode over everything.
func (m Model) visible() []core.Event {
	now := m.now()
	if m.dayScoped {
		return view.SortByStart(view.Filter(m.state.Events, view.ModeAll, now, view.DayScope(m.state.Selected)))
	}
	return view.SortByStart(view.Filter(m.state.Events, m.mode, now, view.Scope{}))
}

func (m *Model) rebuild() {
	m.events = m.visible()
	if m.selectedIdx >= len(m.events) {
		m.selectedIdx = max(len(m.events)-1, 0)
	}
	m.updateListContent()
	m.updateDetailContent()
}

func (m Model) selected() (core.Event, bool) {
	if len(m.events) == 0 || m.selectedIdx >= len(m.events) {
		return core.Event{}, false
	}
	return m.events[m.selectedIdx], true
}

func (m *Model) resize() {
	m.calculateLayout()

	// Calculate viewport dimensions
	listViewportHeight := max(m.contentHeight-4, 1)  // Account for borders and header
	listViewportWidth := max(m.listWidth-4, 10)      // Account for padding
	detailViewportHeight := max(m.contentHeight-4, 1) // Account for panel header and borders
	detailViewportWidth := max(m.detailWidth-4, 10)

	if !m.viewportReady {
		m.listView = viewport.New(listViewportWidth, listViewportHeight)
		m.listView.Style = lipgloss.NewStyle()
		m.detailView = viewport.New(detailViewportWidth, detailViewportHeight)
		m.detailView.Style = lipgloss.NewStyle()
		m.viewportReady = true
	} else {
		m.listView.Width = listViewportWidth
		m.listView.Height = listViewportHeight
		m.detailView.Width = detailViewportWidth
		m.detailView.Height = detailViewportHeight
	}
	m.rebuild()
}

// isToday reports whether the list shows today's events.
func (m Model) isToday() bool {
	return m.dayScoped && view.SameDay(m.state.Selected, m.now())
}

// findNowEventIdx returns the index of the first upcoming event, or 0 when
// the list is scoped to another day.
func (m *Model) findNowEventIdx() int {
	if len(m.events) == 0 {
		return 0
	}
	if m.dayScoped && !m.isToday() {
		return 0
	}

	now := m.now()
	for i, event := range m.events {
		if !event.IsAllDay && event.Start.After(now) {
			return i
		}
	}

	// All events are past or in progress, select the last one
	return len(m.events) - 1
}

// openURL opens a URL in the default browser
func openURL(url string) tea.Cmd {
	return func() tea.Msg {
		_ = util.OpenBrowser(url)
		return nil
	}
}
