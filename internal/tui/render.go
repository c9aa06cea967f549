package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/store"
	"github.com/theakshaypant/calmerge/internal/util"
	"github.com/theakshaypant/calmerge/internal/view"
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch {
	case m.alert != "":
		return m.renderModal(ModalStyle, "⚠️  Something went wrong", m.alert, "enter to dismiss")
	case m.confirm != nil:
		return m.renderModal(ConfirmStyle, "Confirm", m.confirm.prompt, "y to confirm, any other key to cancel")
	case m.screen == screenLogin:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.login.view())
	case m.screen == screenMonth:
		body = m.renderMonth()
	default:
		body = m.renderAgenda()
	}

	return AppStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderSources(), body, m.renderStatus(), m.renderHelp()),
	)
}

func (m Model) renderModal(style lipgloss.Style, title, text, hint string) string {
	box := style.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(title),
		"",
		ansi.Wordwrap(text, 50, ""),
		"",
		lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render(hint),
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderAgenda() string {
	if m.compactMode {
		// Single panel mode
		switch {
		case m.showHelp:
			return m.renderHelpPanel()
		case m.focusedPanel == FocusList:
			return m.renderListPanel()
		default:
			return m.renderDetailPanel()
		}
	}

	// Side-by-side mode, help replaces the detail panel
	rightPanel := m.renderDetailPanel()
	if m.showHelp {
		rightPanel = m.renderHelpPanel()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderListPanel(), " ", rightPanel)
}

func (m Model) renderHeader() string {
	var scope string
	switch {
	case m.screen == screenMonth:
		scope = m.state.Selected.Format("January 2006")
	case m.dayScoped:
		scope = m.state.Selected.Format("Monday, January 2, 2006")
		if m.isToday() {
			scope = "Today • " + scope
		}
	default:
		scope = modeTitle(m.mode)
	}

	title := HeaderStyle.Render("📅 calmerge")
	date := lipgloss.NewStyle().Foreground(mutedColor).Render(scope)

	// In compact mode, show which panel is focused
	panelIndicator := ""
	if m.compactMode && m.screen == screenAgenda {
		label := " [Events]"
		if m.focusedPanel == FocusDetail {
			label = " [Details]"
		}
		panelIndicator = lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(label)
	}

	user := ""
	if m.user.Email != "" || m.user.Name != "" {
		user = "  " + lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render(displayName(m.user))
	}

	loading := ""
	if m.state.Loading {
		loading = "  " + lipgloss.NewStyle().Foreground(accentColor).Render("⟳ syncing")
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", date, panelIndicator, user, loading)
}

// renderSources shows the per-provider toggles with their shortcut keys.
func (m Model) renderSources() string {
	parts := make([]string, 0, len(core.Providers))
	for i, p := range core.Providers {
		label := fmt.Sprintf("%d %s", i+1, providerLabel(p))
		on := len(m.state.Active) == 0 || m.state.IsActive(string(p))

		var styled string
		if on {
			styled = SourceOnStyle.Inherit(providerStyle(p)).Render("● " + label)
		} else {
			styled = SourceOffStyle.Render("○ " + label)
		}
		if notConnected(m.state, p) {
			styled += lipgloss.NewStyle().Foreground(mutedColor).Render(" (not connected)")
		}
		if _, failed := m.state.LastError[p]; failed {
			styled += ErrorTextStyle.Render(" !")
		}
		parts = append(parts, styled)
	}
	return lipgloss.NewStyle().MarginBottom(1).Render(strings.Join(parts, "   "))
}

// notConnected reports a provider the last fetch said is not linked to the
// account. Nothing is reported before the first fetch.
func notConnected(s store.State, p core.Provider) bool {
	if s.Events == nil {
		return false
	}
	switch p {
	case core.ProviderApple:
		return !s.AppleConnected
	case core.ProviderMicrosoft:
		return !s.MicrosoftConnected
	}
	return false
}

func (m Model) renderStatus() string {
	var parts []string
	if m.status != "" {
		parts = append(parts, m.status)
	}
	for _, p := range core.Providers {
		if msg, ok := m.state.LastError[p]; ok {
			parts = append(parts, ErrorTextStyle.Render(providerLabel(p)+": "+msg))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return lipgloss.NewStyle().Foreground(mutedColor).Render(util.TruncateText(strings.Join(parts, "  •  "), max(m.width-4, 20)))
}

// updateListContent updates the list viewport with current events
func (m *Model) updateListContent() {
	if !m.viewportReady {
		return
	}

	var items []string
	if len(m.events) == 0 {
		items = append(items, NormalItemStyle.Render("No events"))
	} else {
		now := m.now()
		isToday := m.isToday()
		nowLineAdded := false

		for i, event := range m.events {
			// Add "NOW" divider before the first future timed event
			if isToday && !nowLineAdded && !event.IsAllDay && event.Start.After(now) {
				items = append(items, m.renderNowDivider())
				nowLineAdded = true
			}
			items = append(items, m.renderListItem(event, i == m.selectedIdx, m.listView.Width))
		}

		// If all timed events have started, show NOW at the end
		if isToday && !nowLineAdded {
			items = append(items, m.renderNowDivider())
		}
	}

	m.listView.SetContent(strings.Join(items, "\n"))
}

// renderNowDivider creates the "now" time indicator line
func (m Model) renderNowDivider() string {
	width := m.listView.Width
	nowText := fmt.Sprintf(" ▶ NOW %s ◀ ", m.now().Format("3:04 PM"))

	// Calculate padding for centering
	textLen := lipgloss.Width(nowText)
	leftPad := max((width-textLen)/2, 0)
	rightPad := max(width-textLen-leftPad, 0)

	line := strings.Repeat("─", leftPad) + nowText + strings.Repeat("─", rightPad)
	return lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render(line)
}

// nowDividerIdx returns the list position of the NOW divider, or -1 when
// there is none.
func (m Model) nowDividerIdx() int {
	if !m.isToday() {
		return -1
	}
	now := m.now()
	for i, event := range m.events {
		if !event.IsAllDay && event.Start.After(now) {
			return i
		}
	}
	return len(m.events)
}

// scrollListToSelection scrolls the list viewport to keep the selected item visible
func (m *Model) scrollListToSelection() {
	if !m.viewportReady || len(m.events) == 0 {
		return
	}

	// Account for the NOW divider above the selection
	lineOffset := 0
	if idx := m.nowDividerIdx(); idx >= 0 && m.selectedIdx >= idx {
		lineOffset = 1
	}

	selectedTop := m.selectedIdx + lineOffset
	selectedBottom := selectedTop + 1

	viewTop := m.listView.YOffset
	viewBottom := viewTop + m.listView.Height

	if selectedTop < viewTop {
		m.listView.SetYOffset(selectedTop)
	}
	if selectedBottom > viewBottom {
		m.listView.SetYOffset(selectedBottom - m.listView.Height)
	}
}

func (m Model) renderListPanel() string {
	if len(m.events) == 0 {
		empty := "No events"
		if !m.dayScoped && m.mode == view.ModeInvites {
			empty = "No pending invitations"
		}
		return ListPanelStyle.Width(m.listWidth).Height(m.contentHeight).Render(
			lipgloss.NewStyle().Foreground(mutedColor).Render(empty),
		)
	}

	// Add scroll indicator if list is scrollable
	scrollInfo := ""
	if m.viewportReady && m.listView.TotalLineCount() > m.listView.Height {
		scrollInfo = lipgloss.NewStyle().
			Foreground(mutedColor).
			Render(fmt.Sprintf(" (%d/%d)", m.selectedIdx+1, len(m.events)))
	}

	header := lipgloss.NewStyle().
		Foreground(primaryColor).
		Bold(true).
		Render("Events") + scrollInfo

	return ListPanelStyle.Width(m.listWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, m.listView.View()),
	)
}

func (m Model) renderListItem(event core.Event, selected bool, maxWidth int) string {
	now := m.now()
	isPast := event.End.Before(now)

	// Time, with the date when the list spans several days
	localStart := event.Start.Local()
	timeStr := localStart.Format("3:04 PM")
	if !m.dayScoped {
		timeStr = localStart.Format("Jan 2 15:04")
	}
	if event.IsAllDay {
		timeStr = "All day"
		if !m.dayScoped {
			timeStr = localStart.Format("Jan 2") + " ∙"
		}
	}
	if isPast {
		timeStr = "✓ " + timeStr
	}

	timeStyled := TimeStyle.Render(timeStr)
	if isPast {
		timeStyled = PastTimeStyle.Render(timeStr)
	}

	duration := DurationStyle.Render(formatDuration(event.Duration()))
	badge := providerStyle(event.Source).Render("●")

	// Time (12) + Duration (6) + badge and icons (~8) + spaces (~3)
	titleWidth := max(maxWidth-29, 10)
	title := util.TruncateText(event.Title, titleWidth)

	icons := ""
	if event.PendingInvite() {
		icons += " 📨"
	}
	if event.MeetingLink != "" {
		icons += " 📹"
	}
	if event.InProgress(now) {
		icons += " 🟢"
	}

	line := fmt.Sprintf("%s %s %s %s%s", timeStyled, duration, badge, title, icons)

	// Apply appropriate style based on state
	switch {
	case selected && isPast:
		return SelectedPastStyle.Render(line)
	case selected:
		return SelectedItemStyle.Render(line)
	case isPast:
		return PastItemStyle.Render(line)
	default:
		return NormalItemStyle.Render(line)
	}
}

// updateDetailContent updates the viewport with the current event details
func (m *Model) updateDetailContent() {
	if !m.viewportReady {
		return
	}
	event, ok := m.selected()
	if !ok {
		m.detailView.SetContent("")
		return
	}

	width := m.detailView.Width
	var lines []string

	// Title (wrap to panel width)
	lines = append(lines, TitleStyle.Render(ansi.Wordwrap(event.Title, width, "")))

	lines = append(lines, renderField("🗂  Source", providerStyle(event.Source).Render(providerLabel(event.Source))))
	if event.Calendar.Name != "" {
		lines = append(lines, renderField("📅 Calendar", event.Calendar.Name))
	}

	lines = append(lines, renderField("🕐 When", formatEventTime(event.Start, event.End, event.IsAllDay)))
	if !event.IsAllDay {
		lines = append(lines, renderField("⏱️  Duration", formatDuration(event.Duration())))
	}

	// Status: Past / In Progress / Upcoming
	now := m.now()
	switch {
	case event.End.Before(now):
		lines = append(lines, "", lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true).
			Render(fmt.Sprintf("✓ Ended %s ago", formatDuration(now.Sub(event.End)))))
	case event.InProgress(now):
		lines = append(lines, "", InProgressStyle.Render(fmt.Sprintf("🟢 IN PROGRESS • %s remaining", formatDuration(event.End.Sub(now)))))
	case event.Start.After(now):
		lines = append(lines, "", lipgloss.NewStyle().Foreground(accentColor).Render(fmt.Sprintf("⏳ Starts in %s", formatDuration(event.Start.Sub(now)))))
	}

	lines = append(lines, "")

	if event.Location != "" {
		lines = append(lines, renderWrappedField("📍 Location", event.Location, width))
	}

	if event.MeetingLink != "" {
		labelWidth := lipgloss.Width(LabelStyle.Render("📹 Join")) + 1
		displayURL := util.TruncateText(event.MeetingLink, width-labelWidth)
		linkText := util.MakeHyperlink(event.MeetingLink, LinkStyle.Render(displayURL))
		lines = append(lines, renderField("📹 Join", linkText))
	}

	if event.IsInvite {
		lines = append(lines, renderField("📨 Invitation", formatInvite(event.InviteStatus)))
		if event.PendingInvite() {
			lines = append(lines, lipgloss.NewStyle().Foreground(mutedColor).Italic(true).
				Render("   a to accept, x to decline"))
		}
	}

	// Description (convert HTML to plain text, then word-wrap)
	if event.Description != "" {
		lines = append(lines, "", LabelStyle.Render("📝 Description"))
		wrapped := ansi.Wordwrap(util.HTMLToText(event.Description), width, "")
		lines = append(lines, ValueStyle.Render(wrapped))
	}

	m.detailView.SetContent(strings.Join(lines, "\n"))
}

func (m Model) renderDetailPanel() string {
	if len(m.events) == 0 {
		return DetailPanelStyle.Width(m.detailWidth).Height(m.contentHeight).Render(
			lipgloss.NewStyle().
				Foreground(mutedColor).
				Render("No event selected"),
		)
	}

	// Add scroll indicator if content is scrollable
	scrollInfo := ""
	if m.viewportReady && m.detailView.TotalLineCount() > m.detailView.Height {
		scrollPct := int(m.detailView.ScrollPercent() * 100)
		scrollInfo = lipgloss.NewStyle().
			Foreground(mutedColor).
			Render(fmt.Sprintf(" (%d%%)", scrollPct))
	}

	header := lipgloss.NewStyle().
		Foreground(primaryColor).
		Bold(true).
		Render("Event Details") + scrollInfo

	return DetailPanelStyle.Width(m.detailWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", m.detailView.View()),
	)
}

// renderMonth draws the month grid of the selected date with per-day
// event counts, and the selected day's events below it.
func (m Model) renderMonth() string {
	selected := m.state.Selected
	now := m.now()
	monthEvents := view.Filter(m.state.Events, view.ModeAll, now, view.MonthScope(selected))
	counts := view.CountByDay(monthEvents, selected)

	var header []string
	for i := 0; i < 7; i++ {
		header = append(header, WeekdayStyle.Render(time.Weekday((int(m.cfg.WeekStart)+i)%7).String()[:3]))
	}
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}

	for _, week := range view.MonthGrid(selected, m.cfg.WeekStart) {
		var cells []string
		for _, day := range week {
			label := fmt.Sprintf("%d", day.Day())
			if n := counts[day.Day()]; n > 0 && view.SameMonth(day, selected) {
				label += "•" + countLabel(n)
			}

			style := DayCellStyle
			switch {
			case !view.SameMonth(day, selected):
				style = OtherMonthStyle
			case view.SameDay(day, selected):
				style = SelectedCellStyle
			case view.SameDay(day, now):
				style = TodayCellStyle
			}
			cells = append(cells, style.Render(label))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	grid := lipgloss.JoinVertical(lipgloss.Left, rows...)

	var dayLines []string
	dayLines = append(dayLines, lipgloss.NewStyle().Foreground(primaryColor).Bold(true).
		Render(selected.Format("Monday, January 2")))
	dayEvents := view.SortByStart(view.OnDay(m.state.Events, selected))
	if len(dayEvents) == 0 {
		dayLines = append(dayLines, lipgloss.NewStyle().Foreground(mutedColor).Render("Nothing scheduled"))
	}
	for _, e := range dayEvents {
		t := e.Start.Local().Format("15:04")
		if e.IsAllDay {
			t = "all day"
		}
		dayLines = append(dayLines, fmt.Sprintf("%s %s %s",
			TimeStyle.Width(8).Render(t), providerStyle(e.Source).Render("●"), util.TruncateText(e.Title, 40)))
	}

	panel := lipgloss.JoinHorizontal(lipgloss.Top,
		ListPanelStyle.Render(grid), "  ", lipgloss.JoinVertical(lipgloss.Left, dayLines...))
	return lipgloss.NewStyle().Height(m.contentHeight).Render(panel)
}

func countLabel(n int) string {
	if n > 9 {
		return "+"
	}
	return fmt.Sprintf("%d", n)
}

func (m Model) renderHelp() string {
	var keys []string
	if m.screen == screenMonth {
		keys = []string{
			HelpKeyStyle.Render("←↑↓→") + " move",
			HelpKeyStyle.Render("enter") + " open day",
			HelpKeyStyle.Render("t") + " today",
			HelpKeyStyle.Render("m") + " agenda",
			HelpKeyStyle.Render("1-4") + " sources",
			HelpKeyStyle.Render("q") + " quit",
		}
	} else {
		keys = []string{
			HelpKeyStyle.Render("↑/↓") + " nav",
			HelpKeyStyle.Render("←/→") + " day",
			HelpKeyStyle.Render("f") + " filter",
			HelpKeyStyle.Render("m") + " month",
			HelpKeyStyle.Render("1-4") + " sources",
			HelpKeyStyle.Render("a/x") + " answer",
			HelpKeyStyle.Render("r") + " refresh",
			HelpKeyStyle.Render("q") + " quit",
		}
	}

	fullLine := strings.Join(keys, "  •  ")

	// Doesn't fit, show minimal hint
	if lipgloss.Width(fullLine) > m.width-4 {
		return HelpStyle.Render(HelpKeyStyle.Render("?") + " help")
	}
	return HelpStyle.Render(fullLine)
}

func (m Model) renderHelpPanel() string {
	header := lipgloss.NewStyle().
		Foreground(primaryColor).
		Bold(true).
		Render("Keyboard Shortcuts")

	lines := []string{
		"",
		HelpKeyStyle.Render("  ↑ / ↓      ") + " Move selection",
		HelpKeyStyle.Render("  ctrl+u/d   ") + " Scroll detail panel",
		HelpKeyStyle.Render("  ← / →      ") + " Previous / next day",
		HelpKeyStyle.Render("  d          ") + " Toggle day view",
		HelpKeyStyle.Render("  t          ") + " Jump to today",
		HelpKeyStyle.Render("  f          ") + " Cycle filter (upcoming, past, invites, all)",
		HelpKeyStyle.Render("  m          ") + " Month grid",
		HelpKeyStyle.Render("  1-4        ") + " Toggle local, Google, Apple, Outlook",
		HelpKeyStyle.Render("  a / x      ") + " Accept / decline invitation",
		HelpKeyStyle.Render("  D          ") + " Delete event",
		HelpKeyStyle.Render("  tab        ") + " Switch panel",
		HelpKeyStyle.Render("  enter      ") + " Join meeting",
		HelpKeyStyle.Render("  v          ") + " View event in calendar",
		HelpKeyStyle.Render("  r          ") + " Refresh events",
		HelpKeyStyle.Render("  L          ") + " Log out",
		HelpKeyStyle.Render("  q / ctrl+c ") + " Quit",
		"",
		lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render("  Press any key to close"),
	}

	// Use the same dimensions as the detail panel
	panelWidth := m.detailWidth
	if m.compactMode {
		panelWidth = m.listWidth
	}

	return DetailPanelStyle.Width(panelWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(lines, "\n")),
	)
}

// Helper functions
func renderField(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

// renderWrappedField renders a label-value field, word-wrapping the value
// to fit within maxWidth. Continuation lines are indented to align with the value.
func renderWrappedField(label, value string, maxWidth int) string {
	labelRendered := LabelStyle.Render(label)
	labelWidth := lipgloss.Width(labelRendered) + 1 // +1 for the space
	valueWidth := max(maxWidth-labelWidth, 10)
	wrapLines := strings.Split(ansi.Wordwrap(value, valueWidth, ""), "\n")
	indent := strings.Repeat(" ", labelWidth)
	for i := 1; i < len(wrapLines); i++ {
		wrapLines[i] = indent + wrapLines[i]
	}
	return labelRendered + " " + ValueStyle.Render(strings.Join(wrapLines, "\n"))
}

func modeTitle(mode view.Mode) string {
	switch mode {
	case view.ModePast:
		return "Past events"
	case view.ModeInvites:
		return "Pending invitations"
	case view.ModeAll:
		return "All events"
	default:
		return "Upcoming events"
	}
}

func providerLabel(p core.Provider) string {
	switch p {
	case core.ProviderLocal:
		return "Local"
	case core.ProviderGoogle:
		return "Google"
	case core.ProviderApple:
		return "Apple"
	case core.ProviderMicrosoft:
		return "Outlook"
	default:
		return string(p)
	}
}

func displayName(u core.User) string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "unknown user"
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

func formatEventTime(start, end time.Time, isAllDay bool) string {
	// Convert to local timezone for display
	localStart := start.Local()
	localEnd := end.Local()

	if isAllDay {
		return localStart.Format("Mon, Jan 2") + " (all day)"
	}
	if view.SameDay(localStart, localEnd) {
		return fmt.Sprintf("%s, %s - %s",
			localStart.Format("Mon, Jan 2"),
			localStart.Format("3:04 PM"),
			localEnd.Format("3:04 PM"))
	}
	return fmt.Sprintf("%s - %s",
		localStart.Format("Mon, Jan 2 3:04 PM"),
		localEnd.Format("Mon, Jan 2 3:04 PM"))
}

func formatInvite(status core.InviteStatus) string {
	switch status {
	case core.InviteAccepted:
		return StatusAcceptedStyle.Render("Accepted ✓")
	case core.InviteDeclined:
		return StatusDeclinedStyle.Render("Declined ✗")
	case core.InvitePending:
		return StatusPendingStyle.Render("Awaiting your response")
	default:
		return "Unknown"
	}
}
