package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/util"
)

// DisplayOptions controls how events are displayed
type DisplayOptions struct {
	Compact        bool   // Compact mode for list views
	ShowCalendar   bool   // Show calendar name
	ShowTime       bool   // Show when/duration
	ShowLocation   bool   // Show location
	ShowMeetLink   bool   // Show meeting link
	ShowDesc       bool   // Show description
	ShowInvite     bool   // Show invitation status
	ShowEventURL   bool   // Show calendar event URL
	ShowSource     bool   // Show source provider
	ShowID         bool   // Show event ID
	ShowInProgress bool   // Show in-progress status
	Indent         string // Indentation prefix
}

// DefaultDisplayOptions returns options for list view
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{
		Compact:        true,
		ShowCalendar:   false,
		ShowTime:       true,
		ShowLocation:   true,
		ShowMeetLink:   true,
		ShowDesc:       true,
		ShowInvite:     true,
		ShowEventURL:   false,
		ShowSource:     true,
		ShowID:         true,
		ShowInProgress: true,
		Indent:         "  ",
	}
}

// DetailedDisplayOptions returns options for detailed view (no in-progress since shown in header)
func DetailedDisplayOptions() DisplayOptions {
	return DisplayOptions{
		Compact:        false,
		ShowCalendar:   true,
		ShowTime:       true,
		ShowLocation:   true,
		ShowMeetLink:   true,
		ShowDesc:       true,
		ShowInvite:     true,
		ShowEventURL:   true,
		ShowSource:     true,
		ShowID:         true,
		ShowInProgress: false,
		Indent:         "  ",
	}
}

// DisplayOptionsFromConfig builds display options from viper config
func DisplayOptionsFromConfig(detailed bool) DisplayOptions {
	opts := DefaultDisplayOptions()
	if detailed {
		opts = DetailedDisplayOptions()
	}

	for key, field := range map[string]*bool{
		"display.calendar":     &opts.ShowCalendar,
		"display.time":         &opts.ShowTime,
		"display.location":     &opts.ShowLocation,
		"display.meeting_link": &opts.ShowMeetLink,
		"display.description":  &opts.ShowDesc,
		"display.invite":       &opts.ShowInvite,
		"display.event_url":    &opts.ShowEventURL,
		"display.source":       &opts.ShowSource,
		"display.id":           &opts.ShowID,
		"display.in_progress":  &opts.ShowInProgress,
	} {
		if viper.IsSet(key) {
			*field = viper.GetBool(key)
		}
	}

	return opts
}

// DisplayEvent prints an event with the given options
func DisplayEvent(event core.Event, opts DisplayOptions) {
	indent := opts.Indent

	// Title with source label (always shown)
	if opts.ShowSource {
		fmt.Printf("%s[%s] %s\n", indent, formatSource(event.Source), event.Title)
	} else {
		fmt.Printf("%s%s\n", indent, event.Title)
	}

	if opts.ShowCalendar && event.Calendar.Name != "" {
		fmt.Printf("%s📅 Calendar:    %s\n", indent, event.Calendar.Name)
	}

	if opts.ShowTime {
		fmt.Printf("%s🕐 When:        %s\n", indent, formatEventTime(event.Start, event.End, event.IsAllDay))
		fmt.Printf("%s⏱️  Duration:    %s\n", indent, formatDurationCompact(event.Duration()))
	}

	if opts.ShowLocation && event.Location != "" {
		fmt.Printf("%s📍 Location:    %s\n", indent, event.Location)
	}

	if opts.ShowMeetLink && event.MeetingLink != "" {
		linkText := util.MakeHyperlink(event.MeetingLink, event.MeetingLink)
		fmt.Printf("%s📹 Join:        %s\n", indent, linkText)
	}

	if opts.ShowDesc && event.Description != "" {
		desc := util.HTMLToText(event.Description)
		if opts.Compact {
			fmt.Printf("%s📝 Description: %s\n", indent, util.TruncateText(strings.Join(strings.Fields(desc), " "), 80))
		} else {
			fmt.Printf("%s📝 Description:\n", indent)
			for _, line := range wrapText(desc, 60) {
				fmt.Printf("%s   %s\n", indent, line)
			}
		}
	}

	if opts.ShowInvite && event.IsInvite {
		fmt.Printf("%s📨 Invitation:  %s\n", indent, formatInvite(event.InviteStatus))
	}

	if opts.ShowEventURL && event.URL != "" {
		linkText := util.MakeHyperlink(event.URL, event.URL)
		fmt.Printf("%s🔗 Event:       %s\n", indent, linkText)
	}

	if opts.ShowInProgress && event.InProgress(time.Now()) {
		remaining := time.Until(event.End)
		fmt.Printf("%s🟢 IN PROGRESS (%s remaining)\n", indent, formatDurationCompact(remaining))
	}

	if opts.ShowID {
		fmt.Printf("%s🆔 ID:          %s\n", indent, event.ID)
	}
}

// printEvent is a convenience wrapper for list display
func printEvent(event core.Event) {
	fmt.Println()
	DisplayEvent(event, DisplayOptionsFromConfig(false))
}

// wrapText wraps text to the given width
func wrapText(s string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(s, "\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		words := strings.Fields(paragraph)
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > width {
				lines = append(lines, line)
				line = word
			} else {
				line += " " + word
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// formatDurationCompact formats a duration in a compact way
func formatDurationCompact(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
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
		if end.Sub(start) <= 24*time.Hour {
			return localStart.Format("Mon, Jan 2") + " (all day)"
		}
		return fmt.Sprintf("%s - %s (all day)", localStart.Format("Mon, Jan 2"), localEnd.Add(-24*time.Hour).Format("Mon, Jan 2"))
	}

	if localStart.YearDay() == localEnd.YearDay() && localStart.Year() == localEnd.Year() {
		return fmt.Sprintf("%s, %s - %s", localStart.Format("Mon, Jan 2"), localStart.Format("3:04 PM"), localEnd.Format("3:04 PM"))
	}
	return fmt.Sprintf("%s - %s", localStart.Format("Mon, Jan 2 3:04 PM"), localEnd.Format("Mon, Jan 2 3:04 PM"))
}

func formatInvite(status core.InviteStatus) string {
	switch status {
	case core.InviteAccepted:
		return "Accepted ✓"
	case core.InviteDeclined:
		return "Declined ✗"
	case core.InvitePending:
		return "Awaiting your response"
	default:
		return "Unknown"
	}
}

func formatSource(p core.Provider) string {
	switch p {
	case core.ProviderGoogle:
		return "Google"
	case core.ProviderApple:
		return "Apple"
	case core.ProviderMicrosoft:
		return "Outlook"
	case core.ProviderLocal:
		return "Local"
	default:
		return string(p)
	}
}

// parseDate parses a date string in various formats
// Supports: YYYY-MM-DD, "today", "tomorrow", "yesterday", weekday names
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch s {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	weekdays := map[string]time.Weekday{
		"sunday": time.Sunday, "sun": time.Sunday,
		"monday": time.Monday, "mon": time.Monday,
		"tuesday": time.Tuesday, "tue": time.Tuesday,
		"wednesday": time.Wednesday, "wed": time.Wednesday,
		"thursday": time.Thursday, "thu": time.Thursday,
		"friday": time.Friday, "fri": time.Friday,
		"saturday": time.Saturday, "sat": time.Saturday,
	}

	// Handle "next <weekday>"
	dayName := strings.TrimPrefix(s, "next ")
	if wd, ok := weekdays[dayName]; ok {
		daysUntil := int(wd - today.Weekday())
		if daysUntil <= 0 {
			daysUntil += 7
		}
		return today.AddDate(0, 0, daysUntil), nil
	}

	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}

	// MM-DD and MM/DD (current year)
	for _, layout := range []string{"01-02", "01/02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t.AddDate(now.Year(), 0, 0), nil
		}
	}

	if t, err := time.ParseInLocation("01/02/2006", s, now.Location()); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s (use YYYY-MM-DD, 'today', 'tomorrow', or weekday names)", s)
}

var clockLayouts = []string{"15:04", "3:04pm", "3pm", "3:04 pm"}

// parseDateTime accepts RFC 3339, "YYYY-MM-DD HH:MM", or any parseDate
// expression followed by a clock time ("tomorrow 14:30", "fri 9am").
func parseDateTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}

	datePart, clockPart := s, ""
	if i := strings.LastIndex(s, " "); i > 0 {
		datePart, clockPart = s[:i], strings.ToLower(s[i+1:])
	} else if looksLikeClock(s) {
		datePart, clockPart = "today", strings.ToLower(s)
	}

	day, err := parseDate(datePart, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date/time: %s (use 'YYYY-MM-DD HH:MM' or 'tomorrow 14:00')", s)
	}
	if clockPart == "" {
		return day, nil
	}
	for _, layout := range clockLayouts {
		if c, err := time.Parse(layout, clockPart); err == nil {
			return day.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time of day: %s", clockPart)
}

func looksLikeClock(s string) bool {
	s = strings.ToLower(s)
	for _, layout := range clockLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
