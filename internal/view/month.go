package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/theakshaypant/calmerge/internal/core"
)

// MonthGrid returns the weeks covering month, each seven days long and
// starting on weekStart. Days outside the month are included to fill the
// first and last week.
func MonthGrid(month time.Time, weekStart time.Weekday) [][]time.Time {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	cursor := first.AddDate(0, 0, -offset)

	var weeks [][]time.Time
	for {
		week := make([]time.Time, 7)
		for i := range week {
			week[i] = cursor
			cursor = cursor.AddDate(0, 0, 1)
		}
		weeks = append(weeks, week)
		if cursor.Month() != first.Month() || cursor.Year() != first.Year() {
			break
		}
	}
	return weeks
}

// CountByDay counts events per day of month for events starting in month.
func CountByDay(events []core.Event, month time.Time) map[int]int {
	counts := make(map[int]int)
	for _, e := range events {
		if e.Start.IsZero() || !SameMonth(e.Start, month) {
			continue
		}
		counts[e.Start.In(month.Location()).Day()]++
	}
	return counts
}

// ParseWeekday accepts a weekday name or three-letter abbreviation.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("unknown weekday %q", s)
}

// ParseMonth parses YYYY-MM in loc. "" returns the current month.
func ParseMonth(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.ParseInLocation("2006-01", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse month: %s (use YYYY-MM)", s)
	}
	return t, nil
}
