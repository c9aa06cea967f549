package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/calmerge/internal/view"
)

var dayCmd = &cobra.Command{
	Use:   "day [date]",
	Short: "Show the events of one day",
	Long: `Show every event on a day, past or upcoming.

The date accepts YYYY-MM-DD, MM-DD, 'today', 'tomorrow', 'yesterday' and
weekday names ('fri', 'next monday'). Default: today.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDay,
}

var monthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Show a month grid with event counts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMonth,
}

func init() {
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(monthCmd)
	monthCmd.Flags().String("week-start", "", "First day of the week (default from config)")
	monthCmd.Flags().Bool("list", false, "List the month's events below the grid")
}

func runDay(cmd *cobra.Command, args []string) error {
	now := time.Now()
	day := view.StartOfDay(now)
	if len(args) == 1 {
		var err error
		if day, err = parseDate(args[0], now); err != nil {
			return err
		}
	}

	if err := app.store.FetchEvents(cmd.Context()); err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	app.store.SelectDate(day)

	events := view.SortByStart(view.Filter(app.store.Snapshot().Events, view.ModeAll, now, view.DayScope(day)))

	if ok, err := emit(events); ok || err != nil {
		return err
	}

	fmt.Printf("📅 %s\n", day.Format("Monday, January 2 2006"))
	fmt.Println("─────────────────────────────────────────────────")

	if len(events) == 0 {
		fmt.Println("Nothing scheduled.")
		return nil
	}
	for _, event := range events {
		printEvent(event)
	}
	fmt.Println("─────────────────────────────────────────────────")
	fmt.Printf("Total: %d events\n", len(events))
	return nil
}

func runMonth(cmd *cobra.Command, args []string) error {
	now := time.Now()
	var arg string
	if len(args) == 1 {
		arg = args[0]
	}
	month, err := view.ParseMonth(arg, now)
	if err != nil {
		return err
	}

	weekStartName := viper.GetString("week_start")
	if s, _ := cmd.Flags().GetString("week-start"); s != "" {
		weekStartName = s
	}
	weekStart, err := view.ParseWeekday(weekStartName)
	if err != nil {
		return err
	}

	if err := app.store.FetchEvents(cmd.Context()); err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	events := view.SortByStart(view.Filter(app.store.Snapshot().Events, view.ModeAll, now, view.MonthScope(month)))

	if ok, err := emit(events); ok || err != nil {
		return err
	}

	fmt.Print(renderMonth(month, weekStart, view.CountByDay(events, month), now))

	if list, _ := cmd.Flags().GetBool("list"); list {
		for _, event := range events {
			printEvent(event)
		}
		fmt.Println()
	}
	fmt.Printf("Total: %d events in %s\n", len(events), month.Format("January 2006"))
	return nil
}

// renderMonth draws the grid as plain text. Days with events carry their
// count, today is bracketed and days outside the month are blank.
func renderMonth(month time.Time, weekStart time.Weekday, counts map[int]int, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s\n", month.Format("January 2006"))
	b.WriteString("─────────────────────────────────────────────────\n")

	for i := 0; i < 7; i++ {
		fmt.Fprintf(&b, " %-6s", time.Weekday((int(weekStart)+i)%7).String()[:3])
	}
	b.WriteString("\n")

	for _, week := range view.MonthGrid(month, weekStart) {
		for _, day := range week {
			if !view.SameMonth(day, month) {
				b.WriteString("       ")
				continue
			}
			cell := fmt.Sprintf("%2d", day.Day())
			if view.SameDay(day, now) {
				cell = "[" + cell + "]"
			} else {
				cell = " " + cell + " "
			}
			if n := counts[day.Day()]; n > 0 {
				cell += fmt.Sprintf("%-2s", countMark(n))
			} else {
				cell += "  "
			}
			b.WriteString(" " + cell)
		}
		b.WriteString("\n")
	}
	b.WriteString("─────────────────────────────────────────────────\n")
	return b.String()
}

func countMark(n int) string {
	if n > 9 {
		return "+"
	}
	return fmt.Sprintf("%d", n)
}

