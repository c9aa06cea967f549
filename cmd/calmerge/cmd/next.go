package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/view"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next upcoming event",
	Long: `Show detailed information about the next upcoming event across all
active calendar sources.

Events starting at the same time are shown together as a conflict.`,
	RunE: runNext,
}

func init() {
	rootCmd.AddCommand(nextCmd)
	nextCmd.Flags().Bool("no-allday", false, "Skip all-day events")
}

func runNext(cmd *cobra.Command, args []string) error {
	now := time.Now()

	if err := app.store.FetchEvents(cmd.Context()); err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	events := app.store.Snapshot().Events
	if noAllDay, _ := cmd.Flags().GetBool("no-allday"); noAllDay {
		kept := events[:0:0]
		for _, e := range events {
			if !e.IsAllDay {
				kept = append(kept, e)
			}
		}
		events = kept
	}

	concurrent := view.Next(view.SortByStart(events), now)

	if ok, err := emit(concurrent); ok || err != nil {
		return err
	}

	if len(concurrent) == 0 {
		fmt.Println("No upcoming events found.")
		return nil
	}

	// Show conflict warning if multiple events at the same time
	if len(concurrent) > 1 {
		printConcurrentEvents(concurrent, now)
	} else {
		printNextEvent(concurrent[0], now)
	}

	return nil
}

func printCountdown(event core.Event, now time.Time) {
	fmt.Println()
	if event.InProgress(now) {
		remaining := event.End.Sub(now)
		fmt.Printf("  🟢 IN PROGRESS - %s remaining\n", formatDurationCompact(remaining))
	} else {
		until := event.Start.Sub(now)
		fmt.Printf("  ⏳ STARTS IN: %s\n", formatCountdown(until))
	}
}

func printConcurrentEvents(events []core.Event, now time.Time) {
	fmt.Println("─────────────────────────────────────────────────")
	fmt.Printf("  ⚠️  CONFLICT: %d EVENTS AT THE SAME TIME\n", len(events))
	fmt.Println("─────────────────────────────────────────────────")

	printCountdown(events[0], now)

	opts := DisplayOptionsFromConfig(false)
	opts.ShowInProgress = false // Already shown in header
	opts.ShowDesc = false       // Keep conflict view compact

	for i, event := range events {
		fmt.Printf("\n  EVENT %d of %d\n", i+1, len(events))
		fmt.Println("  ─────────────────────────────────────────────")
		DisplayEvent(event, opts)
	}

	fmt.Println()
	fmt.Println("─────────────────────────────────────────────────")
}

func formatCountdown(d time.Duration) string {
	if d < 0 {
		return "NOW"
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}

	if len(parts) == 0 {
		return "less than a minute"
	}
	return strings.Join(parts, ", ")
}

func printNextEvent(event core.Event, now time.Time) {
	fmt.Println("─────────────────────────────────────────────────")
	fmt.Println("  NEXT EVENT")
	fmt.Println("─────────────────────────────────────────────────")

	printCountdown(event, now)
	fmt.Println()

	opts := DisplayOptionsFromConfig(true)
	opts.ShowInProgress = false // Already shown in header
	DisplayEvent(event, opts)

	fmt.Println()
	fmt.Println("─────────────────────────────────────────────────")
}
