package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/ics"
	"github.com/theakshaypant/calmerge/internal/view"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export events as an iCalendar file",
	Long: `Write the filtered event list as an iCalendar (.ics) file that other
calendar apps can import.

Example:
  calmerge export --filter all --month 2025-03 --out march.ics`,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.ics>",
	Short: "Create events from an iCalendar file",
	Long: `Read the events of an iCalendar (.ics) file and create each one.

Cancelled entries and entries without a title or times are skipped.
Recurring entries are imported as their first occurrence. Use '-' to read
from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().String("out", "-", "Output file ('-' for stdout)")
	exportCmd.Flags().String("month", "", "Only export events in this month (YYYY-MM)")
	exportCmd.Flags().String("day", "", "Only export events on this day")

	importCmd.Flags().String("source", "", "Create the events in this source instead of the one recorded in the file")
	importCmd.Flags().Bool("dry-run", false, "Show what would be imported without creating anything")
}

func runExport(cmd *cobra.Command, args []string) error {
	now := time.Now()

	mode, err := view.ParseMode(viper.GetString("filter"))
	if err != nil {
		return err
	}

	var scope view.Scope
	if s, _ := cmd.Flags().GetString("month"); s != "" {
		month, err := view.ParseMonth(s, now)
		if err != nil {
			return err
		}
		scope = view.MonthScope(month)
	}
	if s, _ := cmd.Flags().GetString("day"); s != "" {
		day, err := parseDate(s, now)
		if err != nil {
			return err
		}
		scope = view.DayScope(day)
	}

	if err := app.store.FetchEvents(cmd.Context()); err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	events := view.SortByStart(view.Filter(app.store.Snapshot().Events, mode, now, scope))

	out, _ := cmd.Flags().GetString("out")
	if out == "-" {
		return ics.Encode(os.Stdout, events, now)
	}

	var buf bytes.Buffer
	if err := ics.Encode(&buf, events, now); err != nil {
		return err
	}
	path := expandPath(out)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Printf("✓ Exported %d events to %s\n", len(events), path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		body []byte
		err  error
	)
	if args[0] == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(expandPath(args[0]))
	}
	if err != nil {
		return fmt.Errorf("failed to read calendar file: %w", err)
	}

	inputs, err := ics.Decode(body, slog.Default())
	if err != nil {
		return err
	}

	if s, _ := cmd.Flags().GetString("source"); s != "" {
		p, ok := core.ParseProvider(s)
		if !ok {
			return fmt.Errorf("unknown source %q (use local, google, apple or microsoft)", s)
		}
		for i := range inputs {
			inputs[i].Source = p
		}
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	fmt.Printf("📥 %d events in %s\n", len(inputs), args[0])
	fmt.Println("─────────────────────────────────────────────────")

	var created, failed int
	for _, in := range inputs {
		when := formatEventTime(in.Start, in.End, false)
		if dryRun {
			fmt.Printf("  • %s (%s)\n", in.Title, when)
			continue
		}
		if _, err := app.store.CreateEvent(cmd.Context(), in); err != nil {
			failed++
			fmt.Printf("  ✗ %s: %v\n", in.Title, err)
			continue
		}
		created++
		fmt.Printf("  ✓ %s (%s)\n", in.Title, when)
	}

	if dryRun {
		return nil
	}
	fmt.Println("─────────────────────────────────────────────────")
	fmt.Printf("Imported: %d, failed: %d\n", created, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d events could not be imported", failed, len(inputs))
	}
	return nil
}
