package cmd

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/calmerge/internal/tui"
	"github.com/theakshaypant/calmerge/internal/view"
)

var tuiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the interactive TUI",
	Long: `Launch an interactive terminal agenda.

The TUI always starts on the sign-in form. Events are refetched on the
'refresh' cron schedule (default every five minutes). Logs go to
calmerge.log in the config directory while it runs.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	defer app.closeLog()

	cfg, err := tuiConfig()
	if err != nil {
		return err
	}

	// Failures raised by the API client open the alert modal instead of
	// being printed over the UI
	feed := tui.NewFeed()
	app.alerts.Redirect(func(err error) {
		feed.Alert(errors.New(alertText(err)))
	})
	defer app.alerts.Redirect(nil)

	m, err := tui.NewModel(app.store, app.session, feed, cfg)
	if err != nil {
		return err
	}

	// Set up the program with mouse support and alt screen
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func tuiConfig() (tui.Config, error) {
	mode, err := view.ParseMode(viper.GetString("filter"))
	if err != nil {
		return tui.Config{}, err
	}
	weekStart, err := view.ParseWeekday(viper.GetString("week_start"))
	if err != nil {
		return tui.Config{}, err
	}

	cfg := tui.Config{
		Mode:      mode,
		WeekStart: weekStart,
		Refresh:   viper.GetString("refresh"),
	}
	// A stored session only pre-fills the form; it is never resumed
	if user, err := app.session.Stored(); err == nil {
		cfg.Email = user.Email
	}
	return cfg, nil
}
