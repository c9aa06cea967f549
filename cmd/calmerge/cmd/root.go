package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/calmerge/internal/api"
	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/outfmt"
	"github.com/theakshaypant/calmerge/internal/view"
)

var (
	cfgFile string
	profile string
	verbose bool
	jqExpr  string
	app     *appContext
)

var rootCmd = &cobra.Command{
	Use:   "calmerge",
	Short: "One agenda for your Google, Apple, Outlook and local calendars",
	Long: `calmerge signs in to your calendar backend and shows the events it merges
from Google, Apple (iCloud), Microsoft Outlook and its own local calendar.

List, filter and edit events from the command line, or run 'calmerge ui'
for the interactive agenda.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
	RunE:              listEvents,
}

// Execute runs the root command. Errors the alerter already printed are
// not printed twice.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if app == nil || !app.alerts.shown(err) {
			fmt.Fprintln(os.Stderr, "Error:", api.Message(err))
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (inherited by all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/calmerge/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "config profile to use (e.g., work, personal)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&jqExpr, "jq", "", "Filter JSON output with a jq expression (implies --output=json)")

	rootCmd.PersistentFlags().String("api-url", "", "Backend base URL")
	rootCmd.PersistentFlags().Duration("timeout", api.DefaultTimeout, "Request timeout")
	rootCmd.PersistentFlags().StringSliceP("sources", "s", nil, "Calendar sources to include (local,google,apple,microsoft)")
	rootCmd.PersistentFlags().StringP("filter", "f", "", "Event filter: upcoming, past, invites or all")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: text or json")

	// Scope flags for the list view
	rootCmd.Flags().String("month", "", "Only show events in this month (YYYY-MM)")
	rootCmd.Flags().String("day", "", "Only show events on this day (YYYY-MM-DD, 'today', 'tomorrow', weekday names)")

	// Bind persistent flags to viper
	viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("sources", rootCmd.PersistentFlags().Lookup("sources"))
	viper.BindPFlag("filter", rootCmd.PersistentFlags().Lookup("filter"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}

func configDir() string {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)
	return filepath.Join(home, ".config", "calmerge")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("CALMERGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("timeout", api.DefaultTimeout)
	viper.SetDefault("token_store", "file")
	viper.SetDefault("token_file", filepath.Join(configDir(), "session.json"))
	viper.SetDefault("callback_port", 8085)
	viper.SetDefault("sources", []string{"local", "google", "apple", "microsoft"})
	viper.SetDefault("filter", string(view.ModeUpcoming))
	viper.SetDefault("week_start", "sunday")
	viper.SetDefault("refresh", "*/5 * * * *")
	viper.SetDefault("output", string(outfmt.ModeText))
	viper.SetDefault("log_level", "warn")

	// Read config file if it exists
	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}

	// Apply profile settings if specified
	applyProfile()
}

// applyProfile merges profile-specific settings over defaults
func applyProfile() {
	activeProfile := profile
	if activeProfile == "" {
		activeProfile = viper.GetString("default_profile")
	}
	if activeProfile == "" {
		return
	}

	profileKey := "profiles." + activeProfile
	if !viper.IsSet(profileKey) {
		fmt.Fprintf(os.Stderr, "Warning: profile '%s' not found in config\n", activeProfile)
		return
	}

	slog.Debug("using profile", "profile", activeProfile)

	// Override each setting if present in profile,
	// but only if the user hasn't explicitly set it via CLI flag.
	for _, key := range profileSettings {
		profileSettingKey := profileKey + "." + key
		if viper.IsSet(profileSettingKey) && !isFlagExplicitlySet(key) {
			viper.Set(key, viper.Get(profileSettingKey))
		}
	}

	for _, key := range displaySettings {
		profileSettingKey := profileKey + "." + key
		if viper.IsSet(profileSettingKey) {
			viper.Set(key, viper.Get(profileSettingKey))
		}
	}
}

// profileSettings lists the keys a profile may override.
var profileSettings = []string{
	"api_url",
	"timeout",
	"token_store",
	"token_file",
	"callback_port",
	"sources",
	"filter",
	"week_start",
	"refresh",
	"output",
	"log_level",
}

var displaySettings = []string{
	"display.calendar",
	"display.time",
	"display.location",
	"display.meeting_link",
	"display.description",
	"display.invite",
	"display.event_url",
	"display.source",
	"display.id",
	"display.in_progress",
}

func isFlagExplicitlySet(viperKey string) bool {
	flagName := strings.ReplaceAll(viperKey, "_", "-")
	f := rootCmd.PersistentFlags().Lookup(flagName)

	return f != nil && f.Changed
}

func initApp(cmd *cobra.Command, args []string) error {
	logFile, err := initLogging(cmd)
	if err != nil {
		return err
	}

	// Skip backend wiring for commands that don't need it
	if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "profile" ||
		cmd.Parent() != nil && cmd.Parent().Name() == "profile" {
		return nil
	}

	a, err := newApp()
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return err
	}
	a.logFile = logFile
	app = a
	return nil
}

// initLogging installs the default slog logger. The TUI owns the terminal,
// so it logs to a file in the config directory instead of stderr.
// The returned file is nil when logging to stderr.
func initLogging(cmd *cobra.Command) (*os.File, error) {
	var out io.Writer = os.Stderr
	var file *os.File
	if cmd.Name() == "ui" {
		if err := os.MkdirAll(configDir(), 0o700); err != nil {
			return nil, fmt.Errorf("create config directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(configDir(), "calmerge.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, file = f, f
	}

	level := slog.LevelWarn
	switch strings.ToLower(viper.GetString("log_level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	})))
	return file, nil
}

// outputMode resolves --output, with --jq forcing JSON.
func outputMode() (outfmt.Mode, error) {
	if jqExpr != "" {
		return outfmt.ModeJSON, nil
	}
	return outfmt.Parse(viper.GetString("output"))
}

// emit writes v as JSON when JSON output is selected and reports whether
// it did.
func emit(v any) (bool, error) {
	mode, err := outputMode()
	if err != nil {
		return false, err
	}
	if mode != outfmt.ModeJSON {
		return false, nil
	}
	return true, outfmt.Emit(os.Stdout, v, jqExpr)
}

func listEvents(cmd *cobra.Command, args []string) error {
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

	if mode, err = scopedMode(mode, scope); err != nil {
		return err
	}

	if err := app.store.FetchEvents(cmd.Context()); err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	events := view.SortByStart(view.Filter(app.store.Snapshot().Events, mode, now, scope))

	if ok, err := emit(events); ok || err != nil {
		return err
	}

	fmt.Printf("📅 %s\n", listTitle(mode, scope))
	fmt.Println("─────────────────────────────────────────────────")

	if len(events) == 0 {
		fmt.Println(emptyMessage(mode))
		return nil
	}

	for _, event := range events {
		printEvent(event)
	}

	fmt.Println("─────────────────────────────────────────────────")
	fmt.Printf("Total: %d events\n", len(events))

	return nil
}

// scopedMode checks that mode honors scope. A day is always listed in
// full, so --day turns upcoming into all. past and invites ignore scopes
// and reject them.
func scopedMode(mode view.Mode, scope view.Scope) (view.Mode, error) {
	if scope.Day.IsZero() && scope.Month.IsZero() {
		return mode, nil
	}
	switch mode {
	case view.ModePast, view.ModeInvites:
		flag := "--month"
		if !scope.Day.IsZero() {
			flag = "--day"
		}
		return mode, fmt.Errorf("%s cannot be combined with --filter %s (use upcoming or all)", flag, mode)
	case view.ModeUpcoming:
		if !scope.Day.IsZero() {
			return view.ModeAll, nil
		}
	}
	return mode, nil
}

func listTitle(mode view.Mode, scope view.Scope) string {
	title := map[view.Mode]string{
		view.ModeUpcoming: "Upcoming events",
		view.ModePast:     "Past events",
		view.ModeInvites:  "Pending invitations",
		view.ModeAll:      "All events",
	}[mode]

	switch {
	case !scope.Day.IsZero() && mode == view.ModeAll:
		title += " on " + scope.Day.Format("Mon, Jan 2 2006")
	case !scope.Month.IsZero() && (mode == view.ModeAll || mode == view.ModeUpcoming):
		title += " in " + scope.Month.Format("January 2006")
	}
	return title
}

func emptyMessage(mode view.Mode) string {
	switch mode {
	case view.ModeInvites:
		return "No pending invitations."
	case view.ModePast:
		return "No past events found."
	default:
		return "No events found."
	}
}

// activeSources returns the configured source ids. Entries may themselves
// be comma separated, as they are when set through the environment.
func activeSources() []string {
	var ids []string
	for _, entry := range viper.GetStringSlice("sources") {
		for _, id := range strings.Split(entry, ",") {
			id = strings.ToLower(strings.TrimSpace(id))
			if p, ok := core.ParseProvider(id); ok {
				id = string(p)
			}
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
