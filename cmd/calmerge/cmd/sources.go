package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/calmerge/internal/core"
)

var sourcesCmd = &cobra.Command{
	Use:     "sources",
	Aliases: []string{"cal", "cals", "calendars"},
	Short:   "List calendar sources",
	Long: `List the calendar sources the backend knows about and which of them are
active. Only active sources are included when events are fetched.`,
	RunE: runSources,
}

var sourcesToggleCmd = &cobra.Command{
	Use:   "toggle <id>...",
	Short: "Turn calendar sources on or off",
	Long: `Turn each given source on if it is off and off if it is on, then save the
active set to the config file (under the active profile when one is used).

Example:
  calmerge sources toggle apple microsoft`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSourcesToggle,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesToggleCmd)
}

// sourceView is the JSON shape of one listed source.
type sourceView struct {
	core.CalendarSource
	Enabled bool `json:"enabled"`
}

func runSources(cmd *cobra.Command, args []string) error {
	if err := app.store.FetchCalendarSources(cmd.Context()); err != nil {
		return fmt.Errorf("failed to fetch calendar sources: %w", err)
	}
	state := app.store.Snapshot()

	views := make([]sourceView, 0, len(state.Sources))
	for _, src := range state.Sources {
		views = append(views, sourceView{CalendarSource: src, Enabled: sourceEnabled(state.Active, src.ID)})
	}

	if ok, err := emit(views); ok || err != nil {
		return err
	}

	fmt.Println("📅 Calendar sources:")
	fmt.Println("─────────────────────────────────────────────────")

	for _, v := range views {
		marker := "○"
		if v.Enabled {
			marker = "●"
		}
		fmt.Printf("\n  %s %s\n", marker, v.Name)
		fmt.Printf("    ID: %s\n", v.ID)
		if v.Type != "" {
			fmt.Printf("    Type: %s\n", v.Type)
		}
	}

	fmt.Println()
	fmt.Printf("Total: %d sources, active: %s\n", len(views), activeLabel(state.Active))
	fmt.Println("\nTip: Use 'calmerge sources toggle <id>' to turn a source on or off")

	return nil
}

func runSourcesToggle(cmd *cobra.Command, args []string) error {
	var fetchErr error
	for _, arg := range args {
		id := strings.ToLower(strings.TrimSpace(arg))
		if p, ok := core.ParseProvider(id); ok {
			id = string(p)
		}
		fetchErr = app.store.ToggleSource(cmd.Context(), id)
	}

	active := app.store.Snapshot().Active
	if err := saveSetting("sources", active); err != nil {
		return fmt.Errorf("failed to save sources: %w", err)
	}

	fmt.Printf("✓ Active sources: %s\n", activeLabel(active))
	if fetchErr != nil {
		return fmt.Errorf("failed to fetch events: %w", fetchErr)
	}
	fmt.Printf("  %d events\n", len(app.store.Snapshot().Events))
	return nil
}

// sourceEnabled treats an empty active set as every source.
func sourceEnabled(active []string, id string) bool {
	if len(active) == 0 {
		return true
	}
	for _, a := range active {
		if a == id {
			return true
		}
	}
	return false
}

func activeLabel(active []string) string {
	if len(active) == 0 {
		return "all"
	}
	return strings.Join(active, ", ")
}

// saveSetting writes key to the active profile, or to the top level when
// no profile is in use.
func saveSetting(key string, value any) error {
	activeProfile := profile
	if activeProfile == "" {
		activeProfile = viper.GetString("default_profile")
	}

	config, err := readConfigFile()
	if err != nil {
		return err
	}

	if activeProfile == "" {
		config[key] = value
		return writeConfigFile(config)
	}

	profiles, ok := config["profiles"].(map[string]interface{})
	if !ok {
		profiles = make(map[string]interface{})
	}
	settings, ok := profiles[activeProfile].(map[string]interface{})
	if !ok {
		settings = make(map[string]interface{})
	}
	settings[key] = value
	profiles[activeProfile] = settings
	config["profiles"] = profiles

	return writeConfigFile(config)
}
