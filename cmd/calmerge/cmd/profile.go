package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage configuration profiles",
	Long: `Manage configuration profiles for different backends and filter presets.

Profiles allow you to quickly switch between accounts (each with its own
session file) and between filter and display configurations.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileAdd,
}

var profileSetDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSetDefault,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a profile's settings",
	Long: `Edit a profile's settings using flags.

Example:
  calmerge profile edit work --api-url=https://cal.example.com --filter=invites
  calmerge profile edit home --sources=local,apple --show-id=false`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileEdit,
}

// profileFlag maps a command-line flag onto a profile key.
type profileFlag struct {
	flag  string
	key   string
	usage string
	kind  string // string, int, duration, list
}

var profileFlags = []profileFlag{
	{"api-url", "api_url", "Backend base URL", "string"},
	{"timeout", "timeout", "Request timeout", "duration"},
	{"token-store", "token_store", "Where the session is kept: file or keyring", "string"},
	{"token-file", "token_file", "Path to the session file", "string"},
	{"callback-port", "callback_port", "Port of the local sign-in callback server", "int"},
	{"sources", "sources", "Active calendar sources", "list"},
	{"filter", "filter", "Default filter: upcoming, past, invites or all", "string"},
	{"week-start", "week_start", "First day of the week in month views", "string"},
	{"refresh", "refresh", "TUI refresh schedule (cron expression)", "string"},
	{"output", "output", "Output format: text or json", "string"},
	{"log-level", "log_level", "Log level: debug, info, warn or error", "string"},
}

var displayFlags = map[string]string{
	"show-calendar":     "calendar",
	"show-time":         "time",
	"show-location":     "location",
	"show-meeting-link": "meeting_link",
	"show-description":  "description",
	"show-invite":       "invite",
	"show-event-url":    "event_url",
	"show-source":       "source",
	"show-id":           "id",
	"show-in-progress":  "in_progress",
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileSetDefaultCmd)
	profileCmd.AddCommand(profileEditCmd)

	for _, c := range []*cobra.Command{profileAddCmd, profileEditCmd} {
		// These shadow the root's persistent flags of the same name so a
		// profile edit never changes the running command's settings.
		for _, f := range profileFlags {
			switch f.kind {
			case "int":
				c.Flags().Int(f.flag, 0, f.usage)
			case "duration":
				c.Flags().Duration(f.flag, 0, f.usage)
			case "list":
				c.Flags().StringSlice(f.flag, nil, f.usage)
			default:
				c.Flags().String(f.flag, "", f.usage)
			}
		}
		for flag, key := range displayFlags {
			c.Flags().Bool(flag, false, "Show "+key+" in event listings")
		}
	}
}

func runProfileList(cmd *cobra.Command, args []string) error {
	profiles := viper.GetStringMap("profiles")
	defaultProfile := viper.GetString("default_profile")

	if len(profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("\nAdd one with: calmerge profile add <name> --api-url=<url>")
		return nil
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available profiles:")
	fmt.Println("─────────────────────────────────────────────────")

	for _, name := range names {
		marker := "  "
		if name == defaultProfile {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, name)
	}

	fmt.Println("─────────────────────────────────────────────────")
	if defaultProfile != "" {
		fmt.Printf("Default: %s\n", defaultProfile)
	}
	fmt.Println("\nUse 'calmerge profile show <name>' for details")

	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	var profileName string
	if len(args) > 0 {
		profileName = args[0]
	} else {
		profileName = viper.GetString("default_profile")
		if profileName == "" {
			return fmt.Errorf("no profile specified and no default profile set")
		}
	}

	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	settings := viper.GetStringMap(profileKey)

	fmt.Printf("Profile: %s\n", profileName)
	if profileName == viper.GetString("default_profile") {
		fmt.Println("(default)")
	}
	fmt.Println("─────────────────────────────────────────────────")

	fmt.Println("\n🔌 Backend:")
	printSetting(settings, "api_url", "api-url")
	printSetting(settings, "timeout", "timeout")
	printSetting(settings, "token_store", "token-store")
	printSetting(settings, "token_file", "token-file")
	printSetting(settings, "callback_port", "callback-port")

	fmt.Println("\n🔍 Filters:")
	printSetting(settings, "sources", "sources")
	printSetting(settings, "filter", "filter")
	printSetting(settings, "week_start", "week-start")
	printSetting(settings, "refresh", "refresh")
	printSetting(settings, "output", "output")
	printSetting(settings, "log_level", "log-level")

	// Display settings
	if display, ok := settings["display"].(map[string]interface{}); ok && len(display) > 0 {
		fmt.Println("\n👁️  Display:")
		flags := make([]string, 0, len(displayFlags))
		for flag := range displayFlags {
			flags = append(flags, flag)
		}
		sort.Strings(flags)
		for _, flag := range flags {
			printSetting(display, displayFlags[flag], flag)
		}
	}

	fmt.Println()
	return nil
}

func printSetting(settings map[string]interface{}, key, displayKey string) {
	if val, ok := settings[key]; ok {
		fmt.Printf("  %s: %v\n", displayKey, val)
	}
}

// applyProfileFlags copies the changed flags of cmd into profile and
// reports whether anything changed.
func applyProfileFlags(flags *pflag.FlagSet, profile map[string]interface{}) bool {
	changed := false
	for _, f := range profileFlags {
		if !flags.Changed(f.flag) {
			continue
		}
		switch f.kind {
		case "int":
			profile[f.key], _ = flags.GetInt(f.flag)
		case "duration":
			d, _ := flags.GetDuration(f.flag)
			profile[f.key] = d.String()
		case "list":
			profile[f.key], _ = flags.GetStringSlice(f.flag)
		default:
			profile[f.key], _ = flags.GetString(f.flag)
		}
		changed = true
	}

	// Get existing display settings or create new
	display, ok := profile["display"].(map[string]interface{})
	if !ok {
		display = make(map[string]interface{})
	}
	for flag, key := range displayFlags {
		if flags.Changed(flag) {
			display[key], _ = flags.GetBool(flag)
			changed = true
		}
	}
	if len(display) > 0 {
		profile["display"] = display
	}

	return changed
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	// Check if profile already exists
	profileKey := "profiles." + profileName
	if viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' already exists. Use 'calmerge profile edit %s' to modify it", profileName, profileName)
	}

	profile := make(map[string]interface{})
	applyProfileFlags(cmd.Flags(), profile)

	if err := saveProfileToConfig(profileName, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("✓ Profile '%s' created\n", profileName)
	fmt.Printf("\nUse it with: calmerge -p %s\n", profileName)
	fmt.Printf("Set as default: calmerge profile default %s\n", profileName)

	return nil
}

func runProfileSetDefault(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	// Check if profile exists
	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	// Update config file
	if err := setDefaultProfileInConfig(profileName); err != nil {
		return fmt.Errorf("failed to set default profile: %w", err)
	}

	fmt.Printf("✓ Default profile set to '%s'\n", profileName)
	return nil
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	// Check if profile exists
	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found. Use 'calmerge profile add %s' to create it", profileName, profileName)
	}

	// Get existing profile
	profile := make(map[string]interface{})
	for k, v := range viper.GetStringMap(profileKey) {
		profile[k] = v
	}

	if !applyProfileFlags(cmd.Flags(), profile) {
		fmt.Println("No changes specified. Use flags to update settings:")
		fmt.Println("  calmerge profile edit", profileName, "--filter=invites --sources=local,google")
		return nil
	}

	// Save to config
	if err := saveProfileToConfig(profileName, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("✓ Profile '%s' updated\n", profileName)
	return nil
}

// Config file manipulation functions

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(configDir(), "config.yaml")
}

func readConfigFile() (map[string]interface{}, error) {
	configPath := getConfigPath()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]interface{}), nil
		}
		return nil, err
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if config == nil {
		config = make(map[string]interface{})
	}

	return config, nil
}

func writeConfigFile(config map[string]interface{}) error {
	configPath := getConfigPath()

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

func saveProfileToConfig(name string, profile map[string]interface{}) error {
	config, err := readConfigFile()
	if err != nil {
		return err
	}

	profiles, ok := config["profiles"].(map[string]interface{})
	if !ok {
		profiles = make(map[string]interface{})
	}

	profiles[name] = profile
	config["profiles"] = profiles

	return writeConfigFile(config)
}

func setDefaultProfileInConfig(name string) error {
	config, err := readConfigFile()
	if err != nil {
		return err
	}

	config["default_profile"] = name

	return writeConfigFile(config)
}
