package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/util"
)

var appleCmd = &cobra.Command{
	Use:     "apple",
	Aliases: []string{"icloud"},
	Short:   "Connect and manage your Apple (iCloud) calendar",
	Long: `Connect an Apple ID to the backend and work with its calendars.

Apple calendars are reached over CalDAV with an app-specific password.
Run 'calmerge apple instructions' to see how to create one. The password
is sent to the backend and never stored by calmerge.`,
}

var appleSigninCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with an Apple ID and app-specific password",
	RunE:  runAppleConnect(false),
}

var appleConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the Apple calendar of an Apple ID",
	RunE:  runAppleConnect(true),
}

var appleInstructionsCmd = &cobra.Command{
	Use:   "instructions",
	Short: "Show how to create an app-specific password",
	RunE:  runAppleInstructions,
}

var appleCalendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List the calendars of the connected Apple account",
	RunE:  runAppleCalendars,
}

var appleEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List Apple calendar events in a date range",
	RunE:  runAppleEvents,
}

var appleSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync events between Apple and the local calendar",
	RunE:  runAppleSync,
}

var appleAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create an event in the Apple calendar",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppleAdd,
}

var appleEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of an Apple calendar event",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppleEdit,
}

var appleRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an Apple calendar event",
	Args:    cobra.ExactArgs(1),
	RunE:    runAppleRm,
}

func init() {
	rootCmd.AddCommand(appleCmd)
	appleCmd.AddCommand(appleSigninCmd, appleConnectCmd, appleInstructionsCmd, appleCalendarsCmd,
		appleEventsCmd, appleSyncCmd, appleAddCmd, appleEditCmd, appleRmCmd)

	for _, c := range []*cobra.Command{appleSigninCmd, appleConnectCmd} {
		c.Flags().String("apple-id", "", "Apple ID email")
		c.Flags().String("app-password", "", "App-specific password (prompted when omitted)")
	}

	appleInstructionsCmd.Flags().Bool("open", false, "Open the Apple ID page in your browser")

	appleEventsCmd.Flags().String("from", "today", "Start date")
	appleEventsCmd.Flags().String("to", "", "End date (default: 30 days after --from)")

	appleSyncCmd.Flags().String("direction", string(core.SyncBoth), "pull, push or bidirectional")
	appleSyncCmd.Flags().Int("days", 30, "Number of days to sync")

	addEventFlags(appleAddCmd)
	addPatchFlags(appleEditCmd)
}

func runAppleConnect(connect bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		appleID, _ := cmd.Flags().GetString("apple-id")
		password, _ := cmd.Flags().GetString("app-password")

		var err error
		if appleID == "" {
			if appleID, err = promptLine("Apple ID: "); err != nil {
				return err
			}
		}
		if password == "" {
			if password, err = promptSecret("App-specific password: "); err != nil {
				return err
			}
		}

		creds := core.AppleCredentials{AppleID: appleID, AppPassword: password}
		var conn core.AppleConnection
		if connect {
			conn, err = app.store.ConnectApple(cmd.Context(), creds)
		} else {
			conn, err = app.store.AppleSignIn(cmd.Context(), creds)
		}
		if err != nil {
			return fmt.Errorf("apple connection failed: %w", err)
		}

		if ok, err := emit(conn); ok || err != nil {
			return err
		}

		fmt.Println("\n✅ Apple calendar connected!")
		if conn.Message != "" {
			fmt.Printf("   %s\n", conn.Message)
		}
		if len(conn.Calendars) > 0 {
			fmt.Println()
			printAppleCalendars(conn.Calendars)
		}
		return nil
	}
}

func runAppleInstructions(cmd *cobra.Command, args []string) error {
	in, err := app.store.AppleInstructions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch instructions: %w", err)
	}

	if ok, err := emit(in); ok || err != nil {
		return err
	}

	title := in.Title
	if title == "" {
		title = "Create an app-specific password"
	}
	fmt.Printf("🍎 %s\n", title)
	fmt.Println("─────────────────────────────────────────────────")
	for i, step := range in.Steps {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
	if in.URL != "" {
		fmt.Printf("\n🔗 %s\n", util.MakeHyperlink(in.URL, in.URL))
		if open, _ := cmd.Flags().GetBool("open"); open {
			if err := util.OpenBrowser(in.URL); err != nil {
				fmt.Println("⚠️  Couldn't open browser automatically.")
			}
		}
	}
	return nil
}

func runAppleCalendars(cmd *cobra.Command, args []string) error {
	calendars, err := app.store.AppleCalendars(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch Apple calendars: %w", err)
	}

	if ok, err := emit(calendars); ok || err != nil {
		return err
	}

	printAppleCalendars(calendars)
	fmt.Println()
	fmt.Printf("Total: %d calendars\n", len(calendars))
	return nil
}

func printAppleCalendars(calendars []core.AppleCalendar) {
	fmt.Println("🍎 Apple calendars:")
	fmt.Println("─────────────────────────────────────────────────")
	for _, c := range calendars {
		fmt.Printf("\n  • %s\n", c.Name)
		fmt.Printf("    ID: %s\n", c.ID)
	}
}

func runAppleEvents(cmd *cobra.Command, args []string) error {
	now := time.Now()
	fromStr, _ := cmd.Flags().GetString("from")
	from, err := parseDate(fromStr, now)
	if err != nil {
		return err
	}
	to := from.AddDate(0, 0, 30)
	if toStr, _ := cmd.Flags().GetString("to"); toStr != "" {
		if to, err = parseDate(toStr, now); err != nil {
			return err
		}
		to = to.Add(24*time.Hour - time.Second)
	}

	events, err := app.store.AppleEvents(cmd.Context(), from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch Apple events: %w", err)
	}
	return printProviderEvents("🍎 Apple events", events)
}

func runAppleSync(cmd *cobra.Command, args []string) error {
	direction, _ := cmd.Flags().GetString("direction")
	days, _ := cmd.Flags().GetInt("days")

	fmt.Println("🔄 Syncing Apple calendar...")
	result, err := app.store.SyncApple(cmd.Context(), core.SyncRequest{
		Direction: core.SyncDirection(direction),
		Days:      days,
	})
	if err != nil {
		return fmt.Errorf("apple sync failed: %w", err)
	}

	if ok, err := emit(result); ok || err != nil {
		return err
	}

	fmt.Println("✅ Sync complete")
	fmt.Printf("   Imported: %d\n", result.Imported)
	fmt.Printf("   Exported: %d\n", result.Exported)
	if result.Message != "" {
		fmt.Printf("   %s\n", result.Message)
	}
	return nil
}

func runAppleAdd(cmd *cobra.Command, args []string) error {
	in, err := eventInputFromFlags(cmd, args[0])
	if err != nil {
		return err
	}
	in.Source = core.ProviderApple

	event, err := app.store.CreateAppleEvent(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("failed to create Apple event: %w", err)
	}
	return printSaved("✓ Apple event created", event)
}

func runAppleEdit(cmd *cobra.Command, args []string) error {
	patch, err := eventPatchFromFlags(cmd)
	if err != nil {
		return err
	}

	event, err := app.store.UpdateAppleEvent(cmd.Context(), args[0], patch)
	if err != nil {
		return fmt.Errorf("failed to update Apple event: %w", err)
	}
	return printSaved("✓ Apple event updated", event)
}

func runAppleRm(cmd *cobra.Command, args []string) error {
	if err := app.store.DeleteAppleEvent(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete Apple event: %w", err)
	}
	fmt.Printf("✓ Apple event %s deleted\n", args[0])
	return nil
}

// printProviderEvents lists events read straight from one provider.
func printProviderEvents(title string, events []core.Event) error {
	if ok, err := emit(events); ok || err != nil {
		return err
	}

	fmt.Println(title)
	fmt.Println("─────────────────────────────────────────────────")
	if len(events) == 0 {
		fmt.Println("No events found.")
		return nil
	}
	for _, event := range events {
		printEvent(event)
	}
	fmt.Println("─────────────────────────────────────────────────")
	fmt.Printf("Total: %d events\n", len(events))
	return nil
}
