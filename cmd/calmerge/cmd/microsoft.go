package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/util"
)

var microsoftCmd = &cobra.Command{
	Use:     "microsoft",
	Aliases: []string{"outlook", "ms"},
	Short:   "Connect and manage your Microsoft Outlook calendar",
}

var microsoftConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect Outlook in your browser",
	Long: `Ask the backend for the Microsoft sign-in page and open it in your browser.
The backend finishes the connection; run 'calmerge' afterwards to see your
Outlook events.`,
	RunE: runMicrosoftConnect,
}

var microsoftDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect Outlook",
	RunE:  runMicrosoftDisconnect,
}

var microsoftEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List Outlook calendar events",
	RunE:  runMicrosoftEvents,
}

var microsoftAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create an event in the Outlook calendar",
	Args:  cobra.ExactArgs(1),
	RunE:  runMicrosoftAdd,
}

var microsoftEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of an Outlook event",
	Args:  cobra.ExactArgs(1),
	RunE:  runMicrosoftEdit,
}

var microsoftRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an Outlook event",
	Args:    cobra.ExactArgs(1),
	RunE:    runMicrosoftRm,
}

func init() {
	rootCmd.AddCommand(microsoftCmd)
	microsoftCmd.AddCommand(microsoftConnectCmd, microsoftDisconnectCmd, microsoftEventsCmd,
		microsoftAddCmd, microsoftEditCmd, microsoftRmCmd)

	microsoftConnectCmd.Flags().Bool("no-browser", false, "Print the sign-in URL instead of opening it")
	addEventFlags(microsoftAddCmd)
	addPatchFlags(microsoftEditCmd)
}

func runMicrosoftConnect(cmd *cobra.Command, args []string) error {
	authURL, err := app.store.MicrosoftLoginURL(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to start Microsoft sign-in: %w", err)
	}

	if noBrowser, _ := cmd.Flags().GetBool("no-browser"); !noBrowser {
		fmt.Println("🔐 Opening browser for Microsoft authorization...")
		if err := util.OpenBrowser(authURL); err == nil {
			return nil
		}
		fmt.Println("⚠️  Couldn't open browser automatically.")
	}
	fmt.Println("   Please open this URL manually:")
	fmt.Println(authURL)
	return nil
}

func runMicrosoftDisconnect(cmd *cobra.Command, args []string) error {
	if err := app.store.DisconnectMicrosoft(cmd.Context()); err != nil {
		return fmt.Errorf("failed to disconnect Microsoft: %w", err)
	}
	fmt.Println("✓ Outlook disconnected")
	return nil
}

func runMicrosoftEvents(cmd *cobra.Command, args []string) error {
	events, err := app.store.MicrosoftEvents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch Outlook events: %w", err)
	}
	return printProviderEvents("📬 Outlook events", events)
}

func runMicrosoftAdd(cmd *cobra.Command, args []string) error {
	in, err := eventInputFromFlags(cmd, args[0])
	if err != nil {
		return err
	}
	in.Source = core.ProviderMicrosoft

	event, err := app.store.CreateMicrosoftEvent(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("failed to create Outlook event: %w", err)
	}
	return printSaved("✓ Outlook event created", event)
}

func runMicrosoftEdit(cmd *cobra.Command, args []string) error {
	patch, err := eventPatchFromFlags(cmd)
	if err != nil {
		return err
	}

	event, err := app.store.UpdateMicrosoftEvent(cmd.Context(), args[0], patch)
	if err != nil {
		return fmt.Errorf("failed to update Outlook event: %w", err)
	}
	return printSaved("✓ Outlook event updated", event)
}

func runMicrosoftRm(cmd *cobra.Command, args []string) error {
	if err := app.store.DeleteMicrosoftEvent(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete Outlook event: %w", err)
	}
	fmt.Printf("✓ Outlook event %s deleted\n", args[0])
	return nil
}
