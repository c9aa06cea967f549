package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/calmerge/internal/core"
)

var eventCmd = &cobra.Command{
	Use:     "event",
	Aliases: []string{"ev"},
	Short:   "Create, edit, delete and answer events",
}

var eventAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create an event",
	Long: `Create an event in the merged calendar.

Times accept RFC 3339, "YYYY-MM-DD HH:MM" or a date word followed by a
clock time:
  calmerge event add "Dentist" --start "tomorrow 14:00" --duration 45m
  calmerge event add "Offsite" --start 2025-03-10 --end 2025-03-12 --source google`,
	Args: cobra.ExactArgs(1),
	RunE: runEventAdd,
}

var eventEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of an event",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventEdit,
}

var eventRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an event",
	Args:    cobra.ExactArgs(1),
	RunE:    runEventRm,
}

var eventRespondCmd = &cobra.Command{
	Use:   "respond <id> <accepted|declined|pending>",
	Short: "Answer an invitation",
	Args:  cobra.ExactArgs(2),
	RunE:  runEventRespond,
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.AddCommand(eventAddCmd)
	eventCmd.AddCommand(eventEditCmd)
	eventCmd.AddCommand(eventRmCmd)
	eventCmd.AddCommand(eventRespondCmd)

	addEventFlags(eventAddCmd)
	eventAddCmd.Flags().String("source", "", "Target calendar source (local, google, apple, microsoft)")

	addPatchFlags(eventEditCmd)
}

// addEventFlags registers the input flags shared by every create command.
func addEventFlags(c *cobra.Command) {
	c.Flags().String("start", "", "Start time (required)")
	c.Flags().String("end", "", "End time")
	c.Flags().Duration("duration", time.Hour, "Length of the event when --end is not given")
	c.Flags().String("description", "", "Description")
	c.Flags().String("location", "", "Location")
	c.MarkFlagRequired("start")
}

// addPatchFlags registers the flags shared by every edit command.
func addPatchFlags(c *cobra.Command) {
	c.Flags().String("title", "", "New title")
	c.Flags().String("start", "", "New start time")
	c.Flags().String("end", "", "New end time")
	c.Flags().String("description", "", "New description")
	c.Flags().String("location", "", "New location")
}

func eventInputFromFlags(cmd *cobra.Command, title string) (core.EventInput, error) {
	now := time.Now()
	in := core.EventInput{Title: title}
	in.Description, _ = cmd.Flags().GetString("description")
	in.Location, _ = cmd.Flags().GetString("location")

	startStr, _ := cmd.Flags().GetString("start")
	start, err := parseDateTime(startStr, now)
	if err != nil {
		return in, err
	}
	in.Start = start

	if endStr, _ := cmd.Flags().GetString("end"); endStr != "" {
		end, err := parseDateTime(endStr, now)
		if err != nil {
			return in, err
		}
		in.End = end
	} else {
		d, _ := cmd.Flags().GetDuration("duration")
		in.End = start.Add(d)
	}

	if s := cmd.Flags().Lookup("source"); s != nil && s.Value.String() != "" {
		p, ok := core.ParseProvider(s.Value.String())
		if !ok {
			return in, fmt.Errorf("unknown source %q (use local, google, apple or microsoft)", s.Value.String())
		}
		in.Source = p
	}
	return in, nil
}

func eventPatchFromFlags(cmd *cobra.Command) (core.EventPatch, error) {
	now := time.Now()
	var patch core.EventPatch
	flags := cmd.Flags()

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		patch.Title = &v
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		patch.Description = &v
	}
	if flags.Changed("location") {
		v, _ := flags.GetString("location")
		patch.Location = &v
	}
	if flags.Changed("start") {
		v, _ := flags.GetString("start")
		t, err := parseDateTime(v, now)
		if err != nil {
			return patch, err
		}
		patch.Start = &t
	}
	if flags.Changed("end") {
		v, _ := flags.GetString("end")
		t, err := parseDateTime(v, now)
		if err != nil {
			return patch, err
		}
		patch.End = &t
	}
	return patch, nil
}

func runEventAdd(cmd *cobra.Command, args []string) error {
	in, err := eventInputFromFlags(cmd, args[0])
	if err != nil {
		return err
	}

	event, err := app.store.CreateEvent(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return printSaved("✓ Event created", event)
}

func runEventEdit(cmd *cobra.Command, args []string) error {
	patch, err := eventPatchFromFlags(cmd)
	if err != nil {
		return err
	}

	event, err := app.store.UpdateEvent(cmd.Context(), args[0], patch)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return printSaved("✓ Event updated", event)
}

func runEventRm(cmd *cobra.Command, args []string) error {
	if err := app.store.DeleteEvent(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	fmt.Printf("✓ Event %s deleted\n", args[0])
	return nil
}

func runEventRespond(cmd *cobra.Command, args []string) error {
	status, ok := core.ParseInviteStatus(args[1])
	if !ok {
		return fmt.Errorf("unknown response %q (use accepted, declined or pending)", args[1])
	}

	if err := app.store.RespondToInvite(cmd.Context(), args[0], status); err != nil {
		return fmt.Errorf("failed to respond: %w", err)
	}
	fmt.Printf("✓ Invitation %s: %s\n", args[0], formatInvite(status))
	return nil
}

// printSaved shows an event returned by a create or update call.
func printSaved(title string, event core.Event) error {
	if ok, err := emit(event); ok || err != nil {
		return err
	}
	fmt.Println(title)
	fmt.Println("─────────────────────────────────────────────────")
	DisplayEvent(event, DisplayOptionsFromConfig(true))
	return nil
}
