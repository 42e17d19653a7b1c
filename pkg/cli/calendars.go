package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/wastecal/pkg/auth"
	"github.com/harrisonrobin/wastecal/pkg/google"
)

func newCalendarsCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars the authorized account can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format, FormatText, FormatJSON)
			if err != nil {
				return err
			}
			if _, err := root.loadConfig(); err != nil {
				return err
			}
			gc, err := root.newCalendar(cmd.Context(), google.EventOptions{})
			if err != nil {
				return fmt.Errorf("creating calendar client: %w", err)
			}
			cals, err := gc.ListCalendars(cmd.Context())
			if err != nil {
				return err
			}
			return WriteCalendars(cmd.OutOrStdout(), cals, f)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newAuthCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar, replacing any stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := root.loadConfig(); err != nil {
				return err
			}
			if err := auth.RemoveToken(); err != nil {
				return fmt.Errorf("%w. Please delete it manually", err)
			}
			if _, err := root.newCalendar(cmd.Context(), google.EventOptions{}); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			path, err := auth.TokenPath()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful! Token saved to %s\n", path)
			return nil
		},
	}
}
