package cli

import (
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/wastecal/pkg/ics"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	var street, file, format string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the events found on the schedule page without touching the calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format, FormatText, FormatJSON, FormatICS)
			if err != nil {
				return err
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("street") {
				cfg.Street = street
			}

			events, err := root.readEvents(cmd.Context(), cfg, file, cfg.Street)
			if err != nil {
				return err
			}
			return WriteEvents(cmd.OutOrStdout(), events, f, ics.Options{Location: cfg.Location})
		},
	}

	cmd.Flags().StringVar(&street, "street", "", "Street to fetch the schedule for (overrides config)")
	cmd.Flags().StringVar(&file, "file", "", "Read the schedule page from a file instead of fetching it")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or ics")
	return cmd
}
