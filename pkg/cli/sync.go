package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/wastecal/pkg/config"
	"github.com/harrisonrobin/wastecal/pkg/extract"
	"github.com/harrisonrobin/wastecal/pkg/model"
	"github.com/harrisonrobin/wastecal/pkg/queue"
	"github.com/harrisonrobin/wastecal/pkg/reconcile"
)

type syncOptions struct {
	*rootOptions
	calendar string
	street   string
	interval time.Duration
	dryRun   bool
	file     string
	format   string
}

func newSyncCmd(root *rootOptions) *cobra.Command {
	o := &syncOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create calendar events for every pickup not yet on the calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd)
		},
	}

	cmd.Flags().StringVar(&o.calendar, "calendar", "", "Calendar ID or name to sync with (overrides config)")
	cmd.Flags().StringVar(&o.street, "street", "", "Street to fetch the schedule for (overrides config)")
	cmd.Flags().DurationVar(&o.interval, "interval", 0, "Minimum spacing between calendar calls (overrides config)")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Check the calendar but do not create events")
	cmd.Flags().StringVar(&o.file, "file", "", "Read the schedule page from a file instead of fetching it")
	cmd.Flags().StringVar(&o.format, "format", "text", "Output format: text or json")
	return cmd
}

// applyFlags lets explicitly set flags win over the config file.
func (o *syncOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("calendar") {
		cfg.Calendar = o.calendar
	}
	if flags.Changed("street") {
		cfg.Street = o.street
	}
	if flags.Changed("interval") {
		if o.interval < 0 {
			return fmt.Errorf("--interval must not be negative, got %s", o.interval)
		}
		cfg.Interval = o.interval
	}
	return nil
}

func (o *syncOptions) run(cmd *cobra.Command) error {
	format, err := parseFormat(o.format, FormatText, FormatJSON)
	if err != nil {
		return err
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	if err := o.applyFlags(cmd, cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	events, err := o.readEvents(ctx, cfg, o.file, cfg.Street)
	if err != nil {
		return err
	}

	opts, err := cfg.EventOptions()
	if err != nil {
		return err
	}
	gc, err := o.newCalendar(ctx, opts)
	if err != nil {
		return fmt.Errorf("creating calendar client: %w", err)
	}
	calendarID, err := gc.ResolveCalendarID(ctx, cfg.Calendar)
	if err != nil {
		return err
	}
	o.log.Debug("resolved calendar", "calendar", cfg.Calendar, "id", calendarID)

	qctx, cancel := context.WithCancel(ctx)
	defer cancel()
	q := queue.New(cfg.Interval, queue.WithTaskTimeout(cfg.TaskTimeout), queue.WithLogger(o.log))
	q.Start(qctx)

	var cal reconcile.Calendar = gc
	if o.dryRun {
		cal = reconcile.DryRun(gc, o.log)
	}
	engine := reconcile.NewEngine(q, cal, reconcile.WithLogger(o.log))

	report, err := engine.Synchronize(ctx, calendarID, events)
	if err != nil {
		return fmt.Errorf("synchronizing: %w", err)
	}
	return WriteReport(cmd.OutOrStdout(), report, format, o.verbose)
}

// readEvents loads the schedule page from file, or fetches it for street,
// and extracts its events. Malformed rows are logged and skipped.
func (o *rootOptions) readEvents(ctx context.Context, cfg *config.Config, file, street string) ([]model.RawEvent, error) {
	var page io.ReadCloser
	var err error
	if file != "" {
		page, err = os.Open(file)
	} else {
		page, err = o.fetchPage(ctx, cfg, street)
	}
	if err != nil {
		return nil, fmt.Errorf("reading schedule page: %w", err)
	}
	defer page.Close()

	events, errs := extract.New(cfg.Layout).Extract(page)
	for _, e := range errs {
		o.log.Warn("skipping schedule row", "err", e)
	}
	o.log.Info("extracted schedule", "events", len(events), "errors", len(errs))
	return events, nil
}
