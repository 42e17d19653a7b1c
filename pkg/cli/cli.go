package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/wastecal/pkg/config"
	"github.com/harrisonrobin/wastecal/pkg/fetch"
	"github.com/harrisonrobin/wastecal/pkg/google"
	"github.com/harrisonrobin/wastecal/pkg/logger"
	"github.com/harrisonrobin/wastecal/pkg/reconcile"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// Calendar is what the commands need from the calendar backend.
type Calendar interface {
	reconcile.Calendar
	ListCalendars(ctx context.Context) ([]google.CalendarInfo, error)
	ResolveCalendarID(ctx context.Context, value string) (string, error)
}

// deps are the outside collaborators, replaced in tests.
type deps struct {
	newCalendar func(ctx context.Context, opts google.EventOptions) (Calendar, error)
	fetchPage   func(ctx context.Context, cfg *config.Config, street string) (io.ReadCloser, error)
	stderr      io.Writer
}

func defaultDeps() deps {
	return deps{
		newCalendar: func(ctx context.Context, opts google.EventOptions) (Calendar, error) {
			return google.NewClient(ctx, opts)
		},
		fetchPage: func(ctx context.Context, cfg *config.Config, street string) (io.ReadCloser, error) {
			return fetch.New(cfg.SourceURL).Fetch(ctx, street)
		},
		stderr: os.Stderr,
	}
}

// rootOptions carries the persistent flags and the loaded configuration.
type rootOptions struct {
	deps
	configPath string
	verbose    bool
	log        *logger.Logger
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultDeps())
}

func newRootCmd(d deps) *cobra.Command {
	o := &rootOptions{deps: d}

	cmd := &cobra.Command{
		Use:   "wastecal",
		Short: "Sync the waste collection schedule into Google Calendar",
		Long: `wastecal reads the municipal waste collection schedule for a street and
creates an all-day Google Calendar event for every pickup that is not on the
calendar yet. Calendar calls are made one at a time with a fixed spacing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&o.configPath, "config", "", "Path to config.yaml (default ~/.config/wastecal/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newSyncCmd(o),
		newExtractCmd(o),
		newCalendarsCmd(o),
		newAuthCmd(o),
		newConfigCmd(o),
	)
	return cmd
}

// loadConfig reads and validates the configuration and sets up logging.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path, err := o.path()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	o.setupLogger(cfg.LogLevel)
	return cfg, nil
}

func (o *rootOptions) path() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("could not find path to configuration file: %w", err)
	}
	return path, nil
}

func (o *rootOptions) setupLogger(level string) {
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		lvl = logger.LevelInfo
	}
	if o.verbose {
		lvl = logger.LevelDebug
	}
	o.log = logger.New(o.stderr, lvl)
	logger.SetDefault(o.log)
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(ExitError)
	}
}
