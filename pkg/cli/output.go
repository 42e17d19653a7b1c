package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/harrisonrobin/wastecal/pkg/google"
	"github.com/harrisonrobin/wastecal/pkg/ics"
	"github.com/harrisonrobin/wastecal/pkg/logger"
	"github.com/harrisonrobin/wastecal/pkg/model"
	"github.com/harrisonrobin/wastecal/pkg/reconcile"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

func parseFormat(s string, allowed ...OutputFormat) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if f == a {
			return f, nil
		}
		names = append(names, "'"+string(a)+"'")
	}
	return "", fmt.Errorf("invalid format: %s (must be %s)", s, strings.Join(names, " or "))
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteEvents prints extracted events the way `extract` shows them.
func WriteEvents(w io.Writer, events []model.RawEvent, format OutputFormat, opts ics.Options) error {
	switch format {
	case FormatJSON:
		if events == nil {
			events = []model.RawEvent{}
		}
		return writeJSON(w, events)
	case FormatICS:
		errs, err := ics.Write(w, events, opts)
		for _, e := range errs {
			logger.Warn("date left out of calendar export", "err", e)
		}
		return err
	case FormatText:
		return writeEventsText(w, events)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeEventsText(w io.Writer, events []model.RawEvent) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tDESCRIPTION\tDATES")
	for _, evt := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", evt.Title, evt.Description, strings.Join(evt.Dates, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d events\n", len(events))
	return nil
}

// WriteReport prints the result of a sync run.
func WriteReport(w io.Writer, report *reconcile.Report, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		return writeReportText(w, report, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeReportText(w io.Writer, report *reconcile.Report, verbose bool) error {
	if verbose || report.Failed > 0 {
		for _, o := range report.Outcomes {
			if !verbose && o.Status != reconcile.StatusFailed {
				continue
			}
			date := o.RawDate
			if !o.Date.IsZero() {
				date = o.Date.String()
			}
			line := fmt.Sprintf("%-8s %-12s %s", strings.ToUpper(string(o.Status)), date, o.Title)
			if o.Reason != "" {
				line += " (" + o.Reason + ")"
			}
			if o.Err != nil {
				line += ": " + o.Err.Error()
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Created: %d, skipped: %d, failed: %d\n", report.Created, report.Skipped, report.Failed)
	return nil
}

// WriteCalendars prints the calendar list.
func WriteCalendars(w io.Writer, cals []google.CalendarInfo, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if cals == nil {
			cals = []google.CalendarInfo{}
		}
		return writeJSON(w, cals)
	case FormatText:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\t")
		for _, c := range cals {
			primary := ""
			if c.Primary {
				primary = "(primary)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Summary, primary)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
