package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/wastecal/pkg/colors"
	"github.com/harrisonrobin/wastecal/pkg/dates"
)

// Reminder is one reminder override on created events.
type Reminder struct {
	Method string        // "email" or "popup"
	Before time.Duration // lead time before the start of the day
}

// EventOptions are the fixed properties of every event this tool creates.
type EventOptions struct {
	Location  string
	Reminders []Reminder
	// Zone is the civil calendar used to turn a day into a time range.
	Zone    *time.Location
	Palette *colors.Palette
}

// ServiceCallError is a failed Calendar API call for one (title, date) pair.
type ServiceCallError struct {
	Op         string
	CalendarID string
	Title      string
	Date       civil.Date
	Err        error
}

func (e *ServiceCallError) Error() string {
	return fmt.Sprintf("calendar %s %q on %s: %v", e.Op, e.Title, e.Date, e.Err)
}

func (e *ServiceCallError) Unwrap() error { return e.Err }

// Code is the HTTP status returned by the API, or 0 for transport errors.
func (e *ServiceCallError) Code() int {
	var gerr *googleapi.Error
	if errors.As(e.Err, &gerr) {
		return gerr.Code
	}
	return 0
}

// CalendarClient is a Google Calendar API client.
type CalendarClient struct {
	srv  *calendar.Service
	opts EventOptions
}

// NewCalendarClient wraps an authorized Calendar service.
func NewCalendarClient(srv *calendar.Service, opts EventOptions) *CalendarClient {
	if opts.Zone == nil {
		opts.Zone = time.Local
	}
	return &CalendarClient{srv: srv, opts: opts}
}

var errFound = errors.New("found")

// EventExists reports whether calendarID already has an event titled title
// somewhere within the civil day date.
func (c *CalendarClient) EventExists(ctx context.Context, calendarID, title string, date civil.Date) (bool, error) {
	start, end := dates.Bounds(date, c.opts.Zone)

	call := c.srv.Events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		Q(title).
		SingleEvents(true).
		MaxResults(50)

	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if sameTitle(item.Summary, title) {
				return errFound
			}
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return true, nil
	}
	if err != nil {
		return false, &ServiceCallError{Op: "list", CalendarID: calendarID, Title: title, Date: date, Err: err}
	}
	return false, nil
}

// The API's q parameter is a word match; only an equal summary counts.
func sameTitle(summary, title string) bool {
	return strings.EqualFold(strings.TrimSpace(summary), strings.TrimSpace(title))
}

// CreateEvent inserts an all-day event and returns its ID.
func (c *CalendarClient) CreateEvent(ctx context.Context, calendarID, title, description string, date civil.Date) (string, error) {
	event := BuildEvent(title, description, date, c.opts)

	created, err := c.srv.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", &ServiceCallError{Op: "insert", CalendarID: calendarID, Title: title, Date: date, Err: err}
	}
	return created.Id, nil
}

// BuildEvent converts one pickup into a calendar event.
func BuildEvent(title, description string, date civil.Date, opts EventOptions) *calendar.Event {
	overrides := make([]*calendar.EventReminder, 0, len(opts.Reminders))
	for _, r := range opts.Reminders {
		overrides = append(overrides, &calendar.EventReminder{
			Method:  r.Method,
			Minutes: int64(r.Before / time.Minute),
		})
	}

	event := &calendar.Event{
		Summary:     title,
		Description: description,
		Location:    opts.Location,
		// All-day events end on the following day; the end date is exclusive.
		Start: &calendar.EventDateTime{Date: date.String()},
		End:   &calendar.EventDateTime{Date: date.AddDays(1).String()},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
		Transparency: "transparent",
	}
	if opts.Palette != nil {
		event.ColorId = opts.Palette.ColorID(title)
	}
	return event
}

// CalendarInfo is one entry of the user's calendar list.
type CalendarInfo struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary,omitempty"`
}

// ListCalendars returns every calendar the user can see.
func (c *CalendarClient) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var out []CalendarInfo
	err := c.srv.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			out = append(out, CalendarInfo{ID: item.Id, Summary: item.Summary, Primary: item.Primary})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	return out, nil
}

// ResolveCalendarID accepts a calendar ID, a calendar name, or "primary".
func (c *CalendarClient) ResolveCalendarID(ctx context.Context, value string) (string, error) {
	if value == "" {
		return "", errors.New("no calendar configured")
	}
	if value == "primary" {
		return value, nil
	}

	cals, err := c.ListCalendars(ctx)
	if err != nil {
		return "", err
	}
	for _, cal := range cals {
		if cal.ID == value {
			return cal.ID, nil
		}
	}
	for _, cal := range cals {
		if cal.Summary == value {
			return cal.ID, nil
		}
	}
	return "", fmt.Errorf("calendar '%s' not found", value)
}
