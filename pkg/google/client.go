package google

import (
	"context"
	"fmt"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/wastecal/pkg/auth"
)

// NewClient creates a Calendar client authorized with the stored OAuth token,
// running the browser flow first if there is none.
func NewClient(ctx context.Context, opts EventOptions) (*CalendarClient, error) {
	scopes := []string{
		calendar.CalendarEventsScope,
		calendar.CalendarReadonlyScope,
	}
	client, err := auth.GetClient(ctx, scopes)
	if err != nil {
		return nil, err
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}
	return NewCalendarClient(srv, opts), nil
}
