package reconcile

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/harrisonrobin/wastecal/pkg/logger"
)

// DryRun wraps cal so existence checks hit the real calendar while creates
// are only logged. Created outcomes carry an empty event ID.
func DryRun(cal Calendar, log *logger.Logger) Calendar {
	return &dryRun{Calendar: cal, log: log}
}

type dryRun struct {
	Calendar
	log *logger.Logger
}

func (d *dryRun) CreateEvent(ctx context.Context, calendarID, title, description string, date civil.Date) (string, error) {
	d.log.Info("dry run: would create event", "calendar", calendarID, "title", title, "date", date, "description", description)
	return "", nil
}
