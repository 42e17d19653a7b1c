// Package ics renders extracted pickups as an iCalendar feed, for calendars
// other than Google or for checking an extraction by eye.
package ics

import (
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/civil"
	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/harrisonrobin/wastecal/pkg/dates"
	"github.com/harrisonrobin/wastecal/pkg/model"
)

const ProductID = "-//wastecal//waste collection//EN"

// uidSpace seeds the name-based UIDs so the same pickup always exports
// with the same UID.
var uidSpace = uuid.MustParse("4d1b7a8e-2f4c-4a7e-9c51-6f0e3b2d8a90")

// Options control the exported events.
type Options struct {
	Location string
	// Stamp is written as DTSTAMP on every event. Zero means now.
	Stamp time.Time
}

// UID returns the stable identifier of a pickup.
func UID(title string, date civil.Date) string {
	return uuid.NewSHA1(uidSpace, []byte(title+"|"+date.String())).String() + "@wastecal"
}

// Build turns events into a calendar with one all-day VEVENT per date.
// Dates that do not normalize are left out and returned as errors.
func Build(events []model.RawEvent, opts Options) (*ical.Calendar, []error) {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	var errs []error
	seen := make(map[string]bool)
	for _, evt := range events {
		for _, raw := range evt.Dates {
			d, err := dates.Normalize(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", evt.Title, err))
				continue
			}
			uid := UID(evt.Title, d)
			if seen[uid] {
				continue
			}
			seen[uid] = true

			start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
			ve := cal.AddEvent(uid)
			ve.SetDtStampTime(stamp)
			ve.SetSummary(evt.Title)
			if evt.Description != "" {
				ve.SetDescription(evt.Description)
			}
			if opts.Location != "" {
				ve.SetLocation(opts.Location)
			}
			ve.SetAllDayStartAt(start)
			ve.SetAllDayEndAt(start.AddDate(0, 0, 1))
			ve.SetProperty(ical.ComponentPropertyTransp, "TRANSPARENT")
		}
	}
	return cal, errs
}

// Write builds the calendar and serializes it to w.
func Write(w io.Writer, events []model.RawEvent, opts Options) ([]error, error) {
	cal, errs := Build(events, opts)
	if err := cal.SerializeTo(w); err != nil {
		return errs, fmt.Errorf("writing calendar: %w", err)
	}
	return errs, nil
}
