// Package cli implements the command-line interface for wastecal.
//
// The cli package provides the Cobra-based CLI: sync fetches the schedule
// page, extracts its events and creates the missing ones on the calendar
// through the throttled queue; extract previews the parsed schedule as text,
// JSON or iCalendar; calendars, auth and config cover setup.
package cli
