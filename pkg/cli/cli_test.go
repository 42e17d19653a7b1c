package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/wastecal/pkg/config"
	"github.com/harrisonrobin/wastecal/pkg/google"
	"github.com/harrisonrobin/wastecal/pkg/logger"
	"github.com/harrisonrobin/wastecal/pkg/model"
	"github.com/harrisonrobin/wastecal/pkg/reconcile"
)

const fixture = "../extract/testdata/schedule.html"

type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]bool
	creates int
	opts    google.EventOptions
}

func (f *fakeCalendar) EventExists(ctx context.Context, calendarID, title string, date civil.Date) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[calendarID+"|"+title+"|"+date.String()], nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, calendarID, title, description string, date civil.Date) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.events[calendarID+"|"+title+"|"+date.String()] = true
	return fmt.Sprintf("evt-%d", f.creates), nil
}

func (f *fakeCalendar) ListCalendars(ctx context.Context) ([]google.CalendarInfo, error) {
	return []google.CalendarInfo{
		{ID: "primary@example.com", Summary: "Me", Primary: true},
		{ID: "abfall@group.calendar.google.com", Summary: "Abfall"},
	}, nil
}

func (f *fakeCalendar) ResolveCalendarID(ctx context.Context, value string) (string, error) {
	cals, _ := f.ListCalendars(ctx)
	for _, c := range cals {
		if c.ID == value || c.Summary == value {
			return c.ID, nil
		}
	}
	if value == "primary" {
		return value, nil
	}
	return "", fmt.Errorf("calendar '%s' not found", value)
}

type harness struct {
	cal        *fakeCalendar
	configPath string
	fetched    []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	h := &harness{
		cal:        &fakeCalendar{events: make(map[string]bool)},
		configPath: filepath.Join(t.TempDir(), "config.yaml"),
	}
	cfg := config.DefaultConfig()
	cfg.Calendar = "Abfall"
	cfg.Interval = time.Millisecond
	require.NoError(t, config.Save(h.configPath, cfg))

	prev := logger.Default()
	t.Cleanup(func() { logger.SetDefault(prev) })
	return h
}

func (h *harness) deps() deps {
	return deps{
		newCalendar: func(ctx context.Context, opts google.EventOptions) (Calendar, error) {
			h.cal.opts = opts
			return h.cal, nil
		},
		fetchPage: func(ctx context.Context, cfg *config.Config, street string) (io.ReadCloser, error) {
			h.fetched = append(h.fetched, street)
			return os.Open(fixture)
		},
		stderr: io.Discard,
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(h.deps())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", h.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSyncCreatesMissingEvents(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "sync", "--file", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "Created: 8, skipped: 0, failed: 0")
	assert.Equal(t, 8, h.cal.creates)
	assert.True(t, h.cal.events["abfall@group.calendar.google.com|Restmüll|2024-01-08"])
	assert.Empty(t, h.fetched, "--file must not fetch")

	out, err = h.run(t, "sync", "--file", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "Created: 0, skipped: 8, failed: 0")
	assert.Equal(t, 8, h.cal.creates)
}

func TestSyncFetchesConfiguredStreet(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "sync", "--street", "Kaiserstraße", "--calendar", "primary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kaiserstraße"}, h.fetched)
	assert.True(t, h.cal.events["primary|Altpapier|2024-01-16"])
}

func TestSyncDryRun(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "sync", "--file", fixture, "--dry-run", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, 0, h.cal.creates)

	var report reconcile.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 8, report.Created)
	assert.Len(t, report.Outcomes, 8)
	assert.NotEmpty(t, report.RunID)
}

func TestSyncPassesEventOptions(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "sync", "--file", fixture)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", h.cal.opts.Zone.String())
	assert.Len(t, h.cal.opts.Reminders, 2)
	assert.NotNil(t, h.cal.opts.Palette)
}

func TestSyncUnknownCalendar(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "sync", "--file", fixture, "--calendar", "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nope")
	assert.Equal(t, 0, h.cal.creates)
}

func TestSyncRejectsNegativeInterval(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "sync", "--file", fixture, "--interval", "-1s")
	assert.ErrorContains(t, err, "--interval")
}

func TestSyncMissingFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "sync", "--file", filepath.Join(t.TempDir(), "missing.html"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractFormats(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "extract", "--file", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "08.01.2024, 22.01.2024, 05.02.2024")
	assert.Contains(t, out, "Total: 4 events")

	out, err = h.run(t, "extract", "--file", fixture, "--format", "json")
	require.NoError(t, err)
	var events []model.RawEvent
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 4)
	assert.Equal(t, "Wertstoff", events[2].Title)

	out, err = h.run(t, "extract", "--file", fixture, "--format", "ics")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Equal(t, 8, strings.Count(out, "BEGIN:VEVENT"))

	_, err = h.run(t, "extract", "--file", fixture, "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestCalendarsList(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "calendars")
	require.NoError(t, err)
	assert.Contains(t, out, "abfall@group.calendar.google.com")
	assert.Contains(t, out, "(primary)")
}

func TestConfigSetCalendar(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "config", "set-calendar", "Müll")
	require.NoError(t, err)
	assert.Contains(t, out, "Default calendar set to: Müll")

	cfg, err := config.Load(h.configPath)
	require.NoError(t, err)
	assert.Equal(t, "Müll", cfg.Calendar)

	out, err = h.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "calendar: Müll")

	out, err = h.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, h.configPath+"\n", out)
}

func TestInvalidConfigIsFatal(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.configPath, []byte("layout:\n  title_cell: 2\n  dates_cell: 2\n"), 0600))

	_, err := h.run(t, "extract", "--file", fixture)
	assert.ErrorContains(t, err, "invalid config")
}

func TestWriteReportTextListsFailures(t *testing.T) {
	report := &reconcile.Report{Created: 1, Failed: 1}
	report.Outcomes = []reconcile.Outcome{
		{Title: "Restmüll", Date: civil.Date{Year: 2024, Month: 1, Day: 8}, Status: reconcile.StatusCreated},
		{Title: "Bioabfall", RawDate: "32.01.2024", Status: reconcile.StatusFailed, Reason: reconcile.ReasonBadDate, Err: errors.New("invalid date")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report, FormatText, false))
	out := buf.String()
	assert.NotContains(t, out, "Restmüll")
	assert.Contains(t, out, "FAILED   32.01.2024   Bioabfall (bad date): invalid date")
	assert.Contains(t, out, "Created: 1, skipped: 0, failed: 1")
}
