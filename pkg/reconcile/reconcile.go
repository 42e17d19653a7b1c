// Package reconcile pushes extracted pickups into a calendar without
// creating duplicates.
//
// Every (event, date) pair goes through two task kinds on one shared queue:
// a check task asks the calendar whether the event exists, and only when it
// does not, the check's completion handler enqueues a create task. Because
// the queue is single-lane, a create never overlaps its check or any other
// call, and is admitted only after its check has finished.
package reconcile

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/harrisonrobin/wastecal/pkg/dates"
	"github.com/harrisonrobin/wastecal/pkg/index"
	"github.com/harrisonrobin/wastecal/pkg/logger"
	"github.com/harrisonrobin/wastecal/pkg/model"
	"github.com/harrisonrobin/wastecal/pkg/queue"
)

// Calendar is the remote event store.
type Calendar interface {
	EventExists(ctx context.Context, calendarID, title string, date civil.Date) (bool, error)
	CreateEvent(ctx context.Context, calendarID, title, description string, date civil.Date) (string, error)
}

type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Reasons attached to skipped and failed outcomes.
const (
	ReasonExists    = "exists"
	ReasonDuplicate = "duplicate"
	ReasonBadDate   = "bad date"
	ReasonCheck     = "check failed"
	ReasonCreate    = "create failed"
)

// Outcome is the final result for one (event, date) pair.
type Outcome struct {
	Title   string     `json:"title"`
	RawDate string     `json:"raw_date"`
	Date    civil.Date `json:"date"`
	Status  Status     `json:"status"`
	Reason  string     `json:"reason,omitempty"`
	EventID string     `json:"event_id,omitempty"`
	Err     error      `json:"-"`
}

// Report collects the outcomes of one Synchronize call in settle order.
type Report struct {
	RunID    string    `json:"run_id"`
	Outcomes []Outcome `json:"outcomes"`
	Created  int       `json:"created"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusCreated:
		r.Created++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// Engine schedules check and create tasks for extracted events.
type Engine struct {
	queue *queue.Queue
	cal   Calendar
	log   *logger.Logger
}

type Option func(*Engine)

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine uses q for every calendar call. The caller owns q and must have
// started it.
func NewEngine(q *queue.Queue, cal Calendar, opts ...Option) *Engine {
	e := &Engine{queue: q, cal: cal, log: logger.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run is the state of one Synchronize call.
type run struct {
	*Engine
	calendarID string
	log        *logger.Logger
	index      *index.EventIndex

	mu     sync.Mutex
	report *Report
	closed bool // set once Synchronize has returned
}

// pair is one (event, date) combination moving through the queue.
type pair struct {
	key         model.PairKey
	description string
	raw         string
}

// Synchronize enqueues a check for every (event, date) pair and blocks until
// every derived task, including creates enqueued by checks, has settled.
// Individual failures end up in the report; the returned error is only set
// when ctx ends first. In that case the report holds what had settled by
// then, and later outcomes are dropped.
func (e *Engine) Synchronize(ctx context.Context, calendarID string, events []model.RawEvent) (*Report, error) {
	id := uuid.NewString()
	r := &run{
		Engine:     e,
		calendarID: calendarID,
		log:        e.log.With("run", id),
		index:      index.NewEventIndex(),
		report:     &Report{RunID: id},
	}

	r.log.Info("synchronizing", "calendar", calendarID, "events", len(events))
	for _, evt := range events {
		if len(evt.Dates) == 0 {
			r.log.Warn("event has no dates", "title", evt.Title)
		}
		for _, raw := range evt.Dates {
			r.submit(evt, raw)
		}
	}

	err := e.queue.Wait(ctx)

	r.mu.Lock()
	r.closed = true
	report := *r.report
	report.Outcomes = slices.Clone(r.report.Outcomes)
	r.mu.Unlock()

	stats := e.queue.Stats()
	r.log.Info("synchronization finished",
		"pairs", r.index.Len(),
		"created", report.Created,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"tasks_ok", stats.Succeeded,
		"tasks_failed", stats.Failed,
		"backlog", e.queue.Len(),
	)
	return &report, err
}

func (r *run) submit(evt model.RawEvent, raw string) {
	date, err := dates.Normalize(raw)
	if err != nil {
		r.record(Outcome{Title: evt.Title, RawDate: raw, Status: StatusSkipped, Reason: ReasonBadDate, Err: err})
		return
	}

	p := pair{
		key:         model.PairKey{CalendarID: r.calendarID, Title: evt.Title, Date: date},
		description: evt.Description,
		raw:         raw,
	}
	if !r.index.Claim(p.key) {
		r.record(p.outcome(StatusSkipped, ReasonDuplicate, nil))
		return
	}
	r.queue.EnqueueThen(p.name("check"), r.checkTask(p), r.onChecked(p))
}

func (p pair) name(kind string) string {
	return fmt.Sprintf("%s %s %s", kind, p.key.Title, p.key.Date)
}

func (p pair) outcome(status Status, reason string, err error) Outcome {
	return Outcome{
		Title:   p.key.Title,
		RawDate: p.raw,
		Date:    p.key.Date,
		Status:  status,
		Reason:  reason,
		Err:     err,
	}
}

func (r *run) checkTask(p pair) queue.Task {
	return func(ctx context.Context) (any, error) {
		return r.cal.EventExists(ctx, p.key.CalendarID, p.key.Title, p.key.Date)
	}
}

func (r *run) createTask(p pair) queue.Task {
	return func(ctx context.Context) (any, error) {
		return r.cal.CreateEvent(ctx, p.key.CalendarID, p.key.Title, p.description, p.key.Date)
	}
}

// onChecked is the producer side: it runs on the queue driver right after
// the check settles and admits the create behind everything already queued.
func (r *run) onChecked(p pair) queue.Handler {
	return func(v any, err error) {
		if err != nil {
			r.record(p.outcome(StatusFailed, ReasonCheck, err))
			return
		}
		if exists, _ := v.(bool); exists {
			r.record(p.outcome(StatusSkipped, ReasonExists, nil))
			return
		}
		r.log.Debug("event missing, queueing create", "title", p.key.Title, "date", p.key.Date)
		r.queue.EnqueueThen(p.name("create"), r.createTask(p), r.onCreated(p))
	}
}

func (r *run) onCreated(p pair) queue.Handler {
	return func(v any, err error) {
		if err != nil {
			r.record(p.outcome(StatusFailed, ReasonCreate, err))
			return
		}
		id, _ := v.(string)
		o := p.outcome(StatusCreated, "", nil)
		o.EventID = id
		r.record(o)
	}
}

// record stores and logs an outcome. It is called exactly once per pair.
func (r *run) record(o Outcome) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Debug("outcome after run ended", "title", o.Title, "date", o.Date, "status", o.Status)
		return
	}
	r.report.add(o)
	r.mu.Unlock()

	switch o.Status {
	case StatusCreated:
		r.log.Info("created event", "title", o.Title, "date", o.Date, "id", o.EventID)
	case StatusSkipped:
		if o.Err != nil {
			r.log.Warn("skipping event", "title", o.Title, "date", o.RawDate, "reason", o.Reason, "err", o.Err)
			break
		}
		r.log.Info("event already present, skipping", "title", o.Title, "date", o.Date, "reason", o.Reason)
	case StatusFailed:
		r.log.Error("could not sync event", o.Err, "title", o.Title, "date", o.RawDate, "reason", o.Reason)
	}
}
