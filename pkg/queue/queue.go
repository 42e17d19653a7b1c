// Package queue runs asynchronous tasks one at a time with a minimum spacing
// between task starts. It exists to keep calls to a rate-limited remote API
// strictly sequential.
//
// Tasks run in admission order. A task enqueued from another task's
// completion handler is admitted at that moment, behind everything already
// waiting.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harrisonrobin/wastecal/pkg/logger"
)

// Task is one unit of work. It should return promptly once ctx is done.
type Task func(ctx context.Context) (any, error)

// Handler runs on the driver after a task settles and before the next task
// is picked. It may enqueue further tasks.
type Handler func(value any, err error)

// TaskError wraps every task failure, including panics, timeouts and
// cancellation, so callers can treat them uniformly.
type TaskError struct {
	Name string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Name, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// ErrStopped is the cause recorded for tasks still waiting when the driver's
// context ends.
var ErrStopped = errors.New("queue stopped")

// Future is the handle returned by Enqueue.
type Future struct {
	name     string
	done     chan struct{}
	value    any
	err      error
	started  time.Time
	finished time.Time
}

func (f *Future) Name() string { return f.name }

// Done is closed once the task has settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the task settles or ctx ends.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Started is when the driver began the task; zero if it never ran.
// Only meaningful after Done is closed.
func (f *Future) Started() time.Time { return f.started }

// Finished is when the task's outcome was known.
// Only meaningful after Done is closed.
func (f *Future) Finished() time.Time { return f.finished }

type entry struct {
	fut  *Future
	task Task
	then Handler
}

type Option func(*Queue)

// WithTaskTimeout fails a task that has not returned after d. The driver
// moves on; the task's context is cancelled.
func WithTaskTimeout(d time.Duration) Option {
	return func(q *Queue) { q.timeout = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// Queue is a single-lane, interval-throttled task scheduler.
type Queue struct {
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger

	mu        sync.Mutex
	backlog   []*entry
	pending   int // enqueued and not yet settled
	idle      chan struct{}
	wake      chan struct{}
	lastStart time.Time
	started   bool
	stopped   bool

	stats Stats
}

// Stats counts settled tasks.
type Stats struct {
	Succeeded int
	Failed    int
}

func New(interval time.Duration, opts ...Option) *Queue {
	q := &Queue{
		interval: interval,
		log:      logger.Default(),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the driver. It runs until ctx ends, at which point every
// task still waiting is failed with ErrStopped. Start may be called once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go q.drive(ctx)
}

// Enqueue appends task to the backlog.
func (q *Queue) Enqueue(name string, task Task) *Future {
	return q.EnqueueThen(name, task, nil)
}

// EnqueueThen appends task to the backlog and arranges for then to run on
// the driver once the task settles.
func (q *Queue) EnqueueThen(name string, task Task, then Handler) *Future {
	fut := &Future{name: name, done: make(chan struct{})}
	e := &entry{fut: fut, task: task, then: then}

	q.mu.Lock()
	q.pending++
	if q.stopped {
		q.mu.Unlock()
		q.settle(e, nil, &TaskError{Name: name, Err: ErrStopped})
		return fut
	}
	q.backlog = append(q.backlog, e)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return fut
}

// Len is the number of tasks waiting to start.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Idle returns a channel closed once nothing is waiting or running,
// including tasks enqueued by completion handlers.
func (q *Queue) Idle() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == 0 {
		return closed
	}
	if q.idle == nil {
		q.idle = make(chan struct{})
	}
	return q.idle
}

// Wait blocks until the queue is idle or ctx ends.
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.Idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) pop() (*entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.backlog) == 0 {
		return nil, false
	}
	e := q.backlog[0]
	q.backlog[0] = nil
	q.backlog = q.backlog[1:]
	return e, true
}

func (q *Queue) drive(ctx context.Context) {
	for {
		e, ok := q.pop()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-ctx.Done():
				q.drain()
				return
			}
		}

		if err := q.waitTurn(ctx); err != nil {
			q.settle(e, nil, &TaskError{Name: e.fut.name, Err: ErrStopped})
			q.drain()
			return
		}
		q.execute(ctx, e)
	}
}

// waitTurn sleeps until interval has passed since the previous start and
// records the new start time.
func (q *Queue) waitTurn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !q.lastStart.IsZero() {
		if d := time.Until(q.lastStart.Add(q.interval)); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
	q.lastStart = time.Now()
	return nil
}

type result struct {
	value any
	err   error
}

func (q *Queue) execute(ctx context.Context, e *entry) {
	e.fut.started = q.lastStart

	tctx, cancel := ctx, context.CancelFunc(func() {})
	if q.timeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, q.timeout)
	}
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := e.task(tctx)
		ch <- result{value: v, err: err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-tctx.Done():
		res = result{err: tctx.Err()}
		q.log.Warn("task abandoned", "task", e.fut.name, "reason", tctx.Err())
	}

	if res.err != nil {
		res.err = &TaskError{Name: e.fut.name, Err: res.err}
	}
	q.settle(e, res.value, res.err)
}

// settle records the outcome, runs the completion handler and only then
// resolves the future, so work enqueued by the handler is counted before
// the pending total can reach zero.
func (q *Queue) settle(e *entry, value any, err error) {
	e.fut.value, e.fut.err = value, err
	e.fut.finished = time.Now()

	if e.then != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					q.log.Error("completion handler panicked", fmt.Errorf("%v", r), "task", e.fut.name)
				}
			}()
			e.then(value, err)
		}()
	}

	close(e.fut.done)

	q.mu.Lock()
	defer q.mu.Unlock()
	if err != nil {
		q.stats.Failed++
	} else {
		q.stats.Succeeded++
	}
	q.pending--
	if q.pending == 0 && q.idle != nil {
		close(q.idle)
		q.idle = nil
	}
}

// drain fails everything still in the backlog, including work that the
// failing handlers enqueue in turn. Later Enqueue calls fail immediately.
func (q *Queue) drain() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	for {
		e, ok := q.pop()
		if !ok {
			return
		}
		q.settle(e, nil, &TaskError{Name: e.fut.name, Err: ErrStopped})
	}
}
