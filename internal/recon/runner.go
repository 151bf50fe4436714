package recon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkleiven/rollcall/internal/apperr"
	"github.com/jkleiven/rollcall/internal/debounce"
	"github.com/jkleiven/rollcall/internal/ledger"
	"github.com/jkleiven/rollcall/internal/models"
)

// OutcomeFunc is called after every completed reconciliation attempt
// (store failures excluded). Invoked from the runner goroutine.
type OutcomeFunc func(Result)

type job struct {
	event models.IdentityEvent
	ch    chan jobResult // nil for fire-and-forget submissions
}

type jobResult struct {
	res Result
	err error
}

// Runner serializes reconciliation: one goroutine owns the debounce
// tracker and the ledger's read-modify-write cycle, so events are fully
// processed one at a time in delivery order.
type Runner struct {
	store   *ledger.Store
	engine  *Engine
	tracker *debounce.Tracker
	logger  *slog.Logger
	onDone  OutcomeFunc

	jobs chan job
	done chan struct{}
}

// NewRunner creates a runner and starts its processing loop. onDone may
// be nil.
func NewRunner(store *ledger.Store, engine *Engine, tracker *debounce.Tracker, logger *slog.Logger, onDone OutcomeFunc) *Runner {
	r := &Runner{
		store:   store,
		engine:  engine,
		tracker: tracker,
		logger:  logger,
		onDone:  onDone,
		jobs:    make(chan job, 256),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Close drains queued events and stops the loop.
func (r *Runner) Close() {
	close(r.jobs)
	<-r.done
}

// Submit enqueues an event without waiting for the result. It never
// blocks a producer: when the buffer is full the event is dropped and
// apperr.ErrUnavailable returned.
func (r *Runner) Submit(ev models.IdentityEvent) error {
	if ev.Identity == "" {
		return fmt.Errorf("recon: empty identity")
	}
	select {
	case r.jobs <- job{event: ev}:
		return nil
	case <-r.done:
		return apperr.ErrUnavailable
	default:
		return apperr.ErrUnavailable
	}
}

// Do enqueues an event and waits for its result. Bails out if ctx
// expires while the job is queued or executing; the loop still completes
// the cycle and the result lands in the buffered channel.
func (r *Runner) Do(ctx context.Context, ev models.IdentityEvent) (Result, error) {
	if ev.Identity == "" {
		return Result{}, fmt.Errorf("recon: empty identity")
	}
	ch := make(chan jobResult, 1)

	select {
	case r.jobs <- job{event: ev, ch: ch}:
	case <-r.done:
		return Result{}, apperr.ErrUnavailable
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case jr := <-ch:
		return jr.res, jr.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (r *Runner) loop() {
	defer close(r.done)

	for j := range r.jobs {
		res, err := r.process(j.event)
		if j.ch != nil {
			j.ch <- jobResult{res: res, err: err}
		}
		// An event's failure is isolated; the loop never dies with it.
	}
}

// process runs one full cycle: debounce check → load → decide → persist
// → debounce update. Only runs on the loop goroutine.
func (r *Runner) process(ev models.IdentityEvent) (Result, error) {
	now := ev.ObservedAt
	if now.IsZero() {
		now = time.Now()
	}

	if !r.tracker.ShouldAccept(ev.Identity, now) {
		res := Result{Outcome: OutcomeSuppressed, Identity: ev.Identity, At: now}
		r.finish(res)
		return res, nil
	}

	snap, err := r.store.LoadAll()
	if err != nil {
		// Debounce is deliberately not updated here: once the store is
		// healthy again the same identity may retry immediately.
		r.logger.Error("ledger load failed",
			slog.String("identity", ev.Identity),
			slog.String("error", err.Error()))
		return Result{}, err
	}
	for _, row := range snap.Malformed() {
		r.logger.Warn("malformed ledger row preserved",
			slog.Int("line", row.Line),
			slog.String("error", row.Err.Error()))
	}

	res := r.engine.Decide(snap, ev.Identity, now)

	if res.Mutated {
		if err := r.store.ReplaceAll(snap); err != nil {
			r.logger.Error("ledger write failed",
				slog.String("identity", ev.Identity),
				slog.String("error", err.Error()))
			return Result{}, err
		}
	}

	r.tracker.Record(ev.Identity, now)
	r.finish(res)
	return res, nil
}

func (r *Runner) finish(res Result) {
	r.logOutcome(res)
	if r.onDone != nil {
		r.onDone(res)
	}
}

func (r *Runner) logOutcome(res Result) {
	for _, a := range res.Anomalies {
		r.logger.Warn("ledger anomaly",
			slog.String("identity", res.Identity),
			slog.Int("line", a.Line),
			slog.String("reason", a.Reason))
	}

	switch res.Outcome {
	case OutcomeSuppressed:
		r.logger.Debug("event suppressed by cooldown", slog.String("identity", res.Identity))
	case OutcomeCheckInAccepted:
		r.logger.Info("check-in recorded",
			slog.String("identity", res.Identity),
			slog.String("time", res.At.Format(models.TimeLayout)))
	case OutcomeCheckOutAccepted:
		r.logger.Info("check-out recorded",
			slog.String("identity", res.Identity),
			slog.String("time", res.At.Format(models.TimeLayout)))
	case OutcomeCheckOutRejectedGap:
		r.logger.Info("check-out rejected, gap not met",
			slog.String("identity", res.Identity),
			slog.Duration("elapsed", res.Elapsed),
			slog.Duration("shortfall", res.Shortfall))
	case OutcomeAlreadyClosed:
		r.logger.Debug("cycle already closed for today", slog.String("identity", res.Identity))
	}
}
