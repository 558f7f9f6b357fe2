// Package validate runs ordered lists of named sanity checks against
// pipeline data products. A failed check is logged and counted but never
// stops the run; the accumulated count is turned into a process-level
// failure exactly once, by Runner.Finish, after every unit of work is done.
package validate

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/pipecheck/internal/ctxlog"
)

// Check is the outcome of one Require call.
type Check struct {
	Task        string
	DataID      string
	Description string
	OK          bool
}

// Unit is the outcome of running a task against one data reference.
type Unit struct {
	Task     string
	DataID   string
	Failures int
	Err      error
	Duration time.Duration
}

// Observer receives check and unit outcomes as they happen. Implementations
// must be safe for concurrent use.
type Observer interface {
	CheckCompleted(ctx context.Context, c Check)
	UnitCompleted(ctx context.Context, u Unit)
}

// FailedError is returned by Finish when at least one check failed or at
// least one unit of work could not be processed.
type FailedError struct {
	Failures int
	Errors   int
}

func (e *FailedError) Error() string {
	switch {
	case e.Errors == 0:
		return fmt.Sprintf("%d tests failed", e.Failures)
	case e.Failures == 0:
		return fmt.Sprintf("%d data references could not be processed", e.Errors)
	}
	return fmt.Sprintf("%d tests failed and %d data references could not be processed", e.Failures, e.Errors)
}

// Runner records check outcomes for one task run.
type Runner struct {
	task      string
	dataID    string
	observers []Observer

	failures atomic.Int64
	errors   atomic.Int64
}

// NewRunner returns a runner for the named task.
func NewRunner(task string, observers ...Observer) *Runner {
	return &Runner{task: task, observers: observers}
}

// forUnit returns a child runner whose checks are attributed to dataID.
// The child's count is merged into r by merge.
func (r *Runner) forUnit(dataID string) *Runner {
	return &Runner{task: r.task, dataID: dataID, observers: r.observers}
}

func (r *Runner) merge(child *Runner) {
	r.failures.Add(child.failures.Load())
}

// Task returns the task name the runner was created for.
func (r *Runner) Task() string {
	return r.task
}

// Require records the outcome of one check. A passing check logs
// "OK: <description>" at INFO. A failing check logs "FAIL: <description>" at
// FATAL followed by the call stack at INFO, and increments the failure count.
// Require never stops the caller.
func (r *Runner) Require(ctx context.Context, ok bool, format string, args ...any) {
	logger := ctxlog.FromContext(ctx)
	desc := fmt.Sprintf(format, args...)

	if ok {
		logger.Info("OK: " + desc)
	} else {
		ctxlog.Fatal(ctx, "FAIL: "+desc)
		logger.Info("Trace of failure", "trace", string(debug.Stack()))
		r.failures.Add(1)
	}

	check := Check{Task: r.task, DataID: r.dataID, Description: desc, OK: ok}
	for _, o := range r.observers {
		o.CheckCompleted(ctx, check)
	}
}

// Failures returns the number of failed checks recorded so far.
func (r *Runner) Failures() int {
	return int(r.failures.Load())
}

// Errors returns the number of units that ended in an infrastructure error.
func (r *Runner) Errors() int {
	return int(r.errors.Load())
}

func (r *Runner) recordError() {
	r.errors.Add(1)
}

// Finish inspects the counters once every unit of work has completed. It
// logs a FATAL summary and returns a *FailedError if anything failed.
func (r *Runner) Finish(ctx context.Context) error {
	failures, errs := r.Failures(), r.Errors()
	if failures == 0 && errs == 0 {
		ctxlog.FromContext(ctx).Info("All tests passed.", "task", r.task)
		return nil
	}

	err := &FailedError{Failures: failures, Errors: errs}
	ctxlog.Fatal(ctx, err.Error(), "task", r.task)
	return err
}
