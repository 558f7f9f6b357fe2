package validate

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/pipecheck/internal/butler"
	"github.com/specialistvlad/pipecheck/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Options controls how Execute distributes units of work.
type Options struct {
	// Processes is the number of units run concurrently. Values below 1
	// run units one at a time.
	Processes int
	// DoRaise aborts the run on the first infrastructure error instead of
	// logging it and moving on to the next unit.
	DoRaise bool
}

// Summary describes a completed Execute call.
type Summary struct {
	Units       int
	FailedUnits int
	Errors      int
	Failures    int
}

// Execute runs task against every ref, recording outcomes on r. Checks of a
// single unit always run in order on one goroutine; units may run
// concurrently. Failed checks never stop the run. Infrastructure errors are
// logged and counted, or, with DoRaise, returned after in-flight units
// finish. Execute does not call r.Finish.
func Execute(ctx context.Context, task Task, r *Runner, refs []butler.DataRef, opts Options) (Summary, error) {
	logger := ctxlog.FromContext(ctx)
	processes := opts.Processes
	if processes < 1 {
		processes = 1
	}
	logger.Debug("Executing task.", "task", task.Name(), "units", len(refs), "processes", processes)

	units := make([]Unit, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(processes)

	for i, ref := range refs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A slot may free up only after another unit raised.
			if gctx.Err() != nil {
				return nil
			}
			u := runUnit(gctx, task, r, ref)
			units[i] = u
			if u.Err != nil && opts.DoRaise {
				return fmt.Errorf("%s failed for %s: %w", task.Name(), u.DataID, u.Err)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	var sum Summary
	for _, u := range units {
		if u.Task == "" {
			continue
		}
		sum.Units++
		sum.Failures += u.Failures
		if u.Err != nil {
			sum.Errors++
		}
		if u.Err != nil || u.Failures > 0 {
			sum.FailedUnits++
		}
	}
	return sum, err
}

func runUnit(ctx context.Context, task Task, r *Runner, ref butler.DataRef) Unit {
	id := ref.DataID().String()
	logger := ctxlog.FromContext(ctx).With("task", task.Name(), "dataId", id)
	ctx = ctxlog.WithLogger(ctx, logger)

	child := r.forUnit(id)
	start := time.Now()
	logger.Info("Processing data reference.")

	err := task.Run(ctx, child, ref)
	r.merge(child)

	u := Unit{
		Task:     task.Name(),
		DataID:   id,
		Failures: child.Failures(),
		Err:      err,
		Duration: time.Since(start),
	}
	if err != nil {
		r.recordError()
		logger.Error("Failed to process data reference.", "error", err)
	}
	for _, o := range r.observers {
		o.UnitCompleted(ctx, u)
	}
	return u
}
