package app

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/pipecheck/internal/ctxlog"
	"github.com/specialistvlad/pipecheck/internal/dataset"
	"github.com/specialistvlad/pipecheck/internal/report"
	"github.com/specialistvlad/pipecheck/internal/validate"
)

// Run validates every raw data reference matching the configured selectors
// with task. It returns a *validate.FailedError when any check failed or any
// unit could not be processed, and a plain error when the run itself could
// not proceed.
func (app *App) Run(ctx context.Context, task validate.Task) error {
	ctx = ctxlog.WithLogger(ctx, app.logger)
	app.ctx = ctx
	logger := app.logger.With("task", task.Name())
	logger.Debug("App.Run method started.")

	if err := app.healthCheckServer(); err != nil {
		return err
	}
	defer app.closeHealthCheckServer()

	observers := []validate.Observer{app.metrics}
	var reporter *report.Reporter
	if app.config.ReportURL != "" {
		r, err := report.Dial(ctx, report.Options{
			URL:                app.config.ReportURL,
			Namespace:          app.config.ReportNamespace,
			InsecureSkipVerify: app.config.ReportInsecureSkipVerify,
		})
		if err != nil {
			logger.Warn("Result reporting disabled.", "error", err)
		} else {
			reporter = r
			defer reporter.Close()
			observers = append(observers, reporter)
		}
	}

	refs := app.repo.Subset(dataset.Raw, app.config.Selectors)
	if len(refs) == 0 {
		logger.Warn("No data references matched the given data IDs.", "selectors", app.config.Selectors)
	}

	runner := validate.NewRunner(task.Name(), observers...)
	logger.Info("🚀 Starting validation...", "units", len(refs), "processes", app.config.Processes)
	start := time.Now()
	sum, execErr := validate.Execute(ctx, task, runner, refs, validate.Options{
		Processes: app.config.Processes,
		DoRaise:   app.config.DoRaise,
	})
	elapsed := time.Since(start)
	logger.Info("🏁 Validation finished.",
		"units", sum.Units, "failed_units", sum.FailedUnits,
		"failures", sum.Failures, "errors", sum.Errors, "duration", elapsed)

	app.metrics.RunCompleted(task.Name(), elapsed)
	reporter.Summary(task.Name(), sum)

	var writeErr error
	if app.config.MetricsFile != "" {
		if writeErr = app.metrics.WriteTextfile(app.config.MetricsFile); writeErr != nil {
			logger.Error("Failed to write metrics file.", "path", app.config.MetricsFile, "error", writeErr)
			writeErr = fmt.Errorf("failed to write metrics file: %w", writeErr)
		} else {
			logger.Debug("Metrics written.", "path", app.config.MetricsFile)
		}
	}

	// Finish runs even after an abort so failures counted so far are summarized.
	finishErr := runner.Finish(ctx)
	if execErr != nil {
		return fmt.Errorf("execution aborted: %w", execErr)
	}
	if finishErr != nil {
		return finishErr
	}
	return writeErr
}
