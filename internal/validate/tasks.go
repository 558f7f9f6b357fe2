package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/pipecheck/internal/butler"
	"github.com/specialistvlad/pipecheck/internal/ctxlog"
	"github.com/specialistvlad/pipecheck/internal/dataset"
)

// RerunMarker appears in the path of any product written by a reprocessing
// run rather than ingested as a master calibration.
const RerunMarker = "/rerun/"

// minCatalogRecords is the exclusive lower bound on catalog sizes.
const minCatalogRecords = 10

// Task is one validation task, run once per data reference.
type Task interface {
	Name() string
	// Run executes every check for ref. It returns an error only when data
	// cannot be fetched; failed checks are recorded on r.
	Run(ctx context.Context, r *Runner, ref butler.DataRef) error
}

// CalibValidation checks the master calibration of one kind attached to
// each data reference.
type CalibValidation struct {
	Calib dataset.CalibKind
}

func (CalibValidation) Name() string { return "calibValidation" }

func (t CalibValidation) Run(ctx context.Context, r *Runner, ref butler.DataRef) error {
	kind := t.Calib.Kind()

	filename, err := ref.Filename(kind)
	if err != nil {
		return fmt.Errorf("failed to resolve %s filename: %w", kind, err)
	}
	r.Require(ctx, !strings.Contains(filename, RerunMarker), "%s has been ingested", kind)

	calib, err := ref.Get(kind)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", kind, err)
	}
	requireExposureF(ctx, r, kind, calib)
	r.Require(ctx, sizeIsDecent(calib), "%s size is decent", kind)
	return nil
}

// processCcdOutputs are the datasets a successful processCcd run writes.
var processCcdOutputs = []dataset.Kind{
	dataset.Calexp,
	dataset.CalexpBackground,
	dataset.IcSrc,
	dataset.Src,
	dataset.SrcMatch,
}

// ProcessCcdValidation checks the outputs of CCD processing.
type ProcessCcdValidation struct{}

func (ProcessCcdValidation) Name() string { return "processCcdValidation" }

func (ProcessCcdValidation) Run(ctx context.Context, r *Runner, ref butler.DataRef) error {
	for _, kind := range processCcdOutputs {
		r.Require(ctx, ref.DatasetExists(kind), "%s exists", kind)
	}

	catalog, err := ref.Get(dataset.Src)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", dataset.Src, err)
	}
	r.Require(ctx, hasMoreRecords(catalog, minCatalogRecords), "%s catalog size", dataset.Src)

	matches, err := ref.Get(dataset.SrcMatch)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", dataset.SrcMatch, err)
	}
	r.Require(ctx, hasMoreRecords(matches, minCatalogRecords), "number of matches")

	calexp, err := ref.Get(dataset.Calexp)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", dataset.Calexp, err)
	}
	requireExposureF(ctx, r, dataset.Calexp, calexp)
	r.Require(ctx, sizeIsDecent(calexp), "%s size is decent", dataset.Calexp)
	return nil
}

func requireExposureF(ctx context.Context, r *Runner, kind dataset.Kind, obj any) {
	_, ok := obj.(*dataset.ExposureF)
	r.Require(ctx, ok, "%s is an ExposureF", kind)
	if !ok {
		ctxlog.FromContext(ctx).Info("Unexpected object type.", "dataset", kind.String(), "type", dataset.TypeName(obj))
	}
}

// sizeIsDecent reports whether obj has pixel dimensions above 1x1.
func sizeIsDecent(obj any) bool {
	s, ok := obj.(dataset.Sized)
	if !ok {
		return false
	}
	w, h := s.Dimensions()
	return w > 1 && h > 1
}

func hasMoreRecords(obj any, n int) bool {
	l, ok := obj.(dataset.Lengther)
	return ok && l.Len() > n
}
