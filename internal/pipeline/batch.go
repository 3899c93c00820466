package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/errors"
)

// Result is the outcome of one package in a batch
type Result struct {
	Package  string
	Warnings []string
	Err      error
}

// Report collects the results of a batch run
type Report struct {
	RunID   string
	Results []Result
}

// Failed counts the packages that failed
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Err returns the first failure, or nil
func (r *Report) Err() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// Diagnostics converts the results into diagnostics
func (r *Report) Diagnostics() []errors.Diagnostic {
	var diags []errors.Diagnostic
	for _, res := range r.Results {
		for _, w := range res.Warnings {
			diags = append(diags, errors.NewWarning(res.Package, "validation", w))
		}
		if res.Err != nil {
			diags = append(diags, errors.FromError(res.Package, res.Err))
		}
	}
	return diags
}

// JSON renders the report for --json output
func (r *Report) JSON() (string, error) {
	return errors.FormatDiagnosticsAsJSON(len(r.Results), r.Diagnostics())
}

// Step processes one package and returns its warnings
type Step func(ctx context.Context, pkg string) ([]string, error)

// Batch runs step on every package in order. A failing package is recorded
// and the batch moves on; a cancelled context fails the remaining packages.
func (p *Pipeline) Batch(ctx context.Context, packages []string, step Step) *Report {
	report := &Report{RunID: p.runID}
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, Result{Package: pkg, Err: err})
			continue
		}
		warnings, err := step(ctx, pkg)
		if err != nil {
			p.logger.Error("package failed", zap.String("package", pkg), zap.Error(err))
		}
		report.Results = append(report.Results, Result{Package: pkg, Warnings: warnings, Err: err})
	}
	p.logger.Info("batch finished", zap.Int("packages", len(packages)), zap.Int("failed", report.Failed()))
	return report
}
