// Package abc assembles ABC summary-statistic records: one row per simulated
// realisation, comparing its histogram to a target distribution.
package abc

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"ecdnaabc/internal/histogram"
	"ecdnaabc/internal/metrics"
	"ecdnaabc/internal/model"
	"ecdnaabc/internal/realisation"
)

// Target is a labelled reference distribution.
type Target struct {
	Name      string
	Histogram histogram.Histogram
}

// ComputeSummaries produces one record per realisation, in input order.
// Inputs are never modified.
func ComputeSummaries(rs []*realisation.Realisation, target histogram.Histogram, label string, ms []metrics.Metric) ([]SummaryRecord, error) {
	return Engine{}.Compute(context.Background(), rs, target, label, ms)
}

// ComputeForTargets runs ComputeSummaries once per target and concatenates the
// results, grouped by target in the given order.
func ComputeForTargets(rs []*realisation.Realisation, targets []Target, ms []metrics.Metric) ([]SummaryRecord, error) {
	return Engine{}.ComputeForTargets(context.Background(), rs, targets, ms)
}

// Engine computes summary records, optionally across several goroutines.
// Records never depend on one another, so output order always matches input
// order regardless of Workers.
type Engine struct {
	// Workers bounds the concurrent record computations. Values <= 1 run
	// sequentially.
	Workers int
}

func (e Engine) Compute(ctx context.Context, rs []*realisation.Realisation, target histogram.Histogram, label string, ms []metrics.Metric) ([]SummaryRecord, error) {
	if err := validate(rs, label, ms); err != nil {
		return nil, err
	}

	out := make([]SummaryRecord, len(rs))
	if e.Workers <= 1 {
		for i, r := range rs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := summarise(r, target, label, ms)
			if err != nil {
				return nil, err
			}
			out[i] = rec
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	for i, r := range rs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := summarise(r, target, label, ms)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e Engine) ComputeForTargets(ctx context.Context, rs []*realisation.Realisation, targets []Target, ms []metrics.Metric) ([]SummaryRecord, error) {
	if len(targets) == 0 {
		return nil, &model.PreconditionError{Op: "compute summaries", Arg: "targets", Reason: "at least one target is required"}
	}
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if _, dup := seen[t.Name]; dup {
			return nil, &model.PreconditionError{Op: "compute summaries", Arg: "targets", Reason: fmt.Sprintf("duplicate target %q", t.Name)}
		}
		seen[t.Name] = struct{}{}
	}

	out := make([]SummaryRecord, 0, len(rs)*len(targets))
	for _, t := range targets {
		recs, err := e.Compute(ctx, rs, t.Histogram, t.Name, ms)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func validate(rs []*realisation.Realisation, label string, ms []metrics.Metric) error {
	if strings.TrimSpace(label) == "" {
		return &model.PreconditionError{Op: "compute summaries", Arg: "target label", Reason: "must not be empty"}
	}
	if len(ms) == 0 {
		return &model.PreconditionError{Op: "compute summaries", Arg: "metrics", Reason: "at least one metric is required"}
	}
	names := make(map[string]struct{}, len(ms))
	for i, m := range ms {
		if m == nil {
			return &model.PreconditionError{Op: "compute summaries", Arg: "metrics", Reason: fmt.Sprintf("metric %d is nil", i)}
		}
		name := m.Name()
		if reservedColumn(name) {
			return &model.PreconditionError{Op: "compute summaries", Arg: "metrics", Reason: fmt.Sprintf("metric name %q collides with a record column", name)}
		}
		if _, dup := names[name]; dup {
			return &model.PreconditionError{Op: "compute summaries", Arg: "metrics", Reason: fmt.Sprintf("duplicate metric %q", name)}
		}
		names[name] = struct{}{}
	}
	for i, r := range rs {
		if r == nil {
			return &model.PreconditionError{Op: "compute summaries", Arg: "realisations", Reason: fmt.Sprintf("realisation %d is nil", i)}
		}
	}
	return nil
}

// reservedColumn reports whether name is taken by the parameter or target
// fields every record starts with.
func reservedColumn(name string) bool {
	return name == model.ColumnTarget || slices.Contains(model.ParameterColumns, name)
}

func summarise(r *realisation.Realisation, target histogram.Histogram, label string, ms []metrics.Metric) (SummaryRecord, error) {
	ps := r.Parameters()
	rec := newRecord(ps, label, len(ms))
	for _, m := range ms {
		a, b := target, r.Histogram()
		if m.RequiresEqualSupport() {
			u := histogram.Uniformise(a, b)
			a, b = u[0], u[1]
			if !histogram.SameKeys(a, b) {
				return SummaryRecord{}, &model.UnsupportedMetricError{Metric: m.Name(), Path: ps.SourcePath, Reason: "supports differ after uniformisation"}
			}
		}
		d, err := m.Distance(a, b)
		if err != nil {
			return SummaryRecord{}, &model.UnsupportedMetricError{Metric: m.Name(), Path: ps.SourcePath, Reason: "distance failed", Err: err}
		}
		rec.set(m.Name(), d)
	}
	return rec, nil
}
