// Package metrics provides the distance metrics used as ABC summary
// statistics between a target histogram and a simulated one.
package metrics

import (
	"errors"
	"fmt"
	"strings"

	"ecdnaabc/internal/histogram"
	"ecdnaabc/internal/metricid"
)

// Metric is a distance between two copy-number histograms. The first argument
// is always the target distribution.
//
// Metrics reporting RequiresEqualSupport only accept histograms that share an
// identical ordered key set; callers uniformise the pair first.
type Metric interface {
	Name() string
	RequiresEqualSupport() bool
	Distance(target, sim histogram.Histogram) (float64, error)
}

var (
	ErrEmptyHistogram  = errors.New("metrics: histogram has no mass")
	ErrSupportMismatch = errors.New("metrics: histograms do not share a support")
	ErrUnknownMetric   = errors.New("metrics: unknown metric")
	ErrDuplicateMetric = errors.New("metrics: duplicate metric")
)

var registry = map[string]func() Metric{
	"wasserstein":        func() Metric { return Wasserstein{} },
	"kolmogorov-smirnov": func() Metric { return KolmogorovSmirnov{} },
	"hellinger":          func() Metric { return Hellinger{} },
	"jensen-shannon":     func() Metric { return JensenShannon{} },
	"mean":               func() Metric { return Mean{} },
	"variance":           func() Metric { return Variance{} },
	"entropy":            func() Metric { return Entropy{} },
	"frequency":          func() Metric { return Frequency{} },
}

// canonicalOrder lists registry ids in the order Names reports them.
var canonicalOrder = []string{
	"wasserstein",
	"kolmogorov-smirnov",
	"hellinger",
	"jensen-shannon",
	"mean",
	"variance",
	"entropy",
	"frequency",
}

// Lookup resolves a metric by name or alias.
func Lookup(name string) (Metric, error) {
	ctor, ok := registry[metricid.Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return ctor(), nil
}

// Parse resolves names in order, rejecting unknown names and names that
// resolve to the same metric twice.
func Parse(names []string) ([]Metric, error) {
	out := make([]Metric, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		m, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[m.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMetric, m.Name())
		}
		seen[m.Name()] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

// Default is the metric set used when none is requested.
func Default() []Metric {
	return []Metric{Wasserstein{}, Mean{}, Frequency{}, Entropy{}}
}

// Names lists the column name of every registered metric.
func Names() []string {
	out := make([]string, 0, len(canonicalOrder))
	for _, id := range canonicalOrder {
		out = append(out, registry[id]().Name())
	}
	return out
}

func requireSameKeys(target, sim histogram.Histogram) error {
	if !histogram.SameKeys(target, sim) {
		return fmt.Errorf("%w: %d keys vs %d keys", ErrSupportMismatch, target.Len(), sim.Len())
	}
	return nil
}

func requireMass(hs ...histogram.Histogram) error {
	for _, h := range hs {
		if h.Mass() == 0 {
			return ErrEmptyHistogram
		}
	}
	return nil
}
