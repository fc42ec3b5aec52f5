package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"ecdnaabc/internal/histogram"
)

// Mean compares the average copy number per cell.
type Mean struct{}

func (Mean) Name() string               { return "mean" }
func (Mean) RequiresEqualSupport() bool { return false }

func (Mean) Distance(target, sim histogram.Histogram) (float64, error) {
	return scalarDistance(target, sim, func(h histogram.Histogram) float64 {
		mean, _ := moments(h)
		return mean
	})
}

// Variance compares the population variance of the copy number per cell.
type Variance struct{}

func (Variance) Name() string               { return "variance" }
func (Variance) RequiresEqualSupport() bool { return false }

func (Variance) Distance(target, sim histogram.Histogram) (float64, error) {
	return scalarDistance(target, sim, func(h histogram.Histogram) float64 {
		_, variance := moments(h)
		return variance
	})
}

// Entropy compares the Shannon entropy (nats) of the copy-number distribution.
type Entropy struct{}

func (Entropy) Name() string               { return "entropy" }
func (Entropy) RequiresEqualSupport() bool { return false }

func (Entropy) Distance(target, sim histogram.Histogram) (float64, error) {
	return scalarDistance(target, sim, func(h histogram.Histogram) float64 {
		return stat.Entropy(h.Weights())
	})
}

// Frequency compares the fraction of cells carrying at least one copy.
type Frequency struct{}

func (Frequency) Name() string               { return "frequency" }
func (Frequency) RequiresEqualSupport() bool { return false }

func (Frequency) Distance(target, sim histogram.Histogram) (float64, error) {
	return scalarDistance(target, sim, func(h histogram.Histogram) float64 {
		mass := h.Mass()
		return float64(mass-h.Count(0)) / float64(mass)
	})
}

func scalarDistance(target, sim histogram.Histogram, statistic func(histogram.Histogram) float64) (float64, error) {
	if err := requireMass(target, sim); err != nil {
		return 0, err
	}
	return RelativeDifference(statistic(target), statistic(sim)), nil
}

// RelativeDifference is |t-s|/|t|, or |t-s| when t is zero.
func RelativeDifference(t, s float64) float64 {
	diff := math.Abs(t - s)
	if t == 0 {
		return diff
	}
	return diff / math.Abs(t)
}

// moments returns the count-weighted mean and population variance of the keys.
func moments(h histogram.Histogram) (mean, variance float64) {
	keys := h.Keys()
	x := make([]float64, len(keys))
	for i, k := range keys {
		x[i] = float64(k)
	}
	counts := h.Counts()
	w := make([]float64, len(counts))
	for i, c := range counts {
		w[i] = float64(c)
	}
	return stat.PopMeanVariance(x, w)
}
