// Package realisation pairs each simulated histogram with the parameters that
// generated it and loads batches of them from a simulation output tree.
package realisation

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"ecdnaabc/internal/histogram"
	"ecdnaabc/internal/model"
)

// Materializer turns a histogram into its dense sample array.
type Materializer func(histogram.Histogram) []float64

// Option customises a Realisation.
type Option func(*Realisation)

// WithMaterializer replaces histogram.ToArray as the dense-array builder.
func WithMaterializer(fn Materializer) Option {
	return func(r *Realisation) {
		if fn != nil {
			r.materialize = fn
		}
	}
}

// Realisation is one simulated outcome. Its histogram and parameters never
// change, so derived statistics are computed at most once and kept.
type Realisation struct {
	hist        histogram.Histogram
	params      model.ParameterSet
	materialize Materializer

	once     sync.Once
	dense    []float64
	mean     float64
	variance float64
	entropy  float64
}

// New bundles a histogram with its parameter set.
func New(h histogram.Histogram, params model.ParameterSet, opts ...Option) *Realisation {
	r := &Realisation{
		hist:        h,
		params:      params,
		materialize: histogram.ToArray,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Realisation) Histogram() histogram.Histogram { return r.hist }

func (r *Realisation) Parameters() model.ParameterSet { return r.params }

// Mean is the average copy number per cell.
func (r *Realisation) Mean() (float64, error) {
	if err := r.compute(); err != nil {
		return 0, err
	}
	return r.mean, nil
}

// Variance is the population variance of the copy number per cell.
func (r *Realisation) Variance() (float64, error) {
	if err := r.compute(); err != nil {
		return 0, err
	}
	return r.variance, nil
}

// Entropy is the Shannon entropy, in nats, of the copy-number distribution.
func (r *Realisation) Entropy() (float64, error) {
	if err := r.compute(); err != nil {
		return 0, err
	}
	return r.entropy, nil
}

// Frequency is the fraction of cells carrying at least one ecDNA copy.
func (r *Realisation) Frequency() (float64, error) {
	mass := r.hist.Mass()
	if mass == 0 {
		return 0, r.emptyErr()
	}
	return float64(mass-r.hist.Count(0)) / float64(mass), nil
}

func (r *Realisation) compute() error {
	if r.hist.Mass() == 0 {
		return r.emptyErr()
	}
	r.once.Do(func() {
		r.dense = r.materialize(r.hist)
		r.mean, r.variance = stat.PopMeanVariance(r.dense, nil)
		r.entropy = DenseEntropy(r.dense)
	})
	return nil
}

func (r *Realisation) emptyErr() error {
	return &model.DecodeError{Path: r.params.SourcePath, Reason: "empty histogram"}
}

// DenseEntropy is the Shannon entropy of the value frequencies in a dense
// sample array. It returns NaN for an empty array.
func DenseEntropy(dense []float64) float64 {
	if len(dense) == 0 {
		return math.NaN()
	}
	freq := make(map[float64]int)
	order := make([]float64, 0)
	for _, v := range dense {
		if _, seen := freq[v]; !seen {
			order = append(order, v)
		}
		freq[v]++
	}
	p := make([]float64, len(order))
	for i, v := range order {
		p[i] = float64(freq[v]) / float64(len(dense))
	}
	return stat.Entropy(p)
}
