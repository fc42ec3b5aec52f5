package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"ecdnaabc/internal/histogram"
)

// Wasserstein is the first Wasserstein (earth mover's) distance between the
// normalised distributions, integrated over the gaps between shared keys.
type Wasserstein struct{}

func (Wasserstein) Name() string               { return "wasserstein" }
func (Wasserstein) RequiresEqualSupport() bool { return true }

func (Wasserstein) Distance(target, sim histogram.Histogram) (float64, error) {
	if err := requireSameKeys(target, sim); err != nil {
		return 0, err
	}
	if err := requireMass(target, sim); err != nil {
		return 0, err
	}
	keys := target.Keys()
	wt, ws := target.Weights(), sim.Weights()
	var cdfT, cdfS, total float64
	for i := 0; i < len(keys)-1; i++ {
		cdfT += wt[i]
		cdfS += ws[i]
		total += math.Abs(cdfT-cdfS) * float64(keys[i+1]-keys[i])
	}
	return total, nil
}

// Hellinger is the Hellinger distance between the normalised count vectors.
type Hellinger struct{}

func (Hellinger) Name() string               { return "hellinger" }
func (Hellinger) RequiresEqualSupport() bool { return true }

func (Hellinger) Distance(target, sim histogram.Histogram) (float64, error) {
	if err := requireSameKeys(target, sim); err != nil {
		return 0, err
	}
	if err := requireMass(target, sim); err != nil {
		return 0, err
	}
	// stat.Hellinger goes NaN when rounding pushes the coefficient above one.
	bc := math.Exp(-stat.Bhattacharyya(target.Weights(), sim.Weights()))
	return math.Sqrt(math.Max(0, 1-bc)), nil
}

// JensenShannon is the Jensen-Shannon divergence, in nats.
type JensenShannon struct{}

func (JensenShannon) Name() string               { return "jensen_shannon" }
func (JensenShannon) RequiresEqualSupport() bool { return true }

func (JensenShannon) Distance(target, sim histogram.Histogram) (float64, error) {
	if err := requireSameKeys(target, sim); err != nil {
		return 0, err
	}
	if err := requireMass(target, sim); err != nil {
		return 0, err
	}
	return math.Max(0, stat.JensenShannon(target.Weights(), sim.Weights())), nil
}

// KolmogorovSmirnov is the two-sample KS statistic between the copy-number
// distributions. Supports may differ.
type KolmogorovSmirnov struct{}

func (KolmogorovSmirnov) Name() string               { return "kolmogorov_smirnov" }
func (KolmogorovSmirnov) RequiresEqualSupport() bool { return false }

func (KolmogorovSmirnov) Distance(target, sim histogram.Histogram) (float64, error) {
	if err := requireMass(target, sim); err != nil {
		return 0, err
	}
	xt, wt := weightedSupport(target)
	xs, ws := weightedSupport(sim)
	return stat.KolmogorovSmirnov(xt, wt, xs, ws), nil
}

// weightedSupport returns the non-empty keys in ascending order with their
// counts as weights.
func weightedSupport(h histogram.Histogram) (x, w []float64) {
	for _, b := range h.Bins() {
		if b.Count == 0 {
			continue
		}
		x = append(x, float64(b.Key))
		w = append(w, float64(b.Count))
	}
	return x, w
}
