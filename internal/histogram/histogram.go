// Package histogram holds the ecDNA copy-number histograms produced by the
// simulator: counts of cells keyed by the number of ecDNA copies per cell.
package histogram

import (
	"fmt"
	"sort"
)

// Bin is one histogram entry: Count cells carry Key ecDNA copies.
type Bin struct {
	Key   int
	Count int
}

// Histogram is an immutable, key-sorted sequence of bins with unique,
// non-negative keys and non-negative counts. Bins with a zero count may be
// present after uniformisation.
type Histogram struct {
	bins []Bin
}

// New builds a histogram from a key→count mapping.
func New(counts map[int]int) (Histogram, error) {
	bins := make([]Bin, 0, len(counts))
	for k, c := range counts {
		bins = append(bins, Bin{Key: k, Count: c})
	}
	return FromBins(bins)
}

// MustNew is New for literals in tests and fixtures; it panics on invalid input.
func MustNew(counts map[int]int) Histogram {
	h, err := New(counts)
	if err != nil {
		panic(err)
	}
	return h
}

// FromBins builds a histogram from bins in any order. The input slice is not
// retained.
func FromBins(bins []Bin) (Histogram, error) {
	sorted := append([]Bin(nil), bins...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	for i, b := range sorted {
		if b.Key < 0 {
			return Histogram{}, fmt.Errorf("negative histogram key %d", b.Key)
		}
		if b.Count < 0 {
			return Histogram{}, fmt.Errorf("negative count %d for key %d", b.Count, b.Key)
		}
		if i > 0 && sorted[i-1].Key == b.Key {
			return Histogram{}, fmt.Errorf("duplicate histogram key %d", b.Key)
		}
	}
	return Histogram{bins: sorted}, nil
}

// Len is the number of stored keys, zero-count keys included.
func (h Histogram) Len() int { return len(h.bins) }

// Bins returns a copy of the bins in key order.
func (h Histogram) Bins() []Bin {
	return append([]Bin(nil), h.bins...)
}

// Keys returns the stored keys in ascending order.
func (h Histogram) Keys() []int {
	keys := make([]int, len(h.bins))
	for i, b := range h.bins {
		keys[i] = b.Key
	}
	return keys
}

// Counts returns the counts aligned with Keys.
func (h Histogram) Counts() []int {
	counts := make([]int, len(h.bins))
	for i, b := range h.bins {
		counts[i] = b.Count
	}
	return counts
}

// Count returns the count stored at key, 0 when absent.
func (h Histogram) Count(key int) int {
	i := sort.Search(len(h.bins), func(i int) bool { return h.bins[i].Key >= key })
	if i < len(h.bins) && h.bins[i].Key == key {
		return h.bins[i].Count
	}
	return 0
}

// Mass is the total number of cells.
func (h Histogram) Mass() int {
	total := 0
	for _, b := range h.bins {
		total += b.Count
	}
	return total
}

// Support returns the keys with a non-zero count.
func (h Histogram) Support() []int {
	keys := make([]int, 0, len(h.bins))
	for _, b := range h.bins {
		if b.Count > 0 {
			keys = append(keys, b.Key)
		}
	}
	return keys
}

// Weights returns Counts normalised to sum to one. It returns nil for an empty
// histogram.
func (h Histogram) Weights() []float64 {
	mass := h.Mass()
	if mass == 0 {
		return nil
	}
	w := make([]float64, len(h.bins))
	for i, b := range h.bins {
		w[i] = float64(b.Count) / float64(mass)
	}
	return w
}

// Map returns the histogram as a key→count mapping.
func (h Histogram) Map() map[int]int {
	m := make(map[int]int, len(h.bins))
	for _, b := range h.bins {
		m[b.Key] = b.Count
	}
	return m
}

// Equal reports whether both histograms store the same keys with the same
// counts.
func (h Histogram) Equal(o Histogram) bool {
	if len(h.bins) != len(o.bins) {
		return false
	}
	for i := range h.bins {
		if h.bins[i] != o.bins[i] {
			return false
		}
	}
	return true
}

// ToArray materialises the dense sample array: every key repeated as many
// times as its count, in key order.
func ToArray(h Histogram) []float64 {
	out := make([]float64, 0, h.Mass())
	for _, b := range h.bins {
		for i := 0; i < b.Count; i++ {
			out = append(out, float64(b.Key))
		}
	}
	return out
}
