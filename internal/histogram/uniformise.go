package histogram

import "sort"

// Uniformise aligns histograms onto one shared, sorted key set: the union of
// every input's support. Keys an input lacks are added with a zero count;
// present keys keep their count. Zero-count keys outside the union are
// dropped. The output has one histogram per input, in order.
func Uniformise(hs ...Histogram) []Histogram {
	union := make(map[int]struct{})
	for _, h := range hs {
		for _, b := range h.bins {
			if b.Count > 0 {
				union[b.Key] = struct{}{}
			}
		}
	}
	keys := make([]int, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]Histogram, len(hs))
	for i, h := range hs {
		bins := make([]Bin, len(keys))
		j := 0
		for n, k := range keys {
			bins[n] = Bin{Key: k}
			for j < len(h.bins) && h.bins[j].Key < k {
				j++
			}
			if j < len(h.bins) && h.bins[j].Key == k {
				bins[n].Count = h.bins[j].Count
				j++
			}
		}
		out[i] = Histogram{bins: bins}
	}
	return out
}

// SameKeys reports whether a and b store an identical ordered key sequence.
func SameKeys(a, b Histogram) bool {
	if len(a.bins) != len(b.bins) {
		return false
	}
	for i := range a.bins {
		if a.bins[i].Key != b.bins[i].Key {
			return false
		}
	}
	return true
}
