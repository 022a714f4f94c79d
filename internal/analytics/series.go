package analytics

import (
	"math"
	"sort"
)

// alignPair drops index positions where either value is NaN and truncates
// both slices to the shorter length. Returned slices are fresh copies.
func alignPair(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	outA := make([]float64, 0, n)
	outB := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		outA = append(outA, a[i])
		outB = append(outB, b[i])
	}
	return outA, outB
}

// dropNaN returns a copy of values with NaN entries removed.
func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// nanSlice returns a slice of n NaN values.
func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// mean ignores nothing: callers pass clean data.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation (n-1 denominator).
func stdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	m := mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// pctChange returns period-over-period returns with the pandas convention:
// element i is (v[i]-v[i-1])/v[i-1], element 0 is NaN.
func pctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) > 0 {
		out[0] = math.NaN()
	}
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if math.IsNaN(prev) || math.IsNaN(values[i]) || prev == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (values[i] - prev) / prev
	}
	return out
}

// rollingApply evaluates fn over the trailing window at each index, passing
// only the non-NaN values inside the window. Indices with fewer than
// minPeriods valid values produce NaN.
func rollingApply(values []float64, window, minPeriods int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(values))
	buf := make([]float64, 0, window)
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		buf = buf[:0]
		for j := start; j <= i; j++ {
			if !math.IsNaN(values[j]) {
				buf = append(buf, values[j])
			}
		}
		if len(buf) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(buf)
	}
	return out
}

// Percentile computes the q-th percentile (0..100) with linear interpolation
// between closest ranks, matching numpy's default behavior.
func Percentile(values []float64, q float64) float64 {
	clean := dropNaN(values)
	if len(clean) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// PercentileRank returns the average-rank percentile (0..100) of target
// within values, the way pandas rank(pct=true) scores the last element.
func PercentileRank(values []float64, target float64) float64 {
	clean := dropNaN(values)
	if len(clean) == 0 || math.IsNaN(target) {
		return math.NaN()
	}
	below := 0
	equal := 0
	for _, v := range clean {
		if v < target {
			below++
		} else if v == target {
			equal++
		}
	}
	// average rank of ties, scaled to percent
	rank := float64(below) + (float64(equal)+1)/2
	return rank / float64(len(clean)) * 100
}

// Last returns the final value of the series as-is. A NaN tail is the
// caller's signal that the statistic is undefined this period; substituting
// an older value would hide that.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
