package report

import (
	"math"
	"sort"
)

// Summary describes a sample of merits.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Summarize computes the summary of x.
func Summarize(x []float64) Summary {
	s := newSample(x)
	n := len(s)
	if n == 0 {
		return Summary{}
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	mean := sum / float64(n)
	var ss float64
	for _, v := range s {
		ss += (v - mean) * (v - mean)
	}
	sm := Summary{
		Count:  n,
		Mean:   mean,
		Min:    s[0],
		Q1:     s.quantile(0.25),
		Median: s.quantile(0.5),
		Q3:     s.quantile(0.75),
		Max:    s[n-1],
	}
	if n > 1 {
		sm.Std = math.Sqrt(ss / float64(n-1))
	}
	return sm
}

// sample is a sorted copy of merits.
type sample []float64

func newSample(x []float64) sample {
	s := append(sample(nil), x...)
	sort.Float64s(s)
	return s
}

// quantile interpolates linearly between the order statistics around
// p(n-1). s must not be empty.
func (s sample) quantile(p float64) float64 {
	last := len(s) - 1
	i, frac := math.Modf(math.Max(0, math.Min(1, p)) * float64(last))
	lo := int(i)
	if lo >= last {
		return s[last]
	}
	return s[lo] + frac*(s[lo+1]-s[lo])
}

const (
	minBins = 10
	maxBins = 200
)

// binCount follows the Freedman-Diaconis rule, bin width 2 IQR n^(-1/3),
// within [minBins, maxBins] and never above the sample size.
func (s sample) binCount() int {
	n := len(s)
	if n < 2 {
		return 1
	}
	k := maxBins
	if w := 2 * (s.quantile(0.75) - s.quantile(0.25)) / math.Cbrt(float64(n)); w > 0 {
		k = int(math.Ceil((s[n-1] - s[0]) / w))
	}
	k = min(max(k, minBins), maxBins)
	return min(k, n)
}

// bin is the half-open merit range [Lo, Hi); the last bin also holds the
// largest merit.
type bin struct {
	Lo, Hi float64
	Count  int
}

// bins splits [min, max] of s into n bins of equal width.
func (s sample) bins(n int) []bin {
	if len(s) == 0 {
		return []bin{{Lo: 0, Hi: 1}}
	}
	n = max(n, 1)
	lo, hi := s[0], s[len(s)-1]
	width := (hi - lo) / float64(n)
	if width <= 0 {
		width = 1
	}
	out := make([]bin, n)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	// s is sorted: the bin index only moves forward.
	b := 0
	for _, v := range s {
		for b < n-1 && v >= out[b].Hi {
			b++
		}
		out[b].Count++
	}
	return out
}
