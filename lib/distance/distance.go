// Package distance measures how close a pattern comes to a longer series.
package distance

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrLengthMismatch = errors.New("distance: arguments of different length")
)

// Func is the distance between a series and a (shorter) pattern.
type Func func(ts []float64, p []float64) float64

func EuclideanDistance(x []float64, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0.0, ErrLengthMismatch
	}
	return floats.Distance(x, y, 2), nil
}

// BestMatchEuclidean slides p along ts and returns the smallest Euclidean
// distance over all alignments, divided by len(p). It is +Inf when p is
// longer than ts. Alignments are abandoned as soon as their partial sum
// exceeds the best distance found so far.
func BestMatchEuclidean(ts []float64, p []float64) float64 {
	if len(p) == 0 || len(ts) < len(p) {
		return math.Inf(1)
	}
	n := float64(len(p))
	best := math.Inf(1)
	for start := 0; start <= len(ts)-len(p); start++ {
		best = euclideanNorm(ts[start:start+len(p)], p, best, n)
	}
	return best
}

func euclideanNorm(window []float64, p []float64, best float64, n float64) float64 {
	bound := (best * n) * (best * n)
	sum := 0.0
	for i, v := range p {
		diff := window[i] - v
		sum += diff * diff
		if sum > bound {
			return best
		}
	}
	return math.Sqrt(sum) / n
}

// BestMatchDTW is BestMatchEuclidean with a banded dynamic time warping
// distance per alignment. windowPercent sets the band half width as a
// percentage of len(p).
func BestMatchDTW(ts []float64, p []float64, windowPercent int) float64 {
	if len(p) == 0 || len(ts) < len(p) {
		return math.Inf(1)
	}
	band := int(math.Round(float64(windowPercent) / 100.0 * float64(len(p))))
	best := math.Inf(1)
	prev := make([]float64, len(p)+1)
	curr := make([]float64, len(p)+1)
	for start := 0; start <= len(ts)-len(p); start++ {
		best = dtwNorm(ts[start:start+len(p)], p, band, best, prev, curr)
	}
	return best
}

// DTWWith returns a Func that uses BestMatchDTW with a fixed band.
func DTWWith(windowPercent int) Func {
	return func(ts []float64, p []float64) float64 {
		return BestMatchDTW(ts, p, windowPercent)
	}
}

// dtwNorm fills the banded cost matrix two rows at a time with squared
// point costs. A row whose cheapest cell already exceeds the bound cannot
// lead to a better path, so the alignment is abandoned there.
func dtwNorm(window []float64, p []float64, band int, best float64, prev []float64, curr []float64) float64 {
	n := len(p)
	bound := (best * float64(n)) * (best * float64(n))
	inf := math.Inf(1)
	for j := range prev {
		prev[j] = inf
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		for j := range curr {
			curr[j] = inf
		}
		jMin := i - band
		if jMin < 1 {
			jMin = 1
		}
		jMax := i + band
		if jMax > n {
			jMax = n
		}
		rowMin := inf
		for j := jMin; j <= jMax; j++ {
			diff := p[i-1] - window[j-1]
			curr[j] = diff*diff + math.Min(prev[j-1], math.Min(prev[j], curr[j-1]))
			if curr[j] < rowMin {
				rowMin = curr[j]
			}
		}
		if rowMin > bound {
			return best
		}
		prev, curr = curr, prev
	}
	return math.Sqrt(prev[n]) / float64(n)
}
