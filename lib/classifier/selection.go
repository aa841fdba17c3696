package classifier

import (
	"math"
	"sort"

	"github.com/shlpu/TSAT/lib/correlation"
)

// cfsMerit scores a feature subset by correlation based feature selection:
// high average feature-class correlation, low average feature-feature
// correlation.
func cfsMerit(subset []int, classCorr []float64, featureCorr [][]float64) float64 {
	k := float64(len(subset))
	if k == 0 {
		return 0
	}
	rcf := 0.0
	for _, f := range subset {
		rcf += classCorr[f]
	}
	rff := 0.0
	for i, a := range subset {
		for _, b := range subset[i+1:] {
			rff += featureCorr[a][b]
		}
	}
	denominator := k + 2*rff
	if denominator <= 0 {
		return 0
	}
	return rcf / math.Sqrt(denominator)
}

// SelectFeatures runs a backward greedy search over feature subsets, removing
// the feature whose removal keeps the merit highest as long as the merit does
// not drop. It returns the kept feature indexes in ascending order; at least
// one feature is always kept.
func SelectFeatures(d *Dataset) ([]int, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	w := d.Width()
	columns := make([][]float64, w)
	classCorr := make([]float64, w)
	for f := 0; f < w; f++ {
		columns[f] = d.Column(f)
		r, err := correlation.ClassCorrelation(columns[f], d.Classes, d.NumClasses)
		if err != nil {
			return nil, err
		}
		classCorr[f] = r
	}
	featureCorr := make([][]float64, w)
	for a := range featureCorr {
		featureCorr[a] = make([]float64, w)
	}
	for a := 0; a < w; a++ {
		featureCorr[a][a] = 1
		for b := a + 1; b < w; b++ {
			r, err := correlation.PearsonCorrelation(columns[a], columns[b])
			if err != nil {
				return nil, err
			}
			featureCorr[a][b] = math.Abs(r)
			featureCorr[b][a] = featureCorr[a][b]
		}
	}

	selected := make([]int, w)
	for f := range selected {
		selected[f] = f
	}
	merit := cfsMerit(selected, classCorr, featureCorr)
	for len(selected) > 1 {
		bestMerit := math.Inf(-1)
		bestIdx := -1
		candidate := make([]int, 0, len(selected)-1)
		for i := range selected {
			candidate = candidate[:0]
			candidate = append(candidate, selected[:i]...)
			candidate = append(candidate, selected[i+1:]...)
			if m := cfsMerit(candidate, classCorr, featureCorr); m > bestMerit {
				bestMerit, bestIdx = m, i
			}
		}
		if bestMerit < merit {
			break
		}
		merit = bestMerit
		selected = append(selected[:bestIdx], selected[bestIdx+1:]...)
	}
	sort.Ints(selected)
	return selected, nil
}
