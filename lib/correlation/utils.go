package correlation

import (
	"fmt"
	"math"
)

// This is the formula for incremental pearson. Constant inputs have no
// defined correlation and yield 0.
func PearsonCorrelation(x []float64, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0.0, fmt.Errorf("correlation needs arguments of the same length")
	}
	var s1, s2, s3, s4, s5 float64
	for i, xi := range x {
		s1 += xi
		s2 += xi * xi
		s3 += y[i]
		s4 += y[i] * y[i]
		s5 += xi * y[i]
	}
	n := float64(len(x))

	denominator := (n*s2 - s1*s1) * (n*s4 - s3*s3)
	if denominator <= 0 {
		return 0.0, nil
	}
	return (n*s5 - (s1 * s3)) / math.Sqrt(denominator), nil
}

// ClassCorrelation correlates a numeric attribute with a nominal class: the
// absolute correlation with each class indicator, weighted by class prior.
// Rows with a negative class are ignored.
func ClassCorrelation(x []float64, classes []int, numClasses int) (float64, error) {
	if len(x) != len(classes) {
		return 0.0, fmt.Errorf("correlation needs arguments of the same length")
	}
	var values []float64
	var labels []int
	for i, c := range classes {
		if c >= 0 {
			values = append(values, x[i])
			labels = append(labels, c)
		}
	}
	if len(values) == 0 {
		return 0.0, nil
	}
	indicator := make([]float64, len(values))
	priors := make([]float64, numClasses)
	for _, c := range labels {
		priors[c]++
	}
	ret := 0.0
	for c := 0; c < numClasses; c++ {
		if priors[c] == 0 {
			continue
		}
		for i, l := range labels {
			indicator[i] = 0
			if l == c {
				indicator[i] = 1
			}
		}
		r, err := PearsonCorrelation(values, indicator)
		if err != nil {
			return 0.0, err
		}
		ret += priors[c] / float64(len(values)) * math.Abs(r)
	}
	return ret, nil
}
