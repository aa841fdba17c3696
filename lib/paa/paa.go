package paa

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// The default threshold below which a window counts as flat.
const NORMALIZATION_THRESHOLD = 0.005

func mean(slice []float64) float64 {
	return floats.Sum(slice) / float64(len(slice))
}

// NormalizeSlice z-normalizes slice in place. A slice whose standard deviation
// is below threshold is set to all zeroes and reported as constant.
func NormalizeSlice(slice []float64, threshold float64) bool {
	length := len(slice)
	if length == 0 {
		return true
	}
	avg, sd := stat.MeanStdDev(slice, nil)
	if length == 1 || math.IsNaN(sd) || sd < threshold {
		for i := 0; i < length; i++ {
			slice[i] = 0.0
		}
		return true
	}
	for i := 0; i < length; i++ {
		slice[i] = (slice[i] - avg) / sd
	}
	return false
}

// Normalized returns a z-normalized copy of slice.
func Normalized(slice []float64, threshold float64) []float64 {
	ret := make([]float64, len(slice))
	copy(ret, slice)
	NormalizeSlice(ret, threshold)
	return ret
}

// Reduce slice to targetColumnCount columns by dividing it into
// equi-length segments and using mean values. When the length is not a
// multiple of targetColumnCount, values on a segment border contribute
// to both neighbours with fractional weight.
func PAA(slice []float64, targetColumnCount int) ([]float64, error) {
	length := len(slice)
	if targetColumnCount < 1 || length < targetColumnCount {
		return nil, fmt.Errorf("cannot reduce %d values to %d columns", length, targetColumnCount)
	}
	ret := make([]float64, targetColumnCount)
	if length == targetColumnCount {
		copy(ret, slice)
		return ret, nil
	}
	if length%targetColumnCount == 0 {
		windowSize := length / targetColumnCount
		for i := 0; i < targetColumnCount; i++ {
			ret[i] = mean(slice[(i * windowSize):((i + 1) * windowSize)])
		}
		return ret, nil
	}

	pointsPerSegment := float64(length) / float64(targetColumnCount)
	for i := 0; i < targetColumnCount; i++ {
		segStart := float64(i) * pointsPerSegment
		segEnd := float64(i+1) * pointsPerSegment
		fullStart := int(math.Floor(segStart))
		fullEnd := int(math.Ceil(segEnd))
		if fullEnd > length {
			fullEnd = length
		}
		fractionStart := math.Ceil(segStart) - segStart
		fractionEnd := segEnd - math.Floor(segEnd)
		sum := 0.0
		for j := fullStart; j < fullEnd; j++ {
			weight := 1.0
			if j == fullStart && fractionStart > 0 {
				weight = fractionStart
			}
			if j == fullEnd-1 && fractionEnd > 0 {
				weight = fractionEnd
			}
			sum += slice[j] * weight
		}
		ret[i] = sum / pointsPerSegment
	}
	return ret, nil
}
