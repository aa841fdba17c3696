// Package patterns mines representative subsequences from the grammar rules
// of class-concatenated series.
package patterns

import (
	"fmt"
	"sort"
)

// A TSPattern is one representative subsequence of a class.
type TSPattern struct {
	Label     string    `json:"label"`
	Values    []float64 `json:"values"`
	Frequency int       `json:"frequency"`
	// Offset of the pattern in the concatenated class series.
	Start int `json:"start"`
	// 1-based index of the training series the pattern was cut from.
	FromSeries int `json:"fromSeries"`
}

func (p TSPattern) String() string {
	return fmt.Sprintf("%s@%d[len=%d,freq=%d]", p.Label, p.Start, len(p.Values), p.Frequency)
}

// Concatenation is the series of one class laid end to end. StartingPositions
// holds the offsets at which the second, third, ... series begin.
type Concatenation struct {
	Label             string
	Series            []float64
	StartingPositions []int
}

// Concatenate joins series in order.
func Concatenate(label string, series [][]float64) Concatenation {
	total := 0
	for _, s := range series {
		total += len(s)
	}
	ret := Concatenation{Label: label, Series: make([]float64, 0, total)}
	for i, s := range series {
		if i > 0 {
			ret.StartingPositions = append(ret.StartingPositions, len(ret.Series))
		}
		ret.Series = append(ret.Series, s...)
	}
	return ret
}

// SeriesCount is the number of series that were concatenated.
func (c Concatenation) SeriesCount() int {
	return len(c.StartingPositions) + 1
}

// FindIdx returns the 1-based index of the series that contains position,
// given the sorted starting positions of the second and later series.
// A position equal to a starting position counts as the earlier series.
func FindIdx(startingPositions []int, position int) int {
	idx := 1
	for _, sp := range startingPositions {
		if sp >= position {
			break
		}
		idx++
	}
	return idx
}

// SortedLabels returns the keys of m in ascending order.
func SortedLabels[T any](m map[string]T) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
