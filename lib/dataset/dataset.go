// Package dataset loads labeled series in the UCR text format.
package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// UNLABELED is the label of series whose class is unknown.
const UNLABELED = "?"

// Labeled maps class labels to their series, in load order.
type Labeled map[string][][]float64

// NormalizeLabel turns numeric labels into integer strings, so "1", "1.0"
// and "1e0" name the same class. Other labels are kept as they are.
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == UNLABELED {
		return label
	}
	f, err := strconv.ParseFloat(label, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return label
	}
	return strconv.Itoa(int(f))
}

func compareLabels(a string, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}

// Labels returns the class labels, unlabeled excluded. Integer labels come
// first in numeric order, the rest follow in lexical order.
func (d Labeled) Labels() []string {
	ret := make([]string, 0, len(d))
	for label := range d {
		if label != UNLABELED {
			ret = append(ret, label)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return compareLabels(ret[i], ret[j]) })
	return ret
}

// AllLabels is Labels followed by UNLABELED when there are unlabeled series.
func (d Labeled) AllLabels() []string {
	ret := d.Labels()
	if len(d[UNLABELED]) > 0 {
		ret = append(ret, UNLABELED)
	}
	return ret
}

// Count is the number of series.
func (d Labeled) Count() int {
	n := 0
	for _, series := range d {
		n += len(series)
	}
	return n
}

// MinLength is the length of the shortest series, 0 for an empty set.
func (d Labeled) MinLength() int {
	ret := 0
	for _, series := range d {
		for _, s := range series {
			if ret == 0 || len(s) < ret {
				ret = len(s)
			}
		}
	}
	return ret
}

// Add appends a series under the normalized label.
func (d Labeled) Add(label string, series []float64) {
	label = NormalizeLabel(label)
	d[label] = append(d[label], series)
}
