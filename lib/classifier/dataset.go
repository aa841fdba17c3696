// Package classifier trains and evaluates classifiers over the distance
// features of series.
package classifier

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDataset  = errors.New("classifier: empty dataset")
	ErrNoLabels      = errors.New("classifier: no labeled rows")
	ErrRaggedDataset = errors.New("classifier: rows of different width")
)

// Unlabeled marks a row without a known class.
const Unlabeled = -1

// A Dataset holds one feature row per series and its 0-based class.
type Dataset struct {
	Features   [][]float64
	Classes    []int
	NumClasses int
}

func (d *Dataset) Len() int {
	return len(d.Features)
}

func (d *Dataset) Width() int {
	if len(d.Features) == 0 {
		return 0
	}
	return len(d.Features[0])
}

func (d *Dataset) Validate() error {
	if d == nil || len(d.Features) == 0 {
		return ErrEmptyDataset
	}
	if len(d.Classes) != len(d.Features) {
		return fmt.Errorf("%w: %d rows but %d classes", ErrRaggedDataset, len(d.Features), len(d.Classes))
	}
	w := len(d.Features[0])
	for i, row := range d.Features {
		if len(row) != w {
			return fmt.Errorf("%w: row %d has %d features, expected %d", ErrRaggedDataset, i, len(row), w)
		}
	}
	for i, c := range d.Classes {
		if c >= d.NumClasses || c < Unlabeled {
			return fmt.Errorf("classifier: row %d has class %d of %d", i, c, d.NumClasses)
		}
	}
	return nil
}

// Labeled returns the indexes of rows with a known class.
func (d *Dataset) Labeled() []int {
	ret := make([]int, 0, len(d.Classes))
	for i, c := range d.Classes {
		if c != Unlabeled {
			ret = append(ret, i)
		}
	}
	return ret
}

// Subset shares rows with d.
func (d *Dataset) Subset(rows []int) *Dataset {
	ret := &Dataset{
		Features:   make([][]float64, len(rows)),
		Classes:    make([]int, len(rows)),
		NumClasses: d.NumClasses,
	}
	for i, r := range rows {
		ret.Features[i] = d.Features[r]
		ret.Classes[i] = d.Classes[r]
	}
	return ret
}

// Columns copies the given feature columns into a new dataset.
func (d *Dataset) Columns(cols []int) *Dataset {
	ret := &Dataset{
		Features:   make([][]float64, len(d.Features)),
		Classes:    append([]int(nil), d.Classes...),
		NumClasses: d.NumClasses,
	}
	for i, row := range d.Features {
		selected := make([]float64, len(cols))
		for j, c := range cols {
			selected[j] = row[c]
		}
		ret.Features[i] = selected
	}
	return ret
}

// Column copies feature c of every row.
func (d *Dataset) Column(c int) []float64 {
	ret := make([]float64, len(d.Features))
	for i, row := range d.Features {
		ret[i] = row[c]
	}
	return ret
}
