package classifier

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Evaluation accumulates a confusion matrix, rows are actual classes and
// columns predicted ones.
type Evaluation struct {
	confusion *mat.Dense
	total     float64
	correct   float64
}

func NewEvaluation(numClasses int) *Evaluation {
	return &Evaluation{confusion: mat.NewDense(numClasses, numClasses, nil)}
}

func (e *Evaluation) Add(actual int, predicted int) {
	e.confusion.Set(actual, predicted, e.confusion.At(actual, predicted)+1)
	e.total++
	if actual == predicted {
		e.correct++
	}
}

func (e *Evaluation) Total() int {
	return int(e.total)
}

// ErrorRate is the share of misclassified rows, 1 when nothing was evaluated.
func (e *Evaluation) ErrorRate() float64 {
	if e.total == 0 {
		return 1.0
	}
	return (e.total - e.correct) / e.total
}

func (e *Evaluation) NumClasses() int {
	r, _ := e.confusion.Dims()
	return r
}

// FMeasure of class c; 0 when precision or recall is undefined.
func (e *Evaluation) FMeasure(c int) float64 {
	tp := e.confusion.At(c, c)
	predicted := mat.Sum(e.confusion.ColView(c))
	actual := mat.Sum(e.confusion.RowView(c))
	if predicted == 0 || actual == 0 || tp == 0 {
		return 0
	}
	precision := tp / predicted
	recall := tp / actual
	return 2 * precision * recall / (precision + recall)
}

// PerClassError is 1 - FMeasure for every class.
func (e *Evaluation) PerClassError() []float64 {
	ret := make([]float64, e.NumClasses())
	for c := range ret {
		ret[c] = 1 - e.FMeasure(c)
	}
	return ret
}

// WeightedFMeasure averages the per class F-measures weighted by class size.
func (e *Evaluation) WeightedFMeasure() float64 {
	if e.total == 0 {
		return 0
	}
	sum := 0.0
	for c := 0; c < e.NumClasses(); c++ {
		sum += mat.Sum(e.confusion.RowView(c)) * e.FMeasure(c)
	}
	return sum / e.total
}

func (e *Evaluation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "rows=%d error=%.4f weightedF=%.4f\n", e.Total(), e.ErrorRate(), e.WeightedFMeasure())
	n := e.NumClasses()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			fmt.Fprintf(&sb, "%6d", int(e.confusion.At(r, c)))
		}
		fmt.Fprintf(&sb, "  | class %d F=%.4f\n", r, e.FMeasure(r))
	}
	return sb.String()
}
