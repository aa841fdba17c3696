package classifier

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/ensemble"
)

// GolearnForest adapts the golearn random forest of ID3 trees. golearn bags
// with the global math/rand source, so two runs on the same data may differ.
type GolearnForest struct {
	Trees int
	// 0 uses int(log2(features)) + 1.
	Features int

	model      *ensemble.RandomForest
	numClasses int
	width      int
}

func NewGolearnForest(trees int) *GolearnForest {
	return &GolearnForest{Trees: trees}
}

// GolearnForestFactory returns a Factory for golearn forests.
func GolearnForestFactory(trees int) Factory {
	return func() Classifier {
		return NewGolearnForest(trees)
	}
}

func className(c int) string {
	return strconv.Itoa(c)
}

// grid copies rows into golearn instances with one float attribute per
// feature and a categorical class attribute that knows every class, so
// training and prediction grids agree on attributes. Unlabeled rows get
// class 0, golearn never reads the class of a row it predicts.
func (g *GolearnForest) grid(rows [][]float64, classes []int) (*base.DenseInstances, error) {
	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, g.width)
	for j := range specs {
		specs[j] = inst.AddAttribute(base.NewFloatAttribute(fmt.Sprintf("f%d", j)))
	}
	class := base.NewCategoricalAttribute()
	class.SetName("class")
	for c := 0; c < g.numClasses; c++ {
		class.GetSysValFromString(className(c))
	}
	classSpec := inst.AddAttribute(class)
	if err := inst.AddClassAttribute(class); err != nil {
		return nil, err
	}
	if err := inst.Extend(len(rows)); err != nil {
		return nil, err
	}
	for i, row := range rows {
		for j, v := range row {
			inst.Set(specs[j], i, base.PackFloatToBytes(v))
		}
		c := 0
		if classes != nil && classes[i] != Unlabeled {
			c = classes[i]
		}
		inst.Set(classSpec, i, class.GetSysValFromString(className(c)))
	}
	return inst, nil
}

func (g *GolearnForest) Train(d *Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	labeled := d.Labeled()
	if len(labeled) == 0 {
		return ErrNoLabels
	}
	g.numClasses = d.NumClasses
	g.width = d.Width()
	train := d.Subset(labeled)
	inst, err := g.grid(train.Features, train.Classes)
	if err != nil {
		return err
	}

	features := g.Features
	if features <= 0 {
		features = int(math.Log2(float64(g.width))) + 1
	}
	if features > g.width {
		features = g.width
	}
	trees := g.Trees
	if trees <= 0 {
		trees = 1
	}
	g.model = ensemble.NewRandomForest(trees, features)
	return g.model.Fit(inst)
}

// PredictAll predicts all rows through one golearn grid. The distribution
// is the vote of the forest, one-hot on the predicted class.
func (g *GolearnForest) PredictAll(rows [][]float64) ([]int, [][]float64, error) {
	if g.model == nil {
		return nil, nil, fmt.Errorf("classifier: golearn forest is not trained")
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	inst, err := g.grid(rows, nil)
	if err != nil {
		return nil, nil, err
	}
	predicted, err := g.model.Predict(inst)
	if err != nil {
		return nil, nil, err
	}
	classes := make([]int, len(rows))
	distributions := make([][]float64, len(rows))
	for i := range rows {
		c, err := strconv.Atoi(base.GetClass(predicted, i))
		if err != nil || c < 0 || c >= g.numClasses {
			return nil, nil, fmt.Errorf("classifier: golearn predicted class %q for row %d", base.GetClass(predicted, i), i)
		}
		classes[i] = c
		distributions[i] = make([]float64, g.numClasses)
		distributions[i][c] = 1
	}
	return classes, distributions, nil
}

func (g *GolearnForest) Predict(row []float64) (int, []float64) {
	classes, distributions, err := g.PredictAll([][]float64{row})
	if err != nil {
		return 0, make([]float64, g.numClasses)
	}
	return classes[0], distributions[0]
}
