package classifier

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluation(t *testing.T) {
	e := NewEvaluation(2)
	assert.Equal(t, 1.0, e.ErrorRate())

	e.Add(0, 0)
	e.Add(0, 0)
	e.Add(0, 1)
	e.Add(1, 1)
	assert.Equal(t, 4, e.Total())
	assert.InDelta(t, 0.25, e.ErrorRate(), 1e-12)
	// class 0: precision 1, recall 2/3
	assert.InDelta(t, 0.8, e.FMeasure(0), 1e-12)
	// class 1: precision 1/2, recall 1
	assert.InDelta(t, 2.0/3.0, e.FMeasure(1), 1e-12)
	perClass := e.PerClassError()
	assert.InDelta(t, 0.2, perClass[0], 1e-12)
	assert.InDelta(t, 1.0/3.0, perClass[1], 1e-12)
	assert.InDelta(t, (3*0.8+2.0/3.0)/4, e.WeightedFMeasure(), 1e-12)
	assert.Contains(t, e.String(), "error=0.2500")

	none := NewEvaluation(2)
	none.Add(0, 1)
	assert.Equal(t, 0.0, none.FMeasure(0))
	assert.Equal(t, 0.0, none.FMeasure(1))
}

func separable(rows int, seed int64) *Dataset {
	rnd := rand.New(rand.NewSource(seed))
	d := &Dataset{NumClasses: 2}
	for i := 0; i < rows; i++ {
		c := i % 2
		base := float64(10 * c)
		d.Features = append(d.Features, []float64{base + rnd.Float64(), rnd.Float64(), -base + rnd.Float64()})
		d.Classes = append(d.Classes, c)
	}
	return d
}

func TestDatasetValidate(t *testing.T) {
	assert.ErrorIs(t, (&Dataset{}).Validate(), ErrEmptyDataset)
	d := &Dataset{Features: [][]float64{{1, 2}, {1}}, Classes: []int{0, 1}, NumClasses: 2}
	assert.ErrorIs(t, d.Validate(), ErrRaggedDataset)
	d = &Dataset{Features: [][]float64{{1}, {2}}, Classes: []int{0, 2}, NumClasses: 2}
	assert.Error(t, d.Validate())

	d = separable(6, 1)
	assert.Equal(t, []int{0, 2, 4}, d.Subset([]int{0, 2, 4}).Classes)
	cols := d.Columns([]int{2})
	assert.Equal(t, 1, cols.Width())
	assert.Equal(t, d.Features[3][2], cols.Features[3][0])
}

func TestRandomForest(t *testing.T) {
	train := separable(40, 1)
	rf := NewRandomForest(1)
	rf.Trees = 10
	require.NoError(t, rf.Train(train))

	test := separable(20, 2)
	for i, row := range test.Features {
		predicted, distribution := rf.Predict(row)
		assert.Equal(t, test.Classes[i], predicted)
		assert.Len(t, distribution, 2)
		assert.InDelta(t, 1.0, distribution[0]+distribution[1], 1e-9)
	}

	unlabeled := &Dataset{Features: [][]float64{{1, 2, 3}}, Classes: []int{Unlabeled}, NumClasses: 2}
	assert.ErrorIs(t, NewRandomForest(1).Train(unlabeled), ErrNoLabels)
}

func TestRandomForestIsDeterministic(t *testing.T) {
	train := separable(30, 3)
	a, b := NewRandomForest(7), NewRandomForest(7)
	require.NoError(t, a.Train(train))
	require.NoError(t, b.Train(train))
	row := []float64{5, 0.5, -5}
	_, da := a.Predict(row)
	_, db := b.Predict(row)
	assert.Equal(t, da, db)
}

func TestCrossValidate(t *testing.T) {
	d := separable(50, 4)
	eval, err := CrossValidate(RandomForestFactory(1), d, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, eval.Total())
	assert.Equal(t, 0.0, eval.ErrorRate())

	again, err := CrossValidate(RandomForestFactory(1), d, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, eval.String(), again.String())

	_, err = CrossValidate(RandomForestFactory(1), separable(1, 1), 5, 1)
	assert.Error(t, err)
}

func TestTrainTest(t *testing.T) {
	train := separable(30, 5)
	test := separable(6, 6)
	test.Classes[0] = Unlabeled

	eval, predictions, err := TrainTest(RandomForestFactory(1), train, test)
	require.NoError(t, err)
	assert.Equal(t, 5, eval.Total())
	assert.Equal(t, 0.0, eval.ErrorRate())
	require.Len(t, predictions, 6)
	assert.Equal(t, Unlabeled, predictions[0].Actual)
	assert.Equal(t, 0, predictions[0].Predicted)

	_, _, err = TrainTest(RandomForestFactory(1), train, train.Columns([]int{0}))
	assert.ErrorIs(t, err, ErrRaggedDataset)
}

func TestSelectFeatures(t *testing.T) {
	d := &Dataset{NumClasses: 2}
	for i := 0; i < 20; i++ {
		c := i % 2
		v := float64(c) + 0.01*float64(i)
		d.Features = append(d.Features, []float64{v, 3.0, 2 * v})
		d.Classes = append(d.Classes, c)
	}
	selected, err := SelectFeatures(d)
	require.NoError(t, err)
	require.NotEmpty(t, selected)
	assert.NotContains(t, selected, 1)

	single := &Dataset{Features: [][]float64{{1}, {2}}, Classes: []int{0, 1}, NumClasses: 2}
	selected, err = SelectFeatures(single)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, selected)
}

func TestGolearnForest(t *testing.T) {
	train := separable(40, 1)
	test := separable(20, 2)
	test.Classes[0] = Unlabeled

	eval, predictions, err := TrainTest(GolearnForestFactory(10), train, test)
	require.NoError(t, err)
	assert.Equal(t, 19, eval.Total())
	assert.LessOrEqual(t, eval.ErrorRate(), 0.1)
	require.Len(t, predictions, 20)
	for _, p := range predictions {
		require.Len(t, p.Distribution, 2)
		assert.Equal(t, 1.0, p.Distribution[p.Predicted])
	}

	cv, err := CrossValidate(GolearnForestFactory(10), separable(50, 4), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, cv.Total())
	assert.LessOrEqual(t, cv.ErrorRate(), 0.1)

	unlabeled := &Dataset{Features: [][]float64{{1, 2, 3}}, Classes: []int{Unlabeled}, NumClasses: 2}
	assert.ErrorIs(t, NewGolearnForest(5).Train(unlabeled), ErrNoLabels)
	_, _, err = NewGolearnForest(5).PredictAll([][]float64{{1, 2, 3}})
	assert.Error(t, err)
}
