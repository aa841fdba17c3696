package rpm

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shlpu/TSAT/lib/classifier"
	"github.com/shlpu/TSAT/lib/dataset"
	"github.com/shlpu/TSAT/lib/datatypes"
	"github.com/shlpu/TSAT/lib/distance"
	"github.com/shlpu/TSAT/lib/patterns"
	"github.com/shlpu/TSAT/lib/progress"
	"github.com/shlpu/TSAT/lib/sax"
	"github.com/shlpu/TSAT/lib/settings"
)

// sinesAndSquares has sine waves in class 1 and square waves of the same
// period in class 2, with random phases and a little noise.
func sinesAndSquares(perClass int, length int, seed int64) dataset.Labeled {
	rnd := rand.New(rand.NewSource(seed))
	d := dataset.Labeled{}
	for k := 0; k < perClass; k++ {
		phase := rnd.Intn(20)
		sine := make([]float64, length)
		square := make([]float64, length)
		for i := range sine {
			x := i + phase
			sine[i] = math.Sin(2*math.Pi*float64(x)/20) + 0.05*rnd.NormFloat64()
			square[i] = -1
			if x%20 < 10 {
				square[i] = 1
			}
			square[i] += 0.05 * rnd.NormFloat64()
		}
		d.Add("1", sine)
		d.Add("2", square)
	}
	return d
}

func testSettings() settings.RPMSettings {
	return settings.RPMSettings{
		Iterations:  3,
		Trees:       20,
		WindowMin:   10,
		WindowMax:   40,
		PAAMin:      2,
		PAAMax:      6,
		AlphabetMin: 3,
		AlphabetMax: 6,
	}.ComputeSettingsFields()
}

func pattern(freq int, values ...float64) patterns.TSPattern {
	return patterns.TSPattern{Label: "1", Frequency: freq, Values: values}
}

func TestRefinePatterns(t *testing.T) {
	a := pattern(2, 0, 1, 0, -1)
	b := pattern(5, 0, 1.01, 0, -1)
	c := pattern(1, 5, 5, 5, 5)
	refined := refinePatterns([]patterns.TSPattern{a, b, c}, 0.02)
	assert.Equal(t, []patterns.TSPattern{b, c}, refined)

	// the less frequent duplicate is dropped and the order kept
	refined = refinePatterns([]patterns.TSPattern{b, c, a}, 0.02)
	assert.Equal(t, []patterns.TSPattern{b, c}, refined)

	// nothing is similar under a zero threshold
	assert.Len(t, refinePatterns([]patterns.TSPattern{a, b, c}, 0), 3)
}

func TestTransform(t *testing.T) {
	data := dataset.Labeled{
		"1":               {{0, 1, 2, 3}},
		"2":               {{3, 2, 1, 0}, {1, 1, 1, 1}},
		dataset.UNLABELED: {{0, 1}},
	}
	pats := []patterns.TSPattern{pattern(1, 1, 2), pattern(1, 0, 1, 2)}
	ids := map[string]int{"1": 0, "2": 1}
	f, err := transform(pats, data, data.AllLabels(), ids, distance.BestMatchEuclidean)
	require.NoError(t, err)
	require.Equal(t, 4, f.data.Len())
	assert.Equal(t, []int{0, 1, 1, classifier.Unlabeled}, f.data.Classes)
	assert.Equal(t, SeriesRef{Label: "2", Index: 1}, f.refs[2])
	assert.Equal(t, 0.0, f.data.Features[0][0])
	assert.Equal(t, 0.0, f.data.Features[0][1])
	// the pattern is longer than the series, so the series is matched inside it
	assert.Equal(t, 0.0, f.data.Features[3][1])

	_, err = transform(pats, dataset.Labeled{"3": {{1, 2}}}, []string{"3"}, ids, distance.BestMatchEuclidean)
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestCombinePatterns(t *testing.T) {
	p := patterns.Params{Window: 20, PAA: 4, Alphabet: 4}
	m := &TrainedModel{Classes: []ClassModel{
		{Label: "1", Params: p, Patterns: []patterns.TSPattern{pattern(1, 1, 2)}},
		{Label: "2", Params: p, Patterns: []patterns.TSPattern{pattern(1, 1, 2)}},
		{Label: "3", Params: patterns.Params{Window: 30, PAA: 4, Alphabet: 4}, Patterns: []patterns.TSPattern{pattern(2, 3, 4)}},
	}}
	combined, err := m.CombinePatterns()
	require.NoError(t, err)
	assert.Len(t, combined, 2)

	m.Classes[0].Patterns = nil
	_, err = m.CombinePatterns()
	assert.ErrorIs(t, err, patterns.ErrNoPatterns)
}

func TestNewErrorFunctionNeedsTwoClasses(t *testing.T) {
	data := sinesAndSquares(3, 100, 1)
	delete(data, "2")
	_, err := NewErrorFunction(data, testSettings(), patterns.NewSimilarity())
	assert.ErrorIs(t, err, ErrTooFewClasses)
}

func TestValueAtFailsFastOnPAA(t *testing.T) {
	similarity := patterns.NewSimilarity()
	similarity.AddCandidate(0.5)
	f, err := NewErrorFunction(sinesAndSquares(3, 100, 1), testSettings(), similarity)
	require.NoError(t, err)

	failedBefore := testutil.ToFloat64(failedEvaluations)
	_, err = f.ValueAt(context.Background(), []float64{5.2, 7.4, 4})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failedEvaluations))
	// the failed point drops only its own candidates
	assert.Equal(t, 1, similarity.CandidateCount())
	assert.False(t, similarity.IsSet())
	assert.Equal(t, patterns.Params{Window: 5, PAA: 7, Alphabet: 4, Strategy: sax.EXACT}, f.ParamsAt([]float64{5.2, 7.4, 4}))
}

func TestValueAtLatchesSimilarity(t *testing.T) {
	similarity := patterns.NewSimilarity()
	f, err := NewErrorFunction(sinesAndSquares(10, 100, 2), testSettings(), similarity)
	require.NoError(t, err)

	ev, err := f.ValueAt(context.Background(), []float64{20, 4, 4})
	require.NoError(t, err)
	assert.Less(t, ev.Value, 0.2)
	assert.Len(t, ev.PerClass, 2)
	assert.NotEmpty(t, ev.Payload.Patterns)
	assert.Equal(t, 20, ev.Payload.Params.Window)
	assert.True(t, similarity.IsSet())
}

func TestTrainAndTest(t *testing.T) {
	sink := progress.NewChannelSink(100)
	trainer := NewTrainer(testSettings(), sink)
	train := sinesAndSquares(10, 100, 3)

	m, err := trainer.Train(context.Background(), train)
	require.NoError(t, err)
	assert.Less(t, m.TrainError, 0.1)
	assert.Equal(t, []string{"1", "2"}, m.Labels)
	require.Len(t, m.Classes, 2)
	for _, c := range m.Classes {
		assert.NotEmpty(t, c.Patterns)
		assert.LessOrEqual(t, c.Params.PAA, c.Params.Window)
	}
	assert.Equal(t, 3, m.Iterations)
	assert.NotEmpty(t, m.ID)

	test := sinesAndSquares(5, 100, 4)
	test[dataset.UNLABELED] = test["1"][:1]
	res, err := trainer.Test(context.Background(), m, test)
	require.NoError(t, err)
	assert.Less(t, res.Error, 0.2)
	assert.Equal(t, 10, res.Evaluation.Total())
	require.Len(t, res.Predictions, 11)
	last := res.Predictions[10]
	assert.Equal(t, dataset.UNLABELED, last.Series.Label)
	assert.Equal(t, "1", last.Predicted)

	require.NoError(t, sink.Close())
	var kinds []datatypes.EventKind
	for e := range sink.Events() {
		kinds = append(kinds, e.Kind)
		assert.Equal(t, m.ID, e.RunID)
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, datatypes.TRAIN_STARTED, kinds[0])
	assert.Equal(t, datatypes.TRAIN_FINISHED, kinds[len(kinds)-2])
	assert.Equal(t, datatypes.TEST_FINISHED, kinds[len(kinds)-1])
}

// repeatedBlocks has a length-10 block repeated 10 times per series: a ramp
// in class 1 and a half-high, half-low block in class 2, with noise of
// standard deviation 0.01.
func repeatedBlocks(perClass int, seed int64) dataset.Labeled {
	rnd := rand.New(rand.NewSource(seed))
	d := dataset.Labeled{}
	for k := 0; k < perClass; k++ {
		ramp := make([]float64, 100)
		block := make([]float64, 100)
		for i := range ramp {
			ramp[i] = float64(i%10) + 0.01*rnd.NormFloat64()
			if i%10 < 5 {
				block[i] = 1
			}
			block[i] += 0.01 * rnd.NormFloat64()
		}
		d.Add("1", ramp)
		d.Add("2", block)
	}
	return d
}

func TestRepeatedBlocks(t *testing.T) {
	s := settings.RPMSettings{
		WindowMin: 10,
		WindowMax: 50,
		Trees:     20,
	}.ComputeSettingsFields()
	require.Equal(t, 5, s.Iterations)
	trainer := NewTrainer(s, nil)

	m, err := trainer.Train(context.Background(), repeatedBlocks(10, 6))
	require.NoError(t, err)
	assert.Less(t, m.TrainError, 0.1)
	for _, c := range m.Classes {
		assert.NotEmpty(t, c.Patterns)
		assert.GreaterOrEqual(t, c.Params.Window, 10)
		assert.LessOrEqual(t, c.Params.Window, 50)
	}

	res, err := trainer.Test(context.Background(), m, repeatedBlocks(10, 7))
	require.NoError(t, err)
	assert.Equal(t, 20, res.Evaluation.Total())
	assert.Less(t, res.Error, 0.1)
}

func TestUnknownClassifier(t *testing.T) {
	s := testSettings()
	s.Classifier = "svm"
	_, err := NewErrorFunction(sinesAndSquares(3, 100, 1), s, patterns.NewSimilarity())
	assert.Error(t, err)
}

func TestGolearnClassifier(t *testing.T) {
	s := testSettings()
	s.Classifier = settings.CLASSIFIER_GOLEARN
	m, err := NewTrainer(s, nil).Train(context.Background(), sinesAndSquares(10, 100, 3))
	require.NoError(t, err)
	assert.Less(t, m.TrainError, 0.2)
}

func TestTrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTrainer(testSettings(), nil).Train(ctx, sinesAndSquares(3, 100, 5))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnknownDistance(t *testing.T) {
	s := testSettings()
	s.DistanceMeasure = "manhattan"
	trainer := &Trainer{Settings: s}
	m := &TrainedModel{Classes: []ClassModel{{Label: "1", Patterns: []patterns.TSPattern{pattern(1, 1, 2)}}}}
	_, err := trainer.Test(context.Background(), m, dataset.Labeled{"1": {{1, 2, 3}}})
	assert.Error(t, err)
}
