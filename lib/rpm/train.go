package rpm

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/shlpu/TSAT/lib/classifier"
	"github.com/shlpu/TSAT/lib/dataset"
	"github.com/shlpu/TSAT/lib/datatypes"
	"github.com/shlpu/TSAT/lib/direct"
	"github.com/shlpu/TSAT/lib/distance"
	"github.com/shlpu/TSAT/lib/patterns"
	"github.com/shlpu/TSAT/lib/progress"
	"github.com/shlpu/TSAT/lib/settings"
)

// A Trainer runs parameter searches and test runs with one set of settings.
type Trainer struct {
	Settings settings.RPMSettings
	// Receives progress events. Optional.
	Sink progress.Sink
}

func NewTrainer(s settings.RPMSettings, sink progress.Sink) *Trainer {
	return &Trainer{Settings: s.ComputeSettingsFields(), Sink: sink}
}

func (t *Trainer) publish(ctx context.Context, e *datatypes.ProgressEvent) {
	if t.Sink == nil {
		return
	}
	e.Time = time.Now().UTC()
	if err := t.Sink.Publish(ctx, e); err != nil {
		log.Printf("failed to publish %s event for run %s: %v\n", e.Kind, e.RunID, err)
	}
}

func paramPoint(point []float64) datatypes.ParamPoint {
	if len(point) < 3 {
		return datatypes.ParamPoint{}
	}
	return *datatypes.NewParamPoint(int(math.Round(point[0])), int(math.Round(point[1])), int(math.Round(point[2])))
}

// Train searches the parameter space with DIRECT and keeps, for every class,
// the point with the lowest per class error and the patterns selected there.
func (t *Trainer) Train(ctx context.Context, data dataset.Labeled) (*TrainedModel, error) {
	s := t.Settings.ComputeSettingsFields()
	lower, upper, err := s.Bounds(data.MinLength())
	if err != nil {
		return nil, err
	}
	similarity := patterns.NewSimilarity()
	f, err := NewErrorFunction(data, s, similarity)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	trainingRuns.Inc()
	bestError.Set(1)
	log.Printf("run %s: searching window %v..%v, paa %v..%v, alphabet %v..%v over %d series in %d classes\n",
		runID, lower[0], upper[0], lower[1], upper[1], lower[2], upper[2], data.Count(), len(f.Labels()))
	t.publish(ctx, &datatypes.ProgressEvent{RunID: runID, Kind: datatypes.TRAIN_STARTED, BestError: 1})

	optimizer := &direct.Optimizer[Selection]{
		Lower:      lower,
		Upper:      upper,
		Iterations: s.Iterations,
		EarlyStop:  s.EarlyStop,
		Parallel:   s.Parallel,
		OnIteration: func(iteration int, from int, res *direct.Result[Selection]) {
			bestError.Set(res.Best.Value)
			evaluated := make(map[datatypes.ParamPoint]float64)
			for _, sample := range res.Samples[from:] {
				evaluated[paramPoint(sample.Point)] = sample.Value
			}
			t.publish(ctx, &datatypes.ProgressEvent{
				RunID:     runID,
				Kind:      datatypes.ITERATION,
				Iteration: iteration,
				Best:      paramPoint(res.Best.Point),
				BestError: res.Best.Value,
				Evaluated: evaluated,
			})
		},
	}
	res, err := optimizer.Minimize(ctx, f.ValueAt)
	if err != nil {
		t.publish(ctx, &datatypes.ProgressEvent{RunID: runID, Kind: datatypes.FAILED, Message: err.Error()})
		return nil, err
	}
	if len(res.BestPerClass) < len(f.Labels()) {
		t.publish(ctx, &datatypes.ProgressEvent{RunID: runID, Kind: datatypes.FAILED, Message: ErrNoModel.Error()})
		return nil, ErrNoModel
	}

	m := &TrainedModel{
		ID:            runID,
		Created:       time.Now().UTC(),
		Settings:      s,
		Lower:         lower,
		Upper:         upper,
		Iterations:    res.Iterations,
		Similarity:    similarity.Threshold(),
		SimilaritySet: similarity.IsSet(),
		TrainError:    res.Best.Value,
		BestParams:    f.ParamsAt(res.Best.Point),
		Labels:        f.Labels(),
		TrainData:     data,
	}
	for i, label := range f.Labels() {
		best := res.BestPerClass[i]
		m.Classes = append(m.Classes, ClassModel{
			Label:    label,
			Error:    best.Value,
			Params:   best.Payload.Params,
			Patterns: best.Payload.Patterns,
		})
		log.Printf("run %s: class %s best error %f at %s with %d patterns\n",
			runID, label, best.Value, best.Payload.Params, len(best.Payload.Patterns))
	}
	t.publish(ctx, &datatypes.ProgressEvent{
		RunID:     runID,
		Kind:      datatypes.TRAIN_FINISHED,
		Iteration: res.Iterations,
		Best:      paramPoint(res.Best.Point),
		BestError: res.Best.Value,
	})
	return m, nil
}

// A Prediction is the class assigned to one test series.
type Prediction struct {
	Series       SeriesRef `json:"series"`
	Predicted    string    `json:"predicted"`
	Distribution []float64 `json:"distribution"`
}

type TestResult struct {
	ModelID string `json:"modelId"`
	// Error over the labeled test series, 1 when there are none.
	Error       float64                `json:"error"`
	Evaluation  *classifier.Evaluation `json:"-"`
	Patterns    []patterns.TSPattern   `json:"patterns"`
	Predictions []Prediction           `json:"predictions"`
}

func (t *Trainer) distanceFunc() (distance.Func, error) {
	switch t.Settings.DistanceMeasure {
	case "", settings.DISTANCE_EUCLIDEAN:
		return distance.BestMatchEuclidean, nil
	case settings.DISTANCE_DTW:
		return distance.DTWWith(t.Settings.DTWWindow), nil
	}
	return nil, fmt.Errorf("unknown distance measure %q", t.Settings.DistanceMeasure)
}

// Test transforms the model's training series and the test series with the
// combined patterns of the model, trains a classifier on the former and
// predicts the latter. Series labeled UNLABELED are predicted but do not
// count towards the error.
func (t *Trainer) Test(ctx context.Context, m *TrainedModel, test dataset.Labeled) (*TestResult, error) {
	final, err := m.CombinePatterns()
	if err != nil {
		return nil, err
	}
	dist, err := t.distanceFunc()
	if err != nil {
		return nil, err
	}
	ids := classIDs(m.Labels)
	train, err := transform(final, m.TrainData, m.Labels, ids, dist)
	if err != nil {
		return nil, err
	}
	testFeatures, err := transform(final, test, test.AllLabels(), ids, dist)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	factory, err := classifierFactory(t.Settings.ComputeSettingsFields())
	if err != nil {
		return nil, err
	}
	eval, predictions, err := classifier.TrainTest(factory, train.data, testFeatures.data)
	if err != nil {
		return nil, err
	}
	ret := &TestResult{
		ModelID:    m.ID,
		Error:      eval.ErrorRate(),
		Evaluation: eval,
		Patterns:   final,
	}
	for i, p := range predictions {
		ret.Predictions = append(ret.Predictions, Prediction{
			Series:       testFeatures.refs[i],
			Predicted:    m.Labels[p.Predicted],
			Distribution: p.Distribution,
		})
	}
	testError.Set(ret.Error)
	log.Printf("model %s: test error %f over %d series with %d patterns\n",
		m.ID, ret.Error, test.Count(), len(final))
	t.publish(ctx, &datatypes.ProgressEvent{
		RunID:     m.ID,
		Kind:      datatypes.TEST_FINISHED,
		Best:      *datatypes.NewParamPoint(m.BestParams.Window, m.BestParams.PAA, m.BestParams.Alphabet),
		BestError: ret.Error,
	})
	return ret, nil
}
