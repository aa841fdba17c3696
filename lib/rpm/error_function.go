// Package rpm searches the discretization parameters that make the mined
// representative patterns of each class most discriminative, and classifies
// series by their distance to those patterns.
package rpm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shlpu/TSAT/lib/classifier"
	"github.com/shlpu/TSAT/lib/dataset"
	"github.com/shlpu/TSAT/lib/direct"
	"github.com/shlpu/TSAT/lib/distance"
	"github.com/shlpu/TSAT/lib/grammar"
	"github.com/shlpu/TSAT/lib/patterns"
	"github.com/shlpu/TSAT/lib/sax"
	"github.com/shlpu/TSAT/lib/settings"
)

var (
	ErrInvalidParams  = errors.New("rpm: paa size exceeds window size")
	ErrTooFewClasses  = errors.New("rpm: need at least two labeled classes")
	ErrUnknownLabel   = errors.New("rpm: label not seen in training")
	ErrNoModel        = errors.New("rpm: no parameter point produced patterns for every class")
	ErrClassifierFail = errors.New("rpm: classifier failed")
)

// A Selection is what one parameter point produced: the refined patterns
// that survived feature selection, in feature order.
type Selection struct {
	Params   patterns.Params      `json:"params"`
	Patterns []patterns.TSPattern `json:"patterns"`
}

// ErrorFunction maps a (window, paa, alphabet) point to the cross validated
// classification error of the patterns mined with it.
type ErrorFunction struct {
	data     dataset.Labeled
	labels   []string
	classIDs map[string]int
	classes  map[string]patterns.Concatenation
	miner    *patterns.Miner
	strategy sax.Strategy
	folds    int
	seed     int64
	factory  classifier.Factory
}

func classIDs(labels []string) map[string]int {
	ret := make(map[string]int, len(labels))
	for i, l := range labels {
		ret[l] = i
	}
	return ret
}

func classifierFactory(s settings.RPMSettings) (classifier.Factory, error) {
	switch s.Classifier {
	case "", settings.CLASSIFIER_FOREST:
		return func() classifier.Classifier {
			rf := classifier.NewRandomForest(s.Seed)
			rf.Trees = s.Trees
			return rf
		}, nil
	case settings.CLASSIFIER_GOLEARN:
		return classifier.GolearnForestFactory(s.Trees), nil
	}
	return nil, fmt.Errorf("unknown classifier %q", s.Classifier)
}

// newMiner builds a miner from computed settings.
func newMiner(s settings.RPMSettings, similarity *patterns.Similarity) (*patterns.Miner, error) {
	algorithm, err := grammar.ParseAlgorithm(s.Algorithm)
	if err != nil {
		return nil, err
	}
	mode, err := patterns.ParseFrequencyMode(s.FrequencyMode)
	if err != nil {
		return nil, err
	}
	return &patterns.Miner{
		Algorithm:          algorithm,
		FrequencyThreshold: s.RepeatedFrequency,
		MaxPatterns:        s.MaxPatterns,
		OverlapFraction:    s.OverlapFraction,
		Mode:               mode,
		Similarity:         similarity,
		NormThreshold:      s.NormalizationThreshold,
	}, nil
}

// NewErrorFunction prepares the per class concatenations of the labeled
// series in data. s must have its fields computed.
func NewErrorFunction(data dataset.Labeled, s settings.RPMSettings, similarity *patterns.Similarity) (*ErrorFunction, error) {
	labels := data.Labels()
	if len(labels) < 2 {
		return nil, fmt.Errorf("%w: have %v", ErrTooFewClasses, labels)
	}
	strategy, err := sax.ParseStrategy(s.Strategy)
	if err != nil {
		return nil, err
	}
	miner, err := newMiner(s, similarity)
	if err != nil {
		return nil, err
	}
	factory, err := classifierFactory(s)
	if err != nil {
		return nil, err
	}
	classes := make(map[string]patterns.Concatenation, len(labels))
	for _, label := range labels {
		classes[label] = patterns.Concatenate(label, data[label])
	}
	return &ErrorFunction{
		data:     data,
		labels:   labels,
		classIDs: classIDs(labels),
		classes:  classes,
		miner:    miner,
		strategy: strategy,
		folds:    s.Folds,
		seed:     s.Seed,
		factory:  factory,
	}, nil
}

// Labels are the classes in the order of per class errors.
func (f *ErrorFunction) Labels() []string {
	return f.labels
}

// ParamsAt rounds a search point to the nearest parameter triple.
func (f *ErrorFunction) ParamsAt(point []float64) patterns.Params {
	return patterns.Params{
		Window:   int(math.Round(point[0])),
		PAA:      int(math.Round(point[1])),
		Alphabet: int(math.Round(point[2])),
		Strategy: f.strategy,
	}
}

// ValueAt runs the whole pipeline for one point. Any failure is returned as
// an error and drops the similarity candidates of this point, candidates of
// points evaluated concurrently stay. The first successful point latches the
// similarity threshold.
func (f *ErrorFunction) ValueAt(ctx context.Context, point []float64) (ev direct.Evaluation[Selection], err error) {
	evaluations.Inc()
	start := time.Now()
	similarity := f.miner.Similarity.Point()
	miner := *f.miner
	miner.Similarity = similarity
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrClassifierFail, r)
		}
		if err != nil {
			failedEvaluations.Inc()
			similarity.Clear()
		}
		evaluationDurationHist.Observe(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return ev, err
	}
	p := f.ParamsAt(point)
	if p.PAA > p.Window {
		return ev, fmt.Errorf("%w: %s", ErrInvalidParams, p)
	}

	found, err := miner.MineClasses(f.classes, p)
	if err != nil {
		return ev, err
	}
	var all []patterns.TSPattern
	for _, label := range f.labels {
		all = append(all, found[label]...)
	}
	minedPatterns.Add(float64(len(all)))
	good := refinePatterns(all, similarity.Threshold())

	train, err := transform(good, f.data, f.labels, f.classIDs, distance.BestMatchEuclidean)
	if err != nil {
		return ev, err
	}
	selected, err := classifier.SelectFeatures(train.data)
	if err != nil {
		return ev, err
	}
	eval, err := classifier.CrossValidate(f.factory, train.data.Columns(selected), f.folds, f.seed)
	if err != nil {
		return ev, fmt.Errorf("%w: %v", ErrClassifierFail, err)
	}

	allError := eval.ErrorRate()
	if !similarity.IsSet() {
		if allError < 1 && similarity.CandidateCount() > 0 {
			similarity.Settle()
		} else {
			similarity.Clear()
		}
	}
	return direct.Evaluation[Selection]{
		Value:    allError,
		PerClass: eval.PerClassError(),
		Payload:  Selection{Params: p, Patterns: pick(good, selected)},
	}, nil
}
