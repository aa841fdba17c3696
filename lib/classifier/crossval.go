package classifier

import (
	"fmt"
	"math/rand"
	"sort"
)

// A Prediction is the outcome for one test row.
type Prediction struct {
	Row          int
	Actual       int
	Predicted    int
	Distribution []float64
}

// CrossValidate runs stratified k-fold cross validation over the labeled
// rows of d. The fold assignment only depends on seed.
func CrossValidate(factory Factory, d *Dataset, folds int, seed int64) (*Evaluation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	labeled := d.Labeled()
	if len(labeled) == 0 {
		return nil, ErrNoLabels
	}
	if folds > len(labeled) {
		folds = len(labeled)
	}
	if folds < 2 {
		return nil, fmt.Errorf("classifier: cross validation needs 2 folds, have %d rows", len(labeled))
	}

	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(len(labeled), func(i, j int) {
		labeled[i], labeled[j] = labeled[j], labeled[i]
	})
	// Grouping by class and dealing round robin keeps class shares per fold.
	sort.SliceStable(labeled, func(i, j int) bool {
		return d.Classes[labeled[i]] < d.Classes[labeled[j]]
	})
	assignment := make([][]int, folds)
	for i, r := range labeled {
		assignment[i%folds] = append(assignment[i%folds], r)
	}

	eval := NewEvaluation(d.NumClasses)
	for f := 0; f < folds; f++ {
		var train []int
		for o := 0; o < folds; o++ {
			if o != f {
				train = append(train, assignment[o]...)
			}
		}
		cls := factory()
		if err := cls.Train(d.Subset(train)); err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}
		held := d.Subset(assignment[f])
		predicted, _, err := predictAll(cls, held.Features)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}
		for i, c := range held.Classes {
			eval.Add(c, predicted[i])
		}
	}
	return eval, nil
}

// TrainTest trains on train and predicts every row of test. The evaluation
// only covers labeled test rows.
func TrainTest(factory Factory, train *Dataset, test *Dataset) (*Evaluation, []Prediction, error) {
	if err := test.Validate(); err != nil {
		return nil, nil, err
	}
	if test.Width() != train.Width() {
		return nil, nil, fmt.Errorf("%w: train has %d features, test %d", ErrRaggedDataset, train.Width(), test.Width())
	}
	cls := factory()
	if err := cls.Train(train); err != nil {
		return nil, nil, err
	}
	predicted, distributions, err := predictAll(cls, test.Features)
	if err != nil {
		return nil, nil, err
	}
	eval := NewEvaluation(train.NumClasses)
	predictions := make([]Prediction, test.Len())
	for i := range test.Features {
		predictions[i] = Prediction{Row: i, Actual: test.Classes[i], Predicted: predicted[i], Distribution: distributions[i]}
		if test.Classes[i] != Unlabeled {
			eval.Add(test.Classes[i], predicted[i])
		}
	}
	return eval, predictions, nil
}
