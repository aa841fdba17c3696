package reporter

import (
	"log"
	"slices"

	"github.com/shlpu/TSAT/lib/anomaly"
	"github.com/shlpu/TSAT/lib/dataset"
	"github.com/shlpu/TSAT/lib/rpm"
	"github.com/shlpu/TSAT/lib/settings"
)

// A ClassPair is one kind of mistake: a series of class Actual predicted as
// Predicted.
type ClassPair struct {
	Actual    string
	Predicted string
}

// A ConfusedSet is a group of classes linked by mistakes in either direction.
type ConfusedSet struct {
	pairs   map[ClassPair]int
	members []string // maintained in sort order
}

// SetReporter logs which classes get confused with each other, together
// with pattern and discord summaries.
type SetReporter struct {
	runID     string
	labels    []string
	confusion []*ConfusedSet
}

func (s *ConfusedSet) contains(member string) bool {
	_, found := slices.BinarySearch(s.members, member)
	return found
}

func (s *ConfusedSet) insert(member string) bool {
	i, found := slices.BinarySearch(s.members, member)
	if found {
		return false
	}
	s.members = slices.Insert(s.members, i, member)
	return true
}

func NewSetReporter() *SetReporter {
	return &SetReporter{confusion: make([]*ConfusedSet, 0, 16)}
}

func (r *SetReporter) Initialize(_ settings.RPMSettings, runID string, labels []string) {
	r.runID = runID
	r.labels = labels
}

func (r *SetReporter) Flush() error {
	log.Printf("class confusion report for run %s\n", r.runID)
	for _, c := range r.confusion {
		if len(c.members) == 0 {
			continue
		}
		log.Printf("confused set with %d classes: %v\n", len(c.members), c.members)
		for pair, count := range c.pairs {
			log.Printf("%s predicted as %s: %d\n", pair.Actual, pair.Predicted, count)
		}
	}
	r.confusion = make([]*ConfusedSet, 0, 16)
	return nil
}

func (r *SetReporter) AddPatterns(classes []rpm.ClassModel) error {
	for _, c := range classes {
		log.Printf("class %s: %d patterns at %s, error %f\n", c.Label, len(c.Patterns), c.Params, c.Error)
	}
	return nil
}

func (r *SetReporter) AddDiscords(report *anomaly.Report) error {
	for _, d := range report.Discords {
		log.Printf("discord %s\n", d)
	}
	return nil
}

func (r *SetReporter) AddPredictions(result *rpm.TestResult) error {
	for _, p := range result.Predictions {
		if p.Series.Label == dataset.UNLABELED || p.Series.Label == p.Predicted {
			continue
		}
		r.addConfusedPair(ClassPair{Actual: p.Series.Label, Predicted: p.Predicted})
	}
	return nil
}

func (r *SetReporter) addConfusedPair(pair ClassPair) {
	homeForActual := -1
	homeForPredicted := -1
	// Cases:
	// 1. neither class is in a set yet --> create one for them
	// 2. both are already in the same set --> count the pair there
	// 3. one is in a set, the other isn't --> count the pair and add the new member
	// 4. they are in different sets --> merge those two sets
	for idx, set := range r.confusion {
		if homeForActual < 0 && set.contains(pair.Actual) {
			homeForActual = idx
		}
		if homeForPredicted < 0 && set.contains(pair.Predicted) {
			homeForPredicted = idx
		}
		if homeForActual >= 0 && homeForPredicted >= 0 {
			break
		}
	}
	// Case 1: new set needs to be created
	if homeForActual < 0 && homeForPredicted < 0 {
		newset := &ConfusedSet{pairs: map[ClassPair]int{pair: 1}}
		newset.insert(pair.Actual)
		newset.insert(pair.Predicted)
		r.confusion = append(r.confusion, newset)
		return
	}
	// Case 2: already in same set
	if homeForActual == homeForPredicted {
		r.confusion[homeForActual].pairs[pair]++
		return
	}
	// Case 3: one of them is in a set
	if homeForActual < 0 {
		r.confusion[homeForPredicted].pairs[pair]++
		r.confusion[homeForPredicted].insert(pair.Actual)
		return
	}
	if homeForPredicted < 0 {
		r.confusion[homeForActual].pairs[pair]++
		r.confusion[homeForActual].insert(pair.Predicted)
		return
	}
	// Case 4: They are in different sets
	into, from := r.confusion[homeForActual], r.confusion[homeForPredicted]
	for p, c := range from.pairs {
		into.pairs[p] += c
	}
	into.pairs[pair]++
	for _, m := range from.members {
		into.insert(m)
	}
	from.pairs = make(map[ClassPair]int)
	from.members = nil
}
