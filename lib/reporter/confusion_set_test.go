package reporter

import (
	"testing"
)

func TestAddConfusedPair(t *testing.T) {
	rep := NewSetReporter()

	// Add a new pair
	rep.addConfusedPair(ClassPair{Actual: "1", Predicted: "2"})
	if len(rep.confusion) != 1 {
		t.Errorf("expected one confused set but got %d", len(rep.confusion))
	}

	// Add a second new pair
	rep.addConfusedPair(ClassPair{Actual: "3", Predicted: "4"})
	if len(rep.confusion) != 2 {
		t.Errorf("expected two confused sets but got %d", len(rep.confusion))
	}

	// Same pair again only counts
	rep.addConfusedPair(ClassPair{Actual: "1", Predicted: "2"})
	if c := rep.confusion[0].pairs[ClassPair{Actual: "1", Predicted: "2"}]; c != 2 {
		t.Errorf("expected count 2 but got %d", c)
	}

	// One known class adds a member
	rep.addConfusedPair(ClassPair{Actual: "5", Predicted: "1"})
	if len(rep.confusion[0].members) != 3 || !rep.confusion[0].contains("5") {
		t.Errorf("expected 5 to join the first set, got %v", rep.confusion[0].members)
	}

	// Linking the two sets merges them into the set of the actual class
	rep.addConfusedPair(ClassPair{Actual: "4", Predicted: "2"})
	first, second := rep.confusion[0], rep.confusion[1]
	if len(first.members) != 0 || len(first.pairs) != 0 {
		t.Errorf("expected the first set to be emptied, got %v", first.members)
	}
	if len(second.members) != 5 || len(second.pairs) != 4 {
		t.Errorf("expected 5 classes and 4 pairs in the merged set, got %v and %v", second.members, second.pairs)
	}
	if second.pairs[ClassPair{Actual: "1", Predicted: "2"}] != 2 {
		t.Errorf("merged counts were lost: %v", second.pairs)
	}
}

func TestAddPredictionsSkipsCorrectAndUnlabeled(t *testing.T) {
	rep := NewSetReporter()
	if err := rep.AddPredictions(sampleResult()); err != nil {
		t.Errorf("failed to add predictions: %v", err)
	}
	if len(rep.confusion) != 1 {
		t.Fatalf("expected one confused set but got %d", len(rep.confusion))
	}
	if rep.confusion[0].pairs[ClassPair{Actual: "2", Predicted: "1"}] != 1 {
		t.Errorf("expected one 2 -> 1 mistake, got %v", rep.confusion[0].pairs)
	}
	if err := rep.Flush(); err != nil || len(rep.confusion) != 0 {
		t.Errorf("flush should reset the sets")
	}
}
