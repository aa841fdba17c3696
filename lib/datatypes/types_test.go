package datatypes

import (
	"testing"
	"time"
)

func TestMarshalParamPoint(t *testing.T) {
	pp := NewParamPoint(30, 4, 5)
	b, err := pp.MarshalJSON()
	if err != nil {
		t.Errorf("unexpected: %v", err)
	}

	var reconstructed ParamPoint
	err = (&reconstructed).UnmarshalJSON(b)
	if err != nil {
		t.Errorf("unexpected: %v", err)
	}
	if reconstructed.Values() != pp.Values() {
		t.Errorf("unexpected param point mismatch %v vs. %v", reconstructed, pp)
	}
}

func TestMarshalProgressEvent(t *testing.T) {
	evaluated := map[ParamPoint]float64{
		ParamPoint{Window: 30, PAA: 4, Alphabet: 5}: 0.1,
		ParamPoint{Window: 10, PAA: 4, Alphabet: 5}: 0.2,
		ParamPoint{Window: 50, PAA: 4, Alphabet: 5}: 1.0,
	}
	ev := &ProgressEvent{
		RunID:     "run",
		Kind:      ITERATION,
		Iteration: 2,
		Best:      ParamPoint{Window: 30, PAA: 4, Alphabet: 5},
		BestError: 0.1,
		Evaluated: evaluated,
		Time:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	b, err := ev.MarshalJSON()
	if err != nil {
		t.Errorf("unexpected: %v", err)
	}

	var reconstructed ProgressEvent
	err = (&reconstructed).UnmarshalJSON(b)
	if err != nil {
		t.Errorf("unexpected: %v", err)
	}
	if len(reconstructed.Evaluated) != len(evaluated) {
		t.Errorf("reconstructed event has wrong number of evaluated points")
	}
	if reconstructed.Iteration != ev.Iteration || reconstructed.Kind != ev.Kind || reconstructed.RunID != ev.RunID {
		t.Errorf("event mismatch %v vs. %v", reconstructed, ev)
	}
	if reconstructed.Best != ev.Best {
		t.Errorf("best point mismatch %v vs. %v", reconstructed.Best, ev.Best)
	}
	if !reconstructed.Time.Equal(ev.Time) {
		t.Errorf("time mismatch %v vs. %v", reconstructed.Time, ev.Time)
	}
	for pp, v := range evaluated {
		rv, exists := reconstructed.Evaluated[pp]
		if !exists {
			t.Errorf("missing param point %v in reconstructed evaluations", pp)
		}
		if rv != v {
			t.Errorf("value mismatch in evaluations")
		}
	}
}
