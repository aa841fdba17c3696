package distance

import (
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	_, err := EuclideanDistance([]float64{0.0, 0.1, 0.2}, []float64{0.0, 0.1})
	if err == nil {
		t.Fatalf("expected error computing euclidean distance of vectors of unequal length")
	}
	dist, err := EuclideanDistance([]float64{0.0, 0.1, 0.2}, []float64{0.0, 0.1, 0.2})
	if err != nil {
		t.Errorf("unexpected error in euclidean distance: %v", err)
	}
	if math.Abs(dist-0.0) > 0.0001 {
		t.Errorf("expected euclidean distance close to 0 but got %f", dist)
	}
	dist, err = EuclideanDistance([]float64{0.5, 0.1, 0.2}, []float64{0.0, 0.1, 0.2})
	if err != nil {
		t.Errorf("unexpected error in euclidean distance: %v", err)
	}
	if math.Abs(dist-0.5) > 0.0001 {
		t.Errorf("expected euclidean distance close to 0.5 but got %f", dist)
	}
}

type matchCase struct {
	name     string
	ts       []float64
	p        []float64
	expected float64
}

func TestBestMatchEuclidean(t *testing.T) {
	cases := []matchCase{
		{"exact match inside", []float64{5, 1, 2, 3, 5}, []float64{1, 2, 3}, 0.0},
		{"exact match at the end", []float64{9, 9, 9, 1, 2}, []float64{1, 2}, 0.0},
		{"offset", []float64{0, 0, 0}, []float64{1, 1}, math.Sqrt(2) / 2},
		{"pattern too long", []float64{1, 2}, []float64{1, 2, 3}, math.Inf(1)},
	}
	for _, c := range cases {
		actual := BestMatchEuclidean(c.ts, c.p)
		if math.IsInf(c.expected, 1) {
			if !math.IsInf(actual, 1) {
				t.Errorf("%s: expected +Inf but got %f", c.name, actual)
			}
			continue
		}
		if math.Abs(actual-c.expected) > 1e-9 {
			t.Errorf("%s: expected %f but got %f", c.name, c.expected, actual)
		}
	}
}

func TestBestMatchDTW(t *testing.T) {
	ts := []float64{0, 0, 1, 2, 3, 2, 1, 0, 0}
	p := []float64{1, 2, 3, 2, 1}
	if d := BestMatchDTW(ts, p, 10); math.Abs(d) > 1e-9 {
		t.Errorf("expected zero distance for an embedded pattern, got %f", d)
	}

	// A stretched copy is closer under warping than under lock step.
	stretched := []float64{1, 1, 2, 3, 3, 2, 1}
	shape := []float64{1, 2, 2, 3, 2, 1, 1}
	dtw := BestMatchDTW(stretched, shape, 50)
	euclid := BestMatchEuclidean(stretched, shape)
	if dtw >= euclid {
		t.Errorf("expected warping distance %f below euclidean %f", dtw, euclid)
	}

	// With a zero band the warping distance is the lock step distance.
	if d, e := BestMatchDTW(stretched, shape, 0), euclid; math.Abs(d-e) > 1e-9 {
		t.Errorf("expected %f with a zero band, got %f", e, d)
	}

	if d := DTWWith(10)([]float64{1}, p); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for a pattern longer than the series, got %f", d)
	}
}
