package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestComputeSettingsFields(t *testing.T) {
	s := RPMSettings{Folds: 3}.ComputeSettingsFields()
	if s.Folds != 3 {
		t.Errorf("expected explicit folds to stay 3 but got %d", s.Folds)
	}
	if s.Iterations != 5 || s.MaxPatterns != 50 || s.Strategy != "EXACT" || s.Algorithm != ALGO_SEQUITUR {
		t.Errorf("unexpected defaults %+v", s)
	}
	if s.RepeatedFrequency != 0.2 || s.OverlapFraction != 0.5 || s.DTWWindow != 10 {
		t.Errorf("unexpected defaults %+v", s)
	}
	if s.Classifier != CLASSIFIER_FOREST {
		t.Errorf("expected classifier %s but got %s", CLASSIFIER_FOREST, s.Classifier)
	}
}

func TestBounds(t *testing.T) {
	lower, upper, err := RPMSettings{}.Bounds(100)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	expectedLower := []float64{10, 2, 2}
	expectedUpper := []float64{90, 20, 20}
	for i := range lower {
		if lower[i] != expectedLower[i] || upper[i] != expectedUpper[i] {
			t.Errorf("expected bounds %v to %v but got %v to %v", expectedLower, expectedUpper, lower, upper)
		}
	}

	lower, _, err = RPMSettings{}.Bounds(5)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if lower[0] != 1 {
		t.Errorf("expected window minimum 1 for short series but got %f", lower[0])
	}

	if _, _, err = (RPMSettings{WindowMin: 50, WindowMax: 10}).Bounds(100); err == nil {
		t.Errorf("expected an error for inverted window bounds")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TSAT_ITERATIONS", "12")
	t.Setenv("TSAT_DISTANCE", "dtw")
	t.Setenv("TSAT_CLASSIFIER", "golearn")
	s, err := FromEnv(RPMSettings{Folds: 7})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if s.Iterations != 12 || s.DistanceMeasure != DISTANCE_DTW || s.Folds != 7 || s.Classifier != CLASSIFIER_GOLEARN {
		t.Errorf("unexpected settings %+v", s)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsat.toml")
	content := "algorithm = \"repair\"\nmax_patterns = 10\nparallel = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path, RPMSettings{Folds: 4})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if s.Algorithm != ALGO_REPAIR || s.MaxPatterns != 10 || !s.Parallel || s.Folds != 4 {
		t.Errorf("unexpected settings %+v", s)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), s); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
