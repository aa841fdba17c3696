package reporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/shlpu/TSAT/lib/anomaly"
	"github.com/shlpu/TSAT/lib/settings"
)

func readCsv(t *testing.T, path string) [][]string {
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return records
}

func TestCsvReporter(t *testing.T) {
	tempdir := t.TempDir()
	rep := NewCsvReporter(tempdir)
	if err := rep.AddPatterns(sampleClasses()); err == nil {
		t.Errorf("expected an error before Initialize")
	}
	rep.Initialize(settings.RPMSettings{}, testRun, []string{"1", "2"})

	if err := rep.AddPatterns(sampleClasses()); err != nil {
		t.Errorf("failed to add patterns: %v", err)
	}
	records := readCsv(t, filepath.Join(tempdir, "patterns_"+testRun+".csv"))
	if len(records) != 3 {
		t.Fatalf("expected a header and 2 patterns but got %d records", len(records))
	}
	if records[1][0] != "1" || records[1][8] != "0.5 1 1.5" {
		t.Errorf("unexpected pattern record %v", records[1])
	}

	if err := rep.AddPredictions(sampleResult()); err != nil {
		t.Errorf("failed to add predictions: %v", err)
	}
	records = readCsv(t, filepath.Join(tempdir, "predictions_"+testRun+".csv"))
	if len(records) != 4 || records[2][2] != "1" || records[2][3] != "0.6 0.4" {
		t.Errorf("unexpected prediction records %v", records)
	}

	report := &anomaly.Report{
		Discords: []anomaly.Discord{{Rank: 1, Start: 5, End: 9, RuleID: 3, Coverage: 1, Distance: 0.5, NearestNeighbor: 20}},
		Coverage: []int{0, 1, 1},
	}
	if err := rep.AddDiscords(report); err != nil {
		t.Errorf("failed to add discords: %v", err)
	}
	records = readCsv(t, filepath.Join(tempdir, "discords_"+testRun+".csv"))
	if len(records) != 2 || records[1][5] != "0.5" {
		t.Errorf("unexpected discord records %v", records)
	}
	records = readCsv(t, filepath.Join(tempdir, "coverage_"+testRun+".csv"))
	if len(records) != 4 || records[3][1] != "1" {
		t.Errorf("unexpected coverage records %v", records)
	}
	if err := rep.Flush(); err != nil {
		t.Errorf("flush failed: %v", err)
	}
}
