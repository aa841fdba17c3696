package reporter

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shlpu/TSAT/lib/anomaly"
	"github.com/shlpu/TSAT/lib/rpm"
	"github.com/shlpu/TSAT/lib/settings"
)

type CsvReporter struct {
	filenameBase string
	runID        string
}

func NewCsvReporter(filenameBase string) *CsvReporter {
	return &CsvReporter{filenameBase: filenameBase}
}

func (c *CsvReporter) Initialize(_ settings.RPMSettings, runID string, labels []string) {
	c.runID = runID
	log.Printf("initializing csv reporter for run %s with classes %v in %s\n", runID, labels, c.filenameBase)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

// writeRecords writes header and records to <kind>_<runID>.csv, replacing any
// earlier file of this run.
func (c *CsvReporter) writeRecords(kind string, header []string, records [][]string) error {
	if c.runID == "" {
		return fmt.Errorf("csv reporter is not initialized")
	}
	path := filepath.Join(c.filenameBase, fmt.Sprintf("%s_%s.csv", kind, c.runID))
	file, err := os.OpenFile(path, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0640)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err = writer.Write(header); err != nil {
		return err
	}
	ctr := 0
	for _, record := range records {
		if err = writer.Write(record); err != nil {
			return err
		}
		if ctr >= 1000 {
			writer.Flush()
			if err = writer.Error(); err != nil {
				return err
			}
			ctr = 0
		}
		ctr++
	}
	writer.Flush()
	err = writer.Error()
	log.Printf("wrote %d %s records to %s\n", len(records), kind, path)
	return err
}

func (c *CsvReporter) AddPatterns(classes []rpm.ClassModel) error {
	var records [][]string
	for _, class := range classes {
		for _, p := range class.Patterns {
			records = append(records, []string{class.Label, p.Label,
				strconv.Itoa(class.Params.Window), strconv.Itoa(class.Params.PAA), strconv.Itoa(class.Params.Alphabet),
				strconv.Itoa(p.Frequency), strconv.Itoa(p.FromSeries), strconv.Itoa(p.Start),
				joinFloats(p.Values)})
		}
	}
	return c.writeRecords("patterns",
		[]string{"class", "minedFrom", "window", "paa", "alphabet", "frequency", "fromSeries", "start", "values"},
		records)
}

func (c *CsvReporter) AddPredictions(result *rpm.TestResult) error {
	records := make([][]string, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		records = append(records, []string{p.Series.Label, strconv.Itoa(p.Series.Index), p.Predicted,
			joinFloats(p.Distribution)})
	}
	return c.writeRecords("predictions", []string{"label", "index", "predicted", "distribution"}, records)
}

func (c *CsvReporter) AddDiscords(report *anomaly.Report) error {
	records := make([][]string, 0, len(report.Discords))
	for _, d := range report.Discords {
		records = append(records, []string{strconv.Itoa(d.Rank), strconv.Itoa(d.Start), strconv.Itoa(d.End),
			strconv.Itoa(d.RuleID), strconv.Itoa(d.Coverage), formatFloat(d.Distance), strconv.Itoa(d.NearestNeighbor)})
	}
	if err := c.writeRecords("discords",
		[]string{"rank", "start", "end", "rule", "coverage", "distance", "nearestNeighbor"}, records); err != nil {
		return err
	}
	coverage := make([][]string, len(report.Coverage))
	for i, v := range report.Coverage {
		coverage[i] = []string{strconv.Itoa(i), strconv.Itoa(v)}
	}
	return c.writeRecords("coverage", []string{"index", "coverage"}, coverage)
}

func (c *CsvReporter) Flush() error {
	// This reporter does no internal buffering, so Flush is a noop.
	return nil
}
