package reporter

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/shlpu/TSAT/lib/anomaly"
	"github.com/shlpu/TSAT/lib/rpm"
	"github.com/shlpu/TSAT/lib/settings"
)

type PatternRow struct {
	Class     string `parquet:"class,dict"`
	MinedFrom string `parquet:"minedFrom,dict"`
	Window    int    `parquet:"window"`
	PAA       int    `parquet:"paa"`
	Alphabet  int    `parquet:"alphabet"`
	Frequency int    `parquet:"frequency"`
	// 1-based index of the training series within its class.
	FromSeries int       `parquet:"fromSeries"`
	Start      int       `parquet:"start"`
	Values     []float64 `parquet:"values"`
}

type PredictionRow struct {
	Label     string `parquet:"label,dict"`
	Index     int    `parquet:"index"`
	Predicted string `parquet:"predicted,dict"`
	// Cannot make this optional, as then false would be written as null.
	Correct      bool      `parquet:"correct"`
	Distribution []float64 `parquet:"distribution"`
}

type DiscordRow struct {
	Rank            int     `parquet:"rank"`
	Start           int     `parquet:"start"`
	End             int     `parquet:"end"`
	RuleID          int     `parquet:"ruleId"`
	Coverage        int     `parquet:"coverage"`
	Distance        float64 `parquet:"distance"`
	NearestNeighbor int     `parquet:"nearestNeighbor"`
}

// A closer flushes and closes one parquet writer together with its file.
type closer struct {
	file  *os.File
	close func() error
	path  string
}

type ParquetReporter struct {
	filenameBase       string
	runID              string
	maxRowsPerRowGroup int64
	patternWriter      *parquet.GenericWriter[PatternRow]
	predictionWriter   *parquet.GenericWriter[PredictionRow]
	discordWriter      *parquet.GenericWriter[DiscordRow]
	open               []closer
}

func NewParquetReporter(filenameBase string, maxRows int64) *ParquetReporter {
	return &ParquetReporter{
		filenameBase:       filenameBase,
		maxRowsPerRowGroup: maxRows,
	}
}

func (r *ParquetReporter) Initialize(config settings.RPMSettings, runID string, labels []string) {
	r.runID = runID
	if config.MaxRowsPerRowGroup > 0 {
		r.maxRowsPerRowGroup = config.MaxRowsPerRowGroup
	}
	log.Printf("initializing parquet reporter for run %s with classes %v, %d rows per row group\n",
		runID, labels, r.maxRowsPerRowGroup)
}

func (r *ParquetReporter) path(kind string) string {
	return filepath.Join(r.filenameBase, fmt.Sprintf("%s_%s.pq", kind, r.runID))
}

func (r *ParquetReporter) openFile(kind string) (*os.File, error) {
	if r.runID == "" {
		return nil, fmt.Errorf("parquet reporter is not initialized")
	}
	return os.OpenFile(r.path(kind), os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0640)
}

func (r *ParquetReporter) options() []parquet.WriterOption {
	if r.maxRowsPerRowGroup <= 0 {
		return nil
	}
	return []parquet.WriterOption{parquet.MaxRowsPerRowGroup(r.maxRowsPerRowGroup)}
}

func (r *ParquetReporter) AddPatterns(classes []rpm.ClassModel) error {
	if r.patternWriter == nil {
		file, err := r.openFile("patterns")
		if err != nil {
			return err
		}
		r.patternWriter = parquet.NewGenericWriter[PatternRow](file, r.options()...)
		r.open = append(r.open, closer{file: file, close: r.patternWriter.Close, path: file.Name()})
	}
	var rows []PatternRow
	for _, class := range classes {
		for _, p := range class.Patterns {
			rows = append(rows, PatternRow{
				Class:      class.Label,
				MinedFrom:  p.Label,
				Window:     class.Params.Window,
				PAA:        class.Params.PAA,
				Alphabet:   class.Params.Alphabet,
				Frequency:  p.Frequency,
				FromSeries: p.FromSeries,
				Start:      p.Start,
				Values:     p.Values,
			})
		}
	}
	n, err := r.patternWriter.Write(rows)
	log.Printf("recorded %d patterns for run %s\n", n, r.runID)
	return err
}

func (r *ParquetReporter) AddPredictions(result *rpm.TestResult) error {
	if r.predictionWriter == nil {
		file, err := r.openFile("predictions")
		if err != nil {
			return err
		}
		r.predictionWriter = parquet.NewGenericWriter[PredictionRow](file, r.options()...)
		r.open = append(r.open, closer{file: file, close: r.predictionWriter.Close, path: file.Name()})
	}
	rows := make([]PredictionRow, len(result.Predictions))
	for i, p := range result.Predictions {
		rows[i] = PredictionRow{
			Label:        p.Series.Label,
			Index:        p.Series.Index,
			Predicted:    p.Predicted,
			Correct:      p.Series.Label == p.Predicted,
			Distribution: p.Distribution,
		}
	}
	n, err := r.predictionWriter.Write(rows)
	log.Printf("recorded %d predictions for run %s\n", n, r.runID)
	return err
}

func (r *ParquetReporter) AddDiscords(report *anomaly.Report) error {
	if r.discordWriter == nil {
		file, err := r.openFile("discords")
		if err != nil {
			return err
		}
		r.discordWriter = parquet.NewGenericWriter[DiscordRow](file, r.options()...)
		r.open = append(r.open, closer{file: file, close: r.discordWriter.Close, path: file.Name()})
	}
	rows := make([]DiscordRow, len(report.Discords))
	for i, d := range report.Discords {
		rows[i] = DiscordRow{
			Rank:            d.Rank,
			Start:           d.Start,
			End:             d.End,
			RuleID:          d.RuleID,
			Coverage:        d.Coverage,
			Distance:        d.Distance,
			NearestNeighbor: d.NearestNeighbor,
		}
	}
	n, err := r.discordWriter.Write(rows)
	log.Printf("recorded %d discords for run %s\n", n, r.runID)
	return err
}

// Flush closes every file written since the last Flush. Later writes start
// new files, replacing these.
func (r *ParquetReporter) Flush() error {
	var errs []error
	for _, c := range r.open {
		if err := c.close(); err != nil {
			errs = append(errs, fmt.Errorf("closing writer for %s: %w", c.path, err))
		}
		if err := c.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.open = nil
	r.patternWriter = nil
	r.predictionWriter = nil
	r.discordWriter = nil
	return errors.Join(errs...)
}
