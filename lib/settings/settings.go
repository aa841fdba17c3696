// Package settings contains all the parameters for pattern mining and the
// parameter search.
package settings

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

const (
	ALGO_SEQUITUR = "sequitur"
	ALGO_REPAIR   = "repair"

	DISTANCE_EUCLIDEAN = "euclidean"
	DISTANCE_DTW       = "dtw"

	CLASSIFIER_FOREST  = "forest"
	CLASSIFIER_GOLEARN = "golearn"

	MODE_RAW      = "raw"
	MODE_DISTINCT = "distinct"

	// Bounds of the search box as shares of the shortest series.
	WINDOW_MIN_SHARE = 0.1
	WINDOW_MAX_SHARE = 0.9
	PAA_MIN          = 2
	PAA_MAX          = 20
	ALPHABET_MIN     = 2
	ALPHABET_MAX     = 20
)

type RPMSettings struct {
	// Grammar inference, sequitur or repair.
	Algorithm string `envconfig:"ALGORITHM" toml:"algorithm"`
	// Numerosity reduction: NONE, EXACT or MINDIST.
	Strategy string `envconfig:"STRATEGY" toml:"strategy"`

	// Number of DIRECT iterations.
	Iterations int `envconfig:"ITERATIONS" toml:"iterations"`
	// Stop the search after this many iterations without improvement.
	// Zero runs all iterations.
	EarlyStop int `envconfig:"EARLY_STOP" toml:"early_stop"`
	// Evaluate the samples of a rectangle concurrently.
	Parallel bool `envconfig:"PARALLEL" toml:"parallel"`

	// Cross validation folds for the error function.
	Folds int `envconfig:"FOLDS" toml:"folds"`
	// Share of a class's series a rule has to repeat in (rpFrequencyTPer).
	RepeatedFrequency float64 `envconfig:"REPEATED_FREQUENCY" toml:"repeated_frequency"`
	// Number of repeated patterns kept per class and parameter point.
	MaxPatterns int `envconfig:"MAX_PATTERNS" toml:"max_patterns"`
	// Occurrences that start within OverlapFraction*window count as one.
	OverlapFraction float64 `envconfig:"OVERLAP_FRACTION" toml:"overlap_fraction"`
	// raw counts occurrences, distinct counts source series.
	FrequencyMode string `envconfig:"FREQUENCY_MODE" toml:"frequency_mode"`
	// Windows with a standard deviation below this are treated as flat.
	NormalizationThreshold float64 `envconfig:"NORMALIZATION_THRESHOLD" toml:"normalization_threshold"`

	// Search box. Zero values are derived from the series length.
	WindowMin   int `envconfig:"WINDOW_MIN" toml:"window_min"`
	WindowMax   int `envconfig:"WINDOW_MAX" toml:"window_max"`
	PAAMin      int `envconfig:"PAA_MIN" toml:"paa_min"`
	PAAMax      int `envconfig:"PAA_MAX" toml:"paa_max"`
	AlphabetMin int `envconfig:"ALPHABET_MIN" toml:"alphabet_min"`
	AlphabetMax int `envconfig:"ALPHABET_MAX" toml:"alphabet_max"`

	// Distance used by the test transform.
	DistanceMeasure string `envconfig:"DISTANCE" toml:"distance"`
	// DTW band as a percentage of the pattern length.
	DTWWindow int `envconfig:"DTW_WINDOW" toml:"dtw_window"`

	// Classifier, forest (seeded) or golearn.
	Classifier string `envconfig:"CLASSIFIER" toml:"classifier"`
	Trees      int    `envconfig:"TREES" toml:"trees"`
	Seed       int64  `envconfig:"SEED" toml:"seed"`

	// Number of rows per row group in Parquet.
	MaxRowsPerRowGroup int64 `envconfig:"MAX_ROWS_PER_ROW_GROUP" toml:"max_rows_per_row_group"`

	// Where trained models are kept.
	StorePath string `envconfig:"STORE" toml:"store"`
	// Progress events are published here when both are set.
	KafkaURL   string `envconfig:"KAFKA_URL" toml:"kafka_url"`
	KafkaTopic string `envconfig:"KAFKA_TOPIC" toml:"kafka_topic"`
}

func (s RPMSettings) ComputeSettingsFields() RPMSettings {
	if s.Algorithm == "" {
		s.Algorithm = ALGO_SEQUITUR
	}
	if s.Strategy == "" {
		s.Strategy = "EXACT"
	}
	if s.Iterations == 0 {
		s.Iterations = 5
	}
	if s.Folds == 0 {
		s.Folds = 5
	}
	if s.RepeatedFrequency == 0 {
		s.RepeatedFrequency = 0.2
	}
	if s.MaxPatterns == 0 {
		s.MaxPatterns = 50
	}
	if s.OverlapFraction == 0 {
		s.OverlapFraction = 0.5
	}
	if s.FrequencyMode == "" {
		s.FrequencyMode = MODE_DISTINCT
	}
	if s.NormalizationThreshold == 0 {
		s.NormalizationThreshold = 0.005
	}
	if s.DistanceMeasure == "" {
		s.DistanceMeasure = DISTANCE_EUCLIDEAN
	}
	if s.DTWWindow == 0 {
		s.DTWWindow = 10
	}
	if s.Classifier == "" {
		s.Classifier = CLASSIFIER_FOREST
	}
	if s.Trees == 0 {
		s.Trees = 100
	}
	if s.Seed == 0 {
		s.Seed = 1
	}
	if s.MaxRowsPerRowGroup == 0 {
		s.MaxRowsPerRowGroup = 100000
	}
	if s.StorePath == "" {
		s.StorePath = "tsat.db"
	}
	if s.KafkaTopic == "" {
		s.KafkaTopic = "tsat_progress"
	}
	return s
}

// Bounds returns the lower and upper corner of the (window, paa, alphabet)
// search box for series of the given minimum length. Explicit bounds win.
func (s RPMSettings) Bounds(seriesLength int) ([]float64, []float64, error) {
	windowMin := s.WindowMin
	if windowMin == 0 {
		windowMin = int(math.Max(1, float64(int(WINDOW_MIN_SHARE*float64(seriesLength)))))
	}
	windowMax := s.WindowMax
	if windowMax == 0 {
		windowMax = int(math.Max(1, float64(int(WINDOW_MAX_SHARE*float64(seriesLength)))))
	}
	paaMin, paaMax := s.PAAMin, s.PAAMax
	if paaMin == 0 {
		paaMin = PAA_MIN
	}
	if paaMax == 0 {
		paaMax = PAA_MAX
	}
	alphabetMin, alphabetMax := s.AlphabetMin, s.AlphabetMax
	if alphabetMin == 0 {
		alphabetMin = ALPHABET_MIN
	}
	if alphabetMax == 0 {
		alphabetMax = ALPHABET_MAX
	}
	lower := []float64{float64(windowMin), float64(paaMin), float64(alphabetMin)}
	upper := []float64{float64(windowMax), float64(paaMax), float64(alphabetMax)}
	for i := range lower {
		if lower[i] > upper[i] || lower[i] < 1 {
			return nil, nil, fmt.Errorf("invalid search bounds %v to %v for series length %d", lower, upper, seriesLength)
		}
	}
	return lower, upper, nil
}

// FromEnv reads TSAT_* variables on top of s.
func FromEnv(s RPMSettings) (RPMSettings, error) {
	if err := envconfig.Process("tsat", &s); err != nil {
		return s, err
	}
	return s, nil
}

// LoadFile reads a TOML file on top of s.
func LoadFile(path string, s RPMSettings) (RPMSettings, error) {
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return s, fmt.Errorf("reading settings from %s: %w", path, err)
	}
	return s, nil
}
