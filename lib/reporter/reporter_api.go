package reporter

import (
	"github.com/shlpu/TSAT/lib/anomaly"
	"github.com/shlpu/TSAT/lib/rpm"
	"github.com/shlpu/TSAT/lib/settings"
)

// A Reporter writes the outcome of one run somewhere.
type Reporter interface {
	Initialize(config settings.RPMSettings, runID string, labels []string)

	AddPatterns(classes []rpm.ClassModel) error

	AddPredictions(result *rpm.TestResult) error

	AddDiscords(report *anomaly.Report) error

	Flush() error
}
