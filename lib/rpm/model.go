package rpm

import (
	"fmt"
	"time"

	"github.com/shlpu/TSAT/lib/dataset"
	"github.com/shlpu/TSAT/lib/patterns"
	"github.com/shlpu/TSAT/lib/settings"
)

// ClassModel holds the best parameter point found for one class and the
// patterns selected there.
type ClassModel struct {
	Label    string               `json:"label"`
	Error    float64              `json:"error"`
	Params   patterns.Params      `json:"params"`
	Patterns []patterns.TSPattern `json:"patterns"`
}

// A TrainedModel is everything the test path needs.
type TrainedModel struct {
	ID       string               `json:"id"`
	Created  time.Time            `json:"created"`
	Settings settings.RPMSettings `json:"settings"`
	Lower    []float64            `json:"lower"`
	Upper    []float64            `json:"upper"`
	// Iterations actually run.
	Iterations    int             `json:"iterations"`
	Similarity    float64         `json:"similarity"`
	SimilaritySet bool            `json:"similaritySet"`
	TrainError    float64         `json:"trainError"`
	BestParams    patterns.Params `json:"bestParams"`
	Labels        []string        `json:"labels"`
	Classes       []ClassModel    `json:"classes"`
	TrainData     dataset.Labeled `json:"trainData"`
}

// CombinePatterns joins the patterns of all classes in label order. Classes
// whose best parameters equal those of an earlier class add nothing, since
// they selected the same patterns.
func (m *TrainedModel) CombinePatterns() ([]patterns.TSPattern, error) {
	if len(m.Classes) == 0 || len(m.Classes[0].Patterns) == 0 {
		return nil, fmt.Errorf("%w: consider scaling the series", patterns.ErrNoPatterns)
	}
	var ret []patterns.TSPattern
	seen := make(map[[3]int]bool)
	for _, c := range m.Classes {
		key := [3]int{c.Params.Window, c.Params.PAA, c.Params.Alphabet}
		if seen[key] {
			continue
		}
		seen[key] = true
		ret = append(ret, c.Patterns...)
	}
	return ret, nil
}

func (m *TrainedModel) String() string {
	return fmt.Sprintf("model %s: %d classes, train error %f at %s", m.ID, len(m.Classes), m.TrainError, m.BestParams)
}
