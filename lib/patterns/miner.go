package patterns

import (
	"errors"
	"fmt"

	"github.com/shlpu/TSAT/lib/grammar"
	"github.com/shlpu/TSAT/lib/paa"
	"github.com/shlpu/TSAT/lib/sax"
)

var (
	ErrNoPatterns = errors.New("patterns: no repeated pattern found")
)

// Params is one point of the discretization parameter space.
type Params struct {
	Window   int          `json:"window"`
	PAA      int          `json:"paa"`
	Alphabet int          `json:"alphabet"`
	Strategy sax.Strategy `json:"strategy"`
}

func (p Params) String() string {
	return fmt.Sprintf("window=%d paa=%d alphabet=%d strategy=%s", p.Window, p.PAA, p.Alphabet, p.Strategy)
}

// Miner turns a class-concatenated series into representative patterns.
type Miner struct {
	Algorithm grammar.Algorithm
	// Share of the concatenated series a rule has to repeat in.
	FrequencyThreshold float64
	MaxPatterns        int
	// Occurrences of a bucket whose starts differ by at most
	// OverlapFraction*window are treated as one.
	OverlapFraction float64
	Mode            FrequencyMode
	Similarity      *Similarity
	// Zero means paa.NORMALIZATION_THRESHOLD.
	NormThreshold float64
}

// Rules discretizes series, infers a grammar that never spans a series seam
// and maps its rules onto the series.
func (m *Miner) Rules(c Concatenation, p Params) (grammar.RuleRecords, error) {
	cuts, err := sax.NormalCuts(p.Alphabet)
	if err != nil {
		return nil, err
	}
	threshold := m.NormThreshold
	if threshold <= 0 {
		threshold = paa.NORMALIZATION_THRESHOLD
	}
	records, err := sax.Discretize(c.Series, p.Window, p.PAA, cuts, p.Strategy, threshold)
	if err != nil {
		return nil, err
	}
	anchors := records.Indexes()
	// A non-positive window discretizes by chunks of about len/PAA points.
	span := p.Window
	sliding := span > 0
	if !sliding {
		span = (len(c.Series) + p.PAA - 1) / p.PAA
	}
	g, err := grammar.Infer(m.Algorithm, records.Words(),
		grammar.WithBoundaries(c.StartingPositions, anchors, span))
	if err != nil {
		return nil, err
	}
	rules := g.Rules()
	if err := grammar.UpdateRuleIntervals(rules, anchors, sliding, len(c.Series), span); err != nil {
		return nil, err
	}
	return rules, nil
}

// repeatedThreshold is the minimum number of occurrences, or of distinct
// series, a bucket needs.
func (m *Miner) repeatedThreshold(c Concatenation) int {
	t := int(float64(c.SeriesCount()) * m.FrequencyThreshold)
	if t < 1 {
		t = 1
	}
	return t
}

// RepeatedPatterns groups the rule intervals into length buckets, prunes
// overlapping and infrequent occurrences and, while the similarity latch is
// unset, contributes a similarity candidate.
func (m *Miner) RepeatedPatterns(c Concatenation, rules grammar.RuleRecords, window int) []*RepeatedPattern {
	threshold := m.repeatedThreshold(c)
	buckets := groupByLength(rules, threshold)
	removeOverlaps(buckets, int(float64(window)*m.OverlapFraction))

	if m.Similarity != nil && !m.Similarity.IsSet() && len(buckets) > 1 {
		m.Similarity.AddCandidate(similarityCandidate(c.Series, buckets))
	}

	return removeInfrequent(buckets, m.MaxPatterns, threshold, m.Mode, c.StartingPositions)
}

// Mine returns the representative patterns of one class. It fails with
// ErrNoPatterns when no bucket yields a cluster.
func (m *Miner) Mine(c Concatenation, p Params) ([]TSPattern, error) {
	rules, err := m.Rules(c, p)
	if err != nil {
		return nil, err
	}
	buckets := m.RepeatedPatterns(c, rules, p.Window)

	var ret []TSPattern
	for _, b := range buckets {
		for _, loc := range representatives(c.Series, b, m.Mode, c.StartingPositions) {
			values := make([]float64, loc.length)
			copy(values, c.Series[loc.start:loc.start+loc.length])
			ret = append(ret, TSPattern{
				Label:      c.Label,
				Values:     values,
				Frequency:  loc.frequency,
				Start:      loc.start,
				FromSeries: FindIdx(c.StartingPositions, loc.start),
			})
		}
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("%w: class %s, %s", ErrNoPatterns, c.Label, p)
	}
	return ret, nil
}

// MineClasses mines every class in label order. A class without patterns
// fails the whole call.
func (m *Miner) MineClasses(classes map[string]Concatenation, p Params) (map[string][]TSPattern, error) {
	ret := make(map[string][]TSPattern, len(classes))
	for _, label := range SortedLabels(classes) {
		found, err := m.Mine(classes[label], p)
		if err != nil {
			return nil, err
		}
		ret[label] = found
	}
	return ret, nil
}
