package patterns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shlpu/TSAT/lib/distance"
	"github.com/shlpu/TSAT/lib/grammar"
)

// FrequencyMode selects how often a group of occurrences is said to repeat.
type FrequencyMode int

const (
	// RawCount counts occurrences.
	RawCount FrequencyMode = iota
	// DistinctSeries counts the source series the occurrences come from.
	DistinctSeries
)

func (m FrequencyMode) String() string {
	switch m {
	case RawCount:
		return "raw"
	case DistinctSeries:
		return "distinct"
	}
	return fmt.Sprintf("FrequencyMode(%d)", int(m))
}

func ParseFrequencyMode(name string) (FrequencyMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "raw":
		return RawCount, nil
	case "", "distinct":
		return DistinctSeries, nil
	}
	return RawCount, fmt.Errorf("unknown frequency mode %q", name)
}

func (m FrequencyMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *FrequencyMode) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequencyMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

const lengthRatio = 0.5

// A RepeatedPattern groups occurrences of one rule that have similar lengths.
type RepeatedPattern struct {
	// Length of the first occurrence; others are within a factor of two.
	Length    int
	Sequences []grammar.RuleInterval
}

func (rp *RepeatedPattern) accepts(length int) bool {
	proportion := float64(length) / float64(rp.Length)
	return proportion >= lengthRatio && proportion <= 1/lengthRatio
}

// Frequency of the group under mode.
func (rp *RepeatedPattern) Frequency(mode FrequencyMode, startingPositions []int) int {
	if mode == DistinctSeries {
		return DistinctSeriesCount(rp.Sequences, startingPositions)
	}
	return len(rp.Sequences)
}

// DistinctSeriesCount counts the series the intervals start in.
func DistinctSeriesCount(intervals []grammar.RuleInterval, startingPositions []int) int {
	seen := make(map[int]struct{}, len(intervals))
	for _, ri := range intervals {
		seen[FindIdx(startingPositions, ri.Start)] = struct{}{}
	}
	return len(seen)
}

// groupByLength buckets the intervals of every rule but R0. Rules with fewer
// than threshold intervals are skipped. Buckets never mix rules.
func groupByLength(rules grammar.RuleRecords, threshold int) []*RepeatedPattern {
	var ret []*RepeatedPattern
	for _, r := range rules {
		if r.ID == 0 || len(r.Intervals) < threshold {
			continue
		}
		var buckets []*RepeatedPattern
		for _, ri := range r.Intervals {
			found := false
			for _, b := range buckets {
				if b.accepts(ri.Length()) {
					b.Sequences = append(b.Sequences, ri)
					found = true
					break
				}
			}
			if !found {
				buckets = append(buckets, &RepeatedPattern{Length: ri.Length(), Sequences: []grammar.RuleInterval{ri}})
			}
		}
		ret = append(ret, buckets...)
	}
	return ret
}

// removeOverlaps keeps, within each bucket ordered by start, only the first of
// any occurrences whose starts are at most maxStartDiff apart.
func removeOverlaps(buckets []*RepeatedPattern, maxStartDiff int) {
	for _, b := range buckets {
		sort.SliceStable(b.Sequences, func(i, j int) bool {
			return b.Sequences[i].Start < b.Sequences[j].Start
		})
		removed := make([]bool, len(b.Sequences))
		for j := range b.Sequences {
			if removed[j] {
				continue
			}
			for k := j + 1; k < len(b.Sequences); k++ {
				if removed[k] {
					continue
				}
				diff := b.Sequences[k].Start - b.Sequences[j].Start
				if diff < 0 {
					diff = -diff
				}
				if diff <= maxStartDiff {
					removed[k] = true
				}
			}
		}
		kept := b.Sequences[:0]
		for i, ri := range b.Sequences {
			if !removed[i] {
				kept = append(kept, ri)
			}
		}
		b.Sequences = kept
	}
}

// similarityCandidate is the median pairwise distance between occurrences of
// the same bucket, or DEFAULT_SIMILARITY when no bucket has two occurrences.
func similarityCandidate(series []float64, buckets []*RepeatedPattern) float64 {
	var distances []float64
	for _, b := range buckets {
		for i := 0; i < len(b.Sequences); i++ {
			a := slice(series, b.Sequences[i])
			for j := i + 1; j < len(b.Sequences); j++ {
				distances = append(distances, longerFirst(a, slice(series, b.Sequences[j])))
			}
		}
	}
	if len(distances) == 0 {
		return DEFAULT_SIMILARITY
	}
	sort.Float64s(distances)
	return distances[int(float64(len(distances))*0.5)]
}

// removeInfrequent drops buckets below threshold, doubling the threshold
// until no more than maxPatterns buckets remain. It always makes one pass.
func removeInfrequent(buckets []*RepeatedPattern, maxPatterns int, threshold int,
	mode FrequencyMode, startingPositions []int) []*RepeatedPattern {
	for pass := 0; pass == 0 || (len(buckets) > maxPatterns && len(buckets) > 0); pass++ {
		kept := buckets[:0]
		for _, b := range buckets {
			if b.Frequency(mode, startingPositions) >= threshold {
				kept = append(kept, b)
			}
		}
		buckets = kept
		threshold += threshold
	}
	return buckets
}

func slice(series []float64, ri grammar.RuleInterval) []float64 {
	return series[ri.Start:ri.End]
}

func longerFirst(a []float64, b []float64) float64 {
	if len(a) > len(b) {
		return distance.BestMatchEuclidean(a, b)
	}
	return distance.BestMatchEuclidean(b, a)
}
