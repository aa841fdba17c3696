package grammar

import (
	"fmt"
)

// A RuleInterval is the half open span [Start, End) of series indexes covered
// by one occurrence of a rule. Zero intervals, spans no rule covers, carry
// negative ids.
type RuleInterval struct {
	ID       int
	Start    int
	End      int
	Coverage int
}

func (ri RuleInterval) Length() int {
	return ri.End - ri.Start
}

func (ri RuleInterval) String() string {
	return fmt.Sprintf("R%d[%d, %d)", ri.ID, ri.Start, ri.End)
}

// UpdateRuleIntervals maps every occurrence of every rule onto the series.
// anchors holds the series index of each word. An occurrence that starts at
// word p and spans k words starts at anchors[p]; it ends at the anchor of the
// following word plus windowSize for sliding windows, or at the following
// word's chunk start otherwise. Occurrences reaching the last word end at
// seriesLength. R0 gets the single interval [0, seriesLength).
func UpdateRuleIntervals(rules RuleRecords, anchors []int, slidingWindow bool, seriesLength int, windowSize int) error {
	if len(rules) == 0 {
		return ErrEmptyGrammar
	}
	if rules[0].ExpandedLength != len(anchors) {
		return fmt.Errorf("grammar: %d anchors for an expansion of %d words", len(anchors), rules[0].ExpandedLength)
	}
	rules[0].Intervals = []RuleInterval{{ID: 0, Start: 0, End: seriesLength}}

	for _, r := range rules[1:] {
		r.Intervals = make([]RuleInterval, 0, len(r.Occurrences))
		for _, p := range r.Occurrences {
			start := anchors[p]
			next := p + r.ExpandedLength
			end := seriesLength
			if next < len(anchors) {
				end = anchors[next]
				if slidingWindow {
					end += windowSize
				}
			}
			if end > seriesLength {
				end = seriesLength
			}
			if end <= start {
				continue
			}
			r.Intervals = append(r.Intervals, RuleInterval{ID: r.ID, Start: start, End: end})
		}
		for i := range r.Intervals {
			r.Intervals[i].Coverage = len(r.Intervals)
		}
	}
	return nil
}

// CoverageArray counts, for every series index, the rule intervals (R0
// excluded) that contain it.
func CoverageArray(rules RuleRecords, seriesLength int) []int {
	coverage := make([]int, seriesLength)
	for _, r := range rules {
		if r.ID == 0 {
			continue
		}
		for _, ri := range r.Intervals {
			for i := ri.Start; i < ri.End && i < seriesLength; i++ {
				coverage[i]++
			}
		}
	}
	return coverage
}

// ZeroIntervals returns the maximal runs of zero coverage, numbered -1, -2, ...
func ZeroIntervals(coverage []int) []RuleInterval {
	var ret []RuleInterval
	start := -1
	for i, c := range coverage {
		if c == 0 && start < 0 {
			start = i
		} else if c > 0 && start >= 0 {
			ret = append(ret, RuleInterval{ID: -(len(ret) + 1), Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		ret = append(ret, RuleInterval{ID: -(len(ret) + 1), Start: start, End: len(coverage)})
	}
	return ret
}

// AllIntervals lists the intervals of every rule but R0, in rule order.
func (rules RuleRecords) AllIntervals() []RuleInterval {
	var ret []RuleInterval
	for _, r := range rules {
		if r.ID == 0 {
			continue
		}
		ret = append(ret, r.Intervals...)
	}
	return ret
}
