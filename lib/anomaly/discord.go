// Package anomaly finds discords, the subsequences that are farthest from
// their nearest non-overlapping match, either over grammar rule intervals
// (RRA) or over all windows of a fixed length.
package anomaly

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/shlpu/TSAT/lib/grammar"
	"github.com/shlpu/TSAT/lib/patterns"
)

var (
	ErrInvalidWindow = errors.New("anomaly: window must be positive and shorter than half the series")
	ErrNoCandidates  = errors.New("anomaly: no candidate intervals")
)

// A Discord is one anomalous span [Start, End) of the series.
type Discord struct {
	Rank  int `json:"rank"`
	Start int `json:"start"`
	End   int `json:"end"`
	// Rule the interval belongs to, negative for uncovered spans, 0 for
	// brute force windows.
	RuleID   int `json:"ruleId"`
	Coverage int `json:"coverage"`
	// Euclidean distance to the nearest non-overlapping subsequence of the
	// same length, divided by the length.
	Distance        float64 `json:"distance"`
	NearestNeighbor int     `json:"nearestNeighbor"`
}

func (d Discord) Length() int {
	return d.End - d.Start
}

func (d Discord) String() string {
	return fmt.Sprintf("#%d [%d, %d) R%d dist=%f nn=%d", d.Rank, d.Start, d.End, d.RuleID, d.Distance, d.NearestNeighbor)
}

// A Report is the outcome of one RRA run.
type Report struct {
	Discords []Discord `json:"discords"`
	// Number of rule intervals covering each series index.
	Coverage   []int `json:"coverage"`
	Candidates int   `json:"candidates"`
}

type Detector struct {
	Algorithm grammar.Algorithm
	// Zero means paa.NORMALIZATION_THRESHOLD.
	NormThreshold float64
	// Number of discords to report.
	Discords int
}

// earlyAbandoned returns the normalized distance between a and b, or +Inf as
// soon as it is certain to exceed limit.
func earlyAbandoned(a []float64, b []float64, limit float64) float64 {
	n := float64(len(a))
	bound := (limit * n) * (limit * n)
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
		if sum > bound {
			return math.Inf(1)
		}
	}
	return math.Sqrt(sum) / n
}

func overlaps(start int, end int, other int, length int) bool {
	return other < end && start < other+length
}

// nearestNeighbor scans the non-overlapping positions of series, trying the
// hints first. It stops early once a match closer than cutoff shows up,
// since then the span cannot beat the current discord.
func nearestNeighbor(series []float64, start int, end int, hints []int, cutoff float64) (float64, int) {
	length := end - start
	span := series[start:end]
	best := math.Inf(1)
	nn := -1
	try := func(j int) bool {
		if j < 0 || j+length > len(series) || overlaps(start, end, j, length) {
			return false
		}
		if d := earlyAbandoned(span, series[j:j+length], best); d < best {
			best, nn = d, j
		}
		return best < cutoff
	}
	for _, j := range hints {
		if try(j) {
			return best, nn
		}
	}
	for j := 0; j+length <= len(series); j++ {
		if try(j) {
			return best, nn
		}
	}
	return best, nn
}

type visited []grammar.RuleInterval

func (v visited) hits(start int, end int) bool {
	for _, ri := range v {
		if start < ri.End && ri.Start < end {
			return true
		}
	}
	return false
}

// FindRRA discretizes series with p, infers a grammar over it and searches
// discords among the rule intervals and the spans no rule covers. Spans are
// visited least covered first.
func (d *Detector) FindRRA(ctx context.Context, series []float64, p patterns.Params) (*Report, error) {
	if p.Window <= 0 || 2*p.Window > len(series) {
		return nil, fmt.Errorf("%w: window %d, series length %d", ErrInvalidWindow, p.Window, len(series))
	}
	miner := &patterns.Miner{Algorithm: d.Algorithm, NormThreshold: d.NormThreshold}
	rules, err := miner.Rules(patterns.Concatenate("", [][]float64{series}), p)
	if err != nil {
		return nil, err
	}
	coverage := grammar.CoverageArray(rules, len(series))
	candidates := append(rules.AllIntervals(), grammar.ZeroIntervals(coverage)...)
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Coverage != candidates[j].Coverage {
			return candidates[i].Coverage < candidates[j].Coverage
		}
		return candidates[i].Start < candidates[j].Start
	})
	log.Printf("rra: %d rules, %d candidate intervals for %s\n", len(rules), len(candidates), p)

	report := &Report{Coverage: coverage, Candidates: len(candidates)}
	var found visited
	for rank := 1; rank <= d.discordCount(); rank++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		best := Discord{Distance: -1}
		for _, c := range candidates {
			if found.hits(c.Start, c.End) {
				continue
			}
			var hints []int
			if c.ID > 0 {
				for _, other := range rules[c.ID].Intervals {
					hints = append(hints, other.Start)
				}
			}
			dist, nn := nearestNeighbor(series, c.Start, c.End, hints, best.Distance)
			if nn < 0 || dist <= best.Distance {
				continue
			}
			best = Discord{Rank: rank, Start: c.Start, End: c.End, RuleID: c.ID,
				Coverage: c.Coverage, Distance: dist, NearestNeighbor: nn}
		}
		if best.Distance < 0 {
			break
		}
		report.Discords = append(report.Discords, best)
		found = append(found, grammar.RuleInterval{Start: best.Start, End: best.End})
		log.Printf("rra: discord %s\n", best)
	}
	return report, nil
}

func (d *Detector) discordCount() int {
	if d.Discords <= 0 {
		return 1
	}
	return d.Discords
}

// FindBruteForce compares every window of the given length with every
// non-overlapping window.
func (d *Detector) FindBruteForce(ctx context.Context, series []float64, window int) ([]Discord, error) {
	if window <= 0 || 2*window > len(series) {
		return nil, fmt.Errorf("%w: window %d, series length %d", ErrInvalidWindow, window, len(series))
	}
	var ret []Discord
	var found visited
	for rank := 1; rank <= d.discordCount(); rank++ {
		best := Discord{Distance: -1}
		for i := 0; i+window <= len(series); i++ {
			if i%100 == 0 {
				if err := ctx.Err(); err != nil {
					return ret, err
				}
			}
			if found.hits(i, i+window) {
				continue
			}
			dist, nn := nearestNeighbor(series, i, i+window, nil, best.Distance)
			if nn < 0 || dist <= best.Distance {
				continue
			}
			best = Discord{Rank: rank, Start: i, End: i + window, Distance: dist, NearestNeighbor: nn}
		}
		if best.Distance < 0 {
			break
		}
		ret = append(ret, best)
		found = append(found, grammar.RuleInterval{Start: best.Start, End: best.End})
		log.Printf("brute force: discord %s\n", best)
	}
	return ret, nil
}
