package rpm

import (
	"fmt"

	"github.com/shlpu/TSAT/lib/classifier"
	"github.com/shlpu/TSAT/lib/dataset"
	"github.com/shlpu/TSAT/lib/distance"
	"github.com/shlpu/TSAT/lib/patterns"
)

// A SeriesRef locates one series of a labeled dataset.
type SeriesRef struct {
	Label string `json:"label"`
	Index int    `json:"index"`
}

// features is a dataset with one row per series and one column per pattern.
type features struct {
	data *classifier.Dataset
	refs []SeriesRef
}

// longerFirst measures the best match of the shorter argument inside the
// longer one.
func longerFirst(dist distance.Func, ts []float64, p []float64) float64 {
	if len(p) > len(ts) {
		return dist(p, ts)
	}
	return dist(ts, p)
}

// transform computes the distance of every series to every pattern. Rows
// follow labels, then load order. Series labeled UNLABELED get the
// classifier.Unlabeled class; any other label must be in classIDs.
func transform(pats []patterns.TSPattern, data dataset.Labeled, labels []string,
	classIDs map[string]int, dist distance.Func) (*features, error) {
	ret := &features{data: &classifier.Dataset{NumClasses: len(classIDs)}}
	for _, label := range labels {
		class := classifier.Unlabeled
		if label != dataset.UNLABELED {
			id, ok := classIDs[label]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
			}
			class = id
		}
		for i, ts := range data[label] {
			row := make([]float64, len(pats))
			for j, p := range pats {
				row[j] = longerFirst(dist, ts, p.Values)
			}
			ret.data.Features = append(ret.data.Features, row)
			ret.data.Classes = append(ret.data.Classes, class)
			ret.refs = append(ret.refs, SeriesRef{Label: label, Index: i})
		}
	}
	return ret, nil
}

// refinePatterns drops patterns closer than threshold to a pattern already
// kept. Of two such patterns the more frequent one survives and moves to
// the end.
func refinePatterns(all []patterns.TSPattern, threshold float64) []patterns.TSPattern {
	var refined []patterns.TSPattern
outer:
	for _, p := range all {
		for i, good := range refined {
			d := longerFirst(distance.BestMatchEuclidean, p.Values, good.Values)
			if d < threshold {
				if good.Frequency < p.Frequency {
					refined = append(refined[:i], refined[i+1:]...)
					refined = append(refined, p)
				}
				continue outer
			}
		}
		refined = append(refined, p)
	}
	return refined
}

func pick(pats []patterns.TSPattern, indexes []int) []patterns.TSPattern {
	ret := make([]patterns.TSPattern, len(indexes))
	for i, idx := range indexes {
		ret[i] = pats[idx]
	}
	return ret
}
