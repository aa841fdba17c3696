package patterns

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/shlpu/TSAT/lib/grammar"
)

const minClusterShare = 0.3

// dendrogram is a node of an agglomerative clustering. Leaves carry the index
// of the clustered item.
type dendrogram struct {
	left, right *dendrogram
	height      float64
	item        int
}

func (d *dendrogram) isLeaf() bool {
	return d.left == nil
}

func (d *dendrogram) items() []int {
	var ret []int
	stack := []*dendrogram{d}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.isLeaf() {
			ret = append(ret, n.item)
			continue
		}
		stack = append(stack, n.right, n.left)
	}
	return ret
}

// averageLinkage clusters the items of dist bottom up, always merging the
// closest pair and updating distances to the merged cluster with the size
// weighted mean.
func averageLinkage(dist *mat.SymDense) *dendrogram {
	n := dist.SymmetricDim()
	d := mat.NewSymDense(n, nil)
	d.CopySym(dist)

	nodes := make([]*dendrogram, n)
	sizes := make([]float64, n)
	active := make([]bool, n)
	for i := range nodes {
		nodes[i] = &dendrogram{item: i}
		sizes[i] = 1
		active[i] = true
	}

	for merge := 0; merge < n-1; merge++ {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if v := d.At(i, j); bi < 0 || v < best {
					best, bi, bj = v, i, j
				}
			}
		}
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			merged := (sizes[bi]*d.At(bi, k) + sizes[bj]*d.At(bj, k)) / (sizes[bi] + sizes[bj])
			d.SetSym(bi, k, merged)
		}
		nodes[bi] = &dendrogram{left: nodes[bi], right: nodes[bj], height: best, item: -1}
		sizes[bi] += sizes[bj]
		active[bj] = false
	}
	return nodes[0]
}

// cutTree returns the clusters of more than minSize items found by descending
// from root through every node higher than cut.
func cutTree(root *dendrogram, cut float64, minSize int) [][]int {
	var ret [][]int
	stack := []*dendrogram{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.isLeaf() {
			continue
		}
		if n.height > cut {
			stack = append(stack, n.right, n.left)
			continue
		}
		if items := n.items(); len(items) > minSize {
			ret = append(ret, items)
		}
	}
	return ret
}

// relaxedCut cuts root at half its height and raises the cut until some
// cluster is large enough. The cut never passes root, so a non finite or
// vanishing height ends the search too.
func relaxedCut(root *dendrogram, minSize int) [][]int {
	cut := root.height / 2
	clusters := cutTree(root, cut, minSize)
	for len(clusters) == 0 && cut < root.height {
		if cut <= 0 {
			cut = root.height
		} else {
			cut += cut / 2
		}
		clusters = cutTree(root, cut, minSize)
	}
	return clusters
}

// location is a representative occurrence: start, length and frequency.
type location struct {
	start, length, frequency int
}

// representatives clusters the occurrences of one bucket and returns the
// centroid of every sufficiently large cluster.
func representatives(series []float64, rp *RepeatedPattern, mode FrequencyMode, startingPositions []int) []location {
	n := len(rp.Sequences)
	if n < 2 {
		return nil
	}
	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		a := slice(series, rp.Sequences[i])
		for j := i + 1; j < n; j++ {
			dist.SetSym(i, j, longerFirst(a, slice(series, rp.Sequences[j])))
		}
	}

	root := averageLinkage(dist)
	minSize := int(minClusterShare * float64(n))
	if minSize < 1 {
		minSize = 1
	}
	clusters := relaxedCut(root, minSize)

	ret := make([]location, 0, len(clusters))
	for _, members := range clusters {
		best := -1
		bestSum := math.Inf(1)
		intervals := make([]grammar.RuleInterval, len(members))
		for k, mk := range members {
			intervals[k] = rp.Sequences[mk]
			sum := 0.0
			for _, mm := range members {
				sum += dist.At(mk, mm)
			}
			if best < 0 || sum < bestSum {
				best, bestSum = mk, sum
			}
		}
		frequency := len(members)
		if mode == DistinctSeries {
			frequency = DistinctSeriesCount(intervals, startingPositions)
		}
		centroid := rp.Sequences[best]
		ret = append(ret, location{start: centroid.Start, length: centroid.Length(), frequency: frequency})
	}
	return ret
}
