package classifier

import (
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Classifier is a supervised learner over feature rows.
type Classifier interface {
	Train(d *Dataset) error
	// Predict returns the most likely class and the class distribution.
	Predict(row []float64) (int, []float64)
}

// Factory creates an untrained classifier.
type Factory func() Classifier

// BatchPredictor is implemented by classifiers that predict many rows more
// cheaply at once.
type BatchPredictor interface {
	PredictAll(rows [][]float64) ([]int, [][]float64, error)
}

func predictAll(cls Classifier, rows [][]float64) ([]int, [][]float64, error) {
	if b, ok := cls.(BatchPredictor); ok {
		return b.PredictAll(rows)
	}
	classes := make([]int, len(rows))
	distributions := make([][]float64, len(rows))
	for i, row := range rows {
		classes[i], distributions[i] = cls.Predict(row)
	}
	return classes, distributions, nil
}

type treeNode struct {
	feature     int
	threshold   float64
	left, right *treeNode
	// class distribution, leaves only
	distribution []float64
}

func (n *treeNode) isLeaf() bool {
	return n.left == nil
}

func (n *treeNode) classify(row []float64) []float64 {
	for !n.isLeaf() {
		if row[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.distribution
}

// RandomForest is a bagged ensemble of unpruned gini trees, each split
// choosing among FeaturesPerSplit randomly drawn features.
type RandomForest struct {
	Trees int
	// 0 grows until leaves are pure.
	MaxDepth int
	// 0 uses int(log2(features)) + 1.
	FeaturesPerSplit int
	Seed             int64

	trees      []*treeNode
	numClasses int
}

func NewRandomForest(seed int64) *RandomForest {
	return &RandomForest{Trees: 100, Seed: seed}
}

// RandomForestFactory returns a Factory for forests with the given seed.
func RandomForestFactory(seed int64) Factory {
	return func() Classifier {
		return NewRandomForest(seed)
	}
}

func (rf *RandomForest) Train(d *Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	labeled := d.Labeled()
	if len(labeled) == 0 {
		return ErrNoLabels
	}
	k := rf.FeaturesPerSplit
	if k <= 0 {
		k = int(math.Log2(float64(d.Width()))) + 1
	}
	if k > d.Width() {
		k = d.Width()
	}
	trees := rf.Trees
	if trees <= 0 {
		trees = 1
	}

	rf.numClasses = d.NumClasses
	rf.trees = make([]*treeNode, trees)
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for t := 0; t < trees; t++ {
		t := t
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(rf.Seed + int64(t)))
			bag := make([]int, len(labeled))
			for i := range bag {
				bag[i] = labeled[rnd.Intn(len(labeled))]
			}
			b := &treeBuilder{data: d, k: k, maxDepth: rf.MaxDepth, rnd: rnd}
			rf.trees[t] = b.grow(bag, 0)
			return nil
		})
	}
	return g.Wait()
}

func (rf *RandomForest) Predict(row []float64) (int, []float64) {
	distribution := make([]float64, rf.numClasses)
	for _, t := range rf.trees {
		for c, p := range t.classify(row) {
			distribution[c] += p
		}
	}
	best := 0
	for c, p := range distribution {
		distribution[c] = p / float64(len(rf.trees))
		if distribution[c] > distribution[best] {
			best = c
		}
	}
	return best, distribution
}

type treeBuilder struct {
	data     *Dataset
	k        int
	maxDepth int
	rnd      *rand.Rand
}

func (b *treeBuilder) counts(rows []int) []float64 {
	ret := make([]float64, b.data.NumClasses)
	for _, r := range rows {
		ret[b.data.Classes[r]]++
	}
	return ret
}

func gini(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / total
		sum += p * p
	}
	return 1 - sum
}

func (b *treeBuilder) leaf(counts []float64, total float64) *treeNode {
	distribution := make([]float64, len(counts))
	for c, n := range counts {
		distribution[c] = n / total
	}
	return &treeNode{distribution: distribution}
}

func (b *treeBuilder) grow(rows []int, depth int) *treeNode {
	counts := b.counts(rows)
	total := float64(len(rows))
	impurity := gini(counts, total)
	if impurity == 0 || len(rows) < 2 || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return b.leaf(counts, total)
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := impurity
	// Draw features until k have been tried and one of them splits.
	for tried, f := range b.rnd.Perm(b.data.Width()) {
		if tried >= b.k && bestFeature >= 0 {
			break
		}
		if threshold, score, ok := b.bestSplit(rows, f, counts, total); ok && score < bestImpurity {
			bestFeature, bestThreshold, bestImpurity = f, threshold, score
		}
	}
	if bestFeature < 0 {
		return b.leaf(counts, total)
	}

	var left, right []int
	for _, r := range rows {
		if b.data.Features[r][bestFeature] < bestThreshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

// bestSplit scans the sorted values of feature f and returns the midpoint
// threshold with the lowest weighted gini impurity.
func (b *treeBuilder) bestSplit(rows []int, f int, counts []float64, total float64) (float64, float64, bool) {
	sorted := append([]int(nil), rows...)
	features := b.data.Features
	sort.Slice(sorted, func(i, j int) bool {
		return features[sorted[i]][f] < features[sorted[j]][f]
	})

	left := make([]float64, len(counts))
	right := append([]float64(nil), counts...)
	found := false
	bestScore := math.Inf(1)
	bestThreshold := 0.0
	for i := 0; i < len(sorted)-1; i++ {
		c := b.data.Classes[sorted[i]]
		left[c]++
		right[c]--
		v, next := features[sorted[i]][f], features[sorted[i+1]][f]
		if v == next {
			continue
		}
		nl := float64(i + 1)
		nr := total - nl
		score := (nl*gini(left, nl) + nr*gini(right, nr)) / total
		if score < bestScore {
			bestScore = score
			bestThreshold = (v + next) / 2
			found = true
		}
	}
	return bestThreshold, bestScore, found
}
