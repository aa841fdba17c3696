// Package direct implements the DIRECT (DIviding RECTangles) global
// optimizer over a box of real valued parameters.
//
// The box is normalized to the unit cube. Every rectangle is stored by its
// center and its half side lengths; the search samples the potentially
// optimal rectangles along their longest sides and trisects them.
package direct

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	DEFAULT_ITERATIONS    = 5
	DEFAULT_FAILURE_VALUE = 1.0

	// Tolerance for comparing side lengths, diagonals and function values.
	precision = 1e-12
)

var (
	ErrInvalidBounds = errors.New("direct: invalid bounds")
)

// An Evaluation is what the objective reports for one point. PerClass is
// optional; when set, the optimizer tracks the best point for every entry.
// Payload travels with the per class best points.
type Evaluation[T any] struct {
	Value    float64
	PerClass []float64
	Payload  T
}

// An Objective is minimized by the optimizer. Returning an error marks the
// point as failed; it is recorded with the failure value.
type Objective[T any] func(ctx context.Context, point []float64) (Evaluation[T], error)

// A Rectangle is one cell of the partition, in unit cube coordinates.
type Rectangle struct {
	Center   []float64
	Sides    []float64
	Diagonal float64
	Value    float64
}

func (r *Rectangle) updateDiagonal() {
	sum := 0.0
	for _, s := range r.Sides {
		sum += s * s
	}
	r.Diagonal = math.Sqrt(sum)
}

// A Sample is one evaluated point in real coordinates.
type Sample struct {
	Point  []float64
	Value  float64
	Failed bool
}

// ClassBest is the best point seen for one class.
type ClassBest[T any] struct {
	Value   float64
	Point   []float64
	Payload T
}

type Result[T any] struct {
	Best Sample
	// Minimum value after each iteration, starting with the center sample.
	History      []float64
	Samples      []Sample
	BestPerClass []ClassBest[T]
	Iterations   int
}

// Optimizer minimizes an objective over [Lower, Upper].
type Optimizer[T any] struct {
	Lower []float64
	Upper []float64
	// Number of dividing iterations. Zero means DEFAULT_ITERATIONS.
	Iterations int
	// Stop after this many iterations without improvement. Zero disables.
	EarlyStop int
	// Evaluate the samples of one rectangle concurrently.
	Parallel bool
	// Value recorded for failed evaluations. Zero means DEFAULT_FAILURE_VALUE.
	FailureValue float64
	// Called with iteration 0 after the center sample and after every
	// iteration. Samples added since the previous call start at from.
	OnIteration func(iteration int, from int, result *Result[T])

	rects  []*Rectangle
	result *Result[T]
}

func (o *Optimizer[T]) dimensions() int {
	return len(o.Lower)
}

func (o *Optimizer[T]) checkBounds() error {
	if len(o.Lower) == 0 || len(o.Lower) != len(o.Upper) {
		return fmt.Errorf("%w: %d lower and %d upper bounds", ErrInvalidBounds, len(o.Lower), len(o.Upper))
	}
	for i := range o.Lower {
		if o.Upper[i] < o.Lower[i] {
			return fmt.Errorf("%w: dimension %d has lower %f > upper %f", ErrInvalidBounds, i, o.Lower[i], o.Upper[i])
		}
	}
	return nil
}

// toReal maps a unit cube point into the search box.
func (o *Optimizer[T]) toReal(c []float64) []float64 {
	x := make([]float64, len(c))
	for i := range c {
		x[i] = o.Lower[i] + c[i]*(o.Upper[i]-o.Lower[i])
	}
	return x
}

func (o *Optimizer[T]) failureValue() float64 {
	if o.FailureValue == 0 {
		return DEFAULT_FAILURE_VALUE
	}
	return o.FailureValue
}

type outcome[T any] struct {
	point []float64
	eval  Evaluation[T]
	err   error
}

func (o *Optimizer[T]) evaluate(ctx context.Context, f Objective[T], center []float64) outcome[T] {
	x := o.toReal(center)
	eval, err := f(ctx, x)
	return outcome[T]{point: x, eval: eval, err: err}
}

// record folds one outcome into the result and returns the value to store
// for the sampled rectangle.
func (o *Optimizer[T]) record(out outcome[T]) float64 {
	s := Sample{Point: out.point, Value: out.eval.Value}
	if out.err != nil || math.IsNaN(out.eval.Value) {
		s.Value = o.failureValue()
		s.Failed = true
	}
	o.result.Samples = append(o.result.Samples, s)
	if !s.Failed {
		o.updateBest(out)
	}
	if len(o.result.Samples) == 1 || s.Value < o.result.Best.Value {
		o.result.Best = s
	}
	return s.Value
}

func (o *Optimizer[T]) updateBest(out outcome[T]) {
	for len(o.result.BestPerClass) < len(out.eval.PerClass) {
		o.result.BestPerClass = append(o.result.BestPerClass, ClassBest[T]{Value: math.Inf(1)})
	}
	for i, v := range out.eval.PerClass {
		if v < o.result.BestPerClass[i].Value {
			o.result.BestPerClass[i] = ClassBest[T]{Value: v, Point: out.point, Payload: out.eval.Payload}
		}
	}
}

// Minimize runs the search. The context is checked between iterations.
func (o *Optimizer[T]) Minimize(ctx context.Context, f Objective[T]) (*Result[T], error) {
	if err := o.checkBounds(); err != nil {
		return nil, err
	}
	iterations := o.Iterations
	if iterations <= 0 {
		iterations = DEFAULT_ITERATIONS
	}

	n := o.dimensions()
	first := &Rectangle{Center: make([]float64, n), Sides: make([]float64, n)}
	for i := 0; i < n; i++ {
		first.Center[i] = 0.5
		first.Sides[i] = 0.5
	}
	first.updateDiagonal()
	o.rects = []*Rectangle{first}
	o.result = &Result[T]{}
	first.Value = o.record(o.evaluate(ctx, f, first.Center))
	o.result.History = append(o.result.History, o.result.Best.Value)
	o.notify(0, 0)

	stale := 0
	for it := 1; it <= iterations; it++ {
		if err := ctx.Err(); err != nil {
			return o.result, err
		}
		before := o.result.Best.Value
		from := len(o.result.Samples)
		for _, j := range o.potentiallyOptimal() {
			if err := o.divide(ctx, f, o.rects[j]); err != nil {
				return o.result, err
			}
		}
		o.result.Iterations = it
		o.result.History = append(o.result.History, o.result.Best.Value)
		log.Printf("direct: iteration %d minimum %f at %v, %d rectangles\n",
			it, o.result.Best.Value, o.result.Best.Point, len(o.rects))
		o.notify(it, from)

		if o.result.Best.Value < before {
			stale = 0
		} else {
			stale++
		}
		if o.EarlyStop > 0 && stale >= o.EarlyStop {
			log.Printf("direct: no improvement for %d iterations, stopping\n", stale)
			break
		}
	}
	return o.result, nil
}

func (o *Optimizer[T]) notify(iteration int, from int) {
	if o.OnIteration != nil {
		o.OnIteration(iteration, from, o.result)
	}
}

// divide samples r at center ± delta along each of its longest sides and
// trisects it, splitting first along the side whose better sample is lowest.
func (o *Optimizer[T]) divide(ctx context.Context, f Objective[T], r *Rectangle) error {
	maxSide := 0.0
	for _, s := range r.Sides {
		maxSide = math.Max(maxSide, s)
	}
	var dims []int
	for i, s := range r.Sides {
		if math.Abs(s-maxSide) <= precision {
			dims = append(dims, i)
		}
	}
	delta := 2 * maxSide / 3

	centers := make([][]float64, 2*len(dims))
	for k, d := range dims {
		plus := append([]float64(nil), r.Center...)
		minus := append([]float64(nil), r.Center...)
		plus[d] += delta
		minus[d] -= delta
		centers[2*k] = plus
		centers[2*k+1] = minus
	}

	outcomes := make([]outcome[T], len(centers))
	if o.Parallel {
		g := new(errgroup.Group)
		for i := range centers {
			i := i
			g.Go(func() error {
				outcomes[i] = o.evaluate(ctx, f, centers[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i := range centers {
			outcomes[i] = o.evaluate(ctx, f, centers[i])
		}
	}

	values := make([]float64, len(centers))
	for i, out := range outcomes {
		values[i] = o.record(out)
	}

	order := make([]int, len(dims))
	w := make([]float64, len(dims))
	for k := range dims {
		order[k] = k
		w[k] = math.Min(values[2*k], values[2*k+1])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return w[order[a]] < w[order[b]]
	})

	for _, k := range order {
		r.Sides[dims[k]] = delta / 2
		for _, c := range []int{2 * k, 2*k + 1} {
			child := &Rectangle{
				Center: centers[c],
				Sides:  append([]float64(nil), r.Sides...),
				Value:  values[c],
			}
			child.updateDiagonal()
			o.rects = append(o.rects, child)
		}
	}
	r.updateDiagonal()
	return nil
}

type hullPoint struct {
	diagonal float64
	value    float64
}

// potentiallyOptimal returns the indexes of the rectangles to divide next.
func (o *Optimizer[T]) potentiallyOptimal() []int {
	fmin := math.Inf(1)
	for _, r := range o.rects {
		fmin = math.Min(fmin, r.Value)
	}
	epsilon := math.Max(1e-4*math.Abs(fmin), 1e-8)

	best := 0
	bestScore := math.Inf(1)
	for i, r := range o.rects {
		score := (r.Value - fmin + epsilon) / r.Diagonal
		if score < bestScore {
			best = i
			bestScore = score
		}
	}

	// Distinct diagonals at least as long as the chosen one, ascending, with
	// the lowest value per diagonal.
	var levels []hullPoint
	for _, r := range o.rects {
		if r.Diagonal < o.rects[best].Diagonal-precision {
			continue
		}
		found := false
		for l := range levels {
			if math.Abs(levels[l].diagonal-r.Diagonal) <= precision {
				levels[l].value = math.Min(levels[l].value, r.Value)
				found = true
				break
			}
		}
		if !found {
			levels = append(levels, hullPoint{r.Diagonal, r.Value})
		}
	}
	sort.Slice(levels, func(a, b int) bool { return levels[a].diagonal < levels[b].diagonal })

	levelOf := func(r *Rectangle) int {
		for l := range levels {
			if math.Abs(levels[l].diagonal-r.Diagonal) <= precision {
				return l
			}
		}
		return -1
	}

	var candidates []int
	for i, r := range o.rects {
		l := levelOf(r)
		if l >= 0 && r.Value <= levels[l].value+precision {
			candidates = append(candidates, i)
		}
	}
	if len(levels) <= 2 {
		return candidates
	}

	// Keep the candidates on or below the line from the chosen rectangle to
	// the best rectangle of the longest diagonal.
	a := o.rects[best]
	last := levels[len(levels)-1]
	slope := (last.value - a.Value) / (last.diagonal - a.Diagonal)
	intercept := a.Value - slope*a.Diagonal
	var below []int
	for _, i := range candidates {
		r := o.rects[i]
		if r.Value <= slope*r.Diagonal+intercept+precision {
			below = append(below, i)
		}
	}
	if len(below) == 0 {
		return candidates
	}

	points := make([]hullPoint, 0, len(below))
	for _, i := range below {
		points = append(points, hullPoint{o.rects[i].Diagonal, o.rects[i].Value})
	}
	sort.SliceStable(points, func(x, y int) bool { return points[x].diagonal < points[y].diagonal })
	hull := lowerHull(points)

	var ret []int
	for _, i := range below {
		p := hullPoint{o.rects[i].Diagonal, o.rects[i].Value}
		for _, h := range hull {
			if samePoint(h, p) {
				ret = append(ret, i)
				break
			}
		}
	}
	return ret
}

func samePoint(a, b hullPoint) bool {
	return math.Abs(a.diagonal-b.diagonal) <= precision && math.Abs(a.value-b.value) <= precision
}

// lowerHull returns the lower convex hull of points sorted by diagonal.
// Collinear points stay on the hull.
func lowerHull(points []hullPoint) []hullPoint {
	var hull []hullPoint
	for _, p := range points {
		if len(hull) > 0 && samePoint(hull[len(hull)-1], p) {
			continue
		}
		for len(hull) >= 2 {
			o, a := hull[len(hull)-2], hull[len(hull)-1]
			cross := (a.diagonal-o.diagonal)*(p.value-o.value) - (a.value-o.value)*(p.diagonal-o.diagonal)
			if cross >= -precision {
				break
			}
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull
}
