package anomaly

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shlpu/TSAT/lib/grammar"
	"github.com/shlpu/TSAT/lib/patterns"
	"github.com/shlpu/TSAT/lib/sax"
)

const (
	bumpStart = 500
	bumpEnd   = 530
)

// sineWithBump is a sine of period 50 with a gaussian bump added in
// [bumpStart, bumpEnd).
func sineWithBump() []float64 {
	series := make([]float64, 1000)
	for i := range series {
		series[i] = math.Sin(2 * math.Pi * float64(i) / 50)
		if i >= bumpStart && i < bumpEnd {
			x := float64(i-(bumpStart+bumpEnd)/2) / 6
			series[i] += 2 * math.Exp(-x*x)
		}
	}
	return series
}

func hitsBump(d Discord) bool {
	return d.Start < bumpEnd && bumpStart < d.End
}

func TestEarlyAbandoned(t *testing.T) {
	a := []float64{0, 0, 0, 0}
	b := []float64{1, 1, 1, 1}
	assert.InDelta(t, 0.5, earlyAbandoned(a, b, math.Inf(1)), 1e-12)
	assert.True(t, math.IsInf(earlyAbandoned(a, b, 0.1), 1))
	assert.Equal(t, 0.0, earlyAbandoned(a, a, 0))
}

func TestNearestNeighborSkipsSelfMatches(t *testing.T) {
	series := []float64{0, 1, 2, 0, 1, 2, 5, 5, 5}
	dist, nn := nearestNeighbor(series, 0, 3, nil, -1)
	assert.Equal(t, 0.0, dist)
	assert.Equal(t, 3, nn)

	// overlapping positions 1 and 2 are never considered
	dist, nn = nearestNeighbor([]float64{0, 0, 0, 0, 9, 9}, 0, 3, []int{1, 2}, -1)
	assert.Equal(t, 3, nn)
	assert.InDelta(t, math.Sqrt(81*2)/3, dist, 1e-12)

	_, nn = nearestNeighbor([]float64{1, 2, 3}, 0, 2, nil, -1)
	assert.Equal(t, -1, nn)
}

func TestFindBruteForce(t *testing.T) {
	d := &Detector{Discords: 2}
	discords, err := d.FindBruteForce(context.Background(), sineWithBump(), 50)
	require.NoError(t, err)
	require.Len(t, discords, 2)
	assert.True(t, hitsBump(discords[0]), "top discord %s misses the bump", discords[0])
	assert.Equal(t, 1, discords[0].Rank)
	assert.Greater(t, discords[0].Distance, discords[1].Distance)
	assert.False(t, discords[1].Start < discords[0].End && discords[0].Start < discords[1].End)
}

func TestFindRRA(t *testing.T) {
	d := &Detector{Algorithm: grammar.SEQUITUR, Discords: 3}
	p := patterns.Params{Window: 50, PAA: 5, Alphabet: 4, Strategy: sax.EXACT}
	report, err := d.FindRRA(context.Background(), sineWithBump(), p)
	require.NoError(t, err)
	require.NotEmpty(t, report.Discords)
	top := report.Discords[0]
	assert.True(t, hitsBump(top), "top discord %s misses the bump", top)
	assert.Greater(t, top.Distance, 0.0)
	assert.Len(t, report.Coverage, 1000)
	assert.Greater(t, report.Candidates, 0)
	for i := 1; i < len(report.Discords); i++ {
		assert.LessOrEqual(t, report.Discords[i].Distance, report.Discords[i-1].Distance)
	}
}

func TestFindRRARepairAgrees(t *testing.T) {
	d := &Detector{Algorithm: grammar.REPAIR}
	p := patterns.Params{Window: 50, PAA: 5, Alphabet: 4, Strategy: sax.EXACT}
	report, err := d.FindRRA(context.Background(), sineWithBump(), p)
	require.NoError(t, err)
	require.Len(t, report.Discords, 1)
	assert.True(t, hitsBump(report.Discords[0]))
}

func TestInvalidWindow(t *testing.T) {
	d := &Detector{}
	_, err := d.FindBruteForce(context.Background(), make([]float64, 10), 6)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = d.FindRRA(context.Background(), make([]float64, 10), patterns.Params{Window: 0, PAA: 2, Alphabet: 3})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := &Detector{}
	_, err := d.FindBruteForce(ctx, sineWithBump(), 50)
	assert.ErrorIs(t, err, context.Canceled)
}
