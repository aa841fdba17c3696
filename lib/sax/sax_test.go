package sax

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalCuts(t *testing.T) {
	cuts, err := NormalCuts(3)
	require.NoError(t, err)
	require.Len(t, cuts, 2)
	assert.InDelta(t, -0.4307273, cuts[0], 1e-6)
	assert.InDelta(t, 0.4307273, cuts[1], 1e-6)

	cuts, err = NormalCuts(4)
	require.NoError(t, err)
	assert.InDelta(t, -0.6744898, cuts[0], 1e-6)
	assert.Equal(t, 0.0, cuts[1])
	assert.InDelta(t, 0.6744898, cuts[2], 1e-6)

	_, err = NormalCuts(1)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestValidateCuts(t *testing.T) {
	assert.NoError(t, ValidateCuts([]float64{-1, 0, 1}))
	assert.ErrorIs(t, ValidateCuts([]float64{0, 0}), ErrInvalidParameter)
	assert.ErrorIs(t, ValidateCuts(nil), ErrInvalidParameter)
}

func TestNumToLetter(t *testing.T) {
	cuts := []float64{-0.43, 0.43}
	assert.Equal(t, byte('a'), NumToLetter(-1.0, cuts))
	assert.Equal(t, byte('b'), NumToLetter(0.0, cuts))
	assert.Equal(t, byte('b'), NumToLetter(-0.43, cuts))
	assert.Equal(t, byte('c'), NumToLetter(2.0, cuts))
}

func TestMinDistIsZero(t *testing.T) {
	assert.True(t, MinDistIsZero("abc", "bbd"))
	assert.False(t, MinDistIsZero("abc", "cbc"))
	assert.False(t, MinDistIsZero("ab", "abc"))
}

func TestParseStrategy(t *testing.T) {
	for _, tc := range []struct {
		name     string
		expected Strategy
	}{
		{"none", NONE},
		{"EXACT", EXACT},
		{"", EXACT},
		{"MinDist", MINDIST},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := ParseStrategy(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}
	_, err := ParseStrategy("bogus")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDiscretizeErrors(t *testing.T) {
	cuts, _ := NormalCuts(3)
	_, err := Discretize(nil, 4, 2, cuts, EXACT, 0.005)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Discretize([]float64{1, 2, 3, 4, 5}, 3, 4, cuts, EXACT, 0.005)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Discretize([]float64{1, 2, 3}, 3, 2, []float64{0.5, 0.1}, EXACT, 0.005)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Discretize([]float64{1, math.NaN(), 3, 4}, 2, 2, cuts, EXACT, 0.005)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = Discretize([]float64{1, 2, math.Inf(-1), 4}, 0, 2, cuts, EXACT, 0.005)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestDiscretizeSlidingWindow(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	cuts, _ := NormalCuts(3)

	records, err := Discretize(series, 4, 2, cuts, NONE, 0.005)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, "ac", r.Word)
		assert.Equal(t, i, r.Index)
	}

	records, err = Discretize(series, 4, 2, cuts, EXACT, 0.005)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{Word: "ac", Index: 0}, records[0])
}

func TestDiscretizeKeepsEarliestAnchor(t *testing.T) {
	series := []float64{0, 0, 0, 0, 5, 0, 0, 0, 0}
	cuts, _ := NormalCuts(4)
	records, err := Discretize(series, 3, 3, cuts, EXACT, 0.005)
	require.NoError(t, err)

	// Flat windows become "ccc" (zero sits on the middle cut), the windows
	// covering the spike differ from each other.
	for i := 1; i < len(records); i++ {
		assert.NotEqual(t, records[i-1].Word, records[i].Word)
		assert.Less(t, records[i-1].Index, records[i].Index)
	}
	assert.Equal(t, 0, records[0].Index)
}

func TestDiscretizeByChunking(t *testing.T) {
	series := []float64{1, 1, 1, 1, 9, 9, 9, 9}
	cuts, _ := NormalCuts(3)
	records, err := Discretize(series, 0, 4, cuts, NONE, 0.005)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "aacc", records.SAXString(""))
	assert.Equal(t, []int{0, 2, 4, 6}, records.Indexes())

	records, err = Discretize(series, 0, 4, cuts, EXACT, 0.005)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, records.Indexes())
}

func TestDiscretizeParallelMatchesSequential(t *testing.T) {
	series := make([]float64, 500)
	for i := range series {
		series[i] = math.Sin(float64(i)/7.0) + 0.3*math.Cos(float64(i)/3.0)
	}
	cuts, _ := NormalCuts(5)
	for _, strategy := range []Strategy{NONE, EXACT, MINDIST} {
		t.Run(strategy.String(), func(t *testing.T) {
			sequential, err := Discretize(series, 30, 5, cuts, strategy, 0.005)
			require.NoError(t, err)
			parallel, err := DiscretizeParallel(context.Background(), series, 4, 30, 5, cuts, strategy, 0.005)
			require.NoError(t, err)
			assert.Equal(t, sequential, parallel)
		})
	}
}
