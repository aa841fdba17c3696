// Package sax turns real valued series into sequences of SAX words.
package sax

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shlpu/TSAT/lib/paa"
)

var (
	ErrInvalidParameter = errors.New("sax: invalid parameter")
	ErrEmptyInput       = errors.New("sax: empty input series")
)

// Strategy selects how consecutive duplicate words are collapsed.
type Strategy int

const (
	NONE Strategy = iota
	EXACT
	MINDIST
)

func (s Strategy) String() string {
	switch s {
	case NONE:
		return "NONE"
	case EXACT:
		return "EXACT"
	case MINDIST:
		return "MINDIST"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "NONE":
		return NONE, nil
	case "", "EXACT":
		return EXACT, nil
	case "MINDIST":
		return MINDIST, nil
	}
	return NONE, fmt.Errorf("%w: unknown numerosity reduction strategy %q", ErrInvalidParameter, name)
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// A Record is one emitted word together with the index of the first series
// value its window covers.
type Record struct {
	Word  string
	Index int
}

// Records are ordered by Index.
type Records []Record

func (r Records) Words() []string {
	ret := make([]string, len(r))
	for i, rec := range r {
		ret[i] = rec.Word
	}
	return ret
}

func (r Records) Indexes() []int {
	ret := make([]int, len(r))
	for i, rec := range r {
		ret[i] = rec.Index
	}
	return ret
}

// SAXString joins the words with sep.
func (r Records) SAXString(sep string) string {
	return strings.Join(r.Words(), sep)
}

func checkParameters(series []float64, windowSize int, paaSize int, cuts []float64) error {
	if len(series) == 0 {
		return ErrEmptyInput
	}
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %v at %d", ErrInvalidParameter, v, i)
		}
	}
	if err := ValidateCuts(cuts); err != nil {
		return err
	}
	if paaSize < 1 {
		return fmt.Errorf("%w: paa size %d", ErrInvalidParameter, paaSize)
	}
	if windowSize > 0 {
		if paaSize > windowSize {
			return fmt.Errorf("%w: paa size %d exceeds window size %d", ErrInvalidParameter, paaSize, windowSize)
		}
		if windowSize > len(series) {
			return fmt.Errorf("%w: window size %d exceeds series length %d", ErrInvalidParameter, windowSize, len(series))
		}
	} else if paaSize > len(series) {
		return fmt.Errorf("%w: paa size %d exceeds series length %d", ErrInvalidParameter, paaSize, len(series))
	}
	return nil
}

func toWord(values []float64, cuts []float64) string {
	word := make([]byte, len(values))
	for i, v := range values {
		word[i] = NumToLetter(v, cuts)
	}
	return string(word)
}

// windowWord normalizes a copy of the window, reduces it and maps it to letters.
func windowWord(window []float64, paaSize int, cuts []float64, normThreshold float64) (string, error) {
	normalized := paa.Normalized(window, normThreshold)
	reduced, err := paa.PAA(normalized, paaSize)
	if err != nil {
		return "", err
	}
	return toWord(reduced, cuts), nil
}

// skip reports whether current collapses into previous under strategy.
func (s Strategy) skip(previous string, current string) bool {
	switch s {
	case EXACT:
		return previous == current
	case MINDIST:
		return MinDistIsZero(previous, current)
	}
	return false
}

// reduce applies numerosity reduction to words whose anchors are indexes.
func reduce(words []string, indexes []int, strategy Strategy) Records {
	ret := make(Records, 0, len(words))
	previous := ""
	for i, w := range words {
		if i > 0 && strategy.skip(previous, w) {
			continue
		}
		previous = w
		ret = append(ret, Record{Word: w, Index: indexes[i]})
	}
	return ret
}

// Discretize converts series into SAX words.
// With windowSize > 0 a window slides by one index and every window becomes
// one word of paaSize letters. With windowSize <= 0 the whole series is
// normalized once and cut into paaSize disjoint blocks, one letter each.
func Discretize(series []float64, windowSize int, paaSize int, cuts []float64,
	strategy Strategy, normThreshold float64) (Records, error) {
	if err := checkParameters(series, windowSize, paaSize, cuts); err != nil {
		return nil, err
	}
	if windowSize <= 0 {
		return discretizeByChunking(series, paaSize, cuts, strategy, normThreshold)
	}

	count := len(series) - windowSize + 1
	words := make([]string, count)
	indexes := make([]int, count)
	for i := 0; i < count; i++ {
		w, err := windowWord(series[i:i+windowSize], paaSize, cuts, normThreshold)
		if err != nil {
			return nil, err
		}
		words[i] = w
		indexes[i] = i
	}
	return reduce(words, indexes, strategy), nil
}

func discretizeByChunking(series []float64, paaSize int, cuts []float64,
	strategy Strategy, normThreshold float64) (Records, error) {
	normalized := paa.Normalized(series, normThreshold)
	reduced, err := paa.PAA(normalized, paaSize)
	if err != nil {
		return nil, err
	}
	words := make([]string, paaSize)
	indexes := make([]int, paaSize)
	for i, v := range reduced {
		words[i] = string([]byte{NumToLetter(v, cuts)})
		indexes[i] = ChunkStart(i, len(series), paaSize)
	}
	return reduce(words, indexes, strategy), nil
}

// ChunkStart is the first series index of the i-th of paaSize chunks.
func ChunkStart(i int, seriesLength int, paaSize int) int {
	return i * seriesLength / paaSize
}
