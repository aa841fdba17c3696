package sax

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	MIN_ALPHABET_SIZE = 2
	MAX_ALPHABET_SIZE = 26
)

// NormalCuts returns the alphabetSize-1 breakpoints that divide the standard
// normal distribution into alphabetSize equiprobable regions.
func NormalCuts(alphabetSize int) ([]float64, error) {
	if alphabetSize < MIN_ALPHABET_SIZE || alphabetSize > MAX_ALPHABET_SIZE {
		return nil, fmt.Errorf("%w: alphabet size %d not in [%d, %d]",
			ErrInvalidParameter, alphabetSize, MIN_ALPHABET_SIZE, MAX_ALPHABET_SIZE)
	}
	cuts := make([]float64, alphabetSize-1)
	for i := range cuts {
		cuts[i] = distuv.UnitNormal.Quantile(float64(i+1) / float64(alphabetSize))
	}
	// The middle cut of an even alphabet is exactly zero.
	if alphabetSize%2 == 0 {
		cuts[alphabetSize/2-1] = 0.0
	}
	return cuts, nil
}

// ValidateCuts checks that cuts are strictly increasing and fit the alphabet.
func ValidateCuts(cuts []float64) error {
	if len(cuts)+1 < MIN_ALPHABET_SIZE || len(cuts)+1 > MAX_ALPHABET_SIZE {
		return fmt.Errorf("%w: %d cuts give an alphabet of size %d",
			ErrInvalidParameter, len(cuts), len(cuts)+1)
	}
	for i := 1; i < len(cuts); i++ {
		if cuts[i] <= cuts[i-1] {
			return fmt.Errorf("%w: cuts are not monotonic at %d", ErrInvalidParameter, i)
		}
	}
	return nil
}

// NumToLetter maps value to the letter of the region it falls into.
func NumToLetter(value float64, cuts []float64) byte {
	count := 0
	for count < len(cuts) && cuts[count] <= value {
		count++
	}
	return byte('a' + count)
}

// MinDistIsZero reports whether two equal-length words are at SAX MINDIST zero,
// which is the case when no pair of letters is more than one region apart.
func MinDistIsZero(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		diff := int(a[i]) - int(b[i])
		if diff > 1 || diff < -1 {
			return false
		}
	}
	return true
}
