package patterns

import (
	"math"
	"sync"
)

const DEFAULT_SIMILARITY = 0.02

// Similarity is the pattern similarity threshold of one search run. It
// starts unset and collects candidate thresholds; once a classification run
// succeeds the smallest candidate is latched and stays fixed until Reset.
// It is safe for concurrent use.
//
// A child made with Point collects the candidates of one parameter point on
// its own and reads and settles the latch of its parent, so a failing point
// drops only what it contributed.
type Similarity struct {
	mu         sync.Mutex
	parent     *Similarity
	set        bool
	threshold  float64
	candidates []float64
}

func NewSimilarity() *Similarity {
	return &Similarity{}
}

// Restore returns a latched Similarity, as read back from a saved model.
func Restore(threshold float64) *Similarity {
	return &Similarity{set: true, threshold: threshold}
}

// Point returns a child of s for one parameter point.
func (s *Similarity) Point() *Similarity {
	return &Similarity{parent: s}
}

// latch is the Similarity holding the threshold.
func (s *Similarity) latch() *Similarity {
	if s.parent != nil {
		return s.parent
	}
	return s
}

func (s *Similarity) IsSet() bool {
	s = s.latch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Threshold returns the latched threshold, or DEFAULT_SIMILARITY while unset.
func (s *Similarity) Threshold() float64 {
	s = s.latch()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return DEFAULT_SIMILARITY
	}
	return s.threshold
}

// AddCandidate records a candidate. Candidates arriving after the latch has
// been set are ignored.
func (s *Similarity) AddCandidate(t float64) {
	if s.parent != nil && s.parent.IsSet() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		return
	}
	s.candidates = append(s.candidates, t)
}

func (s *Similarity) CandidateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidates)
}

// Settle latches the smallest candidate, on the parent for a child. It
// reports whether the latch is set afterwards. Candidates are cleared either
// way.
func (s *Similarity) Settle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidates := s.candidates
	s.candidates = nil

	l := s
	if s.parent != nil {
		l = s.parent
		l.mu.Lock()
		defer l.mu.Unlock()
		candidates = append(candidates, l.candidates...)
		l.candidates = nil
	}
	if !l.set && len(candidates) > 0 {
		best := math.Inf(1)
		for _, c := range candidates {
			best = math.Min(best, c)
		}
		l.threshold = best
		l.set = true
	}
	return l.set
}

// Clear drops collected candidates without touching the latch. On a child
// only the child's candidates go.
func (s *Similarity) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = nil
}

// Reset returns to the unset state for a fresh search run.
func (s *Similarity) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = false
	s.threshold = 0
	s.candidates = nil
}
