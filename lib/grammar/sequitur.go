// Package grammar infers context free grammars over SAX word sequences
// (Sequitur and RePair) and maps their rules back onto series intervals.
/*
	http://www.sequitur.info/
	https://en.wikipedia.org/wiki/Sequitur_algorithm
*/
package grammar

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyGrammar = errors.New("grammar: empty input sequence")
)

const (
	noLink int32 = -1

	// Rule references and guards live in their own value ranges so that they
	// never collide with terminal ids in the digram table.
	ruleFlag  uint64 = 1 << 63
	guardFlag uint64 = 1 << 62
)

// symbol is one node of a rule body. Rule bodies are rings closed by a guard
// node; links are indexes into Grammar.nodes.
type symbol struct {
	next, prev int32
	value      uint64
	// The referenced rule for non-terminals, the owning rule for guards,
	// noLink for terminals.
	rule  int32
	guard bool
	// A word straddling two concatenated series. It never starts or ends a
	// digram.
	escape bool
}

type rule struct {
	guard int32
	count int
}

type digram struct{ one, two uint64 }

// Grammar is a constructed grammar. Nodes are never reused once unlinked, so
// an index stored in the digram table always refers to the node it was
// stored for.
type Grammar struct {
	nodes []symbol
	// Indexed by internal rule id; nil once a rule has been inlined.
	rules []*rule
	table map[digram]int32

	terminals   []string
	terminalIDs map[string]uint64
	inputLength int
}

func newGrammar(sizeHint int) *Grammar {
	return &Grammar{
		nodes:       make([]symbol, 0, 2*sizeHint+8),
		table:       make(map[digram]int32, sizeHint),
		terminalIDs: make(map[string]uint64),
	}
}

func (g *Grammar) terminalID(word string) uint64 {
	id, ok := g.terminalIDs[word]
	if !ok {
		id = uint64(len(g.terminals))
		g.terminals = append(g.terminals, word)
		g.terminalIDs[word] = id
	}
	return id
}

func (g *Grammar) newNode(value uint64, r int32, guard bool) int32 {
	g.nodes = append(g.nodes, symbol{next: noLink, prev: noLink, value: value, rule: r, guard: guard})
	return int32(len(g.nodes) - 1)
}

func (g *Grammar) newRule() int32 {
	id := int32(len(g.rules))
	r := &rule{}
	g.rules = append(g.rules, r)
	guard := g.newNode(guardFlag|uint64(id), id, true)
	g.nodes[guard].next = guard
	g.nodes[guard].prev = guard
	r.guard = guard
	return id
}

func (g *Grammar) first(r int32) int32 { return g.nodes[g.rules[r].guard].next }
func (g *Grammar) last(r int32) int32  { return g.nodes[g.rules[r].guard].prev }

func (g *Grammar) newTerminal(t uint64) int32 {
	return g.newNode(t, noLink, false)
}

func (g *Grammar) newReference(r int32) int32 {
	g.rules[r].count++
	return g.newNode(ruleFlag|uint64(r), r, false)
}

func (g *Grammar) copySymbol(s int32) int32 {
	if g.isNonTerminal(s) {
		return g.newReference(g.nodes[s].rule)
	}
	return g.newTerminal(g.nodes[s].value)
}

func (g *Grammar) isGuard(s int32) bool { return g.nodes[s].guard }

func (g *Grammar) stops(s int32) bool { return g.nodes[s].guard || g.nodes[s].escape }

func (g *Grammar) isNonTerminal(s int32) bool {
	return !g.nodes[s].guard && g.nodes[s].rule != noLink
}

func (g *Grammar) next(s int32) int32 { return g.nodes[s].next }
func (g *Grammar) prev(s int32) int32 { return g.nodes[s].prev }

// join links left to right. When left already had a successor, the digram it
// started is dropped, and runs of three equal symbols get their remaining
// digram re-registered.
func (g *Grammar) join(left int32, right int32) {
	if g.nodes[left].next != noLink {
		g.deleteDigram(left)

		r := g.nodes[right]
		if r.prev != noLink && r.next != noLink &&
			r.value == g.nodes[r.prev].value &&
			r.value == g.nodes[r.next].value {
			g.insertDigram(right)
		}

		l := g.nodes[left]
		if l.prev != noLink && l.next != noLink &&
			l.value == g.nodes[l.next].value &&
			l.value == g.nodes[l.prev].value {
			g.insertDigram(l.prev)
		}
	}
	g.nodes[left].next = right
	g.nodes[right].prev = left
}

func (g *Grammar) insertAfter(s int32, y int32) {
	g.join(y, g.nodes[s].next)
	g.join(s, y)
}

// deleteSymbol unlinks s from its rule body.
func (g *Grammar) deleteSymbol(s int32) {
	n := g.nodes[s]
	g.join(n.prev, n.next)
	if n.guard {
		return
	}
	g.deleteDigram(s)
	if g.isNonTerminal(s) {
		g.rules[n.rule].count--
	}
}

func (g *Grammar) key(s int32) digram {
	return digram{g.nodes[s].value, g.nodes[g.nodes[s].next].value}
}

func (g *Grammar) insertDigram(s int32) {
	if g.stops(s) || g.stops(g.next(s)) {
		return
	}
	g.table[g.key(s)] = s
}

func (g *Grammar) deleteDigram(s int32) {
	if g.stops(s) || g.stops(g.next(s)) {
		return
	}
	d := g.key(s)
	if m, ok := g.table[d]; ok && m == s {
		delete(g.table, d)
	}
}

// check enforces digram uniqueness for the digram starting at s. It returns
// true when the digram was already known.
func (g *Grammar) check(s int32) bool {
	if g.stops(s) || g.stops(g.next(s)) {
		return false
	}
	x, ok := g.table[g.key(s)]
	if !ok {
		g.insertDigram(s)
		return false
	}
	if x == s {
		return false
	}
	// Overlapping occurrences such as "aaa" are left alone.
	if g.next(x) != s {
		g.match(s, x)
	}
	return true
}

// expand inlines the rule referenced by s and drops that rule.
func (g *Grammar) expand(s int32) {
	left := g.prev(s)
	right := g.next(s)
	r := g.nodes[s].rule
	f := g.first(r)
	l := g.last(r)

	g.deleteDigram(s)

	g.join(left, f)
	g.join(l, right)

	g.insertDigram(l)
	g.rules[r] = nil
}

// substitute replaces the digram starting at s with a reference to r.
func (g *Grammar) substitute(s int32, r int32) {
	q := g.prev(s)

	g.deleteSymbol(g.next(q))
	g.deleteSymbol(g.next(q))

	g.insertAfter(q, g.newReference(r))

	if !g.check(q) {
		g.check(g.next(q))
	}
}

// match handles a repeated digram: s is the new occurrence, m the one already
// in the table.
func (g *Grammar) match(s int32, m int32) {
	var r int32

	if g.isGuard(g.prev(m)) && g.isGuard(g.next(g.next(m))) {
		// m is the complete body of an existing rule, reuse it.
		r = g.nodes[g.prev(m)].rule
		g.substitute(s, r)
	} else {
		r = g.newRule()

		g.insertAfter(g.last(r), g.copySymbol(s))
		g.insertAfter(g.last(r), g.copySymbol(g.next(s)))

		g.substitute(m, r)
		g.substitute(s, r)

		g.insertDigram(g.first(r))
	}

	// Rule utility: a rule referenced only from r's body is inlined.
	f, l := g.first(r), g.last(r)
	if g.isNonTerminal(f) && g.rules[g.nodes[f].rule].count == 1 {
		g.expand(f)
	}
	if l != f && g.isNonTerminal(l) && g.rules[g.nodes[l].rule].count == 1 {
		g.expand(l)
	}
}

// Boundaries describe where concatenated series meet. A word whose window
// [anchor, anchor+WindowSize-1] contains one of the StartingPositions
// straddles two series.
type Boundaries struct {
	StartingPositions []int
	Anchors           []int
	WindowSize        int
}

func (b *Boundaries) crosses(position int) bool {
	if b == nil || position < 0 || position >= len(b.Anchors) {
		return false
	}
	start := b.Anchors[position]
	end := start + b.WindowSize - 1
	for _, sp := range b.StartingPositions {
		if sp >= start && sp <= end {
			return true
		}
		if sp > end {
			break
		}
	}
	return false
}

type config struct {
	boundaries *Boundaries
}

type Option func(*config)

func newConfig(words int, opts []Option) (*config, error) {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.boundaries != nil && len(cfg.boundaries.Anchors) != words {
		return nil, fmt.Errorf("grammar: %d anchors for %d words", len(cfg.boundaries.Anchors), words)
	}
	return cfg, nil
}

// WithBoundaries stops the inference from forming digrams with a word that
// straddles two concatenated series, so no rule spans a series seam.
func WithBoundaries(startingPositions []int, anchors []int, windowSize int) Option {
	return func(c *config) {
		c.boundaries = &Boundaries{
			StartingPositions: startingPositions,
			Anchors:           anchors,
			WindowSize:        windowSize,
		}
	}
}

// InferSequitur builds a grammar from words, one symbol per word.
func InferSequitur(words []string, opts ...Option) (*Grammar, error) {
	if len(words) == 0 {
		return nil, ErrEmptyGrammar
	}
	cfg, err := newConfig(len(words), opts)
	if err != nil {
		return nil, err
	}

	g := newGrammar(len(words))
	g.inputLength = len(words)
	base := g.newRule()

	for p, w := range words {
		t := g.newTerminal(g.terminalID(w))
		g.nodes[t].escape = cfg.boundaries.crosses(p)
		g.insertAfter(g.last(base), t)
		if p == 0 {
			continue
		}
		g.check(g.prev(g.last(base)))
	}

	return g, nil
}
