package grammar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

var (
	ErrInvalidGrammar = errors.New("grammar: invariant violated")
)

// A RuleRecord is the flattened view of one grammar rule.
type RuleRecord struct {
	ID int
	// The right hand side, terminals as words and rules as R<id>.
	RuleString string
	// The terminal words the rule derives, separated by single spaces.
	Expansion      string
	ExpandedLength int
	// Word offsets in the fully expanded R0 at which the rule's expansion
	// starts, ascending.
	Occurrences []int
	// Number of references to the rule in all rule bodies.
	Frequency int
	Intervals []RuleInterval
}

// RuleRecords is indexed by rule id; R0 is the whole input.
type RuleRecords []*RuleRecord

func (r RuleRecord) String() string {
	return fmt.Sprintf("R%d -> %s", r.ID, r.RuleString)
}

type flatSymbol struct {
	terminal uint64
	// Public rule id for non-terminals, -1 for terminals.
	rule int
}

// flatten numbers the live rules in order of first appearance, starting from
// the base rule, and returns their bodies.
func (g *Grammar) flatten() (bodies [][]flatSymbol, internal []int32) {
	ids := map[int32]int{0: 0}
	internal = []int32{0}
	for i := 0; i < len(internal); i++ {
		var body []flatSymbol
		for s := g.first(internal[i]); !g.isGuard(s); s = g.next(s) {
			if !g.isNonTerminal(s) {
				body = append(body, flatSymbol{terminal: g.nodes[s].value, rule: -1})
				continue
			}
			r := g.nodes[s].rule
			id, ok := ids[r]
			if !ok {
				id = len(internal)
				ids[r] = id
				internal = append(internal, r)
			}
			body = append(body, flatSymbol{rule: id})
		}
		bodies = append(bodies, body)
	}
	return bodies, internal
}

// postOrder visits every rule after all the rules its body references.
func postOrder(bodies [][]flatSymbol, visit func(r int)) {
	state := make([]int8, len(bodies))
	for root := range bodies {
		if state[root] == 2 {
			continue
		}
		stack := []int{root}
		for len(stack) > 0 {
			r := stack[len(stack)-1]
			if state[r] == 0 {
				state[r] = 1
				for _, s := range bodies[r] {
					if s.rule >= 0 && state[s.rule] == 0 {
						stack = append(stack, s.rule)
					}
				}
				continue
			}
			stack = stack[:len(stack)-1]
			if state[r] == 2 {
				continue
			}
			visit(r)
			state[r] = 2
		}
	}
}

// Rules flattens the grammar into records. Expansions and lengths are
// memoized per rule, so deeply nested grammars are expanded once per rule.
func (g *Grammar) Rules() RuleRecords {
	bodies, internal := g.flatten()

	lengths := make([]int, len(bodies))
	expansions := make([]string, len(bodies))
	postOrder(bodies, func(r int) {
		parts := make([]string, len(bodies[r]))
		l := 0
		for i, s := range bodies[r] {
			if s.rule < 0 {
				parts[i] = g.terminals[s.terminal]
				l++
				continue
			}
			parts[i] = expansions[s.rule]
			l += lengths[s.rule]
		}
		lengths[r] = l
		expansions[r] = strings.Join(parts, " ")
	})

	occurrences := make([][]int, len(bodies))
	occurrences[0] = []int{0}
	type frame struct{ rule, offset int }
	stack := []frame{{0, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		offset := f.offset
		for _, s := range bodies[f.rule] {
			if s.rule < 0 {
				offset++
				continue
			}
			occurrences[s.rule] = append(occurrences[s.rule], offset)
			stack = append(stack, frame{s.rule, offset})
			offset += lengths[s.rule]
		}
	}

	ret := make(RuleRecords, len(bodies))
	for id, body := range bodies {
		rhs := make([]string, len(body))
		for i, s := range body {
			if s.rule < 0 {
				rhs[i] = g.terminals[s.terminal]
			} else {
				rhs[i] = fmt.Sprintf("R%d", s.rule)
			}
		}
		sort.Ints(occurrences[id])
		frequency := 0
		if id > 0 {
			frequency = g.rules[internal[id]].count
		}
		ret[id] = &RuleRecord{
			ID:             id,
			RuleString:     strings.Join(rhs, " "),
			Expansion:      expansions[id],
			ExpandedLength: lengths[id],
			Occurrences:    occurrences[id],
			Frequency:      frequency,
		}
	}
	return ret
}

// Expand returns the terminal words R0 derives.
func (g *Grammar) Expand() []string {
	ret := make([]string, 0, g.inputLength)
	stack := []int32{g.first(0)}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		if g.isGuard(s) {
			stack = stack[:len(stack)-1]
			continue
		}
		stack[len(stack)-1] = g.next(s)
		if g.isNonTerminal(s) {
			stack = append(stack, g.first(g.nodes[s].rule))
			continue
		}
		ret = append(ret, g.terminals[g.nodes[s].value])
	}
	return ret
}

// RuleCount is the number of live rules, R0 included.
func (g *Grammar) RuleCount() int {
	_, internal := g.flatten()
	return len(internal)
}

// Validate checks reference counts, rule utility and digram uniqueness.
// Rule utility and digram uniqueness only hold for Sequitur grammars; pass
// strict=false for grammars built by RePair.
func (g *Grammar) Validate(strict bool) error {
	bodies, internal := g.flatten()

	refs := make([]int, len(bodies))
	for _, body := range bodies {
		for _, s := range body {
			if s.rule >= 0 {
				refs[s.rule]++
			}
		}
	}
	for id := 1; id < len(bodies); id++ {
		count := g.rules[internal[id]].count
		if count != refs[id] {
			return fmt.Errorf("%w: R%d has count %d but %d references", ErrInvalidGrammar, id, count, refs[id])
		}
		if strict && count < 2 {
			return fmt.Errorf("%w: R%d is used %d times", ErrInvalidGrammar, id, count)
		}
		if len(bodies[id]) < 2 {
			return fmt.Errorf("%w: R%d has %d symbols", ErrInvalidGrammar, id, len(bodies[id]))
		}
	}
	if !strict {
		return nil
	}

	type position struct{ rule, index int }
	type flatDigram struct{ one, two flatSymbol }
	seen := make(map[flatDigram]position)
	for id, body := range bodies {
		for i := 0; i+1 < len(body); i++ {
			d := flatDigram{body[i], body[i+1]}
			p, ok := seen[d]
			if !ok {
				seen[d] = position{id, i}
				continue
			}
			if p.rule == id && i-p.index == 1 {
				continue
			}
			return fmt.Errorf("%w: digram at R%d[%d] repeats R%d[%d]", ErrInvalidGrammar, id, i, p.rule, p.index)
		}
	}
	return nil
}

// PrettyPrint writes one line per rule.
func (g *Grammar) PrettyPrint(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, r := range g.Rules() {
		if _, err := fmt.Fprintln(bw, r.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
