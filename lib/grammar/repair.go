package grammar

// InferRePair builds a grammar by repeatedly replacing the most frequent
// non-overlapping digram with a new rule until no digram occurs twice. Ties
// go to the digram that occurs first. Words straddling a boundary never pair.
func InferRePair(words []string, opts ...Option) (*Grammar, error) {
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

	seq := make([]uint64, len(words))
	escaped := make([]bool, len(words))
	for i, w := range words {
		seq[i] = g.terminalID(w)
		escaped[i] = cfg.boundaries.crosses(i)
	}

	var bodies [][2]uint64
	for {
		d, count := mostFrequentDigram(seq, escaped)
		if count < 2 {
			break
		}
		r := g.newRule()
		bodies = append(bodies, [2]uint64{d.one, d.two})
		seq, escaped = replaceDigram(seq, escaped, d, ruleFlag|uint64(r))
	}

	g.appendSymbols(base, seq)
	for i, body := range bodies {
		g.appendSymbols(int32(i+1), body[:])
	}
	return g, nil
}

func (g *Grammar) appendSymbols(r int32, values []uint64) {
	for _, v := range values {
		var s int32
		if v&ruleFlag != 0 {
			s = g.newReference(int32(v &^ ruleFlag))
		} else {
			s = g.newTerminal(v)
		}
		g.insertAfter(g.last(r), s)
	}
}

func mostFrequentDigram(seq []uint64, escaped []bool) (digram, int) {
	counts := make(map[digram]int)
	lastCounted := make(map[digram]int)
	var order []digram
	for i := 0; i+1 < len(seq); i++ {
		if escaped[i] || escaped[i+1] {
			continue
		}
		d := digram{seq[i], seq[i+1]}
		last, ok := lastCounted[d]
		if ok && last == i-1 {
			// overlaps the occurrence just counted, as in "aaa"
			continue
		}
		if !ok {
			order = append(order, d)
		}
		lastCounted[d] = i
		counts[d]++
	}
	var best digram
	bestCount := 0
	for _, d := range order {
		if counts[d] > bestCount {
			best = d
			bestCount = counts[d]
		}
	}
	return best, bestCount
}

func replaceDigram(seq []uint64, escaped []bool, d digram, ref uint64) ([]uint64, []bool) {
	ret := make([]uint64, 0, len(seq))
	retEscaped := make([]bool, 0, len(seq))
	for i := 0; i < len(seq); i++ {
		if i+1 < len(seq) && !escaped[i] && !escaped[i+1] && seq[i] == d.one && seq[i+1] == d.two {
			ret = append(ret, ref)
			retEscaped = append(retEscaped, false)
			i++
			continue
		}
		ret = append(ret, seq[i])
		retEscaped = append(retEscaped, escaped[i])
	}
	return ret, retEscaped
}
