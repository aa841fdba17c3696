package grammar

import (
	"fmt"
	"strings"
)

// Algorithm selects the grammar inference method.
type Algorithm int

const (
	SEQUITUR Algorithm = iota
	REPAIR
)

func (a Algorithm) String() string {
	switch a {
	case SEQUITUR:
		return "sequitur"
	case REPAIR:
		return "repair"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sequitur":
		return SEQUITUR, nil
	case "repair", "re-pair":
		return REPAIR, nil
	}
	return SEQUITUR, fmt.Errorf("unknown grammar algorithm %q", name)
}

// Infer runs the selected algorithm.
func Infer(algorithm Algorithm, words []string, opts ...Option) (*Grammar, error) {
	switch algorithm {
	case SEQUITUR:
		return InferSequitur(words, opts...)
	case REPAIR:
		return InferRePair(words, opts...)
	}
	return nil, fmt.Errorf("unknown grammar algorithm %d", int(algorithm))
}

func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
