// Package picker selects the root word for a new spelling game.
package picker

import (
	"errors"
	"math/rand"

	"github.com/slovoigra/spelling-backend/internal/dictionary"
)

// ErrNoEligibleRoot means no common word satisfies every constraint after
// exclusions. The caller surfaces it as a configuration problem; it must
// never crash the process and is never silently retried with degraded
// constraints.
var ErrNoEligibleRoot = errors.New("no eligible root word")

type Rules struct {
	MinLen         int // root length bounds
	MaxLen         int
	MinSolutions   int // a root must yield at least this many common words
	SolutionMinLen int // length bounds of the solution/extra sets
	SolutionMaxLen int
}

func DefaultRules() Rules {
	return Rules{
		MinLen:         6,
		MaxLen:         10,
		MinSolutions:   15,
		SolutionMinLen: 3,
		SolutionMaxLen: 7,
	}
}

// Order is the selection strategy: it returns the candidates in the order
// they should be tried. Swap it to bias toward fresher or rarer roots.
type Order func(candidates []dictionary.Entry) []dictionary.Entry

// RandomOrder tries candidates uniformly at random.
func RandomOrder(candidates []dictionary.Entry) []dictionary.Entry {
	shuffled := make([]dictionary.Entry, len(candidates))
	for i, j := range rand.Perm(len(candidates)) {
		shuffled[i] = candidates[j]
	}
	return shuffled
}

// Pick returns a root satisfying the rules, together with its precomputed
// solution set. excluded lists roots of recent games that must not repeat.
func Pick(dict *dictionary.Dictionary, rules Rules, excluded map[string]bool, order Order) (dictionary.Entry, []string, error) {
	if order == nil {
		order = RandomOrder
	}

	var candidates []dictionary.Entry
	for _, e := range dict.Common() {
		n := len([]rune(e.Word))
		if n < rules.MinLen || n > rules.MaxLen {
			continue
		}
		if excluded[e.Word] {
			continue
		}
		candidates = append(candidates, e)
	}

	for _, e := range order(candidates) {
		solutions := withoutRoot(e.Word, dict.DerivableFrom(e.Word, rules.SolutionMinLen, rules.SolutionMaxLen))
		if len(solutions) >= rules.MinSolutions {
			return e, solutions, nil
		}
	}
	return dictionary.Entry{}, nil, ErrNoEligibleRoot
}

// withoutRoot drops the root from its own derivations. A short root falls
// inside the solution length bounds and would otherwise count as a solution
// nobody can submit.
func withoutRoot(root string, words []string) []string {
	for i, w := range words {
		if w == root {
			out := make([]string, 0, len(words)-1)
			out = append(out, words[:i]...)
			return append(out, words[i+1:]...)
		}
	}
	return words
}
