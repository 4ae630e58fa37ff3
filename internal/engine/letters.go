package engine

import (
	"sort"

	"github.com/slovoigra/spelling-backend/internal/dictionary"
)

// Derivable reports whether candidate can be spelled from root's letters,
// each letter used at most as often as it occurs in root. A multiset-subset
// test, not a permutation test: order never matters. The empty candidate is
// never derivable.
func Derivable(candidate, root string) bool {
	if candidate == "" {
		return false
	}
	return dictionary.SubsetOf(dictionary.Counts(candidate), dictionary.Counts(root))
}

// sortWords orders by length first, then alphabetically, matching how the
// progress board groups the solution list.
func sortWords(words []string) {
	sort.Slice(words, func(i, j int) bool {
		li, lj := len([]rune(words[i])), len([]rune(words[j]))
		if li != lj {
			return li < lj
		}
		return words[i] < words[j]
	})
}
