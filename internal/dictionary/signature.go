package dictionary

import "sort"

// Signature returns the word's letters sorted, the canonical form shared by
// all words with the same letter multiset.
func Signature(word string) string {
	runes := []rune(word)
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return string(runes)
}

// Counts builds a per-letter frequency map.
func Counts(word string) map[rune]int {
	counts := make(map[rune]int, len(word))
	for _, r := range word {
		counts[r]++
	}
	return counts
}

// SubsetOf reports whether every letter count in sub is covered by super:
// the multiset-subset test behind the "each letter at most once" rule.
func SubsetOf(sub, super map[rune]int) bool {
	for r, n := range sub {
		if super[r] < n {
			return false
		}
	}
	return true
}
