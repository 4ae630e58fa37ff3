package engine

import (
	"math/rand"
	"testing"

	"github.com/slovoigra/spelling-backend/internal/dictionary"
)

func TestDerivableBasics(t *testing.T) {
	cases := []struct {
		candidate string
		root      string
		want      bool
	}{
		{"", "огонь", false},
		{"гон", "огонь", true},
		{"нога", "огонь", false},  // а absent
		{"оно", "огонь", true},
		{"оо", "огонь", true},     // о occurs twice in the root
		{"ооо", "огонь", false},   // but not three times
		{"огонь", "огонь", true},  // the rule itself accepts the root
		{"рог", "огонь", false},   // р absent
		{"ab", "ba", true},        // order never matters
		{"aab", "aba", true},
		{"aabb", "aba", false},
	}

	for _, tc := range cases {
		if got := Derivable(tc.candidate, tc.root); got != tc.want {
			t.Errorf("Derivable(%q, %q) = %v, want %v", tc.candidate, tc.root, got, tc.want)
		}
	}
}

// Property: Derivable(c, r) holds iff every letter count in c is bounded by
// its count in r. Random multisets over a tiny alphabet force repeated
// letters often.
func TestDerivableMatchesMultisetSubset(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	alphabet := []rune("абв")

	randomWord := func(maxLen int) string {
		n := 1 + rng.Intn(maxLen)
		runes := make([]rune, n)
		for i := range runes {
			runes[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(runes)
	}

	for i := 0; i < 2000; i++ {
		candidate := randomWord(6)
		root := randomWord(8)

		want := true
		rootCounts := dictionary.Counts(root)
		for r, n := range dictionary.Counts(candidate) {
			if rootCounts[r] < n {
				want = false
				break
			}
		}

		if got := Derivable(candidate, root); got != want {
			t.Fatalf("Derivable(%q, %q) = %v, want %v", candidate, root, got, want)
		}
	}
}
