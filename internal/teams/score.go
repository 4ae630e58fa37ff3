package teams

// ScoreFunc decides how many points a found word is worth, given its
// dictionary rank. Swapping the function changes the scoring policy without
// touching the state machine.
type ScoreFunc func(rank int) int

// FlatScore awards one point per word regardless of rarity.
func FlatScore(int) int { return 1 }

// RarityWeighted awards a bonus point for words in the rarer half of the
// common range, and two for words beyond it (valid-but-uncommon finds).
func RarityWeighted(commonLimit int) ScoreFunc {
	return func(rank int) int {
		switch {
		case rank > commonLimit:
			return 3
		case rank > commonLimit/2:
			return 2
		default:
			return 1
		}
	}
}
