package engine

import (
	"sort"
	"strings"

	"github.com/slovoigra/spelling-backend/internal/teams"
)

// Progress is the word board shown to players: while the game runs, unfound
// solutions appear as star masks of the right length; once it ends, they are
// revealed.
type Progress struct {
	Found int            `json:"found"`
	Total int            `json:"total"`
	Ended bool           `json:"ended"`
	Words []ProgressWord `json:"words"`
}

type ProgressWord struct {
	Display string `json:"display"` // the word, or its mask while hidden
	Found   bool   `json:"found"`
	Length  int    `json:"length"`
}

func (s State) Progress() Progress {
	ended := s.Phase != PhaseActive

	words := make([]string, 0, len(s.Solutions))
	for w := range s.Solutions {
		words = append(words, w)
	}
	sortWords(words)

	p := Progress{
		Found: s.FoundCount(),
		Total: len(s.Solutions),
		Ended: ended,
		Words: make([]ProgressWord, 0, len(words)),
	}
	for _, w := range words {
		n := len([]rune(w))
		pw := ProgressWord{Found: s.Solutions[w].Found(), Length: n}
		if pw.Found || ended {
			pw.Display = w
		} else {
			pw.Display = strings.Repeat("*", n)
		}
		p.Words = append(p.Words, pw)
	}
	return p
}

// Standings summarizes the team race. Winner is empty on a tie; ties are a
// reported outcome, never broken artificially.
type Standings struct {
	Scores  map[teams.Team]int      `json:"scores"`
	Members map[teams.Team][]string `json:"members"`
	Winner  teams.Team              `json:"winner,omitempty"`
	Tie     bool                    `json:"tie"`
}

func (s State) Standings() Standings {
	st := Standings{
		Scores: map[teams.Team]int{
			teams.TeamNative:  s.Scores[teams.TeamNative],
			teams.TeamLearner: s.Scores[teams.TeamLearner],
		},
		Members: make(map[teams.Team][]string),
	}

	seen := make(map[string]bool)
	collect := func(finders map[string]Finder) {
		for _, f := range finders {
			if !f.Found() || seen[f.PlayerID] {
				continue
			}
			seen[f.PlayerID] = true
			if f.Team == teams.TeamNative || f.Team == teams.TeamLearner {
				st.Members[f.Team] = append(st.Members[f.Team], f.PlayerID)
			}
		}
	}
	collect(s.Solutions)
	collect(s.Extras)
	for _, members := range st.Members {
		sort.Strings(members)
	}

	native, learner := st.Scores[teams.TeamNative], st.Scores[teams.TeamLearner]
	switch {
	case native == learner:
		st.Tie = true
	case native > learner:
		st.Winner = teams.TeamNative
	default:
		st.Winner = teams.TeamLearner
	}
	return st
}

// ContainsEvent reports whether events include one of the given type.
func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
