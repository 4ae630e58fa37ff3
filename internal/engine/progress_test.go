package engine

import (
	"strings"
	"testing"

	"github.com/slovoigra/spelling-backend/internal/teams"
)

func TestProgressMasksUnfoundWordsWhileActive(t *testing.T) {
	s := newTestState()
	_, s, err := Apply(s, guess("p1", "гон", teams.TeamNative))
	if err != nil {
		t.Fatalf("guess: %v", err)
	}

	p := s.Progress()
	if p.Found != 1 || p.Total != 4 || p.Ended {
		t.Fatalf("unexpected progress header: %+v", p)
	}
	for _, w := range p.Words {
		if w.Found && w.Display != "гон" {
			t.Fatalf("wrong found word: %+v", w)
		}
		if !w.Found {
			if w.Display != strings.Repeat("*", w.Length) {
				t.Fatalf("unfound word must be masked, got %q", w.Display)
			}
		}
	}
}

func TestProgressRevealsWordsAfterEnd(t *testing.T) {
	s := newTestState()
	_, s, err := Apply(s, Command{Type: CmdExpire})
	if err != nil {
		t.Fatalf("expire: %v", err)
	}

	p := s.Progress()
	if !p.Ended {
		t.Fatalf("progress must report the ended game")
	}
	for _, w := range p.Words {
		if strings.Contains(w.Display, "*") {
			t.Fatalf("words must be revealed after the game, got %q", w.Display)
		}
	}
}

func TestStandings(t *testing.T) {
	s := newTestState()
	var err error
	_, s, err = Apply(s, guess("masha", "гон", teams.TeamNative))
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	_, s, err = Apply(s, guess("kwinten", "рог", teams.TeamLearner))
	if err != nil {
		t.Fatalf("guess: %v", err)
	}

	st := s.Standings()
	if !st.Tie || st.Winner != "" {
		t.Fatalf("1-1 must be a tie: %+v", st)
	}

	_, s, err = Apply(s, guess("masha", "нога", teams.TeamNative))
	if err != nil {
		t.Fatalf("guess: %v", err)
	}

	st = s.Standings()
	if st.Tie || st.Winner != teams.TeamNative {
		t.Fatalf("natives should lead: %+v", st)
	}
	if len(st.Members[teams.TeamNative]) != 1 || st.Members[teams.TeamNative][0] != "masha" {
		t.Fatalf("unexpected native members: %+v", st.Members)
	}
	if len(st.Members[teams.TeamLearner]) != 1 || st.Members[teams.TeamLearner][0] != "kwinten" {
		t.Fatalf("unexpected learner members: %+v", st.Members)
	}
}
