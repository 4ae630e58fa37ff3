package session

import (
	"context"
	"time"

	"github.com/slovoigra/spelling-backend/internal/dictionary"
	"github.com/slovoigra/spelling-backend/internal/engine"
	"github.com/slovoigra/spelling-backend/internal/teams"
)

// Snapshot is the crash-recovery image of one game: exactly the channel,
// root, found words, team scores, deadline and phase. Solution and extra
// sets are not persisted; they are a deterministic function of the root and
// the dictionary, so Restore recomputes them.
type Snapshot struct {
	Channel  string
	Root     string
	Phase    engine.Phase
	Deadline time.Time
	Found    map[string]engine.Finder
	Scores   map[teams.Team]int
}

// Recorder persists snapshots and finished-game archives. The GORM store
// implements it; a nil Recorder on the session means memory-only games.
type Recorder interface {
	Save(ctx context.Context, snap Snapshot) error
	Archive(ctx context.Context, snap Snapshot) error
	Delete(ctx context.Context, channel string) error
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Channel:  s.channel,
		Root:     s.state.Root,
		Phase:    s.state.Phase,
		Deadline: s.state.Deadline,
		Found:    make(map[string]engine.Finder),
		Scores: map[teams.Team]int{
			teams.TeamNative:  s.state.Scores[teams.TeamNative],
			teams.TeamLearner: s.state.Scores[teams.TeamLearner],
		},
	}
	for w, f := range s.state.Solutions {
		if f.Found() {
			snap.Found[w] = f
		}
	}
	for w, f := range s.state.Extras {
		if f.Found() {
			snap.Found[w] = f
		}
	}
	return snap
}

// Restore rebuilds game state from a snapshot: the solution and extra sets
// come from the dictionary again, then the persisted finds are replayed
// onto them. A found word the current dictionary calls common lands in
// Solutions, anything else in Extras, so operator dictionary edits between
// restarts cannot lose credit.
func Restore(dict *dictionary.Dictionary, snap Snapshot, rules engine.Rules, minLen, maxLen int) engine.State {
	solutions := dict.DerivableFrom(snap.Root, minLen, maxLen)
	extras := dict.ExtraDerivations(snap.Root, minLen, maxLen)

	st := engine.NewState(snap.Root, solutions, extras, snap.Deadline, rules)
	st.Phase = snap.Phase
	for w, f := range snap.Found {
		if _, ok := st.Solutions[w]; ok {
			st.Solutions[w] = f
		} else {
			st.Extras[w] = f
		}
	}
	for team, score := range snap.Scores {
		st.Scores[team] = score
	}
	return st
}
