package engine

import (
	"errors"
	"maps"
	"time"

	"github.com/slovoigra/spelling-backend/internal/teams"
)

// Guess rejections. These are reported back to the submitting player as
// reason codes; none of them ever aborts a session.
var (
	ErrGameOver           = errors.New("game already over")
	ErrAlreadyFound       = errors.New("word already found")
	ErrRootWord           = errors.New("the root word itself does not count")
	ErrTooShort           = errors.New("word too short")
	ErrTooLong            = errors.New("word longer than the game allows")
	ErrNotDerivable       = errors.New("word not derivable from the root")
	ErrNotAWord           = errors.New("not a dictionary word")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

type Phase string

const (
	PhaseActive    Phase = "active"
	PhaseCompleted Phase = "completed"
	PhaseExpired   Phase = "expired"
)

// Finder records who found a word. The zero value means "not yet found".
type Finder struct {
	PlayerID string     `json:"player_id"`
	Team     teams.Team `json:"team"`
}

func (f Finder) Found() bool { return f.PlayerID != "" }

// State is one spelling game. Solutions holds every common derivation of
// the root and defines the completion target; Extras holds the
// valid-but-uncommon derivations, which score when found but never gate
// completion: the game ends as soon as all common words have been found.
type State struct {
	Root      string
	Solutions map[string]Finder
	Extras    map[string]Finder
	Scores    map[teams.Team]int
	Phase     Phase
	Deadline  time.Time
	Rules     Rules
}

type Rules struct {
	MinGuessLen int  // shorter guesses are rejected outright
	MaxWordLen  int  // upper bound of the solution/extra sets
	RejectRoot  bool // guessing the root itself is not a discovery

	// IsWord distinguishes "not derivable" from "not a word at all" in
	// rejection reasons. Injected so the state machine stays free of the
	// dictionary; stub it in tests.
	IsWord func(word string) bool
}

func DefaultRules() Rules {
	return Rules{
		MinGuessLen: 2,
		MaxWordLen:  7,
		RejectRoot:  true,
	}
}

// NewState builds an Active game. Both team scores start at zero; ties are
// a legitimate final outcome.
func NewState(root string, solutions, extras []string, deadline time.Time, rules Rules) State {
	s := State{
		Root:      root,
		Solutions: make(map[string]Finder, len(solutions)),
		Extras:    make(map[string]Finder, len(extras)),
		Scores: map[teams.Team]int{
			teams.TeamNative:  0,
			teams.TeamLearner: 0,
		},
		Phase:    PhaseActive,
		Deadline: deadline,
		Rules:    rules,
	}
	// The root never belongs to its own solution set: it would be
	// unguessable under the root-rejection policy and the game could
	// never complete.
	for _, w := range solutions {
		if w != root {
			s.Solutions[w] = Finder{}
		}
	}
	for _, w := range extras {
		if _, dup := s.Solutions[w]; !dup && w != root {
			s.Extras[w] = Finder{}
		}
	}
	return s
}

type CommandType string

const (
	CmdSubmitGuess CommandType = "SubmitGuess"
	CmdExpire      CommandType = "Expire"
	CmdStop        CommandType = "Stop"
)

type Command struct {
	Type     CommandType
	PlayerID string
	Word     string // normalized before it reaches the engine
	Team     teams.Team
	Points   int
}

type EventType string

const (
	EvtWordFound      EventType = "WordFound"
	EvtExtraWordFound EventType = "ExtraWordFound"
	EvtGameCompleted  EventType = "GameCompleted"
	EvtGameExpired    EventType = "GameExpired"
)

type Event struct {
	Type     EventType
	Word     string
	PlayerID string
	Team     teams.Team
	Points   int
	Found    int // solutions found so far
	Total    int // size of the solution set
}

// Evaluate runs the rejection checks for a guess without mutating anything.
// The session uses it to decide whether a guess is worth an external role
// lookup before committing it through Apply.
func Evaluate(s State, word string) error {
	return check(s, word)
}

func check(s State, word string) error {
	if s.Phase != PhaseActive {
		return ErrGameOver
	}
	if finder, ok := s.Solutions[word]; ok && finder.Found() {
		return ErrAlreadyFound
	}
	if finder, ok := s.Extras[word]; ok && finder.Found() {
		return ErrAlreadyFound
	}
	if s.Rules.RejectRoot && word == s.Root {
		return ErrRootWord
	}
	if len([]rune(word)) < s.Rules.MinGuessLen {
		return ErrTooShort
	}
	if !Derivable(word, s.Root) {
		return ErrNotDerivable
	}
	if _, ok := s.Solutions[word]; ok {
		return nil
	}
	if _, ok := s.Extras[word]; ok {
		return nil
	}
	// Derivable but in neither precomputed set. A dictionary word within
	// the length cap is still a legitimate find (a short word below the
	// solution-set bound) and is accepted as an extra.
	if s.Rules.IsWord != nil && s.Rules.IsWord(word) {
		if len([]rune(word)) > s.Rules.MaxWordLen {
			return ErrTooLong
		}
		return nil
	}
	return ErrNotAWord
}

// Apply processes one command against the state, returning the events it
// produced and the successor state. It is pure: no clocks, no locks, no
// I/O. The session actor is the only caller and serializes all commands.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdSubmitGuess:
		return applyGuess(s, cmd)

	case CmdExpire, CmdStop:
		// Idempotent: a timer firing after completion, or a second stop,
		// is absorbed without events or errors.
		if s.Phase != PhaseActive {
			return nil, s, nil
		}
		newState := s
		newState.Phase = PhaseExpired
		return []Event{{Type: EvtGameExpired, Found: s.FoundCount(), Total: len(s.Solutions)}}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyGuess(s State, cmd Command) ([]Event, State, error) {
	if err := check(s, cmd.Word); err != nil {
		return nil, s, err
	}

	// Clone the mutable maps so the previous state stays untouched.
	newState := s
	newState.Solutions = maps.Clone(s.Solutions)
	newState.Extras = maps.Clone(s.Extras)
	newState.Scores = maps.Clone(s.Scores)

	finder := Finder{PlayerID: cmd.PlayerID, Team: cmd.Team}

	if cmd.Team == teams.TeamNative || cmd.Team == teams.TeamLearner {
		newState.Scores[cmd.Team] += cmd.Points
	}

	if _, ok := s.Solutions[cmd.Word]; ok {
		newState.Solutions[cmd.Word] = finder
		found := newState.FoundCount()
		events := []Event{{
			Type:     EvtWordFound,
			Word:     cmd.Word,
			PlayerID: cmd.PlayerID,
			Team:     cmd.Team,
			Points:   cmd.Points,
			Found:    found,
			Total:    len(newState.Solutions),
		}}
		if found == len(newState.Solutions) {
			newState.Phase = PhaseCompleted
			events = append(events, Event{Type: EvtGameCompleted, Found: found, Total: found})
		}
		return events, newState, nil
	}

	newState.Extras[cmd.Word] = finder
	return []Event{{
		Type:     EvtExtraWordFound,
		Word:     cmd.Word,
		PlayerID: cmd.PlayerID,
		Team:     cmd.Team,
		Points:   cmd.Points,
		Found:    newState.FoundCount(),
		Total:    len(newState.Solutions),
	}}, newState, nil
}

// FoundCount is the number of solution words discovered so far.
func (s State) FoundCount() int {
	n := 0
	for _, f := range s.Solutions {
		if f.Found() {
			n++
		}
	}
	return n
}

// Missing lists the solution words nobody found, for the expiry summary.
func (s State) Missing() []string {
	var missing []string
	for w, f := range s.Solutions {
		if !f.Found() {
			missing = append(missing, w)
		}
	}
	sortWords(missing)
	return missing
}
