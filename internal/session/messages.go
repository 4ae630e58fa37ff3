package session

import (
	"errors"
	"time"

	"github.com/slovoigra/spelling-backend/internal/dictionary"
	"github.com/slovoigra/spelling-backend/internal/engine"
	"github.com/slovoigra/spelling-backend/internal/teams"
)

type Msg interface{ isSessionMsg() }

// SubmitGuess carries one player guess. Reply, when non-nil, receives the
// outcome of exactly this guess in addition to the broadcast.
type SubmitGuess struct {
	PlayerID string
	Text     string
	Reply    chan Notification
}

func (SubmitGuess) isSessionMsg() {}

// Expire is delivered by the deadline timer.
type Expire struct{}

func (Expire) isSessionMsg() {}

// Stop force-finishes the game ahead of its deadline (admin action).
type Stop struct{}

func (Stop) isSessionMsg() {}

type Subscribe struct {
	ID     string
	Outbox chan Notification
}

func (Subscribe) isSessionMsg() {}

type Unsubscribe struct{ ID string }

func (Unsubscribe) isSessionMsg() {}

type GetView struct {
	Reply chan View
}

func (GetView) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// Notification types pushed to the chat-platform collaborator.
const (
	NoteStarted   = "game_started"
	NoteAccepted  = "guess_accepted"
	NoteRejected  = "guess_rejected"
	NoteCompleted = "game_completed"
	NoteExpired   = "game_expired"
	NoteProgress  = "progress"
)

// Rejection reason codes. Every rejection carries one, so no guess ever
// fails silently.
const (
	ReasonAlreadyFound = "already_found"
	ReasonRootWord     = "root_word"
	ReasonTooShort     = "too_short"
	ReasonTooLong      = "too_long"
	ReasonNotDerivable = "not_derivable"
	ReasonNotAWord     = "not_a_word"
	ReasonNotCyrillic  = "not_cyrillic"
	ReasonGameOver     = "game_over"
	ReasonInternal     = "internal_error"
)

func reasonFor(err error) string {
	switch {
	case errors.Is(err, engine.ErrAlreadyFound):
		return ReasonAlreadyFound
	case errors.Is(err, engine.ErrRootWord):
		return ReasonRootWord
	case errors.Is(err, engine.ErrTooShort):
		return ReasonTooShort
	case errors.Is(err, engine.ErrTooLong):
		return ReasonTooLong
	case errors.Is(err, engine.ErrNotDerivable):
		return ReasonNotDerivable
	case errors.Is(err, engine.ErrNotAWord):
		return ReasonNotAWord
	case errors.Is(err, engine.ErrGameOver):
		return ReasonGameOver
	case errors.Is(err, dictionary.ErrNotInScript), errors.Is(err, dictionary.ErrEmptyWord):
		return ReasonNotCyrillic
	default:
		return ReasonInternal
	}
}

// Notification is one outbound frame to the chat-platform collaborator.
type Notification struct {
	Type      string            `json:"type"`
	Channel   string            `json:"channel"`
	Root      string            `json:"root,omitempty"`
	Deadline  time.Time         `json:"deadline,omitzero"`
	Word      string            `json:"word,omitempty"`
	PlayerID  string            `json:"player_id,omitempty"`
	Team      teams.Team        `json:"team,omitempty"`
	Points    int               `json:"points,omitempty"`
	Extra     bool              `json:"extra,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Found     int               `json:"found,omitempty"`
	Total     int               `json:"total,omitempty"`
	Missing   []string          `json:"missing,omitempty"`
	Standings *engine.Standings `json:"standings,omitempty"`
	Progress  *engine.Progress  `json:"progress,omitempty"`
}

// View is a race-free copy of session state for queries and tests.
type View struct {
	Channel        string
	Root           string
	Phase          engine.Phase
	Deadline       time.Time
	Found          int
	Total          int
	Progress       engine.Progress
	Standings      engine.Standings
	NumSubscribers int
}
