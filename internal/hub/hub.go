// Package hub is the session registry: an actor mapping channel identity to
// its running game. All registry mutations pass through the hub's inbox, so
// "at most one active session per channel" holds by construction.
package hub

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/slovoigra/spelling-backend/internal/dictionary"
	"github.com/slovoigra/spelling-backend/internal/engine"
	"github.com/slovoigra/spelling-backend/internal/picker"
	"github.com/slovoigra/spelling-backend/internal/session"
	"github.com/slovoigra/spelling-backend/internal/teams"
)

var ErrSessionActive = errors.New("a game is already running in this channel")

type HubMsg interface{ isHubMsg() }

type StartSession struct {
	Channel string
	Reply   chan StartReply
}

type StartReply struct {
	Session  *session.Session
	Root     string
	Total    int
	Deadline time.Time
	Err      error
}

type GetSession struct {
	Channel string
	Reply   chan *session.Session
}

type RemoveSession struct{ Channel string }

type RestoreSession struct {
	Snap  session.Snapshot
	Reply chan *session.Session
}

type ShutdownHub struct{}

func (StartSession) isHubMsg()   {}
func (GetSession) isHubMsg()     {}
func (RemoveSession) isHubMsg()  {}
func (RestoreSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()    {}

type Deps struct {
	Dict         *dictionary.Dictionary
	Roles        teams.RoleFunc
	Score        teams.ScoreFunc
	EngineRules  engine.Rules
	PickerRules  picker.Rules
	GameDuration time.Duration
	RecentWindow int // how many past roots stay excluded from selection
	Recorder     session.Recorder
	Logger       *zap.Logger
}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	recent   []string // recently used roots, newest last
	deps     Deps
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, deps Deps) *Hub {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.GameDuration == 0 {
		deps.GameDuration = 24 * time.Hour
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case StartSession:
				msg.Reply <- h.start(msg.Channel)

			case GetSession:
				msg.Reply <- h.sessions[msg.Channel] // may be nil

			case RemoveSession:
				delete(h.sessions, msg.Channel)

			case RestoreSession:
				msg.Reply <- h.restore(msg.Snap)

			case ShutdownHub:
				for _, sess := range h.sessions {
					select {
					case sess.Inbox() <- session.Shutdown{}:
					case <-sess.Done():
					}
				}
				clear(h.sessions)
				h.cancel()
			}
		}
	}
}

func (h *Hub) start(channel string) StartReply {
	if h.sessions[channel] != nil {
		return StartReply{Err: ErrSessionActive}
	}

	excluded := make(map[string]bool, len(h.recent))
	for _, root := range h.recent {
		excluded[root] = true
	}

	root, solutions, err := picker.Pick(h.deps.Dict, h.deps.PickerRules, excluded, nil)
	if err != nil {
		h.deps.Logger.Error("selecting root word", zap.String("channel", channel), zap.Error(err))
		return StartReply{Err: err}
	}
	extras := h.deps.Dict.ExtraDerivations(root.Word, h.deps.PickerRules.SolutionMinLen, h.deps.PickerRules.SolutionMaxLen)

	// Deadlines land on the hour, as players see them as "ends at 18:00".
	deadline := time.Now().Truncate(time.Hour).Add(h.deps.GameDuration)

	rules := h.deps.EngineRules
	rules.IsWord = h.deps.Dict.IsWord
	state := engine.NewState(root.Word, solutions, extras, deadline, rules)

	sess := h.spawn(channel, state)
	h.remember(root.Word)

	if h.deps.Recorder != nil {
		snap := session.Snapshot{
			Channel:  channel,
			Root:     root.Word,
			Phase:    engine.PhaseActive,
			Deadline: deadline,
			Found:    map[string]engine.Finder{},
			Scores:   map[teams.Team]int{teams.TeamNative: 0, teams.TeamLearner: 0},
		}
		if err := h.deps.Recorder.Save(h.ctx, snap); err != nil {
			h.deps.Logger.Warn("saving initial snapshot", zap.String("channel", channel), zap.Error(err))
		}
	}

	h.deps.Logger.Info("game started",
		zap.String("channel", channel),
		zap.String("root", root.Word),
		zap.Int("solutions", len(solutions)),
		zap.Time("deadline", deadline))

	return StartReply{
		Session:  sess,
		Root:     root.Word,
		Total:    len(solutions),
		Deadline: deadline,
	}
}

func (h *Hub) restore(snap session.Snapshot) *session.Session {
	if h.sessions[snap.Channel] != nil {
		return h.sessions[snap.Channel]
	}

	rules := h.deps.EngineRules
	rules.IsWord = h.deps.Dict.IsWord
	state := session.Restore(h.deps.Dict, snap, rules,
		h.deps.PickerRules.SolutionMinLen, h.deps.PickerRules.SolutionMaxLen)

	sess := h.spawn(snap.Channel, state)
	h.remember(snap.Root)

	h.deps.Logger.Info("game restored",
		zap.String("channel", snap.Channel),
		zap.String("root", snap.Root),
		zap.Time("deadline", snap.Deadline))
	return sess
}

func (h *Hub) spawn(channel string, state engine.State) *session.Session {
	sess := session.New(h.ctx, session.Config{
		Channel:  channel,
		Dict:     h.deps.Dict,
		Tracker:  teams.NewTracker(h.deps.Roles),
		Score:    h.deps.Score,
		Logger:   h.deps.Logger,
		Recorder: h.deps.Recorder,
		OnTerminal: func(ch string) {
			select {
			case h.inbox <- RemoveSession{Channel: ch}:
			case <-h.ctx.Done():
			}
		},
	}, state)
	h.sessions[channel] = sess
	return sess
}

func (h *Hub) remember(root string) {
	h.recent = append(h.recent, root)
	if h.deps.RecentWindow > 0 && len(h.recent) > h.deps.RecentWindow {
		h.recent = h.recent[len(h.recent)-h.deps.RecentWindow:]
	}
}
