// Package session runs one spelling game as a single-consumer actor: every
// mutation of game state happens by taking one message at a time off the
// inbox, which is the serialization boundary the rules require. Guesses and
// the deadline timer race only up to the inbox; past it they are ordered.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/slovoigra/spelling-backend/internal/dictionary"
	"github.com/slovoigra/spelling-backend/internal/engine"
	"github.com/slovoigra/spelling-backend/internal/teams"
)

type Config struct {
	Channel string
	Dict    *dictionary.Dictionary
	Tracker *teams.Tracker
	Score   teams.ScoreFunc
	Logger  *zap.Logger

	// Recorder, when set, persists a snapshot after every accepted guess
	// and archives the game at the end. Nil means sessions are memory-only
	// and do not survive a restart.
	Recorder Recorder

	// OnTerminal runs after the final summary has been broadcast, from the
	// session goroutine. The hub uses it to drop its registry entry.
	OnTerminal func(channel string)
}

type Session struct {
	channel string
	inbox   chan Msg
	state   engine.State
	dict    *dictionary.Dictionary
	tracker *teams.Tracker
	score   teams.ScoreFunc
	logger  *zap.Logger

	recorder   Recorder
	onTerminal func(channel string)

	subs  map[string]chan Notification
	timer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

// New spawns the session actor around an Active state and arms the deadline
// timer. A deadline already in the past (a restored session that expired
// while the process was down) fires immediately.
func New(parent context.Context, cfg Config, initial engine.State) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		channel:    cfg.Channel,
		inbox:      make(chan Msg, 64),
		state:      initial,
		dict:       cfg.Dict,
		tracker:    cfg.Tracker,
		score:      cfg.Score,
		logger:     cfg.Logger,
		recorder:   cfg.Recorder,
		onTerminal: cfg.OnTerminal,
		subs:       make(map[string]chan Notification),
		ctx:        ctx,
		cancel:     cancel,
	}
	if s.score == nil {
		s.score = teams.FlatScore
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	wait := time.Until(initial.Deadline)
	if wait < 0 {
		wait = 0
	}
	s.timer = time.AfterFunc(wait, func() {
		select {
		case s.inbox <- Expire{}:
		case <-s.ctx.Done():
		}
	})

	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done closes when the session has shut down. Senders select on it so a
// request racing session teardown fails fast instead of hanging.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) Channel() string { return s.channel }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Subscribe:
				select {
				case msg.Outbox <- s.progressNote():
					s.subs[msg.ID] = msg.Outbox
				default:
					// No room for even the opening note; refuse the
					// subscription rather than block the loop.
					close(msg.Outbox)
				}

			case Unsubscribe:
				delete(s.subs, msg.ID)

			case SubmitGuess:
				if s.handleGuess(msg) {
					s.shutdown()
					return
				}

			case Expire:
				if s.finish(engine.CmdExpire) {
					s.shutdown()
					return
				}

			case Stop:
				if s.finish(engine.CmdStop) {
					s.shutdown()
					return
				}

			case GetView:
				msg.Reply <- s.view()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// handleGuess processes one guess and reports whether the game ended.
// Whatever goes wrong inside, the answer is a rejection, never a crash:
// the bot is expected to run unattended for long stretches.
func (s *Session) handleGuess(msg SubmitGuess) (terminal bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while processing guess",
				zap.String("channel", s.channel),
				zap.String("player", msg.PlayerID),
				zap.Any("panic", r))
			s.deliver(msg.Reply, s.rejected(msg.PlayerID, msg.Text, ReasonInternal))
			terminal = false
		}
	}()

	word, err := s.dict.Normalize(msg.Text)
	if err != nil {
		s.deliver(msg.Reply, s.rejected(msg.PlayerID, msg.Text, reasonFor(err)))
		return false
	}

	if err := engine.Evaluate(s.state, word); err != nil {
		s.deliver(msg.Reply, s.rejected(msg.PlayerID, word, reasonFor(err)))
		return false
	}

	// The external role lookup happens only for guesses that will be
	// accepted; rejections must stay cheap.
	team := s.tracker.Classify(s.ctx, msg.PlayerID)
	points := s.score(s.dict.Rank(word))

	events, newState, err := engine.Apply(s.state, engine.Command{
		Type:     engine.CmdSubmitGuess,
		PlayerID: msg.PlayerID,
		Word:     word,
		Team:     team,
		Points:   points,
	})
	if err != nil {
		s.deliver(msg.Reply, s.rejected(msg.PlayerID, word, reasonFor(err)))
		return false
	}
	s.state = newState

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtWordFound, engine.EvtExtraWordFound:
			note := Notification{
				Type:     NoteAccepted,
				Channel:  s.channel,
				Word:     ev.Word,
				PlayerID: ev.PlayerID,
				Team:     ev.Team,
				Points:   ev.Points,
				Extra:    ev.Type == engine.EvtExtraWordFound,
				Found:    ev.Found,
				Total:    ev.Total,
			}
			s.logger.Info("guess accepted",
				zap.String("channel", s.channel),
				zap.String("player", msg.PlayerID),
				zap.String("word", ev.Word),
				zap.Bool("extra", note.Extra),
				zap.Int("found", ev.Found),
				zap.Int("total", ev.Total))
			s.deliver(msg.Reply, note)
			s.broadcast(note)

		case engine.EvtGameCompleted:
			s.timer.Stop()
			standings := s.state.Standings()
			s.broadcast(Notification{
				Type:      NoteCompleted,
				Channel:   s.channel,
				Root:      s.state.Root,
				Found:     ev.Found,
				Total:     ev.Total,
				Standings: &standings,
			})
			s.logger.Info("game completed",
				zap.String("channel", s.channel),
				zap.String("root", s.state.Root))
			s.finalize()
			return true
		}
	}

	s.persist()
	return false
}

// finish handles expiry and admin stop; both are idempotent no-ops unless
// the game is still Active.
func (s *Session) finish(cmd engine.CommandType) bool {
	events, newState, err := engine.Apply(s.state, engine.Command{Type: cmd})
	if err != nil || !engine.ContainsEvent(events, engine.EvtGameExpired) {
		return false
	}
	s.state = newState
	s.timer.Stop()

	standings := s.state.Standings()
	s.broadcast(Notification{
		Type:      NoteExpired,
		Channel:   s.channel,
		Root:      s.state.Root,
		Found:     s.state.FoundCount(),
		Total:     len(s.state.Solutions),
		Missing:   s.state.Missing(),
		Standings: &standings,
	})
	s.logger.Info("game expired",
		zap.String("channel", s.channel),
		zap.String("root", s.state.Root),
		zap.Int("found", s.state.FoundCount()),
		zap.Int("total", len(s.state.Solutions)))
	s.finalize()
	return true
}

// finalize archives the finished game and tells the hub to forget us.
func (s *Session) finalize() {
	if s.recorder != nil {
		snap := s.snapshot()
		if err := s.recorder.Archive(s.ctx, snap); err != nil {
			s.logger.Warn("archiving game", zap.String("channel", s.channel), zap.Error(err))
		}
		if err := s.recorder.Delete(s.ctx, s.channel); err != nil {
			s.logger.Warn("deleting snapshot", zap.String("channel", s.channel), zap.Error(err))
		}
	}
	if s.onTerminal != nil {
		s.onTerminal(s.channel)
	}
}

func (s *Session) persist() {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Save(s.ctx, s.snapshot()); err != nil {
		s.logger.Warn("saving snapshot", zap.String("channel", s.channel), zap.Error(err))
	}
}

func (s *Session) rejected(playerID, word, reason string) Notification {
	s.logger.Debug("guess rejected",
		zap.String("channel", s.channel),
		zap.String("player", playerID),
		zap.String("word", word),
		zap.String("reason", reason))
	return Notification{
		Type:     NoteRejected,
		Channel:  s.channel,
		Word:     word,
		PlayerID: playerID,
		Reason:   reason,
	}
}

func (s *Session) deliver(reply chan Notification, note Notification) {
	if reply == nil {
		return
	}
	select {
	case reply <- note:
	default:
	}
}

func (s *Session) broadcast(note Notification) {
	for id, ch := range s.subs {
		select {
		case ch <- note:
		default:
			// Subscriber is slow or gone; drop it.
			close(ch)
			delete(s.subs, id)
		}
	}
}

func (s *Session) progressNote() Notification {
	progress := s.state.Progress()
	return Notification{
		Type:     NoteProgress,
		Channel:  s.channel,
		Root:     s.state.Root,
		Deadline: s.state.Deadline,
		Found:    progress.Found,
		Total:    progress.Total,
		Progress: &progress,
	}
}

func (s *Session) view() View {
	return View{
		Channel:        s.channel,
		Root:           s.state.Root,
		Phase:          s.state.Phase,
		Deadline:       s.state.Deadline,
		Found:          s.state.FoundCount(),
		Total:          len(s.state.Solutions),
		Progress:       s.state.Progress(),
		Standings:      s.state.Standings(),
		NumSubscribers: len(s.subs),
	}
}

func (s *Session) shutdown() {
	s.timer.Stop()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.cancel()
}
