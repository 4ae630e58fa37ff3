package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/slovoigra/spelling-backend/internal/dictionary"
	"github.com/slovoigra/spelling-backend/internal/engine"
	"github.com/slovoigra/spelling-backend/internal/teams"
)

// Fixture: root виноград, common solutions гон/рог/нога/вода, вагон as the
// valid-but-uncommon extra.
func testDict(t *testing.T) *dictionary.Dictionary {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	content := "виноград\nгон\nрог\nнога\nвода\nвагон\nон\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing word list: %v", err)
	}
	d, err := dictionary.Load(path, dictionary.WithCommonLimit(5))
	if err != nil {
		t.Fatalf("loading dictionary: %v", err)
	}
	return d
}

func testState(dict *dictionary.Dictionary, deadline time.Time) engine.State {
	rules := engine.DefaultRules()
	rules.IsWord = dict.IsWord
	return engine.NewState(
		"виноград",
		dict.DerivableFrom("виноград", 3, 7),
		dict.ExtraDerivations("виноград", 3, 7),
		deadline,
		rules,
	)
}

func startSession(t *testing.T, cfg Config, deadline time.Time) *Session {
	t.Helper()
	dict := cfg.Dict
	if dict == nil {
		dict = testDict(t)
		cfg.Dict = dict
	}
	if cfg.Channel == "" {
		cfg.Channel = "russian-practice"
	}
	if cfg.Tracker == nil {
		cfg.Tracker = teams.NewTracker(teams.StaticRoles([]string{"masha"}, []string{"kwinten"}))
	}
	if cfg.Logger == nil {
		cfg.Logger = zaptest.NewLogger(t)
	}

	s := New(context.Background(), cfg, testState(dict, deadline))
	t.Cleanup(func() {
		select {
		case s.inbox <- Shutdown{}:
		case <-s.Done():
		}
	})
	return s
}

func recvNote(t *testing.T, ch chan Notification) Notification {
	t.Helper()
	select {
	case note, ok := <-ch:
		if !ok {
			t.Fatalf("notification channel closed")
		}
		return note
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a notification")
		return Notification{}
	}
}

func submit(t *testing.T, s *Session, player, text string) Notification {
	t.Helper()
	reply := make(chan Notification, 1)
	select {
	case s.inbox <- SubmitGuess{PlayerID: player, Text: text, Reply: reply}:
	case <-s.Done():
		t.Fatalf("session gone before the guess was sent")
	}
	return recvNote(t, reply)
}

func TestGuessLifecycle(t *testing.T) {
	s := startSession(t, Config{}, time.Now().Add(time.Hour))

	out := make(chan Notification, 16)
	s.Inbox() <- Subscribe{ID: "ws-1", Outbox: out}
	if first := recvNote(t, out); first.Type != NoteProgress || first.Total != 4 {
		t.Fatalf("subscription must open with progress, got %+v", first)
	}

	note := submit(t, s, "masha", "  ГОН ")
	if note.Type != NoteAccepted || note.Word != "гон" || note.Team != teams.TeamNative {
		t.Fatalf("unexpected accept: %+v", note)
	}
	if bc := recvNote(t, out); bc.Type != NoteAccepted || bc.Word != "гон" {
		t.Fatalf("accepted guesses must be broadcast, got %+v", bc)
	}

	if note := submit(t, s, "kwinten", "гон"); note.Type != NoteRejected || note.Reason != ReasonAlreadyFound {
		t.Fatalf("duplicate must reject with already_found, got %+v", note)
	}
	if note := submit(t, s, "kwinten", "виноград"); note.Reason != ReasonRootWord {
		t.Fatalf("root guess must reject with root_word, got %+v", note)
	}
	if note := submit(t, s, "kwinten", "ogon"); note.Reason != ReasonNotCyrillic {
		t.Fatalf("latin text must reject with not_cyrillic, got %+v", note)
	}

	if note := submit(t, s, "kwinten", "вагон"); note.Type != NoteAccepted || !note.Extra {
		t.Fatalf("uncommon derivation must be accepted as extra, got %+v", note)
	}
	recvNote(t, out) // its broadcast

	// Below the solution-set length bound but a real dictionary word.
	if note := submit(t, s, "kwinten", "он"); note.Type != NoteAccepted || !note.Extra {
		t.Fatalf("short dictionary word must be accepted as extra, got %+v", note)
	}
	recvNote(t, out)

	view := make(chan View, 1)
	s.Inbox() <- GetView{Reply: view}
	v := <-view
	if v.Found != 1 || v.Total != 4 || v.Phase != engine.PhaseActive {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestSubscribeWithFullOutboxDoesNotBlockTheLoop(t *testing.T) {
	s := startSession(t, Config{}, time.Now().Add(time.Hour))

	// An unbuffered outbox with nobody reading cannot take the opening
	// progress note; the loop must refuse it and keep serving.
	stuck := make(chan Notification)
	s.Inbox() <- Subscribe{ID: "stuck", Outbox: stuck}

	if note := submit(t, s, "masha", "гон"); note.Type != NoteAccepted {
		t.Fatalf("loop wedged by a full subscriber: %+v", note)
	}

	select {
	case _, ok := <-stuck:
		if ok {
			t.Fatalf("refused subscriber must not receive notifications")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("refused subscriber's channel must be closed")
	}
}

func TestCompletionBroadcastsFinalScores(t *testing.T) {
	s := startSession(t, Config{}, time.Now().Add(time.Hour))

	out := make(chan Notification, 16)
	s.Inbox() <- Subscribe{ID: "ws-1", Outbox: out}
	recvNote(t, out) // initial progress

	for _, w := range []string{"гон", "рог", "нога"} {
		if note := submit(t, s, "masha", w); note.Type != NoteAccepted {
			t.Fatalf("guess %q: %+v", w, note)
		}
		recvNote(t, out)
	}

	if note := submit(t, s, "kwinten", "вода"); note.Type != NoteAccepted {
		t.Fatalf("final guess: %+v", note)
	}
	recvNote(t, out) // the accept broadcast

	final := recvNote(t, out)
	if final.Type != NoteCompleted || final.Found != 4 || final.Total != 4 {
		t.Fatalf("expected completion broadcast, got %+v", final)
	}
	if final.Standings == nil || final.Standings.Winner != teams.TeamNative {
		t.Fatalf("completion must carry final standings, got %+v", final.Standings)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session must shut down after completion")
	}
}

func TestDeadlineExpiresWithNoGuesses(t *testing.T) {
	s := startSession(t, Config{}, time.Now().Add(50*time.Millisecond))

	out := make(chan Notification, 16)
	s.Inbox() <- Subscribe{ID: "ws-1", Outbox: out}
	recvNote(t, out) // initial progress

	note := recvNote(t, out)
	if note.Type != NoteExpired {
		t.Fatalf("expected expiry broadcast, got %+v", note)
	}
	if note.Found != 0 || len(note.Missing) != 4 {
		t.Fatalf("zero-guess expiry must list every solution as missing, got %+v", note)
	}
	if note.Standings == nil || !note.Standings.Tie {
		t.Fatalf("0-0 must be reported as a tie, got %+v", note.Standings)
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session must shut down after expiry")
	}
}

func TestStopFinishesEarly(t *testing.T) {
	s := startSession(t, Config{}, time.Now().Add(time.Hour))

	out := make(chan Notification, 16)
	s.Inbox() <- Subscribe{ID: "ws-1", Outbox: out}
	recvNote(t, out)

	submit(t, s, "masha", "гон")
	recvNote(t, out)

	s.Inbox() <- Stop{}
	note := recvNote(t, out)
	if note.Type != NoteExpired || note.Found != 1 || len(note.Missing) != 3 {
		t.Fatalf("stop must finish the game with found and missing words, got %+v", note)
	}
}

func TestPanicInRoleLookupBecomesRejection(t *testing.T) {
	tracker := teams.NewTracker(func(context.Context, string) (teams.Team, error) {
		panic("role backend exploded")
	})
	s := startSession(t, Config{Tracker: tracker}, time.Now().Add(time.Hour))

	note := submit(t, s, "masha", "гон")
	if note.Type != NoteRejected || note.Reason != ReasonInternal {
		t.Fatalf("a panic mid-guess must surface as internal_error, got %+v", note)
	}

	// The session survives and keeps serving.
	view := make(chan View, 1)
	select {
	case s.Inbox() <- GetView{Reply: view}:
	case <-s.Done():
		t.Fatalf("session died after a recovered panic")
	}
	if v := <-view; v.Phase != engine.PhaseActive {
		t.Fatalf("session must stay active, got %+v", v)
	}
}

type fakeRecorder struct {
	mu       sync.Mutex
	saves    int
	archives []Snapshot
	deletes  []string
}

func (r *fakeRecorder) Save(_ context.Context, _ Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	return nil
}

func (r *fakeRecorder) Archive(_ context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archives = append(r.archives, snap)
	return nil
}

func (r *fakeRecorder) Delete(_ context.Context, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, channel)
	return nil
}

func TestRecorderSeesEveryAcceptAndTheArchive(t *testing.T) {
	rec := &fakeRecorder{}
	s := startSession(t, Config{Recorder: rec}, time.Now().Add(time.Hour))

	for _, w := range []string{"гон", "рог", "нога", "вода"} {
		if note := submit(t, s, "masha", w); note.Type != NoteAccepted {
			t.Fatalf("guess %q: %+v", w, note)
		}
	}
	<-s.Done()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.saves != 3 {
		t.Fatalf("want a snapshot per accepted guess before the final one, got %d", rec.saves)
	}
	if len(rec.archives) != 1 || rec.archives[0].Phase != engine.PhaseCompleted {
		t.Fatalf("completion must archive once: %+v", rec.archives)
	}
	if len(rec.deletes) != 1 || rec.deletes[0] != "russian-practice" {
		t.Fatalf("the live snapshot must be deleted on archive: %+v", rec.deletes)
	}
}

func TestRestoreReplaysFoundWords(t *testing.T) {
	dict := testDict(t)
	deadline := time.Now().Add(time.Hour).Truncate(time.Second)

	snap := Snapshot{
		Channel:  "russian-practice",
		Root:     "виноград",
		Phase:    engine.PhaseActive,
		Deadline: deadline,
		Found: map[string]engine.Finder{
			"гон":   {PlayerID: "masha", Team: teams.TeamNative},
			"вагон": {PlayerID: "kwinten", Team: teams.TeamLearner},
		},
		Scores: map[teams.Team]int{teams.TeamNative: 1, teams.TeamLearner: 1},
	}

	rules := engine.DefaultRules()
	rules.IsWord = dict.IsWord
	st := Restore(dict, snap, rules, 3, 7)

	if st.FoundCount() != 1 {
		t.Fatalf("one common find must be replayed into the solution set, got %d", st.FoundCount())
	}
	if st.Solutions["гон"].PlayerID != "masha" {
		t.Fatalf("finder credit lost: %+v", st.Solutions["гон"])
	}
	if !st.Extras["вагон"].Found() {
		t.Fatalf("uncommon find must land in extras: %+v", st.Extras)
	}
	if st.Scores[teams.TeamNative] != 1 || st.Scores[teams.TeamLearner] != 1 {
		t.Fatalf("scores lost in restore: %+v", st.Scores)
	}
	if !st.Deadline.Equal(deadline) {
		t.Fatalf("deadline must survive restore")
	}
}
