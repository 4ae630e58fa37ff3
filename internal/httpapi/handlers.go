package httpapi

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/slovoigra/spelling-backend/internal/hub"
	"github.com/slovoigra/spelling-backend/internal/picker"
	"github.com/slovoigra/spelling-backend/internal/session"
	"github.com/slovoigra/spelling-backend/internal/store"
)

func StartGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel := chi.URLParam(r, "channel")

		reply := make(chan hub.StartReply, 1)
		h.Inbox() <- hub.StartSession{Channel: channel, Reply: reply}
		res := <-reply

		switch {
		case errors.Is(res.Err, hub.ErrSessionActive):
			writeError(w, http.StatusConflict, "game already active")
			return
		case errors.Is(res.Err, picker.ErrNoEligibleRoot):
			// Configuration problem, not a user mistake; the operator has
			// to widen the constraints or shrink the exclusion window.
			writeError(w, http.StatusServiceUnavailable, "no eligible root word")
			return
		case res.Err != nil:
			writeError(w, http.StatusInternalServerError, "failed to start game")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"channel":  channel,
			"root":     res.Root,
			"total":    res.Total,
			"deadline": res.Deadline,
		})
	}
}

func StopGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := getSession(w, r, h)
		if !ok {
			return
		}
		select {
		case sess.Inbox() <- session.Stop{}:
			w.WriteHeader(http.StatusAccepted)
		case <-sess.Done():
			writeError(w, http.StatusNotFound, "no active game in channel")
		}
	}
}

type guessRequest struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

// SubmitGuess is the HTTP alternative to the WebSocket guess path; the
// outcome of exactly this guess comes back in the response body.
func SubmitGuess(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req guessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "bad request body")
			return
		}

		sess, ok := getSession(w, r, h)
		if !ok {
			return
		}

		reply := make(chan session.Notification, 1)
		select {
		case sess.Inbox() <- session.SubmitGuess{PlayerID: req.PlayerID, Text: req.Text, Reply: reply}:
		case <-sess.Done():
			writeError(w, http.StatusNotFound, "no active game in channel")
			return
		}

		select {
		case note := <-reply:
			writeJSON(w, http.StatusOK, note)
		case <-sess.Done():
			writeError(w, http.StatusGone, "game ended")
		case <-r.Context().Done():
		}
	}
}

func Progress(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, ok := getView(w, r, h)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"channel":  view.Channel,
			"deadline": view.Deadline,
			"progress": view.Progress,
		})
	}
}

func Teams(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, ok := getView(w, r, h)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"channel":   view.Channel,
			"standings": view.Standings,
		})
	}
}

// Letters shows the root with its letters reshuffled, the in-game hint.
func Letters(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, ok := getView(w, r, h)
		if !ok {
			return
		}
		letters := []rune(view.Root)
		rand.Shuffle(len(letters), func(i, j int) {
			letters[i], letters[j] = letters[j], letters[i]
		})
		shuffled := make([]string, len(letters))
		for i, r := range letters {
			shuffled[i] = string(r)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"channel": view.Channel,
			"root":    view.Root,
			"letters": shuffled,
		})
	}
}

// PreviousGame reports the outcome of the channel's last finished game.
// Only available when the snapshot store is configured.
func PreviousGame(st *store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeError(w, http.StatusNotFound, "game history is not enabled")
			return
		}
		channel := chi.URLParam(r, "channel")

		snap, endedAt, err := st.LatestArchive(r.Context(), channel)
		if errors.Is(err, store.ErrNoArchive) {
			writeError(w, http.StatusNotFound, "no previous game for channel")
			return
		}
		if err != nil {
			logger.Error("loading previous game", zap.String("channel", channel), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load previous game")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"channel":  snap.Channel,
			"root":     snap.Root,
			"phase":    snap.Phase,
			"ended_at": endedAt,
			"scores":   snap.Scores,
			"found":    snap.Found,
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func getSession(w http.ResponseWriter, r *http.Request, h *hub.Hub) (*session.Session, bool) {
	channel := chi.URLParam(r, "channel")

	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.GetSession{Channel: channel, Reply: reply}
	sess := <-reply
	if sess == nil {
		writeError(w, http.StatusNotFound, "no active game in channel")
		return nil, false
	}
	return sess, true
}

func getView(w http.ResponseWriter, r *http.Request, h *hub.Hub) (session.View, bool) {
	sess, ok := getSession(w, r, h)
	if !ok {
		return session.View{}, false
	}

	reply := make(chan session.View, 1)
	select {
	case sess.Inbox() <- session.GetView{Reply: reply}:
	case <-sess.Done():
		writeError(w, http.StatusNotFound, "no active game in channel")
		return session.View{}, false
	}

	select {
	case view := <-reply:
		return view, true
	case <-sess.Done():
		writeError(w, http.StatusNotFound, "no active game in channel")
		return session.View{}, false
	case <-r.Context().Done():
		return session.View{}, false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
