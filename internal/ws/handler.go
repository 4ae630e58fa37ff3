package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/slovoigra/spelling-backend/internal/hub"
	"github.com/slovoigra/spelling-backend/internal/session"
	"github.com/slovoigra/spelling-backend/internal/types"
)

// Handler upgrades the chat collaborator's connection for one channel's
// game: inbound frames become guesses, and every notification the session
// broadcasts is pushed back out.
func Handler(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel := r.URL.Query().Get("channel")
		if channel == "" {
			http.Error(w, "missing channel", http.StatusBadRequest)
			return
		}
		player := r.URL.Query().Get("player")
		if player == "" {
			http.Error(w, "missing player", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetSession{Channel: channel, Reply: reply}
		sess := <-reply
		if sess == nil {
			http.Error(w, "no active game in channel", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Notification, 16)
		subID := randID(6)

		select {
		case sess.Inbox() <- session.Subscribe{ID: subID, Outbox: out}:
		case <-sess.Done():
			return
		}
		defer func() {
			select {
			case sess.Inbox() <- session.Unsubscribe{ID: subID}:
			case <-sess.Done():
			}
		}()

		// Writer goroutine: session broadcasts -> socket.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for note := range out {
				payload, _ := json.Marshal(types.FromNotification(note))
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop: socket frames -> guesses.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}
			if cm.Type != "guess" {
				writeError(r.Context(), conn, "unknown type")
				continue
			}

			logger.Debug("guess received",
				zap.String("channel", channel),
				zap.String("player", player),
				zap.String("text", cm.Text))

			select {
			case sess.Inbox() <- session.SubmitGuess{PlayerID: player, Text: cm.Text}:
			case <-sess.Done():
				// Game ended while we were reading; the final summary has
				// already been pushed through the outbox.
				return
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ProtocolError(msg))
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
