package types

import "github.com/slovoigra/spelling-backend/internal/session"

// ClientMessage is one inbound WebSocket frame from the chat-platform
// collaborator. Only guesses arrive this way; session start and the query
// endpoints live on the HTTP side.
type ClientMessage struct {
	Type string `json:"type"` // "guess"
	Text string `json:"text,omitempty"`
}

// ServerMessage is one outbound frame. Notifications already carry their
// own type tag, so the wire shape is the notification itself plus an error
// variant for protocol-level problems.
type ServerMessage struct {
	session.Notification
	Error string `json:"error,omitempty"`
}

func FromNotification(n session.Notification) ServerMessage {
	return ServerMessage{Notification: n}
}

func ProtocolError(msg string) ServerMessage {
	return ServerMessage{
		Notification: session.Notification{Type: "error"},
		Error:        msg,
	}
}
