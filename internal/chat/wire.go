package chat

import "encoding/json"

const (
	// Server -> client: a message addressed to this identity was persisted.
	EventNewMessage = "newMessage"
	// Client -> server: relay hint for a message already persisted over
	// HTTP. Never a durability path.
	EventSendMessage = "sendMessage"
)

// Event is the envelope for everything crossing the push channel.
type Event struct {
	Type    string          `json:"type"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}
