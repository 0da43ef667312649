package transport

import "encoding/json"

type MessageType string

const (
	// server -> agent
	MessageTypeGameStart     MessageType = "game_start"
	MessageTypeRequestAction MessageType = "request_action"
	MessageTypeGameEnd       MessageType = "game_end"
	MessageTypeInfo          MessageType = "info"
	MessageTypeError         MessageType = "error"

	// agent -> server
	MessageTypeAction MessageType = "action"
)

// Envelope is the framed message exchanged with an agent. Payload content is
// game specific and opaque to the server core.
type Envelope struct {
	Type    MessageType     `json:"type"`
	GameID  string          `json:"gameId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// GameEndPayload is sent to each surviving participant when a game ends.
type GameEndPayload struct {
	Won   bool            `json:"won"`
	Stats json.RawMessage `json:"stats,omitempty"`
}

// InfoPayload carries a human-readable server notice.
type InfoPayload struct {
	Message string `json:"message"`
}
