package signaling

import "encoding/json"

// Message types exchanged over the /ws socket. The payload of forwarded
// events is opaque to the hub; only join-room payloads are decoded.
const (
	// Client -> Server: join a room.
	TypeJoinRoom = "join-room"

	// Server -> Room: a participant joined. Payload is the userId string.
	// Sent to every current member, including the joining connection.
	TypeUserConnected = "user-connected"

	// Server -> Room: a participant left. Payload is the userId string.
	// Sent only to members remaining after removal.
	TypeUserDisconnected = "user-disconnected"

	// Server -> Client: a request was rejected.
	TypeError = "error"
)

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the connection that sent the message.
	// It's used internally by the Hub and not sent over JSON.
	client *Client `json:"-"`
}

// JoinRoomPayload is the payload of a join-room request.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// newPresenceMessage builds a user-connected or user-disconnected event
// carrying the participant's display id.
func newPresenceMessage(msgType, userID string) *Message {
	payload, _ := json.Marshal(userID)
	return &Message{Type: msgType, Payload: payload}
}

// newErrorMessage builds an error event with a human-readable reason.
func newErrorMessage(reason string) *Message {
	payload, _ := json.Marshal(map[string]string{"error": reason})
	return &Message{Type: TypeError, Payload: payload}
}
