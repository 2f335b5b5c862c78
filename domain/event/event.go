package event

import "encoding/json"

// Name identifies an event on the wire.
type Name string

// Client -> server vocabulary.
const (
	Join        Name = "join"
	SendFile    Name = "send-file"
	SendText    Name = "send-text"
	JoinRoom    Name = "join-room"
	SendMessage Name = "send-message"
	LeaveRoom   Name = "leave-room"
)

// Server -> client vocabulary.
const (
	OnlineUsers     Name = "online-users"
	ReceiveFile     Name = "receive-file"
	ReceiveText     Name = "receive-text"
	RoomJoinedAlert Name = "room-joined-alert"
	ReceiveMessage  Name = "receive-message"
)

// Envelope is the frame exchanged over the websocket in both directions.
// Data stays raw until the event name tells us which payload to expect.
type Envelope struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope wraps a typed payload into a wire frame.
func NewEnvelope(name Name, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: name, Data: raw}, nil
}
