package event

// Inbound payloads. The same "send-file" event carries either a direct
// transfer (to is set) or a room transfer (roomId is set); SendFilePayload
// holds both shapes and the gateway branches on the discriminator.

type SendFilePayload struct {
	To      string `json:"to"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
	RoomID  string `json:"roomId"`
	File    []byte `json:"file"`
}

type SendTextPayload struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type SendMessagePayload struct {
	RoomID  string `json:"roomId" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

// Outbound payloads. Sender identity is deliberately asymmetric: a direct
// file carries the resolved username, everything else carries the raw
// connection id. Clients depend on both shapes.

type FileDelivery struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
	From    string `json:"from"`
}

type TextDelivery struct {
	Text string `json:"text"`
	From string `json:"from"`
}

type RoomAlert struct {
	RoomID string   `json:"roomId"`
	Users  []string `json:"users"`
}

type MessageDelivery struct {
	Text string `json:"text"`
	From string `json:"from"`
}

type RoomFileDelivery struct {
	Payload []byte `json:"payload"`
	From    string `json:"from"`
}
