package domain

// ConnID is the opaque transport-assigned identity of a live connection.
type ConnID string

// Username is the human-chosen display name bound to a connection.
type Username string

// RoomID is the short opaque code identifying an ad-hoc room.
type RoomID string

type Member struct {
	Conn ConnID
	Name Username
}

type Message struct {
	Text   string
	Sender ConnID
}

type File struct {
	Payload []byte
	Sender  ConnID
}

// Room lives from first join until process restart. Membership keeps
// insertion order for display; history is append-only.
type Room struct {
	ID       RoomID
	Members  []Member
	Messages []Message
	Files    []File
}

func NewRoom(id RoomID) *Room {
	return &Room{ID: id}
}

// HasMember reports whether the connection already sits in the member set.
func (r *Room) HasMember(conn ConnID) bool {
	for _, m := range r.Members {
		if m.Conn == conn {
			return true
		}
	}
	return false
}
