package directory

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"peerdrop/domain"
)

// Directory owns the room table: membership plus per-room message and file
// history. Rooms exist from first join until process restart; membership
// only shrinks through an explicit leave. A disconnect does NOT prune
// membership here; the stale entry simply stops resolving to a live sink
// until an explicit leave arrives.
type Directory struct {
	mu    sync.Mutex
	log   *slog.Logger
	rooms map[domain.RoomID]*domain.Room
	// limit bounds per-room history; nil means unbounded.
	limit *int
}

func NewDirectory(log *slog.Logger, limit *int) *Directory {
	return &Directory{
		log:   log,
		rooms: make(map[domain.RoomID]*domain.Room),
		limit: limit,
	}
}

// EnsureRoom returns the existing room or creates an empty one. Idempotent,
// never fails.
func (d *Directory) EnsureRoom(id domain.RoomID) *domain.Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureLocked(id)
}

func (d *Directory) ensureLocked(id domain.RoomID) *domain.Room {
	room, ok := d.rooms[id]
	if !ok {
		room = domain.NewRoom(id)
		d.rooms[id] = room
		d.log.Debug("Room created", "room_id", id)
	}
	return room
}

// Join adds the connection to the room's member set, creating the room if
// absent. Joining twice leaves a single membership entry.
func (d *Directory) Join(id domain.RoomID, conn domain.ConnID, name domain.Username) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room := d.ensureLocked(id)
	if room.HasMember(conn) {
		return
	}
	room.Members = append(room.Members, domain.Member{Conn: conn, Name: name})
}

// Leave removes the connection from the member set if the room exists,
// no-op otherwise. Unlike Join it triggers no notification.
func (d *Directory) Leave(id domain.RoomID, conn domain.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[id]
	if !ok {
		return
	}
	for i, m := range room.Members {
		if m.Conn == conn {
			room.Members = append(room.Members[:i], room.Members[i+1:]...)
			return
		}
	}
}

// RecordMessage appends to the room history. A room that was never joined
// silently drops the message and reports false.
func (d *Directory) RecordMessage(id domain.RoomID, text string, sender domain.ConnID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[id]
	if !ok {
		d.log.Debug("Message for unknown room dropped", "room_id", id, "conn", sender)
		return false
	}
	room.Messages = append(room.Messages, domain.Message{Text: text, Sender: sender})
	if d.limit != nil && len(room.Messages) > *d.limit {
		room.Messages = room.Messages[len(room.Messages)-*d.limit:]
	}
	return true
}

// RecordFile appends a file payload to the room history with the same
// unknown-room semantics as RecordMessage.
func (d *Directory) RecordFile(id domain.RoomID, payload []byte, sender domain.ConnID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[id]
	if !ok {
		d.log.Debug("File for unknown room dropped", "room_id", id, "conn", sender)
		return false
	}
	room.Files = append(room.Files, domain.File{Payload: payload, Sender: sender})
	if d.limit != nil && len(room.Files) > *d.limit {
		room.Files = room.Files[len(room.Files)-*d.limit:]
	}
	return true
}

// MembersOf returns the member connections in insertion order, for fan-out.
func (d *Directory) MembersOf(id domain.RoomID) []domain.ConnID {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[id]
	if !ok {
		return nil
	}
	return lo.Map(room.Members, func(m domain.Member, _ int) domain.ConnID {
		return m.Conn
	})
}

// MemberNames returns the member usernames in insertion order, for the
// room-joined notification.
func (d *Directory) MemberNames(id domain.RoomID) []domain.Username {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[id]
	if !ok {
		return nil
	}
	return lo.Map(room.Members, func(m domain.Member, _ int) domain.Username {
		return m.Name
	})
}

// History returns copies of the recorded messages and files, mostly for
// inspection and tests.
func (d *Directory) History(id domain.RoomID) ([]domain.Message, []domain.File) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[id]
	if !ok {
		return nil, nil
	}
	messages := make([]domain.Message, len(room.Messages))
	copy(messages, room.Messages)
	files := make([]domain.File, len(room.Files))
	copy(files, room.Files)
	return messages, files
}
