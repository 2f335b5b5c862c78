package contract

import (
	"context"
	"peerdrop/domain"
	"peerdrop/domain/event"
	"reflect"
)

// EventSink is one delivery target. Consume must not block: slow consumers
// drop frames, they never stall the relay.
type EventSink interface {
	Consume(e event.Envelope) error
}

// SinkProvider resolves live connections into their sinks.
type SinkProvider interface {
	SinkFor(conn domain.ConnID) (EventSink, bool)
	Broadcast(e event.Envelope)
}

// PresenceNotifier receives the recomputed presence snapshot whenever the
// connection registry changes.
type PresenceNotifier interface {
	PresenceChanged(users []domain.Username)
}

type IRegistry interface {
	Bind(conn domain.ConnID, name domain.Username)
	Unbind(conn domain.ConnID)
	Resolve(name domain.Username) (domain.ConnID, bool)
	NameOf(conn domain.ConnID) (domain.Username, bool)
	Snapshot() []domain.Username
}

type IDirectory interface {
	EnsureRoom(id domain.RoomID) *domain.Room
	Join(id domain.RoomID, conn domain.ConnID, name domain.Username)
	Leave(id domain.RoomID, conn domain.ConnID)
	RecordMessage(id domain.RoomID, text string, sender domain.ConnID) bool
	RecordFile(id domain.RoomID, payload []byte, sender domain.ConnID) bool
	MembersOf(id domain.RoomID) []domain.ConnID
	MemberNames(id domain.RoomID) []domain.Username
}

type IRouter interface {
	DirectFile(from domain.ConnID, name, mimeType string, payload []byte, to domain.Username)
	DirectText(from domain.ConnID, text string, to domain.Username)
	JoinRoom(from domain.ConnID, room domain.RoomID)
	LeaveRoom(from domain.ConnID, room domain.RoomID)
	RoomMessage(from domain.ConnID, room domain.RoomID, text string)
	RoomFile(from domain.ConnID, room domain.RoomID, payload []byte)
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
