package relay

import (
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"

	"peerdrop/contract"
	"peerdrop/domain"
	"peerdrop/domain/event"
	"peerdrop/observability"
)

// Router is the stateless dispatcher between inbound events and outbound
// deliveries. It consults the registry for identity, the directory for
// membership, and pushes frames through sinks. Every delivery is
// fire-and-forget: unresolved targets and unknown rooms degrade to
// "nothing happens", never to an error surfaced to the sender.
type Router struct {
	log       *slog.Logger
	registry  contract.IRegistry
	directory contract.IDirectory
	sinks     contract.SinkProvider
	stats     *observability.Stats
}

func NewRouter(
	log *slog.Logger,
	registry contract.IRegistry,
	directory contract.IDirectory,
	sinks contract.SinkProvider,
	stats *observability.Stats,
) *Router {
	return &Router{
		log:       log,
		registry:  registry,
		directory: directory,
		sinks:     sinks,
		stats:     stats,
	}
}

// DirectFile delivers a file to the single connection bound to the target
// username. The sender is stamped with its resolved username; an empty MIME
// type is sniffed from the payload bytes instead of being forwarded blank.
func (r *Router) DirectFile(from domain.ConnID, name, mimeType string, payload []byte, to domain.Username) {
	target, ok := r.registry.Resolve(to)
	if !ok {
		r.log.Debug("Direct file target not online, dropping", "to", to, "from", from)
		r.stats.IncrDroppedEvents()
		return
	}

	senderName, ok := r.registry.NameOf(from)
	if !ok {
		senderName = domain.Username(from)
	}
	if mimeType == "" {
		mimeType = mimetype.Detect(payload).String()
	}

	r.deliver(target, event.ReceiveFile, event.FileDelivery{
		Name:    name,
		Type:    mimeType,
		Payload: payload,
		From:    string(senderName),
	})
	r.stats.IncrFilesRelayed()
}

// DirectText delivers a text to the single connection bound to the target
// username. The sender is stamped with its raw connection id, not the
// resolved username; clients depend on this shape.
func (r *Router) DirectText(from domain.ConnID, text string, to domain.Username) {
	target, ok := r.registry.Resolve(to)
	if !ok {
		r.log.Debug("Direct text target not online, dropping", "to", to, "from", from)
		r.stats.IncrDroppedEvents()
		return
	}

	r.deliver(target, event.ReceiveText, event.TextDelivery{
		Text: text,
		From: string(from),
	})
	r.stats.IncrMessagesRelayed()
}

// JoinRoom adds the connection to the room and alerts every current member,
// joiner included, with the updated username list. The alert fires on every
// join event, even one that did not grow the member set.
func (r *Router) JoinRoom(from domain.ConnID, room domain.RoomID) {
	name, ok := r.registry.NameOf(from)
	if !ok {
		// Unnamed connections still get a seat, displayed by their id.
		name = domain.Username(from)
	}
	r.directory.Join(room, from, name)

	users := lo.Map(r.directory.MemberNames(room), func(u domain.Username, _ int) string {
		return string(u)
	})
	alert := event.RoomAlert{RoomID: string(room), Users: users}
	for _, member := range r.directory.MembersOf(room) {
		r.deliver(member, event.RoomJoinedAlert, alert)
	}
}

// LeaveRoom removes the connection from the room. Unlike JoinRoom, no
// notification goes out.
func (r *Router) LeaveRoom(from domain.ConnID, room domain.RoomID) {
	r.directory.Leave(room, from)
}

// RoomMessage records the message then fans it out to every member,
// including the sender, stamped with the raw connection id.
func (r *Router) RoomMessage(from domain.ConnID, room domain.RoomID, text string) {
	if !r.directory.RecordMessage(room, text, from) {
		r.stats.IncrDroppedEvents()
		return
	}

	delivery := event.MessageDelivery{Text: text, From: string(from)}
	for _, member := range r.directory.MembersOf(room) {
		r.deliver(member, event.ReceiveMessage, delivery)
		r.stats.IncrMessagesRelayed()
	}
}

// RoomFile records the payload then fans it out to every member, sender
// included.
func (r *Router) RoomFile(from domain.ConnID, room domain.RoomID, payload []byte) {
	if !r.directory.RecordFile(room, payload, from) {
		r.stats.IncrDroppedEvents()
		return
	}

	delivery := event.RoomFileDelivery{Payload: payload, From: string(from)}
	for _, member := range r.directory.MembersOf(room) {
		r.deliver(member, event.ReceiveFile, delivery)
		r.stats.IncrFilesRelayed()
	}
}

// deliver pushes one frame to one connection. Members without a live sink
// (already disconnected, membership never pruned) are skipped silently.
func (r *Router) deliver(to domain.ConnID, name event.Name, payload any) {
	sink, ok := r.sinks.SinkFor(to)
	if !ok {
		r.log.Debug("No live sink for member, skipping", "conn", to, "event", name)
		return
	}
	env, err := event.NewEnvelope(name, payload)
	if err != nil {
		r.log.Error("Failed to encode outbound event", "event", name, "error", err)
		return
	}
	if err := sink.Consume(env); err != nil {
		r.log.Debug("Sink rejected frame", "conn", to, "event", name, "error", err)
	}
}
