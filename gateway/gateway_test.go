package gateway

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"peerdrop/directory"
	"peerdrop/domain"
	"peerdrop/domain/event"
	"peerdrop/observability"
	"peerdrop/registry"
	"peerdrop/relay"
)

// captureSink stands in for a websocket client.
type captureSink struct {
	frames []event.Envelope
}

func (c *captureSink) Consume(e event.Envelope) error {
	c.frames = append(c.frames, e)
	return nil
}

func (c *captureSink) received(name event.Name) []event.Envelope {
	var matched []event.Envelope
	for _, frame := range c.frames {
		if frame.Event == name {
			matched = append(matched, frame)
		}
	}
	return matched
}

type fixture struct {
	gateway   *Gateway
	hub       *Hub
	directory *directory.Directory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.Default()
	stats := observability.NewStats()
	hub := NewHub(log, stats)
	reg := registry.NewRegistry(log, hub)
	dir := directory.NewDirectory(log, nil)
	router := relay.NewRouter(log, reg, dir, hub, stats)
	gw := NewGateway(log, reg, router, hub, stats, "*", 16, 0)
	return &fixture{gateway: gw, hub: hub, directory: dir}
}

func (f *fixture) connect(conn domain.ConnID) *captureSink {
	sink := &captureSink{}
	f.hub.Add(conn, sink)
	return sink
}

func envelope(t *testing.T, name event.Name, payload any) event.Envelope {
	t.Helper()
	env, err := event.NewEnvelope(name, payload)
	require.NoError(t, err)
	return env
}

func decode[T any](t *testing.T, env event.Envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestGateway_Join_Broadcasts_Presence_To_Everyone(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.connect("conn-1")
	bob := f.connect("conn-2")

	// When both clients join
	f.gateway.Dispatch("conn-1", envelope(t, event.Join, "alice"))
	f.gateway.Dispatch("conn-2", envelope(t, event.Join, "bob"))

	// Then everyone saw the second snapshot with both names in join order
	req.Len(alice.received(event.OnlineUsers), 2)
	snapshots := bob.received(event.OnlineUsers)
	req.Len(snapshots, 2)
	req.Equal([]string{"alice", "bob"}, decode[[]string](t, snapshots[1]))
}

func TestGateway_Presence_Snapshot_Is_Last_Bind_Wins(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.connect("conn-1")
	observer := f.connect("conn-2")

	// When two connections claim the same name
	f.gateway.Dispatch("conn-1", envelope(t, event.Join, "alice"))
	f.gateway.Dispatch("conn-2", envelope(t, event.Join, "alice"))

	// Then the snapshot shows the name exactly once
	snapshots := observer.received(event.OnlineUsers)
	req.Equal([]string{"alice"}, decode[[]string](t, snapshots[len(snapshots)-1]))
}

func TestGateway_Scenario_Direct_Text_Then_Room_Message(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.connect("conn-1")
	bob := f.connect("conn-2")

	// Given alice and bob joined
	f.gateway.Dispatch("conn-1", envelope(t, event.Join, "alice"))
	f.gateway.Dispatch("conn-2", envelope(t, event.Join, "bob"))

	// When alice sends a direct text to bob
	f.gateway.Dispatch("conn-1", envelope(t, event.SendText,
		event.SendTextPayload{To: "bob", Text: "hi"}))

	// Then bob received exactly one receive-text with the text
	texts := bob.received(event.ReceiveText)
	req.Len(texts, 1)
	req.Equal("hi", decode[event.TextDelivery](t, texts[0]).Text)
	req.Empty(alice.received(event.ReceiveText))

	// When both join room ABCDE and bob posts a room message
	f.gateway.Dispatch("conn-1", envelope(t, event.JoinRoom,
		event.JoinRoomPayload{RoomID: "ABCDE"}))
	f.gateway.Dispatch("conn-2", envelope(t, event.JoinRoom,
		event.JoinRoomPayload{RoomID: "ABCDE"}))
	f.gateway.Dispatch("conn-2", envelope(t, event.SendMessage,
		event.SendMessagePayload{RoomID: "ABCDE", Message: "hello room"}))

	// Then both members received it, sender included
	for _, sink := range []*captureSink{alice, bob} {
		messages := sink.received(event.ReceiveMessage)
		req.Len(messages, 1)
		delivery := decode[event.MessageDelivery](t, messages[0])
		req.Equal("hello room", delivery.Text)
		req.Equal("conn-2", delivery.From)
	}
}

func TestGateway_SendFile_Branches_On_Payload_Shape(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.connect("conn-1")
	bob := f.connect("conn-2")

	f.gateway.Dispatch("conn-1", envelope(t, event.Join, "alice"))
	f.gateway.Dispatch("conn-2", envelope(t, event.Join, "bob"))

	// When the send-file payload carries a "to" field
	f.gateway.Dispatch("conn-1", envelope(t, event.SendFile, event.SendFilePayload{
		To: "bob", Name: "notes.txt", Type: "text/plain", Payload: []byte("hello"),
	}))

	// Then it was routed as a direct file with the sender's username
	files := bob.received(event.ReceiveFile)
	req.Len(files, 1)
	delivery := decode[event.FileDelivery](t, files[0])
	req.Equal("alice", delivery.From)
	req.Equal([]byte("hello"), delivery.Payload)

	// When the payload carries a roomId instead
	f.gateway.Dispatch("conn-2", envelope(t, event.JoinRoom,
		event.JoinRoomPayload{RoomID: "ABCDE"}))
	f.gateway.Dispatch("conn-2", envelope(t, event.SendFile, event.SendFilePayload{
		RoomID: "ABCDE", File: []byte{0x01},
	}))

	// Then it was routed as a room file stamped with the connection id
	files = bob.received(event.ReceiveFile)
	req.Len(files, 2)
	roomDelivery := decode[event.RoomFileDelivery](t, files[1])
	req.Equal("conn-2", roomDelivery.From)
}

func TestGateway_Malformed_Payloads_Never_Crash_The_Dispatcher(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	observer := f.connect("conn-1")

	req.NotPanics(func() {
		// join with a non-string payload
		f.gateway.Dispatch("conn-1", event.Envelope{
			Event: event.Join, Data: json.RawMessage(`{"nested": true}`)})
		// send-text missing required fields
		f.gateway.Dispatch("conn-1", envelope(t, event.SendText,
			event.SendTextPayload{To: "bob"}))
		// send-text with a scalar payload
		f.gateway.Dispatch("conn-1", event.Envelope{
			Event: event.SendText, Data: json.RawMessage(`42`)})
		// send-file with neither "to" nor "roomId"
		f.gateway.Dispatch("conn-1", envelope(t, event.SendFile,
			event.SendFilePayload{Name: "orphan.bin", Payload: []byte{0x1}}))
		// unknown event name
		f.gateway.Dispatch("conn-1", event.Envelope{
			Event: "shutdown-server", Data: json.RawMessage(`{}`)})
	})

	// And none of it produced outbound traffic
	req.Empty(observer.frames)
}

func TestGateway_Disconnect_Unbinds_But_Keeps_Room_Membership(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.connect("conn-1")
	bob := f.connect("conn-2")

	f.gateway.Dispatch("conn-1", envelope(t, event.Join, "alice"))
	f.gateway.Dispatch("conn-2", envelope(t, event.Join, "bob"))
	f.gateway.Dispatch("conn-1", envelope(t, event.JoinRoom,
		event.JoinRoomPayload{RoomID: "ABCDE"}))

	// When alice's connection goes away
	f.gateway.Disconnected("conn-1")

	// Then presence no longer lists alice
	snapshots := bob.received(event.OnlineUsers)
	req.Equal([]string{"bob"}, decode[[]string](t, snapshots[len(snapshots)-1]))

	// But the room still carries the stale membership until a leave
	req.Equal([]domain.ConnID{"conn-1"}, f.directory.MembersOf("ABCDE"))
}

func TestClient_Consume_Drops_Frame_When_Buffer_Is_Full(t *testing.T) {
	req := require.New(t)
	stats := observability.NewStats()

	// Given a client with room for a single queued frame
	client := NewClient("conn-1", nil, 1, slog.Default(), stats)

	first := envelope(t, event.ReceiveText, event.TextDelivery{Text: "one"})
	second := envelope(t, event.ReceiveText, event.TextDelivery{Text: "two"})

	// When two frames arrive before the write pump drains any
	req.NoError(client.Consume(first))
	err := client.Consume(second)

	// Then the second frame is lost, not blocked on
	req.Error(err)
	req.Equal(uint64(1), stats.Snapshot().DroppedFrames)
}

func TestGateway_LeaveRoom_Prunes_Membership_Without_Broadcast(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.connect("conn-1")

	f.gateway.Dispatch("conn-1", envelope(t, event.Join, "alice"))
	f.gateway.Dispatch("conn-1", envelope(t, event.JoinRoom,
		event.JoinRoomPayload{RoomID: "ABCDE"}))
	alerts := len(alice.received(event.RoomJoinedAlert))

	// When alice leaves the room
	f.gateway.Dispatch("conn-1", envelope(t, event.LeaveRoom,
		event.LeaveRoomPayload{RoomID: "ABCDE"}))

	// Then membership is gone and no extra alert was sent
	req.Empty(f.directory.MembersOf("ABCDE"))
	req.Len(alice.received(event.RoomJoinedAlert), alerts)
}
