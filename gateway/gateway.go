package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"peerdrop/contract"
	"peerdrop/domain"
	"peerdrop/domain/event"
	"peerdrop/observability"
)

var validate = validator.New()

// Gateway is the single entry and exit point for client events. It owns no
// relay state: it decodes and validates inbound frames, then binds event
// names to registry and router calls. A malformed payload is dropped, it
// never crashes the dispatcher.
type Gateway struct {
	log      *slog.Logger
	registry contract.IRegistry
	router   contract.IRouter
	hub      *Hub
	stats    *observability.Stats
	upgrader websocket.Upgrader

	connectionBufferSize int
	maxPayloadBytes      int64
}

func NewGateway(
	log *slog.Logger,
	registry contract.IRegistry,
	router contract.IRouter,
	hub *Hub,
	stats *observability.Stats,
	allowedOrigin string,
	connectionBufferSize int,
	maxPayloadBytes int64,
) *Gateway {
	return &Gateway{
		log:      log,
		registry: registry,
		router:   router,
		hub:      hub,
		stats:    stats,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigin),
		},
		connectionBufferSize: connectionBufferSize,
		maxPayloadBytes:      maxPayloadBytes,
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "*" {
			return true
		}
		return r.Header.Get("Origin") == allowed
	}
}

// ServeWS upgrades the HTTP request, registers the connection in the hub
// and starts the per-connection pumps. Nothing else happens until the
// client sends a join event: identity is name-only and unauthenticated.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if g.maxPayloadBytes > 0 {
		socket.SetReadLimit(g.maxPayloadBytes)
	}

	client := NewClient(domain.ConnID(uuid.NewString()), socket,
		g.connectionBufferSize, g.log, g.stats)
	g.hub.Add(client.ID, client)
	g.log.Info("Client connected", "conn", client.ID, "remote", r.RemoteAddr)

	go client.writePump()
	go client.readPump(g)
}

// Disconnected runs the teardown for a gone connection: the hub forgets the
// sink and the registry unbinds the username. Room membership is left
// untouched on purpose; only an explicit leave-room prunes it.
func (g *Gateway) Disconnected(conn domain.ConnID) {
	g.hub.Remove(conn)
	g.registry.Unbind(conn)
	g.log.Info("Client disconnected", "conn", conn)
}

// Dispatch routes one inbound envelope to the matching operation.
func (g *Gateway) Dispatch(conn domain.ConnID, env event.Envelope) {
	switch env.Event {
	case event.Join:
		g.onJoin(conn, env.Data)
	case event.SendFile:
		g.onSendFile(conn, env.Data)
	case event.SendText:
		g.onSendText(conn, env.Data)
	case event.JoinRoom:
		g.onJoinRoom(conn, env.Data)
	case event.SendMessage:
		g.onSendMessage(conn, env.Data)
	case event.LeaveRoom:
		g.onLeaveRoom(conn, env.Data)
	default:
		g.log.Debug("Unknown event dropped", "conn", conn, "event", env.Event)
		g.stats.IncrDroppedEvents()
	}
}

func (g *Gateway) onJoin(conn domain.ConnID, data json.RawMessage) {
	var username string
	if err := json.Unmarshal(data, &username); err != nil || username == "" {
		g.drop(conn, event.Join, err)
		return
	}
	g.registry.Bind(conn, domain.Username(username))
}

// onSendFile serves both shapes of send-file: a direct transfer when "to"
// is set, a room transfer when "roomId" is set.
func (g *Gateway) onSendFile(conn domain.ConnID, data json.RawMessage) {
	var p event.SendFilePayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.drop(conn, event.SendFile, err)
		return
	}

	switch {
	case p.To != "":
		if len(p.Payload) == 0 {
			g.drop(conn, event.SendFile, nil)
			return
		}
		g.router.DirectFile(conn, p.Name, p.Type, p.Payload, domain.Username(p.To))
	case p.RoomID != "":
		if len(p.File) == 0 {
			g.drop(conn, event.SendFile, nil)
			return
		}
		g.router.RoomFile(conn, domain.RoomID(p.RoomID), p.File)
	default:
		g.drop(conn, event.SendFile, nil)
	}
}

func (g *Gateway) onSendText(conn domain.ConnID, data json.RawMessage) {
	var p event.SendTextPayload
	if err := decodeAndValidate(data, &p); err != nil {
		g.drop(conn, event.SendText, err)
		return
	}
	g.router.DirectText(conn, p.Text, domain.Username(p.To))
}

func (g *Gateway) onJoinRoom(conn domain.ConnID, data json.RawMessage) {
	var p event.JoinRoomPayload
	if err := decodeAndValidate(data, &p); err != nil {
		g.drop(conn, event.JoinRoom, err)
		return
	}
	g.router.JoinRoom(conn, domain.RoomID(p.RoomID))
}

func (g *Gateway) onSendMessage(conn domain.ConnID, data json.RawMessage) {
	var p event.SendMessagePayload
	if err := decodeAndValidate(data, &p); err != nil {
		g.drop(conn, event.SendMessage, err)
		return
	}
	g.router.RoomMessage(conn, domain.RoomID(p.RoomID), p.Message)
}

func (g *Gateway) onLeaveRoom(conn domain.ConnID, data json.RawMessage) {
	var p event.LeaveRoomPayload
	if err := decodeAndValidate(data, &p); err != nil {
		g.drop(conn, event.LeaveRoom, err)
		return
	}
	g.router.LeaveRoom(conn, domain.RoomID(p.RoomID))
}

func decodeAndValidate(data json.RawMessage, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return validate.Struct(out)
}

func (g *Gateway) drop(conn domain.ConnID, name event.Name, err error) {
	g.log.Debug("Malformed payload dropped", "conn", conn, "event", name, "error", err)
	g.stats.IncrDroppedEvents()
}
