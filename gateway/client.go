package gateway

import (
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"

	"peerdrop/domain"
	"peerdrop/domain/event"
	"peerdrop/errors"
	"peerdrop/observability"
)

// Client is one websocket connection. A read pump feeds inbound frames to
// the gateway dispatcher, a write pump drains the buffered send channel.
// Separating the two avoids head-of-line blocking when a browser is slow.
type Client struct {
	ID     domain.ConnID
	socket *websocket.Conn
	send   chan event.Envelope
	done   chan struct{}
	log    *slog.Logger
	stats  *observability.Stats
}

func NewClient(id domain.ConnID, socket *websocket.Conn, bufferSize int,
	log *slog.Logger, stats *observability.Stats) *Client {
	return &Client{
		ID:     id,
		socket: socket,
		send:   make(chan event.Envelope, bufferSize),
		done:   make(chan struct{}),
		log:    log,
		stats:  stats,
	}
}

// Consume implements contract.EventSink. The push never blocks: when the
// buffer is full the frame is lost for this recipient, which is the
// best-effort contract for slow consumers. The send channel is never
// closed, so a fan-out racing with teardown cannot panic.
func (c *Client) Consume(e event.Envelope) error {
	select {
	case <-c.done:
		return errors.ErrConnClosed
	default:
	}

	select {
	case c.send <- e:
		return nil
	default:
		c.stats.IncrDroppedFrames()
		return errors.ErrSinkFull
	}
}

// readPump decodes inbound envelopes and hands them to the dispatcher.
// Any read error, including a normal close, tears the connection down.
func (c *Client) readPump(g *Gateway) {
	defer func() {
		g.Disconnected(c.ID)
		close(c.done)
		_ = c.socket.Close()
	}()

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Websocket read failed", "conn", c.ID, "error", err)
			}
			return
		}

		var env event.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Debug("Unparseable frame dropped", "conn", c.ID, "error", err)
			c.stats.IncrDroppedEvents()
			continue
		}
		g.Dispatch(c.ID, env)
	}
}

// writePump serializes every queued frame onto the socket until teardown,
// then signals the peer with a close frame.
func (c *Client) writePump() {
	defer func() { _ = c.socket.Close() }()

	for {
		select {
		case <-c.done:
			_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case env := <-c.send:
			if err := c.socket.WriteJSON(env); err != nil {
				c.log.Debug("Websocket write failed", "conn", c.ID, "error", err)
				return
			}
		}
	}
}
