package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Subscriber connection limits. Dashboards only listen, so inbound frames
// are small and ignored.
const (
	frameTimeout   = 5 * time.Second
	idleTimeout    = 30 * time.Second
	keepalive      = idleTimeout * 9 / 10
	maxInboundSize = 4 * 1024
	queueDepth     = 8
)

// Client streams hub broadcasts to one websocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

func (c *Client) queue() chan Message { return c.send }

// Attach registers conn with h. Call Run from the websocket handler.
func Attach(h *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan Message, queueDepth),
	}
	h.join(c)
	return c
}

// Run blocks until the subscriber disconnects or the hub drops it.
func (c *Client) Run() {
	go c.stream()
	c.watch()
	c.hub.leave(c)
	c.conn.Close()
}

// watch consumes inbound frames until the connection fails. Every pong
// extends the idle deadline.
func (c *Client) watch() {
	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// stream owns all writes to the connection. Snapshots that piled up behind
// a slow socket are collapsed so only the newest is sent.
func (c *Client) stream() {
	ping := time.NewTicker(keepalive)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg, ok := <-c.send:
			if ok {
				msg, ok = newest(msg, c.send)
			}
			c.conn.SetWriteDeadline(time.Now().Add(frameTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(frameTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// newest drains whatever is already queued behind msg and returns the last
// frame. ok is false once the hub has closed q.
func newest(msg Message, q <-chan Message) (Message, bool) {
	for {
		select {
		case next, ok := <-q:
			if !ok {
				return msg, false
			}
			msg = next
		default:
			return msg, true
		}
	}
}
