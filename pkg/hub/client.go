package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// sendWait bounds a single websocket write.
	sendWait = 10 * time.Second

	// pongWait is how long a silent connection counts as alive; pings go
	// out at twice that rate.
	pongWait     = 60 * time.Second
	pingInterval = pongWait / 2

	// readLimit caps inbound messages. Clients only send pongs and close
	// frames; dashboard data flows one way.
	readLimit = 1024
)

// Client is one dashboard websocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// send is buffered so a burst of preview frames does not immediately
	// evict a briefly-stalled browser.
	send chan Envelope
}

// NewClient creates a client and registers it with the hub
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Envelope, 128),
	}
	hub.register <- client
	return client
}

// Send queues an envelope directly to this client, bypassing the hub.
// Used to replay state to a freshly connected client.
func (c *Client) Send(env Envelope) {
	select {
	case c.send <- env:
	default:
	}
}

// Run services the connection until the peer disconnects or the hub
// drops the client. Blocks; call from the websocket handler.
func (c *Client) Run() {
	go c.writeLoop()
	c.awaitClose()
}

// awaitClose consumes inbound frames. They exist only to carry pong
// responses and to signal disconnection.
func (c *Client) awaitClose() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only goroutine writing to the connection. It drains
// the send channel and keeps the peer alive with periodic pings.
func (c *Client) writeLoop() {
	pings := time.NewTicker(pingInterval)
	defer func() {
		pings.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(sendWait))
			if !ok {
				// Hub closed the channel; say goodbye properly.
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			msgType := websocket.TextMessage
			if env.binary() {
				msgType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(msgType, env.Data); err != nil {
				return
			}

		case <-pings.C:
			c.conn.SetWriteDeadline(time.Now().Add(sendWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
