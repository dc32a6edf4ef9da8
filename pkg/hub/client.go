package hub

import (
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps what a dashboard client may send us
	maxMessageSize = 4 * 1024
)

// ErrHubStopped is returned when registering with a hub that is not running.
var ErrHubStopped = errors.New("hub: stopped")

// Client represents a single websocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	// done is closed when writePump returns
	done chan struct{}
}

// NewClient creates a client for conn. initial, if any, are queued ahead of
// broadcasts so the client starts from the current state.
func NewClient(hub *Hub, conn *websocket.Conn, initial ...Message) (*Client, error) {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
	for _, m := range initial {
		client.send <- m
	}

	select {
	case hub.register <- client:
		return client, nil
	case <-hub.done:
		return nil, ErrHubStopped
	}
}

// Run starts the client's read and write pumps and blocks until both have
// exited. The websocket handler must not return before that, since the
// connection is pooled and reused once it does.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
	<-c.done
}

// readPump keeps reading to detect disconnection and receive pongs.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump is the only goroutine that writes to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message.Data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
