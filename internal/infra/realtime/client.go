package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one websocket connection bound to an authenticated user.
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte

	closeOnce sync.Once
}

// NewClient wraps an upgraded connection. Serve must be called to start the
// read and write pumps.
func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
	}
}

// Serve attaches the client to the hub and blocks until the connection drops.
func (c *Client) Serve(h *Hub) {
	h.attach(c)
	go c.writePump()
	c.readPump(h)
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (c *Client) readPump(h *Hub) {
	defer h.detach(c)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// clients only listen; reads exist to surface disconnects and pongs
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
