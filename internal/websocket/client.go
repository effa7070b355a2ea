package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Client is one user's live connection. Only the hub writes to or closes
// send; the read side replies through the hub as well.
type Client struct {
	UserID   string
	UserRole string
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte
}

// IncomingMessage is the only thing clients send: keepalive pings from apps
// that cannot answer protocol-level ping frames
type IncomingMessage struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type pongMessage struct {
	Type       string `json:"type"`
	Timestamp  string `json:"timestamp"`
	ClientTime string `json:"client_timestamp,omitempty"`
}

func NewClient(userID, userRole string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID:   userID,
		UserRole: userRole,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, sendBuffer),
	}
}

// ReadPump reads until the connection drops, then unregisters the client
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️  [WEBSOCKET] Read error for %s: %v", c.UserID, err)
			}
			return
		}
		c.handle(raw)
	}
}

func (c *Client) handle(raw []byte) {
	var msg IncomingMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("⚠️  [WEBSOCKET] Ignoring malformed message from %s: %v", c.UserID, err)
		return
	}

	switch msg.Type {
	case "ping":
		reply, err := json.Marshal(pongMessage{
			Type:       "pong",
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			ClientTime: msg.Timestamp,
		})
		if err != nil {
			return
		}
		if !c.hub.reply(c, reply) {
			log.Printf("⚠️  [WEBSOCKET] Dropped pong for %s, connection replaced or backed up", c.UserID)
		}
	default:
		log.Printf("⚠️  [WEBSOCKET] Unknown message type %q from %s", msg.Type, c.UserID)
	}
}

// WritePump sends each queued event as its own text frame and keeps the
// connection alive with protocol pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced"))
				return
			}
			if err := c.write(websocket.TextMessage, payload); err != nil {
				log.Printf("⚠️  [WEBSOCKET] Write to %s failed: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, payload []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, payload)
}
