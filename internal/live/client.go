package live

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the maximum time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the maximum time to wait for a pong reply from the peer.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize is the maximum inbound message size in bytes.
	maxMessageSize = 4096
)

// controlMessage is the JSON envelope sent by an observer to keep the
// connection alive or subscribe to per-product alerts.
type controlMessage struct {
	Type      string `json:"type"`                 // "ping" | "subscribe"
	Timestamp string `json:"timestamp,omitempty"`  // ping token, echoed in the pong
	ProductID string `json:"product_id,omitempty"` // subscribe target
}

// Client is a single WebSocket observer connection.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	closed atomic.Bool
}

// NewClient wraps a WebSocket connection as a hub observer.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// ID returns the client's connection identifier.
func (c *Client) ID() string { return c.id }

// Send enqueues data for delivery by the write pump. It fails without
// blocking when the connection is gone or the buffer is full (slow
// consumer); the hub treats either as the observer being unreachable.
func (c *Client) Send(data []byte) error {
	if c.closed.Load() {
		return fmt.Errorf("observer %s is closed", c.id)
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("observer %s send buffer full", c.id)
	}
}

// ReadPump pumps control messages from the WebSocket connection to the
// hub. It runs in its own goroutine per client and disconnects the client
// from the hub when the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.closed.Store(true)
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("live: client %s read error: %v", c.id, err)
			}
			break
		}

		var cm controlMessage
		if err := json.Unmarshal(msg, &cm); err != nil {
			// Malformed inbound messages are ignored; the connection stays open.
			log.Printf("live: client %s sent invalid message: %v", c.id, err)
			continue
		}

		switch cm.Type {
		case "ping":
			c.hub.Heartbeat(c, cm.Timestamp)
		case "subscribe":
			if cm.ProductID == "" {
				log.Printf("live: client %s subscribe without product_id", c.id)
				continue
			}
			c.hub.Subscribe(c, ProductTopic(cm.ProductID))
		default:
			log.Printf("live: client %s unknown message type %q", c.id, cm.Type)
		}
	}
}

// WritePump pumps queued messages to the WebSocket connection. It runs in
// its own goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
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
