package main

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 64
	maxMessagesPerSec = 60
)

var errClientClosed = errors.New("client connection closed")

// Client is one websocket connection bound to an authenticated user. It
// implements Conn, so the room only ever sees the Send method.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	userID     string
	username   string
	room       *Room

	sendMu sync.Mutex
	closed bool

	msgCount   int
	msgResetAt time.Time
}

// NewClient wraps an upgraded websocket connection.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr, userID, username string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		userID:     userID,
		username:   username,
		msgResetAt: time.Now().Add(time.Second),
	}
}

// Send queues data for the write pump. It never blocks: a full buffer
// drops this snapshot since the next tick supersedes it, and a closed
// client reports an error so the room removes it.
func (c *Client) Send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- data:
	default:
	}
	return nil
}

// SendJSON marshals and queues a message, dropping it on any failure.
func (c *Client) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Send(data)
}

// closeSend marks the client dead and releases the write pump. Safe to
// call more than once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// allowMessage enforces the per-connection inbound rate limit.
func (c *Client) allowMessage() bool {
	now := time.Now()
	if now.After(c.msgResetAt) {
		c.msgCount = 0
		c.msgResetAt = now.Add(time.Second)
	}
	c.msgCount++
	return c.msgCount <= maxMessagesPerSec
}

// ReadPump reads inbound messages until the connection drops or the
// client quits, then unregisters from the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugw("ws read error", "user", c.userID, "err", err)
			}
			return
		}
		if !c.allowMessage() {
			continue
		}

		var env InEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			logger.Debugw("malformed client message", "user", c.userID, "err", err)
			continue
		}
		switch env.Type {
		case MsgInput:
			var in InputPayload
			if err := json.Unmarshal(env.Payload, &in); err != nil {
				continue
			}
			if c.room != nil {
				c.room.ApplyInput(c.userID, in.Left, in.Right, in.Fire)
			}
		case MsgQuit:
			// Deliberate leave, same teardown path as a dropped socket.
			return
		}
	}
}

// WritePump drains the send channel to the socket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
