package signaling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024 // 16 KB - presence payloads are small
)

// Client is a wrapper for a single websocket connection (one participant's
// transport session). It has no membership knowledge of its own; it only
// moves messages between the socket and the hub.
type Client struct {
	// ID is unique for the lifetime of the process, assigned at accept time.
	ID ConnID

	// Hub is the hub that manages this client.
	Hub *Hub

	// Conn is the websocket connection.
	Conn *websocket.Conn

	// Send is a buffered channel for all outbound messages.
	// The hub writes to this channel, and WritePump drains it onto the
	// socket. The hub closes it once the disconnect sequence completes.
	Send chan *Message

	// limiter throttles inbound messages from this connection.
	limiter *rate.Limiter

	log *slog.Logger

	closeOnce sync.Once
}

// NewClient wraps an accepted websocket connection. The caller starts the
// pumps and registers the client with the hub.
func NewClient(id ConnID, hub *Hub, conn *websocket.Conn, sendBuffer int, limit rate.Limit, burst int, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		ID:      id,
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan *Message, sendBuffer),
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

// signalClose hands the client to the hub's disconnect path exactly once,
// regardless of which pump (or error path) noticed the termination first.
func (c *Client) signalClose() {
	c.closeOnce.Do(func() {
		c.Hub.Unregister <- c
	})
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The
// application ensures that there is at most one reader on a connection by
// executing all reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.signalClose()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("read error", "conn", c.ID, "error", err)
			}
			break
		}

		if !c.limiter.Allow() {
			c.log.Debug("closing connection for rate limit", "conn", c.ID)
			c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit"),
				time.Now().Add(writeWait))
			break
		}

		msg.client = c
		c.Hub.Inbound <- &msg
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				c.log.Debug("write error", "conn", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
