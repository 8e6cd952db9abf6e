package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishSync/internal/models"
)

const (
	// writeWait bounds one outbound write.
	writeWait = 10 * time.Second
	// pongWait is the connection-liveness timeout; a connection that stops
	// answering pings is dropped, keeping presence reasonably fresh.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// sendQueueSize bounds the per-client outbound queue.
	sendQueueSize = 64
)

// Client is the per-connection state: the authenticated member, the room it
// joined and the outbound queue. It is owned by its connection's goroutines;
// nothing about the connection lives in ambient gateway state.
type Client struct {
	user   *models.WishlistUser
	roomID string
	conn   *websocket.Conn
	logger *logrus.Logger

	// send is never closed; broadcasters may be writing to it concurrently.
	// done signals the write pump to stop instead.
	send      chan Outbound
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(user *models.WishlistUser, roomID string, conn *websocket.Conn, logger *logrus.Logger) *Client {
	return &Client{
		user:   user,
		roomID: roomID,
		conn:   conn,
		logger: logger,
		send:   make(chan Outbound, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// close signals the pumps to stop. Idempotent.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue queues an outbound message, reporting false when the client's
// queue is full or the client is shutting down.
func (c *Client) enqueue(msg Outbound) bool {
	select {
	case <-c.done:
		return false
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// writePump drains the send queue onto the connection and keeps the
// connection alive with periodic pings. One writePump per connection is the
// only goroutine writing to it.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.WithField("user", c.user.Name).Debugf("Websocket write failed: %v", err)
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

// readPump reads inbound envelopes and hands them to dispatch until the
// connection drops.
func (c *Client) readPump(dispatch func(*Client, []byte)) {
	defer c.conn.Close()

	c.conn.SetReadLimit(64 << 10)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithField("user", c.user.Name).Debugf("Websocket read failed: %v", err)
			}
			return
		}
		dispatch(c, raw)
	}
}
