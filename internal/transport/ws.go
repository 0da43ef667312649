package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size. Observations and actions are small;
	// anything bigger is a protocol violation.
	maxMessageSize = 64 * 1024

	sendBufferSize    = 64
	receiveBufferSize = 16
)

// WSConn adapts a gorilla websocket connection to the Conn interface with
// dedicated read and write pumps.
type WSConn struct {
	conn    *websocket.Conn
	send    chan Envelope
	inbound chan Envelope

	done      chan struct{}
	closeOnce sync.Once

	logger *zap.Logger
}

var _ Conn = (*WSConn)(nil)

// NewWSConn wraps an upgraded websocket connection and starts its pumps.
func NewWSConn(conn *websocket.Conn, logger *zap.Logger) *WSConn {
	c := &WSConn{
		conn:    conn,
		send:    make(chan Envelope, sendBufferSize),
		inbound: make(chan Envelope, receiveBufferSize),
		done:    make(chan struct{}),
		logger:  logger,
	}

	go c.readPump()
	go c.writePump()

	return c
}

func (c *WSConn) Send(msg Envelope) error {
	select {
	case <-c.done:
		return ErrDisconnected
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrDisconnected
	default:
		// the peer stopped draining; treat it as gone
		c.Close("send buffer full")
		return ErrSendBufferFull
	}
}

func (c *WSConn) Receive(ctx context.Context, timeout time.Duration) (Envelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-timer.C:
		return Envelope{}, ErrTimeout
	case <-c.done:
		return Envelope{}, ErrDisconnected
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (c *WSConn) Done() <-chan struct{} {
	return c.done
}

func (c *WSConn) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
		_ = c.conn.Close()
	})
}

func (c *WSConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *WSConn) readPump() {
	defer c.Close("read pump stopped")

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error",
					zap.String("remoteAddr", c.RemoteAddr()),
					zap.Error(err))
			}
			return
		}

		var msg Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("malformed message from agent",
				zap.String("remoteAddr", c.RemoteAddr()),
				zap.Error(err))
			// malformed framing is a protocol violation
			return
		}

		select {
		case c.inbound <- msg:
		case <-c.done:
			return
		default:
			// inbound backlog means the agent floods us between action
			// requests; drop the connection rather than buffer unbounded
			c.logger.Warn("inbound buffer full, dropping connection",
				zap.String("remoteAddr", c.RemoteAddr()))
			return
		}
	}
}

func (c *WSConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close("write pump stopped")
	}()

	for {
		select {
		case msg := <-c.send:
			data, err := json.Marshal(msg)
			if err != nil {
				c.logger.Error("failed to marshal message", zap.Error(err))
				continue
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
