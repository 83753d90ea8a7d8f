package ws

import (
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/chat"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/security"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsConn queues outbound events for its write loop. A connection whose queue
// is full is closed instead of slowing the sender down.
type wsConn struct {
	id    string
	ident security.Identity
	conn  *websocket.Conn

	send      chan chat.Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, ident security.Identity, buffer int) *wsConn {
	return &wsConn{
		id:     uuid.NewString(),
		ident:  ident,
		conn:   c,
		send:   make(chan chat.Event, buffer),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string            { return c.id }
func (c *wsConn) UserID() domain.UserID { return c.ident.UserID }
func (c *wsConn) Username() string      { return c.ident.Username }

func (c *wsConn) Send(ev chat.Event) error {
	select {
	case <-c.closed:
		return chat.ErrConnClosed
	default:
	}

	select {
	case c.send <- ev:
		return nil
	default:
		go func() { _ = c.Close() }()
		return chat.ErrSendBufferFull
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) write(ev chat.Event, wait time.Duration) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wait))
	return c.conn.WriteJSON(ev)
}
