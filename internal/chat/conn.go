package chat

import "github.com/cwrk-planet/chat-service/internal/domain"

// Conn is one authenticated realtime connection. Send must not block: it
// enqueues the event or fails.
type Conn interface {
	ID() string
	UserID() domain.UserID
	Username() string
	Send(ev Event) error
	Close() error
}
