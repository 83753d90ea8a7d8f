package chat

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("chat: invalid event")
	ErrIdentityMismatch = fmt.Errorf("%w: username does not match connection", ErrValidation)
	ErrUnknownEvent     = fmt.Errorf("%w: unknown event type", ErrValidation)
	ErrNotSubscribed    = errors.New("chat: connection not subscribed to room")
	ErrConnClosed       = errors.New("chat: connection closed")
	ErrSendBufferFull   = errors.New("chat: send buffer full")
)
