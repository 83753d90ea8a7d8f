package presence

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// RandomColor returns a "#rrggbb" display color.
func RandomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(0x1000000))
}

// Colors caches one display color per user for the lifetime of the process.
type Colors struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]string
	gen    func() string
}

func NewColors(gen func() string) *Colors {
	if gen == nil {
		gen = RandomColor
	}
	return &Colors{byUser: make(map[domain.UserID]string), gen: gen}
}

// For returns the cached color of id, assigning one on first use.
func (c *Colors) For(id domain.UserID) string {
	c.mu.RLock()
	color, ok := c.byUser[id]
	c.mu.RUnlock()
	if ok {
		return color
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if color, ok := c.byUser[id]; ok {
		return color
	}
	color = c.gen()
	c.byUser[id] = color
	return color
}

func (c *Colors) Lookup(id domain.UserID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	color, ok := c.byUser[id]
	return color, ok
}

// Fallback is a one-off color for callers without a known identity. It is not cached.
func (c *Colors) Fallback() string { return c.gen() }
