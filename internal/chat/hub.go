package chat

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/metrics"
)

// Hub tracks registered connections and the rooms each one is subscribed to.
// Broadcasts run under the read lock, so a connection that has been
// unsubscribed never receives a later room event.
type Hub struct {
	mu    sync.RWMutex
	conns map[Conn]map[string]struct{} // conn -> joined rooms
	rooms map[string]map[Conn]struct{} // room -> subscribers
	log   *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		conns: make(map[Conn]map[string]struct{}),
		rooms: make(map[string]map[Conn]struct{}),
		log:   log,
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		h.conns[c] = make(map[string]struct{})
	}
}

// Unregister forgets c and returns the rooms it was subscribed to, sorted.
func (h *Hub) Unregister(c Conn) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.conns[c]
	if !ok {
		return nil
	}
	delete(h.conns, c)

	out := make([]string, 0, len(joined))
	for room := range joined {
		h.removeLocked(c, room)
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Subscribe adds c to room's broadcast group. It fails for unregistered connections.
func (h *Hub) Subscribe(c Conn, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.conns[c]
	if !ok {
		return false
	}
	joined[room] = struct{}{}
	rs, ok := h.rooms[room]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[room] = rs
	}
	rs[c] = struct{}{}
	return true
}

// Unsubscribe removes c from room and reports whether it was subscribed.
func (h *Hub) Unsubscribe(c Conn, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.conns[c]
	if !ok {
		return false
	}
	if _, ok := joined[room]; !ok {
		return false
	}
	delete(joined, room)
	h.removeLocked(c, room)
	return true
}

func (h *Hub) Subscribed(c Conn, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// SubscribedAs reports whether any connection of username is subscribed to room.
func (h *Hub) SubscribedAs(room, username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		if c.Username() == username {
			return true
		}
	}
	return false
}

// Members returns the distinct usernames subscribed to room, sorted.
func (h *Hub) Members(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]struct{}, len(h.rooms[room]))
	out := make([]string, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if _, ok := seen[c.Username()]; ok {
			continue
		}
		seen[c.Username()] = struct{}{}
		out = append(out, c.Username())
	}
	sort.Strings(out)
	return out
}

// DropRoom unsubscribes every connection from room and returns them.
func (h *Hub) DropRoom(room string) []Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs := h.rooms[room]
	out := make([]Conn, 0, len(rs))
	for c := range rs {
		delete(h.conns[c], room)
		out = append(out, c)
	}
	delete(h.rooms, room)
	return out
}

// Rooms returns the rooms c is subscribed to, sorted.
func (h *Hub) Rooms(c Conn) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.conns[c]))
	for room := range h.conns[c] {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// CloseAll closes every registered connection. Their read loops then
// disconnect them through the router.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.Close(); err != nil {
			h.log.Debug("close connection failed", "conn", c.ID(), "err", err)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends ev to every subscriber of room and returns how many accepted it.
func (h *Hub) Broadcast(room string, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sendAll(h.rooms[room], ev)
}

// BroadcastAll sends ev to every registered connection.
func (h *Hub) BroadcastAll(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.conns {
		if h.send(c, ev) {
			n++
		}
	}
	return n
}

func (h *Hub) sendAll(set map[Conn]struct{}, ev Event) int {
	n := 0
	for c := range set {
		if h.send(c, ev) {
			n++
		}
	}
	return n
}

// send is best effort: a failed send is logged and counted, never retried.
func (h *Hub) send(c Conn, ev Event) bool {
	if err := c.Send(ev); err != nil {
		metrics.DroppedSends.Inc()
		h.log.Debug("hub send failed", "conn", c.ID(), "type", ev.Type, "err", err)
		return false
	}
	return true
}

func (h *Hub) removeLocked(c Conn, room string) {
	if rs, ok := h.rooms[room]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, room)
		}
	}
}
