// Package presence tracks who is live in which room and with what display color.
//
// Every room has its own lock, so joins and leaves in different rooms never
// contend; the registry map lock is held only to find or drop a room.
package presence

import (
	"sort"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*room
	colors *Colors
}

type room struct {
	mu      sync.Mutex
	dead    bool
	order   []string
	members map[string]string // username -> color
}

func NewRegistry(colors *Colors) *Registry {
	if colors == nil {
		colors = NewColors(nil)
	}
	return &Registry{rooms: make(map[string]*room), colors: colors}
}

func (r *Registry) Colors() *Colors { return r.colors }

// Join records username in roomName and returns its color together with the
// membership right after the join. A zero userID means the user is unknown to
// the directory: such a user gets a fresh color that is not cached.
// Joining again overwrites the entry in place.
func (r *Registry) Join(roomName, username string, userID domain.UserID) (string, []domain.PresenceEntry) {
	var c string
	if userID != 0 {
		c = r.colors.For(userID)
	} else {
		c = r.colors.Fallback()
	}

	rm := r.lockRoom(roomName)
	if _, ok := rm.members[username]; !ok {
		rm.order = append(rm.order, username)
	}
	rm.members[username] = c
	snap := rm.snapshot()
	r.release(roomName, rm)

	return c, snap
}

// Leave removes username from roomName. It reports whether an entry existed and
// returns the membership right after the removal. The user's cached color is kept.
func (r *Registry) Leave(roomName, username string) (bool, []domain.PresenceEntry) {
	rm := r.lockRoom(roomName)
	_, ok := rm.members[username]
	if ok {
		delete(rm.members, username)
		for i, u := range rm.order {
			if u == username {
				rm.order = append(rm.order[:i], rm.order[i+1:]...)
				break
			}
		}
	}
	snap := rm.snapshot()
	r.release(roomName, rm)

	return ok, snap
}

// Snapshot returns the current membership of roomName in join order.
func (r *Registry) Snapshot(roomName string) []domain.PresenceEntry {
	r.mu.Lock()
	rm, ok := r.rooms[roomName]
	r.mu.Unlock()
	if !ok {
		return []domain.PresenceEntry{}
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.dead {
		return []domain.PresenceEntry{}
	}
	return rm.snapshot()
}

// Evict drops every entry of roomName and returns the usernames that were present.
func (r *Registry) Evict(roomName string) []string {
	r.mu.Lock()
	rm, ok := r.rooms[roomName]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	rm.mu.Lock()
	if rm.dead {
		rm.mu.Unlock()
		return nil
	}
	evicted := append([]string(nil), rm.order...)
	rm.order = nil
	clear(rm.members)
	r.release(roomName, rm)

	return evicted
}

// Rooms lists rooms that currently have at least one member, sorted by name.
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	out := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		out = append(out, name)
	}
	r.mu.Unlock()
	sort.Strings(out)
	return out
}

// lockRoom returns the live room for name with its lock held, creating it if needed.
func (r *Registry) lockRoom(name string) *room {
	for {
		r.mu.Lock()
		rm, ok := r.rooms[name]
		if !ok {
			rm = &room{members: make(map[string]string)}
			r.rooms[name] = rm
		}
		r.mu.Unlock()

		rm.mu.Lock()
		if !rm.dead {
			return rm
		}
		// dropped between lookup and lock; retry with a fresh room
		rm.mu.Unlock()
	}
}

// release unlocks rm, dropping it from the registry once it is empty.
func (r *Registry) release(name string, rm *room) {
	if len(rm.members) == 0 {
		rm.dead = true
		r.mu.Lock()
		if r.rooms[name] == rm {
			delete(r.rooms, name)
		}
		r.mu.Unlock()
	}
	rm.mu.Unlock()
}

func (rm *room) snapshot() []domain.PresenceEntry {
	out := make([]domain.PresenceEntry, 0, len(rm.order))
	for _, u := range rm.order {
		out = append(out, domain.PresenceEntry{Username: u, Color: rm.members[u]})
	}
	return out
}
