// Package memory is an in-process Room Directory and user store, used when no
// postgres DSN is configured and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type Directory struct {
	mu       sync.RWMutex
	nextRoom domain.RoomID
	nextUser domain.UserID
	rooms    map[domain.RoomID]domain.Room
	users    map[domain.UserID]domain.User
}

func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[domain.RoomID]domain.Room),
		users: make(map[domain.UserID]domain.User),
	}
}

// Rooms and Users expose the directory through the repository method sets.
func (d *Directory) Rooms() *RoomRepository { return &RoomRepository{d: d} }
func (d *Directory) Users() *UserRepository { return &UserRepository{d: d} }

type RoomRepository struct{ d *Directory }

func (r *RoomRepository) Create(_ context.Context, room *domain.Room) error {
	d := r.d
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rm := range d.rooms {
		if rm.Name == room.Name {
			return domain.ErrRoomExists
		}
	}
	d.nextRoom++
	room.ID = d.nextRoom
	d.rooms[room.ID] = *room
	return nil
}

func (r *RoomRepository) Get(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	rm, ok := r.d.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &rm, nil
}

func (r *RoomRepository) GetByName(_ context.Context, name string) (*domain.Room, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, rm := range r.d.rooms {
		if rm.Name == name {
			return &rm, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (r *RoomRepository) List(_ context.Context) ([]domain.Room, error) {
	r.d.mu.RLock()
	out := make([]domain.Room, 0, len(r.d.rooms))
	for _, rm := range r.d.rooms {
		out = append(out, rm)
	}
	r.d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RoomRepository) Delete(_ context.Context, id domain.RoomID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.rooms[id]; !ok {
		return domain.ErrRoomNotFound
	}
	delete(r.d.rooms, id)
	return nil
}

type UserRepository struct{ d *Directory }

func (r *UserRepository) Create(_ context.Context, u *domain.User) (domain.UserID, error) {
	d := r.d
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.users {
		if existing.Username == u.Username {
			return 0, domain.ErrUserExists
		}
	}
	d.nextUser++
	u.ID = d.nextUser
	d.users[u.ID] = *u
	return u.ID, nil
}

func (r *UserRepository) GetByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	u, ok := r.d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	for _, u := range r.d.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}
