package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

const DefaultAdminUsername = "admin"

type RoomService struct {
	rooms RoomRepository
	users UserRepository
	admin string
}

func NewRoomService(rooms RoomRepository, users UserRepository, adminUsername string) *RoomService {
	if strings.TrimSpace(adminUsername) == "" {
		adminUsername = DefaultAdminUsername
	}
	return &RoomService{rooms: rooms, users: users, admin: adminUsername}
}

func (s *RoomService) IsAdmin(username string) bool { return username == s.admin }

// CreateRoom stores a new room owned by username.
func (s *RoomService) CreateRoom(ctx context.Context, name, username string) (*domain.Room, error) {
	name, err := domain.NormalizeRoomName(name)
	if err != nil {
		return nil, err
	}
	owner, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolve owner: %w", err)
	}

	if _, err := s.rooms.GetByName(ctx, name); err == nil {
		return nil, domain.ErrRoomExists
	} else if !errors.Is(err, domain.ErrRoomNotFound) {
		return nil, fmt.Errorf("roomRepo.GetByName: %w", err)
	}

	room := &domain.Room{Name: name, OwnerID: owner.ID}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("roomRepo.Create: %w", err)
	}
	return room, nil
}

// DeleteRoom removes the room with id on behalf of requester, who must be the administrator.
// It returns the deleted room so callers can clean up live state keyed by its name.
func (s *RoomService) DeleteRoom(ctx context.Context, id domain.RoomID, requester string) (*domain.Room, error) {
	if !s.IsAdmin(requester) {
		return nil, domain.ErrForbidden
	}
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("roomRepo.Delete: %w", err)
	}
	return room, nil
}

func (s *RoomService) RoomByName(ctx context.Context, name string) (*domain.Room, error) {
	return s.rooms.GetByName(ctx, name)
}

func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.List(ctx)
}

func (s *RoomService) UserByName(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}
