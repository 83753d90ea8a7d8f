package grpcx

import (
	"context"
	"errors"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/security"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const mdAuthorization = "authorization"

type Authenticator interface {
	Authenticate(token string) (security.Identity, error)
}

type RoomLister interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
}

type RoomDeleter interface {
	DeleteRoom(ctx context.Context, id domain.RoomID, requester string) error
}

type PresenceReader interface {
	Snapshot(room string) []domain.PresenceEntry
}

// MemberCounter reports the users currently subscribed to a room.
type MemberCounter interface {
	Members(room string) []string
}

type Server struct {
	auth     Authenticator
	rooms    RoomLister
	deleter  RoomDeleter
	presence PresenceReader
	members  MemberCounter
}

func NewServer(auth Authenticator, rooms RoomLister, deleter RoomDeleter, presence PresenceReader, members MemberCounter) *Server {
	return &Server{
		auth:     auth,
		rooms:    rooms,
		deleter:  deleter,
		presence: presence,
		members:  members,
	}
}

// -------- helpers --------

func (s *Server) identityFromMD(ctx context.Context) (security.Identity, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return security.Identity{}, status.Error(codes.Unauthenticated, "missing metadata")
	}
	auth := first(md.Get(mdAuthorization))
	if auth == "" {
		return security.Identity{}, status.Error(codes.Unauthenticated, "missing authorization")
	}
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") || len(auth) <= 7 {
		return security.Identity{}, status.Error(codes.Unauthenticated, "invalid authorization")
	}
	id, err := s.auth.Authenticate(strings.TrimSpace(auth[7:]))
	if err != nil {
		return security.Identity{}, status.Error(codes.Unauthenticated, "invalid token")
	}
	return id, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -------- methods --------

func (s *Server) DeleteRoom(ctx context.Context, in *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	id, err := s.identityFromMD(ctx)
	if err != nil {
		return nil, err
	}
	if in.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "invalid room id")
	}
	if err := s.deleter.DeleteRoom(ctx, domain.RoomID(in.GetValue()), id.Username); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) ListRooms(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	if _, err := s.identityFromMD(ctx); err != nil {
		return nil, err
	}
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	items := make([]any, 0, len(rooms))
	for _, rm := range rooms {
		items = append(items, map[string]any{
			"id":       int64(rm.ID),
			"name":     rm.Name,
			"owner_id": int64(rm.OwnerID),
			"online":   len(s.members.Members(rm.Name)),
		})
	}
	out, err := structpb.NewList(items)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *Server) Presence(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if _, err := s.identityFromMD(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.GetValue()) == "" {
		return nil, status.Error(codes.InvalidArgument, "room is required")
	}
	snap := s.presence.Snapshot(in.GetValue())
	items := make([]any, 0, len(snap))
	for _, e := range snap {
		items = append(items, map[string]any{"username": e.Username, "color": e.Color})
	}
	out, err := structpb.NewList(items)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
