package chat

import (
	"encoding/json"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Inbound event types.
const (
	TypeCreateRoom  = "create_room"
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypeSendMessage = "send_message"
)

// Outbound event types.
const (
	TypeRoomCreated = "room_created" // global
	TypeRoomDeleted = "room_deleted" // global
	TypeChatHistory = "chat_history" // joining connection only
	TypeMessage     = "message"      // room
	TypeUpdateUsers = "update_users" // room
)

// Event is the envelope of every frame on the realtime channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// InboundEvent defers payload decoding until the type is known.
type InboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type CreateRoomPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

// MembershipPayload is the body of join and leave.
type MembershipPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type SendMessagePayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
	Msg      string `json:"msg"`
}

type RoomCreatedPayload struct {
	Room   string        `json:"room"`
	RoomID domain.RoomID `json:"room_id"`
}

type RoomDeletedPayload struct {
	RoomID domain.RoomID `json:"room_id"`
}

type ChatHistoryPayload struct {
	History []string `json:"history"`
}

type MessagePayload struct {
	Msg string `json:"msg"`
}

type UpdateUsersPayload struct {
	Users []domain.PresenceEntry `json:"users"`
}
