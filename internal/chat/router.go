package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/history"
	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/presence"
)

const (
	defaultMaxMessageLen = 4000
	defaultEventTimeout  = 5 * time.Second
)

// Directory is the part of the room service the router needs.
type Directory interface {
	CreateRoom(ctx context.Context, name, username string) (*domain.Room, error)
	DeleteRoom(ctx context.Context, id domain.RoomID, requester string) (*domain.Room, error)
	RoomByName(ctx context.Context, name string) (*domain.Room, error)
}

// Router validates inbound events and fans out their effects. All events
// touching one room are applied one at a time, in arrival order.
type Router struct {
	hub      *Hub
	presence *presence.Registry
	history  history.Store
	rooms    Directory
	locks    *roomLocks
	log      *slog.Logger

	evictOnDelete bool
	maxMsgLen     int
	eventTimeout  time.Duration
}

type Option func(*Router)

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// WithEvictOnDelete controls whether deleting a room clears its presence and subscriptions.
func WithEvictOnDelete(v bool) Option {
	return func(r *Router) { r.evictOnDelete = v }
}

func WithMaxMessageLen(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxMsgLen = n
		}
	}
}

func WithEventTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.eventTimeout = d
		}
	}
}

func NewRouter(hub *Hub, reg *presence.Registry, store history.Store, rooms Directory, opts ...Option) *Router {
	r := &Router{
		hub:           hub,
		presence:      reg,
		history:       store,
		rooms:         rooms,
		locks:         newRoomLocks(),
		log:           slog.Default(),
		evictOnDelete: true,
		maxMsgLen:     defaultMaxMessageLen,
		eventTimeout:  defaultEventTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Router) Presence() *presence.Registry { return r.presence }

// Connect registers c so it receives global events.
func (r *Router) Connect(c Conn) {
	r.hub.Register(c)
	metrics.Connections.Inc()
	r.log.Info("connection opened", "conn", c.ID(), "user", c.Username())
}

// Handle decodes one raw frame and dispatches it. Rejected events are logged
// and counted, nothing is sent back to the connection.
func (r *Router) Handle(ctx context.Context, c Conn, raw []byte) {
	var in InboundEvent
	if err := json.Unmarshal(raw, &in); err != nil {
		r.reject(c, "invalid", fmt.Errorf("%w: %v", ErrValidation, err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.eventTimeout)
	defer cancel()

	var err error
	switch in.Type {
	case TypeCreateRoom:
		var p CreateRoomPayload
		if err = decodePayload(in.Payload, &p); err == nil {
			err = r.CreateRoom(ctx, c, p)
		}
	case TypeJoin:
		var p MembershipPayload
		if err = decodePayload(in.Payload, &p); err == nil {
			err = r.Join(ctx, c, p)
		}
	case TypeLeave:
		var p MembershipPayload
		if err = decodePayload(in.Payload, &p); err == nil {
			err = r.Leave(ctx, c, p)
		}
	case TypeSendMessage:
		var p SendMessagePayload
		if err = decodePayload(in.Payload, &p); err == nil {
			err = r.SendMessage(ctx, c, p)
		}
	default:
		r.reject(c, "unknown", ErrUnknownEvent)
		return
	}

	if err != nil {
		r.reject(c, in.Type, err)
		return
	}
	metrics.Events.WithLabelValues(in.Type, metrics.ResultOK).Inc()
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", ErrValidation)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func (r *Router) reject(c Conn, typ string, err error) {
	metrics.Events.WithLabelValues(typ, metrics.ResultDropped).Inc()
	r.log.Debug("event dropped", "conn", c.ID(), "type", typ, "err", err)
}

func (r *Router) checkIdentity(c Conn, username string) error {
	if username == "" {
		return fmt.Errorf("%w: empty username", ErrValidation)
	}
	if username != c.Username() {
		return ErrIdentityMismatch
	}
	return nil
}

// CreateRoom creates a room owned by the sender and announces it to everyone.
func (r *Router) CreateRoom(ctx context.Context, c Conn, p CreateRoomPayload) error {
	if err := r.checkIdentity(c, p.Username); err != nil {
		return err
	}
	room, err := r.rooms.CreateRoom(ctx, p.Room, p.Username)
	if err != nil {
		return err
	}
	r.log.Info("room created", "room", room.Name, "room_id", room.ID, "owner", p.Username)
	r.hub.BroadcastAll(Event{Type: TypeRoomCreated, Payload: RoomCreatedPayload{Room: room.Name, RoomID: room.ID}})
	return nil
}

// Join subscribes c to the room, sends it the room history, then announces
// the arrival and the new presence snapshot to the room.
func (r *Router) Join(ctx context.Context, c Conn, p MembershipPayload) error {
	if err := r.checkIdentity(c, p.Username); err != nil {
		return err
	}
	if p.Room == "" {
		return fmt.Errorf("%w: empty room", ErrValidation)
	}
	if _, err := r.rooms.RoomByName(ctx, p.Room); err != nil {
		return err
	}

	unlock := r.locks.Lock(p.Room)
	defer unlock()

	// DeleteRoom evicts under this lock after removing the room, so a
	// deletion that raced the first lookup is only visible from here.
	if _, err := r.rooms.RoomByName(ctx, p.Room); err != nil {
		return err
	}
	if !r.hub.Subscribe(c, p.Room) {
		return ErrConnClosed
	}
	_, users := r.presence.Join(p.Room, p.Username, c.UserID())

	lines, err := r.history.ReadAll(ctx, p.Room)
	if err != nil {
		r.historyFailed("read", p.Room, err)
		lines = []string{}
	}
	if err := c.Send(Event{Type: TypeChatHistory, Payload: ChatHistoryPayload{History: lines}}); err != nil {
		metrics.DroppedSends.Inc()
		r.log.Debug("history delivery failed", "conn", c.ID(), "room", p.Room, "err", err)
	}

	r.announce(ctx, p.Room, domain.JoinedText(p.Username), users)
	return nil
}

// Leave removes the sender from the room. Leaving a room never joined is
// allowed; nothing is announced for rooms that no longer exist.
func (r *Router) Leave(ctx context.Context, c Conn, p MembershipPayload) error {
	if err := r.checkIdentity(c, p.Username); err != nil {
		return err
	}
	if p.Room == "" {
		return fmt.Errorf("%w: empty room", ErrValidation)
	}
	exists, err := r.roomExists(ctx, p.Room)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock(p.Room)
	defer unlock()

	r.hub.Unsubscribe(c, p.Room)
	_, users := r.presence.Leave(p.Room, p.Username)
	if exists {
		r.announce(ctx, p.Room, domain.LeftText(p.Username), users)
	}
	return nil
}

// SendMessage appends the message to history and delivers it to the room.
func (r *Router) SendMessage(ctx context.Context, c Conn, p SendMessagePayload) error {
	if err := r.checkIdentity(c, p.Username); err != nil {
		return err
	}
	if p.Room == "" {
		return fmt.Errorf("%w: empty room", ErrValidation)
	}
	if strings.TrimSpace(p.Msg) == "" {
		return fmt.Errorf("%w: empty message", ErrValidation)
	}
	if domain.HasControl(p.Msg) {
		return fmt.Errorf("%w: control characters in message", ErrValidation)
	}
	if utf8.RuneCountInString(p.Msg) > r.maxMsgLen {
		return fmt.Errorf("%w: message too long", ErrValidation)
	}

	unlock := r.locks.Lock(p.Room)
	defer unlock()

	if !r.hub.Subscribed(c, p.Room) {
		return ErrNotSubscribed
	}
	text := domain.ChatText(p.Username, p.Msg)
	if err := r.history.Append(ctx, p.Room, text); err != nil {
		r.historyFailed("append", p.Room, err)
	}
	r.hub.Broadcast(p.Room, Event{Type: TypeMessage, Payload: MessagePayload{Msg: text}})
	return nil
}

// DeleteRoom removes a room from the directory and tells every connection.
// Unknown ids return domain.ErrRoomNotFound and announce nothing.
func (r *Router) DeleteRoom(ctx context.Context, id domain.RoomID, requester string) error {
	room, err := r.rooms.DeleteRoom(ctx, id, requester)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock(room.Name)
	if r.evictOnDelete {
		dropped := r.hub.DropRoom(room.Name)
		evicted := r.presence.Evict(room.Name)
		r.log.Info("room evicted", "room", room.Name, "connections", len(dropped), "users", len(evicted))
	}
	if f, ok := r.history.(history.Forgetter); ok {
		f.Forget(room.Name)
	}
	unlock()

	r.log.Info("room deleted", "room", room.Name, "room_id", room.ID, "by", requester)
	r.hub.BroadcastAll(Event{Type: TypeRoomDeleted, Payload: RoomDeletedPayload{RoomID: room.ID}})
	return nil
}

// Disconnect unregisters c and leaves every room it had joined. A user who is
// still in the room through another connection stays present.
func (r *Router) Disconnect(ctx context.Context, c Conn) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.eventTimeout)
	defer cancel()

	rooms := r.hub.Unregister(c)
	metrics.Connections.Dec()
	r.log.Info("connection closed", "conn", c.ID(), "user", c.Username(), "rooms", len(rooms))

	for _, name := range rooms {
		r.leaveOnDisconnect(ctx, c.Username(), name)
	}
}

func (r *Router) leaveOnDisconnect(ctx context.Context, username, name string) {
	exists, err := r.roomExists(ctx, name)
	if err != nil {
		r.log.Warn("room lookup failed on disconnect", "room", name, "err", err)
	}

	unlock := r.locks.Lock(name)
	defer unlock()

	if r.hub.SubscribedAs(name, username) {
		return
	}
	removed, users := r.presence.Leave(name, username)
	if removed && exists {
		r.announce(ctx, name, domain.LeftText(username), users)
	}
}

// announce appends a system line and broadcasts it with the presence
// snapshot. The caller holds the room lock.
func (r *Router) announce(ctx context.Context, room, text string, users []domain.PresenceEntry) {
	if err := r.history.Append(ctx, room, text); err != nil {
		r.historyFailed("append", room, err)
	}
	r.hub.Broadcast(room, Event{Type: TypeMessage, Payload: MessagePayload{Msg: text}})
	r.hub.Broadcast(room, Event{Type: TypeUpdateUsers, Payload: UpdateUsersPayload{Users: users}})
}

func (r *Router) roomExists(ctx context.Context, name string) (bool, error) {
	_, err := r.rooms.RoomByName(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrRoomNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *Router) historyFailed(op, room string, err error) {
	metrics.HistoryErrors.WithLabelValues(op).Inc()
	r.log.Error("history "+op+" failed", "room", room, "err", err)
}
