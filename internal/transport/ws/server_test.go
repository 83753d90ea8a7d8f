package ws

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/chat"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/history"
	"github.com/cwrk-planet/chat-service/internal/memory"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type testEnv struct {
	srv    *httptest.Server
	signer *security.JWTSigner
	users  map[string]domain.UserID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer := security.NewJWTSigner(key, &key.PublicKey, "chat", "", time.Minute, time.Second)

	dir := memory.NewDirectory()
	users := make(map[string]domain.UserID)
	for _, name := range []string{"admin", "alice", "bob"} {
		id, err := dir.Users().Create(ctx, &domain.User{Username: name, PasswordHash: "x"})
		require.NoError(t, err)
		users[name] = id
	}
	rooms := service.NewRoomService(dir.Rooms(), dir.Users(), "admin")
	_, err = rooms.CreateRoom(ctx, "general", "admin")
	require.NoError(t, err)

	store, err := history.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	router := chat.NewRouter(chat.NewHub(nil), presence.NewRegistry(nil), store, rooms)
	ws := NewServer(router, signer, Config{PingEvery: time.Second}, nil)

	srv := httptest.NewServer(http.HandlerFunc(ws.HandleWS))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, signer: signer, users: users}
}

func (e *testEnv) dial(t *testing.T, username string) *websocket.Conn {
	t.Helper()
	tok, err := e.signer.SignAccessToken(security.Identity{UserID: e.users[username], Username: username}, time.Now())
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?access_token=" + tok
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, c *websocket.Conn, typ string, payload any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(map[string]any{"type": typ, "payload": payload}))
}

func read(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, c.ReadJSON(&f))
	return f
}

func readMsg(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	f := read(t, c)
	require.Equal(t, chat.TypeMessage, f.Type)
	var p chat.MessagePayload
	require.NoError(t, json.Unmarshal(f.Payload, &p))
	return p.Msg
}

func TestHandleWS_RejectsMissingOrBadToken(t *testing.T) {
	e := newTestEnv(t)
	base := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"

	for _, url := range []string{base, base + "?access_token=garbage"} {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestHandleWS_ChatFlow(t *testing.T) {
	e := newTestEnv(t)

	alice := e.dial(t, "alice")
	send(t, alice, chat.TypeJoin, chat.MembershipPayload{Username: "alice", Room: "general"})

	f := read(t, alice)
	require.Equal(t, chat.TypeChatHistory, f.Type)
	assert.JSONEq(t, `{"history":[]}`, string(f.Payload))
	assert.Equal(t, "alice joined", readMsg(t, alice))
	assert.Equal(t, chat.TypeUpdateUsers, read(t, alice).Type)

	send(t, alice, chat.TypeSendMessage, chat.SendMessagePayload{Username: "alice", Room: "general", Msg: "hi"})
	assert.Equal(t, "alice: hi", readMsg(t, alice))

	bob := e.dial(t, "bob")
	send(t, bob, chat.TypeJoin, chat.MembershipPayload{Username: "bob", Room: "general"})

	f = read(t, bob)
	require.Equal(t, chat.TypeChatHistory, f.Type)
	var hist chat.ChatHistoryPayload
	require.NoError(t, json.Unmarshal(f.Payload, &hist))
	require.Len(t, hist.History, 2)
	assert.True(t, strings.HasSuffix(hist.History[0], "] alice joined"))
	assert.True(t, strings.HasSuffix(hist.History[1], "] alice: hi"))

	assert.Equal(t, "bob joined", readMsg(t, bob))
	f = read(t, bob)
	require.Equal(t, chat.TypeUpdateUsers, f.Type)
	var users chat.UpdateUsersPayload
	require.NoError(t, json.Unmarshal(f.Payload, &users))
	require.Len(t, users.Users, 2)
	assert.Equal(t, "alice", users.Users[0].Username)
	assert.Equal(t, "bob", users.Users[1].Username)

	assert.Equal(t, "bob joined", readMsg(t, alice))
	assert.Equal(t, chat.TypeUpdateUsers, read(t, alice).Type)

	// Closing bob's socket is an implicit leave.
	require.NoError(t, bob.Close())
	assert.Equal(t, "bob left", readMsg(t, alice))
	f = read(t, alice)
	require.Equal(t, chat.TypeUpdateUsers, f.Type)
	require.NoError(t, json.Unmarshal(f.Payload, &users))
	require.Len(t, users.Users, 1)
	assert.Equal(t, "alice", users.Users[0].Username)
}

func TestHandleWS_ImpersonationIsIgnored(t *testing.T) {
	e := newTestEnv(t)

	alice := e.dial(t, "alice")
	send(t, alice, chat.TypeJoin, chat.MembershipPayload{Username: "bob", Room: "general"})
	send(t, alice, chat.TypeCreateRoom, chat.CreateRoomPayload{Room: "lobby", Username: "alice"})

	f := read(t, alice)
	assert.Equal(t, chat.TypeRoomCreated, f.Type)
	assert.JSONEq(t, `{"room":"lobby","room_id":2}`, string(f.Payload))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://chat.example.com/"})

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://chat.example.com")
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(r))

	assert.True(t, originChecker(nil)(r))
	assert.True(t, originChecker([]string{"*"})(r))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
}
