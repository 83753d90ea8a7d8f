package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/chat"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/history"
	"github.com/cwrk-planet/chat-service/internal/memory"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	handler http.Handler
	rooms   *service.RoomService
	colors  *presence.Colors
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer := security.NewJWTSigner(key, &key.PublicKey, "chat", "", time.Minute, time.Second)

	dir := memory.NewDirectory()
	auth := service.NewAuthService(dir.Users(), signer, time.Minute,
		security.BcryptConfig{Cost: bcrypt.MinCost, MinLength: 6}, nil)
	rooms := service.NewRoomService(dir.Rooms(), dir.Users(), "admin")

	store, err := history.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := presence.NewRegistry(nil)
	router := chat.NewRouter(chat.NewHub(nil), reg, store, rooms)

	return &testAPI{
		handler: NewRouter(Deps{
			Auth:    auth,
			Colors:  reg.Colors(),
			Rooms:   rooms,
			Deleter: router,
			Tokens:  signer,
		}),
		rooms:  rooms,
		colors: reg.Colors(),
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, username string) AuthResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", "", CredentialsRequest{Username: username, Password: "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestAuthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	reg := api.register(t, "alice")
	assert.NotEmpty(t, reg.AccessToken)
	assert.Equal(t, "alice", reg.Username)
	assert.Regexp(t, `^#[0-9a-f]{6}$`, reg.Color)
	assert.Equal(t, int64(60), reg.ExpiresIn)

	rec := api.do(t, http.MethodPost, "/auth/register", "", CredentialsRequest{Username: "alice", Password: "secret1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/login", "", CredentialsRequest{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))
	assert.Equal(t, reg.UserID, login.UserID)
	assert.Equal(t, reg.Color, login.Color)

	rec = api.do(t, http.MethodPost, "/auth/login", "", CredentialsRequest{Username: "alice", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/register", "", CredentialsRequest{Username: "bob", Password: "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoomsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/rooms", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/rooms", "garbage", nil).Code)
}

func TestListAndDeleteRooms(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	admin := api.register(t, "admin")
	alice := api.register(t, "alice")

	room, err := api.rooms.CreateRoom(ctx, "general", "alice")
	require.NoError(t, err)

	rec := api.do(t, http.MethodGet, "/rooms", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list RoomsListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, []RoomItem{{ID: room.ID, Name: "general", OwnerID: alice.UserID}}, list.Items)

	path := "/rooms/" + itoa(room.ID)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodDelete, path, alice.AccessToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodDelete, "/rooms/abc", admin.AccessToken, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, path, admin.AccessToken, nil).Code)

	_, err = api.rooms.RoomByName(ctx, "general")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	// Unknown ids are accepted, over both routes.
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, path, admin.AccessToken, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodPost, "/delete_room/"+itoa(room.ID), admin.AccessToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPost, "/delete_room/"+itoa(room.ID), alice.AccessToken, nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = api.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrInvalidUsername:    http.StatusBadRequest,
		security.ErrPasswordTooShort: http.StatusBadRequest,
		domain.ErrInvalidCredentials: http.StatusUnauthorized,
		domain.ErrForbidden:          http.StatusForbidden,
		domain.ErrRoomNotFound:       http.StatusNotFound,
		domain.ErrUserExists:         http.StatusConflict,
		context.DeadlineExceeded:     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}

func itoa(id domain.RoomID) string { return strconv.FormatInt(int64(id), 10) }
