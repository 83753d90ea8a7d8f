package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/go-chi/chi/v5"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (*service.AuthResult, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
}

type RoomLister interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
}

type RoomDeleter interface {
	DeleteRoom(ctx context.Context, id domain.RoomID, requester string) error
}

// ColorSource returns a user's display color, assigning one on first use.
type ColorSource interface {
	For(id domain.UserID) string
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
	UserID      domain.UserID `json:"user_id"`
	Username    string        `json:"username"`
	Color       string        `json:"color"`
}

type RoomItem struct {
	ID      domain.RoomID `json:"id"`
	Name    string        `json:"name"`
	OwnerID domain.UserID `json:"owner_id,omitempty"`
}

type RoomsListResponse struct {
	Items []RoomItem `json:"items"`
}

type AuthHandlers struct {
	Auth   AuthService
	Colors ColorSource
}

// POST /auth/register
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, http.StatusCreated, h.Auth.Register)
}

// POST /auth/login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, http.StatusOK, h.Auth.Login)
}

func (h *AuthHandlers) authenticate(w http.ResponseWriter, r *http.Request, okStatus int,
	do func(ctx context.Context, username, password string) (*service.AuthResult, error)) {
	var in CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	res, err := do(r.Context(), in.Username, in.Password)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			L(r.Context()).Error("auth failed", "err", err)
			writeError(w, status, "internal error")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, okStatus, AuthResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   int64(res.ExpiresIn.Seconds()),
		UserID:      res.Identity.UserID,
		Username:    res.Identity.Username,
		Color:       h.Colors.For(res.Identity.UserID),
	})
}

type RoomHandlers struct {
	Rooms   RoomLister
	Deleter RoomDeleter
}

// GET /rooms
func (h *RoomHandlers) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Rooms.ListRooms(r.Context())
	if err != nil {
		L(r.Context()).Error("list rooms failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms))}
	for _, rm := range rooms {
		resp.Items = append(resp.Items, RoomItem{ID: rm.ID, Name: rm.Name, OwnerID: rm.OwnerID})
	}
	writeJSON(w, http.StatusOK, resp)
}

// DELETE /rooms/{id}, POST /delete_room/{id}
//
// Deleting an unknown id succeeds with 204.
func (h *RoomHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	ident, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	err = h.Deleter.DeleteRoom(r.Context(), domain.RoomID(id), ident.Username)
	switch {
	case err == nil, errors.Is(err, domain.ErrRoomNotFound):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		L(r.Context()).Error("delete room failed", "room_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
