package domain

import (
	"strings"
	"unicode/utf8"
)

type RoomID int64

type Room struct {
	ID      RoomID `db:"id"`
	Name    string `db:"name"`
	OwnerID UserID `db:"owner_id"`
}

// NormalizeRoomName trims the name and rejects empty, overlong or control-character names.
func NormalizeRoomName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > MaxNameLen || HasControl(s) {
		return "", ErrInvalidRoomName
	}
	return s, nil
}
