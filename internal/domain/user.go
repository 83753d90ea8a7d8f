package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type UserID int64

type User struct {
	ID           UserID `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}

// MaxNameLen bounds usernames and room names (column width in the directory).
const MaxNameLen = 50

// NormalizeUsername trims the name and rejects empty, overlong or control-character names.
func NormalizeUsername(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > MaxNameLen || HasControl(s) {
		return "", ErrInvalidUsername
	}
	return s, nil
}

// HasControl reports whether s contains a control character. History is
// line oriented, so none may reach a stored line.
func HasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
