package domain

import "time"

// PresenceEntry is one live member of a room. It is never persisted.
type PresenceEntry struct {
	Username string `json:"username"`
	Color    string `json:"color"`
}

// HistoryTimeLayout is the timestamp prefix of every history line.
const HistoryTimeLayout = "2006-01-02 15:04:05"

// FormatHistoryLine renders "[YYYY-MM-DD HH:MM:SS] text".
func FormatHistoryLine(ts time.Time, text string) string {
	return "[" + ts.Format(HistoryTimeLayout) + "] " + text
}

func JoinedText(username string) string { return username + " joined" }

func LeftText(username string) string { return username + " left" }

func ChatText(username, msg string) string { return username + ": " + msg }
