package postgres

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// HistoryRepository keeps room history in room_history, one row per line.
// Lines are keyed by room name, so they outlive the chat_rooms row.
type HistoryRepository struct {
	q   querier
	now func() time.Time
}

func NewHistoryRepository(q querier, now func() time.Time) *HistoryRepository {
	if now == nil {
		now = time.Now
	}
	return &HistoryRepository{q: q, now: now}
}

func (r *HistoryRepository) Append(ctx context.Context, room, text string) error {
	_, err := r.q.Exec(ctx, queryAppendHistory, room, domain.FormatHistoryLine(r.now(), text))
	return err
}

func (r *HistoryRepository) ReadAll(ctx context.Context, room string) ([]string, error) {
	rows, err := r.q.Query(ctx, queryReadHistory, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// Close is a no-op: the pool belongs to the caller.
func (r *HistoryRepository) Close() error { return nil }
