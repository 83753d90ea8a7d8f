package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

type RoomRepository struct {
	q querier
}

func NewRoomRepository(q querier) *RoomRepository {
	return &RoomRepository{q: q}
}

// Create inserts room and fills its ID. A taken name yields domain.ErrRoomExists.
func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	var id int64
	if err := r.q.QueryRow(ctx, queryCreateRoom, room.Name, int64(room.OwnerID)).Scan(&id); err != nil {
		return mapPgError(err, domain.ErrRoomExists)
	}
	room.ID = domain.RoomID(id)
	return nil
}

func (r *RoomRepository) Get(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return r.getOne(ctx, queryGetRoomByID, int64(id))
}

func (r *RoomRepository) GetByName(ctx context.Context, name string) (*domain.Room, error) {
	return r.getOne(ctx, queryGetRoomByName, name)
}

func (r *RoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.q.Query(ctx, queryListRooms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Room, 0, 16)
	for rows.Next() {
		var (
			rm      domain.Room
			id      int64
			ownerID *int64
		)
		if err := rows.Scan(&id, &rm.Name, &ownerID); err != nil {
			return nil, err
		}
		rm.ID = domain.RoomID(id)
		if ownerID != nil {
			rm.OwnerID = domain.UserID(*ownerID)
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// Delete removes the room; domain.ErrRoomNotFound if nothing was deleted.
func (r *RoomRepository) Delete(ctx context.Context, id domain.RoomID) error {
	tag, err := r.q.Exec(ctx, queryDeleteRoom, int64(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *RoomRepository) getOne(ctx context.Context, sql string, arg any) (*domain.Room, error) {
	var (
		id      int64
		name    string
		ownerID *int64
	)
	err := r.q.QueryRow(ctx, sql, arg).Scan(&id, &name, &ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	rm := &domain.Room{ID: domain.RoomID(id), Name: name}
	if ownerID != nil {
		rm.OwnerID = domain.UserID(*ownerID)
	}
	return rm, nil
}
