package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	q querier
}

func NewUserRepository(q querier) *UserRepository {
	return &UserRepository{q: q}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (domain.UserID, error) {
	var id int64
	if err := r.q.QueryRow(ctx, queryCreateUser, u.Username, u.PasswordHash).Scan(&id); err != nil {
		return 0, mapPgError(err, domain.ErrUserExists)
	}
	u.ID = domain.UserID(id)
	return u.ID, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return r.getOne(ctx, queryGetUserByID, int64(id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, queryGetUserByUsername, username)
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg any) (*domain.User, error) {
	var (
		u  domain.User
		id int64
	)
	if err := r.q.QueryRow(ctx, sql, arg).Scan(&id, &u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u.ID = domain.UserID(id)
	return &u, nil
}
