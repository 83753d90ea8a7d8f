package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/security"
)

type TokenIssuer interface {
	SignAccessToken(id security.Identity, now time.Time) (string, error)
}

type AuthResult struct {
	Identity    security.Identity
	AccessToken string
	ExpiresIn   time.Duration
}

type AuthService struct {
	users    UserRepository
	tokens   TokenIssuer
	ttl      time.Duration
	password security.BcryptConfig
	now      func() time.Time
}

func NewAuthService(users UserRepository, tokens TokenIssuer, ttl time.Duration, password security.BcryptConfig, now func() time.Time) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{users: users, tokens: tokens, ttl: ttl, password: password, now: now}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	username, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(password, &s.password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{Username: username, PasswordHash: hash}
	if _, err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("userRepo.Create: %w", err)
	}
	return s.issue(security.Identity{UserID: u.ID, Username: u.Username})
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("userRepo.GetByUsername: %w", err)
	}
	if err := security.ComparePassword(u.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(security.Identity{UserID: u.ID, Username: u.Username})
}

func (s *AuthService) issue(id security.Identity) (*AuthResult, error) {
	tok, err := s.tokens.SignAccessToken(id, s.now())
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &AuthResult{Identity: id, AccessToken: tok, ExpiresIn: s.ttl}, nil
}
