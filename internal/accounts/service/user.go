package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/pkg/cryptox"
	"github.com/wattlehq/accountd/pkg/idx"
)

var ErrUsernameTaken = errors.New("username already taken")

type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// Register creates a user with an argon2-hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
// Refused on impersonated sessions: a staff member acting as a user must
// not be able to change their credentials.
func (s *UserService) ChangePassword(ctx context.Context, session domain.Session, current, next string) error {
	if session.Impersonated() {
		return ErrImpersonatedSession
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash)
}
