package account

import (
	"context"
	"errors"
)

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")
)

type Repository interface {
	Ping(ctx context.Context) error
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// CreateUser returns ErrUsernameTaken or ErrEmailTaken when a unique
	// key collides.
	CreateUser(ctx context.Context, u *NewUser) (*User, error)
	CreatePracticeSettings(ctx context.Context, s *PracticeSettings) error
}
