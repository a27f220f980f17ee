package portal

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAccountExists = errors.New("portal account already exists")
)

type Repository interface {
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)
	// AccountExists reports whether a portal login exists for the client or
	// for the email address.
	AccountExists(ctx context.Context, clientID uuid.UUID, email string) (bool, error)
	CreateClientUser(ctx context.Context, u *ClientUser) error
}
