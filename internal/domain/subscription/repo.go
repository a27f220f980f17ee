package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("subscription not found")

type Repository interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error)
	SetAddon(ctx context.Context, userID uuid.UUID, addon Addon) error
}
