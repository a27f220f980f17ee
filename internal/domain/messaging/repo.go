package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// Query selects messages in a conversation. Zero fields are ignored.
type Query struct {
	ClientID uuid.UUID
	Since    time.Time
	AfterID  int64
	Limit    int
	Offset   int
	// Newest returns the most recent page instead of the oldest.
	Newest bool
}

type Repository interface {
	ClientName(ctx context.Context, clientID uuid.UUID) (string, error)
	UserName(ctx context.Context, userID string) (string, error)
	List(ctx context.Context, q Query) ([]*Message, error)
	// Stats counts unread messages written by unreadFrom.
	Stats(ctx context.Context, clientID uuid.UUID, unreadFrom SenderType) (*Stats, error)
	Insert(ctx context.Context, m *Message) error
	// MarkRead marks unread messages written by from as read. With ids empty
	// it marks all of them. It returns the ids that changed.
	MarkRead(ctx context.Context, clientID uuid.UUID, from SenderType, ids []int64) ([]int64, error)
}
