package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when the row does not exist.
var ErrNotFound = errors.New("not found")

type PreferenceStore interface {
	GetPreferences(ctx context.Context, clientID uuid.UUID) (*ContactPreferences, error)
	SavePreferences(ctx context.Context, p *ContactPreferences) error
	// InsertDefaultPreferences provisions DefaultPreferences for a client. It
	// does nothing when a record already exists.
	InsertDefaultPreferences(ctx context.Context, clientID uuid.UUID) error
}

type LogStore interface {
	InsertLog(ctx context.Context, e *LogEntry) error
	ListLog(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*LogEntry, int, error)
}

type DirectoryStore interface {
	GetClient(ctx context.Context, clientID uuid.UUID) (*ClientRecord, error)
	GetBranding(ctx context.Context, ownerID uuid.UUID) (Branding, error)
}

type ReminderStore interface {
	DueReminders(ctx context.Context, from, to time.Time) ([]*Appointment, error)
	MarkReminderSent(ctx context.Context, appointmentID uuid.UUID, at time.Time) error
}

// Repository is everything the notification engine persists or reads.
type Repository interface {
	PreferenceStore
	LogStore
	DirectoryStore
	ReminderStore
}
