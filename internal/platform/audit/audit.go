package audit

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sessionably/practice/internal/platform/db"
)

// User types recorded in audit_log.user_type.
const (
	UserTypeClinician = "clinician"
	UserTypeClient    = "client"
)

// Entry is one audit_log row.
type Entry struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	UserType   string    `json:"user_type"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
}

// Writer records audit entries. Writes join the caller's transaction when
// ctx carries one.
type Writer interface {
	Write(ctx context.Context, e *Entry) error
}

// FromRequest starts an entry with the caller's network details. The
// service layer fills in who did what.
func FromRequest(c echo.Context) Entry {
	return Entry{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// PGWriter writes to the audit_log table.
type PGWriter struct {
	pool *pgxpool.Pool
}

func NewPGWriter(pool *pgxpool.Pool) *PGWriter {
	return &PGWriter{pool: pool}
}

func (w *PGWriter) Write(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return db.Conn(ctx, w.pool).QueryRow(ctx, `
		INSERT INTO audit_log (user_id, user_type, action, entity_type, entity_id, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		e.UserID, e.UserType, e.Action, e.EntityType, e.EntityID, e.IPAddress, e.UserAgent, e.CreatedAt,
	).Scan(&e.ID)
}

// Recorder keeps entries in memory. Err, when set, fails every write.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	Err     error
}

func (r *Recorder) Write(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	e.ID = int64(len(r.entries) + 1)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, *e)
	return nil
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
