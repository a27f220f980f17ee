package notify

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/platform/notification"
)

// ── Mock Repository ──

type mockRepo struct {
	mu          sync.Mutex
	prefs       map[uuid.UUID]*ContactPreferences
	logs        []*LogEntry
	clients     map[uuid.UUID]*ClientRecord
	branding    map[uuid.UUID]Branding
	appts       map[uuid.UUID]*Appointment
	reminded    map[uuid.UUID]time.Time
	prefsErr    error
	logErr      error
	brandingErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		prefs:    make(map[uuid.UUID]*ContactPreferences),
		clients:  make(map[uuid.UUID]*ClientRecord),
		branding: make(map[uuid.UUID]Branding),
		appts:    make(map[uuid.UUID]*Appointment),
		reminded: make(map[uuid.UUID]time.Time),
	}
}

func (m *mockRepo) GetPreferences(_ context.Context, clientID uuid.UUID) (*ContactPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefsErr != nil {
		return nil, m.prefsErr
	}
	p, ok := m.prefs[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) SavePreferences(_ context.Context, p *ContactPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.UpdatedAt = time.Now()
	m.prefs[p.ClientID] = &cp
	p.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *mockRepo) InsertDefaultPreferences(_ context.Context, clientID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prefs[clientID]; !ok {
		m.prefs[clientID] = DefaultPreferences(clientID)
	}
	return nil
}

func (m *mockRepo) InsertLog(ctx context.Context, e *LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logErr != nil {
		return m.logErr
	}
	e.ID = int64(len(m.logs) + 1)
	e.CreatedAt = time.Now()
	m.logs = append(m.logs, e)
	return nil
}

func (m *mockRepo) ListLog(_ context.Context, clientID uuid.UUID, limit, offset int) ([]*LogEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*LogEntry
	for _, e := range m.logs {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockRepo) GetClient(_ context.Context, clientID uuid.UUID) (*ClientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) GetBranding(_ context.Context, ownerID uuid.UUID) (Branding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.brandingErr != nil {
		return Branding{}, m.brandingErr
	}
	return m.branding[ownerID], nil
}

func (m *mockRepo) DueReminders(_ context.Context, from, to time.Time) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		if _, done := m.reminded[a.ID]; done {
			continue
		}
		if a.StartsAt.After(from) && !a.StartsAt.After(to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *mockRepo) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminded[id] = at
	return nil
}

func (m *mockRepo) entries() []*LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*LogEntry, len(m.logs))
	copy(out, m.logs)
	return out
}

func (m *mockRepo) addClient(email, phone string) *ClientRecord {
	c := &ClientRecord{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Contact: Contact{Name: "Jane Doe", Email: email, Phone: phone},
	}
	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()
	return c
}

// ── Fixtures ──

var errProvider = errors.New("provider unavailable")

var testLogger = zerolog.New(io.Discard)

// atClock returns a clock fixed at hh:mm on an arbitrary day.
func atClock(hh, mm int) func() time.Time {
	t := time.Date(2026, 3, 10, hh, mm, 0, 0, time.UTC)
	return func() time.Time { return t }
}

type fixture struct {
	repo       *mockRepo
	email      *notification.MockEmailSender
	sms        *notification.MockSMSSender
	dispatcher *Dispatcher
	svc        *Service
}

func newFixture() *fixture {
	repo := newMockRepo()
	email := &notification.MockEmailSender{}
	sms := &notification.MockSMSSender{}
	d := NewDispatcher(repo, repo, email, sms, testLogger)
	d.SetClock(atClock(12, 0))
	return &fixture{
		repo:       repo,
		email:      email,
		sms:        sms,
		dispatcher: d,
		svc:        NewService(repo, NewRenderer("https://app.example.com/client-portal"), d, testLogger),
	}
}
