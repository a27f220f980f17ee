package portal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sessionably/practice/internal/domain/notify"
	"github.com/sessionably/practice/internal/platform/apperr"
	"github.com/sessionably/practice/internal/platform/audit"
)

type mockRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*Client
	users   []*ClientUser
}

func newMockRepo() *mockRepo {
	return &mockRepo{clients: make(map[uuid.UUID]*Client)}
}

func (m *mockRepo) addClient(email string) *Client {
	c := &Client{ID: uuid.New(), FirstName: "Jane", LastName: "Doe", Email: email}
	m.clients[c.ID] = c
	return c
}

func (m *mockRepo) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) AccountExists(ctx context.Context, clientID uuid.UUID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ClientID == clientID || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) CreateClientUser(ctx context.Context, u *ClientUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	m.users = append(m.users, u)
	return nil
}

type mockPrefs struct {
	inserted []uuid.UUID
	err      error
}

func (m *mockPrefs) GetPreferences(ctx context.Context, id uuid.UUID) (*notify.ContactPreferences, error) {
	return nil, notify.ErrNotFound
}

func (m *mockPrefs) SavePreferences(ctx context.Context, p *notify.ContactPreferences) error {
	return nil
}

func (m *mockPrefs) InsertDefaultPreferences(ctx context.Context, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, id)
	return nil
}

// passTx runs fn directly; atomicity is covered by the Postgres runner.
type passTx struct{ calls int }

func (p *passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type sent struct {
	clientID uuid.UUID
	name     string
	data     notify.Data
	opts     notify.SendOptions
}

type mockNotifier struct {
	calls []sent
	err   error
}

func (m *mockNotifier) SendTemplate(ctx context.Context, clientID uuid.UUID, name string, data notify.Data, opts notify.SendOptions) (*notify.SendResult, error) {
	m.calls = append(m.calls, sent{clientID, name, data, opts})
	if m.err != nil {
		return nil, m.err
	}
	return &notify.SendResult{Template: name, Outcome: notify.Outcome{Success: true}}, nil
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	prefs    *mockPrefs
	audit    *audit.Recorder
	notifier *mockNotifier
	tx       *passTx
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMockRepo(),
		prefs:    &mockPrefs{},
		audit:    &audit.Recorder{},
		notifier: &mockNotifier{},
		tx:       &passTx{},
	}
	f.svc = NewService(f.repo, f.tx, f.prefs, f.audit, f.notifier, "https://portal.example.com/", zerolog.Nop())
	f.svc.cost = bcrypt.MinCost
	return f
}

func TestRegister_Success(t *testing.T) {
	f := newFixture()
	c := f.repo.addClient("jane@example.com")

	reg, err := f.svc.Register(context.Background(), &RegisterRequest{
		ClientID: c.ID.String(),
		Email:    " Jane@Example.com ",
		Password: "longenough",
	}, audit.Entry{IPAddress: "198.51.100.7", UserAgent: "test"})
	require.NoError(t, err)

	assert.True(t, reg.RequiresVerification)
	assert.Equal(t, "jane@example.com", reg.Email)
	assert.Equal(t, c.ID, reg.ClientID)

	require.Len(t, f.repo.users, 1)
	u := f.repo.users[0]
	assert.False(t, u.EmailVerified)
	assert.NotEmpty(t, u.VerificationToken)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("longenough")))

	assert.Equal(t, []uuid.UUID{c.ID}, f.prefs.inserted)
	assert.Equal(t, 1, f.tx.calls)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "register", entries[0].Action)
	assert.Equal(t, audit.UserTypeClient, entries[0].UserType)
	assert.Equal(t, u.ID.String(), entries[0].EntityID)
	assert.Equal(t, "198.51.100.7", entries[0].IPAddress)

	require.Len(t, f.notifier.calls, 1)
	call := f.notifier.calls[0]
	assert.Equal(t, notify.TemplatePortalVerification, call.name)
	assert.True(t, call.opts.Urgent)
	assert.Equal(t, []notify.Channel{notify.ChannelEmail}, call.opts.Channels)
	assert.Equal(t, "jane@example.com", call.opts.Contact.Email)
	assert.Equal(t, "Jane Doe", call.data["client_name"])
	assert.Equal(t, "https://portal.example.com?verify="+u.VerificationToken, call.data["verification_url"])
}

func TestRegister_Validation(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		name string
		req  RegisterRequest
		want string
	}{
		{"missing fields", RegisterRequest{ClientID: id, Email: "a@b.co"}, "required"},
		{"short password", RegisterRequest{ClientID: id, Email: "a@b.co", Password: "short"}, "at least 8"},
		{"bad email", RegisterRequest{ClientID: id, Email: "a@b", Password: "longenough"}, "Invalid email"},
		{"bad client id", RegisterRequest{ClientID: "42", Email: "a@b.co", Password: "longenough"}, "UUID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Register(context.Background(), &tt.req, audit.Entry{})
			require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegister_UnknownClient(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Register(context.Background(), &RegisterRequest{
		ClientID: uuid.NewString(), Email: "jane@example.com", Password: "longenough",
	}, audit.Entry{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRegister_EmailMismatch(t *testing.T) {
	f := newFixture()
	c := f.repo.addClient("jane@example.com")
	_, err := f.svc.Register(context.Background(), &RegisterRequest{
		ClientID: c.ID.String(), Email: "other@example.com", Password: "longenough",
	}, audit.Entry{})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "does not match")
}

func TestRegister_ClientWithoutEmailAcceptsAny(t *testing.T) {
	f := newFixture()
	c := f.repo.addClient("")
	_, err := f.svc.Register(context.Background(), &RegisterRequest{
		ClientID: c.ID.String(), Email: "new@example.com", Password: "longenough",
	}, audit.Entry{})
	assert.NoError(t, err)
}

func TestRegister_ExistingAccount(t *testing.T) {
	f := newFixture()
	c := f.repo.addClient("jane@example.com")
	req := func() *RegisterRequest {
		return &RegisterRequest{ClientID: c.ID.String(), Email: "jane@example.com", Password: "longenough"}
	}
	_, err := f.svc.Register(context.Background(), req(), audit.Entry{})
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), req(), audit.Entry{})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Len(t, f.repo.users, 1)
}

func TestRegister_PreferenceFailureIsInternal(t *testing.T) {
	f := newFixture()
	c := f.repo.addClient("jane@example.com")
	f.prefs.err = errors.New("constraint violated")

	_, err := f.svc.Register(context.Background(), &RegisterRequest{
		ClientID: c.ID.String(), Email: "jane@example.com", Password: "longenough",
	}, audit.Entry{})
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Empty(t, f.audit.Entries())
	assert.Empty(t, f.notifier.calls)
}

func TestRegister_EmailFailureStillSucceeds(t *testing.T) {
	f := newFixture()
	c := f.repo.addClient("jane@example.com")
	f.notifier.err = errors.New("ses down")

	reg, err := f.svc.Register(context.Background(), &RegisterRequest{
		ClientID: c.ID.String(), Email: "jane@example.com", Password: "longenough",
	}, audit.Entry{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reg.Message, "Account created"))
}
