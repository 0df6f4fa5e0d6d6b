package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/infra/security"
	"github.com/SwagatoSarowar/Natours/internal/repository"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memoryStore struct {
	mu    sync.Mutex
	users map[string]domain.Identity
	order []string

	updateErr error
	updates   []domain.IdentityPatch
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]domain.Identity)}
}

func (m *memoryStore) Create(_ context.Context, in domain.NewIdentity) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := domain.NormalizeEmail(in.Email)
	for _, u := range m.users {
		if u.Email == email {
			return nil, repository.ErrConflict
		}
	}
	role := in.Role
	if !role.Valid() {
		role = domain.DefaultRole
	}
	identity := domain.Identity{
		ID:           in.ID,
		Name:         in.Name,
		Email:        email,
		Photo:        in.Photo,
		Role:         role,
		PasswordHash: in.PasswordHash,
		Active:       true,
		CreatedAt:    in.CreatedAt,
	}
	m.users[identity.ID] = identity
	m.order = append(m.order, identity.ID)
	out := identity
	return &out, nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.Active {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memoryStore) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = domain.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email && u.Active {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) UpdateFields(_ context.Context, id string, patch domain.IdentityPatch) (*domain.Identity, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updates = append(m.updates, patch)
	if m.updateErr != nil {
		return nil, m.updateErr
	}

	u, ok := m.users[id]
	if !ok || !u.Active {
		return nil, repository.ErrNotFound
	}
	if patch.IfPasswordHash != nil && u.PasswordHash != *patch.IfPasswordHash {
		return nil, repository.ErrNotFound
	}
	if patch.Email != nil {
		email := domain.NormalizeEmail(*patch.Email)
		for otherID, other := range m.users {
			if otherID != id && other.Email == email {
				return nil, repository.ErrConflict
			}
		}
		u.Email = email
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Photo != nil {
		photo := *patch.Photo
		u.Photo = &photo
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.PasswordChangedAt != nil {
		at := *patch.PasswordChangedAt
		u.PasswordChangedAt = &at
	}
	switch {
	case patch.ClearResetToken:
		u.ResetTokenHash, u.ResetTokenExpiry = nil, nil
	case patch.ResetTokenHash != nil:
		hash, expiry := *patch.ResetTokenHash, *patch.ResetTokenExpiry
		u.ResetTokenHash, u.ResetTokenExpiry = &hash, &expiry
	}
	if patch.Active != nil {
		u.Active = *patch.Active
	}
	m.users[id] = u
	return &u, nil
}

func (m *memoryStore) FindByResetHash(_ context.Context, hash string, now time.Time) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Active && u.ResetTokenHash != nil && *u.ResetTokenHash == hash && u.ResetTokenExpiry.After(now) {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ConsumeResetToken(_ context.Context, hash string, now time.Time, passwordHash string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Active && u.ResetTokenHash != nil && *u.ResetTokenHash == hash && u.ResetTokenExpiry.After(now) {
			changed := now
			u.PasswordHash = passwordHash
			u.PasswordChangedAt = &changed
			u.ResetTokenHash, u.ResetTokenExpiry = nil, nil
			m.users[id] = u
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) List(_ context.Context, filter domain.ListFilter) ([]domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Identity, 0, len(m.order))
	for _, id := range m.order {
		if u := m.users[id]; u.Active {
			out = append(out, u)
		}
	}
	if filter.Offset >= len(out) {
		return []domain.Identity{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memoryStore) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cleared int64
	for id, u := range m.users {
		if u.ResetTokenExpiry != nil && !u.ResetTokenExpiry.After(now) {
			u.ResetTokenHash, u.ResetTokenExpiry = nil, nil
			m.users[id] = u
			cleared++
		}
	}
	return cleared, nil
}

func (m *memoryStore) get(t *testing.T, id string) domain.Identity {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		t.Fatalf("identity %s not stored", id)
	}
	return u
}

func (m *memoryStore) setRole(id string, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Role = role
	m.users[id] = u
}

// plainHasher keeps tests fast; argon2 itself is covered in infra/security.
type plainHasher struct {
	hashErr error
}

func (h plainHasher) Hash(_ context.Context, password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "plain$" + password, nil
}

func (h plainHasher) Verify(_ context.Context, password, encoded string) (bool, error) {
	stored, ok := strings.CutPrefix(encoded, "plain$")
	if !ok {
		return false, nil
	}
	return stored == password, nil
}

type acceptPolicy struct{}

func (acceptPolicy) Validate(password string, _ domain.PasswordContext) error {
	if len(password) < 8 {
		return errors.New("Password must be at least 8 characters long")
	}
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []domain.MailMessage
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg domain.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last(t *testing.T) domain.MailMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

type recordingEvents struct {
	mu          sync.Mutex
	registered  []domain.UserRegisteredEvent
	changed     []domain.PasswordChangedEvent
	requested   []domain.PasswordResetRequestedEvent
	deactivated []domain.UserDeactivatedEvent
	err         error
}

func (e *recordingEvents) PublishUserRegistered(_ context.Context, ev domain.UserRegisteredEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registered = append(e.registered, ev)
	return e.err
}

func (e *recordingEvents) PublishPasswordChanged(_ context.Context, ev domain.PasswordChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changed = append(e.changed, ev)
	return e.err
}

func (e *recordingEvents) PublishPasswordResetRequested(_ context.Context, ev domain.PasswordResetRequestedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requested = append(e.requested, ev)
	return e.err
}

func (e *recordingEvents) PublishUserDeactivated(_ context.Context, ev domain.UserDeactivatedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deactivated = append(e.deactivated, ev)
	return e.err
}

type harness struct {
	clock  *fakeClock
	store  *memoryStore
	mailer *recordingMailer
	events *recordingEvents
	tokens *security.SessionTokenIssuer

	auth     *AuthService
	password *PasswordService
	reset    *PasswordResetService
	users    *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := newFakeClock()
	store := newMemoryStore()
	mailer := &recordingMailer{}
	events := &recordingEvents{}

	tokens, err := security.NewSessionTokenIssuer(security.SessionTokenOptions{
		Secret: testSecret,
		TTL:    90 * 24 * time.Hour,
		Now:    clock.Now,
	})
	if err != nil {
		t.Fatalf("NewSessionTokenIssuer: %v", err)
	}
	resets := security.NewResetTokenManager(10*time.Minute, clock.Now)

	h := &harness{clock: clock, store: store, mailer: mailer, events: events, tokens: tokens}
	h.auth = NewAuthService(store, plainHasher{}, tokens, acceptPolicy{}, events, nil).WithClock(clock.Now)
	h.password = NewPasswordService(store, plainHasher{}, tokens, acceptPolicy{}, events, nil).WithClock(clock.Now)
	h.reset = NewPasswordResetService(store, plainHasher{}, tokens, resets, mailer, acceptPolicy{}, events,
		PasswordResetOptions{URLBase: "https://natours.example.com/api/v1/users/reset-password/"}, nil).WithClock(clock.Now)
	h.users = NewUserService(store, events, nil).WithClock(clock.Now)
	return h
}

func (h *harness) signup(t *testing.T, name, email, password string) AuthResult {
	t.Helper()
	res, err := h.auth.Signup(context.Background(), SignupInput{
		Name:            name,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	if err != nil {
		t.Fatalf("Signup(%s): %v", email, err)
	}
	return res
}

func requireKind(t *testing.T, err error, target *domain.Error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v (reason %q), got %v", target.Kind, target.Reason, err)
	}
}
