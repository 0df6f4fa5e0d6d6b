package routes_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// userStore is an in-memory CredentialStore with the same visibility rules
// as the postgres repository: inactive identities are never returned.
type userStore struct {
	mu    sync.Mutex
	users map[string]domain.Identity
	order []string
}

func newUserStore() *userStore {
	return &userStore{users: make(map[string]domain.Identity)}
}

func (s *userStore) Create(_ context.Context, in domain.NewIdentity) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == in.Email {
			return nil, repository.ErrConflict
		}
	}
	u := domain.Identity{
		ID:           in.ID,
		Name:         in.Name,
		Email:        in.Email,
		Photo:        in.Photo,
		Role:         in.Role,
		PasswordHash: in.PasswordHash,
		Active:       true,
		CreatedAt:    in.CreatedAt,
	}
	s.users[u.ID] = u
	s.order = append(s.order, u.ID)
	return &u, nil
}

func (s *userStore) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok && u.Active {
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (s *userStore) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Active && u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *userStore) UpdateFields(_ context.Context, id string, patch domain.IdentityPatch) (*domain.Identity, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !u.Active {
		return nil, repository.ErrNotFound
	}
	if patch.IfPasswordHash != nil && u.PasswordHash != *patch.IfPasswordHash {
		return nil, repository.ErrNotFound
	}
	if patch.Email != nil {
		for otherID, other := range s.users {
			if otherID != id && other.Email == *patch.Email {
				return nil, repository.ErrConflict
			}
		}
		u.Email = *patch.Email
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
	if patch.ClearResetToken {
		u.ResetTokenHash, u.ResetTokenExpiry = nil, nil
	} else if patch.ResetTokenHash != nil {
		hash, expiry := *patch.ResetTokenHash, *patch.ResetTokenExpiry
		u.ResetTokenHash, u.ResetTokenExpiry = &hash, &expiry
	}
	if patch.Active != nil {
		u.Active = *patch.Active
	}
	s.users[id] = u
	return &u, nil
}

func (s *userStore) FindByResetHash(_ context.Context, hash string, now time.Time) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Active && u.ResetTokenHash != nil && *u.ResetTokenHash == hash && u.ResetTokenExpiry.After(now) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *userStore) ConsumeResetToken(_ context.Context, hash string, now time.Time, passwordHash string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Active && u.ResetTokenHash != nil && *u.ResetTokenHash == hash && u.ResetTokenExpiry.After(now) {
			changed := now
			u.PasswordHash = passwordHash
			u.PasswordChangedAt = &changed
			u.ResetTokenHash, u.ResetTokenExpiry = nil, nil
			s.users[id] = u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *userStore) List(_ context.Context, filter domain.ListFilter) ([]domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Identity, 0, len(s.order))
	for _, id := range s.order {
		if u := s.users[id]; u.Active {
			out = append(out, u)
		}
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *userStore) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (s *userStore) promote(email string, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Email == email {
			u.Role = role
			s.users[id] = u
		}
	}
}

type prefixHasher struct{}

func (prefixHasher) Hash(_ context.Context, password string) (string, error) {
	return "test$" + password, nil
}

func (prefixHasher) Verify(_ context.Context, password, encoded string) (bool, error) {
	return encoded == "test$"+password, nil
}

type lengthPolicy struct{}

func (lengthPolicy) Validate(password string, _ domain.PasswordContext) error {
	if len(password) < 8 {
		return errors.New("Password must be at least 8 characters long")
	}
	return nil
}

type outbox struct {
	mu   sync.Mutex
	sent []domain.MailMessage
}

func (o *outbox) Send(_ context.Context, msg domain.MailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) lastBody() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return ""
	}
	return strings.TrimSpace(o.sent[len(o.sent)-1].Body)
}
