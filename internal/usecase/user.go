package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/infra/logger"
	"github.com/SwagatoSarowar/Natours/internal/repository"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// UpdateProfileInput lists the self-service profile fields. Role is not one of them.
type UpdateProfileInput struct {
	Name  *string
	Email *string
	Photo *string
	// PasswordSupplied is set when the request body carried password fields.
	PasswordSupplied bool
}

// ListUsersInput paginates the user listing. Page is 1-based.
type ListUsersInput struct {
	Limit int
	Page  int
}

// UserService manages the authenticated identity's own profile and the
// privileged user listing.
type UserService struct {
	store  port.CredentialStore
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(store port.CredentialStore, events port.EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{store: store, events: events, logger: log, now: systemClock}
}

// WithClock overrides the service clock.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	if now != nil {
		s.now = now
	}
	return s
}

// UpdateCurrentUser applies name, email and photo changes to identity.
func (s *UserService) UpdateCurrentUser(ctx context.Context, identity *domain.Identity, input UpdateProfileInput) (*domain.Identity, error) {
	if identity == nil {
		return nil, domain.Unauthenticated(domain.ReasonMissingToken, msgNotLoggedIn)
	}
	if input.PasswordSupplied {
		return nil, domain.Validation("This route is not for password updates. Please use /update-password")
	}

	var patch domain.IdentityPatch
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domain.Validation("Please tell us your name")
		}
		patch.Name = &name
	}
	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		patch.Email = &email
	}
	if input.Photo != nil {
		photo := strings.TrimSpace(*input.Photo)
		patch.Photo = &photo
	}

	if patch.Empty() {
		return identity, nil
	}

	updated, err := s.store.UpdateFields(ctx, identity.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, domain.Conflict(msgEmailTaken, err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.Unauthenticated(domain.ReasonSubjectGone, msgSubjectGone)
		}
		return nil, domain.Internal(err)
	}
	return updated, nil
}

// DeleteCurrentUser deactivates identity. Deactivated identities can no
// longer sign in and their tokens stop authenticating.
func (s *UserService) DeleteCurrentUser(ctx context.Context, identity *domain.Identity, meta RequestMeta) error {
	if identity == nil {
		return domain.Unauthenticated(domain.ReasonMissingToken, msgNotLoggedIn)
	}

	inactive := false
	if _, err := s.store.UpdateFields(ctx, identity.ID, domain.IdentityPatch{Active: &inactive}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Unauthenticated(domain.ReasonSubjectGone, msgSubjectGone)
		}
		return domain.Internal(err)
	}

	if s.events != nil {
		event := domain.UserDeactivatedEvent{
			EventID:       uuid.NewString(),
			UserID:        identity.ID,
			DeactivatedAt: stamp(s.now),
			Metadata:      meta.metadata(),
		}
		if err := s.events.PublishUserDeactivated(ctx, event); err != nil {
			logger.WithContext(ctx, s.logger).Warn("publish user deactivated failed", zap.String("user_id", identity.ID), zap.Error(err))
		}
	}
	return nil
}

// ListUsers returns one page of active identities.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) ([]domain.Identity, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := input.Page
	if page < 1 {
		page = 1
	}

	users, err := s.store.List(ctx, domain.ListFilter{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, domain.Internal(err)
	}
	return users, nil
}
