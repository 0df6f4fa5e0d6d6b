package usecase

import (
	"context"
	"errors"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/infra/logger"
	"github.com/SwagatoSarowar/Natours/internal/repository"
)

const (
	passwordMethodUpdate = "update"
	passwordMethodReset  = "reset"
)

// UpdatePasswordInput is the authenticated password change payload.
type UpdatePasswordInput struct {
	CurrentPassword string
	Password        string
	ConfirmPassword string
	Meta            RequestMeta
}

// PasswordService changes passwords for authenticated identities.
type PasswordService struct {
	store  port.CredentialStore
	hasher port.PasswordHasher
	tokens port.TokenIssuer
	policy port.PasswordPolicyValidator
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewPasswordService constructs a PasswordService.
func NewPasswordService(
	store port.CredentialStore,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	policy port.PasswordPolicyValidator,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		policy: policy,
		events: events,
		logger: log,
		now:    systemClock,
	}
}

// WithClock overrides the service clock.
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	if now != nil {
		s.now = now
	}
	return s
}

// UpdatePassword re-verifies the current password, stores the new hash with
// password_changed_at in the same write and issues a fresh token. Tokens
// issued before the change stop authenticating. The write only applies while
// the stored hash is still the one that was verified, so a concurrent change
// makes this call fail instead of silently overwriting it.
func (s *PasswordService) UpdatePassword(ctx context.Context, identity *domain.Identity, input UpdatePasswordInput) (AuthResult, error) {
	if identity == nil {
		return AuthResult{}, domain.Unauthenticated(domain.ReasonMissingToken, msgNotLoggedIn)
	}
	if input.CurrentPassword == "" {
		return AuthResult{}, domain.Validation("Please provide your current password")
	}

	ok, err := s.hasher.Verify(ctx, input.CurrentPassword, identity.PasswordHash)
	if err != nil {
		return AuthResult{}, domain.Internal(err)
	}
	if !ok {
		return AuthResult{}, domain.Unauthenticated(domain.ReasonBadCredentials, "Your current password is wrong")
	}

	pctx := domain.PasswordContext{Name: identity.Name, Email: identity.Email}
	if err := checkNewPassword(s.policy, input.Password, input.ConfirmPassword, pctx); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return AuthResult{}, domain.Internal(err)
	}

	now := stamp(s.now)
	verified := identity.PasswordHash
	updated, err := s.store.UpdateFields(ctx, identity.ID, domain.IdentityPatch{
		PasswordHash:      &hash,
		PasswordChangedAt: &now,
		IfPasswordHash:    &verified,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, s.staleWriteError(ctx, identity.ID)
		}
		return AuthResult{}, domain.Internal(err)
	}

	token, err := s.tokens.Issue(updated.ID, now)
	if err != nil {
		return AuthResult{}, domain.Internal(err)
	}

	publishPasswordChanged(ctx, s.events, s.logger, updated.ID, now, passwordMethodUpdate, input.Meta)

	return AuthResult{Token: token, Identity: updated}, nil
}

// staleWriteError tells a vanished identity apart from a password that was
// changed between verification and the write.
func (s *PasswordService) staleWriteError(ctx context.Context, id string) error {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Unauthenticated(domain.ReasonSubjectGone, msgSubjectGone)
		}
		return domain.Internal(err)
	}
	return domain.Unauthenticated(domain.ReasonPasswordChanged, msgPasswordChanged)
}

func publishPasswordChanged(ctx context.Context, events port.EventPublisher, log *zap.Logger, userID string, at time.Time, method string, meta RequestMeta) {
	if events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		ChangedAt: at,
		Method:    method,
		Metadata:  meta.metadata(),
	}
	if err := events.PublishPasswordChanged(ctx, event); err != nil {
		logger.WithContext(ctx, log).Warn("publish password changed failed", zap.String("user_id", userID), zap.Error(err))
	}
}
