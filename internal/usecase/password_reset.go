package usecase

import (
	"context"
	"errors"
	"fmt"
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
	defaultRollbackTimeout = 5 * time.Second

	msgResetSent         = "If an account exists for that email, a reset link has been sent"
	msgResetInvalid      = "Token is invalid or has expired"
	msgResetDeliveryFail = "There was an error sending the email. Try again later"
)

// ForgetPasswordInput starts a reset for the given email.
type ForgetPasswordInput struct {
	Email string
	Meta  RequestMeta
}

// ResetPasswordInput finishes a reset with the token from the emailed link.
type ResetPasswordInput struct {
	Token           string
	Password        string
	ConfirmPassword string
	Meta            RequestMeta
}

// PasswordResetOptions tunes link construction and delivery rollback.
type PasswordResetOptions struct {
	URLBase         string
	RollbackTimeout time.Duration
}

// PasswordResetService runs the forget/reset workflow. A reset token moves
// from absent to issued and back to absent when it is consumed, expires, or
// fails to be delivered. Issuing a new token replaces the previous one.
type PasswordResetService struct {
	store    port.CredentialStore
	hasher   port.PasswordHasher
	tokens   port.TokenIssuer
	resets   port.ResetTokenManager
	mailer   port.Mailer
	policy   port.PasswordPolicyValidator
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
	urlBase  string
	rollback time.Duration
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(
	store port.CredentialStore,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	resets port.ResetTokenManager,
	mailer port.Mailer,
	policy port.PasswordPolicyValidator,
	events port.EventPublisher,
	opts PasswordResetOptions,
	log *zap.Logger,
) *PasswordResetService {
	if log == nil {
		log = zap.NewNop()
	}
	rollback := opts.RollbackTimeout
	if rollback <= 0 {
		rollback = defaultRollbackTimeout
	}
	return &PasswordResetService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		resets:   resets,
		mailer:   mailer,
		policy:   policy,
		events:   events,
		logger:   log,
		now:      systemClock,
		urlBase:  strings.TrimRight(strings.TrimSpace(opts.URLBase), "/"),
		rollback: rollback,
	}
}

// WithClock overrides the service clock.
func (s *PasswordResetService) WithClock(now func() time.Time) *PasswordResetService {
	if now != nil {
		s.now = now
	}
	return s
}

// GenericForgetMessage is returned to callers whether or not the email is known.
func GenericForgetMessage() string {
	return msgResetSent
}

// ForgetPassword stores a fresh reset token for the identity and mails the
// link. sent reports whether a link went out; unknown emails succeed silently
// with sent false. When delivery fails the stored token is cleared and a
// TransientDelivery error is returned.
func (s *PasswordResetService) ForgetPassword(ctx context.Context, input ForgetPasswordInput) (sent bool, err error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return false, err
	}
	log := logger.WithContext(ctx, s.logger)

	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("password reset requested for unknown email", zap.String("email", logger.MaskEmail(email)))
			return false, nil
		}
		return false, domain.Internal(err)
	}

	plaintext, hash, expiresAt, err := s.resets.Generate()
	if err != nil {
		return false, domain.Internal(err)
	}

	if _, err := s.store.UpdateFields(ctx, identity.ID, domain.IdentityPatch{
		ResetTokenHash:   &hash,
		ResetTokenExpiry: &expiresAt,
	}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, domain.Internal(err)
	}

	requestedAt := stamp(s.now)
	msg := s.resetMessage(identity, plaintext, expiresAt.Sub(requestedAt))

	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Warn("password reset delivery failed", zap.String("user_id", identity.ID), zap.Error(err))
		s.clearResetToken(ctx, identity.ID)
		s.publishResetRequested(ctx, identity, requestedAt, expiresAt, false, input.Meta)
		return false, domain.TransientDelivery(msgResetDeliveryFail, err)
	}

	s.publishResetRequested(ctx, identity, requestedAt, expiresAt, true, input.Meta)
	return true, nil
}

// ResetPassword consumes a reset token, stores the new password and issues a
// session token. A token works once and only before its expiry.
func (s *PasswordResetService) ResetPassword(ctx context.Context, input ResetPasswordInput) (AuthResult, error) {
	plaintext := strings.TrimSpace(input.Token)
	if plaintext == "" {
		return AuthResult{}, domain.Validation(msgResetInvalid)
	}

	hash := s.resets.Hash(plaintext)
	now := stamp(s.now)

	identity, err := s.store.FindByResetHash(ctx, hash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, domain.Validation(msgResetInvalid)
		}
		return AuthResult{}, domain.Internal(err)
	}

	pctx := domain.PasswordContext{Name: identity.Name, Email: identity.Email}
	if err := checkNewPassword(s.policy, input.Password, input.ConfirmPassword, pctx); err != nil {
		return AuthResult{}, err
	}

	passwordHash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return AuthResult{}, domain.Internal(err)
	}

	updated, err := s.store.ConsumeResetToken(ctx, hash, now, passwordHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, domain.Validation(msgResetInvalid)
		}
		return AuthResult{}, domain.Internal(err)
	}

	token, err := s.tokens.Issue(updated.ID, now)
	if err != nil {
		return AuthResult{}, domain.Internal(err)
	}

	publishPasswordChanged(ctx, s.events, s.logger, updated.ID, now, passwordMethodReset, input.Meta)

	return AuthResult{Token: token, Identity: updated}, nil
}

func (s *PasswordResetService) resetMessage(identity *domain.Identity, plaintext string, ttl time.Duration) domain.MailMessage {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	link := s.urlBase + "/" + plaintext

	return domain.MailMessage{
		To:      identity.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", minutes),
		Body: fmt.Sprintf(
			"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password and confirmPassword to:\n%s\n\nIf you didn't forget your password, please ignore this email.\n",
			identity.Name, link,
		),
	}
}

// clearResetToken must complete even when the request context is already cancelled.
func (s *PasswordResetService) clearResetToken(ctx context.Context, userID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.rollback)
	defer cancel()

	if _, err := s.store.UpdateFields(rctx, userID, domain.IdentityPatch{ClearResetToken: true}); err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.WithContext(ctx, s.logger).Error("password reset rollback failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *PasswordResetService) publishResetRequested(ctx context.Context, identity *domain.Identity, requestedAt, expiresAt time.Time, delivered bool, meta RequestMeta) {
	if s.events == nil {
		return
	}
	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		UserID:            identity.ID,
		RequestedAt:       requestedAt,
		ExpiresAt:         expiresAt,
		MaskedDestination: logger.MaskEmail(identity.Email),
		Delivered:         delivered,
		Metadata:          meta.metadata(),
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		logger.WithContext(ctx, s.logger).Warn("publish password reset requested failed", zap.String("user_id", identity.ID), zap.Error(err))
	}
}
