package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/infra/logger"
	"github.com/SwagatoSarowar/Natours/internal/infra/security"
	"github.com/SwagatoSarowar/Natours/internal/repository"
)

const (
	msgNotLoggedIn        = "You are not logged in. Please log in to get access"
	msgInvalidToken       = "Invalid token. Please log in again"
	msgExpiredToken       = "Your token has expired. Please log in again"
	msgSubjectGone        = "The user belonging to this token no longer exists"
	msgPasswordChanged    = "User recently changed password. Please log in again"
	msgBadCredentials     = "Invalid email and password combination"
	msgMissingCredentials = "Please provide your email and password"
	msgEmailTaken         = "Email address is already in use"

	// hashed once and verified against for unknown emails
	decoyPassword = "natours-signin-decoy"
)

// SignupInput is the self-service registration payload. Role is not accepted.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Photo           *string
	Meta            RequestMeta
}

// SigninInput carries login credentials.
type SigninInput struct {
	Email    string
	Password string
	Meta     RequestMeta
}

// AuthService registers identities, signs them in and resolves session tokens.
type AuthService struct {
	store  port.CredentialStore
	hasher port.PasswordHasher
	tokens port.TokenIssuer
	policy port.PasswordPolicyValidator
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	store port.CredentialStore,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	policy port.PasswordPolicyValidator,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		policy: policy,
		events: events,
		logger: log,
		now:    systemClock,
	}
}

// WithClock overrides the clock used for timestamps and token issuance.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Signup validates the payload, stores a new identity with the default role
// and issues its first session token.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return AuthResult{}, domain.Validation("Please tell us your name")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if err := checkNewPassword(s.policy, input.Password, input.ConfirmPassword, domain.PasswordContext{Name: name, Email: email}); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return AuthResult{}, domain.Internal(err)
	}

	var photo *string
	if input.Photo != nil {
		if trimmed := strings.TrimSpace(*input.Photo); trimmed != "" {
			photo = &trimmed
		}
	}

	now := stamp(s.now)
	created, err := s.store.Create(ctx, domain.NewIdentity{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Photo:        photo,
		Role:         domain.DefaultRole,
		PasswordHash: hash,
		CreatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return AuthResult{}, domain.Conflict(msgEmailTaken, err)
		}
		return AuthResult{}, domain.Internal(err)
	}

	token, err := s.tokens.Issue(created.ID, now)
	if err != nil {
		return AuthResult{}, domain.Internal(err)
	}

	s.publishRegistered(ctx, created, input.Meta)

	return AuthResult{Token: token, Identity: created}, nil
}

// Signin checks credentials and issues a session token. Unknown emails,
// deactivated identities and wrong passwords are indistinguishable.
func (s *AuthService) Signin(ctx context.Context, input SigninInput) (AuthResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return AuthResult{}, domain.Validation(msgMissingCredentials)
	}

	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.verifyDecoy(ctx, input.Password)
			logger.WithContext(ctx, s.logger).Info("signin rejected", zap.String("email", logger.MaskEmail(email)))
			return AuthResult{}, domain.Unauthenticated(domain.ReasonBadCredentials, msgBadCredentials)
		}
		return AuthResult{}, domain.Internal(err)
	}

	ok, err := s.hasher.Verify(ctx, input.Password, identity.PasswordHash)
	if err != nil {
		return AuthResult{}, domain.Internal(err)
	}
	if !ok {
		logger.WithContext(ctx, s.logger).Info("signin rejected", zap.String("user_id", identity.ID))
		return AuthResult{}, domain.Unauthenticated(domain.ReasonBadCredentials, msgBadCredentials)
	}

	token, err := s.tokens.Issue(identity.ID, stamp(s.now))
	if err != nil {
		return AuthResult{}, domain.Internal(err)
	}

	return AuthResult{Token: token, Identity: identity}, nil
}

// verifyDecoy spends the same hashing work as a real password check so an
// unknown email costs as long as a wrong password.
func (s *AuthService) verifyDecoy(ctx context.Context, password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(context.WithoutCancel(ctx), decoyPassword)
		if err != nil {
			logger.WithContext(ctx, s.logger).Warn("signin decoy hash failed", zap.Error(err))
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(ctx, password, s.decoyHash)
}

// Authenticate resolves a bearer token to a live identity. The password
// change check runs on every call.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Identity, domain.SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.SessionClaims{}, domain.Unauthenticated(domain.ReasonMissingToken, msgNotLoggedIn)
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, domain.SessionClaims{}, domain.Unauthenticated(domain.ReasonExpired, msgExpiredToken)
		}
		return nil, domain.SessionClaims{}, domain.Unauthenticated(domain.ReasonInvalidToken, msgInvalidToken)
	}

	identity, err := s.store.FindByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, claims, domain.Unauthenticated(domain.ReasonSubjectGone, msgSubjectGone)
		}
		return nil, claims, domain.Internal(err)
	}

	if identity.PasswordChangedAfter(claims.IssuedAt) {
		return nil, claims, domain.Unauthenticated(domain.ReasonPasswordChanged, msgPasswordChanged)
	}

	return identity, claims, nil
}

func (s *AuthService) publishRegistered(ctx context.Context, identity *domain.Identity, meta RequestMeta) {
	if s.events == nil {
		return
	}
	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       identity.ID,
		Email:        identity.Email,
		Role:         identity.Role,
		RegisteredAt: identity.CreatedAt,
		Metadata:     meta.metadata(),
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		logger.WithContext(ctx, s.logger).Warn("publish user registered failed", zap.String("user_id", identity.ID), zap.Error(err))
	}
}
