package port

import (
	"context"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
)

// EventPublisher emits identity lifecycle events. Callers log publish
// failures and carry on; a request never fails because an event was lost.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishUserDeactivated(ctx context.Context, event domain.UserDeactivatedEvent) error
}
