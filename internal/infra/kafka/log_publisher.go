package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
)

// LogPublisher records events in the log instead of a broker. It is used
// when no Kafka brokers are configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) log(eventType, userID string, at time.Time) {
	p.logger.Debug("event not published, kafka disabled",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at),
	)
}

func (p *LogPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.log(TopicUserRegistered, event.UserID, event.RegisteredAt)
	return nil
}

func (p *LogPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.log(TopicPasswordChanged, event.UserID, event.ChangedAt)
	return nil
}

func (p *LogPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.log(TopicPasswordResetRequested, event.UserID, event.RequestedAt)
	return nil
}

func (p *LogPublisher) PublishUserDeactivated(_ context.Context, event domain.UserDeactivatedEvent) error {
	p.log(TopicUserDeactivated, event.UserID, event.DeactivatedAt)
	return nil
}

var _ port.EventPublisher = (*LogPublisher)(nil)
