package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/infra/config"
)

const (
	schemaVersion = "1.0"

	TopicUserRegistered         = "user.registered"
	TopicPasswordChanged        = "user.password_changed"
	TopicPasswordResetRequested = "user.password_reset_requested"
	TopicUserDeactivated        = "user.deactivated"
)

// EventPublisher implements port.EventPublisher on top of Producer.
type EventPublisher struct {
	producer *Producer
	app      config.AppSettings
	logger   *zap.Logger
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, app config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{producer: producer, app: app, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.app.Name,
		"environment": p.app.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	body, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.producer.Topic(eventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(body),
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered emits user.registered.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string         `json:"user_id"`
		Email        string         `json:"email"`
		Role         string         `json:"role"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		Email:        event.Email,
		Role:         string(event.Role),
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}
	return p.publish(ctx, event.EventID, TopicUserRegistered, event.UserID, event.RegisteredAt, payload)
}

// PublishPasswordChanged emits user.password_changed.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		ChangedAt time.Time      `json:"changed_at"`
		Method    string         `json:"method"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		ChangedAt: event.ChangedAt.UTC(),
		Method:    event.Method,
		Metadata:  event.Metadata,
	}
	return p.publish(ctx, event.EventID, TopicPasswordChanged, event.UserID, event.ChangedAt, payload)
}

// PublishPasswordResetRequested emits user.password_reset_requested. The
// reset token itself is never part of the payload.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		UserID            string         `json:"user_id"`
		RequestedAt       time.Time      `json:"requested_at"`
		ExpiresAt         time.Time      `json:"expires_at"`
		MaskedDestination string         `json:"masked_destination,omitempty"`
		Delivered         bool           `json:"delivered"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		UserID:            event.UserID,
		RequestedAt:       event.RequestedAt.UTC(),
		ExpiresAt:         event.ExpiresAt.UTC(),
		MaskedDestination: event.MaskedDestination,
		Delivered:         event.Delivered,
		Metadata:          event.Metadata,
	}
	return p.publish(ctx, event.EventID, TopicPasswordResetRequested, event.UserID, event.RequestedAt, payload)
}

// PublishUserDeactivated emits user.deactivated.
func (p *EventPublisher) PublishUserDeactivated(ctx context.Context, event domain.UserDeactivatedEvent) error {
	payload := struct {
		UserID        string         `json:"user_id"`
		DeactivatedAt time.Time      `json:"deactivated_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		UserID:        event.UserID,
		DeactivatedAt: event.DeactivatedAt.UTC(),
		Metadata:      event.Metadata,
	}
	return p.publish(ctx, event.EventID, TopicUserDeactivated, event.UserID, event.DeactivatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
