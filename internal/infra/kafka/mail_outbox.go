package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
	"github.com/SwagatoSarowar/Natours/internal/infra/config"
)

const defaultMailTopic = "mail.outbound"

// MailOutbox hands mail to a downstream sender through a Kafka topic. Sends
// are synchronous so a broker failure surfaces to the caller.
type MailOutbox struct {
	producer sarama.SyncProducer
	topic    string
	from     string
	logger   *zap.Logger
}

type outboundMail struct {
	MessageID string    `json:"message_id"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	QueuedAt  time.Time `json:"queued_at"`
}

// NewSyncProducer connects a producer that waits for broker acknowledgement.
func NewSyncProducer(cfg config.KafkaSettings) (sarama.SyncProducer, error) {
	saramaCfg := newSaramaConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka sync producer: %w", err)
	}
	return producer, nil
}

// NewMailOutbox builds a Mailer writing to topic, qualified with topicPrefix.
func NewMailOutbox(producer sarama.SyncProducer, topicPrefix, topic, from string, logger *zap.Logger) *MailOutbox {
	if topic == "" {
		topic = defaultMailTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailOutbox{
		producer: producer,
		topic:    qualifyTopic(topicPrefix, topic),
		from:     from,
		logger:   logger,
	}
}

// Send publishes msg and waits for the broker acknowledgement.
func (m *MailOutbox) Send(ctx context.Context, msg domain.MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(outboundMail{
		MessageID: uuid.NewString(),
		From:      m.from,
		To:        msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		QueuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal outbound mail: %w", err)
	}

	partition, offset, err := m.producer.SendMessage(&sarama.ProducerMessage{
		Topic: m.topic,
		Key:   sarama.StringEncoder(msg.To),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		return fmt.Errorf("queue mail: %w", err)
	}

	m.logger.Debug("mail queued", zap.String("topic", m.topic), zap.Int32("partition", partition), zap.Int64("offset", offset))
	return nil
}

// Close releases the underlying producer.
func (m *MailOutbox) Close() error {
	return m.producer.Close()
}

var _ port.Mailer = (*MailOutbox)(nil)
