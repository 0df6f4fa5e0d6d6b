package kafka

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/infra/config"
)

func newSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_5_0_0
	cfg.ClientID = "natours-iam"

	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 100 * time.Millisecond
	cfg.Producer.Flush.Messages = 100
	cfg.Producer.Retry.Max = 3

	cfg.Metadata.Retry.Max = 3
	cfg.Metadata.Retry.Backoff = 250 * time.Millisecond
	return cfg
}

// Producer wraps a sarama AsyncProducer and drains its error channel.
type Producer struct {
	async  sarama.AsyncProducer
	logger *zap.Logger
	prefix string
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewProducer connects an async producer to the configured brokers.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	saramaCfg := newSaramaConfig()
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Return.Errors = true

	async, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
	)
	return WrapAsyncProducer(async, cfg.TopicPrefix, logger), nil
}

// WrapAsyncProducer adopts an existing AsyncProducer.
func WrapAsyncProducer(async sarama.AsyncProducer, topicPrefix string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{
		async:  async,
		logger: logger,
		prefix: strings.Trim(strings.TrimSpace(topicPrefix), "."),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.drainErrors()
	return p
}

func (p *Producer) drainErrors() {
	defer p.wg.Done()
	for {
		select {
		case perr, ok := <-p.async.Errors():
			if !ok {
				return
			}
			if perr != nil {
				p.logger.Error("kafka delivery failed", zap.String("topic", perr.Msg.Topic), zap.Error(perr.Err))
			}
		case <-p.done:
			return
		}
	}
}

// Input exposes the producer input channel.
func (p *Producer) Input() chan<- *sarama.ProducerMessage {
	return p.async.Input()
}

// Topic returns eventType qualified with the configured prefix.
func (p *Producer) Topic(eventType string) string {
	return qualifyTopic(p.prefix, eventType)
}

// Close flushes pending messages and stops the error drain.
func (p *Producer) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		if cerr := p.async.Close(); cerr != nil {
			err = fmt.Errorf("close kafka producer: %w", cerr)
		}
	})
	return err
}

func qualifyTopic(prefix, name string) string {
	if prefix == "" || strings.HasPrefix(name, prefix+".") {
		return name
	}
	return prefix + "." + name
}
