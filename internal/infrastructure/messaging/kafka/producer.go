package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"github.com/parcelworks/appealengine/internal/config"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// ErrProducerClosed is returned after Close.
var ErrProducerClosed = apperrors.New(apperrors.ErrCodeInternal, "kafka producer closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes to the bus.
type Producer struct {
	writer WriterInterface
	source string
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer constructs a Producer over the configured brokers.  source
// names the emitting service in every envelope.
func NewProducer(cfg config.KafkaConfig, source string, log logging.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.ProducerRetries + 1,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, source: source, logger: log}
}

// NewProducerWithWriter wraps an existing writer.  Used in tests.
func NewProducerWithWriter(w WriterInterface, source string, log logging.Logger) *Producer {
	return &Producer{writer: w, source: source, logger: log}
}

// PublishEvent wraps payload in an envelope and writes it to topic, keyed by
// key so events for one parcel stay ordered within a partition.
func (p *Producer) PublishEvent(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	env, err := NewEventEnvelope(eventType, p.source, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to marshal event envelope")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "source_service", Value: []byte(p.source)},
		},
		Time: env.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event",
			logging.String("topic", topic),
			logging.String("event_type", eventType),
			logging.Err(err),
		)
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to publish event")
	}

	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_type", eventType),
		logging.String("key", key),
	)
	return nil
}

// PublishRaw writes an already-encoded value to topic without re-wrapping it
// in a new envelope.  The consumer uses it to park exhausted messages on the
// dead-letter topic verbatim, with diagnostic headers attached.
func (p *Producer) PublishRaw(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	msg := kafka.Message{Topic: topic, Key: key, Value: value}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish raw message",
			logging.String("topic", topic),
			logging.Err(err),
		)
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to publish raw message")
	}
	return nil
}

// Close flushes and shuts down the writer.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
