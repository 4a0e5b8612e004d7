package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/parcelworks/appealengine/internal/config"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterPublisher parks a message that exhausted its retries.  *Producer
// satisfies this via PublishRaw.
type DeadLetterPublisher interface {
	PublishRaw(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// EventHandler processes one decoded event envelope.  A returned error
// triggers the consumer's retry and dead-letter handling.
type EventHandler func(ctx context.Context, env *EventEnvelope) error

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = time.Second
	maxRetryBackoff     = 30 * time.Second
)

// Consumer reads event envelopes from one topic within a consumer group.
type Consumer struct {
	reader     ReaderInterface
	logger     logging.Logger
	maxRetries int
	backoff    time.Duration
	deadLetter DeadLetterPublisher
	dlqTopic   string
}

// ConsumerOption customizes a Consumer.
type ConsumerOption func(*Consumer)

// WithDeadLetter attaches a publisher that parks messages whose handler
// keeps failing, so the group offset can advance without losing them.
func WithDeadLetter(p DeadLetterPublisher, topic string) ConsumerOption {
	return func(c *Consumer) {
		c.deadLetter = p
		c.dlqTopic = topic
	}
}

// WithRetryPolicy sets the handler retry count and initial backoff.
func WithRetryPolicy(maxRetries int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// NewConsumer constructs a group consumer for topic.
func NewConsumer(cfg config.KafkaConfig, topic string, log logging.Logger, opts ...ConsumerOption) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   topic,
	})
	return newConsumer(reader, log, opts)
}

// NewConsumerWithReader wraps an existing reader.  Used in tests.
func NewConsumerWithReader(r ReaderInterface, log logging.Logger, opts ...ConsumerOption) *Consumer {
	return newConsumer(r, log, opts)
}

func newConsumer(r ReaderInterface, log logging.Logger, opts []ConsumerOption) *Consumer {
	c := &Consumer{
		reader:     r,
		logger:     log,
		maxRetries: defaultMaxRetries,
		backoff:    defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run fetches, decodes, and dispatches messages until ctx is cancelled.
// A message that cannot be decoded is committed and dropped.  A handler
// error is retried with doubling backoff; when retries are exhausted the
// message is parked on the dead-letter topic before its offset is committed.
// Without a dead-letter publisher Run returns the error instead, leaving the
// message uncommitted: committing a later offset would silently skip it.
func (c *Consumer) Run(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to fetch message")
		}

		var env EventEnvelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.logger.Warn("dropping undecodable message",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err),
			)
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to commit message")
			}
			continue
		}

		if err := handler(ctx, &env); err != nil {
			if err := c.retryThenPark(ctx, msg, &env, handler, err); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to commit message")
		}
	}
}

// retryThenPark re-runs the handler with doubling backoff.  A nil return
// means the message may be committed: either a retry succeeded or the
// message was parked on the dead-letter topic.
func (c *Consumer) retryThenPark(ctx context.Context, msg kafka.Message, env *EventEnvelope, handler EventHandler, lastErr error) error {
	backoff := c.backoff
	for i := 0; i < c.maxRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err := handler(ctx, env); err == nil {
			return nil
		} else {
			lastErr = err
		}

		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}

	c.logger.Error("event handler failed after retries",
		logging.String("event_type", env.EventType),
		logging.String("event_id", env.EventID),
		logging.Int("retries", c.maxRetries),
		logging.Err(lastErr),
	)

	if c.deadLetter == nil || c.dlqTopic == "" {
		return apperrors.Wrap(lastErr, apperrors.ErrCodeInternal, "event handler failed with no dead-letter topic")
	}

	headers := map[string]string{
		"original_topic": msg.Topic,
		"error_message":  lastErr.Error(),
	}
	if err := c.deadLetter.PublishRaw(ctx, c.dlqTopic, msg.Key, msg.Value, headers); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to dead-letter message")
	}
	c.logger.Warn("message dead-lettered",
		logging.String("event_id", env.EventID),
		logging.String("topic", c.dlqTopic),
	)
	return nil
}

// Close shuts down the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
