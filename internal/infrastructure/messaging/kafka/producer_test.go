package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
)

type fakeWriter struct {
	messages []kafka.Message
	writeErr error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducer_PublishEvent(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, "apiserver", logging.NewNopLogger())

	payload := AnalysisRequestedPayload{PIN: "14081020180000", Limit: 10, RequestedAt: time.Now().UTC()}
	err := p.PublishEvent(context.Background(), TopicAnalysisRequested, "analysis.requested", payload.PIN, payload)
	require.NoError(t, err)
	require.Len(t, fw.messages, 1)

	msg := fw.messages[0]
	assert.Equal(t, TopicAnalysisRequested, msg.Topic)
	assert.Equal(t, []byte("14081020180000"), msg.Key)

	var env EventEnvelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "analysis.requested", env.EventType)
	assert.Equal(t, "apiserver", env.Source)
	assert.Equal(t, "v1", env.SchemaVersion)
	assert.NotEmpty(t, env.EventID)

	var decoded AnalysisRequestedPayload
	require.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, "14081020180000", decoded.PIN)
	assert.Equal(t, 10, decoded.Limit)
}

func TestProducer_WriteFailure(t *testing.T) {
	fw := &fakeWriter{writeErr: errors.New("broker unreachable")}
	p := NewProducerWithWriter(fw, "apiserver", logging.NewNopLogger())

	err := p.PublishEvent(context.Background(), TopicAnalysisRequested, "analysis.requested", "k", struct{}{})
	assert.Error(t, err)
}

func TestProducer_ClosedRejectsPublish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, "apiserver", logging.NewNopLogger())

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)

	err := p.PublishEvent(context.Background(), TopicAnalysisRequested, "analysis.requested", "k", struct{}{})
	assert.ErrorIs(t, err, ErrProducerClosed)

	// Close is idempotent.
	assert.NoError(t, p.Close())
}

func TestProducer_PublishRaw(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, "worker", logging.NewNopLogger())

	value := []byte(`{"event_id":"abc"}`)
	err := p.PublishRaw(context.Background(), TopicAnalysisDeadLetter, []byte("14081020180000"), value,
		map[string]string{"original_topic": TopicAnalysisRequested})
	require.NoError(t, err)
	require.Len(t, fw.messages, 1)

	msg := fw.messages[0]
	assert.Equal(t, TopicAnalysisDeadLetter, msg.Topic)
	assert.Equal(t, value, msg.Value)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "original_topic", msg.Headers[0].Key)
	assert.Equal(t, []byte(TopicAnalysisRequested), msg.Headers[0].Value)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.PublishRaw(context.Background(), TopicAnalysisDeadLetter, nil, nil, nil), ErrProducerClosed)
}

type fakeReader struct {
	messages  []kafka.Message
	idx       int
	committed []kafka.Message
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if f.idx >= len(f.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := f.messages[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func envelopeMessage(t *testing.T, eventType string, payload interface{}) kafka.Message {
	t.Helper()
	env, err := NewEventEnvelope(eventType, "test", payload)
	require.NoError(t, err)
	value, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{Topic: TopicAnalysisRequested, Value: value}
}

func TestConsumer_DispatchesAndCommits(t *testing.T) {
	fr := &fakeReader{messages: []kafka.Message{
		envelopeMessage(t, "analysis.requested", AnalysisRequestedPayload{PIN: "14081020180000", Limit: 10}),
	}}
	c := NewConsumerWithReader(fr, logging.NewNopLogger())

	var handled []string
	err := c.Run(context.Background(), func(_ context.Context, env *EventEnvelope) error {
		var p AnalysisRequestedPayload
		require.NoError(t, env.DecodePayload(&p))
		handled = append(handled, p.PIN)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"14081020180000"}, handled)
	assert.Len(t, fr.committed, 1)
}

type fakeDeadLetter struct {
	topic   string
	key     []byte
	value   []byte
	headers map[string]string
	err     error
	calls   int
}

func (f *fakeDeadLetter) PublishRaw(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.key = key
	f.value = value
	f.headers = headers
	return nil
}

func TestConsumer_RetryRecoversTransientFailure(t *testing.T) {
	fr := &fakeReader{messages: []kafka.Message{
		envelopeMessage(t, "analysis.requested", AnalysisRequestedPayload{PIN: "14081020180000"}),
	}}
	dlq := &fakeDeadLetter{}
	c := NewConsumerWithReader(fr, logging.NewNopLogger(),
		WithRetryPolicy(2, time.Millisecond),
		WithDeadLetter(dlq, TopicAnalysisDeadLetter),
	)

	attempts := 0
	err := c.Run(context.Background(), func(context.Context, *EventEnvelope) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient failure")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Zero(t, dlq.calls)
	assert.Len(t, fr.committed, 1)
}

func TestConsumer_ExhaustedRetriesDeadLetterThenCommit(t *testing.T) {
	msg := envelopeMessage(t, "analysis.requested", AnalysisRequestedPayload{PIN: "14081020180000"})
	fr := &fakeReader{messages: []kafka.Message{msg}}
	dlq := &fakeDeadLetter{}
	c := NewConsumerWithReader(fr, logging.NewNopLogger(),
		WithRetryPolicy(2, time.Millisecond),
		WithDeadLetter(dlq, TopicAnalysisDeadLetter),
	)

	attempts := 0
	err := c.Run(context.Background(), func(context.Context, *EventEnvelope) error {
		attempts++
		return errors.New("persistent failure")
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts) // first delivery plus two retries

	// The message is parked verbatim, then its offset is committed.
	assert.Equal(t, TopicAnalysisDeadLetter, dlq.topic)
	assert.Equal(t, msg.Value, dlq.value)
	assert.Equal(t, TopicAnalysisRequested, dlq.headers["original_topic"])
	assert.Equal(t, "persistent failure", dlq.headers["error_message"])
	assert.Len(t, fr.committed, 1)
}

func TestConsumer_NoDeadLetterStopsUncommitted(t *testing.T) {
	// Committing a later offset would skip the failed message for good, so
	// without a dead-letter topic the consumer must stop instead.
	fr := &fakeReader{messages: []kafka.Message{
		envelopeMessage(t, "analysis.requested", AnalysisRequestedPayload{PIN: "14081020180000"}),
	}}
	c := NewConsumerWithReader(fr, logging.NewNopLogger(),
		WithRetryPolicy(1, time.Millisecond),
	)

	err := c.Run(context.Background(), func(context.Context, *EventEnvelope) error {
		return errors.New("persistent failure")
	})
	require.Error(t, err)
	assert.Empty(t, fr.committed)
}

func TestConsumer_DeadLetterFailureStopsUncommitted(t *testing.T) {
	fr := &fakeReader{messages: []kafka.Message{
		envelopeMessage(t, "analysis.requested", AnalysisRequestedPayload{PIN: "14081020180000"}),
	}}
	dlq := &fakeDeadLetter{err: errors.New("broker unreachable")}
	c := NewConsumerWithReader(fr, logging.NewNopLogger(),
		WithRetryPolicy(1, time.Millisecond),
		WithDeadLetter(dlq, TopicAnalysisDeadLetter),
	)

	err := c.Run(context.Background(), func(context.Context, *EventEnvelope) error {
		return errors.New("persistent failure")
	})
	require.Error(t, err)
	assert.Empty(t, fr.committed)
}

func TestConsumer_DropsUndecodableMessage(t *testing.T) {
	fr := &fakeReader{messages: []kafka.Message{
		{Topic: TopicAnalysisRequested, Value: []byte("not json")},
	}}
	c := NewConsumerWithReader(fr, logging.NewNopLogger())

	handled := 0
	err := c.Run(context.Background(), func(context.Context, *EventEnvelope) error {
		handled++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, handled)
	assert.Len(t, fr.committed, 1)
}
