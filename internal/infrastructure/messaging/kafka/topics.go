// Package kafka provides event publishing and consumption for the analysis
// pipeline.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// Topic constants.
const (
	TopicAnalysisRequested  = "appeal.analysis.requested"
	TopicAnalysisCompleted  = "appeal.analysis.completed"
	TopicAnalysisFailed     = "appeal.analysis.failed"
	TopicAnalysisDeadLetter = "appeal.analysis.deadletter"
	TopicPropertyUpdated    = "appeal.property.updated"
)

// EventEnvelope standardizes every message on the bus.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// AnalysisRequestedPayload asks the worker to run an analysis for a parcel.
type AnalysisRequestedPayload struct {
	PIN         string    `json:"pin"`
	Limit       int       `json:"limit"`
	RequestedAt time.Time `json:"requested_at"`
}

// AnalysisCompletedPayload announces a finished analysis.
type AnalysisCompletedPayload struct {
	AnalysisID       string    `json:"analysis_id"`
	PIN              string    `json:"pin"`
	OpportunityScore int       `json:"opportunity_score"`
	Confidence       string    `json:"confidence"`
	ComparableCount  int       `json:"comparable_count"`
	CompletedAt      time.Time `json:"completed_at"`
}

// AnalysisFailedPayload announces an analysis that could not complete.
type AnalysisFailedPayload struct {
	PIN      string    `json:"pin"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// NewEventEnvelope wraps a payload in a versioned envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 {
		return apperrors.New(apperrors.ErrCodeValidation, "event envelope has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}
