package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"court-reservation-engine/internal/core/domain"
)

// EnvelopeVersion is bumped when the payload shape changes incompatibly.
const EnvelopeVersion = 1

// Envelope wraps every domain event written to the topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // booking id when present
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope serializes the event into an envelope.
func NewEnvelope(producer string, event domain.Event) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode event payload: %w", err)
	}
	env := Envelope{
		EventID:      event.ID.String(),
		EventType:    string(event.Type),
		EventVersion: EnvelopeVersion,
		OccurredAt:   event.OccurredAt,
		Producer:     producer,
		Payload:      payload,
	}
	if event.Booking != nil {
		env.CorrelationID = event.Booking.ID.String()
	}
	return env, nil
}

// UnwrapPayload decodes an envelope payload into T.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
