package event

import (
	"maps"
	"time"

	"github.com/garyjia/claim-review/pkg/utils"
)

// Event is emitted after a claim command commits
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ClaimID       string                 `json:"claim_id"`
	Actor         string                 `json:"actor,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates an event with a fresh ID, used as its own correlation ID
func NewEvent(eventType Type, claimID string, payload map[string]interface{}) *Event {
	id := utils.NewID()
	return &Event{
		ID:            id,
		Type:          eventType,
		ClaimID:       claimID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: id,
	}
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, claimID string, payload map[string]interface{}, correlationID string) *Event {
	evt := NewEvent(eventType, claimID, payload)
	evt.CorrelationID = correlationID
	return evt
}

// WithPayload returns a copy of the event with key set
func (e *Event) WithPayload(key string, value interface{}) *Event {
	out := *e
	out.Payload = make(map[string]interface{}, len(e.Payload)+1)
	maps.Copy(out.Payload, e.Payload)
	out.Payload[key] = value
	return &out
}

// WithActor returns a copy of the event attributed to actor
func (e *Event) WithActor(actor string) *Event {
	out := *e
	out.Actor = actor
	return &out
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if b, ok := e.Payload[key].(bool); ok {
		return b
	}
	return false
}
