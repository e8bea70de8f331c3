package event

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/plantops/workdesk/internal/domain/entity"
)

// Event represents a domain event raised by a successful transition
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	Family        entity.Family          `json:"family"`
	EntityID      string                 `json:"entity_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, family entity.Family, entityID string, payload map[string]interface{}) *Event {
	return &Event{
		ID:            generateID(),
		Type:          eventType,
		Family:        family,
		EntityID:      entityID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: generateID(),
	}
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	clone := *e
	clone.Payload = newPayload
	return &clone
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// generateID creates a unique ID using timestamp and random bytes
func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), hex.EncodeToString(b))
}
