package models

import (
	"encoding/json"
	"time"
)

// StandardMessage is the envelope published to the message broker
type StandardMessage struct {
	ID           string                 `json:"id"`
	Event        string                 `json:"event"`
	Version      int                    `json:"version"`
	Timestamp    time.Time              `json:"timestamp"`
	ActorID      string                 `json:"actor_id,omitempty"`
	Payload      map[string]interface{} `json:"payload"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
}

// NewStandardMessage wraps an outbox event for publication
func NewStandardMessage(event Event) (*StandardMessage, error) {
	payload := map[string]interface{}{}
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
	}

	return &StandardMessage{
		ID:        event.ID.String(),
		Event:     event.Event,
		Version:   event.Version,
		Timestamp: event.Timestamp,
		ActorID:   event.ActorID,
		Payload:   payload,
	}, nil
}

// WithResource adds resource information to the message
func (m *StandardMessage) WithResource(resourceType string, resourceID string) *StandardMessage {
	m.ResourceType = resourceType
	m.ResourceID = resourceID
	return m
}

func (m *StandardMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
