package events

import (
	"encoding/json"
	"time"
)

// Envelope is the event shape written to the outbox and published on the bus.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SourceService string          `json:"source_service"`
	OccurredAt    time.Time       `json:"occurred_at"`
	PartitionKey  string          `json:"partition_key"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// New marshals data into an envelope partitioned by entity id.
func New(
	eventID string,
	eventType string,
	sourceService string,
	entityType string,
	entityID string,
	occurredAt time.Time,
	data any,
) (Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       eventID,
		EventType:     eventType,
		SourceService: sourceService,
		OccurredAt:    occurredAt.UTC(),
		PartitionKey:  entityID,
		EntityType:    entityType,
		EntityID:      entityID,
		SchemaVersion: 1,
		Data:          payload,
	}, nil
}
