package outbox

import "time"

const (
	StatusPending   = "pending"
	StatusPublished = "published"
)

// Message is an outbox row persisted inside the same transaction as the
// state change it describes. The relay publishes pending rows in order.
type Message struct {
	ID           string
	EventType    string
	PartitionKey string
	Payload      []byte
	Status       string
	CreatedAt    time.Time
}
