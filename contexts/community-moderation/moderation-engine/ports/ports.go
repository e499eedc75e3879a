package ports

import (
	"context"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	"ceto/internal/shared/events"
	"ceto/internal/shared/outbox"
)

type EventEnvelope = events.Envelope

type OutboxMessage = outbox.Message

type SuggestionFilter struct {
	TargetType    entities.TargetType
	TargetID      string
	Status        entities.SuggestionStatus
	CreatedBefore time.Time
	Limit         int
}

// RecordFilter narrows a record listing. Field and Value, when both set,
// keep records whose string field equals Value.
type RecordFilter struct {
	TargetType entities.TargetType
	ActiveOnly bool
	Field      string
	Value      string
	Limit      int
}

type SuggestionReader interface {
	GetSuggestion(ctx context.Context, suggestionID string) (entities.Suggestion, error)
	ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]entities.Suggestion, error)
	GetEndorsement(ctx context.Context, suggestionID string, userID string) (entities.Endorsement, bool, error)
	ListEndorsements(ctx context.Context, suggestionID string) ([]entities.Endorsement, error)
}

type RecordReader interface {
	GetRecord(ctx context.Context, targetType entities.TargetType, recordID string) (entities.Record, error)
	FindActiveRecordByIdentity(ctx context.Context, targetType entities.TargetType, identityKey string) (entities.Record, bool, error)
	// ListRecords returns records newest first.
	ListRecords(ctx context.Context, filter RecordFilter) ([]entities.Record, error)
	ListRecordChanges(ctx context.Context, targetType entities.TargetType, recordID string) ([]entities.RecordChange, error)
}

type KarmaReader interface {
	GetKarmaScore(ctx context.Context, userID string) (int64, error)
	ListKarmaEntries(ctx context.Context, userID string) ([]entities.KarmaEntry, error)
	SumKarmaEntries(ctx context.Context, userID string) (int64, error)
	ListKarmaUsers(ctx context.Context) ([]string, error)
}

// Tx is the transactional view handed to WithinTx callbacks. Writes become
// visible only when the callback returns nil.
type Tx interface {
	SuggestionReader
	RecordReader
	KarmaReader

	// LockSuggestion loads the suggestion and holds its row lock until commit.
	LockSuggestion(ctx context.Context, suggestionID string) (entities.Suggestion, error)
	CreateSuggestion(ctx context.Context, suggestion entities.Suggestion) error
	// TransitionSuggestion persists a terminal state only if the stored row is
	// still pending at fromVersion; otherwise it returns ErrInvalidState.
	TransitionSuggestion(ctx context.Context, suggestion entities.Suggestion, fromVersion int64) error

	CreateEndorsement(ctx context.Context, endorsement entities.Endorsement) error
	DeleteEndorsement(ctx context.Context, suggestionID string, userID string) error

	// LockRecord loads the record and holds its row lock until commit.
	LockRecord(ctx context.Context, targetType entities.TargetType, recordID string) (entities.Record, error)
	// SaveRecord stores the folded state with the identity key used for
	// duplicate detection. Version 1 inserts; later versions update only a
	// row still at Version-1, otherwise ErrInvalidState. Two active records
	// of one type sharing a non-empty identity key yield ErrRecordConflict.
	SaveRecord(ctx context.Context, record entities.Record, identityKey string) error
	// AppendRecordChange is a no-op returning false when the suggestion was
	// already applied. A second change with the same sequence on a record
	// yields ErrRecordConflict.
	AppendRecordChange(ctx context.Context, change entities.RecordChange) (bool, error)

	// AppendKarmaEntry adds the ledger line and moves the score projection
	// by its delta. Returns false when the entry already exists.
	AppendKarmaEntry(ctx context.Context, entry entities.KarmaEntry) (bool, error)
	SetKarmaScore(ctx context.Context, userID string, score int64) error

	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type Repository interface {
	SuggestionReader
	RecordReader
	KarmaReader

	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	SuggestionID string
	ExpiresAt    time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
