package memory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/ports"
	"ceto/internal/shared/outbox"

	"github.com/google/uuid"
)

// Store is the in-process Data Store. One mutex serialises every unit of
// work, which stands in for the row lock the postgres adapter takes.
type Store struct {
	mu          sync.Mutex
	state       *state
	idempotency map[string]ports.IdempotencyRecord
}

func NewStore() *Store {
	return &Store{
		state:       newState(),
		idempotency: make(map[string]ports.IdempotencyRecord),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := s.state.clone()
	if err := fn(staged); err != nil {
		return err
	}
	s.state = staged
	return nil
}

// SetRecord seeds a record outside the suggestion pipeline. The change log
// gets a synthetic create entry so the record still folds from history.
func (s *Store) SetRecord(record entities.Record, identityKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := context.Background()
	if record.Version == 0 {
		record.Version = 1
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	record.Active = true
	s.state.putRecord(record, identityKey)
	_, _ = s.state.AppendRecordChange(ctx, entities.RecordChange{
		TargetType:   record.TargetType,
		RecordID:     record.RecordID,
		SuggestionID: "seed:" + string(record.TargetType) + ":" + record.RecordID,
		Operation:    entities.OperationCreate,
		Payload:      record.Fields,
		Sequence:     record.Version,
		AppliedAt:    record.CreatedAt,
	})
}

// SetSuggestion seeds a suggestion as-is, bypassing submit validation.
func (s *Store) SetSuggestion(suggestion entities.Suggestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	suggestion.Payload = entities.CloneFields(suggestion.Payload)
	s.state.suggestions[strings.TrimSpace(suggestion.SuggestionID)] = suggestion
}

// SetEndorsement seeds a stance without triggering threshold evaluation.
func (s *Store) SetEndorsement(endorsement entities.Endorsement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.state.CreateEndorsement(context.Background(), endorsement)
}

// SetKarmaScore overwrites the score projection, leaving the ledger alone.
func (s *Store) SetKarmaScore(userID string, score int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.karmaScores[strings.TrimSpace(userID)] = score
}

func (s *Store) GetSuggestion(ctx context.Context, suggestionID string) (entities.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetSuggestion(ctx, suggestionID)
}

func (s *Store) ListSuggestions(ctx context.Context, filter ports.SuggestionFilter) ([]entities.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListSuggestions(ctx, filter)
}

func (s *Store) GetEndorsement(ctx context.Context, suggestionID string, userID string) (entities.Endorsement, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetEndorsement(ctx, suggestionID, userID)
}

func (s *Store) ListEndorsements(ctx context.Context, suggestionID string) ([]entities.Endorsement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListEndorsements(ctx, suggestionID)
}

func (s *Store) GetRecord(ctx context.Context, targetType entities.TargetType, recordID string) (entities.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetRecord(ctx, targetType, recordID)
}

func (s *Store) FindActiveRecordByIdentity(
	ctx context.Context,
	targetType entities.TargetType,
	identityKey string,
) (entities.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FindActiveRecordByIdentity(ctx, targetType, identityKey)
}

func (s *Store) ListRecords(ctx context.Context, filter ports.RecordFilter) ([]entities.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListRecords(ctx, filter)
}

func (s *Store) ListRecordChanges(
	ctx context.Context,
	targetType entities.TargetType,
	recordID string,
) ([]entities.RecordChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListRecordChanges(ctx, targetType, recordID)
}

func (s *Store) GetKarmaScore(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetKarmaScore(ctx, userID)
}

func (s *Store) ListKarmaEntries(ctx context.Context, userID string) ([]entities.KarmaEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListKarmaEntries(ctx, userID)
}

func (s *Store) SumKarmaEntries(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SumKarmaEntries(ctx, userID)
}

func (s *Store) ListKarmaUsers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListKarmaUsers(ctx)
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.idempotency[strings.TrimSpace(key)]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.IsZero() && now.UTC().After(record.ExpiresAt.UTC()) {
		delete(s.idempotency, strings.TrimSpace(key))
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(record.Key)
	if existing, ok := s.idempotency[key]; ok {
		if existing.RequestHash != record.RequestHash || existing.SuggestionID != record.SuggestionID {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	record.Key = key
	s.idempotency[key] = record
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, message := range s.state.outbox {
		if message.Status != outbox.StatusPending {
			continue
		}
		message.Payload = append([]byte(nil), message.Payload...)
		items = append(items, message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.outbox {
		if s.state.outbox[i].ID == strings.TrimSpace(outboxID) {
			s.state.outbox[i].Status = outbox.StatusPublished
			return nil
		}
	}
	return domainerrors.NotFound("outbox message %s", strings.TrimSpace(outboxID))
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func marshalEnvelope(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}

var _ ports.Repository = (*Store)(nil)
var _ ports.IdempotencyStore = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
