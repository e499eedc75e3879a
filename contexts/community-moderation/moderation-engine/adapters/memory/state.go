package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/ports"
	"ceto/internal/shared/outbox"

	"github.com/google/uuid"
)

type recordKey struct {
	targetType entities.TargetType
	recordID   string
}

type storedRecord struct {
	record      entities.Record
	identityKey string
}

type karmaKey struct {
	userID       string
	suggestionID string
	reason       entities.KarmaReason
}

// state is the whole dataset. A transaction works on a clone and the clone
// replaces the live state only on commit.
type state struct {
	suggestions  map[string]entities.Suggestion
	endorsements map[string]map[string]entities.Endorsement
	records      map[recordKey]storedRecord
	changes      map[recordKey][]entities.RecordChange
	applied      map[string]struct{}
	karmaEntries map[string][]entities.KarmaEntry
	karmaKeys    map[karmaKey]struct{}
	karmaScores  map[string]int64
	outbox       []ports.OutboxMessage
}

func newState() *state {
	return &state{
		suggestions:  make(map[string]entities.Suggestion),
		endorsements: make(map[string]map[string]entities.Endorsement),
		records:      make(map[recordKey]storedRecord),
		changes:      make(map[recordKey][]entities.RecordChange),
		applied:      make(map[string]struct{}),
		karmaEntries: make(map[string][]entities.KarmaEntry),
		karmaKeys:    make(map[karmaKey]struct{}),
		karmaScores:  make(map[string]int64),
	}
}

func (s *state) clone() *state {
	out := newState()
	for id, item := range s.suggestions {
		out.suggestions[id] = item
	}
	for id, items := range s.endorsements {
		copied := make(map[string]entities.Endorsement, len(items))
		for userID, item := range items {
			copied[userID] = item
		}
		out.endorsements[id] = copied
	}
	for key, item := range s.records {
		item.record.Fields = entities.CloneFields(item.record.Fields)
		out.records[key] = item
	}
	for key, items := range s.changes {
		out.changes[key] = append([]entities.RecordChange(nil), items...)
	}
	for id := range s.applied {
		out.applied[id] = struct{}{}
	}
	for userID, items := range s.karmaEntries {
		out.karmaEntries[userID] = append([]entities.KarmaEntry(nil), items...)
	}
	for key := range s.karmaKeys {
		out.karmaKeys[key] = struct{}{}
	}
	for userID, score := range s.karmaScores {
		out.karmaScores[userID] = score
	}
	out.outbox = append([]ports.OutboxMessage(nil), s.outbox...)
	return out
}

func (s *state) GetSuggestion(_ context.Context, suggestionID string) (entities.Suggestion, error) {
	item, ok := s.suggestions[strings.TrimSpace(suggestionID)]
	if !ok {
		return entities.Suggestion{}, domainerrors.NotFound("suggestion %s", strings.TrimSpace(suggestionID))
	}
	return item, nil
}

func (s *state) ListSuggestions(_ context.Context, filter ports.SuggestionFilter) ([]entities.Suggestion, error) {
	items := make([]entities.Suggestion, 0)
	for _, item := range s.suggestions {
		if filter.TargetType != "" && item.TargetType != filter.TargetType {
			continue
		}
		if strings.TrimSpace(filter.TargetID) != "" && item.TargetID != strings.TrimSpace(filter.TargetID) {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if !filter.CreatedBefore.IsZero() && item.CreatedAt.After(filter.CreatedBefore) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].SuggestionID < items[j].SuggestionID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *state) GetEndorsement(_ context.Context, suggestionID string, userID string) (entities.Endorsement, bool, error) {
	item, ok := s.endorsements[strings.TrimSpace(suggestionID)][strings.TrimSpace(userID)]
	return item, ok, nil
}

func (s *state) ListEndorsements(_ context.Context, suggestionID string) ([]entities.Endorsement, error) {
	byUser := s.endorsements[strings.TrimSpace(suggestionID)]
	items := make([]entities.Endorsement, 0, len(byUser))
	for _, item := range byUser {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].UserID < items[j].UserID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *state) GetRecord(_ context.Context, targetType entities.TargetType, recordID string) (entities.Record, error) {
	item, ok := s.records[recordKey{targetType: targetType, recordID: strings.TrimSpace(recordID)}]
	if !ok {
		return entities.Record{}, domainerrors.NotFound("%s %s", targetType, strings.TrimSpace(recordID))
	}
	record := item.record
	record.Fields = entities.CloneFields(record.Fields)
	return record, nil
}

func (s *state) FindActiveRecordByIdentity(
	_ context.Context,
	targetType entities.TargetType,
	identityKey string,
) (entities.Record, bool, error) {
	if strings.TrimSpace(identityKey) == "" {
		return entities.Record{}, false, nil
	}
	for key, item := range s.records {
		if key.targetType == targetType && item.record.Active && item.identityKey == identityKey {
			return item.record, true, nil
		}
	}
	return entities.Record{}, false, nil
}

func (s *state) ListRecordChanges(
	_ context.Context,
	targetType entities.TargetType,
	recordID string,
) ([]entities.RecordChange, error) {
	items := append([]entities.RecordChange(nil), s.changes[recordKey{targetType: targetType, recordID: strings.TrimSpace(recordID)}]...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Sequence < items[j].Sequence })
	return items, nil
}

func (s *state) GetKarmaScore(_ context.Context, userID string) (int64, error) {
	return s.karmaScores[strings.TrimSpace(userID)], nil
}

func (s *state) ListKarmaEntries(_ context.Context, userID string) ([]entities.KarmaEntry, error) {
	return append([]entities.KarmaEntry(nil), s.karmaEntries[strings.TrimSpace(userID)]...), nil
}

func (s *state) SumKarmaEntries(_ context.Context, userID string) (int64, error) {
	return entities.SumKarma(s.karmaEntries[strings.TrimSpace(userID)]), nil
}

func (s *state) ListKarmaUsers(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for userID := range s.karmaEntries {
		seen[userID] = struct{}{}
	}
	for userID := range s.karmaScores {
		seen[userID] = struct{}{}
	}
	users := make([]string, 0, len(seen))
	for userID := range seen {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users, nil
}

func (s *state) LockSuggestion(ctx context.Context, suggestionID string) (entities.Suggestion, error) {
	return s.GetSuggestion(ctx, suggestionID)
}

func (s *state) CreateSuggestion(_ context.Context, suggestion entities.Suggestion) error {
	id := strings.TrimSpace(suggestion.SuggestionID)
	if _, exists := s.suggestions[id]; exists {
		return domainerrors.Duplicate("suggestion %s", id)
	}
	suggestion.Payload = entities.CloneFields(suggestion.Payload)
	s.suggestions[id] = suggestion
	return nil
}

func (s *state) TransitionSuggestion(_ context.Context, suggestion entities.Suggestion, fromVersion int64) error {
	id := strings.TrimSpace(suggestion.SuggestionID)
	current, ok := s.suggestions[id]
	if !ok {
		return domainerrors.NotFound("suggestion %s", id)
	}
	if current.Status != entities.SuggestionStatusPending || current.Version != fromVersion {
		return domainerrors.InvalidState("suggestion %s changed concurrently", id)
	}
	s.suggestions[id] = suggestion
	return nil
}

func (s *state) CreateEndorsement(_ context.Context, endorsement entities.Endorsement) error {
	suggestionID := strings.TrimSpace(endorsement.SuggestionID)
	userID := strings.TrimSpace(endorsement.UserID)
	byUser, ok := s.endorsements[suggestionID]
	if !ok {
		byUser = make(map[string]entities.Endorsement)
		s.endorsements[suggestionID] = byUser
	}
	if _, exists := byUser[userID]; exists {
		return domainerrors.Duplicate("user %s already took a stance on suggestion %s", userID, suggestionID)
	}
	byUser[userID] = endorsement
	return nil
}

func (s *state) DeleteEndorsement(_ context.Context, suggestionID string, userID string) error {
	byUser := s.endorsements[strings.TrimSpace(suggestionID)]
	if _, ok := byUser[strings.TrimSpace(userID)]; !ok {
		return domainerrors.NotFound("endorsement by %s on suggestion %s", strings.TrimSpace(userID), strings.TrimSpace(suggestionID))
	}
	delete(byUser, strings.TrimSpace(userID))
	return nil
}

func (s *state) LockRecord(ctx context.Context, targetType entities.TargetType, recordID string) (entities.Record, error) {
	return s.GetRecord(ctx, targetType, recordID)
}

func (s *state) ListRecords(_ context.Context, filter ports.RecordFilter) ([]entities.Record, error) {
	items := make([]entities.Record, 0)
	for key, item := range s.records {
		if filter.TargetType != "" && key.targetType != filter.TargetType {
			continue
		}
		if filter.ActiveOnly && !item.record.Active {
			continue
		}
		if filter.Field != "" {
			value, _ := item.record.Fields[filter.Field].(string)
			if value != filter.Value {
				continue
			}
		}
		record := item.record
		record.Fields = entities.CloneFields(record.Fields)
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].RecordID < items[j].RecordID
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *state) SaveRecord(_ context.Context, record entities.Record, identityKey string) error {
	key := recordKey{targetType: record.TargetType, recordID: strings.TrimSpace(record.RecordID)}
	current, exists := s.records[key]
	switch {
	case record.Version <= 1 && exists:
		return domainerrors.Duplicate("%s %s", key.targetType, key.recordID)
	case record.Version > 1 && (!exists || current.record.Version != record.Version-1):
		return domainerrors.InvalidState("%s %s changed concurrently", key.targetType, key.recordID)
	}
	if record.Active && identityKey != "" {
		for otherKey, other := range s.records {
			if otherKey != key && otherKey.targetType == key.targetType && other.record.Active && other.identityKey == identityKey {
				return domainerrors.RecordConflict("%s %s shares identity with %s", key.targetType, key.recordID, otherKey.recordID)
			}
		}
	}
	s.putRecord(record, identityKey)
	return nil
}

func (s *state) putRecord(record entities.Record, identityKey string) {
	record.Fields = entities.CloneFields(record.Fields)
	s.records[recordKey{targetType: record.TargetType, recordID: strings.TrimSpace(record.RecordID)}] = storedRecord{
		record:      record,
		identityKey: identityKey,
	}
}

func (s *state) AppendRecordChange(_ context.Context, change entities.RecordChange) (bool, error) {
	if _, done := s.applied[change.SuggestionID]; done {
		return false, nil
	}
	if change.ChangeID == "" {
		change.ChangeID = uuid.NewString()
	}
	change.Payload = entities.CloneFields(change.Payload)
	key := recordKey{targetType: change.TargetType, recordID: strings.TrimSpace(change.RecordID)}
	for _, existing := range s.changes[key] {
		if existing.Sequence == change.Sequence {
			return false, domainerrors.RecordConflict("%s %s already has change %d", key.targetType, key.recordID, change.Sequence)
		}
	}
	s.changes[key] = append(s.changes[key], change)
	s.applied[change.SuggestionID] = struct{}{}
	return true, nil
}

func (s *state) AppendKarmaEntry(_ context.Context, entry entities.KarmaEntry) (bool, error) {
	key := karmaKey{userID: entry.UserID, suggestionID: entry.SuggestionID, reason: entry.Reason}
	if _, exists := s.karmaKeys[key]; exists {
		return false, nil
	}
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	s.karmaKeys[key] = struct{}{}
	s.karmaEntries[entry.UserID] = append(s.karmaEntries[entry.UserID], entry)
	s.karmaScores[entry.UserID] += entry.Delta
	return true, nil
}

func (s *state) SetKarmaScore(_ context.Context, userID string, score int64) error {
	s.karmaScores[strings.TrimSpace(userID)] = score
	return nil
}

func (s *state) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := marshalEnvelope(envelope)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(envelope.EventID)
	if id == "" {
		id = uuid.NewString()
	}
	for _, existing := range s.outbox {
		if existing.ID == id {
			return nil
		}
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox = append(s.outbox, ports.OutboxMessage{
		ID:           id,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    createdAt,
	})
	return nil
}

var _ ports.Tx = (*state)(nil)
