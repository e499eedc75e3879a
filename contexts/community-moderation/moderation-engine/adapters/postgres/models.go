package postgresadapter

import (
	"strings"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"

	"gorm.io/datatypes"
)

type suggestionModel struct {
	SuggestionID string            `gorm:"column:suggestion_id;primaryKey"`
	TargetType   string            `gorm:"column:target_type;index:idx_moderation_suggestions_target"`
	TargetID     string            `gorm:"column:target_id;index:idx_moderation_suggestions_target"`
	Operation    string            `gorm:"column:operation"`
	Payload      datatypes.JSONMap `gorm:"column:payload"`
	AuthorID     string            `gorm:"column:author_id"`
	Status       string            `gorm:"column:status;index"`
	Resolution   string            `gorm:"column:resolution"`
	Version      int64             `gorm:"column:version"`
	CreatedAt    time.Time         `gorm:"column:created_at;index"`
	ResolvedAt   *time.Time        `gorm:"column:resolved_at"`
}

func (suggestionModel) TableName() string {
	return "moderation_suggestions"
}

func suggestionModelFromEntity(item entities.Suggestion) suggestionModel {
	return suggestionModel{
		SuggestionID: strings.TrimSpace(item.SuggestionID),
		TargetType:   string(item.TargetType),
		TargetID:     strings.TrimSpace(item.TargetID),
		Operation:    string(item.Operation),
		Payload:      datatypes.JSONMap(entities.CloneFields(item.Payload)),
		AuthorID:     strings.TrimSpace(item.AuthorID),
		Status:       string(item.Status),
		Resolution:   string(item.Resolution),
		Version:      item.Version,
		CreatedAt:    item.CreatedAt.UTC(),
		ResolvedAt:   normalizeOptionalTime(item.ResolvedAt),
	}
}

func (m suggestionModel) toEntity() entities.Suggestion {
	return entities.Suggestion{
		SuggestionID: m.SuggestionID,
		TargetType:   entities.TargetType(m.TargetType),
		TargetID:     m.TargetID,
		Operation:    entities.Operation(m.Operation),
		Payload:      entities.CloneFields(m.Payload),
		AuthorID:     m.AuthorID,
		Status:       entities.SuggestionStatus(m.Status),
		Resolution:   entities.Resolution(m.Resolution),
		Version:      m.Version,
		CreatedAt:    m.CreatedAt.UTC(),
		ResolvedAt:   normalizeOptionalTime(m.ResolvedAt),
	}
}

type endorsementModel struct {
	SuggestionID string    `gorm:"column:suggestion_id;primaryKey"`
	UserID       string    `gorm:"column:user_id;primaryKey"`
	Stance       string    `gorm:"column:stance"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (endorsementModel) TableName() string {
	return "moderation_endorsements"
}

func (m endorsementModel) toEntity() entities.Endorsement {
	return entities.Endorsement{
		SuggestionID: m.SuggestionID,
		UserID:       m.UserID,
		Stance:       entities.Stance(m.Stance),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type recordModel struct {
	TargetType  string            `gorm:"column:target_type;primaryKey;uniqueIndex:idx_moderation_records_active_identity,where:active AND identity_key <> ''"`
	RecordID    string            `gorm:"column:record_id;primaryKey"`
	Version     int64             `gorm:"column:version"`
	Active      bool              `gorm:"column:active"`
	Fields      datatypes.JSONMap `gorm:"column:fields"`
	IdentityKey string            `gorm:"column:identity_key;uniqueIndex:idx_moderation_records_active_identity,where:active AND identity_key <> ''"`
	CreatedAt   time.Time         `gorm:"column:created_at;index"`
	UpdatedAt   time.Time         `gorm:"column:updated_at"`
}

func (recordModel) TableName() string {
	return "moderation_records"
}

func (m recordModel) toEntity() entities.Record {
	return entities.Record{
		TargetType: entities.TargetType(m.TargetType),
		RecordID:   m.RecordID,
		Version:    m.Version,
		Active:     m.Active,
		Fields:     entities.CloneFields(m.Fields),
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

type recordChangeModel struct {
	ChangeID     string            `gorm:"column:change_id;primaryKey"`
	TargetType   string            `gorm:"column:target_type;uniqueIndex:idx_moderation_record_changes_sequence"`
	RecordID     string            `gorm:"column:record_id;uniqueIndex:idx_moderation_record_changes_sequence"`
	SuggestionID string            `gorm:"column:suggestion_id;uniqueIndex"`
	Operation    string            `gorm:"column:operation"`
	Payload      datatypes.JSONMap `gorm:"column:payload"`
	AuthorID     string            `gorm:"column:author_id"`
	Sequence     int64             `gorm:"column:sequence;uniqueIndex:idx_moderation_record_changes_sequence"`
	AppliedAt    time.Time         `gorm:"column:applied_at"`
}

func (recordChangeModel) TableName() string {
	return "moderation_record_changes"
}

func (m recordChangeModel) toEntity() entities.RecordChange {
	return entities.RecordChange{
		ChangeID:     m.ChangeID,
		TargetType:   entities.TargetType(m.TargetType),
		RecordID:     m.RecordID,
		SuggestionID: m.SuggestionID,
		Operation:    entities.Operation(m.Operation),
		Payload:      entities.CloneFields(m.Payload),
		AuthorID:     m.AuthorID,
		Sequence:     m.Sequence,
		AppliedAt:    m.AppliedAt.UTC(),
	}
}

type karmaEntryModel struct {
	EntryID      string    `gorm:"column:entry_id;primaryKey"`
	UserID       string    `gorm:"column:user_id;uniqueIndex:idx_moderation_karma_entry_key"`
	SuggestionID string    `gorm:"column:suggestion_id;uniqueIndex:idx_moderation_karma_entry_key"`
	Reason       string    `gorm:"column:reason;uniqueIndex:idx_moderation_karma_entry_key"`
	Delta        int64     `gorm:"column:delta"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (karmaEntryModel) TableName() string {
	return "moderation_karma_ledger"
}

func (m karmaEntryModel) toEntity() entities.KarmaEntry {
	return entities.KarmaEntry{
		EntryID:      m.EntryID,
		UserID:       m.UserID,
		SuggestionID: m.SuggestionID,
		Reason:       entities.KarmaReason(m.Reason),
		Delta:        m.Delta,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type karmaScoreModel struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Score     int64     `gorm:"column:score"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (karmaScoreModel) TableName() string {
	return "moderation_karma_scores"
}

type idempotencyModel struct {
	Key          string    `gorm:"column:key;primaryKey"`
	RequestHash  string    `gorm:"column:request_hash"`
	SuggestionID string    `gorm:"column:suggestion_id"`
	ExpiresAt    time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "moderation_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "moderation_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
