package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "ceto/contexts/community-moderation/moderation-engine/application"
	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/ports"
	"ceto/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the gorm Data Store. Inside WithinTx the same type is bound
// to the transaction handle and serves as ports.Tx.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the moderation tables.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&suggestionModel{},
		&endorsementModel{},
		&recordModel{},
		&recordChangeModel{},
		&karmaEntryModel{},
		&karmaScoreModel{},
		&idempotencyModel{},
		&outboxModel{},
	)
}

func (r *Repository) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, logger: r.logger})
	})
}

func (r *Repository) GetSuggestion(ctx context.Context, suggestionID string) (entities.Suggestion, error) {
	return r.findSuggestion(r.db.WithContext(ctx), suggestionID)
}

func (r *Repository) LockSuggestion(ctx context.Context, suggestionID string) (entities.Suggestion, error) {
	return r.findSuggestion(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), suggestionID)
}

func (r *Repository) findSuggestion(db *gorm.DB, suggestionID string) (entities.Suggestion, error) {
	var row suggestionModel
	err := db.
		Where("suggestion_id = ?", strings.TrimSpace(suggestionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Suggestion{}, domainerrors.NotFound("suggestion %s", strings.TrimSpace(suggestionID))
		}
		r.logError("moderation_suggestion_load_failed", err, "suggestion_id", suggestionID)
		return entities.Suggestion{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListSuggestions(ctx context.Context, filter ports.SuggestionFilter) ([]entities.Suggestion, error) {
	tx := r.db.WithContext(ctx).Model(&suggestionModel{})
	if filter.TargetType != "" {
		tx = tx.Where("target_type = ?", string(filter.TargetType))
	}
	if strings.TrimSpace(filter.TargetID) != "" {
		tx = tx.Where("target_id = ?", strings.TrimSpace(filter.TargetID))
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}
	if !filter.CreatedBefore.IsZero() {
		tx = tx.Where("created_at <= ?", filter.CreatedBefore.UTC())
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var rows []suggestionModel
	if err := tx.Order("created_at ASC").Order("suggestion_id ASC").Find(&rows).Error; err != nil {
		r.logError("moderation_suggestion_list_failed", err)
		return nil, err
	}
	items := make([]entities.Suggestion, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreateSuggestion(ctx context.Context, suggestion entities.Suggestion) error {
	row := suggestionModelFromEntity(suggestion)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.Duplicate("suggestion %s", row.SuggestionID)
		}
		r.logError("moderation_suggestion_create_failed", err, "suggestion_id", row.SuggestionID)
		return err
	}
	return nil
}

// TransitionSuggestion is guarded by status and version in the WHERE clause,
// so a row resolved by another transaction is never overwritten.
func (r *Repository) TransitionSuggestion(ctx context.Context, suggestion entities.Suggestion, fromVersion int64) error {
	id := strings.TrimSpace(suggestion.SuggestionID)
	result := r.db.WithContext(ctx).
		Model(&suggestionModel{}).
		Where("suggestion_id = ? AND status = ? AND version = ?", id, string(entities.SuggestionStatusPending), fromVersion).
		Updates(map[string]any{
			"status":      string(suggestion.Status),
			"resolution":  string(suggestion.Resolution),
			"version":     suggestion.Version,
			"resolved_at": normalizeOptionalTime(suggestion.ResolvedAt),
		})
	if result.Error != nil {
		r.logError("moderation_suggestion_transition_failed", result.Error, "suggestion_id", id)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.InvalidState("suggestion %s changed concurrently", id)
	}
	return nil
}

func (r *Repository) GetEndorsement(ctx context.Context, suggestionID string, userID string) (entities.Endorsement, bool, error) {
	var row endorsementModel
	err := r.db.WithContext(ctx).
		Where("suggestion_id = ? AND user_id = ?", strings.TrimSpace(suggestionID), strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Endorsement{}, false, nil
		}
		return entities.Endorsement{}, false, err
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListEndorsements(ctx context.Context, suggestionID string) ([]entities.Endorsement, error) {
	var rows []endorsementModel
	if err := r.db.WithContext(ctx).
		Where("suggestion_id = ?", strings.TrimSpace(suggestionID)).
		Order("created_at ASC").
		Order("user_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Endorsement, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreateEndorsement(ctx context.Context, endorsement entities.Endorsement) error {
	row := endorsementModel{
		SuggestionID: strings.TrimSpace(endorsement.SuggestionID),
		UserID:       strings.TrimSpace(endorsement.UserID),
		Stance:       string(endorsement.Stance),
		CreatedAt:    endorsement.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.Duplicate("user %s already took a stance on suggestion %s", row.UserID, row.SuggestionID)
		}
		r.logError("moderation_endorsement_create_failed", err, "suggestion_id", row.SuggestionID, "user_id", row.UserID)
		return err
	}
	return nil
}

func (r *Repository) DeleteEndorsement(ctx context.Context, suggestionID string, userID string) error {
	suggestionID = strings.TrimSpace(suggestionID)
	userID = strings.TrimSpace(userID)
	result := r.db.WithContext(ctx).
		Where("suggestion_id = ? AND user_id = ?", suggestionID, userID).
		Delete(&endorsementModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.NotFound("endorsement by %s on suggestion %s", userID, suggestionID)
	}
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, targetType entities.TargetType, recordID string) (entities.Record, error) {
	return r.findRecord(r.db.WithContext(ctx), targetType, recordID)
}

// LockRecord takes the row lock acceptance needs before folding a change on
// top of the record, so concurrent acceptances on one record serialise.
func (r *Repository) LockRecord(ctx context.Context, targetType entities.TargetType, recordID string) (entities.Record, error) {
	return r.findRecord(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), targetType, recordID)
}

func (r *Repository) findRecord(db *gorm.DB, targetType entities.TargetType, recordID string) (entities.Record, error) {
	var row recordModel
	err := db.
		Where("target_type = ? AND record_id = ?", string(targetType), strings.TrimSpace(recordID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Record{}, domainerrors.NotFound("%s %s", targetType, strings.TrimSpace(recordID))
		}
		r.logError("moderation_record_load_failed", err, "target_type", string(targetType), "record_id", recordID)
		return entities.Record{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListRecords(ctx context.Context, filter ports.RecordFilter) ([]entities.Record, error) {
	tx := r.db.WithContext(ctx).Model(&recordModel{})
	if filter.TargetType != "" {
		tx = tx.Where("target_type = ?", string(filter.TargetType))
	}
	if filter.ActiveOnly {
		tx = tx.Where("active = ?", true)
	}
	if filter.Field != "" {
		tx = tx.Where(datatypes.JSONQuery("fields").Equals(filter.Value, filter.Field))
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var rows []recordModel
	if err := tx.Order("created_at DESC").Order("record_id ASC").Find(&rows).Error; err != nil {
		r.logError("moderation_record_list_failed", err, "target_type", string(filter.TargetType))
		return nil, err
	}
	items := make([]entities.Record, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) FindActiveRecordByIdentity(
	ctx context.Context,
	targetType entities.TargetType,
	identityKey string,
) (entities.Record, bool, error) {
	if strings.TrimSpace(identityKey) == "" {
		return entities.Record{}, false, nil
	}
	var row recordModel
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND identity_key = ? AND active = ?", string(targetType), identityKey, true).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Record{}, false, nil
		}
		return entities.Record{}, false, err
	}
	return row.toEntity(), true, nil
}

// SaveRecord inserts version 1 and otherwise updates only the row at the
// previous version. The partial unique index on active identity keys turns
// a lost create race into ErrRecordConflict.
func (r *Repository) SaveRecord(ctx context.Context, record entities.Record, identityKey string) error {
	row := recordModel{
		TargetType:  string(record.TargetType),
		RecordID:    strings.TrimSpace(record.RecordID),
		Version:     record.Version,
		Active:      record.Active,
		Fields:      datatypes.JSONMap(entities.CloneFields(record.Fields)),
		IdentityKey: identityKey,
		CreatedAt:   record.CreatedAt.UTC(),
		UpdatedAt:   record.UpdatedAt.UTC(),
	}
	if row.Version <= 1 {
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.RecordConflict("%s %s", row.TargetType, row.RecordID)
			}
			r.logError("moderation_record_save_failed", err, "target_type", row.TargetType, "record_id", row.RecordID)
			return err
		}
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&recordModel{}).
		Where("target_type = ? AND record_id = ? AND version = ?", row.TargetType, row.RecordID, row.Version-1).
		Updates(map[string]any{
			"version":      row.Version,
			"active":       row.Active,
			"fields":       row.Fields,
			"identity_key": row.IdentityKey,
			"updated_at":   row.UpdatedAt,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domainerrors.RecordConflict("%s %s", row.TargetType, row.RecordID)
		}
		r.logError("moderation_record_save_failed", result.Error, "target_type", row.TargetType, "record_id", row.RecordID)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.InvalidState("%s %s changed concurrently", row.TargetType, row.RecordID)
	}
	return nil
}

func (r *Repository) ListRecordChanges(
	ctx context.Context,
	targetType entities.TargetType,
	recordID string,
) ([]entities.RecordChange, error) {
	var rows []recordChangeModel
	if err := r.db.WithContext(ctx).
		Where("target_type = ? AND record_id = ?", string(targetType), strings.TrimSpace(recordID)).
		Order("sequence ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.RecordChange, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendRecordChange(ctx context.Context, change entities.RecordChange) (bool, error) {
	row := recordChangeModel{
		ChangeID:     strings.TrimSpace(change.ChangeID),
		TargetType:   string(change.TargetType),
		RecordID:     strings.TrimSpace(change.RecordID),
		SuggestionID: strings.TrimSpace(change.SuggestionID),
		Operation:    string(change.Operation),
		Payload:      datatypes.JSONMap(entities.CloneFields(change.Payload)),
		AuthorID:     strings.TrimSpace(change.AuthorID),
		Sequence:     change.Sequence,
		AppliedAt:    change.AppliedAt.UTC(),
	}
	if row.ChangeID == "" {
		row.ChangeID = uuid.NewString()
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "suggestion_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, domainerrors.RecordConflict("%s %s already has change %d", row.TargetType, row.RecordID, row.Sequence)
		}
		r.logError("moderation_record_change_append_failed", result.Error, "suggestion_id", row.SuggestionID)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) GetKarmaScore(ctx context.Context, userID string) (int64, error) {
	var row karmaScoreModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Score, nil
}

func (r *Repository) ListKarmaEntries(ctx context.Context, userID string) ([]entities.KarmaEntry, error) {
	var rows []karmaEntryModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at ASC").
		Order("entry_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.KarmaEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SumKarmaEntries(ctx context.Context, userID string) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&karmaEntryModel{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("user_id = ?", strings.TrimSpace(userID)).
		Scan(&total).
		Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *Repository) ListKarmaUsers(ctx context.Context) ([]string, error) {
	var fromLedger, fromScores []string
	if err := r.db.WithContext(ctx).Model(&karmaEntryModel{}).Distinct().Pluck("user_id", &fromLedger).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&karmaScoreModel{}).Pluck("user_id", &fromScores).Error; err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(fromLedger)+len(fromScores))
	users := make([]string, 0, len(fromLedger)+len(fromScores))
	for _, userID := range append(fromLedger, fromScores...) {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		users = append(users, userID)
	}
	sort.Strings(users)
	return users, nil
}

// AppendKarmaEntry inserts the ledger line and, only when it was new, moves
// the score projection in the same transaction.
func (r *Repository) AppendKarmaEntry(ctx context.Context, entry entities.KarmaEntry) (bool, error) {
	row := karmaEntryModel{
		EntryID:      strings.TrimSpace(entry.EntryID),
		UserID:       strings.TrimSpace(entry.UserID),
		SuggestionID: strings.TrimSpace(entry.SuggestionID),
		Reason:       string(entry.Reason),
		Delta:        entry.Delta,
		CreatedAt:    entry.CreatedAt.UTC(),
	}
	if row.EntryID == "" {
		row.EntryID = uuid.NewString()
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "suggestion_id"}, {Name: "reason"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		r.logError("moderation_karma_append_failed", result.Error, "user_id", row.UserID, "suggestion_id", row.SuggestionID)
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	score := karmaScoreModel{UserID: row.UserID, Score: row.Delta, UpdatedAt: row.CreatedAt}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"score":      gorm.Expr("moderation_karma_scores.score + ?", row.Delta),
				"updated_at": row.CreatedAt,
			}),
		}).
		Create(&score).
		Error; err != nil {
		r.logError("moderation_karma_projection_failed", err, "user_id", row.UserID)
		return false, err
	}
	return true, nil
}

func (r *Repository) SetKarmaScore(ctx context.Context, userID string, score int64) error {
	row := karmaScoreModel{UserID: strings.TrimSpace(userID), Score: score, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).
		Create(&row).
		Error
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}

	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return ports.IdempotencyRecord{}, false, err
		}
		return ports.IdempotencyRecord{}, false, nil
	}

	return ports.IdempotencyRecord{
		Key:          row.Key,
		RequestHash:  row.RequestHash,
		SuggestionID: row.SuggestionID,
		ExpiresAt:    row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:          strings.TrimSpace(record.Key),
		RequestHash:  record.RequestHash,
		SuggestionID: strings.TrimSpace(record.SuggestionID),
		ExpiresAt:    record.ExpiresAt.UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).
		Error; err != nil {
		return err
	}
	if existing.RequestHash != row.RequestHash || existing.SuggestionID != row.SuggestionID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		r.logError("moderation_outbox_append_failed", result.Error, "event_type", row.EventType)
		return result.Error
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Order("outbox_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			ID:           row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			Status:       row.Status,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.NotFound("outbox message %s", strings.TrimSpace(outboxID))
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) {
	fields := append([]any{
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
		"error", err.Error(),
	}, attrs...)
	r.logger.Error("moderation repository operation failed", fields...)
}

// isUniqueViolation accepts both the raw postgres code and gorm's translated
// error, which is what other dialects report with TranslateError enabled.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.Tx = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.Clock = SystemClock{}
var _ ports.IDGenerator = UUIDGenerator{}
