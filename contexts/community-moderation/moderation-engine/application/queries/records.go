package queries

import (
	"context"
	"strings"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

const (
	defaultRecordListLimit = 50
	maxRecordListLimit     = 200
)

type RecordQueries struct {
	Records ports.RecordReader
}

// List browses records of one type, newest first. Removed records are left
// out unless activeOnly is false.
func (q RecordQueries) List(ctx context.Context, targetType string, activeOnly bool, limit int) ([]entities.Record, error) {
	parsedType, ok := entities.ParseTargetType(targetType)
	if !ok {
		return nil, domainerrors.Field("target_type", "must be green_record or tasting_note")
	}
	limit, err := recordListLimit(limit)
	if err != nil {
		return nil, err
	}
	return q.Records.ListRecords(ctx, ports.RecordFilter{
		TargetType: parsedType,
		ActiveOnly: activeOnly,
		Limit:      limit,
	})
}

// TastingNotes lists the live tasting notes attached to a green record,
// newest first.
func (q RecordQueries) TastingNotes(ctx context.Context, greenRecordID string, limit int) ([]entities.Record, error) {
	_, id, err := parseRecordRef(string(entities.TargetGreenRecord), greenRecordID)
	if err != nil {
		return nil, err
	}
	limit, err = recordListLimit(limit)
	if err != nil {
		return nil, err
	}
	if _, err := q.Records.GetRecord(ctx, entities.TargetGreenRecord, id); err != nil {
		return nil, err
	}
	return q.Records.ListRecords(ctx, ports.RecordFilter{
		TargetType: entities.TargetTastingNote,
		ActiveOnly: true,
		Field:      "green_record_id",
		Value:      id,
		Limit:      limit,
	})
}

// Get returns the current visible state. Removed records are still returned
// with Active false so callers can tell removal from absence.
func (q RecordQueries) Get(ctx context.Context, targetType string, recordID string) (entities.Record, error) {
	parsedType, id, err := parseRecordRef(targetType, recordID)
	if err != nil {
		return entities.Record{}, err
	}
	return q.Records.GetRecord(ctx, parsedType, id)
}

func (q RecordQueries) History(ctx context.Context, targetType string, recordID string) ([]entities.RecordChange, error) {
	parsedType, id, err := parseRecordRef(targetType, recordID)
	if err != nil {
		return nil, err
	}
	if _, err := q.Records.GetRecord(ctx, parsedType, id); err != nil {
		return nil, err
	}
	return q.Records.ListRecordChanges(ctx, parsedType, id)
}

func parseRecordRef(targetType string, recordID string) (entities.TargetType, string, error) {
	parsedType, ok := entities.ParseTargetType(targetType)
	if !ok {
		return "", "", domainerrors.Field("target_type", "must be green_record or tasting_note")
	}
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return "", "", domainerrors.Field("record_id", "is required")
	}
	return parsedType, recordID, nil
}

func recordListLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, domainerrors.Field("limit", "must not be negative")
	case limit == 0:
		return defaultRecordListLimit, nil
	case limit > maxRecordListLimit:
		return maxRecordListLimit, nil
	}
	return limit, nil
}
