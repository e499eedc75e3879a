package entities

import (
	"sort"
	"time"
)

// Record is the visible state of a green record or tasting note.
type Record struct {
	TargetType TargetType
	RecordID   string
	Version    int64
	Active     bool
	Fields     map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RecordChange is one applied suggestion. Rows are never rewritten.
type RecordChange struct {
	ChangeID     string
	TargetType   TargetType
	RecordID     string
	SuggestionID string
	Operation    Operation
	Payload      map[string]any
	AuthorID     string
	Sequence     int64
	AppliedAt    time.Time
}

// Apply folds a single change on top of the record. A nil value in an
// update payload clears the field.
func (r Record) Apply(change RecordChange) Record {
	next := Record{
		TargetType: change.TargetType,
		RecordID:   change.RecordID,
		Version:    change.Sequence,
		Active:     r.Active,
		Fields:     CloneFields(r.Fields),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  change.AppliedAt.UTC(),
	}
	switch change.Operation {
	case OperationCreate:
		next.Fields = CloneFields(change.Payload)
		next.Active = true
		next.CreatedAt = change.AppliedAt.UTC()
	case OperationUpdate:
		for key, value := range change.Payload {
			if value == nil {
				delete(next.Fields, key)
				continue
			}
			next.Fields[key] = value
		}
	case OperationDelete:
		next.Active = false
	}
	return next
}

// Fold rebuilds a record from its change log in sequence order.
func Fold(changes []RecordChange) (Record, bool) {
	if len(changes) == 0 {
		return Record{}, false
	}
	ordered := append([]RecordChange(nil), changes...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})
	var record Record
	for _, change := range ordered {
		record = record.Apply(change)
	}
	return record, true
}

func CloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = value
	}
	return out
}
