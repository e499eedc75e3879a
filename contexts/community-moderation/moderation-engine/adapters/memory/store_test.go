package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

func TestWithinTxDiscardsStateOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx ports.Tx) error {
		if err := tx.CreateSuggestion(ctx, entities.Suggestion{SuggestionID: "s1", Status: entities.SuggestionStatusPending}); err != nil {
			return err
		}
		if _, err := tx.AppendKarmaEntry(ctx, entities.KarmaEntry{UserID: "alice", SuggestionID: "s1", Reason: entities.KarmaReasonAuthorAccept, Delta: 10}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.GetSuggestion(ctx, "s1"); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected rolled back suggestion, got %v", err)
	}
	if score, _ := store.GetKarmaScore(ctx, "alice"); score != 0 {
		t.Fatalf("expected rolled back karma, got %d", score)
	}
}

func TestKarmaLedgerIsUniquePerReason(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	entry := entities.KarmaEntry{UserID: "alice", SuggestionID: "s1", Reason: entities.KarmaReasonAuthorAccept, Delta: 10}
	for i, want := range []bool{true, false} {
		err := store.WithinTx(ctx, func(tx ports.Tx) error {
			inserted, err := tx.AppendKarmaEntry(ctx, entry)
			if err != nil {
				return err
			}
			if inserted != want {
				t.Fatalf("attempt %d: expected inserted=%v", i, want)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	score, _ := store.GetKarmaScore(ctx, "alice")
	sum, _ := store.SumKarmaEntries(ctx, "alice")
	if score != 10 || sum != 10 {
		t.Fatalf("expected score and ledger 10, got %d and %d", score, sum)
	}
}

func TestTransitionGuardsVersion(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	store.SetSuggestion(entities.Suggestion{SuggestionID: "s1", Status: entities.SuggestionStatusPending, Version: 1})

	next := entities.Suggestion{SuggestionID: "s1", Status: entities.SuggestionStatusAccepted, Version: 2}
	err := store.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.TransitionSuggestion(ctx, next, 3)
	})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected stale version to fail, got %v", err)
	}
	if err := store.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.TransitionSuggestion(ctx, next, 1)
	}); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Put(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h", SuggestionID: "s1", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if record, found, err := store.Get(ctx, "k1", now); err != nil || !found || record.SuggestionID != "s1" {
		t.Fatalf("expected live record, got %+v %v %v", record, found, err)
	}
	if _, found, _ := store.Get(ctx, "k1", now.Add(2*time.Hour)); found {
		t.Fatalf("expected expired record to be ignored")
	}
}

func TestOutboxPublishMarksMessage(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "e1", EventType: "suggestion.submitted", OccurredAt: time.Now()})
	}); err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending message, got %d, %v", len(pending), err)
	}
	if err := store.MarkOutboxPublished(ctx, "e1", time.Now()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, _ = store.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending messages, got %d", len(pending))
	}
}

func saveRecord(ctx context.Context, store *Store, record entities.Record, identityKey string) error {
	return store.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.SaveRecord(ctx, record, identityKey)
	})
}

func TestSaveRecordGuardsVersionAndIdentity(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	green := entities.Record{TargetType: entities.TargetGreenRecord, RecordID: "rec-1", Version: 1, Active: true}

	if err := saveRecord(ctx, store, green, "k1"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	twin := green
	twin.RecordID = "rec-2"
	if err := saveRecord(ctx, store, twin, "k1"); !errors.Is(err, domainerrors.ErrRecordConflict) {
		t.Fatalf("expected identity conflict, got %v", err)
	}

	green.Version = 2
	if err := saveRecord(ctx, store, green, "k1"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := saveRecord(ctx, store, green, "k1"); !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected stale version rejected, got %v", err)
	}

	green.Version = 3
	green.Active = false
	if err := saveRecord(ctx, store, green, "k1"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if err := saveRecord(ctx, store, twin, "k1"); err != nil {
		t.Fatalf("expected identity free after removal, got %v", err)
	}

	err := store.WithinTx(ctx, func(tx ports.Tx) error {
		locked, err := tx.LockRecord(ctx, entities.TargetGreenRecord, "rec-1")
		if err != nil {
			return err
		}
		if locked.Version != 3 {
			t.Fatalf("expected locked version 3, got %d", locked.Version)
		}
		_, err = tx.LockRecord(ctx, entities.TargetGreenRecord, "missing")
		return err
	})
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found for missing record, got %v", err)
	}
}

func TestRecordChangeSequenceIsUnique(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	change := entities.RecordChange{TargetType: entities.TargetGreenRecord, RecordID: "rec-1", SuggestionID: "s1", Operation: entities.OperationCreate, Sequence: 1}

	err := store.WithinTx(ctx, func(tx ports.Tx) error {
		if inserted, err := tx.AppendRecordChange(ctx, change); err != nil || !inserted {
			t.Fatalf("expected first change inserted, got %v, %v", inserted, err)
		}
		other := change
		other.SuggestionID = "s2"
		_, err := tx.AppendRecordChange(ctx, other)
		return err
	})
	if !errors.Is(err, domainerrors.ErrRecordConflict) {
		t.Fatalf("expected sequence conflict, got %v", err)
	}
	changes, _ := store.ListRecordChanges(ctx, entities.TargetGreenRecord, "rec-1")
	if len(changes) != 0 {
		t.Fatalf("expected failed unit of work to leave no changes, got %d", len(changes))
	}
}

func TestListRecordsNewestFirstWithFieldFilter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.SetRecord(entities.Record{TargetType: entities.TargetGreenRecord, RecordID: "g1", CreatedAt: base}, "a")
	store.SetRecord(entities.Record{TargetType: entities.TargetGreenRecord, RecordID: "g2", CreatedAt: base.Add(time.Hour)}, "b")
	for i, parent := range []string{"g1", "g2", "g1"} {
		store.SetRecord(entities.Record{
			TargetType: entities.TargetTastingNote,
			RecordID:   "n" + string(rune('1'+i)),
			Fields:     map[string]any{"green_record_id": parent, "notes": "stone fruit"},
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}, "")
	}

	greens, err := store.ListRecords(ctx, ports.RecordFilter{TargetType: entities.TargetGreenRecord, ActiveOnly: true})
	if err != nil || len(greens) != 2 || greens[0].RecordID != "g2" {
		t.Fatalf("expected newest green first, got %+v, %v", greens, err)
	}
	notes, err := store.ListRecords(ctx, ports.RecordFilter{
		TargetType: entities.TargetTastingNote,
		Field:      "green_record_id",
		Value:      "g1",
	})
	if err != nil || len(notes) != 2 || notes[0].RecordID != "n3" || notes[1].RecordID != "n1" {
		t.Fatalf("expected g1 notes newest first, got %+v, %v", notes, err)
	}
	limited, _ := store.ListRecords(ctx, ports.RecordFilter{TargetType: entities.TargetTastingNote, Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("expected limit applied, got %d", len(limited))
	}
}
