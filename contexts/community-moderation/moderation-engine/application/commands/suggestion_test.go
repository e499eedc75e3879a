package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/adapters/memory"
	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newUseCase(store *memory.Store) SuggestionUseCase {
	return SuggestionUseCase{
		Repo:          store,
		Idempotency:   store,
		Threshold:     policy.FixedThreshold{Endorsements: 3},
		Karma:         policy.DefaultKarmaRules(),
		SuggestionTTL: 14 * 24 * time.Hour,
		Clock:         fixedClock{now: testNow},
		IDGen:         store,
	}
}

func greenRecordPayload() map[string]any {
	return map[string]any{
		"name":     "Kochere Washed",
		"importer": "Sweet Maria's",
		"country":  "Ethiopia",
		"lot":      "K-17",
	}
}

func submitCreate(t *testing.T, uc SuggestionUseCase, author string) entities.Suggestion {
	t.Helper()
	result, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID:   author,
		TargetType: "green_record",
		Operation:  "create",
		Payload:    greenRecordPayload(),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return result.Suggestion
}

func endorse(t *testing.T, uc SuggestionUseCase, suggestionID string, userID string) StanceResult {
	t.Helper()
	result, err := uc.Endorse(context.Background(), StanceCommand{SuggestionID: suggestionID, UserID: userID})
	if err != nil {
		t.Fatalf("endorse by %s failed: %v", userID, err)
	}
	return result
}

func karmaOf(t *testing.T, store *memory.Store, userID string) int64 {
	t.Helper()
	score, err := store.GetKarmaScore(context.Background(), userID)
	if err != nil {
		t.Fatalf("karma lookup failed: %v", err)
	}
	return score
}

func TestEndorseAcceptsAtThresholdAndAwardsKarma(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	suggestion := submitCreate(t, uc, "alice")

	first := endorse(t, uc, suggestion.SuggestionID, "bob")
	if first.Suggestion.Status != entities.SuggestionStatusPending || first.Counts.Support != 1 || first.Required != 3 {
		t.Fatalf("unexpected state after first endorsement: %+v", first)
	}
	endorse(t, uc, suggestion.SuggestionID, "carol")
	final := endorse(t, uc, suggestion.SuggestionID, "dave")

	if final.Suggestion.Status != entities.SuggestionStatusAccepted {
		t.Fatalf("expected accepted, got %s", final.Suggestion.Status)
	}
	if final.Suggestion.Resolution != entities.ResolutionThreshold {
		t.Fatalf("expected threshold resolution, got %s", final.Suggestion.Resolution)
	}

	record, err := store.GetRecord(context.Background(), entities.TargetGreenRecord, suggestion.TargetID)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if !record.Active || record.Version != 1 || record.Fields["name"] != "Kochere Washed" {
		t.Fatalf("unexpected record after accept: %+v", record)
	}

	if got := karmaOf(t, store, "alice"); got != 10 {
		t.Fatalf("expected author karma 10, got %d", got)
	}
	for _, user := range []string{"bob", "carol", "dave"} {
		if got := karmaOf(t, store, user); got != 2 {
			t.Fatalf("expected endorser %s karma 2, got %d", user, got)
		}
	}
}

func TestEndorseRejectsSelfAndDuplicateStances(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	suggestion := submitCreate(t, uc, "alice")

	_, err := uc.Endorse(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: "alice"})
	if !errors.Is(err, domainerrors.ErrSelfEndorsement) {
		t.Fatalf("expected self endorsement error, got %v", err)
	}

	endorse(t, uc, suggestion.SuggestionID, "bob")
	_, err = uc.Endorse(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: "bob"})
	if !errors.Is(err, domainerrors.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	_, err = uc.Object(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: "bob"})
	if !errors.Is(err, domainerrors.ErrDuplicate) {
		t.Fatalf("expected duplicate error for opposite stance, got %v", err)
	}

	_, err = uc.Endorse(context.Background(), StanceCommand{SuggestionID: "missing", UserID: "bob"})
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentEndorsementsAcceptExactlyOnce(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	suggestion := submitCreate(t, uc, "alice")

	users := []string{"u1", "u2", "u3", "u4", "u5", "u6"}
	var wg sync.WaitGroup
	errs := make(chan error, len(users))
	for _, user := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := uc.Endorse(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: userID})
			if err != nil && !errors.Is(err, domainerrors.ErrInvalidState) {
				errs <- err
			}
		}(user)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected endorse error: %v", err)
	}

	current, err := store.GetSuggestion(context.Background(), suggestion.SuggestionID)
	if err != nil {
		t.Fatalf("suggestion lookup failed: %v", err)
	}
	if current.Status != entities.SuggestionStatusAccepted {
		t.Fatalf("expected accepted, got %s", current.Status)
	}
	changes, err := store.ListRecordChanges(context.Background(), entities.TargetGreenRecord, suggestion.TargetID)
	if err != nil {
		t.Fatalf("history lookup failed: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected one applied change, got %d", len(changes))
	}
	if got := karmaOf(t, store, "alice"); got != 10 {
		t.Fatalf("expected author karma awarded once, got %d", got)
	}
}

func TestRetractEndorsementKeepsSuggestionPending(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	suggestion := submitCreate(t, uc, "alice")
	endorse(t, uc, suggestion.SuggestionID, "bob")
	endorse(t, uc, suggestion.SuggestionID, "carol")

	result, err := uc.RetractEndorsement(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: "bob"})
	if err != nil {
		t.Fatalf("retract failed: %v", err)
	}
	if result.Counts.Support != 1 || result.Suggestion.Status != entities.SuggestionStatusPending {
		t.Fatalf("unexpected state after retract: %+v", result)
	}

	_, err = uc.RetractEndorsement(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: "bob"})
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found on second retract, got %v", err)
	}

	endorse(t, uc, suggestion.SuggestionID, "dave")
	final := endorse(t, uc, suggestion.SuggestionID, "erin")
	if final.Suggestion.Status != entities.SuggestionStatusAccepted {
		t.Fatalf("expected accepted once threshold reached again, got %s", final.Suggestion.Status)
	}
	if got := karmaOf(t, store, "bob"); got != 0 {
		t.Fatalf("retracted endorser must not be rewarded, got %d", got)
	}

	_, err = uc.RetractEndorsement(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: "dave"})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state after accept, got %v", err)
	}
}

func TestResolveExpiredPenalisesAuthorOnly(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	suggestion := submitCreate(t, uc, "alice")
	endorse(t, uc, suggestion.SuggestionID, "bob")

	count, err := uc.ResolveExpired(context.Background(), testNow.Add(13*24*time.Hour))
	if err != nil {
		t.Fatalf("early resolve failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing expired yet, got %d", count)
	}

	count, err = uc.ResolveExpired(context.Background(), testNow.Add(15*24*time.Hour))
	if err != nil {
		t.Fatalf("resolve expired failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one expired suggestion, got %d", count)
	}
	current, err := store.GetSuggestion(context.Background(), suggestion.SuggestionID)
	if err != nil {
		t.Fatalf("suggestion lookup failed: %v", err)
	}
	if current.Status != entities.SuggestionStatusRejected || current.Resolution != entities.ResolutionExpired {
		t.Fatalf("unexpected state after expiry: %s/%s", current.Status, current.Resolution)
	}
	if got := karmaOf(t, store, "alice"); got != -5 {
		t.Fatalf("expected author karma -5, got %d", got)
	}
	if got := karmaOf(t, store, "bob"); got != 0 {
		t.Fatalf("endorser karma must be untouched, got %d", got)
	}

	count, err = uc.ResolveExpired(context.Background(), testNow.Add(16*24*time.Hour))
	if err != nil || count != 0 {
		t.Fatalf("expected second sweep to be a no-op, got %d, %v", count, err)
	}
}

func TestObjectionsRejectOnlyWithCommunityThreshold(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	suggestion := submitCreate(t, uc, "alice")
	for _, user := range []string{"bob", "carol"} {
		result, err := uc.Object(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: user})
		if err != nil {
			t.Fatalf("object failed: %v", err)
		}
		if result.Suggestion.Status != entities.SuggestionStatusPending {
			t.Fatalf("objections must not resolve without a reject threshold")
		}
	}

	store = memory.NewStore()
	uc = newUseCase(store)
	uc.RejectThreshold = 2
	suggestion = submitCreate(t, uc, "alice")
	if _, err := uc.Object(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: "bob"}); err != nil {
		t.Fatalf("object failed: %v", err)
	}
	result, err := uc.Object(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: "carol"})
	if err != nil {
		t.Fatalf("object failed: %v", err)
	}
	if result.Suggestion.Status != entities.SuggestionStatusRejected || result.Suggestion.Resolution != entities.ResolutionCommunity {
		t.Fatalf("expected community rejection, got %s/%s", result.Suggestion.Status, result.Suggestion.Resolution)
	}
	if got := karmaOf(t, store, "alice"); got != -5 {
		t.Fatalf("expected author karma -5, got %d", got)
	}
}

func TestWithdrawRequiresAuthorAndPendingSuggestion(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	suggestion := submitCreate(t, uc, "alice")

	_, err := uc.Withdraw(context.Background(), WithdrawCommand{SuggestionID: suggestion.SuggestionID, UserID: "bob"})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	withdrawn, err := uc.Withdraw(context.Background(), WithdrawCommand{SuggestionID: suggestion.SuggestionID, UserID: "alice"})
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if withdrawn.Status != entities.SuggestionStatusWithdrawn || withdrawn.ResolvedAt == nil {
		t.Fatalf("unexpected withdrawn suggestion: %+v", withdrawn)
	}

	_, err = uc.Withdraw(context.Background(), WithdrawCommand{SuggestionID: suggestion.SuggestionID, UserID: "alice"})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	_, err = uc.Endorse(context.Background(), StanceCommand{SuggestionID: suggestion.SuggestionID, UserID: "bob"})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state on endorse after withdraw, got %v", err)
	}
}

func TestApplyAcceptedIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	uc.Threshold = policy.FixedThreshold{Endorsements: 1}
	suggestion := submitCreate(t, uc, "alice")
	endorse(t, uc, suggestion.SuggestionID, "bob")

	applied, err := uc.ApplyAccepted(context.Background(), suggestion.SuggestionID)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if applied {
		t.Fatalf("expected repeated apply to be a no-op")
	}
	record, err := store.GetRecord(context.Background(), entities.TargetGreenRecord, suggestion.TargetID)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if record.Version != 1 {
		t.Fatalf("expected record version 1, got %d", record.Version)
	}

	pending := submitCreateWithLot(t, uc, "carol", "K-99")
	_, err = uc.ApplyAccepted(context.Background(), pending.SuggestionID)
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state for pending suggestion, got %v", err)
	}
}

func submitCreateWithLot(t *testing.T, uc SuggestionUseCase, author string, lot string) entities.Suggestion {
	t.Helper()
	payload := greenRecordPayload()
	payload["lot"] = lot
	result, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID:   author,
		TargetType: "green_record",
		Operation:  "create",
		Payload:    payload,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return result.Suggestion
}

func TestSubmitValidatesInput(t *testing.T) {
	uc := newUseCase(memory.NewStore())
	cases := []struct {
		name  string
		cmd   SubmitCommand
		field string
	}{
		{
			name:  "missing author",
			cmd:   SubmitCommand{TargetType: "green_record", Operation: "create", Payload: greenRecordPayload()},
			field: "author_id",
		},
		{
			name:  "unknown target",
			cmd:   SubmitCommand{AuthorID: "alice", TargetType: "roast_profile", Operation: "create", Payload: greenRecordPayload()},
			field: "target_type",
		},
		{
			name:  "create with target id",
			cmd:   SubmitCommand{AuthorID: "alice", TargetType: "green_record", TargetID: "r1", Operation: "create", Payload: greenRecordPayload()},
			field: "target_id",
		},
		{
			name:  "missing required field",
			cmd:   SubmitCommand{AuthorID: "alice", TargetType: "green_record", Operation: "create", Payload: map[string]any{"name": "x", "importer": "y"}},
			field: "country",
		},
		{
			name:  "unknown field",
			cmd:   SubmitCommand{AuthorID: "alice", TargetType: "green_record", TargetID: "r1", Operation: "update", Payload: map[string]any{"roaster": "z"}},
			field: "roaster",
		},
		{
			name:  "delete with payload",
			cmd:   SubmitCommand{AuthorID: "alice", TargetType: "green_record", TargetID: "r1", Operation: "delete", Payload: map[string]any{"name": "x"}},
			field: "payload",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Submit(context.Background(), tc.cmd)
			var fieldErr *domainerrors.FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected field error, got %v", err)
			}
			if fieldErr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, fieldErr.Field)
			}
			if !errors.Is(err, domainerrors.ErrValidation) {
				t.Fatalf("expected validation sentinel, got %v", err)
			}
		})
	}
}

func TestSubmitCreateConflictsWithExistingIdentity(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	uc.Threshold = policy.FixedThreshold{Endorsements: 1}
	first := submitCreate(t, uc, "alice")
	endorse(t, uc, first.SuggestionID, "bob")

	payload := greenRecordPayload()
	payload["name"] = "  kochere   WASHED "
	_, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID:   "carol",
		TargetType: "green_record",
		Operation:  "create",
		Payload:    payload,
	})
	if !errors.Is(err, domainerrors.ErrRecordConflict) {
		t.Fatalf("expected record conflict, got %v", err)
	}
}

func TestAcceptRejectsCreateThatLostIdentityRace(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	uc.Threshold = policy.FixedThreshold{Endorsements: 1}
	first := submitCreate(t, uc, "alice")
	second := submitCreate(t, uc, "carol")

	endorse(t, uc, first.SuggestionID, "bob")
	result := endorse(t, uc, second.SuggestionID, "bob")
	if result.Suggestion.Status != entities.SuggestionStatusRejected || result.Suggestion.Resolution != entities.ResolutionConflict {
		t.Fatalf("expected conflict rejection, got %s/%s", result.Suggestion.Status, result.Suggestion.Resolution)
	}
	if got := karmaOf(t, store, "carol"); got != 0 {
		t.Fatalf("conflict rejection must not penalise the author, got %d", got)
	}
}

func TestSubmitIdempotencyReplayAndConflict(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	cmd := SubmitCommand{
		AuthorID:       "alice",
		IdempotencyKey: "idem-1",
		TargetType:     "green_record",
		Operation:      "create",
		Payload:        greenRecordPayload(),
	}

	first, err := uc.Submit(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	second, err := uc.Submit(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replayed submit failed: %v", err)
	}
	if !second.Replayed || second.Suggestion.SuggestionID != first.Suggestion.SuggestionID {
		t.Fatalf("expected replay of %s, got %+v", first.Suggestion.SuggestionID, second)
	}

	cmd.Payload = map[string]any{"name": "Other", "importer": "Other", "country": "Kenya"}
	_, err = uc.Submit(context.Background(), cmd)
	if !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestUpdateFlowOnExistingRecord(t *testing.T) {
	store := memory.NewStore()
	store.SetRecord(entities.Record{
		TargetType: entities.TargetGreenRecord,
		RecordID:   "rec-1",
		Fields:     greenRecordPayload(),
	}, "sweet maria's|kochere washed|k-17")
	uc := newUseCase(store)
	uc.Threshold = policy.FixedThreshold{Endorsements: 2}

	result, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID:   "alice",
		TargetType: "green_record",
		TargetID:   "rec-1",
		Operation:  "update",
		Payload:    map[string]any{"process": "washed", "lot": nil},
	})
	if err != nil {
		t.Fatalf("submit update failed: %v", err)
	}
	endorse(t, uc, result.Suggestion.SuggestionID, "bob")
	final := endorse(t, uc, result.Suggestion.SuggestionID, "carol")
	if final.Suggestion.Status != entities.SuggestionStatusAccepted {
		t.Fatalf("expected accepted, got %s", final.Suggestion.Status)
	}

	record, err := store.GetRecord(context.Background(), entities.TargetGreenRecord, "rec-1")
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if record.Version != 2 || record.Fields["process"] != "washed" {
		t.Fatalf("unexpected record after update: %+v", record)
	}
	if _, ok := record.Fields["lot"]; ok {
		t.Fatalf("expected lot to be cleared")
	}

	changes, err := store.ListRecordChanges(context.Background(), entities.TargetGreenRecord, "rec-1")
	if err != nil {
		t.Fatalf("history lookup failed: %v", err)
	}
	folded, ok := entities.Fold(changes)
	if !ok || folded.Version != record.Version || folded.Fields["process"] != "washed" {
		t.Fatalf("history does not fold to the visible record: %+v", folded)
	}
}

func TestUpdateOnMissingRecordIsNotFound(t *testing.T) {
	uc := newUseCase(memory.NewStore())
	_, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID:   "alice",
		TargetType: "green_record",
		TargetID:   "nope",
		Operation:  "update",
		Payload:    map[string]any{"process": "natural"},
	})
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestImmutableTastingNotesRefuseEdits(t *testing.T) {
	store := memory.NewStore()
	store.SetRecord(entities.Record{
		TargetType: entities.TargetTastingNote,
		RecordID:   "note-1",
		Fields:     map[string]any{"green_record_id": "rec-1", "notes": "stone fruit"},
	}, "")
	uc := newUseCase(store)
	uc.TastingNotes = policy.TastingNotesImmutable

	_, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID:   "alice",
		TargetType: "tasting_note",
		TargetID:   "note-1",
		Operation:  "update",
		Payload:    map[string]any{"notes": "jammy"},
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestTastingNoteCreateRequiresLiveGreenRecord(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	_, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID:   "alice",
		TargetType: "tasting_note",
		Operation:  "create",
		Payload:    map[string]any{"green_record_id": "missing", "notes": "cocoa"},
	})
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found for dangling reference, got %v", err)
	}

	store.SetRecord(entities.Record{
		TargetType: entities.TargetGreenRecord,
		RecordID:   "rec-1",
		Fields:     greenRecordPayload(),
	}, "sweet maria's|kochere washed|k-17")
	if _, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID:   "alice",
		TargetType: "tasting_note",
		Operation:  "create",
		Payload:    map[string]any{"green_record_id": "rec-1", "notes": "cocoa", "score": 86.5},
	}); err != nil {
		t.Fatalf("submit tasting note failed: %v", err)
	}
}

func TestReconcileThresholdsResolvesStrandedSuggestions(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	suggestion := submitCreate(t, uc, "alice")
	for _, user := range []string{"bob", "carol", "dave"} {
		store.SetEndorsement(entities.Endorsement{
			SuggestionID: suggestion.SuggestionID,
			UserID:       user,
			Stance:       entities.StanceSupport,
			CreatedAt:    testNow,
		})
	}

	resolved, err := uc.ReconcileThresholds(context.Background())
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if resolved != 1 {
		t.Fatalf("expected one resolved suggestion, got %d", resolved)
	}

	// Expiry racing a reconciler that already accepted must leave it alone.
	count, err := uc.ResolveExpired(context.Background(), testNow.Add(30*24*time.Hour))
	if err != nil || count != 0 {
		t.Fatalf("expected expiry to skip resolved suggestion, got %d, %v", count, err)
	}
	current, err := store.GetSuggestion(context.Background(), suggestion.SuggestionID)
	if err != nil {
		t.Fatalf("suggestion lookup failed: %v", err)
	}
	if current.Status != entities.SuggestionStatusAccepted {
		t.Fatalf("expected accepted, got %s", current.Status)
	}
}

func TestAcceptRejectsWhenTargetRemoved(t *testing.T) {
	store := memory.NewStore()
	store.SetRecord(entities.Record{
		TargetType: entities.TargetGreenRecord,
		RecordID:   "rec-1",
		Fields:     greenRecordPayload(),
	}, "sweet maria's|kochere washed|k-17")
	uc := newUseCase(store)
	uc.Threshold = policy.FixedThreshold{Endorsements: 1}

	update, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID: "alice", TargetType: "green_record", TargetID: "rec-1", Operation: "update",
		Payload: map[string]any{"process": "honey"},
	})
	if err != nil {
		t.Fatalf("submit update failed: %v", err)
	}
	removal, err := uc.Submit(context.Background(), SubmitCommand{
		AuthorID: "carol", TargetType: "green_record", TargetID: "rec-1", Operation: "delete",
	})
	if err != nil {
		t.Fatalf("submit delete failed: %v", err)
	}

	endorse(t, uc, removal.Suggestion.SuggestionID, "bob")
	result := endorse(t, uc, update.Suggestion.SuggestionID, "bob")
	if result.Suggestion.Status != entities.SuggestionStatusRejected || result.Suggestion.Resolution != entities.ResolutionTargetRemoved {
		t.Fatalf("expected target_removed rejection, got %s/%s", result.Suggestion.Status, result.Suggestion.Resolution)
	}
	if got := karmaOf(t, store, "alice"); got != 0 {
		t.Fatalf("target_removed must not penalise the author, got %d", got)
	}
}

func TestStateChangesEmitOutboxEvents(t *testing.T) {
	store := memory.NewStore()
	uc := newUseCase(store)
	uc.Threshold = policy.FixedThreshold{Endorsements: 1}
	suggestion := submitCreate(t, uc, "alice")
	endorse(t, uc, suggestion.SuggestionID, "bob")

	messages, err := store.ListPendingOutbox(context.Background(), 100)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	seen := make(map[string]int)
	for _, message := range messages {
		seen[message.EventType]++
	}
	for _, eventType := range []string{"suggestion.submitted", "suggestion.endorsed", "suggestion.accepted", "record.changed"} {
		if seen[eventType] != 1 {
			t.Fatalf("expected one %s event, got %d (%v)", eventType, seen[eventType], seen)
		}
	}
	if seen["karma.adjusted"] != 2 {
		t.Fatalf("expected two karma events, got %d", seen["karma.adjusted"])
	}
}
