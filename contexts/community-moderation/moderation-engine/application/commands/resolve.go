package commands

import (
	"context"
	"errors"
	"time"

	application "ceto/contexts/community-moderation/moderation-engine/application"
	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

// evaluate locks the suggestion, then its target record, and resolves the
// suggestion when a threshold is met. ErrInvalidState means another
// transaction already resolved it. A write that lost a race on the record
// rolls back whole and is evaluated once more against the winner's state.
func (uc SuggestionUseCase) evaluate(ctx context.Context, suggestionID string) (entities.Suggestion, error) {
	resolved, err := uc.evaluateOnce(ctx, suggestionID)
	if errors.Is(err, domainerrors.ErrRecordConflict) {
		application.ResolveLogger(uc.Logger).Info("suggestion re-evaluated after record write race",
			"event", "moderation_record_race_retried",
			"module", application.ModuleName,
			"layer", "application",
			"suggestion_id", suggestionID,
			"error", err.Error(),
		)
		return uc.evaluateOnce(ctx, suggestionID)
	}
	return resolved, err
}

func (uc SuggestionUseCase) evaluateOnce(ctx context.Context, suggestionID string) (entities.Suggestion, error) {
	now := uc.now()
	var resolved entities.Suggestion
	err := uc.Repo.WithinTx(ctx, func(tx ports.Tx) error {
		suggestion, err := tx.LockSuggestion(ctx, suggestionID)
		if err != nil {
			return err
		}
		if suggestion.Status != entities.SuggestionStatusPending {
			return domainerrors.InvalidState("suggestion %s is %s", suggestionID, suggestion.Status)
		}
		endorsements, err := tx.ListEndorsements(ctx, suggestionID)
		if err != nil {
			return err
		}
		counts := entities.CountStances(endorsements)
		target, found, err := uc.lockTarget(ctx, tx, suggestion)
		if err != nil {
			return err
		}

		resolved = suggestion
		switch {
		case counts.Support >= uc.threshold().Required(target):
			resolved, err = uc.acceptLocked(ctx, tx, suggestion, target, found, supporters(endorsements), now)
		case uc.RejectThreshold > 0 && counts.Oppose >= uc.RejectThreshold:
			resolved, err = uc.rejectLocked(ctx, tx, suggestion, entities.ResolutionCommunity, true, now)
		}
		return err
	})
	if err != nil {
		return entities.Suggestion{}, err
	}
	return resolved, nil
}

// lockTarget locks and returns the target record. A missing record comes
// back as a zero record with found false.
func (uc SuggestionUseCase) lockTarget(
	ctx context.Context,
	tx ports.Tx,
	suggestion entities.Suggestion,
) (entities.Record, bool, error) {
	record, err := tx.LockRecord(ctx, suggestion.TargetType, suggestion.TargetID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return entities.Record{TargetType: suggestion.TargetType, RecordID: suggestion.TargetID}, false, nil
		}
		return entities.Record{}, false, err
	}
	return record, true, nil
}

func (uc SuggestionUseCase) acceptLocked(
	ctx context.Context,
	tx ports.Tx,
	suggestion entities.Suggestion,
	target entities.Record,
	targetFound bool,
	supporterIDs []string,
	now time.Time,
) (entities.Suggestion, error) {
	if reason, err := uc.applicability(ctx, tx, suggestion, target, targetFound); err != nil {
		return entities.Suggestion{}, err
	} else if reason != "" {
		return uc.rejectLocked(ctx, tx, suggestion, reason, false, now)
	}

	accepted, err := suggestion.Transition(entities.SuggestionStatusAccepted, entities.ResolutionThreshold, now)
	if err != nil {
		return entities.Suggestion{}, err
	}
	if err := tx.TransitionSuggestion(ctx, accepted, suggestion.Version); err != nil {
		return entities.Suggestion{}, err
	}
	if _, err := uc.applyLocked(ctx, tx, accepted, now); err != nil {
		return entities.Suggestion{}, err
	}
	if err := uc.awardLocked(ctx, tx, accepted, uc.Karma.Accepted(accepted.AuthorID, supporterIDs), now); err != nil {
		return entities.Suggestion{}, err
	}
	if err := uc.appendSuggestionEvent(ctx, tx, "suggestion.accepted", accepted, now, map[string]any{
		"endorsements": len(supporterIDs),
	}); err != nil {
		return entities.Suggestion{}, err
	}
	application.ResolveLogger(uc.Logger).Info("suggestion accepted",
		"event", "moderation_suggestion_accepted",
		"module", application.ModuleName,
		"layer", "application",
		"suggestion_id", accepted.SuggestionID,
		"target_type", string(accepted.TargetType),
		"target_id", accepted.TargetID,
		"endorsements", len(supporterIDs),
	)
	return accepted, nil
}

// applicability reports a resolution when the locked target changed
// underneath a pending suggestion so that it can no longer be applied.
func (uc SuggestionUseCase) applicability(
	ctx context.Context,
	tx ports.Tx,
	suggestion entities.Suggestion,
	target entities.Record,
	targetFound bool,
) (entities.Resolution, error) {
	switch suggestion.Operation {
	case entities.OperationCreate:
		return uc.identityConflict(ctx, tx, suggestion, suggestion.Payload)
	case entities.OperationUpdate:
		if !targetFound || !target.Active {
			return entities.ResolutionTargetRemoved, nil
		}
		next := target.Apply(entities.RecordChange{
			TargetType: suggestion.TargetType,
			RecordID:   suggestion.TargetID,
			Operation:  entities.OperationUpdate,
			Payload:    suggestion.Payload,
			Sequence:   target.Version + 1,
		})
		return uc.identityConflict(ctx, tx, suggestion, next.Fields)
	default:
		if !targetFound || !target.Active {
			return entities.ResolutionTargetRemoved, nil
		}
		return "", nil
	}
}

// identityConflict reports ResolutionConflict when another active record
// already holds the identity the suggestion would give its target.
func (uc SuggestionUseCase) identityConflict(
	ctx context.Context,
	tx ports.Tx,
	suggestion entities.Suggestion,
	fields map[string]any,
) (entities.Resolution, error) {
	key, ok := uc.schema().IdentityKey(suggestion.TargetType, fields)
	if !ok {
		return "", nil
	}
	existing, found, err := tx.FindActiveRecordByIdentity(ctx, suggestion.TargetType, key)
	if err != nil {
		return "", err
	}
	if found && existing.RecordID != suggestion.TargetID {
		return entities.ResolutionConflict, nil
	}
	return "", nil
}

func (uc SuggestionUseCase) rejectLocked(
	ctx context.Context,
	tx ports.Tx,
	suggestion entities.Suggestion,
	resolution entities.Resolution,
	penalize bool,
	now time.Time,
) (entities.Suggestion, error) {
	rejected, err := suggestion.Transition(entities.SuggestionStatusRejected, resolution, now)
	if err != nil {
		return entities.Suggestion{}, err
	}
	if err := tx.TransitionSuggestion(ctx, rejected, suggestion.Version); err != nil {
		return entities.Suggestion{}, err
	}
	if penalize {
		if err := uc.awardLocked(ctx, tx, rejected, uc.Karma.Rejected(rejected.AuthorID), now); err != nil {
			return entities.Suggestion{}, err
		}
	}
	if err := uc.appendSuggestionEvent(ctx, tx, "suggestion.rejected", rejected, now, nil); err != nil {
		return entities.Suggestion{}, err
	}
	application.ResolveLogger(uc.Logger).Info("suggestion rejected",
		"event", "moderation_suggestion_rejected",
		"module", application.ModuleName,
		"layer", "application",
		"suggestion_id", rejected.SuggestionID,
		"resolution", string(resolution),
	)
	return rejected, nil
}

// applyLocked appends the change and refolds the record. The change log is
// keyed by suggestion id, so a repeated call reports false and writes nothing.
func (uc SuggestionUseCase) applyLocked(
	ctx context.Context,
	tx ports.Tx,
	suggestion entities.Suggestion,
	now time.Time,
) (bool, error) {
	current, _, err := uc.lockTarget(ctx, tx, suggestion)
	if err != nil {
		return false, err
	}
	changeID, err := uc.newID(ctx)
	if err != nil {
		return false, err
	}
	change := entities.RecordChange{
		ChangeID:     changeID,
		TargetType:   suggestion.TargetType,
		RecordID:     suggestion.TargetID,
		SuggestionID: suggestion.SuggestionID,
		Operation:    suggestion.Operation,
		Payload:      entities.CloneFields(suggestion.Payload),
		AuthorID:     suggestion.AuthorID,
		Sequence:     current.Version + 1,
		AppliedAt:    now,
	}
	inserted, err := tx.AppendRecordChange(ctx, change)
	if err != nil || !inserted {
		return false, err
	}

	next := current.Apply(change)
	identityKey, _ := uc.schema().IdentityKey(next.TargetType, next.Fields)
	if err := tx.SaveRecord(ctx, next, identityKey); err != nil {
		return false, err
	}
	if err := uc.appendEvent(ctx, tx, "record.changed", string(next.TargetType), next.RecordID, now, map[string]any{
		"target_type":   string(next.TargetType),
		"record_id":     next.RecordID,
		"suggestion_id": suggestion.SuggestionID,
		"operation":     string(change.Operation),
		"version":       next.Version,
		"active":        next.Active,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (uc SuggestionUseCase) awardLocked(
	ctx context.Context,
	tx ports.Tx,
	suggestion entities.Suggestion,
	deltas []policy.KarmaDelta,
	now time.Time,
) error {
	for _, delta := range deltas {
		entryID, err := uc.newID(ctx)
		if err != nil {
			return err
		}
		inserted, err := tx.AppendKarmaEntry(ctx, entities.KarmaEntry{
			EntryID:      entryID,
			UserID:       delta.UserID,
			SuggestionID: suggestion.SuggestionID,
			Reason:       delta.Reason,
			Delta:        delta.Delta,
			CreatedAt:    now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			continue
		}
		if err := uc.appendEvent(ctx, tx, "karma.adjusted", "user", delta.UserID, now, map[string]any{
			"user_id":       delta.UserID,
			"suggestion_id": suggestion.SuggestionID,
			"reason":        string(delta.Reason),
			"delta":         delta.Delta,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAccepted re-runs the apply step for an accepted suggestion. It exists
// for recovery tooling; a second call is a no-op and returns false.
func (uc SuggestionUseCase) ApplyAccepted(ctx context.Context, suggestionID string) (bool, error) {
	now := uc.now()
	applied := false
	err := uc.Repo.WithinTx(ctx, func(tx ports.Tx) error {
		suggestion, err := tx.LockSuggestion(ctx, suggestionID)
		if err != nil {
			return err
		}
		if suggestion.Status != entities.SuggestionStatusAccepted {
			return domainerrors.InvalidState("suggestion %s is %s", suggestionID, suggestion.Status)
		}
		applied, err = uc.applyLocked(ctx, tx, suggestion, now)
		return err
	})
	return applied, err
}

// ResolveExpired rejects pending suggestions older than the TTL. Each one is
// handled in its own transaction; suggestions resolved concurrently are
// skipped. It returns how many this call rejected.
func (uc SuggestionUseCase) ResolveExpired(ctx context.Context, now time.Time) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	ttl := uc.ResolveSuggestionTTL()
	now = now.UTC()
	candidates, err := uc.Repo.ListSuggestions(ctx, ports.SuggestionFilter{
		Status:        entities.SuggestionStatusPending,
		CreatedBefore: now.Add(-ttl),
	})
	if err != nil {
		return 0, err
	}

	rejected := 0
	for _, candidate := range candidates {
		err := uc.Repo.WithinTx(ctx, func(tx ports.Tx) error {
			suggestion, err := tx.LockSuggestion(ctx, candidate.SuggestionID)
			if err != nil {
				return err
			}
			if suggestion.Status != entities.SuggestionStatusPending {
				return domainerrors.InvalidState("suggestion %s is %s", suggestion.SuggestionID, suggestion.Status)
			}
			if !suggestion.IsExpired(now, ttl) {
				return domainerrors.InvalidState("suggestion %s has not expired", suggestion.SuggestionID)
			}
			_, err = uc.rejectLocked(ctx, tx, suggestion, entities.ResolutionExpired, true, now)
			return err
		})
		if err != nil {
			if errors.Is(err, domainerrors.ErrInvalidState) {
				continue
			}
			logger.Error("suggestion expiry failed",
				"event", "moderation_suggestion_expiry_failed",
				"module", application.ModuleName,
				"layer", "application",
				"suggestion_id", candidate.SuggestionID,
				"error", err.Error(),
			)
			return rejected, err
		}
		rejected++
	}

	logger.Info("expired suggestions resolved",
		"event", "moderation_expired_resolved",
		"module", application.ModuleName,
		"layer", "application",
		"candidates", len(candidates),
		"rejected", rejected,
	)
	return rejected, nil
}

// ReconcileThresholds re-evaluates every pending suggestion. It recovers
// suggestions whose endorsement committed but whose evaluation did not.
func (uc SuggestionUseCase) ReconcileThresholds(ctx context.Context) (int, error) {
	pending, err := uc.Repo.ListSuggestions(ctx, ports.SuggestionFilter{Status: entities.SuggestionStatusPending})
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, item := range pending {
		suggestion, err := uc.evaluate(ctx, item.SuggestionID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrInvalidState) {
				continue
			}
			return resolved, err
		}
		if suggestion.Status != entities.SuggestionStatusPending {
			resolved++
		}
	}
	return resolved, nil
}

func supporters(endorsements []entities.Endorsement) []string {
	ids := make([]string, 0, len(endorsements))
	for _, item := range endorsements {
		if item.Stance == entities.StanceSupport {
			ids = append(ids, item.UserID)
		}
	}
	return ids
}
