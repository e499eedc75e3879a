package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	application "ceto/contexts/community-moderation/moderation-engine/application"
	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

type StanceCommand struct {
	SuggestionID string
	UserID       string
}

// StanceResult is the suggestion as observed after the call, including any
// transition the call triggered.
type StanceResult struct {
	Suggestion entities.Suggestion
	Counts     entities.StanceCounts
	Required   int
}

// Endorse records support and re-evaluates the threshold. The endorsement
// commits first; evaluation then runs in its own locked transaction. Once
// the endorsement is durable the call succeeds: a failed evaluation is
// logged and left to ReconcileThresholds.
func (uc SuggestionUseCase) Endorse(ctx context.Context, cmd StanceCommand) (StanceResult, error) {
	return uc.takeStance(ctx, cmd, entities.StanceSupport)
}

// Object records opposition. It only resolves the suggestion when a
// community rejection threshold is configured.
func (uc SuggestionUseCase) Object(ctx context.Context, cmd StanceCommand) (StanceResult, error) {
	return uc.takeStance(ctx, cmd, entities.StanceOppose)
}

func (uc SuggestionUseCase) takeStance(ctx context.Context, cmd StanceCommand, stance entities.Stance) (StanceResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	suggestionID := strings.TrimSpace(cmd.SuggestionID)
	userID := strings.TrimSpace(cmd.UserID)
	logger.Info("suggestion stance processing started",
		"event", "moderation_stance_started",
		"module", application.ModuleName,
		"layer", "application",
		"suggestion_id", suggestionID,
		"user_id", userID,
		"stance", string(stance),
	)
	if suggestionID == "" {
		return StanceResult{}, domainerrors.Field("suggestion_id", "is required")
	}
	if userID == "" {
		return StanceResult{}, domainerrors.Field("user_id", "is required")
	}

	now := uc.now()
	eventType := "suggestion.endorsed"
	if stance == entities.StanceOppose {
		eventType = "suggestion.objected"
	}
	err := uc.Repo.WithinTx(ctx, func(tx ports.Tx) error {
		suggestion, err := tx.LockSuggestion(ctx, suggestionID)
		if err != nil {
			return err
		}
		if suggestion.Status != entities.SuggestionStatusPending {
			return domainerrors.InvalidState("suggestion %s is %s", suggestionID, suggestion.Status)
		}
		if suggestion.AuthorID == userID {
			return fmt.Errorf("%w: user %s authored suggestion %s", domainerrors.ErrSelfEndorsement, userID, suggestionID)
		}
		if existing, found, err := tx.GetEndorsement(ctx, suggestionID, userID); err != nil {
			return err
		} else if found {
			return domainerrors.Duplicate("user %s already recorded %s on suggestion %s", userID, existing.Stance, suggestionID)
		}
		if err := tx.CreateEndorsement(ctx, entities.Endorsement{
			SuggestionID: suggestionID,
			UserID:       userID,
			Stance:       stance,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		return uc.appendSuggestionEvent(ctx, tx, eventType, suggestion, now, map[string]any{
			"user_id": userID,
			"stance":  string(stance),
		})
	})
	if err != nil {
		logger.Warn("suggestion stance rejected",
			"event", "moderation_stance_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"suggestion_id", suggestionID,
			"user_id", userID,
			"stance", string(stance),
			"error", err.Error(),
		)
		return StanceResult{}, err
	}

	if _, err := uc.evaluate(ctx, suggestionID); err != nil {
		if !errors.Is(err, domainerrors.ErrInvalidState) {
			logger.Error("suggestion threshold evaluation deferred to reconciler",
				"event", "moderation_threshold_evaluation_failed",
				"module", application.ModuleName,
				"layer", "application",
				"suggestion_id", suggestionID,
				"user_id", userID,
				"error", err.Error(),
			)
			return uc.snapshot(ctx, suggestionID)
		}
		logger.Info("suggestion already resolved by a concurrent caller",
			"event", "moderation_threshold_race_absorbed",
			"module", application.ModuleName,
			"layer", "application",
			"suggestion_id", suggestionID,
			"user_id", userID,
		)
	}
	return uc.snapshot(ctx, suggestionID)
}

// RetractEndorsement removes the caller's stance while the suggestion is
// pending. It never triggers a transition.
func (uc SuggestionUseCase) RetractEndorsement(ctx context.Context, cmd StanceCommand) (StanceResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	suggestionID := strings.TrimSpace(cmd.SuggestionID)
	userID := strings.TrimSpace(cmd.UserID)
	if suggestionID == "" {
		return StanceResult{}, domainerrors.Field("suggestion_id", "is required")
	}
	if userID == "" {
		return StanceResult{}, domainerrors.Field("user_id", "is required")
	}

	now := uc.now()
	err := uc.Repo.WithinTx(ctx, func(tx ports.Tx) error {
		suggestion, err := tx.LockSuggestion(ctx, suggestionID)
		if err != nil {
			return err
		}
		if suggestion.Status != entities.SuggestionStatusPending {
			return domainerrors.InvalidState("suggestion %s is %s", suggestionID, suggestion.Status)
		}
		if err := tx.DeleteEndorsement(ctx, suggestionID, userID); err != nil {
			return err
		}
		return uc.appendSuggestionEvent(ctx, tx, "suggestion.endorsement_retracted", suggestion, now, map[string]any{
			"user_id": userID,
		})
	})
	if err != nil {
		logger.Warn("endorsement retraction rejected",
			"event", "moderation_endorsement_retract_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"suggestion_id", suggestionID,
			"user_id", userID,
			"error", err.Error(),
		)
		return StanceResult{}, err
	}
	logger.Info("endorsement retracted",
		"event", "moderation_endorsement_retracted",
		"module", application.ModuleName,
		"layer", "application",
		"suggestion_id", suggestionID,
		"user_id", userID,
	)
	return uc.snapshot(ctx, suggestionID)
}

func (uc SuggestionUseCase) snapshot(ctx context.Context, suggestionID string) (StanceResult, error) {
	suggestion, err := uc.Repo.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return StanceResult{}, err
	}
	endorsements, err := uc.Repo.ListEndorsements(ctx, suggestionID)
	if err != nil {
		return StanceResult{}, err
	}
	required := 0
	if target, err := uc.currentTarget(ctx, uc.Repo, suggestion); err == nil {
		required = uc.threshold().Required(target)
	}
	return StanceResult{
		Suggestion: suggestion,
		Counts:     entities.CountStances(endorsements),
		Required:   required,
	}, nil
}

// currentTarget returns the target's visible state, or a zero record when it
// does not exist yet.
func (uc SuggestionUseCase) currentTarget(
	ctx context.Context,
	reader ports.RecordReader,
	suggestion entities.Suggestion,
) (entities.Record, error) {
	record, err := reader.GetRecord(ctx, suggestion.TargetType, suggestion.TargetID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return entities.Record{TargetType: suggestion.TargetType, RecordID: suggestion.TargetID}, nil
		}
		return entities.Record{}, err
	}
	return record, nil
}
