package commands

import (
	"context"
	"strings"

	application "ceto/contexts/community-moderation/moderation-engine/application"
	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

type WithdrawCommand struct {
	SuggestionID string
	UserID       string
}

func (uc SuggestionUseCase) Withdraw(ctx context.Context, cmd WithdrawCommand) (entities.Suggestion, error) {
	logger := application.ResolveLogger(uc.Logger)
	suggestionID := strings.TrimSpace(cmd.SuggestionID)
	userID := strings.TrimSpace(cmd.UserID)
	if suggestionID == "" {
		return entities.Suggestion{}, domainerrors.Field("suggestion_id", "is required")
	}
	if userID == "" {
		return entities.Suggestion{}, domainerrors.Field("user_id", "is required")
	}

	now := uc.now()
	var withdrawn entities.Suggestion
	err := uc.Repo.WithinTx(ctx, func(tx ports.Tx) error {
		suggestion, err := tx.LockSuggestion(ctx, suggestionID)
		if err != nil {
			return err
		}
		if suggestion.AuthorID != userID {
			return domainerrors.Forbidden("only the author may withdraw suggestion %s", suggestionID)
		}
		withdrawn, err = suggestion.Transition(entities.SuggestionStatusWithdrawn, entities.ResolutionWithdrawn, now)
		if err != nil {
			return err
		}
		if err := tx.TransitionSuggestion(ctx, withdrawn, suggestion.Version); err != nil {
			return err
		}
		if err := uc.awardLocked(ctx, tx, withdrawn, uc.Karma.Withdrawn(withdrawn.AuthorID), now); err != nil {
			return err
		}
		return uc.appendSuggestionEvent(ctx, tx, "suggestion.withdrawn", withdrawn, now, nil)
	})
	if err != nil {
		logger.Warn("suggestion withdraw rejected",
			"event", "moderation_suggestion_withdraw_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"suggestion_id", suggestionID,
			"user_id", userID,
			"error", err.Error(),
		)
		return entities.Suggestion{}, err
	}
	logger.Info("suggestion withdrawn",
		"event", "moderation_suggestion_withdrawn",
		"module", application.ModuleName,
		"layer", "application",
		"suggestion_id", suggestionID,
		"user_id", userID,
	)
	return withdrawn, nil
}
