package commands

import (
	"context"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	"ceto/contexts/community-moderation/moderation-engine/ports"
	"ceto/internal/shared/events"
)

const sourceService = "moderation-engine"

func (uc SuggestionUseCase) appendSuggestionEvent(
	ctx context.Context,
	tx ports.Tx,
	eventType string,
	suggestion entities.Suggestion,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	data := map[string]any{
		"suggestion_id": suggestion.SuggestionID,
		"target_type":   string(suggestion.TargetType),
		"target_id":     suggestion.TargetID,
		"operation":     string(suggestion.Operation),
		"author_id":     suggestion.AuthorID,
		"status":        string(suggestion.Status),
		"occurred_at":   occurredAt.Format(time.RFC3339),
	}
	if suggestion.Resolution != "" {
		data["resolution"] = string(suggestion.Resolution)
	}
	for key, value := range metadata {
		data[key] = value
	}
	return uc.appendEvent(ctx, tx, eventType, "suggestion", suggestion.SuggestionID, occurredAt, data)
}

// appendEvent writes into the outbox through the caller's transaction, so
// events exist exactly when the state change they describe committed.
func (uc SuggestionUseCase) appendEvent(
	ctx context.Context,
	tx ports.Tx,
	eventType string,
	entityType string,
	entityID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	eventID, err := uc.newID(ctx)
	if err != nil {
		return err
	}
	envelope, err := events.New(eventID, eventType, sourceService, entityType, entityID, occurredAt, data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, envelope)
}
