package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	application "ceto/contexts/community-moderation/moderation-engine/application"
	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

// SubmitCommand proposes a create, update or delete against one record.
// TargetID is empty for creates; the record id is allocated on submit.
type SubmitCommand struct {
	AuthorID       string
	IdempotencyKey string
	TargetType     string
	TargetID       string
	Operation      string
	Payload        map[string]any
}

type SubmitResult struct {
	Suggestion entities.Suggestion
	Replayed   bool
}

func (uc SuggestionUseCase) Submit(ctx context.Context, cmd SubmitCommand) (SubmitResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	authorID := strings.TrimSpace(cmd.AuthorID)
	targetID := strings.TrimSpace(cmd.TargetID)
	logger.Info("suggestion submit processing started",
		"event", "moderation_suggestion_submit_started",
		"module", application.ModuleName,
		"layer", "application",
		"author_id", authorID,
		"target_type", strings.TrimSpace(cmd.TargetType),
		"target_id", targetID,
		"operation", strings.TrimSpace(cmd.Operation),
	)

	targetType, operation, payload, err := uc.validateSubmit(cmd)
	if err != nil {
		logger.Warn("suggestion submit validation failed",
			"event", "moderation_suggestion_submit_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"author_id", authorID,
			"error", err.Error(),
		)
		return SubmitResult{}, err
	}

	now := uc.now()
	idempotencyKey := strings.TrimSpace(cmd.IdempotencyKey)
	requestHash := hashSubmitCommand(cmd)
	if idempotencyKey != "" && uc.Idempotency != nil {
		record, found, err := uc.Idempotency.Get(ctx, idempotencyKey, now)
		if err != nil {
			logger.Error("suggestion submit idempotency lookup failed",
				"event", "moderation_suggestion_submit_idempotency_lookup_failed",
				"module", application.ModuleName,
				"layer", "application",
				"author_id", authorID,
				"error", err.Error(),
			)
			return SubmitResult{}, err
		}
		if found {
			if record.RequestHash != requestHash {
				return SubmitResult{}, domainerrors.ErrIdempotencyConflict
			}
			suggestion, err := uc.Repo.GetSuggestion(ctx, record.SuggestionID)
			if err != nil {
				return SubmitResult{}, err
			}
			logger.Info("suggestion submit replayed",
				"event", "moderation_suggestion_submit_replayed",
				"module", application.ModuleName,
				"layer", "application",
				"suggestion_id", suggestion.SuggestionID,
			)
			return SubmitResult{Suggestion: suggestion, Replayed: true}, nil
		}
	}

	suggestionID, err := uc.newID(ctx)
	if err != nil {
		return SubmitResult{}, err
	}
	if operation == entities.OperationCreate {
		if targetID, err = uc.newID(ctx); err != nil {
			return SubmitResult{}, err
		}
	}
	suggestion := entities.Suggestion{
		SuggestionID: suggestionID,
		TargetType:   targetType,
		TargetID:     targetID,
		Operation:    operation,
		Payload:      payload,
		AuthorID:     authorID,
		Status:       entities.SuggestionStatusPending,
		Version:      1,
		CreatedAt:    now,
	}

	err = uc.Repo.WithinTx(ctx, func(tx ports.Tx) error {
		if err := uc.checkTarget(ctx, tx, suggestion); err != nil {
			return err
		}
		if err := tx.CreateSuggestion(ctx, suggestion); err != nil {
			return err
		}
		return uc.appendSuggestionEvent(ctx, tx, "suggestion.submitted", suggestion, now, map[string]any{
			"payload": suggestion.Payload,
		})
	})
	if err != nil {
		logger.Warn("suggestion submit rejected",
			"event", "moderation_suggestion_submit_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"author_id", authorID,
			"target_type", string(targetType),
			"target_id", targetID,
			"error", err.Error(),
		)
		return SubmitResult{}, err
	}

	if idempotencyKey != "" && uc.Idempotency != nil {
		if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
			Key:          idempotencyKey,
			RequestHash:  requestHash,
			SuggestionID: suggestion.SuggestionID,
			ExpiresAt:    now.Add(uc.resolveIdempotencyTTL()),
		}); err != nil {
			return SubmitResult{}, err
		}
	}

	logger.Info("suggestion submitted",
		"event", "moderation_suggestion_submitted",
		"module", application.ModuleName,
		"layer", "application",
		"suggestion_id", suggestion.SuggestionID,
		"author_id", suggestion.AuthorID,
		"target_type", string(suggestion.TargetType),
		"target_id", suggestion.TargetID,
		"operation", string(suggestion.Operation),
	)
	return SubmitResult{Suggestion: suggestion}, nil
}

func (uc SuggestionUseCase) validateSubmit(cmd SubmitCommand) (entities.TargetType, entities.Operation, map[string]any, error) {
	if strings.TrimSpace(cmd.AuthorID) == "" {
		return "", "", nil, domainerrors.Field("author_id", "is required")
	}
	targetType, ok := entities.ParseTargetType(cmd.TargetType)
	if !ok {
		return "", "", nil, domainerrors.Field("target_type", "must be green_record or tasting_note")
	}
	operation, ok := entities.ParseOperation(cmd.Operation)
	if !ok {
		return "", "", nil, domainerrors.Field("operation", "must be create, update or delete")
	}
	targetID := strings.TrimSpace(cmd.TargetID)
	if operation == entities.OperationCreate && targetID != "" {
		return "", "", nil, domainerrors.Field("target_id", "must be empty for create")
	}
	if operation != entities.OperationCreate && targetID == "" {
		return "", "", nil, domainerrors.Field("target_id", "is required for update and delete")
	}
	if targetType == entities.TargetTastingNote &&
		operation != entities.OperationCreate &&
		uc.TastingNotes == policy.TastingNotesImmutable {
		return "", "", nil, domainerrors.Forbidden("tasting notes are immutable once published")
	}
	payload, err := uc.schema().Validate(targetType, operation, cmd.Payload)
	if err != nil {
		return "", "", nil, err
	}
	return targetType, operation, payload, nil
}

// checkTarget verifies the target and every referenced record inside the
// submitting transaction.
func (uc SuggestionUseCase) checkTarget(ctx context.Context, tx ports.Tx, suggestion entities.Suggestion) error {
	registry := uc.schema()
	switch suggestion.Operation {
	case entities.OperationCreate:
		if key, ok := registry.IdentityKey(suggestion.TargetType, suggestion.Payload); ok {
			existing, found, err := tx.FindActiveRecordByIdentity(ctx, suggestion.TargetType, key)
			if err != nil {
				return err
			}
			if found {
				return fmt.Errorf("%w: matches %s %s", domainerrors.ErrRecordConflict, existing.TargetType, existing.RecordID)
			}
		}
	default:
		record, err := tx.GetRecord(ctx, suggestion.TargetType, suggestion.TargetID)
		if err != nil {
			return err
		}
		if !record.Active {
			return domainerrors.NotFound("%s %s was removed", suggestion.TargetType, suggestion.TargetID)
		}
	}

	for field, refType := range registry.References(suggestion.TargetType) {
		refID, ok := suggestion.Payload[field].(string)
		if !ok || refID == "" {
			continue
		}
		record, err := tx.GetRecord(ctx, refType, refID)
		if err != nil {
			return err
		}
		if !record.Active {
			return domainerrors.NotFound("%s %s was removed", refType, refID)
		}
	}
	return nil
}

func hashSubmitCommand(cmd SubmitCommand) string {
	payload := map[string]any{
		"author_id":   strings.TrimSpace(cmd.AuthorID),
		"target_type": strings.ToLower(strings.TrimSpace(cmd.TargetType)),
		"target_id":   strings.TrimSpace(cmd.TargetID),
		"operation":   strings.ToLower(strings.TrimSpace(cmd.Operation)),
		"payload":     cmd.Payload,
		"op":          "submit_suggestion",
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
