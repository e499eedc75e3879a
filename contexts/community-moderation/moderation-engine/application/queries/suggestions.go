package queries

import (
	"context"
	"errors"
	"strings"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

const defaultThreshold = 3

type SuggestionDetail struct {
	Suggestion entities.Suggestion
	Counts     entities.StanceCounts
	Required   int
}

type SuggestionQueries struct {
	Repo      ports.Repository
	Threshold policy.ThresholdPolicy
}

// ListForTarget returns the suggestions on one record, pending ones unless a
// status is given, oldest first.
func (q SuggestionQueries) ListForTarget(
	ctx context.Context,
	targetType string,
	targetID string,
	status string,
) ([]entities.Suggestion, error) {
	parsedType, ok := entities.ParseTargetType(targetType)
	if !ok {
		return nil, domainerrors.Field("target_type", "must be green_record or tasting_note")
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, domainerrors.Field("target_id", "is required")
	}
	parsedStatus := entities.SuggestionStatusPending
	if strings.TrimSpace(status) != "" {
		if parsedStatus, ok = entities.ParseSuggestionStatus(status); !ok {
			return nil, domainerrors.Field("status", "must be pending, accepted, rejected or withdrawn")
		}
	}
	return q.Repo.ListSuggestions(ctx, ports.SuggestionFilter{
		TargetType: parsedType,
		TargetID:   targetID,
		Status:     parsedStatus,
	})
}

func (q SuggestionQueries) Get(ctx context.Context, suggestionID string) (SuggestionDetail, error) {
	suggestionID = strings.TrimSpace(suggestionID)
	if suggestionID == "" {
		return SuggestionDetail{}, domainerrors.Field("suggestion_id", "is required")
	}
	suggestion, err := q.Repo.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return SuggestionDetail{}, err
	}
	endorsements, err := q.Repo.ListEndorsements(ctx, suggestionID)
	if err != nil {
		return SuggestionDetail{}, err
	}

	target, err := q.Repo.GetRecord(ctx, suggestion.TargetType, suggestion.TargetID)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return SuggestionDetail{}, err
		}
		target = entities.Record{TargetType: suggestion.TargetType, RecordID: suggestion.TargetID}
	}
	threshold := q.Threshold
	if threshold == nil {
		threshold = policy.FixedThreshold{Endorsements: defaultThreshold}
	}
	return SuggestionDetail{
		Suggestion: suggestion,
		Counts:     entities.CountStances(endorsements),
		Required:   threshold.Required(target),
	}, nil
}
