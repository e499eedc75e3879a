package commands

import (
	"context"
	"log/slog"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
	"ceto/contexts/community-moderation/moderation-engine/domain/schema"
	"ceto/contexts/community-moderation/moderation-engine/ports"

	"github.com/google/uuid"
)

const (
	defaultSuggestionTTL  = 14 * 24 * time.Hour
	defaultIdempotencyTTL = 7 * 24 * time.Hour
	defaultThreshold      = 3
)

// SuggestionUseCase is the moderation engine. Every state change runs inside
// one Repo.WithinTx call keyed by the suggestion row lock, so concurrent
// callers on the same suggestion are serialised by the store.
type SuggestionUseCase struct {
	Repo            ports.Repository
	Idempotency     ports.IdempotencyStore
	Schema          *schema.Registry
	Threshold       policy.ThresholdPolicy
	RejectThreshold int
	Karma           policy.KarmaRules
	SuggestionTTL   time.Duration
	TastingNotes    policy.TastingNoteMode
	Clock           ports.Clock
	IDGen           ports.IDGenerator
	IdempotencyTTL  time.Duration
	Logger          *slog.Logger
}

func (uc SuggestionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc SuggestionUseCase) newID(ctx context.Context) (string, error) {
	if uc.IDGen == nil {
		return uuid.NewString(), nil
	}
	return uc.IDGen.NewID(ctx)
}

func (uc SuggestionUseCase) schema() *schema.Registry {
	if uc.Schema != nil {
		return uc.Schema
	}
	return schema.MustDefault()
}

func (uc SuggestionUseCase) threshold() policy.ThresholdPolicy {
	if uc.Threshold == nil {
		return policy.FixedThreshold{Endorsements: defaultThreshold}
	}
	return uc.Threshold
}

// ResolveSuggestionTTL reports the effective auto-reject age.
func (uc SuggestionUseCase) ResolveSuggestionTTL() time.Duration {
	if uc.SuggestionTTL <= 0 {
		return defaultSuggestionTTL
	}
	return uc.SuggestionTTL
}

func (uc SuggestionUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return defaultIdempotencyTTL
	}
	return uc.IdempotencyTTL
}
