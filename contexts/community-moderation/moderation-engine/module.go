package moderationengine

import (
	"log/slog"
	"time"

	httpadapter "ceto/contexts/community-moderation/moderation-engine/adapters/http"
	"ceto/contexts/community-moderation/moderation-engine/adapters/memory"
	"ceto/contexts/community-moderation/moderation-engine/application/commands"
	"ceto/contexts/community-moderation/moderation-engine/application/queries"
	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
	"ceto/contexts/community-moderation/moderation-engine/domain/schema"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

type Module struct {
	Handler     httpadapter.Handler
	Suggestions commands.SuggestionUseCase
	Store       *memory.Store
}

// Policy carries the tunable moderation rules. Zero values fall back to the
// defaults of each rule.
type Policy struct {
	Threshold       policy.ThresholdPolicy
	RejectThreshold int
	Karma           policy.KarmaRules
	Trust           policy.TrustTiers
	SuggestionTTL   time.Duration
	TastingNotes    policy.TastingNoteMode
}

func DefaultPolicy() Policy {
	return Policy{
		Threshold:    policy.FixedThreshold{Endorsements: 3},
		Karma:        policy.DefaultKarmaRules(),
		Trust:        policy.DefaultTrustTiers(),
		TastingNotes: policy.TastingNotesPipeline,
	}
}

type Dependencies struct {
	Repository     ports.Repository
	Idempotency    ports.IdempotencyStore
	Schema         *schema.Registry
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Policy         Policy
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	suggestions := commands.SuggestionUseCase{
		Repo:            deps.Repository,
		Idempotency:     deps.Idempotency,
		Schema:          deps.Schema,
		Threshold:       deps.Policy.Threshold,
		RejectThreshold: deps.Policy.RejectThreshold,
		Karma:           deps.Policy.Karma,
		SuggestionTTL:   deps.Policy.SuggestionTTL,
		TastingNotes:    deps.Policy.TastingNotes,
		Clock:           deps.Clock,
		IDGen:           deps.IDGen,
		IdempotencyTTL:  deps.IdempotencyTTL,
		Logger:          deps.Logger,
	}
	return Module{
		Suggestions: suggestions,
		Handler: httpadapter.Handler{
			Suggestions: suggestions,
			Reads: queries.SuggestionQueries{
				Repo:      deps.Repository,
				Threshold: deps.Policy.Threshold,
			},
			Records: queries.RecordQueries{Records: deps.Repository},
			Karma: queries.KarmaQueries{
				Karma: deps.Repository,
				Tiers: deps.Policy.Trust,
			},
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(moderationPolicy Policy, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:     store,
		Idempotency:    store,
		Clock:          store,
		IDGen:          store,
		Policy:         moderationPolicy,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
