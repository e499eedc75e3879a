package policy

import (
	"fmt"
	"strings"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
)

// TrustTiers maps a hidden karma score onto the public trust level.
type TrustTiers struct {
	ContributorMin int64
	TrustedMin     int64
	StewardMin     int64
}

func DefaultTrustTiers() TrustTiers {
	return TrustTiers{
		ContributorMin: 10,
		TrustedMin:     50,
		StewardMin:     200,
	}
}

func (t TrustTiers) Validate() error {
	if t.ContributorMin <= 0 || t.TrustedMin <= t.ContributorMin || t.StewardMin <= t.TrustedMin {
		return fmt.Errorf("trust tiers must be strictly increasing and positive")
	}
	return nil
}

func (t TrustTiers) Tier(score int64) entities.TrustTier {
	switch {
	case score >= t.StewardMin:
		return entities.TrustTierSteward
	case score >= t.TrustedMin:
		return entities.TrustTierTrusted
	case score >= t.ContributorMin:
		return entities.TrustTierContributor
	default:
		return entities.TrustTierNewcomer
	}
}

// TastingNoteMode decides whether published tasting notes may be edited.
type TastingNoteMode string

const (
	TastingNotesPipeline  TastingNoteMode = "pipeline"
	TastingNotesImmutable TastingNoteMode = "immutable"
)

func ParseTastingNoteMode(raw string) (TastingNoteMode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(TastingNotesPipeline):
		return TastingNotesPipeline, true
	case string(TastingNotesImmutable):
		return TastingNotesImmutable, true
	default:
		return "", false
	}
}
