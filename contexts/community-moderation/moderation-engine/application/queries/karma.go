package queries

import (
	"context"
	"strings"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"
	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

type KarmaStatement struct {
	UserID  string
	Score   int64
	Tier    entities.TrustTier
	Entries []entities.KarmaEntry
}

type KarmaVerification struct {
	UserID    string
	Projected int64
	Ledger    int64
}

func (v KarmaVerification) Consistent() bool {
	return v.Projected == v.Ledger
}

// KarmaQueries never exposes a score through TrustLevel; Statement is for
// privileged callers only and the transport enforces that.
type KarmaQueries struct {
	Karma ports.KarmaReader
	Tiers policy.TrustTiers
}

func (q KarmaQueries) tiers() policy.TrustTiers {
	if q.Tiers == (policy.TrustTiers{}) {
		return policy.DefaultTrustTiers()
	}
	return q.Tiers
}

func (q KarmaQueries) TrustLevel(ctx context.Context, userID string) (entities.TrustTier, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", domainerrors.Field("user_id", "is required")
	}
	score, err := q.Karma.GetKarmaScore(ctx, userID)
	if err != nil {
		return "", err
	}
	return q.tiers().Tier(score), nil
}

func (q KarmaQueries) Statement(ctx context.Context, userID string) (KarmaStatement, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return KarmaStatement{}, domainerrors.Field("user_id", "is required")
	}
	score, err := q.Karma.GetKarmaScore(ctx, userID)
	if err != nil {
		return KarmaStatement{}, err
	}
	entries, err := q.Karma.ListKarmaEntries(ctx, userID)
	if err != nil {
		return KarmaStatement{}, err
	}
	return KarmaStatement{
		UserID:  userID,
		Score:   score,
		Tier:    q.tiers().Tier(score),
		Entries: entries,
	}, nil
}

func (q KarmaQueries) Verify(ctx context.Context, userID string) (KarmaVerification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return KarmaVerification{}, domainerrors.Field("user_id", "is required")
	}
	projected, err := q.Karma.GetKarmaScore(ctx, userID)
	if err != nil {
		return KarmaVerification{}, err
	}
	ledger, err := q.Karma.SumKarmaEntries(ctx, userID)
	if err != nil {
		return KarmaVerification{}, err
	}
	return KarmaVerification{UserID: userID, Projected: projected, Ledger: ledger}, nil
}
