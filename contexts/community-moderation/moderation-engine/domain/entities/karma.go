package entities

import "time"

type KarmaReason string

const (
	KarmaReasonAuthorAccept   KarmaReason = "author_accept"
	KarmaReasonEndorseAccept  KarmaReason = "endorse_accept"
	KarmaReasonAuthorReject   KarmaReason = "author_reject"
	KarmaReasonAuthorWithdraw KarmaReason = "author_withdraw"
)

// KarmaEntry is an immutable signed delta tied to the suggestion whose
// resolution produced it. (UserID, SuggestionID, Reason) is unique.
type KarmaEntry struct {
	EntryID      string
	UserID       string
	SuggestionID string
	Reason       KarmaReason
	Delta        int64
	CreatedAt    time.Time
}

func SumKarma(entries []KarmaEntry) int64 {
	var total int64
	for _, entry := range entries {
		total += entry.Delta
	}
	return total
}

type TrustTier string

const (
	TrustTierNewcomer    TrustTier = "newcomer"
	TrustTierContributor TrustTier = "contributor"
	TrustTierTrusted     TrustTier = "trusted"
	TrustTierSteward     TrustTier = "steward"
)
