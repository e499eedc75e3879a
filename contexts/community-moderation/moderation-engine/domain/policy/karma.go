package policy

import (
	"sort"
	"strings"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
)

// KarmaRules are the point values awarded or deducted on resolution.
// Penalties are stored as positive magnitudes.
type KarmaRules struct {
	AuthorAccept   int64
	EndorseAccept  int64
	AuthorReject   int64
	AuthorWithdraw int64
}

func DefaultKarmaRules() KarmaRules {
	return KarmaRules{
		AuthorAccept:  10,
		EndorseAccept: 2,
		AuthorReject:  5,
	}
}

// KarmaDelta is an unsaved ledger line.
type KarmaDelta struct {
	UserID string
	Reason entities.KarmaReason
	Delta  int64
}

// Accepted returns the author award and one award per distinct supporter.
func (k KarmaRules) Accepted(author string, supporters []string) []KarmaDelta {
	deltas := make([]KarmaDelta, 0, len(supporters)+1)
	if k.AuthorAccept != 0 {
		deltas = append(deltas, KarmaDelta{UserID: author, Reason: entities.KarmaReasonAuthorAccept, Delta: k.AuthorAccept})
	}
	if k.EndorseAccept == 0 {
		return deltas
	}
	seen := make(map[string]struct{}, len(supporters))
	ordered := append([]string(nil), supporters...)
	sort.Strings(ordered)
	for _, userID := range ordered {
		userID = strings.TrimSpace(userID)
		if userID == "" || userID == author {
			continue
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		deltas = append(deltas, KarmaDelta{UserID: userID, Reason: entities.KarmaReasonEndorseAccept, Delta: k.EndorseAccept})
	}
	return deltas
}

// Rejected penalises only the author; endorsers are left untouched.
func (k KarmaRules) Rejected(author string) []KarmaDelta {
	if k.AuthorReject == 0 {
		return nil
	}
	return []KarmaDelta{{UserID: author, Reason: entities.KarmaReasonAuthorReject, Delta: -k.AuthorReject}}
}

func (k KarmaRules) Withdrawn(author string) []KarmaDelta {
	if k.AuthorWithdraw == 0 {
		return nil
	}
	return []KarmaDelta{{UserID: author, Reason: entities.KarmaReasonAuthorWithdraw, Delta: -k.AuthorWithdraw}}
}
