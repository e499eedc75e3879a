package workers

import (
	"context"
	"log/slog"

	application "ceto/contexts/community-moderation/moderation-engine/application"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

// KarmaAuditor recomputes every score from the ledger and repairs the
// projection where it drifted. The ledger is authoritative.
type KarmaAuditor struct {
	Repo   ports.Repository
	Logger *slog.Logger
}

// RunOnce returns the number of users whose projection was corrected.
func (a KarmaAuditor) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(a.Logger)
	users, err := a.Repo.ListKarmaUsers(ctx)
	if err != nil {
		logger.Error("karma audit list failed",
			"event", "moderation_karma_audit_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	repaired := 0
	for _, userID := range users {
		var projected, ledger int64
		err := a.Repo.WithinTx(ctx, func(tx ports.Tx) error {
			var err error
			if projected, err = tx.GetKarmaScore(ctx, userID); err != nil {
				return err
			}
			if ledger, err = tx.SumKarmaEntries(ctx, userID); err != nil {
				return err
			}
			if projected == ledger {
				return nil
			}
			return tx.SetKarmaScore(ctx, userID, ledger)
		})
		if err != nil {
			logger.Error("karma audit failed",
				"event", "moderation_karma_audit_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"user_id", userID,
				"error", err.Error(),
			)
			return repaired, err
		}
		if projected != ledger {
			repaired++
			logger.Warn("karma projection drift repaired",
				"event", "moderation_karma_drift_repaired",
				"module", application.ModuleName,
				"layer", "worker",
				"user_id", userID,
				"projected", projected,
				"ledger", ledger,
			)
		}
	}
	return repaired, nil
}
