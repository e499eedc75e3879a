package workers

import (
	"context"
	"log/slog"
	"time"

	application "ceto/contexts/community-moderation/moderation-engine/application"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

type ExpiryResolver interface {
	ResolveExpired(ctx context.Context, now time.Time) (int, error)
}

// ExpirySweeper rejects pending suggestions that outlived the TTL.
type ExpirySweeper struct {
	Suggestions ExpiryResolver
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (j ExpirySweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}

	rejected, err := j.Suggestions.ResolveExpired(ctx, now)
	if err != nil {
		logger.Error("suggestion expiry sweep failed",
			"event", "moderation_expiry_sweep_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"rejected_count", rejected,
			"error", err.Error(),
		)
		return err
	}
	if rejected > 0 {
		logger.Info("suggestion expiry sweep completed",
			"event", "moderation_expiry_sweep_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"rejected_count", rejected,
		)
	}
	return nil
}
