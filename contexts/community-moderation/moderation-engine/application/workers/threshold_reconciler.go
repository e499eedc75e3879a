package workers

import (
	"context"
	"log/slog"

	application "ceto/contexts/community-moderation/moderation-engine/application"
)

type ThresholdEvaluator interface {
	ReconcileThresholds(ctx context.Context) (int, error)
}

// ThresholdReconciler resolves suggestions whose endorsement committed but
// whose evaluation never ran, e.g. after a crash between the two steps.
type ThresholdReconciler struct {
	Suggestions ThresholdEvaluator
	Logger      *slog.Logger
}

func (j ThresholdReconciler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	resolved, err := j.Suggestions.ReconcileThresholds(ctx)
	if err != nil {
		logger.Error("threshold reconcile failed",
			"event", "moderation_threshold_reconcile_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"resolved_count", resolved,
			"error", err.Error(),
		)
		return err
	}
	if resolved > 0 {
		logger.Warn("threshold reconcile resolved stranded suggestions",
			"event", "moderation_threshold_reconcile_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"resolved_count", resolved,
		)
	}
	return nil
}
