package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "ceto/contexts/community-moderation/moderation-engine/application"
	"ceto/contexts/community-moderation/moderation-engine/ports"
)

// DefaultTopicRoutes maps event families to the topics downstream consumers
// subscribe to. Catalog consumers only see record changes; suggestion
// lifecycle and karma adjustments stay on moderation topics.
func DefaultTopicRoutes() map[string]string {
	return map[string]string{
		"suggestion": "moderation.suggestions",
		"record":     "catalog.records",
		"karma":      "moderation.karma",
	}
}

// OutboxRelay drains pending outbox rows onto the bus. Rows are published in
// commit order and the cycle stops at the first failure, so a record's
// changes never overtake each other on their topic.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	// Routes keys are the event type prefix before the first dot. Families
	// without a route publish on the event type itself.
	Routes map[string]string
	Logger *slog.Logger
}

// Topic resolves the bus topic for an event type.
func (r OutboxRelay) Topic(eventType string) string {
	family, _, _ := strings.Cut(eventType, ".")
	if topic, ok := r.Routes[family]; ok && topic != "" {
		return topic
	}
	return eventType
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("moderation outbox list failed",
			"event", "moderation_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		logger.Debug("moderation outbox empty",
			"event", "moderation_outbox_relay_idle",
			"module", application.ModuleName,
			"layer", "worker",
		)
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	perTopic := make(map[string]int)
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("moderation outbox decode failed",
				"event", "moderation_outbox_decode_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.ID,
				"error", err.Error(),
			)
			return err
		}
		if event.EventType == "" {
			event.EventType = row.EventType
		}

		topic := r.Topic(event.EventType)
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("moderation outbox publish failed",
				"event", "moderation_outbox_publish_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.ID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"topic", topic,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.ID, now); err != nil {
			logger.Error("moderation outbox mark published failed",
				"event", "moderation_outbox_mark_published_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.ID,
				"error", err.Error(),
			)
			return err
		}
		perTopic[topic]++
	}

	topics := make([]string, 0, len(perTopic))
	for topic := range perTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	summary := make([]any, 0, len(topics))
	for _, topic := range topics {
		summary = append(summary, slog.Int(topic, perTopic[topic]))
	}
	logger.Info("moderation outbox relay cycle completed",
		"event", "moderation_outbox_relay_completed",
		"module", application.ModuleName,
		"layer", "worker",
		"published_count", len(pending),
		slog.Group("topics", summary...),
	)
	return nil
}
