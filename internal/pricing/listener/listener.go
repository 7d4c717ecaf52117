package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/fekuna/omnipos-pricing-service/pkg/broker"
	"github.com/fekuna/omnipos-pricing-service/pkg/logger"
	"go.uber.org/zap"
)

// RuleListener consumes rule-change events from the rule store and clears
// the engine caches, which is the strong-consistency path after a rule edit.
type RuleListener struct {
	consumer *broker.KafkaConsumer
	uc       pricing.UseCase
	logger   logger.ZapLogger
}

func NewRuleListener(consumer *broker.KafkaConsumer, uc pricing.UseCase, logger logger.ZapLogger) *RuleListener {
	return &RuleListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *RuleListener) Start(ctx context.Context) {
	l.logger.Info("Starting Pricing Rule Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Pricing Rule Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				// Don't log context canceled error as error
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type RuleChangedEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	RuleID    string    `json:"rule_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (l *RuleListener) processMessage(ctx context.Context, value []byte) {
	var event RuleChangedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	switch event.EventType {
	case "RuleCreated", "RuleUpdated", "RuleDeleted":
	default:
		return
	}

	l.logger.Info("Processing rule change event",
		zap.String("event_type", event.EventType),
		zap.String("rule_id", event.RuleID),
	)

	res, err := l.uc.ClearCache(ctx)
	if err != nil {
		l.logger.Error("Failed to clear pricing cache after rule change",
			zap.String("rule_id", event.RuleID),
			zap.Error(err),
		)
		return
	}
	l.logger.Info("Pricing cache invalidated", zap.Int("entries_cleared", res.EntriesCleared))
}
