package consumers

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"argus/internal/adapters/kafka"
	"argus/internal/domain/alert"
	"argus/internal/metrics"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// Notifier delivers one alert to its destination.
type Notifier interface {
	Notify(ctx context.Context, event alert.Event) error
}

// AlertNotificationConsumer reads alert events off Kafka and forwards them
// to Telegram. Delivery is best-effort per message: a failed send is logged
// and counted, never retried against the broker, so a flaky chat cannot
// stall the alert topic.
type AlertNotificationConsumer struct {
	consumer *kafka.Consumer
	notifier Notifier
	log      *logger.Logger
}

// NewAlertNotificationConsumer creates the alert delivery consumer
func NewAlertNotificationConsumer(consumer *kafka.Consumer, notifier Notifier) *AlertNotificationConsumer {
	return &AlertNotificationConsumer{
		consumer: consumer,
		notifier: notifier,
		log:      logger.Get().With("component", "alert_notification_consumer"),
	}
}

// Start consumes until ctx is cancelled.
func (c *AlertNotificationConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting alert notification consumer...")

	defer func() {
		if err := c.consumer.Close(); err != nil {
			c.log.Errorw("Failed to close alert consumer", "error", err)
		}
	}()

	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Alert notification consumer stopping (context cancelled)")
				return nil
			}
			c.log.Debugw("Failed to read message", "error", err)
			continue
		}

		metrics.RecordKafkaMessage(msg.Topic, "consumed", nil)

		processCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := c.handleMessage(processCtx, msg); err != nil {
			c.log.Errorw("Failed to deliver alert", "error", err)
		}
		cancel()

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *AlertNotificationConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var event alert.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return errors.Wrap(err, "unmarshal alert event")
	}

	if err := c.notifier.Notify(ctx, event); err != nil {
		metrics.AlertsDelivered.WithLabelValues(event.AlertType, "error").Inc()
		return errors.Wrap(err, "notify")
	}

	metrics.AlertsDelivered.WithLabelValues(event.AlertType, "success").Inc()
	c.log.Debugw("alert delivered",
		"alert_id", event.ID,
		"alert_type", event.AlertType,
		"wallet", event.Wallet,
	)
	return nil
}
