package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/application"
	"github.com/parkwise/service-parking/internal/common/kafka"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// AvailabilityIngester stores snapshots received from the broker.
type AvailabilityIngester interface {
	Ingest(ctx context.Context, snapshots []facilityDomain.Availability, source facilityDomain.Source) (int, error)
}

// AvailabilityEventConsumer applies availability updates published by upstream systems.
type AvailabilityEventConsumer struct {
	consumer *kafka.Consumer
	ingester AvailabilityIngester
	logger   *zap.Logger
}

// NewAvailabilityEventConsumer creates a new AvailabilityEventConsumer.
func NewAvailabilityEventConsumer(
	brokers []string,
	groupID string,
	ingester AvailabilityIngester,
	logger *zap.Logger,
) *AvailabilityEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, application.TopicAvailabilityEvents, logger)
	return &AvailabilityEventConsumer{
		consumer: consumer,
		ingester: ingester,
		logger:   logger,
	}
}

// Start begins consuming availability events. This blocks until the context is cancelled.
func (c *AvailabilityEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *AvailabilityEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *AvailabilityEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from availability topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case application.AvailabilityUpdated:
		return c.handleAvailabilityUpdated(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled availability event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *AvailabilityEventConsumer) handleAvailabilityUpdated(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt application.AvailabilityUpdatedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse AvailabilityUpdatedEvent data", zap.Error(err))
		return nil
	}
	if len(evt.Snapshots) == 0 {
		return nil
	}

	n, err := c.ingester.Ingest(ctx, evt.Snapshots, facilityDomain.SourceEvent)
	if err != nil {
		c.logger.Error("failed to apply availability event",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Debug("availability event applied",
		zap.String("event_id", cloudEvent.ID),
		zap.Int("count", n),
	)
	return nil
}
