package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/common/kafka"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// EventSource is the CloudEvent source of everything this service publishes.
const EventSource = "service-parking"

// Topics.
const (
	TopicBookingEvents      = "parking.booking.events"
	TopicAvailabilityEvents = "parking.availability.events"
	TopicUserEvents         = "parking.user.events"
)

// Event types.
const (
	BookingCreated   = "parking.booking.created"
	BookingCheckedIn = "parking.booking.checked_in"
	BookingCancelled = "parking.booking.cancelled"
	BookingExpired   = "parking.booking.expired"
	BookingRemoved   = "parking.booking.removed"

	AvailabilityUpdated = "parking.availability.updated"

	PasswordResetRequested = "parking.user.password_reset_requested"
)

// BookingLifecycleEvent is the payload of every booking event.
type BookingLifecycleEvent struct {
	BookingID    uuid.UUID `json:"booking_id"`
	TicketNumber string    `json:"ticket_number"`
	CarParkNo    string    `json:"car_park_no"`
	UserEmail    string    `json:"user_email"`
	Date         string    `json:"date"`
	HoursFrom    string    `json:"hours_from"`
	HoursTo      string    `json:"hours_to"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// AvailabilityUpdatedEvent carries one or more snapshots pushed by an upstream system.
type AvailabilityUpdatedEvent struct {
	Snapshots  []facilityDomain.Availability `json:"snapshots"`
	OccurredAt time.Time                     `json:"occurred_at"`
}

// PasswordResetRequestedEvent asks the notification service to send a reset mail.
type PasswordResetRequestedEvent struct {
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requested_at"`
}

// publishEvent wraps data in a CloudEvent and publishes it. Failures are logged, not returned.
func publishEvent(ctx context.Context, publisher kafka.Publisher, logger *zap.Logger, topic, eventType, key string, data interface{}) {
	if err := publishEventStrict(ctx, publisher, topic, eventType, key, data); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// publishEventStrict is publishEvent for callers that must know about delivery failures.
func publishEventStrict(ctx context.Context, publisher kafka.Publisher, topic, eventType, key string, data interface{}) error {
	cloudEvent, err := kafka.NewCloudEvent(EventSource, eventType, data)
	if err != nil {
		return err
	}
	return publisher.PublishEvent(ctx, topic, cloudEvent.WithSubject(key))
}
