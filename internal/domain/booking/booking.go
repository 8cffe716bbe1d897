package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parkwise/service-parking/internal/common/domain"
)

const ticketNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for a parking reservation.
type Booking struct {
	id           uuid.UUID
	ticketNumber string
	carParkNo    string
	address      string
	date         ReservationDate
	hoursFrom    HourOfDay
	hoursTo      HourOfDay
	userEmail    string
	status       BookingStatus
	version      int64

	bookedAt    time.Time
	checkedInAt *time.Time
	cancelledAt *time.Time
	updatedAt   time.Time
}

// NewBookingParams holds the caller input for a reservation.
type NewBookingParams struct {
	CarParkNo string
	Address   string
	Date      string
	HoursFrom HourOfDay
	HoursTo   HourOfDay
	UserEmail string
}

// generateTicketNumber creates a ticket number in the format "PK-XXXXXX".
func generateTicketNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(ticketNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate ticket number: %w", err)
		}
		result[i] = ticketNumberChars[n.Int64()]
	}
	return "PK-" + string(result), nil
}

// Validate checks reservation input in the order callers see the errors.
func (p NewBookingParams) Validate() error {
	if strings.TrimSpace(p.UserEmail) == "" {
		return domain.NewValidationErrorFrom(ErrUserEmailMissing)
	}
	if !p.HoursFrom.IsSet() || !p.HoursTo.IsSet() {
		return domain.NewValidationErrorFrom(ErrHoursMissing)
	}
	if p.HoursFrom.Int() >= p.HoursTo.Int() {
		return domain.NewValidationErrorFrom(ErrInvalidWindow)
	}
	if strings.TrimSpace(p.CarParkNo) == "" {
		return domain.NewValidationErrorFrom(ErrCarParkMissing)
	}
	if _, err := ParseReservationDate(p.Date); err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}

// NewBooking creates an ongoing Booking booked at now.
func NewBooking(p NewBookingParams, now time.Time) (*Booking, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	date, _ := ParseReservationDate(p.Date)

	ticketNumber, err := generateTicketNumber()
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Booking{
		id:           uuid.New(),
		ticketNumber: ticketNumber,
		carParkNo:    strings.TrimSpace(p.CarParkNo),
		address:      p.Address,
		date:         date,
		hoursFrom:    p.HoursFrom,
		hoursTo:      p.HoursTo,
		userEmail:    strings.TrimSpace(p.UserEmail),
		status:       StatusOngoing,
		version:      1,
		bookedAt:     now,
		updatedAt:    now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	ticketNumber string,
	carParkNo string,
	address string,
	date ReservationDate,
	hoursFrom HourOfDay,
	hoursTo HourOfDay,
	userEmail string,
	status BookingStatus,
	bookedAt time.Time,
	checkedInAt *time.Time,
	cancelledAt *time.Time,
	updatedAt time.Time,
	version int64,
) *Booking {
	return &Booking{
		id:           id,
		ticketNumber: ticketNumber,
		carParkNo:    carParkNo,
		address:      address,
		date:         date,
		hoursFrom:    hoursFrom,
		hoursTo:      hoursTo,
		userEmail:    userEmail,
		status:       status,
		bookedAt:     bookedAt,
		checkedInAt:  checkedInAt,
		cancelledAt:  cancelledAt,
		updatedAt:    updatedAt,
		version:      version,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// TicketNumber returns the human-readable ticket number.
func (b *Booking) TicketNumber() string { return b.ticketNumber }

// CarParkNo returns the facility identifier.
func (b *Booking) CarParkNo() string { return b.carParkNo }

// Address returns the facility address captured at booking time.
func (b *Booking) Address() string { return b.address }

// Date returns the relative reservation day.
func (b *Booking) Date() ReservationDate { return b.date }

// HoursFrom returns the first reserved hour.
func (b *Booking) HoursFrom() HourOfDay { return b.hoursFrom }

// HoursTo returns the hour the reservation ends (exclusive).
func (b *Booking) HoursTo() HourOfDay { return b.hoursTo }

// UserEmail returns the owner's email.
func (b *Booking) UserEmail() string { return b.userEmail }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// BookedAt returns the creation timestamp.
func (b *Booking) BookedAt() time.Time { return b.bookedAt }

// CheckedInAt returns when the booking was first checked in, or nil.
func (b *Booking) CheckedInAt() *time.Time { return b.checkedInAt }

// CancelledAt returns when the booking was first cancelled, or nil.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// Version returns the entity version used for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// ReservationDay returns the calendar day in loc that the reservation applies to.
func (b *Booking) ReservationDay(loc *time.Location) time.Time {
	return b.date.Day(b.bookedAt, loc)
}

// IsBookingDay reports whether now falls on the reservation day in loc.
func (b *Booking) IsBookingDay(now time.Time, loc *time.Location) bool {
	return sameDay(b.ReservationDay(loc), now, loc)
}

// CheckIn marks the booking completed. It is allowed only on the booking day and
// within [hoursFrom, hoursTo). Checking in an already completed booking re-applies completed.
func (b *Booking) CheckIn(nowHour int, onBookingDay bool, at time.Time) error {
	if !b.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	if !onBookingDay {
		return domain.NewNotAllowedError(ErrCheckInDayMismatch)
	}
	if nowHour < b.hoursFrom.Int() || nowHour >= b.hoursTo.Int() {
		return domain.NewNotAllowedError(ErrCheckInOutsideWindow)
	}

	at = at.UTC()
	b.status = StatusCompleted
	if b.checkedInAt == nil {
		b.checkedInAt = &at
	}
	b.updatedAt = at
	b.version++
	return nil
}

// Cancel marks the booking cancelled. There is no time gate.
func (b *Booking) Cancel(at time.Time) error {
	if !b.status.CanTransitionTo(StatusCancelled) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	at = at.UTC()
	b.status = StatusCancelled
	if b.cancelledAt == nil {
		b.cancelledAt = &at
	}
	b.updatedAt = at
	b.version++
	return nil
}

// IsExpired reports whether an ongoing booking's window has ended as of now:
// its reservation day is today and hoursTo <= the current hour, or the day is already past.
func (b *Booking) IsExpired(now time.Time, loc *time.Location) bool {
	if b.status != StatusOngoing {
		return false
	}
	day := b.ReservationDay(loc)
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if day.Before(today) {
		return true
	}
	return day.Equal(today) && b.hoursTo.Int() <= local.Hour()
}

// Expire cancels the booking if IsExpired. It reports whether a transition happened.
func (b *Booking) Expire(now time.Time, loc *time.Location) bool {
	if !b.IsExpired(now, loc) {
		return false
	}
	return b.Cancel(now) == nil
}

// Clone returns a copy that can be mutated without affecting b.
func (b *Booking) Clone() *Booking {
	c := *b
	return &c
}

// EnsureRemovable returns an error unless the booking may be deleted for rebooking.
func (b *Booking) EnsureRemovable() error {
	if !b.status.CanBeRemoved() {
		return domain.NewInvalidStateError(string(b.status), "removed")
	}
	return nil
}
