package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/common/domain"
	"github.com/parkwise/service-parking/internal/common/kafka"
	bookingDomain "github.com/parkwise/service-parking/internal/domain/booking"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// DefaultTimezone is the zone booking days and hours are evaluated in.
const DefaultTimezone = "Asia/Singapore"

// CreateBookingRequest holds the data needed to reserve a spot.
type CreateBookingRequest struct {
	CarParkNo string                  `json:"carParkNo"`
	Address   string                  `json:"address"`
	Date      string                  `json:"date"`
	HoursFrom bookingDomain.HourOfDay `json:"hoursFrom"`
	HoursTo   bookingDomain.HourOfDay `json:"hoursTo"`
	UserEmail string                  `json:"userEmail"`
}

// CreateBookingResult is returned by CreateBooking. Availability is nil when the
// facility had no known snapshot or the decrement could not be written.
type CreateBookingResult struct {
	Booking      *bookingDomain.Booking
	Availability *facilityDomain.Availability
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID           uuid.UUID  `json:"id"`
	TicketNumber string     `json:"ticketNumber"`
	CarParkNo    string     `json:"carParkNo"`
	Address      string     `json:"address"`
	Date         string     `json:"date"`
	HoursFrom    string     `json:"hoursFrom"`
	HoursTo      string     `json:"hoursTo"`
	UserEmail    string     `json:"userEmail"`
	Status       string     `json:"status"`
	BookedAt     time.Time  `json:"bookedAt"`
	CheckedInAt  *time.Time `json:"checkedInAt,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// AvailabilityAdjuster lowers a facility's free lot count after a booking.
type AvailabilityAdjuster interface {
	Decrement(ctx context.Context, carParkNo string, at time.Time) (*facilityDomain.Availability, error)
}

// BookingOption configures a BookingService.
type BookingOption func(*BookingService)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) BookingOption {
	return func(s *BookingService) { s.clock = clock }
}

// WithLocation sets the zone booking days and hours are evaluated in.
func WithLocation(loc *time.Location) BookingOption {
	return func(s *BookingService) { s.loc = loc }
}

// BookingService is the application service orchestrating the booking lifecycle.
type BookingService struct {
	repo         bookingDomain.BookingRepository
	availability AvailabilityAdjuster
	publisher    kafka.Publisher
	clock        func() time.Time
	loc          *time.Location
	logger       *zap.Logger
}

// NewBookingService creates a new BookingService. availability may be nil.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	availability AvailabilityAdjuster,
	publisher kafka.Publisher,
	logger *zap.Logger,
	opts ...BookingOption,
) *BookingService {
	s := &BookingService{
		repo:         repo,
		availability: availability,
		publisher:    publisher,
		clock:        time.Now,
		loc:          time.UTC,
		logger:       logger,
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		s.loc = loc
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone booking days are evaluated in.
func (s *BookingService) Location() *time.Location { return s.loc }

// Now returns the service clock's current time.
func (s *BookingService) Now() time.Time { return s.clock() }

// CreateBooking validates and stores a reservation, then decrements the facility's
// availability snapshot if one is known.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error) {
	now := s.clock()

	bk, err := bookingDomain.NewBooking(bookingDomain.NewBookingParams{
		CarParkNo: req.CarParkNo,
		Address:   req.Address,
		Date:      req.Date,
		HoursFrom: req.HoursFrom,
		HoursTo:   req.HoursTo,
		UserEmail: req.UserEmail,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, domain.NewOperationError(bookingDomain.ErrBookingFailed, err)
	}

	result := &CreateBookingResult{Booking: bk}
	if s.availability != nil {
		snap, err := s.availability.Decrement(ctx, bk.CarParkNo(), now)
		if err != nil {
			s.logger.Warn("failed to decrement availability",
				zap.String("car_park_no", bk.CarParkNo()),
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
		} else {
			result.Availability = snap
		}
	}

	s.publishBookingEvent(ctx, BookingCreated, bk)

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("ticket_number", bk.TicketNumber()),
		zap.String("car_park_no", bk.CarParkNo()),
	)
	return result, nil
}

// ListBookings returns every booking owned by email. An empty email yields an
// empty list without touching the store.
func (s *BookingService) ListBookings(ctx context.Context, email string) ([]*bookingDomain.Booking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return []*bookingDomain.Booking{}, nil
	}

	bookings, err := s.repo.FindByUserEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []*bookingDomain.Booking{}
	}
	return bookings, nil
}

// GetBooking retrieves a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*bookingDomain.Booking, error) {
	return s.repo.FindByID(ctx, bookingID)
}

// CheckIn completes a booking when called on its booking day within its hour window.
func (s *BookingService) CheckIn(ctx context.Context, bookingID uuid.UUID) (*bookingDomain.Booking, error) {
	bk, err := s.load(ctx, bookingID, bookingDomain.ErrCheckInFailed)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if err := bk.CheckIn(now.In(s.loc).Hour(), bk.IsBookingDay(now, s.loc), now); err != nil {
		return nil, err
	}

	if err := s.persistStatus(ctx, bk, bookingDomain.ErrCheckInFailed); err != nil {
		return nil, err
	}

	s.publishBookingEvent(ctx, BookingCheckedIn, bk)
	return bk, nil
}

// Cancel cancels a booking. Availability is not restored.
func (s *BookingService) Cancel(ctx context.Context, bookingID uuid.UUID) (*bookingDomain.Booking, error) {
	bk, err := s.load(ctx, bookingID, bookingDomain.ErrCancelFailed)
	if err != nil {
		return nil, err
	}

	if err := bk.Cancel(s.clock()); err != nil {
		return nil, err
	}

	if err := s.persistStatus(ctx, bk, bookingDomain.ErrCancelFailed); err != nil {
		return nil, err
	}

	s.publishBookingEvent(ctx, BookingCancelled, bk)
	return bk, nil
}

// ChangeTiming deletes an ongoing booking so the caller can book a new window.
// It returns the removed booking.
func (s *BookingService) ChangeTiming(ctx context.Context, bookingID uuid.UUID) (*bookingDomain.Booking, error) {
	bk, err := s.load(ctx, bookingID, bookingDomain.ErrChangeTimingFailed)
	if err != nil {
		return nil, err
	}

	if err := bk.EnsureRemovable(); err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, bk.ID()); err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, domain.NewOperationError(bookingDomain.ErrChangeTimingFailed, err)
	}

	s.publishBookingEvent(ctx, BookingRemoved, bk)
	return bk, nil
}

// Expire cancels bk if its window has ended. The caller's value is never mutated;
// the returned booking is the persisted result, or nil when nothing changed.
// A bk that is older than the stored booking fails with ErrBookingChanged and
// leaves the store untouched.
func (s *BookingService) Expire(ctx context.Context, bk *bookingDomain.Booking) (*bookingDomain.Booking, error) {
	candidate := bk.Clone()
	if !candidate.Expire(s.clock(), s.loc) {
		return nil, nil
	}

	if err := s.persistStatus(ctx, candidate, bookingDomain.ErrCancelFailed); err != nil {
		return nil, err
	}

	s.publishBookingEvent(ctx, BookingExpired, candidate)
	return candidate, nil
}

// --- Admin methods ---

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return ToBookingDTOs(bookings), total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// --- Helpers ---

// ToBookingDTO converts a booking aggregate to its response form.
func ToBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:           bk.ID(),
		TicketNumber: bk.TicketNumber(),
		CarParkNo:    bk.CarParkNo(),
		Address:      bk.Address(),
		Date:         bk.Date().String(),
		HoursFrom:    bk.HoursFrom().String(),
		HoursTo:      bk.HoursTo().String(),
		UserEmail:    bk.UserEmail(),
		Status:       string(bk.Status()),
		BookedAt:     bk.BookedAt(),
		CheckedInAt:  bk.CheckedInAt(),
		CancelledAt:  bk.CancelledAt(),
		UpdatedAt:    bk.UpdatedAt(),
	}
}

// ToBookingDTOs converts a slice of bookings, never returning nil.
func ToBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = ToBookingDTO(bk)
	}
	return dtos
}

// load fetches a booking. Not-found passes through; other store faults are
// reported under the operation's sentinel.
func (s *BookingService) load(ctx context.Context, id uuid.UUID, op error) (*bookingDomain.Booking, error) {
	bk, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, domain.NewOperationError(op, err)
	}
	return bk, nil
}

// persistStatus writes a status transition. Missing and concurrently changed
// bookings pass through as is; other store faults are reported under op.
func (s *BookingService) persistStatus(ctx context.Context, bk *bookingDomain.Booking, op error) error {
	err := s.repo.UpdateStatus(ctx, bk)
	if err == nil {
		return nil
	}
	if domain.IsNotFound(err) || errors.Is(err, bookingDomain.ErrBookingChanged) {
		return err
	}
	return domain.NewOperationError(op, err)
}

func (s *BookingService) publishBookingEvent(ctx context.Context, eventType string, bk *bookingDomain.Booking) {
	evt := BookingLifecycleEvent{
		BookingID:    bk.ID(),
		TicketNumber: bk.TicketNumber(),
		CarParkNo:    bk.CarParkNo(),
		UserEmail:    bk.UserEmail(),
		Date:         bk.Date().String(),
		HoursFrom:    bk.HoursFrom().String(),
		HoursTo:      bk.HoursTo().String(),
		Status:       string(bk.Status()),
		OccurredAt:   s.clock().UTC(),
	}
	publishEvent(ctx, s.publisher, s.logger, TopicBookingEvents, eventType, bk.ID().String(), evt)
}
