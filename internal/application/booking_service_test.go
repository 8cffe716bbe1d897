package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/common/domain"
	bookingDomain "github.com/parkwise/service-parking/internal/domain/booking"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// 1 May 2024, 10:30 in Singapore.
var morning = time.Date(2024, time.May, 1, 10, 30, 0, 0, sgt)

func TestBookingService_CreateBooking(t *testing.T) {
	f := newBookingFixture(t, morning)
	ctx := context.Background()

	res, err := f.service.CreateBooking(ctx, CreateBookingRequest{
		CarParkNo: "ACB",
		Address:   "Albert Centre",
		HoursFrom: bookingDomain.MustHour(10),
		HoursTo:   bookingDomain.MustHour(12),
		UserEmail: "driver@example.com",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Availability, "no snapshot is known for the facility")
	assert.Equal(t, bookingDomain.DateToday, res.Booking.Date())

	stored, err := f.repo.FindByID(ctx, res.Booking.ID())
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusOngoing, stored.Status())
	assert.Equal(t, []string{BookingCreated}, f.publisher.types())

	var evt BookingLifecycleEvent
	require.NoError(t, f.publisher.events[0].Event.ParseData(&evt))
	assert.Equal(t, res.Booking.ID(), evt.BookingID)
	assert.Equal(t, "10", evt.HoursFrom)
	assert.Equal(t, TopicBookingEvents, f.publisher.events[0].Topic)
}

func TestBookingService_CreateBookingDecrementsAvailability(t *testing.T) {
	f := newBookingFixture(t, morning)
	ctx := context.Background()

	require.NoError(t, f.availability.Put(ctx, facilityDomain.Availability{
		CarParkNo: "ACB", TotalLots: 50, LotsAvailable: 1, LotType: "C",
	}))

	res, err := f.service.CreateBooking(ctx, CreateBookingRequest{
		CarParkNo: "ACB",
		HoursFrom: bookingDomain.MustHour(10),
		HoursTo:   bookingDomain.MustHour(12),
		UserEmail: "driver@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Availability)
	assert.Equal(t, 0, res.Availability.LotsAvailable)
	assert.Equal(t, facilityDomain.SourceBooking, res.Availability.Source)

	// A second booking cannot push the count below zero.
	res, err = f.service.CreateBooking(ctx, CreateBookingRequest{
		CarParkNo: "ACB",
		HoursFrom: bookingDomain.MustHour(13),
		HoursTo:   bookingDomain.MustHour(14),
		UserEmail: "driver@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Availability.LotsAvailable)
}

func TestBookingService_CreateBookingValidationWritesNothing(t *testing.T) {
	repo := new(mockBookingRepository)
	publisher := &recordingPublisher{}
	svc := NewBookingService(repo, nil, publisher, zap.NewNop(), WithClock(func() time.Time { return morning }))

	_, err := svc.CreateBooking(context.Background(), CreateBookingRequest{
		CarParkNo: "ACB",
		HoursFrom: bookingDomain.MustHour(12),
		HoursTo:   bookingDomain.MustHour(10),
		UserEmail: "driver@example.com",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookingDomain.ErrInvalidWindow)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, publisher.types())
}

func TestBookingService_CreateBookingStoreFailure(t *testing.T) {
	repo := new(mockBookingRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	publisher := &recordingPublisher{}
	svc := NewBookingService(repo, nil, publisher, zap.NewNop())

	_, err := svc.CreateBooking(context.Background(), CreateBookingRequest{
		CarParkNo: "ACB",
		HoursFrom: bookingDomain.MustHour(10),
		HoursTo:   bookingDomain.MustHour(12),
		UserEmail: "driver@example.com",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bookingDomain.ErrBookingFailed)
	assert.Equal(t, domain.KindOperationFailed, domain.KindOf(err))
	assert.Equal(t, "Failed to book spot: connection reset", err.Error())
	assert.Empty(t, publisher.types())
}

func TestBookingService_ListBookings(t *testing.T) {
	f := newBookingFixture(t, morning)
	f.book(t, "Today", 10, 12)
	f.clock.Set(morning.Add(time.Minute))
	second := f.book(t, "Tomorrow", 8, 9)

	got, err := f.service.ListBookings(context.Background(), "driver@example.com")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID(), got[0].ID(), "newest first")

	got, err = f.service.ListBookings(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBookingService_ListBookingsWithoutEmailSkipsStore(t *testing.T) {
	repo := new(mockBookingRepository)
	svc := NewBookingService(repo, nil, &recordingPublisher{}, zap.NewNop())

	got, err := svc.ListBookings(context.Background(), "  ")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	repo.AssertNotCalled(t, "FindByUserEmail", mock.Anything, mock.Anything)
}

func TestBookingService_CheckIn(t *testing.T) {
	f := newBookingFixture(t, morning)
	ctx := context.Background()

	t.Run("inside window", func(t *testing.T) {
		bk := f.book(t, "Today", 10, 12)
		got, err := f.service.CheckIn(ctx, bk.ID())
		require.NoError(t, err)
		assert.Equal(t, bookingDomain.StatusCompleted, got.Status())

		stored, err := f.repo.FindByID(ctx, bk.ID())
		require.NoError(t, err)
		assert.Equal(t, bookingDomain.StatusCompleted, stored.Status())
		assert.NotNil(t, stored.CheckedInAt())
	})

	t.Run("booked for tomorrow", func(t *testing.T) {
		bk := f.book(t, "Tomorrow", 10, 12)
		_, err := f.service.CheckIn(ctx, bk.ID())
		assert.ErrorIs(t, err, bookingDomain.ErrCheckInDayMismatch)
		assert.Equal(t, bookingDomain.ErrCheckInDayMismatch.Error(), err.Error())

		stored, err := f.repo.FindByID(ctx, bk.ID())
		require.NoError(t, err)
		assert.Equal(t, bookingDomain.StatusOngoing, stored.Status())
	})

	t.Run("window not started", func(t *testing.T) {
		bk := f.book(t, "Today", 11, 12)
		_, err := f.service.CheckIn(ctx, bk.ID())
		assert.ErrorIs(t, err, bookingDomain.ErrCheckInOutsideWindow)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.service.CheckIn(ctx, uuid.New())
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestBookingService_CheckInNextDay(t *testing.T) {
	f := newBookingFixture(t, morning)
	bk := f.book(t, "Tomorrow", 9, 11)

	f.clock.Set(morning.Add(24 * time.Hour))
	got, err := f.service.CheckIn(context.Background(), bk.ID())
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusCompleted, got.Status())
}

func TestBookingService_CheckInStoreFault(t *testing.T) {
	repo := new(mockBookingRepository)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	svc := NewBookingService(repo, nil, &recordingPublisher{}, zap.NewNop())

	_, err := svc.CheckIn(context.Background(), uuid.New())
	assert.ErrorIs(t, err, bookingDomain.ErrCheckInFailed)
	assert.Equal(t, "Failed to check in: timeout", err.Error())
}

func TestBookingService_CancelKeepsAvailability(t *testing.T) {
	f := newBookingFixture(t, morning)
	ctx := context.Background()
	require.NoError(t, f.availability.Put(ctx, facilityDomain.Availability{CarParkNo: "ACB", TotalLots: 10, LotsAvailable: 5}))

	bk := f.book(t, "Today", 14, 16)
	got, err := f.service.Cancel(ctx, bk.ID())
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusCancelled, got.Status())

	snap, ok, err := f.availability.Snapshot(ctx, "ACB")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, snap.LotsAvailable)
	assert.Equal(t, []string{BookingCreated, BookingCancelled}, f.publisher.types())
}

func TestBookingService_CancelCompletedFails(t *testing.T) {
	f := newBookingFixture(t, morning)
	bk := f.book(t, "Today", 10, 12)
	_, err := f.service.CheckIn(context.Background(), bk.ID())
	require.NoError(t, err)

	_, err = f.service.Cancel(context.Background(), bk.ID())
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
}

func TestBookingService_ChangeTiming(t *testing.T) {
	f := newBookingFixture(t, morning)
	ctx := context.Background()

	bk := f.book(t, "Today", 14, 16)
	removed, err := f.service.ChangeTiming(ctx, bk.ID())
	require.NoError(t, err)
	assert.Equal(t, bk.ID(), removed.ID())

	_, err = f.repo.FindByID(ctx, bk.ID())
	assert.True(t, domain.IsNotFound(err))
	assert.Contains(t, f.publisher.types(), BookingRemoved)

	_, err = f.service.ChangeTiming(ctx, bk.ID())
	assert.True(t, domain.IsNotFound(err))
}

func TestBookingService_ChangeTimingRejectsFinishedBooking(t *testing.T) {
	f := newBookingFixture(t, morning)
	bk := f.book(t, "Today", 14, 16)
	_, err := f.service.Cancel(context.Background(), bk.ID())
	require.NoError(t, err)

	_, err = f.service.ChangeTiming(context.Background(), bk.ID())
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
}

func TestBookingService_Expire(t *testing.T) {
	f := newBookingFixture(t, morning)
	ctx := context.Background()
	bk := f.book(t, "Today", 10, 11)

	got, err := f.service.Expire(ctx, bk)
	require.NoError(t, err)
	assert.Nil(t, got, "window still open")

	f.clock.Set(morning.Add(30 * time.Minute)) // 11:00
	got, err = f.service.Expire(ctx, bk)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bookingDomain.StatusCancelled, got.Status())
	assert.Equal(t, bookingDomain.StatusOngoing, bk.Status(), "input is not mutated")

	stored, err := f.repo.FindByID(ctx, bk.ID())
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusCancelled, stored.Status())
	assert.Contains(t, f.publisher.types(), BookingExpired)
}

func TestBookingService_ExpireWriteFailure(t *testing.T) {
	bk, err := bookingDomain.NewBooking(bookingDomain.NewBookingParams{
		CarParkNo: "ACB",
		HoursFrom: bookingDomain.MustHour(8),
		HoursTo:   bookingDomain.MustHour(9),
		UserEmail: "driver@example.com",
	}, morning.Add(-3*time.Hour))
	require.NoError(t, err)

	repo := new(mockBookingRepository)
	repo.On("UpdateStatus", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	publisher := &recordingPublisher{}
	svc := NewBookingService(repo, nil, publisher, zap.NewNop(),
		WithClock(func() time.Time { return morning }), WithLocation(sgt))

	got, err := svc.Expire(context.Background(), bk)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, bookingDomain.ErrCancelFailed)
	assert.Equal(t, bookingDomain.StatusOngoing, bk.Status())
	assert.Empty(t, publisher.types())
}

func TestBookingService_PublishFailureDoesNotFailOperation(t *testing.T) {
	f := newBookingFixture(t, morning)
	f.publisher.err = errors.New("broker down")

	bk := f.book(t, "Today", 10, 12)
	_, err := f.service.CheckIn(context.Background(), bk.ID())
	assert.NoError(t, err)
}

func TestBookingService_AdminStats(t *testing.T) {
	f := newBookingFixture(t, morning)
	ctx := context.Background()
	f.book(t, "Today", 10, 12)
	bk := f.book(t, "Today", 14, 15)
	_, err := f.service.Cancel(ctx, bk.ID())
	require.NoError(t, err)

	stats, err := f.service.GetBookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBookings)
	assert.Equal(t, int64(1), stats.ByStatus["cancelled"])

	list, total, err := f.service.ListAllBookings(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
}
