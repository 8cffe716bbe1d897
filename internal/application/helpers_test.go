package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parkwise/service-parking/internal/common/database"
	"github.com/parkwise/service-parking/internal/common/kafka"
	bookingDomain "github.com/parkwise/service-parking/internal/domain/booking"
	"github.com/parkwise/service-parking/internal/repository"
)

var sgt = time.FixedZone("SGT", 8*60*60)

// fixedClock is a settable clock shared by a test's services.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// recordingPublisher captures published events and can be made to fail.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

type published struct {
	Topic string
	Event kafka.CloudEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{Topic: topic, Event: event})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event.Type
	}
	return out
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(fmt.Sprintf("file:app_%s?mode=memory&cache=shared", uuid.New().String()))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(repository.Models()...))
	return db
}

// bookingFixture wires a BookingService over sqlite with a controllable clock.
type bookingFixture struct {
	db           *gorm.DB
	repo         *repository.GormBookingRepository
	availability *AvailabilityService
	publisher    *recordingPublisher
	clock        *fixedClock
	service      *BookingService
}

func newBookingFixture(t *testing.T, now time.Time) *bookingFixture {
	t.Helper()
	db := setupDB(t)
	logger := zap.NewNop()
	f := &bookingFixture{
		db:        db,
		repo:      repository.NewGormBookingRepository(db),
		publisher: &recordingPublisher{},
		clock:     newClock(now),
	}
	f.availability = NewAvailabilityService(repository.NewGormAvailabilityRepository(db), nil, logger)
	f.service = NewBookingService(f.repo, f.availability, f.publisher, logger,
		WithClock(f.clock.Now), WithLocation(sgt))
	return f
}

func (f *bookingFixture) book(t *testing.T, date string, from, to int) *bookingDomain.Booking {
	t.Helper()
	res, err := f.service.CreateBooking(context.Background(), CreateBookingRequest{
		CarParkNo: "ACB",
		Address:   "Albert Centre",
		Date:      date,
		HoursFrom: bookingDomain.MustHour(from),
		HoursTo:   bookingDomain.MustHour(to),
		UserEmail: "driver@example.com",
	})
	require.NoError(t, err)
	return res.Booking
}

// mockBookingRepository lets tests inject store faults.
type mockBookingRepository struct {
	mock.Mock
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bookingDomain.Booking), args.Error(1)
}

func (m *mockBookingRepository) FindByUserEmail(ctx context.Context, email string) ([]*bookingDomain.Booking, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bookingDomain.Booking), args.Error(1)
}

func (m *mockBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	args := m.Called(ctx, page, limit)
	return args.Get(0).([]*bookingDomain.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *mockBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *mockBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	return m.Called(ctx, bk).Error(0)
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, bk *bookingDomain.Booking) error {
	return m.Called(ctx, bk).Error(0)
}

func (m *mockBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// staticWorkingSet is a minimal WorkingSet for sweeper tests.
type staticWorkingSet struct {
	mu      sync.Mutex
	ongoing   []*bookingDomain.Booking
	applied   []*bookingDomain.Booking
	forgotten []uuid.UUID
}

func (w *staticWorkingSet) Ongoing() []*bookingDomain.Booking {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*bookingDomain.Booking, len(w.ongoing))
	copy(out, w.ongoing)
	return out
}

func (w *staticWorkingSet) Apply(updated []*bookingDomain.Booking) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.applied = append(w.applied, updated...)
	byID := make(map[uuid.UUID]bool, len(updated))
	for _, bk := range updated {
		byID[bk.ID()] = true
	}
	kept := w.ongoing[:0]
	for _, bk := range w.ongoing {
		if !byID[bk.ID()] {
			kept = append(kept, bk)
		}
	}
	w.ongoing = kept
}

func (w *staticWorkingSet) Forget(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forgotten = append(w.forgotten, id)
	kept := w.ongoing[:0]
	for _, bk := range w.ongoing {
		if bk.ID() != id {
			kept = append(kept, bk)
		}
	}
	w.ongoing = kept
}

func (w *staticWorkingSet) forgottenIDs() []uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]uuid.UUID, len(w.forgotten))
	copy(out, w.forgotten)
	return out
}

func (w *staticWorkingSet) appliedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.applied)
}
