package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/common/domain"
	bookingDomain "github.com/parkwise/service-parking/internal/domain/booking"
)

// DefaultSweepInterval is how often a working set is checked for ended windows.
const DefaultSweepInterval = 60 * time.Second

// WorkingSet is the set of bookings a sweep runs over.
type WorkingSet interface {
	// Ongoing returns the bookings currently in the ongoing state.
	Ongoing() []*bookingDomain.Booking
	// Apply replaces held bookings with the given updated versions.
	Apply(updated []*bookingDomain.Booking)
	// Forget drops a booking that no longer exists.
	Forget(id uuid.UUID)
}

// SweepFailure records a booking whose expiry could not be persisted.
type SweepFailure struct {
	BookingID uuid.UUID
	Err       error
}

// SweepResult reports what one sweep changed. Refreshed holds the stored state of
// candidates that were already moved on by another request; Removed lists
// candidates that no longer exist.
type SweepResult struct {
	Expired   []*bookingDomain.Booking
	Refreshed []*bookingDomain.Booking
	Removed   []uuid.UUID
	Failures  []SweepFailure
}

// ExpirySweeper cancels ongoing bookings whose reservation window has ended.
type ExpirySweeper struct {
	bookings *BookingService
	logger   *zap.Logger
}

// NewExpirySweeper creates an ExpirySweeper.
func NewExpirySweeper(bookings *BookingService, logger *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{bookings: bookings, logger: logger}
}

// Sweep expires every candidate whose window has ended. A failed write leaves that
// booking unchanged and does not stop the sweep.
func (s *ExpirySweeper) Sweep(ctx context.Context, candidates []*bookingDomain.Booking) SweepResult {
	var result SweepResult
	for _, bk := range candidates {
		if ctx.Err() != nil {
			break
		}
		expired, err := s.bookings.Expire(ctx, bk)
		switch {
		case errors.Is(err, bookingDomain.ErrBookingChanged):
			err = s.refresh(ctx, bk, &result)
		case domain.IsNotFound(err):
			result.Removed = append(result.Removed, bk.ID())
			continue
		}
		if err != nil {
			result.Failures = append(result.Failures, SweepFailure{BookingID: bk.ID(), Err: err})
			s.logger.Warn("failed to expire booking",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}
		if expired != nil {
			result.Expired = append(result.Expired, expired)
		}
	}
	return result
}

// refresh records the stored state of a stale candidate.
func (s *ExpirySweeper) refresh(ctx context.Context, stale *bookingDomain.Booking, result *SweepResult) error {
	current, err := s.bookings.GetBooking(ctx, stale.ID())
	if domain.IsNotFound(err) {
		result.Removed = append(result.Removed, stale.ID())
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Debug("skipped booking changed elsewhere",
		zap.String("booking_id", stale.ID().String()),
		zap.String("status", current.Status().String()),
	)
	result.Refreshed = append(result.Refreshed, current)
	return nil
}

// SweepHandle stops a running sweep loop.
type SweepHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop ends the loop and waits for an in-flight sweep to finish. It is idempotent.
func (h *SweepHandle) Stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}

// Start sweeps ws every interval until ctx is done or the handle is stopped.
func (s *ExpirySweeper) Start(ctx context.Context, interval time.Duration, ws WorkingSet) *SweepHandle {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	loopCtx, cancel := context.WithCancel(ctx)
	h := &SweepHandle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.runOnce(loopCtx, interval, ws)
			}
		}
	}()
	return h
}

func (s *ExpirySweeper) runOnce(ctx context.Context, interval time.Duration, ws WorkingSet) {
	sweepCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	result := s.Sweep(sweepCtx, ws.Ongoing())
	if len(result.Expired) > 0 {
		ws.Apply(result.Expired)
		s.logger.Info("expired bookings", zap.Int("count", len(result.Expired)))
	}
	if len(result.Refreshed) > 0 {
		ws.Apply(result.Refreshed)
	}
	for _, id := range result.Removed {
		ws.Forget(id)
	}
}
