package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/common/domain"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// AvailabilityBroadcaster pushes snapshots to live subscribers.
type AvailabilityBroadcaster interface {
	BroadcastAvailability(snapshot facilityDomain.Availability)
}

// AvailabilityService owns the availability snapshots: a process cache in front of the store.
type AvailabilityService struct {
	repo        facilityDomain.AvailabilityRepository
	broadcaster AvailabilityBroadcaster
	logger      *zap.Logger

	mu    sync.RWMutex
	cache map[string]facilityDomain.Availability
}

// NewAvailabilityService creates an AvailabilityService. broadcaster may be nil.
func NewAvailabilityService(
	repo facilityDomain.AvailabilityRepository,
	broadcaster AvailabilityBroadcaster,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger,
		cache:       make(map[string]facilityDomain.Availability),
	}
}

// Snapshot returns the latest snapshot for carParkNo. ok is false when none is known.
func (s *AvailabilityService) Snapshot(ctx context.Context, carParkNo string) (facilityDomain.Availability, bool, error) {
	if a, ok := s.Peek(carParkNo); ok {
		return a, true, nil
	}

	stored, err := s.repo.Find(ctx, carParkNo)
	if err != nil {
		if domain.IsNotFound(err) {
			return facilityDomain.Availability{}, false, nil
		}
		return facilityDomain.Availability{}, false, err
	}

	s.mu.Lock()
	s.cache[carParkNo] = *stored
	s.mu.Unlock()
	return *stored, true, nil
}

// Peek returns a cached snapshot without touching the store.
func (s *AvailabilityService) Peek(carParkNo string) (facilityDomain.Availability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.cache[carParkNo]
	return a, ok
}

// Put stores, caches and broadcasts one snapshot.
func (s *AvailabilityService) Put(ctx context.Context, snapshot facilityDomain.Availability) error {
	snapshot = snapshot.Normalize()
	if err := s.repo.Upsert(ctx, snapshot); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[snapshot.CarParkNo] = snapshot
	s.mu.Unlock()

	if s.broadcaster != nil {
		s.broadcaster.BroadcastAvailability(snapshot)
	}
	return nil
}

// Ingest stores a batch of snapshots from source and returns how many were accepted.
// Snapshots without a car park number are skipped.
func (s *AvailabilityService) Ingest(ctx context.Context, snapshots []facilityDomain.Availability, source facilityDomain.Source) (int, error) {
	now := time.Now().UTC()
	accepted := make([]facilityDomain.Availability, 0, len(snapshots))
	for _, snap := range snapshots {
		if snap.CarParkNo == "" {
			continue
		}
		snap = snap.Normalize()
		snap.Source = source
		if snap.UpdatedAt.IsZero() {
			snap.UpdatedAt = now
		}
		accepted = append(accepted, snap)
	}
	if len(accepted) == 0 {
		return 0, nil
	}

	if err := s.repo.UpsertMany(ctx, accepted); err != nil {
		return 0, fmt.Errorf("failed to ingest availability: %w", err)
	}

	s.mu.Lock()
	for _, snap := range accepted {
		s.cache[snap.CarParkNo] = snap
	}
	s.mu.Unlock()

	if s.broadcaster != nil {
		for _, snap := range accepted {
			s.broadcaster.BroadcastAvailability(snap)
		}
	}

	s.logger.Debug("availability ingested",
		zap.String("source", string(source)),
		zap.Int("count", len(accepted)),
	)
	return len(accepted), nil
}

// Decrement lowers the facility's available count by one (never below zero) and
// returns the new snapshot. It returns nil when no snapshot is known for the facility.
// The read and the write are not atomic: concurrent bookings can lose an update.
func (s *AvailabilityService) Decrement(ctx context.Context, carParkNo string, at time.Time) (*facilityDomain.Availability, error) {
	current, ok, err := s.Snapshot(ctx, carParkNo)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	updated := current.Decrement(at)
	if err := s.Put(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
