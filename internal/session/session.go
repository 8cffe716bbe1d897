// Package session keeps per-login state: the user's profile and the bookings the
// client is currently looking at.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/parkwise/service-parking/internal/domain/booking"
)

// DefaultWorkingSetSize bounds how many bookings one session tracks.
const DefaultWorkingSetSize = 200

// Profile is the cached user identity of a session.
type Profile struct {
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	VehicleNumber string `json:"vehicleNumber"`
	IUNo          string `json:"iuNo"`
	Country       string `json:"country"`
}

// Session is one authenticated login. It is safe for concurrent use.
type Session struct {
	id        string
	createdAt time.Time
	expiresAt time.Time
	capacity  int

	mu       sync.Mutex
	profile  Profile
	bookings map[uuid.UUID]*bookingDomain.Booking
	order    []uuid.UUID
	stop     func()
}

func newSession(id string, profile Profile, createdAt, expiresAt time.Time, capacity int) *Session {
	if capacity <= 0 {
		capacity = DefaultWorkingSetSize
	}
	return &Session{
		id:        id,
		createdAt: createdAt,
		expiresAt: expiresAt,
		capacity:  capacity,
		profile:   profile,
		bookings:  make(map[uuid.UUID]*bookingDomain.Booking),
	}
}

// ID returns the session identifier (the token's jti).
func (s *Session) ID() string { return s.id }

// ExpiresAt returns when the session stops being valid.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Expired reports whether the session has lapsed at now.
func (s *Session) Expired(now time.Time) bool { return !now.Before(s.expiresAt) }

// Profile returns a copy of the cached profile.
func (s *Session) Profile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SetProfile replaces the cached profile.
func (s *Session) SetProfile(p Profile) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
}

// Track adds or refreshes bookings. The oldest entries are evicted once capacity is exceeded.
func (s *Session) Track(bookings ...*bookingDomain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bk := range bookings {
		s.putLocked(bk)
	}
	s.evictLocked()
}

// Replace discards the working set and starts over with bookings.
func (s *Session) Replace(bookings []*bookingDomain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = make(map[uuid.UUID]*bookingDomain.Booking, len(bookings))
	s.order = s.order[:0]
	for _, bk := range bookings {
		s.putLocked(bk)
	}
	s.evictLocked()
}

// Forget drops a booking from the working set.
func (s *Session) Forget(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return
	}
	delete(s.bookings, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Apply swaps in updated versions of bookings already held. Unknown IDs are ignored.
func (s *Session) Apply(updated []*bookingDomain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bk := range updated {
		if _, ok := s.bookings[bk.ID()]; ok {
			s.bookings[bk.ID()] = bk
		}
	}
}

// Bookings returns the working set, most recently booked first.
func (s *Session) Bookings() []*bookingDomain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*bookingDomain.Booking, 0, len(s.bookings))
	for _, bk := range s.bookings {
		out = append(out, bk)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BookedAt().After(out[j].BookedAt())
	})
	return out
}

// Ongoing returns the tracked bookings still in the ongoing state.
func (s *Session) Ongoing() []*bookingDomain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, id := range s.order {
		if bk := s.bookings[id]; bk.Status() == bookingDomain.StatusOngoing {
			out = append(out, bk)
		}
	}
	return out
}

// Len returns how many bookings are tracked.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *Session) putLocked(bk *bookingDomain.Booking) {
	if _, ok := s.bookings[bk.ID()]; !ok {
		s.order = append(s.order, bk.ID())
	}
	s.bookings[bk.ID()] = bk
}

// evictLocked drops the oldest-tracked entries, preferring ones that are no longer ongoing.
func (s *Session) evictLocked() {
	for len(s.order) > s.capacity {
		victim := 0
		for i, id := range s.order {
			if s.bookings[id].Status() != bookingDomain.StatusOngoing {
				victim = i
				break
			}
		}
		delete(s.bookings, s.order[victim])
		s.order = append(s.order[:victim], s.order[victim+1:]...)
	}
}

func (s *Session) setStop(stop func()) {
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()
}

func (s *Session) shutdown() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}
