package facility

import "time"

// Source records where an availability snapshot came from.
type Source string

const (
	SourceFeed    Source = "feed"
	SourceEvent   Source = "event"
	SourceBooking Source = "booking"
)

// Availability is a snapshot of a facility's lot counts. Counts travel as JSON strings,
// the way the public availability feed publishes them.
type Availability struct {
	CarParkNo     string    `json:"carpark_number"`
	TotalLots     int       `json:"total_lots,string"`
	LotsAvailable int       `json:"lots_available,string"`
	LotType       string    `json:"lot_type"`
	Source        Source    `json:"source,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalize clamps LotsAvailable into [0, TotalLots].
func (a Availability) Normalize() Availability {
	if a.TotalLots < 0 {
		a.TotalLots = 0
	}
	if a.LotsAvailable < 0 {
		a.LotsAvailable = 0
	}
	if a.TotalLots > 0 && a.LotsAvailable > a.TotalLots {
		a.LotsAvailable = a.TotalLots
	}
	return a
}

// Decrement returns a copy with one fewer available lot, never below zero.
func (a Availability) Decrement(at time.Time) Availability {
	if a.LotsAvailable > 0 {
		a.LotsAvailable--
	}
	a.Source = SourceBooking
	a.UpdatedAt = at.UTC()
	return a
}

// IsFull reports whether no lots are available.
func (a Availability) IsFull() bool {
	return a.LotsAvailable <= 0
}
