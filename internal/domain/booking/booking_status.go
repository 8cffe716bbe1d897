package booking

import "fmt"

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusOngoing   BookingStatus = "ongoing"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// DefaultStatus is the status of a booking whose stored status is missing.
const DefaultStatus = StatusOngoing

// validTransitions defines the state machine for booking status transitions.
// Deletion (change of timing) is not a status and is gated by CanBeRemoved.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusOngoing:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
// Re-applying the current status is allowed so repeated writes stay harmless.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	if s == target {
		return s.IsValid()
	}
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// CanBeRemoved reports whether a booking in this status may be deleted for rebooking.
func (s BookingStatus) CanBeRemoved() bool {
	return s == StatusOngoing
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus. Empty yields DefaultStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	if s == "" {
		return DefaultStatus, nil
	}
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
