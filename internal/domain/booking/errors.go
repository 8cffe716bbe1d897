package booking

import "errors"

// Validation failures, checked in this order before anything is written.
// ErrInvalidWindow covers zero-length and reversed windows alike: a booking
// never runs past midnight, so 23 to 0 is rejected.
var (
	ErrUserEmailMissing = errors.New("User email not available")
	ErrHoursMissing     = errors.New("Please select both start and end times")
	ErrInvalidWindow    = errors.New("Invalid booking window")
	ErrCarParkMissing   = errors.New("carParkNo is required")
)

// Check-in policy rejections.
var (
	ErrCheckInDayMismatch   = errors.New("Check-in not allowed: you can only check in on the day of your booking")
	ErrCheckInOutsideWindow = errors.New("Check-in not allowed: you can only check in during your booking time")
)

// ErrBookingChanged reports a write based on a booking that another request has
// already moved on (a newer version is stored).
var ErrBookingChanged = errors.New("Booking was updated elsewhere, please refresh")

// Operation failures surfaced to the user with the backend message appended.
var (
	ErrBookingFailed      = errors.New("Failed to book spot")
	ErrCheckInFailed      = errors.New("Failed to check in")
	ErrCancelFailed       = errors.New("Failed to cancel booking")
	ErrChangeTimingFailed = errors.New("Failed to change timing")
)
