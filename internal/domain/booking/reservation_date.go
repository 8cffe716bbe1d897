package booking

import (
	"fmt"
	"time"
)

// ReservationDate is the day of a reservation relative to when it was booked.
type ReservationDate string

const (
	DateToday    ReservationDate = "Today"
	DateTomorrow ReservationDate = "Tomorrow"
)

// ParseReservationDate accepts "Today" or "Tomorrow"; empty defaults to Today.
func ParseReservationDate(s string) (ReservationDate, error) {
	switch ReservationDate(s) {
	case "", DateToday:
		return DateToday, nil
	case DateTomorrow:
		return DateTomorrow, nil
	default:
		return "", fmt.Errorf("invalid reservation date: %s", s)
	}
}

// offsetDays is how many calendar days after booking the reservation falls.
func (d ReservationDate) offsetDays() int {
	if d == DateTomorrow {
		return 1
	}
	return 0
}

// Day returns the calendar day (midnight in loc) the reservation applies to.
func (d ReservationDate) Day(bookedAt time.Time, loc *time.Location) time.Time {
	b := bookedAt.In(loc)
	return time.Date(b.Year(), b.Month(), b.Day()+d.offsetDays(), 0, 0, 0, 0, loc)
}

// String returns the label.
func (d ReservationDate) String() string { return string(d) }

// sameDay reports whether a and b fall on the same calendar day in loc.
func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
