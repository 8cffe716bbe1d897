package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// HourOfDay is a wall-clock hour in [0, 23]. The zero value means "not chosen".
type HourOfDay struct {
	hour  int
	valid bool
}

// NewHourOfDay returns a set hour, rejecting values outside [0, 23].
func NewHourOfDay(h int) (HourOfDay, error) {
	if h < 0 || h > 23 {
		return HourOfDay{}, fmt.Errorf("hour out of range: %d", h)
	}
	return HourOfDay{hour: h, valid: true}, nil
}

// MustHour is NewHourOfDay for constants and tests.
func MustHour(h int) HourOfDay {
	hd, err := NewHourOfDay(h)
	if err != nil {
		panic(err)
	}
	return hd
}

// ParseHourOfDay parses "10", "09" or "9". An empty string yields the unset hour without error.
func ParseHourOfDay(s string) (HourOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return HourOfDay{}, nil
	}
	h, err := strconv.Atoi(s)
	if err != nil {
		return HourOfDay{}, fmt.Errorf("invalid hour %q", s)
	}
	return NewHourOfDay(h)
}

// IsSet reports whether an hour was chosen.
func (h HourOfDay) IsSet() bool { return h.valid }

// Int returns the hour, or -1 when unset.
func (h HourOfDay) Int() int {
	if !h.valid {
		return -1
	}
	return h.hour
}

// String returns the decimal hour ("10"), or "" when unset.
func (h HourOfDay) String() string {
	if !h.valid {
		return ""
	}
	return strconv.Itoa(h.hour)
}

// MarshalJSON emits the hour as a string, matching what clients send.
func (h HourOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON accepts a string, a number or null.
func (h *HourOfDay) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*h = HourOfDay{}
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	parsed, err := ParseHourOfDay(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
