// Package calendar maps booking requests onto the fixed half-hour slot grid
// and normalises calendar days to UTC midnight.
package calendar

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	SlotMinutes  = 30
	SlotDuration = SlotMinutes * time.Minute
	DateLayout   = "2006-01-02"

	minutesPerDay = 24 * 60
)

var (
	ErrMalformedTime   = errors.New("time must be in HH:MM format")
	ErrOffGrid         = errors.New("time must fall on a 30-minute boundary")
	ErrInvalidRange    = errors.New("end time must be after start time")
	ErrInvalidDuration = errors.New("duration must be a positive multiple of 0.5 hours")
	ErrInvalidDate     = errors.New("date must be in YYYY-MM-DD format")
)

// TimeKey is a time of day on the slot grid, stored as minutes past midnight.
type TimeKey int

// ParseTimeKey parses a canonical "HH:MM" slot key between 00:00 and 23:30.
func ParseTimeKey(s string) (TimeKey, error) {
	return parseClock(s, false)
}

// ParseEndKey parses the end of a range, which may also be "24:00".
func ParseEndKey(s string) (TimeKey, error) {
	return parseClock(s, true)
}

func parseClock(s string, allowEndOfDay bool) (TimeKey, error) {
	total, err := parseWallClock(s, allowEndOfDay)
	if err != nil {
		return 0, err
	}
	if total%SlotMinutes != 0 {
		return 0, fmt.Errorf("%w: %q", ErrOffGrid, strings.TrimSpace(s))
	}
	return TimeKey(total), nil
}

// parseWallClock returns minutes past midnight for any "HH:MM" between 00:00
// and 23:59, plus 24:00 when allowEndOfDay is set.
func parseWallClock(s string, allowEndOfDay bool) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	hours, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	minutes, err := strconv.Atoi(s[3:])
	if err != nil || minutes < 0 || minutes > 59 || hours < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}

	total := hours*60 + minutes
	switch {
	case total == minutesPerDay && allowEndOfDay:
	case hours > 23:
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	return total, nil
}

func (k TimeKey) String() string {
	return fmt.Sprintf("%02d:%02d", int(k)/60, int(k)%60)
}

func (k TimeKey) Minutes() int {
	return int(k)
}

// Range is a half-open interval [Start, End) of slot keys within one day.
type Range struct {
	Start TimeKey
	End   TimeKey
}

// NewRange builds a range from two clock strings. The end may be "24:00" so
// that the last slot of the day can be booked.
func NewRange(start, end string) (Range, error) {
	s, err := parseClock(start, false)
	if err != nil {
		return Range{}, err
	}
	e, err := parseClock(end, true)
	if err != nil {
		return Range{}, err
	}
	if e <= s {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: s, End: e}, nil
}

// RangeFromDuration maps the legacy (time, durationHours) request shape onto a
// range starting at start.
func RangeFromDuration(start string, durationHours float64) (Range, error) {
	s, err := parseClock(start, false)
	if err != nil {
		return Range{}, err
	}
	if math.IsNaN(durationHours) || durationHours <= 0 {
		return Range{}, ErrInvalidDuration
	}
	slots := durationHours * 60 / SlotMinutes
	if slots != math.Trunc(slots) {
		return Range{}, ErrInvalidDuration
	}
	e := s + TimeKey(int(slots)*SlotMinutes)
	if e > minutesPerDay {
		return Range{}, fmt.Errorf("%w: booking cannot run past midnight", ErrInvalidRange)
	}
	return Range{Start: s, End: e}, nil
}

// OpeningHours maps a venue's opening and closing clock times onto the slot
// grid. Times need not be aligned: opening rounds up and closing rounds down
// to the nearest slot boundary, so "06:15"-"23:59" yields 06:30-23:30. It
// fails when no whole slot fits.
func OpeningHours(open, close string) (Range, error) {
	o, err := parseWallClock(open, false)
	if err != nil {
		return Range{}, err
	}
	c, err := parseWallClock(close, true)
	if err != nil {
		return Range{}, err
	}
	start := (o + SlotMinutes - 1) / SlotMinutes * SlotMinutes
	end := c / SlotMinutes * SlotMinutes
	if end <= start {
		return Range{}, fmt.Errorf("%w: no bookable slot between %s and %s", ErrInvalidRange, open, close)
	}
	return Range{Start: TimeKey(start), End: TimeKey(end)}, nil
}

// MustRange is NewRange for literals known to be valid.
func MustRange(start, end string) Range {
	r, err := NewRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Range) SlotCount() int {
	return (r.End.Minutes() - r.Start.Minutes()) / SlotMinutes
}

func (r Range) Hours() float64 {
	return float64(r.SlotCount()) * SlotMinutes / 60
}

// Keys enumerates every slot key in the range, start inclusive, end exclusive.
func (r Range) Keys() []string {
	keys := make([]string, 0, r.SlotCount())
	for k := r.Start; k < r.End; k += SlotMinutes {
		keys = append(keys, k.String())
	}
	return keys
}

func (r Range) Contains(k TimeKey) bool {
	return k >= r.Start && k < r.End
}

// Within reports whether r lies entirely inside outer.
func (r Range) Within(outer Range) bool {
	return r.Start >= outer.Start && r.End <= outer.End
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// ParseDay parses a "YYYY-MM-DD" calendar date into UTC midnight.
func ParseDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return day, nil
}

// NormalizeDay truncates t to midnight UTC of its UTC calendar date.
func NormalizeDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayRange returns [dayStart, dayStart+1day) for range queries on stored dates.
func DayRange(day time.Time) (time.Time, time.Time) {
	start := NormalizeDay(day)
	return start, start.AddDate(0, 0, 1)
}

func FormatDay(day time.Time) string {
	return day.UTC().Format(DateLayout)
}
