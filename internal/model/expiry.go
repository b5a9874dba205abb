package model

import "time"

// ExpiryState classifies how long an item has been frozen relative to the
// household threshold.
type ExpiryState int

const (
	ExpiryNormal ExpiryState = iota
	ExpiryExpiringSoon
	ExpiryExpired
)

func (s ExpiryState) String() string {
	switch s {
	case ExpiryExpiringSoon:
		return "expiring_soon"
	case ExpiryExpired:
		return "expired"
	default:
		return "normal"
	}
}

// AddMonths adds n calendar months to t. When the target month is shorter
// the day is clamped to its last day, so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	total := int(m) - 1 + n
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	month := time.Month(total + 1)

	if last := daysIn(y, month, t.Location()); d > last {
		d = last
	}
	return time.Date(y, month, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// ClassifyExpiry reports the state of an item added at dateAdded, seen at ref,
// with a threshold in months. The expiring-soon window is the last calendar
// month before the threshold boundary.
func ClassifyExpiry(dateAdded, ref time.Time, thresholdMonths int) ExpiryState {
	expiry := AddMonths(dateAdded, thresholdMonths)
	if !ref.Before(expiry) {
		return ExpiryExpired
	}
	if !ref.Before(AddMonths(expiry, -1)) {
		return ExpiryExpiringSoon
	}
	return ExpiryNormal
}
