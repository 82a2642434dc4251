package scoring

import "time"

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

// DaysBetween returns the whole number of days separating a and b, rounded
// up. Instants are compared at millisecond precision, so a 1ms gap counts as
// one day and an exact multiple of 24h has no remainder. The result is never
// negative and is independent of argument order and time zone.
func DaysBetween(a, b time.Time) int {
	diff := a.UnixMilli() - b.UnixMilli()
	if diff < 0 {
		diff = -diff
	}
	return int((diff + millisPerDay - 1) / millisPerDay)
}
