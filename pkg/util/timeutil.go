package util

import "time"

// Clock abstracts time.Now so services can be driven deterministically in tests.
type Clock func() time.Time

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Expired reports whether ts lies before now. A zero ts never expires.
func Expired(ts, now time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(now)
}
