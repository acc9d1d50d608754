// Package globaltime is the process clock. Every component that stamps
// last-seen, staleness cutoffs or run durations reads time from here so
// tests can pin it.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc()
}

func UTC() time.Time {
	return Now().UTC()
}

// Since reports the elapsed time from t according to the process clock.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// HoursAgo returns the UTC instant the given number of hours before now.
func HoursAgo(hours int) time.Time {
	return UTC().Add(-time.Duration(hours) * time.Hour)
}

func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = func() time.Time { return t }
}

// Advance freezes the clock at the current reading plus d.
func Advance(d time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	current := nowFunc()
	nowFunc = func() time.Time { return current.Add(d) }
}

func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = time.Now
}
