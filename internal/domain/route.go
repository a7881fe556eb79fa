package domain

import "time"

// Cached routing result from the warehouse to one normalized destination.
//
// An entry is a hit only while ComputedAt falls inside a symmetric window
// around "now"; routes are assumed stable over short spans, so future-dated
// entries inside the window are accepted too. Entries are upserted, never
// deleted.
type RouteCacheEntry struct {
	Destination   string
	DistanceKM    float64
	TravelTimeMin int
	ComputedAt    time.Time
}

// Fresh reports whether the entry is a valid hit at the given instant.
func (e RouteCacheEntry) Fresh(now time.Time, window time.Duration) bool {
	d := now.Sub(e.ComputedAt)
	if d < 0 {
		d = -d
	}
	return d <= window
}
