package services

import (
	"math"
	"time"
)

// Day segments for the declared-distance travel-time heuristic. When an
// order bypasses geocoding (a declared distance hint is trusted directly),
// travel time is interpolated from the segment active at dispatch time.
type daySegment struct {
	fromHour   int
	toHour     int // exclusive
	maxKM      float64
	minMinutes int
	maxMinutes int
}

var (
	morningSegment   = daySegment{fromHour: 6, toHour: 11, maxKM: 30, minMinutes: 20, maxMinutes: 60}
	middaySegment    = daySegment{fromHour: 11, toHour: 14, maxKM: 25, minMinutes: 30, maxMinutes: 75}
	afternoonSegment = daySegment{fromHour: 14, toHour: 18, maxKM: 40, minMinutes: 30, maxMinutes: 90}
)

// Saturday afternoons end early; departures after 16:00 wait for Monday.
const saturdayAfternoonEnd = 16

// Fallback when dispatch time falls outside every segment.
const defaultTravelMinutes = 60

// EstimateTravelTime returns a placeholder travel time in minutes for a
// declared distance, interpolated linearly between the active segment's
// bounds by the ratio of distance to the segment's plausible maximum, and
// clamped to the upper bound beyond it.
func EstimateTravelTime(at time.Time, distanceKM float64) int {
	seg, ok := segmentFor(at)
	if !ok {
		return defaultTravelMinutes
	}

	ratio := distanceKM / seg.maxKM
	if ratio >= 1 {
		return seg.maxMinutes
	}
	if ratio < 0 {
		ratio = 0
	}

	estimated := float64(seg.minMinutes) + ratio*float64(seg.maxMinutes-seg.minMinutes)
	return int(math.Ceil(estimated))
}

func segmentFor(at time.Time) (daySegment, bool) {
	h := at.Hour()

	for _, seg := range []daySegment{morningSegment, middaySegment, afternoonSegment} {
		to := seg.toHour
		if seg == afternoonSegment && at.Weekday() == time.Saturday {
			to = saturdayAfternoonEnd
		}
		if h >= seg.fromHour && h < to {
			return seg, true
		}
	}
	return daySegment{}, false
}
