package services

import (
	"testing"
	"time"
)

func TestEstimateTravelTime(t *testing.T) {
	monday := func(h int) time.Time {
		return time.Date(2026, 3, 2, h, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		name string
		at   time.Time
		km   float64
		want int
	}{
		{"morning zero distance", monday(8), 0, 20},
		{"morning half of max", monday(8), 15, 40},
		{"morning at max", monday(8), 30, 60},
		{"morning beyond max clamps", monday(8), 80, 60},
		{"midday", monday(12), 25, 75},
		{"afternoon", monday(15), 20, 60},
		{"before first segment", monday(5), 10, 60},
		{"after last segment", monday(20), 10, 60},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := EstimateTravelTime(c.at, c.km); got != c.want {
				t.Fatalf("EstimateTravelTime = %d, want %d", got, c.want)
			}
		})
	}
}

func TestEstimateTravelTimeSaturdayCutoff(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 17, 0, 0, 0, time.UTC)

	// 17:00 is inside the weekday afternoon segment but past the Saturday
	// cutoff, so the fallback applies.
	if got := EstimateTravelTime(saturday, 10); got != defaultTravelMinutes {
		t.Fatalf("EstimateTravelTime = %d, want %d", got, defaultTravelMinutes)
	}

	// Earlier on Saturday the afternoon segment still applies.
	early := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	if got := EstimateTravelTime(early, 40); got != 90 {
		t.Fatalf("EstimateTravelTime = %d, want 90", got)
	}
}
