package ports

import (
	"context"
	"time"

	"dispatch-worklist-service/internal/domain"
)

// Routing metrics from the warehouse to a destination. Nil fields mean
// "unknown" (geocoding or routing failed), never zero.
type RouteResult struct {
	DistanceKM    *float64
	TravelTimeMin *int
}

// Contract for retrieving road distance and travel time to a destination.
// Implementations are expected to cache aggressively; a repeat call for a
// destination with a fresh cache entry must not hit the mapping provider.
type RouteProvider interface {
	RouteTo(ctx context.Context, destination string) (RouteResult, error)
}

// Port: persistent route cache keyed by normalized destination.
type RouteCacheStore interface {
	// Return the entry for the destination, or nil when absent.
	Get(ctx context.Context, destination string) (*domain.RouteCacheEntry, error)
	Put(ctx context.Context, entry domain.RouteCacheEntry) error
}

// Port: the mapping provider, reduced to the two calls the pipeline needs.
type MapProvider interface {
	// Resolve an address to coordinates; ok=false when the provider has no
	// result (not an error).
	Geocode(ctx context.Context, address string) (coord domain.Coordinates, ok bool, err error)
	// Live-traffic car route between two coordinates.
	Route(ctx context.Context, origin, destination domain.Coordinates) (distanceMeters, durationSeconds int, err error)
}

// Clock abstraction so staleness windows and deadline math are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
