package cache

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/platform/obs"
	"dispatch-worklist-service/internal/ports"
	"dispatch-worklist-service/internal/textnorm"
)

// RouteCache is the read-through RouteProvider: a persistent store keyed by
// normalized destination in front of the mapping provider.
//
// A cached entry counts as a hit while its computed-at timestamp is within
// ±window of now — the window is symmetric on purpose, routes are assumed
// stable over short spans in either direction.
type RouteCache struct {
	store    ports.RouteCacheStore
	provider ports.MapProvider
	origin   string
	window   time.Duration
	clock    ports.Clock
	log      *zap.SugaredLogger
}

func NewRouteCache(
	store ports.RouteCacheStore,
	provider ports.MapProvider,
	warehouseAddress string,
	window time.Duration,
	clock ports.Clock,
	log *zap.SugaredLogger,
) *RouteCache {
	return &RouteCache{
		store:    store,
		provider: provider,
		origin:   warehouseAddress,
		window:   window,
		clock:    clock,
		log:      log,
	}
}

var keyStripRe = regexp.MustCompile(`[^A-Z0-9\-/ ]+`)

// NormalizeDestination produces the cache key: folded, everything but
// letters, digits, '-' and '/' stripped, whitespace collapsed.
func NormalizeDestination(destination string) string {
	key := textnorm.Fold(destination)
	key = keyStripRe.ReplaceAllString(key, " ")
	return textnorm.CollapseWhitespace(key)
}

// RouteTo returns distance (km) and travel time (minutes) from the
// warehouse to the destination. Unresolvable geocoding or routing degrades
// to nil metrics, never an error: unknown is a valid answer here.
func (c *RouteCache) RouteTo(ctx context.Context, destination string) (_ ports.RouteResult, err error) {
	defer obs.Time(ctx, c.log, "routecache.RouteTo")(&err)

	key := NormalizeDestination(destination)
	if key == "" {
		return ports.RouteResult{}, nil
	}

	now := c.clock.Now()

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warnw("route cache read failed", "destination", key, "err", err)
	} else if entry != nil && entry.Fresh(now, c.window) {
		return ports.RouteResult{DistanceKM: &entry.DistanceKM, TravelTimeMin: &entry.TravelTimeMin}, nil
	}

	originCoord, ok, err := c.provider.Geocode(ctx, c.origin)
	if err != nil || !ok {
		c.logGeocodeMiss(c.origin, err)
		return ports.RouteResult{}, nil
	}

	destCoord, ok, err := c.provider.Geocode(ctx, destination)
	if err != nil || !ok {
		c.logGeocodeMiss(destination, err)
		return ports.RouteResult{}, nil
	}

	meters, seconds, err := c.provider.Route(ctx, originCoord, destCoord)
	if err != nil {
		c.log.Warnw("route lookup failed", "destination", key, "err", err)
		return ports.RouteResult{}, nil
	}

	km := float64(meters) / 1000
	minutes := int(math.Ceil(float64(seconds) / 60))

	if err := c.store.Put(ctx, domain.RouteCacheEntry{
		Destination:   key,
		DistanceKM:    km,
		TravelTimeMin: minutes,
		ComputedAt:    now,
	}); err != nil {
		// A failed cache write costs one future provider call, nothing more.
		c.log.Warnw("route cache write failed", "destination", key, "err", err)
	}

	return ports.RouteResult{DistanceKM: &km, TravelTimeMin: &minutes}, nil
}

func (c *RouteCache) logGeocodeMiss(address string, err error) {
	if err != nil {
		c.log.Warnw("geocode failed", "address", strings.TrimSpace(address), "err", err)
		return
	}
	c.log.Infow("geocode returned no result", "address", strings.TrimSpace(address))
}
