package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dispatch-worklist-service/internal/domain"
)

// Postgres-backed route cache store. Keys are expected to be already
// normalized by the caller.
type SQLRouteStore struct {
	DB *sql.DB
}

func NewSQLRouteStore(db *sql.DB) *SQLRouteStore {
	return &SQLRouteStore{DB: db}
}

func (s *SQLRouteStore) Get(ctx context.Context, destination string) (*domain.RouteCacheEntry, error) {
	if s.DB == nil {
		return nil, errors.New("route cache: db is nil")
	}
	if strings.TrimSpace(destination) == "" {
		return nil, errors.New("get route cache: destination must not be empty")
	}

	q := `
	SELECT destination, distance_km, travel_time_min, computed_at
	FROM route_cache
	WHERE destination = $1;
	`

	var e domain.RouteCacheEntry
	err := s.DB.QueryRowContext(ctx, q, destination).Scan(
		&e.Destination, &e.DistanceKM, &e.TravelTimeMin, &e.ComputedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}
	return &e, nil
}

// Put upserts one entry. Concurrent writers converge without locking:
// entries are derived, reproducible values, so last-writer-wins is fine.
func (s *SQLRouteStore) Put(ctx context.Context, entry domain.RouteCacheEntry) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}
	if strings.TrimSpace(entry.Destination) == "" {
		return errors.New("insert route cache: empty destination key")
	}

	q := `
	INSERT INTO route_cache (destination, distance_km, travel_time_min, computed_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (destination) DO UPDATE
	SET distance_km = EXCLUDED.distance_km,
		travel_time_min = EXCLUDED.travel_time_min,
		computed_at = EXCLUDED.computed_at;
	`

	if _, err := s.DB.ExecContext(ctx, q, entry.Destination, entry.DistanceKM, entry.TravelTimeMin, entry.ComputedAt); err != nil {
		return fmt.Errorf("insert route cache dest=%q: %w", entry.Destination, err)
	}
	return nil
}
