package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch-worklist-service/internal/domain"
)

// SQLite variant of the route cache store, used for local runs.
type SqliteRouteStore struct {
	DB *sql.DB
}

func NewSqliteRouteStore(db *sql.DB) *SqliteRouteStore {
	return &SqliteRouteStore{DB: db}
}

func (s *SqliteRouteStore) Get(ctx context.Context, destination string) (*domain.RouteCacheEntry, error) {
	if s.DB == nil {
		return nil, errors.New("route cache: db is nil")
	}
	if strings.TrimSpace(destination) == "" {
		return nil, errors.New("get route cache: destination must not be empty")
	}

	q := `
	SELECT destination, distance_km, travel_time_min, computed_at
	FROM route_cache
	WHERE destination = ?;
	`

	var (
		e          domain.RouteCacheEntry
		computedAt string
	)
	err := s.DB.QueryRowContext(ctx, q, destination).Scan(
		&e.Destination, &e.DistanceKM, &e.TravelTimeMin, &computedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	// SQLite stores timestamps as text.
	e.ComputedAt, err = time.Parse(time.RFC3339, computedAt)
	if err != nil {
		return nil, fmt.Errorf("get route cache: parse computed_at %q: %w", computedAt, err)
	}
	return &e, nil
}

func (s *SqliteRouteStore) Put(ctx context.Context, entry domain.RouteCacheEntry) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}
	if strings.TrimSpace(entry.Destination) == "" {
		return errors.New("insert route cache: empty destination key")
	}

	q := `
	INSERT OR REPLACE INTO route_cache (destination, distance_km, travel_time_min, computed_at)
	VALUES (?, ?, ?, ?);
	`

	if _, err := s.DB.ExecContext(ctx, q,
		entry.Destination, entry.DistanceKM, entry.TravelTimeMin, entry.ComputedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert route cache dest=%q: %w", entry.Destination, err)
	}
	return nil
}
