package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dispatch-worklist-service/internal/domain"
)

// SQLite-backed implementation of the AddressRepository port.
type SqliteAddressRepository struct{ DB *sql.DB }

func NewSqliteAddressRepository(db *sql.DB) *SqliteAddressRepository {
	return &SqliteAddressRepository{DB: db}
}

func (s *SqliteAddressRepository) Get(ctx context.Context, orderID string) (*domain.ResolvedAddress, error) {
	if s.DB == nil {
		return nil, errors.New("address repository: db is nil")
	}

	q := `
	SELECT order_id, address, district, ward, source, distance_km,
		travel_time_min, overdue, resolved_at
	FROM resolved_addresses
	WHERE order_id = ?;
	`

	var (
		a             domain.ResolvedAddress
		distanceKM    sql.NullFloat64
		travelTimeMin sql.NullInt64
		overdue       int
		resolvedAt    string
	)
	err := s.DB.QueryRowContext(ctx, q, orderID).Scan(
		&a.OrderID, &a.Address, &a.District, &a.Ward, &a.Source,
		&distanceKM, &travelTimeMin, &overdue, &resolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resolved address %s: %w", orderID, err)
	}

	if distanceKM.Valid {
		a.DistanceKM = &distanceKM.Float64
	}
	if travelTimeMin.Valid {
		m := int(travelTimeMin.Int64)
		a.TravelTimeMin = &m
	}
	a.Overdue = overdue != 0
	if t, err := time.Parse(time.RFC3339, resolvedAt); err == nil {
		a.ResolvedAt = t
	}
	return &a, nil
}

// Upsert writes the full record; resolution commits are independent per
// order, so a concurrent re-run converges on the same row.
func (s *SqliteAddressRepository) Upsert(ctx context.Context, addr *domain.ResolvedAddress) error {
	if s.DB == nil {
		return errors.New("address repository: db is nil")
	}
	if addr == nil || addr.OrderID == "" {
		return errors.New("upsert resolved address: order id is required")
	}

	q := `
	INSERT OR REPLACE INTO resolved_addresses
		(order_id, address, district, ward, source, distance_km, travel_time_min, overdue, resolved_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`

	if _, err := s.DB.ExecContext(ctx, q,
		addr.OrderID, addr.Address, addr.District, addr.Ward, string(addr.Source),
		nullableFloat(addr.DistanceKM), nullableInt(addr.TravelTimeMin),
		boolToInt(addr.Overdue), addr.ResolvedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("upsert resolved address %s: %w", addr.OrderID, err)
	}
	return nil
}

// ListMissingRoute returns records that resolved to a routable address but
// still lack distance and travel time, so a later pass can fill them in.
func (s *SqliteAddressRepository) ListMissingRoute(ctx context.Context) ([]*domain.ResolvedAddress, error) {
	if s.DB == nil {
		return nil, errors.New("address repository: db is nil")
	}

	q := `
	SELECT order_id, address, district, ward, source, distance_km,
		travel_time_min, overdue, resolved_at
	FROM resolved_addresses
	WHERE distance_km IS NULL
	  AND address != ''
	  AND source IN (?, ?, ?);
	`

	rows, err := s.DB.QueryContext(ctx, q,
		string(domain.SourceTransportDB), string(domain.SourceAIModel), string(domain.SourceOriginalText))
	if err != nil {
		return nil, fmt.Errorf("list missing routes: %w", err)
	}
	defer rows.Close()

	var out []*domain.ResolvedAddress
	for rows.Next() {
		var (
			a             domain.ResolvedAddress
			distanceKM    sql.NullFloat64
			travelTimeMin sql.NullInt64
			overdue       int
			resolvedAt    string
		)
		if err := rows.Scan(
			&a.OrderID, &a.Address, &a.District, &a.Ward, &a.Source,
			&distanceKM, &travelTimeMin, &overdue, &resolvedAt,
		); err != nil {
			return nil, fmt.Errorf("list missing routes: scan: %w", err)
		}
		a.Overdue = overdue != 0
		if t, err := time.Parse(time.RFC3339, resolvedAt); err == nil {
			a.ResolvedAt = t
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list missing routes: %w", err)
	}
	return out, nil
}

// UpdateRoute refreshes only the routing metrics; the address triple and
// its provenance stay untouched.
func (s *SqliteAddressRepository) UpdateRoute(ctx context.Context, orderID string, distanceKM *float64, travelTimeMin *int) error {
	if s.DB == nil {
		return errors.New("address repository: db is nil")
	}
	if orderID == "" {
		return errors.New("update route: order id is required")
	}

	q := `
	UPDATE resolved_addresses
	SET distance_km = ?, travel_time_min = ?
	WHERE order_id = ?;
	`

	if _, err := s.DB.ExecContext(ctx, q, nullableFloat(distanceKM), nullableInt(travelTimeMin), orderID); err != nil {
		return fmt.Errorf("update route for %s: %w", orderID, err)
	}
	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
