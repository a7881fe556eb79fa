package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dispatch-worklist-service/internal/domain"
)

// SQLite-backed implementation of the OrderRepository port.
type SqliteOrderRepository struct{ DB *sql.DB }

func NewSqliteOrderRepository(db *sql.DB) *SqliteOrderRepository {
	return &SqliteOrderRepository{DB: db}
}

// ListUnresolved returns awaiting orders that have no resolved address yet.
func (s *SqliteOrderRepository) ListUnresolved(ctx context.Context) ([]*domain.Order, error) {
	if s.DB == nil {
		return nil, errors.New("order repository: db is nil")
	}

	q := `
	SELECT o.id, o.raw_address, o.note, o.registered_address, o.declared_km,
		o.scheduled_at, o.status, o.urgency, o.deadline, o.note_analyzed, o.created_at
	FROM orders o
	LEFT JOIN resolved_addresses r ON r.order_id = o.id
	WHERE r.order_id IS NULL AND o.status = ?
	ORDER BY o.created_at, o.id;
	`

	rows, err := s.DB.QueryContext(ctx, q, string(domain.StatusAwaiting))
	if err != nil {
		return nil, fmt.Errorf("list unresolved: query orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("list unresolved: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unresolved: row iteration: %w", err)
	}
	return out, nil
}

// ListWorklist joins every not-yet-completed order with its resolved
// address (when present) for ranking.
func (s *SqliteOrderRepository) ListWorklist(ctx context.Context) ([]*domain.WorkItem, error) {
	if s.DB == nil {
		return nil, errors.New("order repository: db is nil")
	}

	q := `
	SELECT o.id, o.raw_address, o.note, o.registered_address, o.declared_km,
		o.scheduled_at, o.status, o.urgency, o.deadline, o.note_analyzed, o.created_at,
		r.order_id, r.address, r.district, r.ward, r.source,
		r.distance_km, r.travel_time_min, r.overdue, r.resolved_at
	FROM orders o
	LEFT JOIN resolved_addresses r ON r.order_id = o.id
	WHERE o.status != ?
	ORDER BY o.id;
	`

	rows, err := s.DB.QueryContext(ctx, q, string(domain.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("list worklist: query orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.WorkItem
	for rows.Next() {
		var (
			o domain.Order

			declaredKM         sql.NullFloat64
			scheduledAt        sql.NullString
			deadline           sql.NullString
			addrOrderID        sql.NullString
			addrText, district sql.NullString
			ward, source       sql.NullString
			distanceKM         sql.NullFloat64
			travelTimeMin      sql.NullInt64
			overdue            sql.NullInt64
			resolvedAt         sql.NullString
			createdAt          string
		)

		if err := rows.Scan(
			&o.ID, &o.RawAddress, &o.Note, &o.RegisteredAddress, &declaredKM,
			&scheduledAt, &o.Status, &o.Urgency, &deadline, &o.NoteAnalyzed, &createdAt,
			&addrOrderID, &addrText, &district, &ward, &source,
			&distanceKM, &travelTimeMin, &overdue, &resolvedAt,
		); err != nil {
			return nil, fmt.Errorf("list worklist: scan rows: %w", err)
		}

		if declaredKM.Valid {
			o.DeclaredKM = &declaredKM.Float64
		}
		o.ScheduledAt = parseOptionalTime(scheduledAt)
		o.Deadline = parseOptionalTime(deadline)
		if t := parseOptionalTime(sql.NullString{String: createdAt, Valid: true}); t != nil {
			o.CreatedAt = *t
		}

		item := &domain.WorkItem{Order: &o}
		if addrOrderID.Valid {
			addr := &domain.ResolvedAddress{
				OrderID:  addrOrderID.String,
				Address:  addrText.String,
				District: district.String,
				Ward:     ward.String,
				Source:   domain.AddressSource(source.String),
				Overdue:  overdue.Int64 != 0,
			}
			if distanceKM.Valid {
				addr.DistanceKM = &distanceKM.Float64
			}
			if travelTimeMin.Valid {
				m := int(travelTimeMin.Int64)
				addr.TravelTimeMin = &m
			}
			if t := parseOptionalTime(resolvedAt); t != nil {
				addr.ResolvedAt = *t
			}
			item.Address = addr
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list worklist: row iteration: %w", err)
	}
	return out, nil
}

// UpsertOrder inserts or refreshes an ingested order. Pipeline-owned fields
// (urgency, deadline, analyzed flag) are preserved on conflict so a re-run
// of the feed cannot wipe analysis results.
func (s *SqliteOrderRepository) UpsertOrder(ctx context.Context, o *domain.Order) error {
	if s.DB == nil {
		return errors.New("order repository: db is nil")
	}
	if o == nil || o.ID == "" {
		return errors.New("upsert order: order id is required")
	}

	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	q := `
	INSERT INTO orders (id, raw_address, note, registered_address, declared_km,
		scheduled_at, status, urgency, deadline, note_analyzed, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET raw_address = excluded.raw_address,
		note = excluded.note,
		registered_address = excluded.registered_address,
		declared_km = excluded.declared_km,
		scheduled_at = excluded.scheduled_at,
		status = excluded.status;
	`

	if _, err := s.DB.ExecContext(ctx, q,
		o.ID, o.RawAddress, o.Note, o.RegisteredAddress, nullableFloat(o.DeclaredKM),
		formatOptionalTime(o.ScheduledAt), string(o.Status), o.Urgency,
		formatOptionalTime(o.Deadline), boolToInt(o.NoteAnalyzed), createdAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("upsert order %s: %w", o.ID, err)
	}
	return nil
}

// UpdateAnalysis persists the note-derived fields for one order.
func (s *SqliteOrderRepository) UpdateAnalysis(ctx context.Context, orderID string, urgency int, deadline *time.Time) error {
	if s.DB == nil {
		return errors.New("order repository: db is nil")
	}
	if orderID == "" {
		return errors.New("update analysis: order id is required")
	}

	q := `
	UPDATE orders
	SET urgency = ?, deadline = ?, note_analyzed = 1
	WHERE id = ?;
	`

	if _, err := s.DB.ExecContext(ctx, q, urgency, formatOptionalTime(deadline), orderID); err != nil {
		return fmt.Errorf("update analysis for %s: %w", orderID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o           domain.Order
		declaredKM  sql.NullFloat64
		scheduledAt sql.NullString
		deadline    sql.NullString
		createdAt   string
	)
	if err := row.Scan(
		&o.ID, &o.RawAddress, &o.Note, &o.RegisteredAddress, &declaredKM,
		&scheduledAt, &o.Status, &o.Urgency, &deadline, &o.NoteAnalyzed, &createdAt,
	); err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if declaredKM.Valid {
		o.DeclaredKM = &declaredKM.Float64
	}
	o.ScheduledAt = parseOptionalTime(scheduledAt)
	o.Deadline = parseOptionalTime(deadline)
	if t := parseOptionalTime(sql.NullString{String: createdAt, Valid: true}); t != nil {
		o.CreatedAt = *t
	}
	return &o, nil
}

func parseOptionalTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
