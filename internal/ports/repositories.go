package ports

import (
	"context"
	"time"

	"dispatch-worklist-service/internal/domain"
)

// Port: order persistence. Orders are ingested by the feed adapter and
// mutated by the resolution pipeline (urgency/deadline/analyzed flag only).
type OrderRepository interface {
	// Return orders that still need address resolution.
	ListUnresolved(ctx context.Context) ([]*domain.Order, error)
	// Return pending orders joined with their resolved addresses for ranking.
	ListWorklist(ctx context.Context) ([]*domain.WorkItem, error)
	// Insert or update an ingested order (idempotent on the external id).
	UpsertOrder(ctx context.Context, o *domain.Order) error
	// Persist the pipeline-owned fields after note analysis.
	UpdateAnalysis(ctx context.Context, orderID string, urgency int, deadline *time.Time) error
}

// Port: resolved-address persistence. One row per order, upserted.
type AddressRepository interface {
	Get(ctx context.Context, orderID string) (*domain.ResolvedAddress, error)
	Upsert(ctx context.Context, addr *domain.ResolvedAddress) error
	// Return routable records whose distance/time is still unknown, for the
	// metrics-refresh pass.
	ListMissingRoute(ctx context.Context) ([]*domain.ResolvedAddress, error)
	// Update only the routing metrics, leaving the address triple untouched.
	UpdateRoute(ctx context.Context, orderID string, distanceKM *float64, travelTimeMin *int) error
}

// Port: read-only carrier reference table.
type CarrierRepository interface {
	// Case- and diacritic-insensitive substring match against carrier names.
	// The caller passes an already-normalized name.
	FindByName(ctx context.Context, normalizedName string) ([]domain.CarrierRecord, error)
}
