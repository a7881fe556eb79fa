package ports

import (
	"context"
	"errors"

	"dispatch-worklist-service/internal/domain"
)

// ErrStatusUnavailable means the status service cannot be reached or answered
// with a server error. Callers treat it as "keep the current status".
var ErrStatusUnavailable = errors.New("status service unavailable")

// Minimal contract of the external order feed: a batch of newly ingested
// orders. The transport behind it (Kafka, polling, files) is an adapter
// concern.
//
// Fetch must not acknowledge the batch upstream; the caller invokes Commit
// once the batch has been persisted, so a crash in between redelivers it
// (at-least-once, safe because order persistence is an upsert).
type OrderFeed interface {
	Fetch(ctx context.Context) ([]*domain.Order, error)
	Commit(ctx context.Context) error
}

// Port: the external order-status service.
type StatusClient interface {
	StatusOf(ctx context.Context, orderID string) (domain.OrderStatus, error)
}

// Port: persisted ingestion watermarks, one row per feed source.
type WatermarkStore interface {
	// Return the watermark for the source, or nil when none exists yet.
	Get(ctx context.Context, source string) (*domain.FeedWatermark, error)
	Put(ctx context.Context, wm domain.FeedWatermark) error
}
