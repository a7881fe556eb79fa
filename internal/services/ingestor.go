package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/ports"
)

// Outcome of a single ingest cycle.
type IngestResult struct {
	RunID     string
	Fetched   int
	Stored    int
	Skipped   bool
	Refreshed int
}

// Ingestor pulls a batch from the order feed, persists it, and refreshes
// order statuses from the external status service. A persisted watermark
// (batch count plus content digest, keyed by feed source) lets an unchanged
// feed short-circuit the whole cycle.
type Ingestor struct {
	feed       ports.OrderFeed
	orders     ports.OrderRepository
	statuses   ports.StatusClient
	watermarks ports.WatermarkStore
	clock      ports.Clock
	log        *zap.SugaredLogger

	source        string
	statusWorkers int
}

func NewIngestor(
	feed ports.OrderFeed,
	orders ports.OrderRepository,
	statuses ports.StatusClient,
	watermarks ports.WatermarkStore,
	clock ports.Clock,
	log *zap.SugaredLogger,
	source string,
	statusWorkers int,
) *Ingestor {
	if statusWorkers < 1 {
		statusWorkers = 1
	}
	return &Ingestor{
		feed:          feed,
		orders:        orders,
		statuses:      statuses,
		watermarks:    watermarks,
		clock:         clock,
		log:           log,
		source:        source,
		statusWorkers: statusWorkers,
	}
}

// Ingest runs one feed cycle. When the fetched batch matches the stored
// watermark (same count, same digest) the cycle is a no-op: nothing changed
// upstream since the previous run.
func (in *Ingestor) Ingest(ctx context.Context) (IngestResult, error) {
	res := IngestResult{RunID: uuid.NewString()}

	batch, err := in.feed.Fetch(ctx)
	if err != nil {
		return res, fmt.Errorf("ingest: fetch feed: %w", err)
	}
	res.Fetched = len(batch)
	if len(batch) == 0 {
		return res, nil
	}

	digest := batchDigest(batch)
	prev, err := in.watermarks.Get(ctx, in.source)
	if err != nil {
		return res, fmt.Errorf("ingest: load watermark: %w", err)
	}
	if prev != nil && prev.LastCount == len(batch) && prev.LastHash == digest {
		res.Skipped = true
		in.log.Debugw("ingest: feed unchanged, skipping", "run", res.RunID, "source", in.source, "count", len(batch))
		// The same batch was persisted by the run that wrote the watermark.
		in.commitFeed(ctx, res.RunID)
		return res, nil
	}

	for _, o := range batch {
		if err := in.orders.UpsertOrder(ctx, o); err != nil {
			in.log.Warnw("ingest: upsert failed", "run", res.RunID, "order", o.ID, "error", err)
			continue
		}
		res.Stored++
	}

	res.Refreshed = in.refreshStatuses(ctx, batch)

	wm := domain.FeedWatermark{
		Source:    in.source,
		LastCount: len(batch),
		LastHash:  digest,
		UpdatedAt: in.clock.Now(),
	}
	if err := in.watermarks.Put(ctx, wm); err != nil {
		return res, fmt.Errorf("ingest: store watermark: %w", err)
	}

	// Acknowledge the batch upstream only now that it is persisted; a crash
	// earlier in the cycle redelivers it and the upserts converge.
	in.commitFeed(ctx, res.RunID)

	in.log.Infow("ingest: cycle done",
		"run", res.RunID, "source", in.source,
		"fetched", res.Fetched, "stored", res.Stored, "refreshed", res.Refreshed)
	return res, nil
}

// commitFeed acknowledges the fetched batch. A failed commit is only logged:
// the data is already persisted, so redelivery on the next cycle is harmless.
func (in *Ingestor) commitFeed(ctx context.Context, runID string) {
	if err := in.feed.Commit(ctx); err != nil {
		in.log.Warnw("ingest: feed commit failed", "run", runID, "error", err)
	}
}

// refreshStatuses asks the status service about each ingested order and
// persists any change. Unavailability of the status service degrades to
// keeping the feed-provided status.
func (in *Ingestor) refreshStatuses(ctx context.Context, batch []*domain.Order) int {
	if in.statuses == nil {
		return 0
	}

	refreshed := make([]bool, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.statusWorkers)

	for i, o := range batch {
		g.Go(func() error {
			st, err := in.statuses.StatusOf(gctx, o.ID)
			if err != nil {
				if !errors.Is(err, ports.ErrStatusUnavailable) {
					in.log.Warnw("ingest: status lookup failed", "order", o.ID, "error", err)
				}
				return nil
			}
			if !st.Valid() || st == o.Status {
				return nil
			}
			o.Status = st
			if err := in.orders.UpsertOrder(gctx, o); err != nil {
				in.log.Warnw("ingest: status update failed", "order", o.ID, "error", err)
				return nil
			}
			refreshed[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range refreshed {
		if ok {
			n++
		}
	}
	return n
}

// batchDigest is a content digest over the batch, independent of fetch order.
func batchDigest(batch []*domain.Order) string {
	lines := make([]string, 0, len(batch))
	for _, o := range batch {
		lines = append(lines, strings.Join([]string{o.ID, string(o.Status), o.RawAddress, o.Note}, "\x1f"))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
