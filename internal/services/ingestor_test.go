package services

import (
	"context"
	"testing"

	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/platform/logging"
)

type fakeFeed struct {
	batch []*domain.Order

	commits int
	// Upserts visible in the order repository at the moment of each commit.
	storedAtCommit []int
	repo           *fakeOrderRepo
}

func (f *fakeFeed) Fetch(ctx context.Context) ([]*domain.Order, error) {
	return f.batch, nil
}

func (f *fakeFeed) Commit(ctx context.Context) error {
	f.commits++
	if f.repo != nil {
		f.storedAtCommit = append(f.storedAtCommit, len(f.repo.upserted))
	}
	return nil
}

type memWatermarkStore struct {
	stored map[string]domain.FeedWatermark
}

func newMemWatermarkStore() *memWatermarkStore {
	return &memWatermarkStore{stored: map[string]domain.FeedWatermark{}}
}

func (m *memWatermarkStore) Get(ctx context.Context, source string) (*domain.FeedWatermark, error) {
	wm, ok := m.stored[source]
	if !ok {
		return nil, nil
	}
	return &wm, nil
}

func (m *memWatermarkStore) Put(ctx context.Context, wm domain.FeedWatermark) error {
	m.stored[wm.Source] = wm
	return nil
}

func feedOrders(ids ...string) []*domain.Order {
	out := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, &domain.Order{
			ID:         id,
			RawAddress: "214 Lý Thường Kiệt",
			Status:     domain.StatusAwaiting,
			CreatedAt:  testNow,
		})
	}
	return out
}

func TestIngestStoresBatchAndWatermark(t *testing.T) {
	repo := &fakeOrderRepo{}
	wms := newMemWatermarkStore()
	in := NewIngestor(&fakeFeed{batch: feedOrders("a", "b")}, repo, nil, wms, fixedClock{testNow}, logging.Nop(), "order-feed", 2)

	res, err := in.Ingest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Fetched != 2 || res.Stored != 2 || res.Skipped {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.RunID == "" {
		t.Fatal("expected a run id")
	}
	if len(repo.upserted) != 2 {
		t.Fatalf("upserted %d orders, want 2", len(repo.upserted))
	}

	wm, ok := wms.stored["order-feed"]
	if !ok {
		t.Fatal("watermark not stored")
	}
	if wm.LastCount != 2 || wm.LastHash == "" {
		t.Fatalf("unexpected watermark: %+v", wm)
	}
}

func TestIngestUnchangedFeedSkips(t *testing.T) {
	repo := &fakeOrderRepo{}
	wms := newMemWatermarkStore()
	feed := &fakeFeed{batch: feedOrders("a", "b")}
	in := NewIngestor(feed, repo, nil, wms, fixedClock{testNow}, logging.Nop(), "order-feed", 2)

	if _, err := in.Ingest(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	storedAfterFirst := len(repo.upserted)

	res, err := in.Ingest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Skipped {
		t.Fatal("expected unchanged feed to be skipped")
	}
	if len(repo.upserted) != storedAfterFirst {
		t.Fatalf("skipped run still wrote %d orders", len(repo.upserted)-storedAfterFirst)
	}
}

func TestIngestChangedContentReruns(t *testing.T) {
	repo := &fakeOrderRepo{}
	wms := newMemWatermarkStore()
	feed := &fakeFeed{batch: feedOrders("a", "b")}
	in := NewIngestor(feed, repo, nil, wms, fixedClock{testNow}, logging.Nop(), "order-feed", 2)

	if _, err := in.Ingest(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same count, different content: the digest must force a re-run.
	feed.batch = feedOrders("a", "c")
	res, err := in.Ingest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Skipped {
		t.Fatal("changed feed content must not be skipped")
	}
}

func TestIngestCommitsFeedAfterPersisting(t *testing.T) {
	repo := &fakeOrderRepo{}
	wms := newMemWatermarkStore()
	feed := &fakeFeed{batch: feedOrders("a", "b"), repo: repo}
	in := NewIngestor(feed, repo, nil, wms, fixedClock{testNow}, logging.Nop(), "order-feed", 2)

	if _, err := in.Ingest(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed.commits != 1 {
		t.Fatalf("commits = %d, want 1", feed.commits)
	}
	// Both orders must already be in the repository when the feed is
	// acknowledged; committing first would lose them on a crash.
	if len(feed.storedAtCommit) != 1 || feed.storedAtCommit[0] != 2 {
		t.Fatalf("commit saw %v persisted upserts, want [2]", feed.storedAtCommit)
	}

	// An unchanged redelivered batch skips persistence but still gets
	// acknowledged: it was persisted by the run that wrote the watermark.
	res, err := in.Ingest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Skipped {
		t.Fatal("expected the unchanged batch to be skipped")
	}
	if feed.commits != 2 {
		t.Fatalf("commits = %d, want 2", feed.commits)
	}
}

func TestIngestEmptyFeedIsNoOp(t *testing.T) {
	repo := &fakeOrderRepo{}
	wms := newMemWatermarkStore()
	feed := &fakeFeed{}
	in := NewIngestor(feed, repo, nil, wms, fixedClock{testNow}, logging.Nop(), "order-feed", 2)

	res, err := in.Ingest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Fetched != 0 || res.Stored != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(wms.stored) != 0 {
		t.Fatal("empty fetch must not move the watermark")
	}
	if feed.commits != 0 {
		t.Fatalf("commits = %d, want 0 for an empty fetch", feed.commits)
	}
}

func TestBatchDigestIsOrderIndependent(t *testing.T) {
	a := feedOrders("a", "b", "c")
	b := []*domain.Order{a[2], a[0], a[1]}

	if batchDigest(a) != batchDigest(b) {
		t.Fatal("digest must not depend on fetch order")
	}

	changed := feedOrders("a", "b", "c")
	changed[1].Status = domain.StatusCompleted
	if batchDigest(a) == batchDigest(changed) {
		t.Fatal("digest must change with content")
	}
}
