package services

import (
	"context"
	"math/rand"
	"slices"
	"testing"
	"time"

	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/platform/logging"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type analysisCall struct {
	orderID  string
	urgency  int
	deadline *time.Time
}

type fakeOrderRepo struct {
	worklist   []*domain.WorkItem
	unresolved []*domain.Order
	upserted   []*domain.Order
	analyses   []analysisCall
}

func (f *fakeOrderRepo) ListUnresolved(ctx context.Context) ([]*domain.Order, error) {
	return f.unresolved, nil
}

func (f *fakeOrderRepo) ListWorklist(ctx context.Context) ([]*domain.WorkItem, error) {
	return f.worklist, nil
}

func (f *fakeOrderRepo) UpsertOrder(ctx context.Context, o *domain.Order) error {
	f.upserted = append(f.upserted, o)
	return nil
}

func (f *fakeOrderRepo) UpdateAnalysis(ctx context.Context, orderID string, urgency int, deadline *time.Time) error {
	f.analyses = append(f.analyses, analysisCall{orderID: orderID, urgency: urgency, deadline: deadline})
	return nil
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func tptr(t time.Time) *time.Time {
	return &t
}

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testScheduler(repo *fakeOrderRepo) *Scheduler {
	return NewScheduler(repo, SchedulerConfig{
		FarDistanceKM:    100,
		ImminentDeadline: 2 * time.Hour,
		MaxPageSize:      200,
	}, fixedClock{testNow}, logging.Nop())
}

// completeItem builds a rankable work item: complete address, 10km, fresh.
func completeItem(id string) *domain.WorkItem {
	return &domain.WorkItem{
		Order: &domain.Order{
			ID:        id,
			Status:    domain.StatusAwaiting,
			CreatedAt: testNow.Add(-time.Hour),
		},
		Address: &domain.ResolvedAddress{
			OrderID:       id,
			Address:       "214 Lý Thường Kiệt",
			District:      "Quận 10",
			Ward:          "Phường 14",
			Source:        domain.SourceAIModel,
			DistanceKM:    fptr(10),
			TravelTimeMin: iptr(30),
		},
	}
}

func TestRankTiers(t *testing.T) {
	s := testScheduler(&fakeOrderRepo{})

	cases := []struct {
		name string
		item *domain.WorkItem
		want int
	}{
		{
			name: "missing address",
			item: &domain.WorkItem{Order: &domain.Order{ID: "a"}},
			want: 100,
		},
		{
			name: "incomplete address",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Address.TravelTimeMin = nil
				return it
			}(),
			want: 100,
		},
		{
			name: "incomplete beats urgency",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Address.DistanceKM = nil
				it.Order.Urgency = domain.UrgencyHardDeadline
				return it
			}(),
			want: 100,
		},
		{
			name: "far away",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Address.DistanceKM = fptr(115)
				return it
			}(),
			want: 99,
		},
		{
			name: "hard urgency",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Order.Urgency = domain.UrgencyHardDeadline
				return it
			}(),
			want: 0,
		},
		{
			name: "imminent fresh",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Order.Deadline = tptr(testNow.Add(time.Hour))
				return it
			}(),
			want: 5,
		},
		{
			name: "imminent passed deadline",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Order.Deadline = tptr(testNow.Add(-time.Hour))
				return it
			}(),
			want: 5,
		},
		{
			name: "imminent two days stale and flagged",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Order.Deadline = tptr(testNow.Add(time.Hour))
				it.Order.CreatedAt = testNow.Add(-50 * time.Hour)
				it.Address.Overdue = true
				return it
			}(),
			want: 1,
		},
		{
			name: "overdue normal urgency",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Address.Overdue = true
				return it
			}(),
			want: 10,
		},
		{
			name: "soft urgency fresh",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Order.Urgency = domain.UrgencySoftDeadline
				return it
			}(),
			want: 13,
		},
		{
			name: "soft urgency two days stale",
			item: func() *domain.WorkItem {
				it := completeItem("a")
				it.Order.Urgency = domain.UrgencySoftDeadline
				it.Order.CreatedAt = testNow.Add(-72 * time.Hour)
				return it
			}(),
			want: 11,
		},
		{
			name: "default",
			item: completeItem("a"),
			want: 16,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := s.Rank(c.item, testNow); got != c.want {
				t.Fatalf("Rank = %d, want %d", got, c.want)
			}
		})
	}
}

func TestCompareTotalOrder(t *testing.T) {
	s := testScheduler(&fakeOrderRepo{})

	hard := completeItem("hard")
	hard.Order.Urgency = domain.UrgencyHardDeadline

	far := completeItem("far")
	far.Address.DistanceKM = fptr(115)

	closer := completeItem("closer")
	closer.Address.DistanceKM = fptr(5)

	incomplete := &domain.WorkItem{Order: &domain.Order{ID: "incomplete"}}

	sooner := completeItem("sooner-deadline")
	sooner.Order.Deadline = tptr(testNow.Add(30 * time.Hour)) // not imminent, not today

	items := []*domain.WorkItem{incomplete, far, completeItem("plain"), hard, closer, sooner}

	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b *domain.WorkItem) int { return s.Compare(a, b, testNow) })

	wantOrder := []string{"hard", "sooner-deadline", "closer", "plain", "far", "incomplete"}
	for i, id := range wantOrder {
		if sorted[i].Order.ID != id {
			t.Fatalf("position %d = %q, want %q", i, sorted[i].Order.ID, id)
		}
	}

	// Sorting a shuffled copy must reproduce the identical order.
	shuffled := slices.Clone(items)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	slices.SortFunc(shuffled, func(a, b *domain.WorkItem) int { return s.Compare(a, b, testNow) })

	for i := range sorted {
		if sorted[i].Order.ID != shuffled[i].Order.ID {
			t.Fatalf("order not deterministic at %d: %q vs %q", i, sorted[i].Order.ID, shuffled[i].Order.ID)
		}
	}
}

func TestCompareFallsBackToOrderID(t *testing.T) {
	s := testScheduler(&fakeOrderRepo{})

	a := completeItem("ORD-001")
	b := completeItem("ORD-002")

	if s.Compare(a, b, testNow) >= 0 {
		t.Fatal("expected ORD-001 before ORD-002")
	}
	if s.Compare(b, a, testNow) <= 0 {
		t.Fatal("expected ORD-002 after ORD-001")
	}
	if s.Compare(a, a, testNow) != 0 {
		t.Fatal("expected identity comparison to be 0")
	}
}

func TestRankAndPagePagination(t *testing.T) {
	repo := &fakeOrderRepo{}
	for _, id := range []string{"e", "d", "c", "b", "a"} {
		repo.worklist = append(repo.worklist, completeItem(id))
	}
	s := testScheduler(repo)

	page, err := s.RankAndPage(context.Background(), 1, 2, Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalCount != 5 || page.TotalPages != 3 {
		t.Fatalf("totals = %d/%d, want 5/3", page.TotalCount, page.TotalPages)
	}
	if len(page.Items) != 2 || page.Items[0].Order.ID != "a" || page.Items[1].Order.ID != "b" {
		t.Fatalf("unexpected first page: %v", ids(page.Items))
	}

	last, err := s.RankAndPage(context.Background(), 3, 2, Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(last.Items) != 1 || last.Items[0].Order.ID != "e" {
		t.Fatalf("unexpected last page: %v", ids(last.Items))
	}

	beyond, err := s.RankAndPage(context.Background(), 9, 2, Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(beyond.Items) != 0 {
		t.Fatalf("expected empty page, got %v", ids(beyond.Items))
	}
}

func TestRankAndPageValidation(t *testing.T) {
	s := testScheduler(&fakeOrderRepo{})

	if _, err := s.RankAndPage(context.Background(), 0, 10, Filters{}); err == nil {
		t.Fatal("expected error for page 0")
	}
	if _, err := s.RankAndPage(context.Background(), 1, 0, Filters{}); err == nil {
		t.Fatal("expected error for page size 0")
	}
	if _, err := s.RankAndPage(context.Background(), 1, 500, Filters{}); err == nil {
		t.Fatal("expected error for page size above the cap")
	}
}

func TestRankAndPageFilters(t *testing.T) {
	inDistrict := completeItem("in")
	outDistrict := completeItem("out")
	outDistrict.Address.District = "Quận 1"
	done := completeItem("done")
	done.Order.Status = domain.StatusCompleted

	repo := &fakeOrderRepo{worklist: []*domain.WorkItem{inDistrict, outDistrict, done}}
	s := testScheduler(repo)

	page, err := s.RankAndPage(context.Background(), 1, 10, Filters{
		Statuses: []domain.OrderStatus{domain.StatusAwaiting},
		District: "quận 10",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Order.ID != "in" {
		t.Fatalf("unexpected filtered items: %v", ids(page.Items))
	}
}

func ids(items []*domain.WorkItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Order.ID)
	}
	return out
}
