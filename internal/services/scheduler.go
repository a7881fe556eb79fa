package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/ports"
)

// Named scheduling thresholds. The far-distance cutoff and the imminent
// deadline window are inherited operational constants with no documented
// rationale; they are configuration, not derived values.
type SchedulerConfig struct {
	FarDistanceKM    float64
	ImminentDeadline time.Duration
	MaxPageSize      int
}

// Ranking tiers. Lower sorts first.
const (
	tierHardDeadline = 0
	tierOverdue      = 10
	tierDefault      = 16
	tierFarAway      = 99
	tierIncomplete   = 100
)

// Filters restricts the eligible set before ranking.
type Filters struct {
	Statuses []domain.OrderStatus
	District string
}

// One page of the globally sorted worklist.
type WorklistPage struct {
	Items      []*domain.WorkItem
	TotalCount int
	TotalPages int
	Page       int
	PageSize   int
}

// Scheduler produces the deterministically ordered dispatch worklist.
type Scheduler struct {
	orders ports.OrderRepository
	cfg    SchedulerConfig
	clock  ports.Clock
	log    *zap.SugaredLogger
}

func NewScheduler(orders ports.OrderRepository, cfg SchedulerConfig, clock ports.Clock, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{orders: orders, cfg: cfg, clock: clock, log: log}
}

// Rank computes the priority tier for one work item as a strict waterfall:
// each rule applies only when no earlier rule matched.
//
// Incomplete records rank below everything real — and the check runs first,
// so a record missing its travel time can never masquerade as on-time no
// matter how urgent its note sounded.
func (s *Scheduler) Rank(item *domain.WorkItem, now time.Time) int {
	addr := item.Address
	if addr == nil || !addr.Complete() {
		return tierIncomplete
	}

	if *addr.DistanceKM > s.cfg.FarDistanceKM {
		return tierFarAway
	}

	if item.Order.Urgency == domain.UrgencyHardDeadline {
		return tierHardDeadline
	}

	stale := stalenessDays(item.Order, now)
	imminent := deadlineImminent(item.Order, now, s.cfg.ImminentDeadline)

	// Tiers 1-5: imminent deadlines, most-stale-and-flagged first.
	if imminent {
		switch {
		case stale >= 2 && addr.Overdue:
			return 1
		case stale >= 2:
			return 2
		case stale == 1 && addr.Overdue:
			return 3
		case stale == 1:
			return 4
		default:
			return 5
		}
	}

	if addr.Overdue && item.Order.Urgency == domain.UrgencyNormal {
		return tierOverdue
	}

	// Tiers 11-15: no imminent deadline, descending urgency then staleness.
	switch {
	case item.Order.Urgency == domain.UrgencySoftDeadline && stale >= 2:
		return 11
	case item.Order.Urgency == domain.UrgencySoftDeadline && stale == 1:
		return 12
	case item.Order.Urgency == domain.UrgencySoftDeadline:
		return 13
	case stale >= 2:
		return 14
	case stale == 1:
		return 15
	}

	return tierDefault
}

// Compare is the single worklist comparator: tier first, then the tie-break
// chain. The final key (order id) guarantees a strict total order, so
// pagination is stable and reproducible.
func (s *Scheduler) Compare(a, b *domain.WorkItem, now time.Time) int {
	if d := s.Rank(a, now) - s.Rank(b, now); d != 0 {
		return d
	}

	// (a) deadline falling today beats any other day.
	aToday := deadlineToday(a.Order, now)
	bToday := deadlineToday(b.Order, now)
	if aToday != bToday {
		if aToday {
			return -1
		}
		return 1
	}

	// (b) minutes until deadline, ascending; no deadline sorts last.
	if d := compareInt64(minutesUntil(a.Order, now), minutesUntil(b.Order, now)); d != 0 {
		return d
	}

	// (c) distance, (d) travel time, ascending; unknown sorts last.
	if d := compareFloat(a.Address, b.Address); d != 0 {
		return d
	}
	if d := compareTravelTime(a.Address, b.Address); d != 0 {
		return d
	}

	// (e) scheduled dispatch timestamp; missing sorts last.
	if d := compareSchedule(a.Order, b.Order); d != 0 {
		return d
	}

	// (f) lexicographic order id.
	return strings.Compare(a.Order.ID, b.Order.ID)
}

// RankAndPage sorts the full eligible set and returns one page. A
// non-positive page or page size is a caller error, never silently
// defaulted.
func (s *Scheduler) RankAndPage(ctx context.Context, page, pageSize int, f Filters) (*WorklistPage, error) {
	if page < 1 {
		return nil, fmt.Errorf("rank and page: page must be >= 1, got %d", page)
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("rank and page: page size must be >= 1, got %d", pageSize)
	}
	if s.cfg.MaxPageSize > 0 && pageSize > s.cfg.MaxPageSize {
		return nil, fmt.Errorf("rank and page: page size must be <= %d, got %d", s.cfg.MaxPageSize, pageSize)
	}

	items, err := s.orders.ListWorklist(ctx)
	if err != nil {
		return nil, fmt.Errorf("rank and page: list worklist: %w", err)
	}

	eligible := items[:0:0]
	for _, item := range items {
		if f.matches(item) {
			eligible = append(eligible, item)
		}
	}

	now := s.clock.Now()
	slices.SortFunc(eligible, func(a, b *domain.WorkItem) int {
		return s.Compare(a, b, now)
	})

	total := len(eligible)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &WorklistPage{
		Items:      eligible[start:end],
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (f Filters) matches(item *domain.WorkItem) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, item.Order.Status) {
		return false
	}
	if f.District != "" {
		if item.Address == nil || !strings.EqualFold(item.Address.District, f.District) {
			return false
		}
	}
	return true
}

// stalenessDays is full days since the order entered the system, capped at
// the two-day band the tier table distinguishes.
func stalenessDays(o *domain.Order, now time.Time) int {
	if o.CreatedAt.IsZero() {
		return 0
	}
	days := int(now.Sub(o.CreatedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	if days > 2 {
		days = 2
	}
	return days
}

// deadlineImminent includes deadlines already passed: a missed deadline is
// at least as pressing as one two hours out.
func deadlineImminent(o *domain.Order, now time.Time, window time.Duration) bool {
	if o.Deadline == nil {
		return false
	}
	return o.Deadline.Sub(now) <= window
}

func deadlineToday(o *domain.Order, now time.Time) bool {
	if o.Deadline == nil {
		return false
	}
	y1, m1, d1 := o.Deadline.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// minutesUntil treats a missing deadline as infinitely far away.
func minutesUntil(o *domain.Order, now time.Time) int64 {
	if o.Deadline == nil {
		return int64(1) << 62
	}
	return int64(o.Deadline.Sub(now) / time.Minute)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b *domain.ResolvedAddress) int {
	av, bv := float64Or(a), float64Or(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}

func float64Or(a *domain.ResolvedAddress) float64 {
	if a == nil || a.DistanceKM == nil {
		return float64(1 << 62)
	}
	return *a.DistanceKM
}

func compareTravelTime(a, b *domain.ResolvedAddress) int {
	av, bv := travelOr(a), travelOr(b)
	return av - bv
}

func travelOr(a *domain.ResolvedAddress) int {
	if a == nil || a.TravelTimeMin == nil {
		return 1 << 30
	}
	return *a.TravelTimeMin
}

// compareSchedule orders by dispatch timestamp; orders without one sort
// last.
func compareSchedule(a, b *domain.Order) int {
	switch {
	case a.ScheduledAt == nil && b.ScheduledAt == nil:
		return 0
	case a.ScheduledAt == nil:
		return 1
	case b.ScheduledAt == nil:
		return -1
	case a.ScheduledAt.Before(*b.ScheduledAt):
		return -1
	case b.ScheduledAt.Before(*a.ScheduledAt):
		return 1
	}
	return 0
}
