package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/noteparse"
	"dispatch-worklist-service/internal/ports"
	"dispatch-worklist-service/internal/textnorm"
)

// ErrMissingOrderID marks a feed record without the mandatory identifier.
// The record fails fast; the rest of the batch continues.
var ErrMissingOrderID = errors.New("order has no identifier")

// Resolver is the address resolution pipeline: classify, resolve through the
// carrier table / note / AI fallbacks, attach routing metrics, persist.
//
// Resolution is idempotent for unchanged inputs and reference data, and a
// batch is safe to re-run concurrently with an unfinished previous run:
// every write is an upsert on the order id.
type Resolver struct {
	orders   ports.OrderRepository
	addrs    ports.AddressRepository
	carriers *CarrierResolver
	ai       ports.AddressStandardizer
	routes   ports.RouteProvider
	clock    ports.Clock
	log      *zap.SugaredLogger

	// Concurrent orders in flight within one batch. The per-dependency rate
	// caps live inside the AI and mapping adapters.
	batchWorkers int

	// An order older than this is flagged overdue on its resolved address.
	overdueAfter time.Duration
}

func NewResolver(
	orders ports.OrderRepository,
	addrs ports.AddressRepository,
	carriers *CarrierResolver,
	ai ports.AddressStandardizer,
	routes ports.RouteProvider,
	clock ports.Clock,
	log *zap.SugaredLogger,
	batchWorkers int,
	overdueAfter time.Duration,
) *Resolver {
	if batchWorkers < 1 {
		batchWorkers = 1
	}
	return &Resolver{
		orders:       orders,
		addrs:        addrs,
		carriers:     carriers,
		ai:           ai,
		routes:       routes,
		clock:        clock,
		log:          log,
		batchWorkers: batchWorkers,
		overdueAfter: overdueAfter,
	}
}

// ResolvePending resolves every order that does not yet have a resolved
// address. This is the entrypoint used by the periodic run and the manual
// trigger endpoint.
func (r *Resolver) ResolvePending(ctx context.Context) ([]*domain.ResolvedAddress, error) {
	pending, err := r.orders.ListUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve pending: list unresolved: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return r.ResolveAddresses(ctx, pending)
}

// ResolveAddresses runs the pipeline over a batch. Orders resolve
// concurrently up to the worker limit; each order's own steps stay
// sequential. Failures degrade per order — the returned slice holds one
// entry for every order that carried an identifier.
func (r *Resolver) ResolveAddresses(ctx context.Context, orders []*domain.Order) ([]*domain.ResolvedAddress, error) {
	results := make([]*domain.ResolvedAddress, len(orders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.batchWorkers)

	for i, o := range orders {
		g.Go(func() error {
			res, err := r.resolveOne(gctx, o)
			if err != nil {
				// Data-integrity failures affect one record only.
				r.log.Warnw("order skipped", "order_id", o.ID, "err", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve addresses: %w", err)
	}

	out := make([]*domain.ResolvedAddress, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}

	// Deterministic output order regardless of completion order.
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

// RefreshRoutes fills in route metrics for addresses that resolved without
// them, typically after a provider outage degraded a batch to null
// distance/time. The address triple is never touched.
func (r *Resolver) RefreshRoutes(ctx context.Context) (int, error) {
	missing, err := r.addrs.ListMissingRoute(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh routes: %w", err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	updated := make([]bool, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.batchWorkers)

	for i, a := range missing {
		g.Go(func() error {
			route, err := r.routes.RouteTo(gctx, a.Address)
			if err != nil {
				r.log.Warnw("route refresh failed", "order_id", a.OrderID, "err", err)
				return nil
			}
			if route.DistanceKM == nil || route.TravelTimeMin == nil {
				return nil
			}
			if err := r.addrs.UpdateRoute(gctx, a.OrderID, route.DistanceKM, route.TravelTimeMin); err != nil {
				r.log.Warnw("route refresh persist failed", "order_id", a.OrderID, "err", err)
				return nil
			}
			updated[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range updated {
		if ok {
			n++
		}
	}
	if n > 0 {
		r.log.Infow("route metrics refreshed", "count", n)
	}
	return n, nil
}

func (r *Resolver) resolveOne(ctx context.Context, o *domain.Order) (*domain.ResolvedAddress, error) {
	if o == nil || o.ID == "" {
		return nil, ErrMissingOrderID
	}

	now := r.clock.Now()
	ref := now
	if o.ScheduledAt != nil {
		ref = *o.ScheduledAt
	}

	parsed := noteparse.Parse(o.Note, ref)
	if err := r.orders.UpdateAnalysis(ctx, o.ID, parsed.Priority, parsed.Deadline); err != nil {
		// Note analysis is re-derivable; resolution continues.
		r.log.Warnw("persist note analysis failed", "order_id", o.ID, "err", err)
	}

	res, viaFallback := r.resolveTriple(ctx, o, parsed)
	res.OrderID = o.ID
	res.ResolvedAt = now
	res.Overdue = !o.CreatedAt.IsZero() && now.Sub(o.CreatedAt) > r.overdueAfter

	r.attachRoute(ctx, o, res, ref, viaFallback)

	if err := r.addrs.Upsert(ctx, res); err != nil {
		return nil, fmt.Errorf("persist resolved address for %s: %w", o.ID, err)
	}

	r.log.Infow("order resolved",
		"order_id", o.ID, "source", res.Source, "district", res.District, "ward", res.Ward)
	return res, nil
}

// resolveTriple runs the classification state machine and returns the
// address/district/ward triple with its single provenance tag. The second
// return reports whether the result came out of the fallback stage, which
// widens what attachRoute may substitute for real route metrics.
func (r *Resolver) resolveTriple(ctx context.Context, o *domain.Order, parsed noteparse.Result) (*domain.ResolvedAddress, bool) {
	cleaned := textnorm.CleanAddress(o.RawAddress)

	// Express handoff has no road route from the warehouse at all.
	if cleaned != "" && textnorm.IsExpressService(cleaned) {
		return &domain.ResolvedAddress{Address: cleaned, Source: domain.SourceExpress}, false
	}

	switch textnorm.Classify(o.RawAddress) {
	case textnorm.KindEmpty:
		return r.resolveFallback(ctx, o, parsed), true

	case textnorm.KindSingleCarrier, textnorm.KindMultiCarrier:
		return r.resolveCarrier(ctx, o, parsed)

	default: // KindRegular
		if cleaned == "" {
			// Non-blank raw text that cleaning reduced to nothing (a bare
			// phone number, an honorific); distinct from a blank address.
			res := r.resolveFallback(ctx, o, parsed)
			if res.Source == domain.SourceEmpty {
				res.Source = domain.SourceInvalid
			}
			return res, true
		}
		return r.standardizeOrOriginal(ctx, cleaned, o.ID), false
	}
}

// standardizeOrOriginal delegates a street address to the model and accepts
// the result only when the full triple came back; otherwise the cleaned
// original text stands, tagged as such.
func (r *Resolver) standardizeOrOriginal(ctx context.Context, cleaned, orderID string) *domain.ResolvedAddress {
	std, err := r.ai.Standardize(ctx, cleaned, orderID)
	if err != nil {
		r.log.Warnw("standardize failed", "order_id", orderID, "err", err)
	}
	if err == nil && std.Resolved && std.Address != "" && std.District != "" && std.Ward != "" {
		return &domain.ResolvedAddress{
			Address:  std.Address,
			District: std.District,
			Ward:     std.Ward,
			Source:   domain.SourceAIModel,
		}
	}
	if std.Failed {
		return &domain.ResolvedAddress{Address: cleaned, Source: domain.SourceFailed}
	}
	return &domain.ResolvedAddress{Address: cleaned, Source: domain.SourceOriginalText}
}

// resolveCarrier handles addresses that reference a transport company. The
// note's carrier name overrides the one embedded in the address field.
func (r *Resolver) resolveCarrier(ctx context.Context, o *domain.Order, parsed noteparse.Result) (*domain.ResolvedAddress, bool) {
	name := parsed.CarrierName
	if name == "" {
		name = textnorm.ExtractCarrierName(o.RawAddress)
	}

	rec, err := r.carriers.Resolve(ctx, textnorm.NormalizeCarrierName(name), o.Note, parsed.TimeHint)
	if err != nil {
		r.log.Warnw("carrier lookup failed", "order_id", o.ID, "carrier", name, "err", err)
	}
	if rec != nil {
		return &domain.ResolvedAddress{
			Address:  rec.Address,
			District: rec.District,
			Ward:     rec.Ward,
			Source:   domain.SourceTransportDB,
		}, false
	}

	return r.resolveFallback(ctx, o, parsed), true
}

// resolveFallback is the last resolution stage: the note's embedded address,
// then the registered-office address, then an explicit Empty sentinel.
func (r *Resolver) resolveFallback(ctx context.Context, o *domain.Order, parsed noteparse.Result) *domain.ResolvedAddress {
	if parsed.Address != "" {
		std, err := r.ai.Standardize(ctx, textnorm.CleanAddress(parsed.Address), o.ID)
		if err == nil && std.Resolved && std.District != "" && std.Ward != "" {
			return &domain.ResolvedAddress{
				Address:  std.Address,
				District: std.District,
				Ward:     std.Ward,
				Source:   domain.SourceAIModel,
			}
		}
	}

	registered := textnorm.CleanAddress(o.RegisteredAddress)
	if registered != "" {
		std, err := r.ai.Standardize(ctx, registered, o.ID)
		if err == nil && std.Resolved && std.District != "" && std.Ward != "" {
			return &domain.ResolvedAddress{
				Address:  std.Address,
				District: std.District,
				Ward:     std.Ward,
				Source:   domain.SourceAIModel,
			}
		}
		return &domain.ResolvedAddress{Address: registered, Source: domain.SourceOriginalText}
	}

	return &domain.ResolvedAddress{Source: domain.SourceEmpty}
}

// attachRoute decorates the resolved triple with distance and travel time.
// Express, Empty and Invalid results stay without metrics by definition.
func (r *Resolver) attachRoute(ctx context.Context, o *domain.Order, res *domain.ResolvedAddress, ref time.Time, viaFallback bool) {
	switch res.Source {
	case domain.SourceExpress, domain.SourceEmpty, domain.SourceInvalid:
		return
	}

	// The declared distance hint substitutes for geocoding only on the
	// fallback path; a cleanly resolved address gets real route metrics.
	if viaFallback && o.DeclaredKM != nil && *o.DeclaredKM > 0 {
		km := *o.DeclaredKM
		minutes := EstimateTravelTime(ref, km)
		res.DistanceKM = &km
		res.TravelTimeMin = &minutes
		return
	}

	if res.Address == "" {
		return
	}

	route, err := r.routes.RouteTo(ctx, res.Address)
	if err != nil {
		// Unknown stays unknown; the scheduler ranks incomplete data last.
		r.log.Warnw("route lookup failed", "order_id", o.ID, "err", err)
		return
	}
	res.DistanceKM = route.DistanceKM
	res.TravelTimeMin = route.TravelTimeMin
}
