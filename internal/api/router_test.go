package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch-worklist-service/internal/api/dto"
	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/platform/logging"
	"dispatch-worklist-service/internal/platform/obs"
	"dispatch-worklist-service/internal/services"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type stubOrderRepo struct {
	items []*domain.WorkItem
}

func (r *stubOrderRepo) ListUnresolved(context.Context) ([]*domain.Order, error) { return nil, nil }

func (r *stubOrderRepo) ListWorklist(context.Context) ([]*domain.WorkItem, error) {
	return r.items, nil
}

func (r *stubOrderRepo) UpsertOrder(context.Context, *domain.Order) error { return nil }

func (r *stubOrderRepo) UpdateAnalysis(context.Context, string, int, *time.Time) error { return nil }

var routerNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func worklistItem(id string, urgency int, deadline *time.Time) *domain.WorkItem {
	km := 8.0
	travel := 25
	return &domain.WorkItem{
		Order: &domain.Order{
			ID:       id,
			Status:   domain.StatusAwaiting,
			Urgency:  urgency,
			Deadline: deadline,
		},
		Address: &domain.ResolvedAddress{
			OrderID:       id,
			Address:       "12 Nguyễn Huệ, Quận 1",
			District:      "Quận 1",
			Ward:          "Phường Bến Nghé",
			Source:        domain.SourceAIModel,
			DistanceKM:    &km,
			TravelTimeMin: &travel,
			ResolvedAt:    routerNow,
		},
	}
}

func newTestRouter(repo *stubOrderRepo) http.Handler {
	scheduler := services.NewScheduler(repo, services.SchedulerConfig{
		FarDistanceKM:    100,
		ImminentDeadline: 2 * time.Hour,
		MaxPageSize:      200,
	}, fixedClock{routerNow}, logging.Nop())
	return NewRouter(nil, nil, scheduler, 50, logging.Nop())
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&stubOrderRepo{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWorklistRankedAndPaged(t *testing.T) {
	hard := routerNow.Add(5 * time.Hour)
	repo := &stubOrderRepo{items: []*domain.WorkItem{
		worklistItem("ORD-PLAIN", domain.UrgencyNormal, nil),
		worklistItem("ORD-HARD", domain.UrgencyHardDeadline, &hard),
	}}
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/worklist", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.WorklistResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	require.Len(t, res.Items, 2)
	assert.Equal(t, "ORD-HARD", res.Items[0].OrderID)
	assert.Equal(t, "ORD-PLAIN", res.Items[1].OrderID)
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 50, res.PageSize)

	require.NotNil(t, res.Items[0].Address)
	assert.Equal(t, "Quận 1", res.Items[0].Address.District)
	assert.Equal(t, string(domain.SourceAIModel), res.Items[0].Address.Source)
}

func TestWorklistPageSizeParam(t *testing.T) {
	repo := &stubOrderRepo{items: []*domain.WorkItem{
		worklistItem("ORD-1", domain.UrgencyNormal, nil),
		worklistItem("ORD-2", domain.UrgencyNormal, nil),
		worklistItem("ORD-3", domain.UrgencyNormal, nil),
	}}
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/worklist?page=2&page_size=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.WorklistResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	assert.Len(t, res.Items, 1)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, 3, res.TotalCount)
}

func TestWorklistRejectsBadParams(t *testing.T) {
	router := newTestRouter(&stubOrderRepo{})

	for _, path := range []string{
		"/api/v1/worklist?page=zero",
		"/api/v1/worklist?page=0",
		"/api/v1/worklist?page_size=9999",
		"/api/v1/worklist?status=teleported",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equalf(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}

func TestLoggingMiddlewarePropagatesRequestID(t *testing.T) {
	var got string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = obs.RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	wrapped := middleware.RequestID(loggingMiddleware(logging.Nop())(h))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/worklist", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, got)
}

func TestWorklistStatusFilter(t *testing.T) {
	transit := worklistItem("ORD-TRANSIT", domain.UrgencyNormal, nil)
	transit.Order.Status = domain.StatusInTransit
	repo := &stubOrderRepo{items: []*domain.WorkItem{
		worklistItem("ORD-AWAIT", domain.UrgencyNormal, nil),
		transit,
	}}
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/worklist?status=in-transit", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.WorklistResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	require.Len(t, res.Items, 1)
	assert.Equal(t, "ORD-TRANSIT", res.Items[0].OrderID)
}
