package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"dispatch-worklist-service/internal/api/dto"
	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/services"
)

// WorklistHandler serves the ranked dispatch worklist, paged.
type WorklistHandler struct {
	Scheduler       *services.Scheduler
	DefaultPageSize int
	Log             *zap.SugaredLogger
}

func (h *WorklistHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, "page must be an integer")
		return
	}
	pageSize, err := queryInt(r, "page_size", h.DefaultPageSize)
	if err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	filters := services.Filters{District: r.URL.Query().Get("district")}
	for _, s := range strings.Split(r.URL.Query().Get("status"), ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		st := domain.OrderStatus(s)
		if !st.Valid() {
			writeError(w, r, h.Log, http.StatusBadRequest, "unknown status "+strconv.Quote(s))
			return
		}
		filters.Statuses = append(filters.Statuses, st)
	}

	result, err := h.Scheduler.RankAndPage(r.Context(), page, pageSize, filters)
	if err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}

	res := dto.WorklistResponse{
		Items:      make([]dto.WorkItemResponse, 0, len(result.Items)),
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
		Page:       result.Page,
		PageSize:   result.PageSize,
	}
	for _, item := range result.Items {
		res.Items = append(res.Items, toWorkItemResponse(item))
	}

	writeJSON(w, r, h.Log, http.StatusOK, res)
}

func toWorkItemResponse(item *domain.WorkItem) dto.WorkItemResponse {
	out := dto.WorkItemResponse{
		OrderID:     item.Order.ID,
		Status:      string(item.Order.Status),
		Urgency:     item.Order.Urgency,
		Deadline:    item.Order.Deadline,
		ScheduledAt: item.Order.ScheduledAt,
	}
	if item.Address != nil {
		addr := toAddressResponse(item.Address)
		out.Address = &addr
	}
	return out
}

func toAddressResponse(a *domain.ResolvedAddress) dto.ResolvedAddressResponse {
	return dto.ResolvedAddressResponse{
		OrderID:       a.OrderID,
		Address:       a.Address,
		District:      a.District,
		Ward:          a.Ward,
		Source:        string(a.Source),
		DistanceKM:    a.DistanceKM,
		TravelTimeMin: a.TravelTimeMin,
		Overdue:       a.Overdue,
		ResolvedAt:    a.ResolvedAt,
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
