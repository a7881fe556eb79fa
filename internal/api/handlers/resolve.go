package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"dispatch-worklist-service/internal/api/dto"
	"dispatch-worklist-service/internal/services"
)

// ResolveHandler triggers pipeline runs on demand: a full resolution pass over
// pending orders, or an ingest cycle against the order feed.
type ResolveHandler struct {
	Resolver *services.Resolver
	Ingestor *services.Ingestor
	Log      *zap.SugaredLogger
}

func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.Resolver.ResolvePending(r.Context())
	if err != nil {
		h.Log.Errorw("resolve run failed", "error", err)
		writeError(w, r, h.Log, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ResolveResponse{
		Resolved:  len(resolved),
		Addresses: make([]dto.ResolvedAddressResponse, 0, len(resolved)),
	}
	for _, a := range resolved {
		res.Addresses = append(res.Addresses, toAddressResponse(a))
	}

	writeJSON(w, r, h.Log, http.StatusOK, res)
}

func (h *ResolveHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	result, err := h.Ingestor.Ingest(r.Context())
	if err != nil {
		h.Log.Errorw("ingest run failed", "error", err)
		writeError(w, r, h.Log, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, h.Log, http.StatusOK, dto.IngestResponse{
		RunID:     result.RunID,
		Fetched:   result.Fetched,
		Stored:    result.Stored,
		Refreshed: result.Refreshed,
		Skipped:   result.Skipped,
	})
}
