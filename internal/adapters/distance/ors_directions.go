package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"dispatch-worklist-service/internal/domain"
)

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"routes"`
}

// Route requests a live-traffic car route between two coordinates and
// returns its total meters and seconds.
func (o *ORSMapProvider) Route(ctx context.Context, origin, destination domain.Coordinates) (int, int, error) {
	endpoint := fmt.Sprintf("%s/v2/directions/%s", o.baseURL, o.profile)

	payload, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{origin.LonLat(), destination.LonLat()},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return 0, 0, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, 0, fmt.Errorf("decode directions response: %w", err)
	}

	if len(decoded.Routes) == 0 {
		return 0, 0, fmt.Errorf("no route between %v and %v", origin, destination)
	}

	sum := decoded.Routes[0].Summary
	return int(math.Round(sum.Distance)), int(math.Round(sum.Duration)), nil
}
