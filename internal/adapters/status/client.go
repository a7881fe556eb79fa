package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/ports"
)

const defaultTimeout = 5 * time.Second

type statusResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Client queries the external order-status service over HTTP. When the base
// URL is empty every lookup reports ports.ErrStatusUnavailable, so wiring the client is
// optional.
type Client struct {
	baseURL string
	session *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		session: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// StatusOf returns the current lifecycle status of the order.
func (c *Client) StatusOf(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	if !c.Enabled() {
		return "", ports.ErrStatusUnavailable
	}

	endpoint := fmt.Sprintf("%s/api/v1/orders/%s/status", c.baseURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("status lookup: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.session.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ports.ErrStatusUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("status lookup: order %q not found", orderID)
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: status %d", ports.ErrStatusUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("status lookup: unexpected status %d", resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("status lookup: decode response: %w", err)
	}

	st := domain.OrderStatus(body.Status)
	if !st.Valid() {
		return "", fmt.Errorf("status lookup: unknown status %q", body.Status)
	}
	return st, nil
}
