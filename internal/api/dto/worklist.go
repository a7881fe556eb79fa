package dto

import "time"

type ResolvedAddressResponse struct {
	OrderID       string    `json:"order_id"`
	Address       string    `json:"address"`
	District      string    `json:"district,omitempty"`
	Ward          string    `json:"ward,omitempty"`
	Source        string    `json:"source"`
	DistanceKM    *float64  `json:"distance_km,omitempty"`
	TravelTimeMin *int      `json:"travel_time_min,omitempty"`
	Overdue       bool      `json:"overdue"`
	ResolvedAt    time.Time `json:"resolved_at"`
}

type ResolveResponse struct {
	Resolved  int                       `json:"resolved"`
	Addresses []ResolvedAddressResponse `json:"addresses"`
}

type WorkItemResponse struct {
	OrderID     string                   `json:"order_id"`
	Status      string                   `json:"status"`
	Urgency     int                      `json:"urgency"`
	Deadline    *time.Time               `json:"deadline,omitempty"`
	ScheduledAt *time.Time               `json:"scheduled_at,omitempty"`
	Address     *ResolvedAddressResponse `json:"address,omitempty"`
}

type WorklistResponse struct {
	Items      []WorkItemResponse `json:"items"`
	TotalCount int                `json:"total_count"`
	TotalPages int                `json:"total_pages"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

type IngestResponse struct {
	RunID     string `json:"run_id"`
	Fetched   int    `json:"fetched"`
	Stored    int    `json:"stored"`
	Refreshed int    `json:"refreshed"`
	Skipped   bool   `json:"skipped"`
}
