package domain

import "time"

// Lifecycle status vocabulary for an order. Statuses are assigned by an
// external status-sync collaborator; the pipeline only reads them.
type OrderStatus string

const (
	StatusAwaiting  OrderStatus = "awaiting"
	StatusInTransit OrderStatus = "in-transit"
	StatusCompleted OrderStatus = "completed"
)

// Urgency levels computed from the delivery note.
const (
	UrgencyNormal       = 0
	UrgencySoftDeadline = 1
	UrgencyHardDeadline = 2
)

// Represents a single delivery order ingested from the external order feed.
// The identifier is externally assigned and unique. Address and urgency
// fields are mutated only by the resolution pipeline; Status is owned by the
// status-sync collaborator.
type Order struct {
	ID                string
	RawAddress        string
	Note              string
	RegisteredAddress string
	DeclaredKM        *float64
	ScheduledAt       *time.Time
	Status            OrderStatus
	Urgency           int
	Deadline          *time.Time
	NoteAnalyzed      bool
	CreatedAt         time.Time
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusAwaiting, StatusInTransit, StatusCompleted:
		return true
	}
	return false
}
