package domain

import "time"

// Provenance of a resolved address. The tag covers the whole
// address/district/ward triple; a result never mixes sources.
type AddressSource string

const (
	SourceTransportDB  AddressSource = "transport_db"
	SourceAIModel      AddressSource = "ai_model"
	SourceOriginalText AddressSource = "original_text"
	SourceInvalid      AddressSource = "invalid"
	SourceEmpty        AddressSource = "empty"
	SourceExpress      AddressSource = "express"
	SourceFailed       AddressSource = "failed"
)

// Standardized delivery destination for one order.
//
// The address triple and the distance/time pair are decoupled: resolution
// fills the triple once, geocoding may fill or refresh distance/time later.
// Nil DistanceKM/TravelTimeMin mean "unknown", never zero.
type ResolvedAddress struct {
	OrderID       string
	Address       string
	District      string
	Ward          string
	Source        AddressSource
	DistanceKM    *float64
	TravelTimeMin *int
	Overdue       bool
	ResolvedAt    time.Time
}

// Complete reports whether the record carries everything the scheduler
// needs to rank it as a regular delivery.
func (r *ResolvedAddress) Complete() bool {
	return r.District != "" && r.Ward != "" && r.DistanceKM != nil && r.TravelTimeMin != nil
}
