package domain

// Reference-table entry for a transport company (carrier) with a fixed
// pickup point. Populated by an external sync job; read-only here.
type CarrierRecord struct {
	Name          string
	Address       string
	District      string
	Ward          string
	DepartureText string
	Active        bool
}
