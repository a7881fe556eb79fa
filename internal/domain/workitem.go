package domain

// An order paired with its resolved address, as consumed by the scheduler.
// Address is nil when resolution has not run yet.
type WorkItem struct {
	Order   *Order
	Address *ResolvedAddress
}
