package ports

import "context"

// Result of delegating a free-form address to the generative model.
// Resolved is true only when the model produced a complete
// address/district/ward triple.
type StandardResult struct {
	Address  string
	District string
	Ward     string
	Resolved bool
	// Failed marks attempt exhaustion (timeouts, malformed output), as
	// opposed to the model explicitly answering "unresolvable".
	Failed bool
}

// Contract for the generative-model address standardizer.
//
// Implementations must degrade rather than fail: after exhausting retries
// they return an unresolved StandardResult carrying the original input, not
// an error, so one bad response never aborts a batch.
type AddressStandardizer interface {
	Standardize(ctx context.Context, rawAddress, orderID string) (StandardResult, error)
}
