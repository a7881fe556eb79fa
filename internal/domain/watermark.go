package domain

import "time"

// Persisted ingestion watermark, keyed by feed source. Lets a re-run skip a
// feed whose content has not changed since the previous run, replacing the
// process-global counter the original operators relied on.
type FeedWatermark struct {
	Source    string
	LastCount int
	LastHash  string
	UpdatedAt time.Time
}
