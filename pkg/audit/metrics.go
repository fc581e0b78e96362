package audit

import "time"

// Metrics receives store instrumentation. Implementations must be safe for
// concurrent use; the store calls them while holding its lock, so they must
// not call back into the store.
type Metrics interface {
	// ObserveOperation records one public operation and its outcome.
	ObserveOperation(op string, duration time.Duration, err error)

	// RecordBytes records payload bytes moved by add or retrieve.
	RecordBytes(op string, n int)

	// RecordFlush records the outcome of a flush.
	RecordFlush(res FlushResult)

	// RecordUsage publishes an occupancy report.
	RecordUsage(u *Usage)
}
