// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/modbus-reader/internal/register"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	UnitID string
	At     time.Time

	// Batch is the detailed per-address report. Individual addresses may
	// have failed even when Err is nil.
	Batch register.BatchResult

	Err error // non-nil means the cycle produced no batch

	// ReconnectErr is set when the session was down and the reconnect
	// attempt at the start of this cycle failed.
	ReconnectErr error
}

// Partial reports a cycle that completed with some failed addresses.
func (r PollResult) Partial() bool {
	return r.Err == nil && r.Batch.FailedCount > 0
}
