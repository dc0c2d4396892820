// internal/status/tracker.go
package status

import (
	"errors"

	"github.com/tamzrod/modbus-reader/internal/fault"
	"github.com/tamzrod/modbus-reader/internal/poller"
)

// Tracker derives a device Snapshot from poll results and a 1 Hz tick.
// Not safe for concurrent use; one orchestrator goroutine owns it.
type Tracker struct {
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe folds one poll result in and reports whether the snapshot changed.
func (t *Tracker) Observe(res poller.PollResult) bool {
	prev := t.snap

	switch {
	case res.Err != nil:
		t.snap.Health = HealthError
		t.snap.LastErrorCode = ErrorCode(res.Err)

	case res.Batch.TotalCount > 0 && res.Batch.FailedCount == res.Batch.TotalCount:
		t.snap.Health = HealthError
		if res.ReconnectErr != nil {
			t.snap.LastErrorCode = ErrorCode(res.ReconnectErr)
		} else {
			t.snap.LastErrorCode = CodeGeneric
		}

	case res.Batch.FailedCount > 0:
		// Partial: keep the last error code, data is stale.
		t.snap.Health = HealthStale

	default:
		// Recovery / OK
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = 0
		t.snap.SecondsInError = 0
	}

	return t.snap != prev
}

// Tick advances seconds_in_error while not OK. Call at 1 Hz.
func (t *Tracker) Tick() bool {
	if t.snap.Health == HealthOK || t.snap.Health == HealthUnknown {
		return false
	}
	if t.snap.SecondsInError >= MaxSecondsInError {
		return false
	}
	t.snap.SecondsInError++
	return true
}

// ErrorCode extracts a best-effort uint16 code from an error without
// assuming concrete types. Device exceptions keep their Modbus code; other
// taxonomy errors map to CodeKindBase+kind.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var fe *fault.Error
	if errors.As(err, &fe) {
		if fe.Kind == fault.KindDeviceError && fe.Exception != 0 {
			return uint16(fe.Exception)
		}
		return CodeKindBase + uint16(fe.Kind)
	}

	type exceptionCoder interface{ ExceptionCode() byte }
	var x exceptionCoder
	if errors.As(err, &x) {
		return uint16(x.ExceptionCode())
	}

	return CodeGeneric
}
