// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/modbus-reader/internal/status"
)

// StatusWriter is the delivery-only contract for device status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter delivers status to every sink that stores it.
type deviceStatusWriter struct {
	unitID string
	names  []string
	sinks  []StatusSink
	now    func() time.Time

	needFull bool
	last     status.Snapshot
}

// NewDeviceStatusWriter builds a status writer over the sinks that
// implement StatusSink. If none does, status is disabled.
func NewDeviceStatusWriter(plan Plan, sinks map[string]Sink) (*deviceStatusWriter, bool) {
	sw := &deviceStatusWriter{
		unitID:   plan.UnitID,
		now:      time.Now,
		needFull: true, // first call always delivers
		last:     status.Snapshot{Health: status.HealthUnknown},
	}
	for _, name := range sortedNames(sinks) {
		if ss, ok := sinks[name].(StatusSink); ok {
			sw.names = append(sw.names, name)
			sw.sinks = append(sw.sinks, ss)
		}
	}
	if len(sw.sinks) == 0 {
		return nil, false
	}
	return sw, true
}

// WriteStatus delivers s when it differs from the last delivered snapshot.
// On any failure, the next call delivers unconditionally.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil {
		return errors.New("status writer: disabled")
	}

	// ------------------------------------------------------------
	// HARD INVARIANT: seconds_in_error MUST NOT wrap
	// ------------------------------------------------------------
	if s.SecondsInError > status.MaxSecondsInError {
		s.SecondsInError = status.MaxSecondsInError
	}

	if !sw.needFull && s == sw.last {
		return nil
	}

	at := sw.now()
	var errs []string
	for i, ss := range sw.sinks {
		if err := ss.WriteStatus(sw.unitID, at, s); err != nil {
			errs = append(errs, fmt.Sprintf("sink=%s err=%v", sw.names[i], err))
		}
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt: re-assert on next call.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	sw.needFull = false
	sw.last = s
	return nil
}
