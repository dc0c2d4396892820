// internal/writer/types.go
package writer

import (
	"time"

	"github.com/tamzrod/modbus-reader/internal/poller"
	"github.com/tamzrod/modbus-reader/internal/register"
	"github.com/tamzrod/modbus-reader/internal/status"
)

// Plan is the fully-built output plan for one unit.
type Plan struct {
	UnitID string

	// Columns lists every tracked address in range order. Sinks with a
	// fixed layout (CSV) use it; point-based sinks ignore it.
	Columns []uint16
}

// Writer delivers poll snapshots to every configured sink.
type Writer interface {
	Write(res poller.PollResult) error
}

// Sink is the exact contract a data destination implements.
type Sink interface {
	WriteBatch(unitID string, at time.Time, b register.BatchResult) error
	Close() error
}

// StatusSink is implemented by sinks that can also store device status.
type StatusSink interface {
	WriteStatus(unitID string, at time.Time, s status.Snapshot) error
}
