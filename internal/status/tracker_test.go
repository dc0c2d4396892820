// internal/status/tracker_test.go
package status

import (
	"errors"
	"testing"

	"github.com/tamzrod/modbus-reader/internal/fault"
	"github.com/tamzrod/modbus-reader/internal/poller"
	"github.com/tamzrod/modbus-reader/internal/register"
)

func batch(total, failed int) poller.PollResult {
	return poller.PollResult{Batch: register.BatchResult{
		TotalCount:   total,
		SuccessCount: total - failed,
		FailedCount:  failed,
	}}
}

func TestTracker_StartsUnknown(t *testing.T) {
	tr := NewTracker()
	if tr.Snapshot().Health != HealthUnknown {
		t.Fatalf("health=%d", tr.Snapshot().Health)
	}
	if tr.Tick() {
		t.Fatalf("unknown state must not tick")
	}
}

func TestTracker_OK(t *testing.T) {
	tr := NewTracker()
	if !tr.Observe(batch(10, 0)) {
		t.Fatalf("expected change")
	}
	if tr.Snapshot() != (Snapshot{Health: HealthOK}) {
		t.Fatalf("snap=%+v", tr.Snapshot())
	}
	if tr.Observe(batch(10, 0)) {
		t.Fatalf("repeat OK must not report a change")
	}
}

func TestTracker_ErrorTicksAndRecovers(t *testing.T) {
	tr := NewTracker()
	tr.Observe(poller.PollResult{Err: fault.Timeout()})

	s := tr.Snapshot()
	if s.Health != HealthError || s.LastErrorCode != CodeKindBase+uint16(fault.KindTimeout) {
		t.Fatalf("snap=%+v", s)
	}

	tr.Tick()
	tr.Tick()
	if tr.Snapshot().SecondsInError != 2 {
		t.Fatalf("seconds=%d", tr.Snapshot().SecondsInError)
	}

	tr.Observe(batch(4, 0))
	if tr.Snapshot() != (Snapshot{Health: HealthOK}) {
		t.Fatalf("recovery snap=%+v", tr.Snapshot())
	}
}

func TestTracker_AllFailedBatchIsError(t *testing.T) {
	tr := NewTracker()
	res := batch(5, 5)
	res.ReconnectErr = fault.ConnectionFailed("connection refused", nil)
	tr.Observe(res)

	s := tr.Snapshot()
	if s.Health != HealthError || s.LastErrorCode != CodeKindBase+uint16(fault.KindConnectionFailed) {
		t.Fatalf("snap=%+v", s)
	}

	tr2 := NewTracker()
	tr2.Observe(batch(5, 5))
	if tr2.Snapshot().LastErrorCode != CodeGeneric {
		t.Fatalf("snap=%+v", tr2.Snapshot())
	}
}

func TestTracker_PartialIsStale(t *testing.T) {
	tr := NewTracker()
	tr.Observe(poller.PollResult{Err: fault.Device("Modbus exception", 2, nil)})
	tr.Observe(batch(10, 3))

	s := tr.Snapshot()
	if s.Health != HealthStale || s.LastErrorCode != 2 {
		t.Fatalf("snap=%+v", s)
	}
	if !tr.Tick() {
		t.Fatalf("stale state must tick")
	}
}

func TestTracker_SecondsSaturate(t *testing.T) {
	tr := &Tracker{snap: Snapshot{Health: HealthError, SecondsInError: MaxSecondsInError}}
	if tr.Tick() || tr.Snapshot().SecondsInError != MaxSecondsInError {
		t.Fatalf("seconds must saturate")
	}
}

type coded struct{}

func (coded) Error() string       { return "exception" }
func (coded) ExceptionCode() byte { return 4 }

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want uint16
	}{
		{nil, 0},
		{fault.Device("Modbus exception", 3, nil), 3},
		{fault.Device("Transport error", 0, nil), CodeKindBase + uint16(fault.KindDeviceError)},
		{fault.NotConnected(), CodeKindBase + uint16(fault.KindNotConnected)},
		{coded{}, 4},
		{errors.New("plain"), CodeGeneric},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("ErrorCode(%v)=%d want %d", tc.err, got, tc.want)
		}
	}
}

func TestHealthName(t *testing.T) {
	if HealthName(HealthStale) != "stale" || HealthName(99) != "unknown" {
		t.Fatalf("unexpected names")
	}
}
