package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tamzrod/modbus-reader/internal/register"
	"github.com/tamzrod/modbus-reader/internal/session"
	"github.com/tamzrod/modbus-reader/internal/status"
)

func TestReadDone(t *testing.T) {
	c := New()

	c.ReadDone(10, 20*time.Millisecond, nil)
	c.ReadDone(0, time.Second, errors.New("timeout"))

	if got := testutil.ToFloat64(c.reads.WithLabelValues("ok")); got != 1 {
		t.Fatalf("ok reads=%v", got)
	}
	if got := testutil.ToFloat64(c.reads.WithLabelValues("error")); got != 1 {
		t.Fatalf("error reads=%v", got)
	}
	if got := testutil.ToFloat64(c.registers); got != 10 {
		t.Fatalf("registers=%v", got)
	}
}

func TestStateChanged_OneHot(t *testing.T) {
	c := New()
	if got := testutil.ToFloat64(c.state.WithLabelValues("Disconnected")); got != 1 {
		t.Fatalf("initial Disconnected=%v", got)
	}

	c.StateChanged(session.State{Kind: session.Failed, Message: "Read timeout"})
	if got := testutil.ToFloat64(c.state.WithLabelValues("Error")); got != 1 {
		t.Fatalf("Error=%v", got)
	}
	if got := testutil.ToFloat64(c.state.WithLabelValues("Disconnected")); got != 0 {
		t.Fatalf("Disconnected=%v", got)
	}
}

func TestBatchDone(t *testing.T) {
	c := New()
	c.BatchDone(register.BatchResult{
		Results: []register.AddressResult{
			{Address: 3, RawValue: 0xFFFF, Success: true, DataType: "int16"},
			{Address: 4, Success: false, DataType: "uint16"},
			{Address: 10, RawValue: 0x42280000, Success: true, DataType: "float32"},
		},
		SuccessCount: 2,
		FailedCount:  1,
		DurationMs:   250,
	})

	if got := testutil.ToFloat64(c.values.WithLabelValues("3")); got != -1 {
		t.Fatalf("addr 3=%v", got)
	}
	if got := testutil.ToFloat64(c.values.WithLabelValues("10")); got != 42 {
		t.Fatalf("addr 10=%v", got)
	}
	if got := testutil.ToFloat64(c.batchAddresses.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed=%v", got)
	}
	if got := testutil.ToFloat64(c.batchDuration); got != 0.25 {
		t.Fatalf("duration=%v", got)
	}
	// Failed addresses never create a series.
	if n := testutil.CollectAndCount(c.values); n != 2 {
		t.Fatalf("series=%d", n)
	}
}

func TestBatchDone_TypeChangeKeepsOneSeries(t *testing.T) {
	c := New()
	c.BatchDone(register.BatchResult{Results: []register.AddressResult{
		{Address: 7, RawValue: 0xFFFF, Success: true, DataType: "uint16"},
	}})
	c.BatchDone(register.BatchResult{Results: []register.AddressResult{
		{Address: 7, RawValue: 0xFFFF, Success: true, DataType: "int16"},
	}})

	if n := testutil.CollectAndCount(c.values); n != 1 {
		t.Fatalf("series=%d want 1", n)
	}
	if got := testutil.ToFloat64(c.values.WithLabelValues("7")); got != -1 {
		t.Fatalf("addr 7=%v want -1", got)
	}
}

func TestStatusChanged(t *testing.T) {
	c := New()
	c.StatusChanged(status.Snapshot{Health: status.HealthError, LastErrorCode: 2, SecondsInError: 9})

	if testutil.ToFloat64(c.health) != 2 || testutil.ToFloat64(c.lastErrorCode) != 2 || testutil.ToFloat64(c.secondsInError) != 9 {
		t.Fatalf("status gauges not set")
	}
}

func TestHandler(t *testing.T) {
	c := New()
	c.ReadDone(1, time.Millisecond, nil)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `modbus_reads_total{result="ok"} 1`) {
		t.Fatalf("body missing counter:\n%s", body)
	}
}

var _ session.Recorder = (*Collector)(nil)
