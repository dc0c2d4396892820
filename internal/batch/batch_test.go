package batch

import (
	"testing"
	"time"

	"github.com/tamzrod/modbus-reader/internal/fault"
	"github.com/tamzrod/modbus-reader/internal/register"
)

// ---- fake range reader ----

type fakeReader struct {
	data  map[uint16][]uint16 // by range start
	fail  map[uint16]error
	calls []register.Range
}

func (f *fakeReader) ReadRange(r register.Range) (register.ReadResult, error) {
	f.calls = append(f.calls, r)
	if err, ok := f.fail[r.Start]; ok {
		return register.ReadResult{}, err
	}
	words, ok := f.data[r.Start]
	if !ok {
		words = make([]uint16, r.Count)
	}
	return register.ReadResult{Success: true, Data: words, AddressRange: r}, nil
}

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n-1) * 15 * time.Millisecond)
	}
}

// ---- tests ----

func TestRead_AllSuccess(t *testing.T) {
	fr := &fakeReader{data: map[uint16][]uint16{
		0:   {1, 2, 3},
		100: {0xFFFF, 0x8000},
	}}
	ranges := []register.Range{
		register.NewRange(0, 3),
		register.NewTypedRange(100, 2, register.Int16),
	}

	res := Read(fr, ranges, Options{Now: fixedClock()})

	if res.TotalCount != 5 || res.SuccessCount != 5 || res.FailedCount != 0 {
		t.Fatalf("counts total=%d success=%d failed=%d", res.TotalCount, res.SuccessCount, res.FailedCount)
	}
	if res.Results[3].Address != 100 || res.Results[3].ParsedValue != "-1" {
		t.Fatalf("unexpected int16 entry: %+v", res.Results[3])
	}
	if res.Results[4].ParsedValue != "-32768" {
		t.Fatalf("unexpected int16 entry: %+v", res.Results[4])
	}
	if res.DurationMs != 15 {
		t.Fatalf("duration=%d want 15", res.DurationMs)
	}
	if res.Timestamp != "2024-01-01T12:00:00Z" {
		t.Fatalf("timestamp=%q", res.Timestamp)
	}
	for _, r := range res.Results {
		if r.Timestamp != res.Timestamp {
			t.Fatalf("entry timestamp %q differs from batch timestamp", r.Timestamp)
		}
	}
}

func TestRead_FailedRangeSynthesizesEveryAddress(t *testing.T) {
	fr := &fakeReader{
		fail: map[uint16]error{10: fault.Timeout()},
	}
	ranges := []register.Range{register.NewTypedRange(10, 5, register.Float32)}

	res := Read(fr, ranges, Options{})

	if res.TotalCount != 5 || res.FailedCount != 5 || res.SuccessCount != 0 {
		t.Fatalf("counts total=%d success=%d failed=%d", res.TotalCount, res.SuccessCount, res.FailedCount)
	}
	want := fault.English.Timeout
	for i, r := range res.Results {
		if r.Address != uint16(10+i) {
			t.Fatalf("entry %d address=%d", i, r.Address)
		}
		if r.Success || r.Error != want || r.RawValue != 0 {
			t.Fatalf("entry %d: %+v", i, r)
		}
		if r.DataType != "float32" {
			t.Fatalf("entry %d data_type=%q want float32", i, r.DataType)
		}
	}
}

func TestRead_DoesNotFailFast(t *testing.T) {
	fr := &fakeReader{
		fail: map[uint16]error{0: fault.NotConnected()},
		data: map[uint16][]uint16{20: {7, 8}},
	}
	ranges := []register.Range{
		register.NewRange(0, 4),
		register.NewRange(20, 2),
	}

	res := Read(fr, ranges, Options{Messages: fault.Chinese})

	if len(fr.calls) != 2 {
		t.Fatalf("expected both ranges attempted, got %d calls", len(fr.calls))
	}
	if res.TotalCount != 6 {
		t.Fatalf("total=%d want sum of counts 6", res.TotalCount)
	}
	if res.FailedCount != 4 || res.SuccessCount != 2 {
		t.Fatalf("success=%d failed=%d", res.SuccessCount, res.FailedCount)
	}
	if res.Results[0].Error != fault.Chinese.NotConnected {
		t.Fatalf("catalog not applied: %q", res.Results[0].Error)
	}
	if res.Results[4].Address != 20 || res.Results[4].ParsedValue != "7" {
		t.Fatalf("unexpected entry: %+v", res.Results[4])
	}
}

func TestRead_WidePairsAndOddTail(t *testing.T) {
	fr := &fakeReader{data: map[uint16][]uint16{
		50: {0x4228, 0x0000, 0x1234},
	}}
	ranges := []register.Range{register.NewTypedRange(50, 3, register.Float32)}

	res := Read(fr, ranges, Options{Format: register.Hex})

	if res.TotalCount != 2 || res.SuccessCount != 1 || res.FailedCount != 1 {
		t.Fatalf("counts total=%d success=%d failed=%d", res.TotalCount, res.SuccessCount, res.FailedCount)
	}
	pair := res.Results[0]
	if pair.Address != 50 || pair.ParsedValue != "42" || pair.DataType != "float32" {
		t.Fatalf("pair entry: %+v", pair)
	}
	tail := res.Results[1]
	if tail.Address != 52 || tail.Success || tail.DataType != "uint16" {
		t.Fatalf("tail entry: %+v", tail)
	}
	if tail.Error != "float32 needs an even register count" {
		t.Fatalf("tail error=%q", tail.Error)
	}
	if tail.ParsedValue != "0x1234" || tail.RawValue != 0x1234 {
		t.Fatalf("tail value: %+v", tail)
	}
}

func TestRead_EmptyRanges(t *testing.T) {
	res := Read(&fakeReader{}, nil, Options{})
	if res.TotalCount != 0 || len(res.Results) != 0 {
		t.Fatalf("expected empty batch, got %+v", res)
	}
}
