// internal/register/types.go
package register

import (
	"math"
	"time"
)

// ReadResult is the raw outcome of one successful range read.
type ReadResult struct {
	Success      bool     `json:"success"`
	Data         []uint16 `json:"data"`
	AddressRange Range    `json:"address_range"`
	Timestamp    string   `json:"timestamp"`
	Message      string   `json:"message"`
}

// AddressResult is one decoded logical address.
// RawValue is always the 32-bit widened pattern; DataType is the type
// actually used for decoding, which may differ from the request.
type AddressResult struct {
	Address     uint16 `json:"address"`
	RawValue    uint32 `json:"raw_value"`
	ParsedValue string `json:"parsed_value"`
	Timestamp   string `json:"timestamp"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	DataType    string `json:"data_type"`
}

// BatchResult aggregates a multi-range decoded read.
type BatchResult struct {
	Results      []AddressResult `json:"results"`
	TotalCount   int             `json:"total_count"`
	SuccessCount int             `json:"success_count"`
	FailedCount  int             `json:"failed_count"`
	Timestamp    string          `json:"timestamp"`
	DurationMs   uint64          `json:"duration_ms"`
}

// Timestamp formats t the way every result in this package carries it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Numeric returns the decoded value as int64 or float64 for sinks that
// store numbers rather than display text. Failed entries have none.
func (r AddressResult) Numeric() (any, bool) {
	if !r.Success {
		return nil, false
	}
	switch DataType(r.DataType) {
	case Int16:
		return int64(int16(r.RawValue)), true
	case Int32:
		return int64(int32(r.RawValue)), true
	case Float32:
		return float64(math.Float32frombits(r.RawValue)), true
	default:
		return int64(r.RawValue), true
	}
}
