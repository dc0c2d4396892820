// internal/register/decode.go
package register

import (
	"fmt"
	"math"
	"strconv"
)

// Format is the display format for integer values.
type Format string

const (
	Dec Format = "dec"
	Hex Format = "hex"
	Bin Format = "bin"
)

// ParseFormat maps a display format name; anything unknown is decimal.
func ParseFormat(s string) Format {
	switch Format(s) {
	case Hex:
		return Hex
	case Bin:
		return Bin
	default:
		return Dec
	}
}

// FormatValue renders one register in the given display format.
func FormatValue(v uint16, f Format) string {
	switch f {
	case Hex:
		return fmt.Sprintf("0x%04X", v)
	case Bin:
		return fmt.Sprintf("0b%016b", v)
	default:
		return strconv.FormatUint(uint64(v), 10)
	}
}

// Sample is the input of Decode: one register, the register right after it
// when the caller has one, and the outcome of reading it.
type Sample struct {
	Address   uint16
	Value     uint16
	Next      *uint16
	Timestamp string
	Error     string // empty on success
}

// Decode converts a sample into an AddressResult.
//
// Wide types combine Value (high word) and Next (low word). Without Next
// they fall back to plain uint16 over Value and report "uint16" as the
// effective type.
func Decode(s Sample, dt DataType, f Format) AddressResult {
	var (
		raw    uint32
		parsed string
		eff    string
	)

	switch {
	case dt.Wide() && s.Next == nil:
		raw = uint32(s.Value)
		parsed = FormatValue(s.Value, f)
		eff = string(Uint16)

	case dt.Wide():
		raw = uint32(s.Value)<<16 | uint32(*s.Next)
		eff = string(dt)
		switch dt {
		case Float32:
			parsed = formatFloat32(math.Float32frombits(raw))
		case Int32:
			parsed = strconv.FormatInt(int64(int32(raw)), 10)
		default:
			parsed = strconv.FormatUint(uint64(raw), 10)
		}

	case dt == Int16:
		raw = uint32(s.Value)
		parsed = strconv.FormatInt(int64(int16(s.Value)), 10)
		eff = string(Int16)

	default:
		raw = uint32(s.Value)
		parsed = FormatValue(s.Value, f)
		eff = string(dt)
	}

	return AddressResult{
		Address:     s.Address,
		RawValue:    raw,
		ParsedValue: parsed,
		Timestamp:   s.Timestamp,
		Success:     s.Error == "",
		Error:       s.Error,
		DataType:    eff,
	}
}

// formatFloat32 renders the shortest decimal form without an exponent
// (42, -3.14, 0.000001).
func formatFloat32(v float32) string {
	switch {
	case math.IsNaN(float64(v)):
		return "NaN"
	case math.IsInf(float64(v), 1):
		return "inf"
	case math.IsInf(float64(v), -1):
		return "-inf"
	}
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
