// internal/register/range.go
package register

// DataType is the decoding requested for a range.
type DataType string

const (
	Uint16  DataType = "uint16"
	Int16   DataType = "int16"
	Uint32  DataType = "uint32"
	Int32   DataType = "int32"
	Float32 DataType = "float32"
)

// Wide reports whether t spans two registers.
func (t DataType) Wide() bool {
	switch t {
	case Uint32, Int32, Float32:
		return true
	}
	return false
}

// Known reports whether t is one of the supported types.
func (t DataType) Known() bool {
	switch t {
	case Uint16, Int16, Uint32, Int32, Float32:
		return true
	}
	return false
}

// MaxCount is the protocol limit for one holding-register read.
const MaxCount = 125

// Range describes one contiguous block of holding registers.
// Geometry plus requested decoding; no I/O.
type Range struct {
	Start    uint16   `json:"start" yaml:"start"`
	Count    uint16   `json:"count" yaml:"count"`
	DataType DataType `json:"data_type" yaml:"data_type"`
}

func NewRange(start, count uint16) Range {
	return Range{Start: start, Count: count, DataType: Uint16}
}

func NewTypedRange(start, count uint16, dt DataType) Range {
	return Range{Start: start, Count: count, DataType: dt}
}

// Type returns the requested type, uint16 when unset.
func (r Range) Type() DataType {
	if r.DataType == "" {
		return Uint16
	}
	return r.DataType
}

// IsValid reports 0 < Count <= MaxCount and that Start+Count, saturated at
// 0xFFFF, still lies past Start.
func (r Range) IsValid() bool {
	if r.Count == 0 || r.Count > MaxCount {
		return false
	}
	end := uint32(r.Start) + uint32(r.Count)
	if end > 0xFFFF {
		end = 0xFFFF
	}
	return end > uint32(r.Start)
}

// Address returns the address of the i-th register in the range.
func (r Range) Address(i int) uint16 {
	return r.Start + uint16(i)
}
