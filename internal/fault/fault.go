// internal/fault/fault.go
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies one member of the closed failure set.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectionFailed
	KindNotConnected
	KindInvalidAddressRange
	KindTimeout
	KindDeviceError
	KindIO
	KindProtocol
	KindConfig
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindConnectionFailed:
		return "connection_failed"
	case KindNotConnected:
		return "not_connected"
	case KindInvalidAddressRange:
		return "invalid_address_range"
	case KindTimeout:
		return "timeout"
	case KindDeviceError:
		return "device_error"
	case KindIO:
		return "io_error"
	case KindProtocol:
		return "protocol_error"
	case KindConfig:
		return "config_error"
	case KindInternal:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by the core.
// Error() is the machine-readable form; use Translate for presentation.
type Error struct {
	Kind   Kind
	Detail string

	// InvalidAddressRange only.
	Start uint16
	Count uint16

	// DeviceError only: Modbus exception code when the device answered
	// with one, 0 when the transport itself failed.
	Exception byte

	Err error
}

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrConnectionFailed    = &Error{Kind: KindConnectionFailed}
	ErrNotConnected        = &Error{Kind: KindNotConnected}
	ErrInvalidAddressRange = &Error{Kind: KindInvalidAddressRange}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrDevice              = &Error{Kind: KindDeviceError}
	ErrIO                  = &Error{Kind: KindIO}
	ErrProtocol            = &Error{Kind: KindProtocol}
	ErrConfig              = &Error{Kind: KindConfig}
	ErrInternal            = &Error{Kind: KindInternal}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindConnectionFailed:
		return "modbus: connection failed: " + e.Detail
	case KindNotConnected:
		return "modbus: not connected"
	case KindInvalidAddressRange:
		return fmt.Sprintf("modbus: invalid address range: start=%d count=%d", e.Start, e.Count)
	case KindTimeout:
		return "modbus: operation timed out"
	case KindDeviceError:
		return "modbus: device error: " + e.Detail
	case KindIO:
		return "modbus: io error: " + e.Detail
	case KindProtocol:
		return "modbus: protocol error: " + e.Detail
	case KindConfig:
		return "modbus: config error: " + e.Detail
	case KindInternal:
		return "modbus: internal error: " + e.Detail
	default:
		return "modbus: unknown error: " + e.Detail
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// ---- constructors ----

func ConnectionFailed(detail string, cause error) *Error {
	return &Error{Kind: KindConnectionFailed, Detail: detail, Err: cause}
}

func NotConnected() *Error {
	return &Error{Kind: KindNotConnected}
}

func InvalidAddressRange(start, count uint16) *Error {
	return &Error{Kind: KindInvalidAddressRange, Start: start, Count: count}
}

func Timeout() *Error {
	return &Error{Kind: KindTimeout}
}

// Device wraps a failed device conversation. code is the Modbus exception
// code, or 0 when no exception frame was received.
func Device(detail string, code byte, cause error) *Error {
	return &Error{Kind: KindDeviceError, Detail: detail, Exception: code, Err: cause}
}

func IO(cause error) *Error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &Error{Kind: KindIO, Detail: detail, Err: cause}
}

func Protocol(detail string) *Error {
	return &Error{Kind: KindProtocol, Detail: detail}
}

func Config(detail string) *Error {
	return &Error{Kind: KindConfig, Detail: detail}
}

func Internal(detail string) *Error {
	return &Error{Kind: KindInternal, Detail: detail}
}
