// internal/session/transport.go
package session

import (
	"errors"
	"time"

	mbtcp "github.com/tamzrod/modbus-reader/internal/session/modbus"
)

// Transport is one open conversation with a device.
// Implementations need not be safe for concurrent use; the Session
// serialises every call.
type Transport interface {
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error)
	SetSlaveID(id uint8)
	SetTimeout(d time.Duration)
	Close() error
}

// DialConfig is what a Dialer needs to open a Transport.
type DialConfig struct {
	Address string // host:port
	SlaveID uint8
	Timeout time.Duration
}

// Dialer opens a Transport. One attempt per call, no retries.
type Dialer func(cfg DialConfig) (Transport, error)

// TCPDialer opens Modbus TCP transports.
func TCPDialer(cfg DialConfig) (Transport, error) {
	return mbtcp.Dial(mbtcp.Config{
		Address: cfg.Address,
		SlaveID: cfg.SlaveID,
		Timeout: cfg.Timeout,
	})
}

// exceptionCoder is implemented by errors that carry a Modbus exception
// response from the device.
type exceptionCoder interface {
	ExceptionCode() byte
}

// exceptionCode extracts a device exception code without assuming a
// concrete error type.
func exceptionCode(err error) (byte, bool) {
	var x exceptionCoder
	if errors.As(err, &x) {
		return x.ExceptionCode(), true
	}
	return 0, false
}

// link pairs the connection state with the transport that backs it.
// tr is non-nil exactly when state is Connected; only establish and
// enter mutate it.
type link struct {
	state State
	tr    Transport
}

func (l *link) establish(tr Transport) {
	l.tr = tr
	l.state = State{Kind: Connected}
}

// enter moves to a non-connected state and hands back the transport that
// was held, if any, for the caller to close.
func (l *link) enter(s State) Transport {
	if s.Kind == Connected {
		panic("session: enter(Connected); use establish")
	}
	tr := l.tr
	l.tr = nil
	l.state = s
	return tr
}

func (l *link) live() bool {
	return l.state.Kind == Connected && l.tr != nil
}
