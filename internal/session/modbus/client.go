// internal/session/modbus/client.go
package modbus

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Client is a single Modbus TCP connection to one device.
// It serialises requests because SlaveId and Timeout live on the handler.
type Client struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// Config is minimal transport config.
type Config struct {
	Address string
	SlaveID uint8
	Timeout time.Duration
}

// Dial opens the TCP connection. One attempt; the handler's dialer is
// bounded by cfg.Timeout.
func Dial(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("session modbus: address required")
	}

	h := modbus.NewTCPClientHandler(cfg.Address)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.SlaveID

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

func (c *Client) SetSlaveID(id uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler.SlaveId = id
}

func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler.Timeout = d
}

// ReadHoldingRegisters issues FC 3 and unpacks big-endian words.
// Device exception responses come back as *Exception.
func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		var me *modbus.ModbusError
		if errors.As(err, &me) {
			return nil, &Exception{Function: me.FunctionCode, Code: me.ExceptionCode, err: me}
		}
		return nil, err
	}
	if len(raw)%2 != 0 {
		return nil, errors.New("session modbus: odd register payload length")
	}
	return unpackRegisters(raw), nil
}

// Exception is a Modbus exception response from the device.
type Exception struct {
	Function byte
	Code     byte
	err      error
}

func (e *Exception) Error() string       { return e.err.Error() }
func (e *Exception) Unwrap() error       { return e.err }
func (e *Exception) ExceptionCode() byte { return e.Code }

// ---- helpers ----

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
