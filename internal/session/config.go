// internal/session/config.go
package session

import (
	"time"

	"github.com/tamzrod/modbus-reader/internal/fault"
)

// Config is the device connection configuration held by a Session.
type Config struct {
	IP        string `json:"ip"`
	Port      uint16 `json:"port"`
	TimeoutMs uint32 `json:"timeout_ms"`
	SlaveID   uint8  `json:"slave_id"`
}

const MaxTimeoutMs = 60000

// DefaultConfig returns the configuration a new Session starts with.
func DefaultConfig() Config {
	return Config{
		IP:        "192.168.1.100",
		Port:      502,
		TimeoutMs: 3000,
		SlaveID:   1,
	}
}

// Validate performs the pure configuration checks. It does not parse the
// host; that happens on Connect.
func (c Config) Validate() error {
	if c.IP == "" {
		return fault.Config("host address must not be empty")
	}
	if c.Port == 0 {
		return fault.Config("port must not be zero")
	}
	if c.TimeoutMs == 0 {
		return fault.Config("timeout must not be zero")
	}
	if c.TimeoutMs > MaxTimeoutMs {
		return fault.Config("timeout must not exceed 60000 ms")
	}
	return nil
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
