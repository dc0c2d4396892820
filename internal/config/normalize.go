// internal/config/normalize.go
package config

import "github.com/tamzrod/modbus-reader/internal/register"

const (
	DefaultHost        = "192.168.1.100"
	DefaultPort        = 502
	DefaultTimeoutMs   = 3000
	DefaultSlaveID     = 1
	DefaultIntervalMs  = 1000
	DefaultMeasurement = "modbus"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	r := &cfg.Reader

	if r.Device.Host == "" {
		r.Device.Host = DefaultHost
	}
	if r.Device.Port == 0 {
		r.Device.Port = DefaultPort
	}
	if r.Device.TimeoutMs == 0 {
		r.Device.TimeoutMs = DefaultTimeoutMs
	}
	if r.Device.SlaveID == nil {
		id := uint8(DefaultSlaveID)
		r.Device.SlaveID = &id
	}

	for i := range r.Reads {
		if r.Reads[i].DataType == "" {
			r.Reads[i].DataType = string(register.Uint16)
		}
	}

	if r.Format == "" {
		r.Format = string(register.Dec)
	}
	if r.Locale == "" {
		r.Locale = "en"
	}
	if r.Poll.IntervalMs == 0 {
		r.Poll.IntervalMs = DefaultIntervalMs
	}
	if ix := r.Output.Influx; ix != nil && ix.Measurement == "" {
		ix.Measurement = DefaultMeasurement
	}
	if r.Log.Level == "" {
		r.Log.Level = "info"
	}
}
