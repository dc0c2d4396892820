// internal/config/config.go
package config

import "github.com/tamzrod/modbus-reader/internal/register"

type Config struct {
	Reader ReaderConfig `yaml:"reader"`
}

type ReaderConfig struct {
	Device  DeviceConfig  `yaml:"device"`
	Reads   []ReadConfig  `yaml:"reads"`
	Format  string        `yaml:"format"` // dec|hex|bin
	Locale  string        `yaml:"locale"` // en|zh
	Poll    PollConfig    `yaml:"poll"`
	Output  OutputConfig  `yaml:"output"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Host      string `yaml:"host"`
	Port      uint16 `yaml:"port"`
	TimeoutMs uint32 `yaml:"timeout_ms"`

	// nil means "use the default"; 0 is a legal unit id on TCP.
	SlaveID *uint8 `yaml:"slave_id"`
}

// ---- READ GEOMETRY ----

type ReadConfig struct {
	Start    uint16 `yaml:"start"`
	Count    uint16 `yaml:"count"`
	DataType string `yaml:"data_type"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- OUTPUT ----

type OutputConfig struct {
	CSV    *CSVConfig    `yaml:"csv"`
	Influx *InfluxConfig `yaml:"influx"`
}

type CSVConfig struct {
	Path string `yaml:"path"`
}

type InfluxConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// ---- AMBIENT ----

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Ranges converts the read geometry to register ranges.
func (r ReaderConfig) Ranges() []register.Range {
	out := make([]register.Range, 0, len(r.Reads))
	for _, rc := range r.Reads {
		out = append(out, register.NewTypedRange(rc.Start, rc.Count, register.DataType(rc.DataType)))
	}
	return out
}
