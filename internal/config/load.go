// internal/config/load.go
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides device and Influx settings from the environment.
// An Influx section is created when INFLUX_URL is set.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	d := &cfg.Reader.Device

	if v := getenv("MODBUS_HOST"); v != "" {
		d.Host = v
	}
	if v := getenv("MODBUS_PORT"); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("MODBUS_PORT: %w", err)
		}
		d.Port = uint16(n)
	}
	if v := getenv("MODBUS_TIMEOUT_MS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("MODBUS_TIMEOUT_MS: %w", err)
		}
		d.TimeoutMs = uint32(n)
	}
	if v := getenv("MODBUS_SLAVE_ID"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("MODBUS_SLAVE_ID: %w", err)
		}
		id := uint8(n)
		d.SlaveID = &id
	}

	ix := cfg.Reader.Output.Influx
	if ix == nil && getenv("INFLUX_URL") != "" {
		ix = &InfluxConfig{}
		cfg.Reader.Output.Influx = ix
	}
	if ix == nil {
		return nil
	}
	for key, dst := range map[string]*string{
		"INFLUX_URL":    &ix.URL,
		"INFLUX_TOKEN":  &ix.Token,
		"INFLUX_ORG":    &ix.Org,
		"INFLUX_BUCKET": &ix.Bucket,
	} {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	return nil
}
