// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-reader/internal/fault"
	"github.com/tamzrod/modbus-reader/internal/register"
)

const maxTimeoutMs = 60000

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
//
// Zero values mean "use the default" and are accepted here; Normalize
// fills them in afterwards.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	r := cfg.Reader

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if r.Device.TimeoutMs > maxTimeoutMs {
		return fmt.Errorf("device: timeout_ms=%d exceeds %d", r.Device.TimeoutMs, maxTimeoutMs)
	}

	// ------------------------------------------------------------
	// READ GEOMETRY
	// ------------------------------------------------------------

	if len(r.Reads) == 0 {
		return fmt.Errorf("reads: at least one range is required")
	}

	type span struct {
		start uint32
		end   uint32
		index int
	}
	var spans []span

	for i, rc := range r.Reads {
		rng := register.NewTypedRange(rc.Start, rc.Count, register.DataType(rc.DataType))
		if rc.DataType != "" && !rng.DataType.Known() {
			return fmt.Errorf("reads[%d]: unknown data_type %q", i, rc.DataType)
		}
		if !rng.IsValid() {
			return fmt.Errorf("reads[%d]: invalid range start=%d count=%d", i, rc.Start, rc.Count)
		}

		// Each address is one output column; a register read twice would
		// produce two columns with the same name.
		start := uint32(rc.Start)
		end := start + uint32(rc.Count) - 1
		for _, s := range spans {
			if !(end < s.start || start > s.end) {
				return fmt.Errorf(
					"reads[%d]: range %d-%d overlaps reads[%d] range %d-%d",
					i, start, end, s.index, s.start, s.end,
				)
			}
		}
		spans = append(spans, span{start: start, end: end, index: i})
	}

	// ------------------------------------------------------------
	// PRESENTATION
	// ------------------------------------------------------------

	switch register.Format(r.Format) {
	case "", register.Dec, register.Hex, register.Bin:
	default:
		return fmt.Errorf("format: unknown value %q (want dec, hex or bin)", r.Format)
	}

	if !fault.KnownLocale(r.Locale) {
		return fmt.Errorf("locale: unsupported value %q", r.Locale)
	}

	if r.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll: interval_ms must not be negative")
	}

	// ------------------------------------------------------------
	// OUTPUTS (OPT-IN)
	// ------------------------------------------------------------

	if c := r.Output.CSV; c != nil && c.Path == "" {
		return fmt.Errorf("output.csv: path is required")
	}

	if ix := r.Output.Influx; ix != nil {
		if ix.URL == "" {
			return fmt.Errorf("output.influx: url is required")
		}
		if u, err := url.Parse(ix.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("output.influx: url %q is not absolute", ix.URL)
		}
		if ix.Org == "" || ix.Bucket == "" {
			return fmt.Errorf("output.influx: org and bucket are required")
		}
	}

	// ------------------------------------------------------------
	// AMBIENT
	// ------------------------------------------------------------

	if r.Log.Level != "" {
		if _, err := zerolog.ParseLevel(r.Log.Level); err != nil {
			return fmt.Errorf("log: %w", err)
		}
	}

	return nil
}
