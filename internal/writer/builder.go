// internal/writer/builder.go
package writer

import (
	"errors"
	"net"
	"strconv"

	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modbus-reader/internal/config"
	"github.com/tamzrod/modbus-reader/internal/register"
	"github.com/tamzrod/modbus-reader/internal/writer/csvfile"
	"github.com/tamzrod/modbus-reader/internal/writer/influx"
)

// BuildPlan converts the reader config into a Writer Plan.
// Assumes config has already passed validation.
func BuildPlan(c *cfg.Config) (Plan, error) {
	r := c.Reader
	if r.Device.Host == "" {
		return Plan{}, errors.New("writer: device host required")
	}

	return Plan{
		UnitID:  net.JoinHostPort(r.Device.Host, strconv.Itoa(int(r.Device.Port))),
		Columns: Columns(r.Ranges()),
	}, nil
}

// Columns lists every register address covered by ranges, in order.
func Columns(ranges []register.Range) []uint16 {
	var out []uint16
	for _, rng := range ranges {
		for i := 0; i < int(rng.Count); i++ {
			out = append(out, rng.Address(i))
		}
	}
	return out
}

// BuildSinks opens every configured output.
func BuildSinks(c *cfg.Config, plan Plan, log zerolog.Logger) (map[string]Sink, func() error, error) {
	out := c.Reader.Output
	sinks := make(map[string]Sink)
	var closers []func() error

	fail := func(err error) (map[string]Sink, func() error, error) {
		for _, fn := range closers {
			_ = fn()
		}
		return nil, nil, err
	}

	if out.CSV != nil {
		s, err := csvfile.Open(csvfile.Config{Path: out.CSV.Path, Columns: plan.Columns})
		if err != nil {
			return fail(err)
		}
		sinks["csv"] = s
		closers = append(closers, s.Close)
		log.Info().Str("path", out.CSV.Path).Int("columns", len(plan.Columns)).Msg("csv output enabled")
	}

	if ix := out.Influx; ix != nil {
		s, err := influx.New(influx.Config{
			URL:         ix.URL,
			Token:       ix.Token,
			Org:         ix.Org,
			Bucket:      ix.Bucket,
			Measurement: ix.Measurement,
			Log:         log,
		})
		if err != nil {
			return fail(err)
		}
		sinks["influx"] = s
		closers = append(closers, s.Close)
		log.Info().Str("url", ix.URL).Str("bucket", ix.Bucket).Msg("influx output enabled")
	}

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	return sinks, closeAll, nil
}
