// internal/batch/batch.go
package batch

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-reader/internal/fault"
	"github.com/tamzrod/modbus-reader/internal/register"
)

// RangeReader performs one raw range read.
// The session's locked read path implements it.
type RangeReader interface {
	ReadRange(r register.Range) (register.ReadResult, error)
}

// RangeReaderFunc adapts a function to RangeReader.
type RangeReaderFunc func(r register.Range) (register.ReadResult, error)

func (f RangeReaderFunc) ReadRange(r register.Range) (register.ReadResult, error) { return f(r) }

// Options controls decoding and error presentation.
type Options struct {
	Format   register.Format
	Messages *fault.Catalog
	Log      zerolog.Logger
	Now      func() time.Time
}

// Read executes ranges in order and decodes every address.
//
// It never stops early: a failed range contributes one failed entry per
// address. Wide types yield one entry per register pair (plus a failed
// entry for an odd tail word).
func Read(rr RangeReader, ranges []register.Range, opts Options) register.BatchResult {
	if opts.Format == "" {
		opts.Format = register.Dec
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	began := opts.Now()
	ts := register.Timestamp(began)

	out := register.BatchResult{
		Results:   make([]register.AddressResult, 0, totalCount(ranges)),
		Timestamp: ts,
	}

	for i, rng := range ranges {
		log := opts.Log.With().Int("range", i+1).Uint16("start", rng.Start).Uint16("count", rng.Count).Logger()
		dt := rng.Type()

		res, err := rr.ReadRange(rng)
		if err != nil {
			msg := fault.Translate(err, opts.Messages)
			log.Error().Err(err).Str("reason", msg).Msg("range read failed")

			for a := 0; a < int(rng.Count); a++ {
				// Built directly: Decode would report a wide type as uint16.
				out.Results = append(out.Results, register.AddressResult{
					Address:   rng.Address(a),
					Timestamp: ts,
					Success:   false,
					Error:     msg,
					DataType:  string(dt),
				})
				out.FailedCount++
			}
			continue
		}

		data := res.Data
		if dt.Wide() {
			for w := 0; w < len(data); w += 2 {
				if w+1 >= len(data) {
					out.Results = append(out.Results, register.Decode(register.Sample{
						Address:   rng.Address(w),
						Value:     data[w],
						Timestamp: ts,
						Error:     fmt.Sprintf("%s needs an even register count", dt),
					}, register.Uint16, opts.Format))
					out.FailedCount++
					continue
				}
				next := data[w+1]
				out.Results = append(out.Results, register.Decode(register.Sample{
					Address:   rng.Address(w),
					Value:     data[w],
					Next:      &next,
					Timestamp: ts,
				}, dt, opts.Format))
				out.SuccessCount++
			}
		} else {
			for w, v := range data {
				out.Results = append(out.Results, register.Decode(register.Sample{
					Address:   rng.Address(w),
					Value:     v,
					Timestamp: ts,
				}, dt, opts.Format))
				out.SuccessCount++
			}
		}
		log.Debug().Int("words", len(data)).Msg("range decoded")
	}

	out.TotalCount = len(out.Results)
	out.DurationMs = uint64(opts.Now().Sub(began).Milliseconds())

	opts.Log.Info().
		Int("total", out.TotalCount).
		Int("success", out.SuccessCount).
		Int("failed", out.FailedCount).
		Uint64("duration_ms", out.DurationMs).
		Msg("batch read finished")

	return out
}

func totalCount(ranges []register.Range) int {
	n := 0
	for _, r := range ranges {
		n += int(r.Count)
	}
	return n
}
