// internal/poller/poller.go
package poller

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-reader/internal/register"
)

// Reader abstracts the session operations the poller needs.
type Reader interface {
	IsConnected() bool
	ReadRangesDetailed(ranges []register.Range, format register.Format) (register.BatchResult, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID   string
	Interval time.Duration
	Ranges   []register.Range
	Format   register.Format
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg       Config
	reader    Reader
	reconnect func() error
	log       zerolog.Logger
}

// New creates a poller with immutable config. reconnect may be nil; when
// set it is called once per tick while the reader is not connected.
func New(cfg Config, reader Reader, reconnect func() error) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Ranges) == 0 {
		return nil, errors.New("poller: at least one range required")
	}
	if reader == nil {
		return nil, errors.New("poller: reader required")
	}
	return &Poller{
		cfg:       cfg,
		reader:    reader,
		reconnect: reconnect,
		log:       zerolog.Nop(),
	}, nil
}

// WithLogger returns p logging to l.
func (p *Poller) WithLogger(l zerolog.Logger) *Poller {
	p.log = l.With().Str("component", "poller").Str("unit", p.cfg.UnitID).Logger()
	return p
}

// PollOnce performs exactly one poll cycle.
// One reconnect attempt when disconnected, no retries.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		UnitID: p.cfg.UnitID,
		At:     time.Now(),
	}

	if !p.reader.IsConnected() && p.reconnect != nil {
		if err := p.reconnect(); err != nil {
			p.log.Warn().Err(err).Msg("reconnect failed")
			res.ReconnectErr = err
			// Still read: every address is reported as failed.
		} else {
			p.log.Info().Msg("reconnected")
		}
	}

	batch, err := p.reader.ReadRangesDetailed(p.cfg.Ranges, p.cfg.Format)
	if err != nil {
		res.Err = err
		return res
	}
	res.Batch = batch

	ev := p.log.Debug()
	if batch.FailedCount > 0 {
		ev = p.log.Warn()
	}
	ev.Int("ok", batch.SuccessCount).Int("failed", batch.FailedCount).Uint64("duration_ms", batch.DurationMs).Msg("poll cycle")
	return res
}
