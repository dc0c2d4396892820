// internal/session/session.go
package session

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-reader/internal/batch"
	"github.com/tamzrod/modbus-reader/internal/fault"
	"github.com/tamzrod/modbus-reader/internal/register"
)

// Recorder receives telemetry from the session. Calls happen while the
// session lock is held and must not call back into the session.
type Recorder interface {
	ReadDone(count int, d time.Duration, err error)
	StateChanged(s State)
}

type nopRecorder struct{}

func (nopRecorder) ReadDone(int, time.Duration, error) {}
func (nopRecorder) StateChanged(State)                 {}

// Session owns at most one device transport and the connection state.
// Every operation holds the session lock for its full duration, network
// round trip included: callers serialise, they never interleave.
type Session struct {
	mu   sync.Mutex
	cfg  Config
	link link

	dial Dialer
	msgs *fault.Catalog
	rec  Recorder
	log  zerolog.Logger
}

type Option func(*Session)

func WithConfig(cfg Config) Option        { return func(s *Session) { s.cfg = cfg } }
func WithDialer(d Dialer) Option          { return func(s *Session) { s.dial = d } }
func WithCatalog(c *fault.Catalog) Option { return func(s *Session) { s.msgs = c } }
func WithRecorder(r Recorder) Option      { return func(s *Session) { s.rec = r } }
func WithLogger(l zerolog.Logger) Option  { return func(s *Session) { s.log = l } }

// New returns a disconnected session with DefaultConfig unless overridden.
func New(opts ...Option) *Session {
	s := &Session{
		cfg:  DefaultConfig(),
		dial: TCPDialer,
		msgs: fault.English,
		rec:  nopRecorder{},
		log:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.rec == nil {
		s.rec = nopRecorder{}
	}
	if s.dial == nil {
		s.dial = TCPDialer
	}
	s.log = s.log.With().
		Str("component", "session").
		Str("session_id", uuid.NewString()).
		Logger()
	s.link.state = State{Kind: Disconnected}
	return s
}

// ---- lifecycle ----

// Connect opens a transport to host:port using the configured slave id,
// racing the dial against the configured timeout.
func (s *Session) Connect(host string, port uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With().Str("host", host).Uint16("port", port).Logger()
	log.Info().Msg("connecting to modbus device")

	if host == "" {
		err := fault.Config("host address must not be empty")
		log.Error().Err(err).Msg("connect rejected")
		return err
	}
	if port == 0 {
		err := fault.Config("port must not be zero")
		log.Error().Err(err).Msg("connect rejected")
		return err
	}

	s.cfg.IP = host
	s.cfg.Port = port
	s.setState(State{Kind: Connecting})

	addr, err := netip.ParseAddrPort(net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		ferr := fault.ConnectionFailed("Invalid address: "+err.Error(), err)
		s.setState(errorState(ferr.Detail))
		log.Error().Err(ferr).Msg("address parse failed")
		return ferr
	}

	timeout := s.cfg.timeout()
	log.Debug().Dur("timeout", timeout).Uint8("slave_id", s.cfg.SlaveID).Msg("dialing")

	tr, err := s.dialWithin(DialConfig{
		Address: addr.String(),
		SlaveID: s.cfg.SlaveID,
		Timeout: timeout,
	}, timeout)

	switch {
	case err == errRaceLost:
		s.setState(errorState("Connection timeout"))
		ferr := fault.Timeout()
		log.Error().Err(ferr).Msg("connect timed out")
		return ferr

	case err != nil:
		s.setState(errorState("Connection failed: " + err.Error()))
		ferr := fault.ConnectionFailed(err.Error(), err)
		log.Error().Err(ferr).Msg("connect failed")
		return ferr

	case tr == nil:
		s.setState(errorState("dialer returned no transport"))
		return fault.Internal("dialer returned no transport")
	}

	s.link.establish(tr)
	s.rec.StateChanged(s.link.state)
	log.Info().Uint8("slave_id", s.cfg.SlaveID).Msg("connected")

	// Best effort: the outcome is only logged.
	if ok := s.verify(); !ok {
		log.Warn().Str("state", s.link.state.String()).Msg("post-connect check failed")
	}
	return nil
}

// Disconnect releases the transport, if any, and always succeeds.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr := s.link.enter(State{Kind: Disconnected})
	s.rec.StateChanged(s.link.state)
	if tr == nil {
		s.log.Debug().Msg("disconnect: no active transport")
		return nil
	}
	if err := tr.Close(); err != nil {
		s.log.Warn().Err(err).Msg("transport close failed")
	}
	s.log.Info().Msg("disconnected")
	return nil
}

// TestConnection checks the device with a one-register read at address 0.
// It reports false, never an error, when the session is not connected.
func (s *Session) TestConnection() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verify(), nil
}

// verify requires the lock. It reads through readRaw, so any failure has
// already moved the session to Error with the read's message. A device-level
// failure (exception or transport) still counts as reachable and yields
// true; timeouts and malformed replies overwrite the state message.
func (s *Session) verify() bool {
	if !s.link.live() {
		s.log.Debug().Msg("connection test skipped: not connected")
		return false
	}

	words, err := s.readRaw(0, 1)
	if err == nil {
		s.log.Debug().Int("words", len(words)).Msg("connection test ok")
		return true
	}
	if fault.KindOf(err) == fault.KindDeviceError {
		s.log.Debug().Err(err).Str("state", s.link.state.String()).Msg("device answered connection test with an error")
		return true
	}

	s.log.Warn().Err(err).Str("reason", fault.Translate(err, s.msgs)).Msg("connection test failed")
	s.setState(errorState("Connection test failed"))
	return false
}

// ---- reads ----

// ReadHoldingRegisters validates rng, then reads it under the timeout.
func (s *Session) ReadHoldingRegisters(rng register.Range) (register.ReadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRange(rng)
}

// ReadMultipleRanges reads ranges sequentially and returns the first error
// without attempting the remaining ranges.
func (s *Session) ReadMultipleRanges(ranges []register.Range) ([]register.ReadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info().Int("ranges", len(ranges)).Msg("reading multiple ranges")
	out := make([]register.ReadResult, 0, len(ranges))
	for i, rng := range ranges {
		res, err := s.readRange(rng)
		if err != nil {
			s.log.Error().Err(err).Int("range", i+1).Msg("multi-range read aborted")
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// ReadRangesDetailed decodes every address of every range into one report.
// Unlike ReadMultipleRanges it does not stop at the first failed range.
func (s *Session) ReadRangesDetailed(ranges []register.Range, format register.Format) (register.BatchResult, error) {
	if len(ranges) == 0 {
		return register.BatchResult{}, fault.Config("at least one address range is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return batch.Read(batch.RangeReaderFunc(s.readRange), ranges, batch.Options{
		Format:   format,
		Messages: s.msgs,
		Log:      s.log,
	}), nil
}

// readRange requires the lock.
func (s *Session) readRange(rng register.Range) (register.ReadResult, error) {
	log := s.log.With().Uint16("start", rng.Start).Uint16("count", rng.Count).Logger()

	if !rng.IsValid() {
		err := fault.InvalidAddressRange(rng.Start, rng.Count)
		log.Error().Err(err).Msg("read rejected")
		return register.ReadResult{}, err
	}
	if !s.link.live() {
		err := fault.NotConnected()
		log.Error().Err(err).Msg("read rejected")
		return register.ReadResult{}, err
	}

	began := time.Now()
	words, err := s.readRaw(rng.Start, rng.Count)
	elapsed := time.Since(began)
	s.rec.ReadDone(len(words), elapsed, err)

	if err != nil {
		log.Error().Err(err).Dur("elapsed", elapsed).Str("reason", fault.Translate(err, s.msgs)).Msg("read failed")
		return register.ReadResult{}, err
	}

	log.Info().Int("words", len(words)).Dur("elapsed", elapsed).Msg("read holding registers")
	return register.ReadResult{
		Success:      true,
		Data:         words,
		AddressRange: rng,
		Timestamp:    register.Timestamp(time.Now()),
		Message:      fmt.Sprintf("read %d registers", len(words)),
	}, nil
}

// readRaw requires the lock. Any failure moves the session to Error and
// releases the transport; recovery is an explicit Connect.
func (s *Session) readRaw(start, count uint16) ([]uint16, error) {
	words, err := s.exchange(start, count)
	if err != nil {
		msg := "Read timeout"
		if fe, ok := err.(*fault.Error); ok && fe.Kind != fault.KindTimeout {
			msg = fe.Detail
		}
		s.drop(msg)
		return nil, err
	}
	return words, nil
}

// exchange performs one timed read and classifies the outcome without
// touching the state.
func (s *Session) exchange(start, count uint16) ([]uint16, error) {
	if !s.link.live() {
		return nil, fault.NotConnected()
	}
	tr := s.link.tr
	timeout := s.cfg.timeout()

	s.log.Debug().Uint16("start", start).Uint16("count", count).Dur("timeout", timeout).Msg("raw read")

	type result struct {
		words []uint16
		err   error
	}
	done := make(chan result, 1)
	go func() {
		w, err := tr.ReadHoldingRegisters(start, count)
		done <- result{w, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		s.log.Warn().Dur("timeout", timeout).Msg("read timed out")
		return nil, fault.Timeout()

	case r := <-done:
		if r.err != nil {
			if code, ok := exceptionCode(r.err); ok {
				return nil, fault.Device("Modbus exception: "+r.err.Error(), code, r.err)
			}
			return nil, fault.Device("Transport error: "+r.err.Error(), 0, r.err)
		}
		if len(r.words) != int(count) {
			return nil, fault.Protocol(fmt.Sprintf("expected %d registers, got %d", count, len(r.words)))
		}
		return r.words, nil
	}
}

// ---- state helpers (lock held) ----

func (s *Session) setState(st State) {
	if tr := s.link.enter(st); tr != nil {
		if err := tr.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing previous transport failed")
		}
	}
	s.rec.StateChanged(st)
}

// drop moves to Error after a failed conversation. The transport may still
// be busy with an abandoned request, so it is closed in the background.
func (s *Session) drop(msg string) {
	st := errorState(msg)
	tr := s.link.enter(st)
	s.rec.StateChanged(st)
	if tr != nil {
		go closeQuietly(tr, s.log)
	}
}

func closeQuietly(tr Transport, log zerolog.Logger) {
	if err := tr.Close(); err != nil {
		log.Debug().Err(err).Msg("background transport close failed")
	}
}

var errRaceLost = errors.New("session: timeout elapsed first")

// dialWithin races dial against timeout. A transport that arrives after
// the race was lost is closed.
func (s *Session) dialWithin(cfg DialConfig, timeout time.Duration) (Transport, error) {
	type result struct {
		tr  Transport
		err error
	}
	done := make(chan result, 1)
	dial := s.dial
	go func() {
		tr, err := dial(cfg)
		done <- result{tr, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.tr, r.err
	case <-timer.C:
		log := s.log
		go func() {
			if r := <-done; r.err == nil && r.tr != nil {
				closeQuietly(r.tr, log)
			}
		}()
		return nil, errRaceLost
	}
}

// ---- accessors / mutators ----

// IsConnected is true only when the state is Connected and a transport
// is held.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link.live()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link.state
}

func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Session) ValidateConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Validate()
}

// ConnectionInfo is a one-line human readable summary.
func (s *Session) ConnectionInfo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("state: %s, device: %s:%d, slave id: %d, timeout: %dms",
		s.link.state, s.cfg.IP, s.cfg.Port, s.cfg.SlaveID, s.cfg.TimeoutMs)
}

// SetSlaveID applies to the live transport now, otherwise on next Connect.
func (s *Session) SetSlaveID(id uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug().Uint8("from", s.cfg.SlaveID).Uint8("to", id).Msg("set slave id")
	s.cfg.SlaveID = id
	if s.link.live() {
		s.link.tr.SetSlaveID(id)
	}
}

// SetTimeout applies to the live transport now, otherwise on next Connect.
func (s *Session) SetTimeout(ms uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug().Uint32("from", s.cfg.TimeoutMs).Uint32("to", ms).Msg("set timeout")
	s.cfg.TimeoutMs = ms
	if s.link.live() {
		s.link.tr.SetTimeout(s.cfg.timeout())
	}
}

// Configure validates the timeout range before applying both settings.
func (s *Session) Configure(timeoutMs uint32, slaveID uint8) error {
	if timeoutMs == 0 || timeoutMs > MaxTimeoutMs {
		return fault.Config("timeout must be between 1 and 60000 ms")
	}
	s.SetTimeout(timeoutMs)
	s.SetSlaveID(slaveID)
	return nil
}
