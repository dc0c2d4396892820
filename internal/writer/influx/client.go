// internal/writer/influx/client.go
package influx

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-reader/internal/register"
	"github.com/tamzrod/modbus-reader/internal/status"
)

// pointAPI is the subset of the non-blocking write API the client uses.
type pointAPI interface {
	WritePoint(p *write.Point)
	Flush()
	Errors() <-chan error
}

// Client writes batches and status as InfluxDB points.
// Writes are asynchronous; a failure reported by the library is returned
// from the next WriteBatch or WriteStatus call.
type Client struct {
	client      influxdb2.Client // nil in tests
	api         pointAPI
	measurement string
	log         zerolog.Logger

	mu      sync.Mutex
	lastErr error
	drained chan struct{}
}

type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	Log         zerolog.Logger
}

// New connects the client and checks reachability once. An unreachable
// server is logged, not fatal: points are buffered and retried by the
// library.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("writer influx: url, org and bucket required")
	}

	cl := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ok, err := cl.Ping(ctx); err != nil || !ok {
		cfg.Log.Warn().Err(err).Str("url", cfg.URL).Msg("influxdb not reachable")
	}

	c := newClient(cl.WriteAPI(cfg.Org, cfg.Bucket), cfg.Measurement, cfg.Log)
	c.client = cl
	return c, nil
}

func newClient(api pointAPI, measurement string, log zerolog.Logger) *Client {
	c := &Client{
		api:         api,
		measurement: measurement,
		log:         log.With().Str("component", "influx").Logger(),
		drained:     make(chan struct{}),
	}
	go c.drain(api.Errors())
	return c
}

func (c *Client) drain(errCh <-chan error) {
	defer close(c.drained)
	for err := range errCh {
		c.log.Error().Err(err).Msg("influxdb write failed")
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
	}
}

func (c *Client) takeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.lastErr
	c.lastErr = nil
	return err
}

// WriteBatch writes one point: a numeric field per successful address plus
// the batch counters.
func (c *Client) WriteBatch(unitID string, at time.Time, b register.BatchResult) error {
	fields := map[string]interface{}{
		"success_count": int64(b.SuccessCount),
		"failed_count":  int64(b.FailedCount),
		"duration_ms":   int64(b.DurationMs),
	}
	for _, r := range b.Results {
		if v, ok := r.Numeric(); ok {
			fields["addr_"+strconv.Itoa(int(r.Address))] = v
		}
	}

	c.api.WritePoint(influxdb2.NewPoint(
		c.measurement,
		map[string]string{"unit": unitID},
		fields,
		at,
	))
	return c.takeErr()
}

// WriteStatus writes the device status to <measurement>_status.
func (c *Client) WriteStatus(unitID string, at time.Time, s status.Snapshot) error {
	c.api.WritePoint(influxdb2.NewPoint(
		c.measurement+"_status",
		map[string]string{
			"unit":   unitID,
			"health": status.HealthName(s.Health),
		},
		map[string]interface{}{
			"health":           int64(s.Health),
			"last_error_code":  int64(s.LastErrorCode),
			"seconds_in_error": int64(s.SecondsInError),
		},
		at,
	))
	return c.takeErr()
}

// Close flushes pending points and releases the client.
func (c *Client) Close() error {
	c.api.Flush()
	if c.client != nil {
		c.client.Close()
	}
	return c.takeErr()
}
