// internal/poller/builder.go
package poller

import (
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modbus-reader/internal/config"
	"github.com/tamzrod/modbus-reader/internal/register"
	"github.com/tamzrod/modbus-reader/internal/session"
)

// Build constructs a Poller over an existing session.
// The session is reused while healthy. After a failure the session sits in
// its error state and the poller reconnects it on a future tick.
// No retries, no loops, no semantics.
func Build(c *cfg.Config, sess *session.Session, log zerolog.Logger) (*Poller, error) {
	r := c.Reader
	host, port := r.Device.Host, r.Device.Port

	reconnect := func() error {
		return sess.Connect(host, port)
	}

	p, err := New(
		Config{
			UnitID:   net.JoinHostPort(host, strconv.Itoa(int(port))),
			Interval: time.Duration(r.Poll.IntervalMs) * time.Millisecond,
			Ranges:   r.Ranges(),
			Format:   register.ParseFormat(r.Format),
		},
		sess,
		reconnect,
	)
	if err != nil {
		return nil, err
	}
	return p.WithLogger(log), nil
}
