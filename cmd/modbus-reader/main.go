// cmd/modbus-reader/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-reader/internal/config"
	"github.com/tamzrod/modbus-reader/internal/fault"
	"github.com/tamzrod/modbus-reader/internal/metrics"
	"github.com/tamzrod/modbus-reader/internal/poller"
	"github.com/tamzrod/modbus-reader/internal/register"
	"github.com/tamzrod/modbus-reader/internal/session"
	"github.com/tamzrod/modbus-reader/internal/status"
	"github.com/tamzrod/modbus-reader/internal/writer"
	"github.com/tamzrod/modbus-reader/internal/writer/csvfile"
)

func main() {
	cfgPath := flag.String("config", "reader.yaml", "path to the YAML config")
	envPath := flag.String("env", ".env", "optional dotenv file loaded before the config")
	once := flag.Bool("once", false, "read every range once, print the batch as JSON and exit")
	export := flag.String("export", "", "with -once: also write the batch as a summary CSV to this path")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// --------------------
	// Load + validate config
	// --------------------

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Str("path", *envPath).Msg("dotenv load failed")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		log.Fatal().Err(err).Msg("environment override failed")
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validation failed")
	}
	config.Normalize(cfg)

	if lvl, err := zerolog.ParseLevel(cfg.Reader.Log.Level); err == nil {
		log = log.Level(lvl)
	}

	// --------------------
	// Session
	// --------------------

	d := cfg.Reader.Device
	catalog := fault.CatalogFor(cfg.Reader.Locale)
	collector := metrics.New()

	sess := session.New(
		session.WithConfig(session.Config{
			IP:        d.Host,
			Port:      d.Port,
			TimeoutMs: d.TimeoutMs,
			SlaveID:   *d.SlaveID,
		}),
		session.WithLogger(log),
		session.WithCatalog(catalog),
		session.WithRecorder(collector),
	)
	defer sess.Disconnect()

	if err := sess.Connect(d.Host, d.Port); err != nil {
		log.Error().Err(err).Str("reason", fault.Translate(err, catalog)).Msg("initial connect failed")
	}
	log.Info().Msg(sess.ConnectionInfo())

	if *once {
		code := runOnce(sess, cfg, *export, log)
		_ = sess.Disconnect()
		os.Exit(code)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := serve(ctx, sess, cfg, collector, log)
	stop()
	os.Exit(code)
}

// serve runs the reader until ctx ends, then releases the session. Outputs
// are closed by run before it returns, so nothing is skipped on failure.
func serve(ctx context.Context, sess *session.Session, cfg *config.Config, collector *metrics.Collector, log zerolog.Logger) int {
	code := 0
	if err := run(ctx, sess, cfg, collector, log); err != nil {
		log.Error().Err(err).Msg("reader stopped")
		code = 1
	}
	_ = sess.Disconnect()
	if code == 0 {
		log.Info().Msg("shutdown complete")
	}
	return code
}

// runOnce performs one detailed batch and prints it. Exit code 1 when any
// address failed.
func runOnce(sess *session.Session, cfg *config.Config, export string, log zerolog.Logger) int {
	b, err := sess.ReadRangesDetailed(cfg.Reader.Ranges(), register.ParseFormat(cfg.Reader.Format))
	if err != nil {
		log.Error().Err(err).Msg("batch read failed")
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		log.Error().Err(err).Msg("encode failed")
		return 1
	}

	if export != "" {
		f, err := os.Create(export)
		if err != nil {
			log.Error().Err(err).Msg("export failed")
			return 1
		}
		defer f.Close()
		if err := csvfile.Export(f, []register.BatchResult{b}); err != nil {
			log.Error().Err(err).Msg("export failed")
			return 1
		}
		log.Info().Str("path", export).Msg("batch exported")
	}

	if b.FailedCount > 0 {
		return 1
	}
	return 0
}

func run(ctx context.Context, sess *session.Session, cfg *config.Config, collector *metrics.Collector, log zerolog.Logger) error {
	// ---- poller ----
	p, err := poller.Build(cfg, sess, log)
	if err != nil {
		return err
	}

	// ---- writer plan + sinks ----
	plan, err := writer.BuildPlan(cfg)
	if err != nil {
		return err
	}
	sinks, closeSinks, err := writer.BuildSinks(cfg, plan, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSinks(); err != nil {
			log.Warn().Err(err).Msg("closing outputs failed")
		}
	}()

	dataWriter := writer.New(plan, sinks)
	statusWriter, statusEnabled := writer.NewDeviceStatusWriter(plan, sinks)

	// ---- metrics endpoint ----
	if addr := cfg.Reader.Metrics.Listen; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			log.Info().Str("listen", addr).Msg("metrics endpoint enabled")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	// ---- channel between poller and orchestrator ----
	out := make(chan poller.PollResult)
	go p.Run(ctx, out)

	tracker := status.NewTracker()
	publish := func() {
		snap := tracker.Snapshot()
		collector.StatusChanged(snap)
		if !statusEnabled {
			return
		}
		if err := statusWriter.WriteStatus(snap); err != nil {
			log.Warn().Err(err).Msg("status write failed")
		}
	}
	publish()

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case res := <-out:
			if res.Err == nil {
				collector.BatchDone(res.Batch)
			} else {
				log.Error().Err(res.Err).Msg("poll cycle failed")
			}

			// --- data delivery ---
			if err := dataWriter.Write(res); err != nil {
				log.Error().Err(err).Msg("writer error")
			}

			// --- status update (device-level truth) ---
			if tracker.Observe(res) {
				log.Info().
					Str("health", status.HealthName(tracker.Snapshot().Health)).
					Uint16("last_error_code", tracker.Snapshot().LastErrorCode).
					Msg("device status changed")
				publish()
			}

		case <-secTicker.C:
			// Tick 1 Hz while not OK.
			if tracker.Tick() {
				publish()
			}
		}
	}
}
