package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Noofbiz/sharkcast/config"
	"github.com/Noofbiz/sharkcast/logger"
	"github.com/Noofbiz/sharkcast/metrics"
	"github.com/Noofbiz/sharkcast/telemetry"
	"github.com/Noofbiz/sharkcast/tracker"
)

// app carries the state shared by every subcommand.
type app struct {
	cfgPath  string
	dataPath string
	logLevel string
	workers  int
	listen   string

	cfg   *config.Config
	runID string
	log   *logger.ZerologLogger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sharkcast",
		Short:         "Six-hour shark movement and environment forecaster",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "sharkcast.yaml", "configuration file (optional)")
	pf.StringVarP(&a.dataPath, "data", "d", "", "tracking CSV (overrides data.path)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (overrides logging.level)")
	pf.IntVar(&a.workers, "workers", 0, "individuals trained concurrently (overrides training.workers)")
	pf.StringVar(&a.listen, "metrics-listen", "", "serve Prometheus metrics on this address (overrides metrics.listen)")

	root.AddCommand(newPredictCmd(a), newEvaluateCmd(a), newTracksCmd(a))
	return root
}

// setup loads the config, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Data.Path = a.dataPath
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("workers") {
		cfg.Training.Workers = a.workers
	}
	if flags.Changed("metrics-listen") {
		cfg.Metrics.Listen = a.listen
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.SetLevel(cfg.Logging.Level)

	a.cfg = cfg
	a.runID = uuid.NewString()
	a.log = a.logger("cli")
	return nil
}

// logger returns a component logger tagged with the run id.
func (a *app) logger(component string) *logger.ZerologLogger {
	return logger.NewZerologLogger(component, os.Stderr).With("run_id", a.runID)
}

func (a *app) loadRecords() ([]telemetry.Record, error) {
	path, err := telemetry.ResolveCSV(a.cfg.Data.Path, config.DefaultDataPath)
	if err != nil {
		return nil, err
	}
	if path != a.cfg.Data.Path {
		a.log.Infof("using %s from %s", filepath.Base(path), a.cfg.Data.Path)
	}
	records, _, err := telemetry.LoadFile(path, a.cfg.Data.Columns, a.logger("telemetry"))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no usable rows in %s", path)
	}
	return records, nil
}

// session loads the data and trains every individual. The returned stop
// function shuts the metrics endpoint down, if one was started.
func (a *app) session(ctx context.Context) (*tracker.Session, func(), error) {
	records, err := a.loadRecords()
	if err != nil {
		return nil, nil, err
	}

	trainer, err := tracker.NewTrainer(a.cfg.Training)
	if err != nil {
		return nil, nil, err
	}
	trainer.Logger = a.logger("trainer")

	stop := func() {}
	if a.cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		rec, err := metrics.NewPromRecorder(reg)
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: %w", err)
		}
		trainer.Recorder = rec
		stop = a.serveMetrics(a.cfg.Metrics.Listen, reg)
	}

	sess, err := tracker.NewSession(ctx, records, trainer)
	if err != nil {
		stop()
		return nil, nil, err
	}
	return sess, stop, nil
}

func (a *app) serveMetrics(addr string, g prometheus.Gatherer) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Errorf("metrics server: %v", err)
		}
	}()
	a.log.Infof("serving metrics on %s/metrics", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.log.Warnf("metrics shutdown: %v", err)
		}
	}
}
