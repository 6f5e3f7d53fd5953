package main

import (
	"fmt"
	"log/slog"
	"os"

	"league-digest/internal/config"
	"league-digest/internal/digest"
	"league-digest/internal/logger"
	"league-digest/internal/metrics"
	"league-digest/internal/server"
	"league-digest/internal/sink"
	"league-digest/internal/source"
)

type app struct {
	cfg    config.Config
	log    *slog.Logger
	runner *digest.Runner
	latest *server.Latest
}

func setup(opts *rootOptions) (*app, error) {
	log := logger.New(os.Stdout, opts.logFormat, opts.verbose)

	lookup := os.LookupEnv
	if opts.debug {
		lookup = func(k string) (string, bool) {
			if k == "DEBUG" {
				return "1", true
			}
			return os.LookupEnv(k)
		}
	}
	cfg, err := config.LoadWithEnv(opts.configPath, lookup)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	src, err := source.NewFromConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("build source: %w", err)
	}
	sinks, err := sink.FromConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}

	latest := &server.Latest{}
	runner, err := digest.New(src, sinks, cfg.Digest,
		digest.WithLogger(log),
		digest.WithDebug(cfg.Debug),
		digest.WithActivityLimit(cfg.Source.ActivityLimit),
		digest.WithObserver(latest.Set),
	)
	if err != nil {
		return nil, err
	}
	log.Info("league-digest configured",
		"version", Version, "source", src.Name(), "sinks", names,
		"lookback", cfg.Digest.Lookback.String(), "debug", cfg.Debug)
	return &app{cfg: cfg, log: log, runner: runner, latest: latest}, nil
}

// snapshot prints the metrics registry after a cycle when enabled.
func (a *app) snapshot() {
	if !a.cfg.Metrics.Enable {
		return
	}
	if snap := metrics.Dump(); snap != "" {
		fmt.Println("METRICS SNAPSHOT:\n" + snap)
	}
}
