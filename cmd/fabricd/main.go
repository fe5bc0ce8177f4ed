// Command fabricd serves fabric topology and capacity analysis over HTTP.
//
// Configuration comes from defaults, the -config YAML file, FABRIC_* and
// LOG_LEVEL environment variables, and flags, later sources winning. When a
// snapshot path is configured it is loaded at startup and re-read on SIGHUP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-fabric/pkg/api"
	"github.com/dd0wney/cluso-fabric/pkg/config"
	"github.com/dd0wney/cluso-fabric/pkg/ingest"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/metrics"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = api.DefaultVersion

func main() {
	cfg, err := config.LoadArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fabricd: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel())
	logging.SetDefaultLogger(logger)
	logger.Info("fabricd starting",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("log_level", cfg.LogLevel().String()))

	store := snapshot.NewStore(logger)
	if cfg.Snapshot.Path != "" {
		// A bad startup snapshot is fatal; later reloads keep the old one.
		if err := loadSnapshot(store, cfg, logger); err != nil {
			logger.Error("failed to load snapshot", logging.Path(cfg.Snapshot.Path), logging.Error(err))
			os.Exit(1)
		}
	} else {
		logger.Warn("no snapshot configured; POST /snapshot to load one")
	}

	srv, err := api.NewServer(store, *cfg,
		api.WithLogger(logger),
		api.WithMetrics(metrics.DefaultRegistry()),
		api.WithVersion(version))
	if err != nil {
		logger.Error("failed to create server", logging.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go reloadOnHangup(ctx, store, cfg, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("fabricd stopped")
}

func loadSnapshot(store *snapshot.Store, cfg *config.Config, logger logging.Logger) error {
	timer := logging.StartTimer(logger, "snapshot load", logging.Path(cfg.Snapshot.Path))
	records, err := ingest.Load(cfg.Snapshot.Path, ingest.DumpOptions{ArrayName: cfg.Snapshot.ArrayName})
	if err != nil {
		timer.EndError(err)
		return err
	}
	var opts []snapshot.Option
	if cfg.Snapshot.Strict {
		opts = append(opts, snapshot.Strict())
	}
	snap, err := store.Reload(records, opts...)
	if err != nil {
		timer.EndError(err)
		return err
	}
	sum := snap.Summary()
	timer.End(
		logging.SnapshotID(sum.ID),
		logging.Int("initiators", sum.Initiators),
		logging.Int("targets", sum.Targets),
		logging.Int("switch_ports", sum.SwitchPorts),
		logging.Int("issues", sum.Issues))
	return nil
}

func reloadOnHangup(ctx context.Context, store *snapshot.Store, cfg *config.Config, logger logging.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if cfg.Snapshot.Path == "" {
				logger.Warn("SIGHUP ignored: no snapshot path configured")
				continue
			}
			if err := loadSnapshot(store, cfg, logger); err != nil {
				logger.Error("snapshot reload failed; keeping current snapshot", logging.Error(err))
			}
		}
	}
}
