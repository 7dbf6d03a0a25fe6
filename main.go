package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"osprey-cad/api"
	"osprey-cad/config"
	"osprey-cad/core/ingest"
	"osprey-cad/core/reconcile"
	"osprey-cad/core/store"
	"osprey-cad/core/units"
	"osprey-cad/core/utils"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to config file")
	flag.Parse()

	logger := utils.NewLogger()
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Errorf("timezone %q: %v", cfg.Timezone, err)
		os.Exit(1)
	}

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Errorf("database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.ApplyMigrations(ctx, db, cfg.DBDriver, logger); err != nil {
		logger.Errorf("migrations: %v", err)
		os.Exit(1)
	}

	incidents := store.NewIncidentsStore(db)
	archive := store.NewArchiveStore(db)
	unitsStore := store.NewUnitsStore(db)

	resolver := units.NewCachedResolver(unitsStore, cfg.Units.CacheTTL())
	reconciler := reconcile.New(resolver, loc, logger)
	gate := ingest.NewGate(archive, logger)
	pipeline := ingest.NewPipeline(gate, incidents, reconciler,
		cfg.Ingest.MaxConcurrent, cfg.Ingest.MessageTimeout(), logger)
	pipeline.SetNotifier(func(_ context.Context, out *reconcile.Outcome) {
		logger.Infof("incident %s %s", out.Aggregate.IncidentNumber, out.Transition)
	})

	maintenance := ingest.NewMaintenance(cfg.Retention, archive, resolver, logger)
	if err := maintenance.Start(); err != nil {
		logger.Errorf("maintenance: %v", err)
		os.Exit(1)
	}

	server := api.NewServer(cfg, api.ServerDeps{
		Pipeline:  pipeline,
		Incidents: incidents,
		Archive:   archive,
		Units:     unitsStore,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Errorf("server: %v", err)
		}
	case sig := <-stop:
		logger.Infof("shutting down (%s)", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	if err := maintenance.Stop(shutdownCtx); err != nil {
		logger.Errorf("maintenance stop: %v", err)
	}
}
