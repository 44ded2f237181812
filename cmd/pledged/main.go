package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rwaledger/pledge-core/cmd/pledged/bootstrap"
	"github.com/rwaledger/pledge-core/internal/assetledger"
	"github.com/rwaledger/pledge-core/internal/events"
	"github.com/rwaledger/pledge-core/internal/executor"
	"github.com/rwaledger/pledge-core/internal/holdings"
	"github.com/rwaledger/pledge-core/internal/platform/logger"
	"github.com/rwaledger/pledge-core/internal/registry"
	"github.com/rwaledger/pledge-core/internal/stable"
	"github.com/rwaledger/pledge-core/pkg/scheduler"
)

var (
	buildVersion = "unknown"
	buildDate    = "unknown"
	buildUser    = "unknown"
)

// Pledge Platform Daemon
//
func main() {
	// -------------------------------------------------------------------------
	// Logging

	ctx := bootstrap.NewContextWithLogger()

	// -------------------------------------------------------------------------
	// Config

	cfg := bootstrap.NewConfigFromEnv(ctx)

	logger.Info(ctx, "Started : Build %v (%v on %v)", buildVersion, buildUser, buildDate)
	defer logger.Info(ctx, "Completed")

	// -------------------------------------------------------------------------
	// Identity

	key := bootstrap.RegistryKey(ctx, cfg)
	admin, operator, finance := bootstrap.Accounts(ctx, cfg)

	logger.Info(ctx, "Running registry %s", key.ID)

	// -------------------------------------------------------------------------
	// Storage

	masterDB := bootstrap.NewMasterDB(ctx, cfg)
	defer masterDB.Close()

	bootstrap.EnsureComponents(ctx, cfg, masterDB, key.ID, admin, operator, finance)

	// -------------------------------------------------------------------------
	// Write behind queues

	holdingsChannel := &holdings.CacheChannel{}
	holdingsChannel.Open(cfg.Executor.CacheBuffer)

	pump := &events.Pump{}
	if err := pump.Open(cfg.Executor.EventBuffer); err != nil {
		logger.Fatal(ctx, "Opening event pump : %s", err)
	}

	sink := bootstrap.NewEventSink(ctx, cfg)
	defer sink.Close()

	sch := &scheduler.Scheduler{}
	sch.ScheduleJob(ctx, scheduler.NewPeriodicProcess("Flush Caches",
		bootstrap.NewCacheFlusher(masterDB), time.Duration(cfg.Executor.FlushInterval)))

	// -------------------------------------------------------------------------
	// Components

	ledger := &assetledger.Ledger{
		MasterDB:        masterDB,
		HoldingsChannel: holdingsChannel,
		Events:          pump,
	}

	reg := &registry.Registry{
		MasterDB: masterDB,
		Ledger:   ledger,
		Stable:   stable.NewLedger(masterDB),
		Events:   pump,
	}

	// Constructing the executor builds the route table, so a missing or
	// doubled route fails at boot instead of on first use.
	executor.New(ledger, reg)

	// -------------------------------------------------------------------------
	// Start Background Services

	// Make a channel to listen for errors coming from the services. Use a
	// buffered channel so the goroutines can exit if we don't collect the
	// errors.
	serverErrors := make(chan error, 3)

	go func() {
		logger.Info(ctx, "Holdings writer running")
		serverErrors <- holdings.ProcessCacheItems(ctx, masterDB, holdingsChannel)
	}()

	go func() {
		logger.Info(ctx, "Event writer running")
		serverErrors <- events.ProcessEvents(ctx, sink, pump)
	}()

	go func() {
		logger.Info(ctx, "Scheduler running")
		serverErrors <- sch.Run(ctx)
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	// Make a channel to listen for an interrupt or terminate signal from the
	// OS. Use a buffered channel because the signal package requires it.
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		logger.Fatal(ctx, "Service failed : %s", err)

	case <-osSignals:
		logger.Info(ctx, "Start shutdown...")
	}

	sch.Stop(ctx)
	holdingsChannel.Close()
	pump.Close()

	// Wait for the services to drain their queues and exit.
	for i := 0; i < 3; i++ {
		if err := <-serverErrors; err != nil {
			logger.Error(ctx, "Service failed during shutdown : %s", err)
		}
	}

	if err := bootstrap.Flush(ctx, masterDB); err != nil {
		logger.Fatal(ctx, "Failed to flush caches : %s", err)
	}
}
