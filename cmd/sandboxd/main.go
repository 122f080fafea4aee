// Copyright 2025 James Ross

// Command sandboxd is the multi-tenant WASM job execution service of
// spec.md: it loads configuration and the tenant policy file, wires
// the admission controller, hand-off queue, dispatcher and sandbox
// executor together, then serves the public job API and the
// observability endpoints until signaled to stop. Grounded on the
// reference module's cmd/job-queue-system/main.go wiring shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jamesross/wasm-job-sandbox/internal/admission"
	"github.com/jamesross/wasm-job-sandbox/internal/config"
	"github.com/jamesross/wasm-job-sandbox/internal/dispatcher"
	"github.com/jamesross/wasm-job-sandbox/internal/eventbus"
	"github.com/jamesross/wasm-job-sandbox/internal/gpuquota"
	"github.com/jamesross/wasm-job-sandbox/internal/housekeeping"
	"github.com/jamesross/wasm-job-sandbox/internal/httpapi"
	"github.com/jamesross/wasm-job-sandbox/internal/obs"
	"github.com/jamesross/wasm-job-sandbox/internal/queue"
	"github.com/jamesross/wasm-job-sandbox/internal/ratelimit"
	"github.com/jamesross/wasm-job-sandbox/internal/registry"
	"github.com/jamesross/wasm-job-sandbox/internal/sandbox"
	"github.com/jamesross/wasm-job-sandbox/internal/schema"
	"github.com/jamesross/wasm-job-sandbox/internal/tenant"
)

var version = "dev"

func main() {
	var configPath string
	var showVersion bool
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config/config.toml", "Path to TOML config")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Observability.LogLevel, cfg.Observability.AuditLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tp, err := obs.MaybeInitTracing(cfg)
	if err != nil {
		logger.Warn("tracing init failed", obs.Err(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	tenants, err := tenant.Load(cfg.TenantsFile)
	if err != nil {
		logger.Fatal("failed to load tenants file", obs.Err(err), obs.String("path", cfg.TenantsFile))
	}

	metrics := obs.NewMetrics()

	var schemas *schema.Registry // SPEC_FULL.md §3.5: left nil, per-module schemas are opt-in via Register

	usage := ratelimit.New()
	gpu := gpuquota.New(cfg.GPUSlots)
	jobs := registry.New()
	handoff := queue.New(cfg.QueueLength)

	var bus *eventbus.Bus
	if cfg.EventBus.Enabled {
		bus, err = eventbus.Connect(cfg.EventBus.URL, logger)
		if err != nil {
			logger.Fatal("failed to connect event bus", obs.Err(err), obs.String("url", cfg.EventBus.URL))
		}
		defer bus.Close()
	}

	var moduleSource sandbox.ModuleSource
	if cfg.Sandbox.S3.Enabled {
		moduleSource, err = sandbox.NewS3ModuleSource(cfg.Sandbox.S3.Region, cfg.Sandbox.S3.Bucket, cfg.Sandbox.S3.Prefix)
		if err != nil {
			logger.Fatal("failed to init S3 module source", obs.Err(err))
		}
	} else {
		moduleSource = sandbox.NewLocalModuleSource(cfg.Sandbox.ModulesDir)
	}

	executor, err := sandbox.NewExecutor(sandbox.Config{
		MaxMemoryBytes:   cfg.Sandbox.MaxMemoryBytes,
		MaxExecutionTime: cfg.Sandbox.MaxExecutionTime,
		ModuleCacheSize:  cfg.Sandbox.ModuleCacheSize,
		EnableFuel:       cfg.Sandbox.EnableFuel,
		FuelUnits:        cfg.Sandbox.FuelUnits,
	}, moduleSource, logger)
	if err != nil {
		logger.Fatal("failed to init sandbox executor", obs.Err(err))
	}

	admCtrl := admission.New(tenants, usage, jobs, handoff, schemas, metrics)
	disp := dispatcher.New(handoff, tenants, gpu, jobs, executor, logger, metrics, bus)

	var sweeper *housekeeping.Sweeper
	if cfg.Housekeeping.Enabled {
		sweeper, err = housekeeping.New(cfg.Housekeeping.Schedule, usage, gpu, logger)
		if err != nil {
			logger.Fatal("failed to init housekeeping sweep", obs.Err(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readyCheck := func(context.Context) error { return nil }
	obsSrv := obs.StartHTTPServer(cfg, readyCheck)
	defer func() { _ = obsSrv.Shutdown(context.Background()) }()

	apiSrv, err := httpapi.NewServer(cfg.HTTP.ListenAddr, admCtrl, jobs, bus, logger)
	if err != nil {
		logger.Fatal("failed to init job API server", obs.Err(err))
	}
	go func() {
		if err := apiSrv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("job API server error", obs.Err(err))
			cancel()
		}
	}()

	if sweeper != nil {
		sweeper.Start()
	}
	go disp.Run(ctx)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("signal received, shutting down", obs.String("signal", sig.String()))
	case <-ctx.Done():
	}

	handoff.Close()
	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("job API server shutdown error", obs.Err(err))
	}
}
