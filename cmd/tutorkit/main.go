// Package main implements the entry point for the tutorkit runtime.
// It wires a service registry with the configured services, exposes the
// health and metrics endpoints over HTTP, and drives the dependency-ordered
// startup and reverse-ordered graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/usorama/tutorkit/config"
	"github.com/usorama/tutorkit/health"
	"github.com/usorama/tutorkit/metric"
	"github.com/usorama/tutorkit/service"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "tutorkit"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	// Core infrastructure: metrics and the service registry
	metrics := metric.NewRegistry()
	registry := service.NewRegistry(service.WithRegistryLogger(logger))

	if err := registerServices(registry, cfg, logger, metrics); err != nil {
		return fmt.Errorf("register services: %w", err)
	}

	// HTTP surface: registry endpoints plus Prometheus metrics
	httpServer := buildHTTPServer(cfg, registry, metrics)

	return runWithSignalHandling(context.Background(), registry, httpServer, cfg.ShutdownTimeout.Std())
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting tutorkit service runtime",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads configuration from the flag-selected path,
// falling back to built-in defaults when no path is given. Flag overrides
// win over both.
func initializeConfiguration(cliCfg *CLIConfig) (*config.File, error) {
	var cfg *config.File
	if cliCfg.ConfigPath == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(cliCfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if cliCfg.HTTPPort > 0 {
		cfg.HTTPPort = cliCfg.HTTPPort
	}
	if cliCfg.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = config.Duration(cliCfg.ShutdownTimeout)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// registerServices registers the built-in services in dependency order.
// The session store has no dependencies; user management needs the store;
// the tutoring engine needs both.
func registerServices(
	registry *service.Registry,
	cfg *config.File,
	logger *slog.Logger,
	metrics *metric.Registry,
) error {
	newService := func(name string, hooks service.Hooks) *service.Supervisor {
		return service.New(name, hooks,
			service.WithLogger(logger),
			service.WithConfig(cfg.Service(name)),
			service.WithMetrics(metrics),
		)
	}

	sessionStore := newService("session-store", storeHooks(logger))
	userManager := newService("user-manager", stubHooks("user-manager", logger))
	tutoringEngine := newService("tutoring-engine", stubHooks("tutoring-engine", logger))

	if err := registry.Register("session-store", sessionStore); err != nil {
		return err
	}
	if err := registry.Register("user-manager", userManager, "session-store"); err != nil {
		return err
	}
	if err := registry.Register("tutoring-engine", tutoringEngine, "session-store", "user-manager"); err != nil {
		return err
	}

	slog.Info("services registered", "order", registry.InitializationOrder())
	return nil
}

// storeHooks returns lifecycle hooks for the in-memory session store
func storeHooks(logger *slog.Logger) service.Hooks {
	var store map[string]any
	return &service.HooksFuncs{
		InitFunc: func(_ context.Context) error {
			store = make(map[string]any)
			logger.Debug("session store allocated")
			return nil
		},
		StopFunc: func(_ context.Context) error {
			store = nil
			return nil
		},
		HealthFunc: func(_ context.Context) health.Status {
			if store == nil {
				return health.NewUnhealthy("session-store", "store not allocated")
			}
			return health.NewHealthy("session-store",
				fmt.Sprintf("%d sessions held", len(store)))
		},
	}
}

// stubHooks returns minimal hooks for services whose real implementation
// lives elsewhere. They report healthy once started.
func stubHooks(name string, logger *slog.Logger) service.Hooks {
	return &service.HooksFuncs{
		StartFunc: func(_ context.Context) error {
			logger.Debug("service started", "service", name)
			return nil
		},
	}
}

// buildHTTPServer mounts the registry endpoints and the metrics handler
func buildHTTPServer(cfg *config.File, registry *service.Registry, metrics *metric.Registry) *http.Server {
	mux := registry.HTTPHandler()
	mux.Handle("/metrics", metrics.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// runWithSignalHandling initializes and starts all services, serves HTTP,
// and handles shutdown signals
func runWithSignalHandling(
	ctx context.Context,
	registry *service.Registry,
	httpServer *http.Server,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := registry.InitializeAll(signalCtx); err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	if err := registry.StartAll(signalCtx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	slog.Info("all services started", "count", registry.Count())

	httpErrs := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrs <- err
		}
	}()

	select {
	case err := <-httpErrs:
		return fmt.Errorf("http server: %w", err)
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}

	if err := registry.StopAll(shutdownCtx); err != nil {
		slog.Error("Error stopping services", "error", err)
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}
