package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/service"
	"github.com/RubioRobin/qr-ifc-viewer/internal/infra/buildinfo"
	"github.com/RubioRobin/qr-ifc-viewer/internal/infra/confloader"
	"github.com/RubioRobin/qr-ifc-viewer/internal/infra/shutdown"
	"github.com/RubioRobin/qr-ifc-viewer/internal/server/config"
	"github.com/RubioRobin/qr-ifc-viewer/internal/server/httpserver"
	"github.com/RubioRobin/qr-ifc-viewer/internal/storage"
	"github.com/RubioRobin/qr-ifc-viewer/internal/telemetry/logger"
	"github.com/RubioRobin/qr-ifc-viewer/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		addr        = flag.String("addr", "", "Listen address override")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("qrifc-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile, *addr)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(log)

	log.Info("starting qrifc-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", *configFile)

	metrics := metric.NewRegistry()

	store, err := storage.Open(storage.Config{
		Backend:              cfg.Storage.Backend,
		DataDir:              cfg.Storage.DataDir,
		SnapshotKeep:         cfg.Storage.SnapshotKeep,
		EncryptionPassphrase: cfg.Storage.EncryptionPassphrase,
		Logger:               log,
		Metrics:              metrics,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	log.Info("storage opened",
		"backend", cfg.Storage.Backend,
		"data_dir", cfg.Storage.DataDir)

	issuer := service.NewIssuer(store, log, metrics)

	sweeper := service.NewSweeper(issuer, cfg.Sweep.Interval, log)
	// Reclaim whatever expired while the process was down, then keep
	// sweeping on the configured cadence.
	sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 30*time.Second)
	sweeper.RunOnce(sweepCtx)
	sweepCancel()
	sweeper.Start()

	httpServer := buildHTTPServer(cfg, issuer, log, metrics)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	// Hooks run in reverse registration order: server first, then
	// sweeper, then storage.
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing storage")
		return store.Close()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping sweeper")
		sweeper.Stop()
		return nil
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	watcher := watchConfig(*configFile, log)
	if watcher != nil {
		defer watcher.Stop()
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)

		var err error
		if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, the optional config file, environment
// variables, and the command-line address override.
func loadConfig(configFile, addrOverride string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if addrOverride != "" {
		cfg.Server.HTTP.Addr = addrOverride
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildHTTPServer wires the router over the issuer.
func buildHTTPServer(cfg *config.ServerConfig, issuer *service.Issuer, log *slog.Logger, metrics *metric.Registry) *httpserver.Server {
	routerCfg := &httpserver.RouterConfig{
		Issuer:        issuer,
		ViewerBaseURL: cfg.Server.ViewerBaseURL,
		Logger:        log,
		Metrics:       metrics,
		CORSOrigins:   cfg.Server.CORSOrigins,
	}
	if cfg.Server.RateLimit.Enabled {
		routerCfg.RateLimitRPS = cfg.Server.RateLimit.RPS
		routerCfg.RateLimitBurst = cfg.Server.RateLimit.Burst
	}
	return httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(routerCfg))
}

// watchConfig reloads the log level when the config file changes.
// Other settings require a restart.
func watchConfig(configFile string, log *slog.Logger) *confloader.Watcher {
	if configFile == "" {
		return nil
	}

	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := watcher.Watch(configFile); err != nil {
		log.Warn("config watch failed", "error", err, "path", configFile)
		return nil
	}

	watcher.OnChange(func(path string) {
		cfg := config.Default()
		loader := confloader.NewLoader(confloader.WithConfigFile(path))
		if err := loader.Load(cfg); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	watcher.StartAsync()
	return watcher
}
