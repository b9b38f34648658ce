package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/semprofile/config"
	profileapi "github.com/c360studio/semprofile/processor/profile-api"
	rdfexport "github.com/c360studio/semprofile/processor/rdf-export"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/metric"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve profile template data over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.logLevel)
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, flags.configPath, logger)
		},
	}
}

func serve(ctx context.Context, configPath string, logger *slog.Logger) error {
	lc, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}
	cfg := lc.cfg

	values, err := cfg.ResolveProperties(lc.baseDir)
	if err != nil {
		return err
	}
	props := config.NewProperties(values)

	watcher, err := watchProperties(lc, props, logger)
	if err != nil {
		return err
	}
	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start properties watcher: %w", err)
		}
		defer watcher.Stop()
	}

	deps := component.Dependencies{
		MetricsRegistry: metric.NewMetricsRegistry(),
		Logger:          logger,
	}
	if cfg.NATS.URL != "" {
		natsClient, err := connectToNATS(ctx, cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer natsClient.Close(context.Background())
		deps.NATSClient = natsClient
	}

	api, err := profileapi.New(profileapi.FromAppConfig(cfg), deps, profileapi.WithProperties(props))
	if err != nil {
		return fmt.Errorf("create profile-api: %w", err)
	}
	if err := api.Initialize(); err != nil {
		return fmt.Errorf("initialize profile-api: %w", err)
	}
	if err := api.Start(ctx); err != nil {
		return fmt.Errorf("start profile-api: %w", err)
	}
	defer api.Stop(shutdownTimeout)

	if cfg.NATS.ExportFormat != "" {
		exporter, err := startExport(ctx, cfg.NATS.ExportFormat, deps)
		if err != nil {
			return err
		}
		defer exporter.Stop(shutdownTimeout)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newMux(api, cfg.Server.ContextPath, deps.MetricsRegistry),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Semprofile ready",
			"version", Version,
			"addr", cfg.Server.Addr,
			"context_path", cfg.Server.ContextPath,
			"backend", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", "error", err)
	}

	logger.Info("Semprofile shutdown complete")
	return nil
}

// startExport runs the rdf-export stream component next to the API.
func startExport(ctx context.Context, format string, deps component.Dependencies) (*rdfexport.Component, error) {
	if deps.NATSClient == nil {
		return nil, fmt.Errorf("rdf-export requires nats.url")
	}
	raw, err := json.Marshal(map[string]string{"format": format})
	if err != nil {
		return nil, err
	}
	d, err := rdfexport.NewComponent(raw, deps)
	if err != nil {
		return nil, fmt.Errorf("create rdf-export: %w", err)
	}
	exporter := d.(*rdfexport.Component)
	if err := exporter.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize rdf-export: %w", err)
	}
	if err := exporter.Start(ctx); err != nil {
		return nil, fmt.Errorf("start rdf-export: %w", err)
	}
	return exporter, nil
}

// newMux mounts the profile endpoints under contextPath next to the
// operational endpoints.
func newMux(api *profileapi.Component, contextPath string, registry *metric.MetricsRegistry) *http.ServeMux {
	mux := http.NewServeMux()
	api.RegisterHTTPHandlers(contextPath, mux)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		health := api.Health()
		w.Header().Set("Content-Type", "application/json")
		if !health.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  health.Status,
			"healthy": health.Healthy,
			"uptime":  health.Uptime.String(),
		})
	})

	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry.PrometheusRegistry(), promhttp.HandlerOpts{}))
	}
	return mux
}

// watchProperties reloads props when the config file or the runtime
// properties file changes. It returns nil when neither exists.
func watchProperties(lc *loadedConfig, props *config.Properties, logger *slog.Logger) (*config.Watcher, error) {
	var paths []string
	if lc.path != "" {
		paths = append(paths, lc.path)
	}
	if lc.cfg.RuntimeProperties != "" {
		paths = append(paths, lc.cfg.RuntimeProperties)
	}
	if len(paths) == 0 {
		return nil, nil
	}

	configPath := lc.path
	w, err := config.NewWatcher(props, config.WatcherConfig{
		Paths:  paths,
		Logger: logger,
		Reload: func() (map[string]string, error) {
			cfg, _, err := config.NewLoader(logger).Load(configPath)
			if err != nil {
				return nil, err
			}
			cfg.RuntimeProperties = resolvePath(lc.baseDir, cfg.RuntimeProperties)
			return cfg.ResolveProperties(lc.baseDir)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create properties watcher: %w", err)
	}
	return w, nil
}
