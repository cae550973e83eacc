package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reoring/goshape/internal/config"
	"github.com/reoring/goshape/internal/httpapi"
	"github.com/reoring/goshape/internal/metrics"
	"github.com/reoring/goshape/internal/registry"
)

var (
	serveSchemas string
	serveAddr    string
	serveWatch   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve schema validation over HTTP",
	Long: `Start the validation service.

The server will:
  - Load configuration from goshape.yaml (or --config)
  - Or load configuration from GOSHAPE_* environment variables
  - Load every schema document in the schema directory
  - Reload schemas on change when watching is enabled

Endpoints:
  GET  /healthz
  GET  /v1/schemas
  GET  /v1/schemas/{name}/jsonschema
  POST /v1/schemas/{name}/validate
  GET  /metrics

Examples:
  goshape serve --schemas ./schemas --watch
  GOSHAPE_SERVER_ADDR=:9000 goshape serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveSchemas, "schemas", "", "schema directory (overrides schemas.dir)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload schemas when files change (overrides schemas.watch)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("schemas") {
		cfg.Schemas.Dir = serveSchemas
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if cmd.Flags().Changed("watch") {
		cfg.Schemas.Watch = serveWatch
	}
	logger := newLogger(cfg)
	return serve(cmd.Context(), cfg, logger)
}

// serve runs the service until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	srv, schemas, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	if cfg.Schemas.Watch {
		if err := schemas.Watch(ctx); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
		return err
	}
	return nil
}

// newServer wires the registry, metrics and router for cfg.
func newServer(cfg *config.Config, logger zerolog.Logger) (*http.Server, *registry.Registry, error) {
	schemas, err := registry.Open(cfg.Schemas.Dir, registry.Options{Logger: logger})
	if err != nil {
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegistry(reg)
	m.SchemasLoaded.Set(float64(schemas.Len()))
	schemas.OnReload(func(ev registry.Event) { m.ObserveReload(ev.Loaded, ev.Err) })

	opt := httpapi.Options{
		Schemas: schemas,
		Decode:  cfg.Input.DecodeOpt(),
		Logger:  logger,
		Metrics: m,
	}
	if cfg.Metrics.Enabled {
		opt.Gatherer = reg
		opt.MetricsPath = cfg.Metrics.Path
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewRouter(opt),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return srv, schemas, nil
}
