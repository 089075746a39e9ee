package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-trafficgraph/pkg/api"
	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/config"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
	"github.com/dd0wney/cluso-trafficgraph/pkg/render"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

func main() {
	configPath := flag.String("config", os.Getenv("TRAFFICGRAPH_CONFIG"), "YAML config file")
	dir := flag.String("captures", "", "Capture directory (overrides storage.dir)")
	port := flag.Int("port", 0, "HTTP server port (overrides server.port)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.Storage.Dir = *dir
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := cfg.Logger(os.Stdout)
	logging.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("server exited")
}

func run(ctx context.Context, cfg config.Config, logger logging.Logger) error {
	reg := metrics.DefaultRegistry()

	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	source, err := cfg.Source(ctx)
	if err != nil {
		return fmt.Errorf("open capture store: %w", err)
	}

	catalog := capture.NewCatalog(source,
		capture.WithCatalogLogger(logger),
		capture.WithCatalogMetrics(reg),
		capture.WithIngester(capture.NewIngester(rules,
			capture.WithIngestLogger(logger),
			capture.WithIngestMetrics(reg))))
	if err := catalog.Load(ctx, ""); err != nil {
		return fmt.Errorf("load captures: %w", err)
	}
	go reloadOnHangup(ctx, catalog, logger)

	builder := visualization.NewBuilder(
		visualization.WithMaxTargets(cfg.Canvas.MaxTargets),
		visualization.WithLogger(logger),
		visualization.WithMetrics(reg))
	renderer := render.NewRenderer(render.WithLogger(logger), render.WithMetrics(reg))
	svc := api.NewService(catalog, builder, renderer, cfg.Canvas.Viewport, logger, reg)

	server, err := api.NewServer(svc,
		api.WithLogger(logger),
		api.WithMetrics(reg),
		api.WithAddr(cfg.Addr()),
		api.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout))
	if err != nil {
		return err
	}
	return server.ListenAndServe(ctx)
}

// reloadOnHangup rescans the capture store on SIGHUP.
func reloadOnHangup(ctx context.Context, catalog *capture.Catalog, logger logging.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := catalog.Load(ctx, ""); err != nil {
				logger.Warn("reload captures", logging.Error(err))
			}
		}
	}
}
