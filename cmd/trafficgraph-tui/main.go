// Command trafficgraph-tui browses the captures of a store in the terminal:
// one tab per capture, the category layout, and the detail table of the
// selected category.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/config"
	"github.com/dd0wney/cluso-trafficgraph/pkg/interaction"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	dir := flag.String("captures", "", "Capture directory (overrides storage.dir)")
	logPath := flag.String("log", "", "Write JSON logs to this file")
	flag.Parse()

	if err := run(*configPath, *dir, *logPath); err != nil {
		fmt.Fprintln(os.Stderr, "trafficgraph-tui:", err)
		os.Exit(1)
	}
}

func run(configPath, dir, logPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dir != "" {
		cfg.Storage.Dir = dir
	}

	// The terminal belongs to the UI; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := cfg.Logger(logOut)

	ctx := context.Background()
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	source, err := cfg.Source(ctx)
	if err != nil {
		return err
	}
	catalog := capture.NewCatalog(source,
		capture.WithCatalogLogger(logger),
		capture.WithIngester(capture.NewIngester(rules, capture.WithIngestLogger(logger))))
	if err := catalog.Load(ctx, ""); err != nil {
		return err
	}
	logger.Info("tui starting", logging.Int("captures", catalog.Len()))

	m := newModel(catalog.List(),
		interaction.WithBuilder(visualization.NewBuilder(
			visualization.WithMaxTargets(cfg.Canvas.MaxTargets),
			visualization.WithLogger(logger))),
		interaction.WithViewport(cfg.Canvas.Viewport),
		interaction.WithDebounce(cfg.Interaction.Debounce),
		interaction.WithLogger(logger))

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
