// Command trafficgraph lays out the conversations of one capture and writes
// the graph as PNG and/or JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/config"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/render"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

type options struct {
	width, height float64
	selected      traffic.Category
	configPath    string
	cache         bool
	out           string
	json          string
}

func main() {
	var opts options
	var selected string
	flag.Float64Var(&opts.width, "width", 0, "Viewport width (0 for the reference width)")
	flag.Float64Var(&opts.height, "height", 0, "Viewport height (0 for the default height)")
	flag.StringVar(&selected, "select", "", "Category to select: internal, proxy, dns or external")
	flag.StringVar(&opts.configPath, "config", "", "YAML config file")
	flag.BoolVar(&opts.cache, "cache", false, "Keep ingested records in a snapshot beside the capture")
	flag.StringVar(&opts.out, "out", "", "Write a PNG image to this file")
	flag.StringVar(&opts.json, "json", "", "Write graph JSON to this file (- for stdout)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <capture.pcap|records.json|summary.json>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	if opts.selected, err = traffic.ParseCategory(selected); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, flag.Arg(0), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "trafficgraph:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, input string, opts options, stdout io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	l := &loader{
		ingester: capture.NewIngester(rules, capture.WithIngestLogger(logger)),
		cache:    opts.cache,
		logger:   logger,
	}
	records, err := l.load(ctx, input)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return capture.ErrNoConversations
	}

	vp := cfg.Canvas.Viewport
	builder := visualization.NewBuilder(
		visualization.WithMaxTargets(cfg.Canvas.MaxTargets),
		visualization.WithLogger(logger))
	g := builder.Build(records, vp.CanvasWidth(opts.width), vp.LayoutHeight(opts.height, opts.selected.Valid()))

	if opts.out == "" && opts.json == "" {
		return summarize(stdout, g)
	}
	if opts.json != "" {
		if err := writeJSON(opts.json, g, opts.selected); err != nil {
			return err
		}
	}
	if opts.out != "" {
		renderer := render.NewRenderer(render.WithLogger(logger))
		if err := writePNG(opts.out, renderer, g, opts.selected); err != nil {
			return err
		}
		logger.Info("image written", logging.Path(opts.out), logging.Dimensions(g.Width, g.Height))
	}
	return nil
}

func writeJSON(path string, g *visualization.Graph, selected traffic.Category) error {
	data, err := g.ExportJSON(selected)
	if err != nil {
		return err
	}
	w, err := openOutput(path)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func writePNG(path string, r *render.Renderer, g *visualization.Graph, selected traffic.Category) error {
	w, err := openOutput(path)
	if err != nil {
		return err
	}
	if err := r.EncodePNG(w, g, selected, render.DefaultPNGOptions(g)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// summarize prints one line per category block.
func summarize(w io.Writer, g *visualization.Graph) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "graph %.0fx%.0f, %d sources, %d links\n", g.Width, g.Height, len(g.Sources), len(g.Links))
	fmt.Fprintln(tw, "CATEGORY\tTARGETS\tEVICTED\tDROPPED LINKS")
	for _, b := range g.Blocks {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", b.Category, len(b.Targets), b.Evicted, g.Dropped[b.Category])
	}
	if g.Skipped > 0 {
		fmt.Fprintf(tw, "skipped %d records with unknown categories\n", g.Skipped)
	}
	return tw.Flush()
}
