// Package visualization turns classified traffic records into a pinned,
// deterministic node-link model: four category blocks, one node per source,
// the top targets of each category, and a "more" toggle per block.
package visualization

import (
	"math"

	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/typeface"
)

// Graph is the complete model for one (records, width, height) input.
// It is never updated in place; a change of input means a new Graph.
type Graph struct {
	Width       float64
	Height      float64
	ScaleFactor float64

	// Nodes are ordered: block and more node per category (fixed category
	// order), then sources, then targets.
	Nodes   []Node
	Links   []Link
	Sources []*SourceNode
	Blocks  []*CategoryBlock

	// Dropped counts, per category, source-target pairs whose target was
	// evicted from its block. They have no edge.
	Dropped map[traffic.Category]int
	// Skipped counts records with an unknown category.
	Skipped int

	index map[string]Node
}

// Node looks a node up by id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Block returns the block of a category. All four always exist.
func (g *Graph) Block(c traffic.Category) *CategoryBlock {
	if i := c.Index(); i >= 0 && i < len(g.Blocks) {
		return g.Blocks[i]
	}
	return nil
}

// DroppedLinks is the total of Dropped.
func (g *Graph) DroppedLinks() int {
	total := 0
	for _, n := range g.Dropped {
		total += n
	}
	return total
}

// Targets returns every target node in node order.
func (g *Graph) Targets() []*TargetNode {
	out := make([]*TargetNode, 0)
	for _, b := range g.Blocks {
		out = append(out, b.Targets...)
	}
	return out
}

// LinksFrom returns the links leaving a source.
func (g *Graph) LinksFrom(sourceIP string) []Link {
	out := make([]Link, 0)
	for _, l := range g.Links {
		if l.Source.IP == sourceIP {
			out = append(out, l)
		}
	}
	return out
}

// Builder builds graphs. The zero value is not usable; call NewBuilder.
type Builder struct {
	measurer   typeface.Measurer
	palette    []string
	maxTargets int
	logger     logging.Logger
	metrics    *metrics.Registry
}

// Option configures a Builder.
type Option func(*Builder)

// WithMeasurer sets the label measurer. It must be the typeface the
// renderer paints with.
func WithMeasurer(m typeface.Measurer) Option {
	return func(b *Builder) { b.measurer = m }
}

// WithPalette overrides the source palette.
func WithPalette(colors []string) Option {
	return func(b *Builder) {
		if len(colors) > 0 {
			b.palette = append([]string(nil), colors...)
		}
	}
}

// WithMaxTargets overrides the per-category target limit.
func WithMaxTargets(k int) Option {
	return func(b *Builder) {
		if k > 0 {
			b.maxTargets = k
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(b *Builder) { b.logger = logging.OrNop(l) }
}

func WithMetrics(r *metrics.Registry) Option {
	return func(b *Builder) { b.metrics = r }
}

// NewBuilder creates a builder measuring labels with the default typeface.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		palette:    SourcePalette,
		maxTargets: DefaultMaxTargets,
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.measurer == nil {
		b.measurer = typeface.MustDefault()
	}
	return b
}

var defaultBuilder = NewBuilder()

// Build is the package-level graph(records, width, height) entry point.
func Build(records []traffic.Record, width, height float64) *Graph {
	return defaultBuilder.Build(records, width, height)
}

// Build classifies the records, lays out every node and resolves links.
// Identical input yields an identical graph.
func (b *Builder) Build(records []traffic.Record, width, height float64) *Graph {
	timer := logging.StartTimer(b.logger, "graph built", logging.Component("visualization"))

	if !(width > 0) || math.IsInf(width, 0) {
		width = ReferenceWidth
	}
	if !(height > 0) || math.IsInf(height, 0) {
		height = DefaultHeight
	}

	cls := traffic.Classify(records)
	if cls.Skipped() > 0 {
		b.logger.Warn("records with unknown category skipped", logging.Int("skipped", cls.Skipped()))
	}

	g := &Graph{
		Width:       width,
		Height:      height,
		ScaleFactor: ScaleFactor(width),
		Skipped:     cls.Skipped(),
		Sources:     layoutSources(cls.Sources(), width, b.palette),
		Blocks:      make([]*CategoryBlock, len(traffic.Categories)),
	}

	blocks := make(map[traffic.Category]*CategoryBlock, len(traffic.Categories))
	for i, c := range traffic.Categories {
		top := cls.TopTargets(c, b.maxTargets)
		block := layoutBlock(c, top, width, b.measurer)
		block.Evicted = len(cls.FullTargets(c)) - len(top)
		block.BorderColor = resolveBorderColor(cls, c, g.Sources)
		blocks[c] = block
		g.Blocks[i] = block

		if block.Evicted > 0 {
			b.logger.Debug("targets evicted from block",
				logging.Category(string(c)), logging.Int("evicted", block.Evicted))
		}
		if b.metrics != nil {
			b.metrics.RecordTargetsEvicted(string(c), block.Evicted)
		}
	}

	g.Links, g.Dropped = resolveLinks(cls, g.Sources, blocks)

	for _, block := range g.Blocks {
		g.Nodes = append(g.Nodes, block, block.More)
	}
	for _, s := range g.Sources {
		g.Nodes = append(g.Nodes, s)
	}
	for _, block := range g.Blocks {
		for _, t := range block.Targets {
			g.Nodes = append(g.Nodes, t)
		}
	}

	g.index = make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		g.index[n.ID()] = n
	}

	elapsed := timer.End(logging.Records(cls.Records()), logging.Nodes(len(g.Nodes)), logging.Links(len(g.Links)))
	if b.metrics != nil {
		b.metrics.RecordGraphBuild(elapsed, len(g.Nodes), len(g.Links))
	}
	return g
}
