package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/detail"
	"github.com/dd0wney/cluso-trafficgraph/pkg/interaction"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
	"github.com/dd0wney/cluso-trafficgraph/pkg/render"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// ErrPcapNotFound is returned for an unknown capture ID.
var ErrPcapNotFound = errors.New("pcap not found")

// Service builds graphs, images and tables for catalog captures. Every
// request builds from scratch; graphs are cheap and the catalog is the
// only shared state.
type Service struct {
	catalog  *capture.Catalog
	builder  *visualization.Builder
	renderer *render.Renderer
	viewport visualization.Viewport
	logger   logging.Logger
	metrics  *metrics.Registry
}

// NewService wires a service over catalog.
func NewService(catalog *capture.Catalog, builder *visualization.Builder, renderer *render.Renderer, viewport visualization.Viewport, logger logging.Logger, m *metrics.Registry) *Service {
	return &Service{
		catalog:  catalog,
		builder:  builder,
		renderer: renderer,
		viewport: viewport,
		logger:   logging.OrNop(logger),
		metrics:  m,
	}
}

// Captures lists the catalog with tab labels.
func (s *Service) Captures() []capture.Entry {
	return s.catalog.List()
}

// Records returns the conversations of a capture.
func (s *Service) Records(id string) ([]traffic.Record, error) {
	p, ok := s.catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPcapNotFound, id)
	}
	return p.IPConversations()
}

// Graph builds the graph of a capture for a viewport size. The selection
// halves the height the same way the interactive view does.
func (s *Service) Graph(ctx context.Context, id string, width, height float64, selected traffic.Category) (*visualization.Graph, error) {
	records, err := s.Records(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.BuildRecords(records, width, height, selected), nil
}

// BuildRecords builds a graph over inline records.
func (s *Service) BuildRecords(records []traffic.Record, width, height float64, selected traffic.Category) *visualization.Graph {
	return s.builder.Build(records,
		s.viewport.CanvasWidth(width),
		s.viewport.LayoutHeight(height, selected.Valid()))
}

// Table runs a detail-table query over one category of a capture.
func (s *Service) Table(ctx context.Context, id string, category traffic.Category, q detail.Query) (detail.Result, error) {
	if !category.Valid() {
		return detail.Result{}, fmt.Errorf("%w: %q", traffic.ErrUnknownCategory, category)
	}
	records, err := s.Records(id)
	if err != nil {
		return detail.Result{}, err
	}
	return detail.New(records, category).Run(q)
}

// Hit resolves a click at (x, y) on the graph surface of a capture, with
// selected as the selection before the click. It returns the node under
// the point, if any, and the selection after the click.
func (s *Service) Hit(ctx context.Context, id string, width, height float64, selected traffic.Category, x, y float64) (visualization.Node, traffic.Category, error) {
	records, err := s.Records(id)
	if err != nil {
		return nil, traffic.None, err
	}

	c := interaction.NewController(records, width, height,
		interaction.WithBuilder(s.builder),
		interaction.WithRenderer(s.renderer),
		interaction.WithViewport(s.viewport),
		interaction.WithLogger(s.logger))
	defer c.Close()

	if selected.Valid() {
		c.Toggle(selected)
	}
	if err := ctx.Err(); err != nil {
		return nil, traffic.None, err
	}
	return c.Click(x, y)
}

// Renderer returns the renderer used for images.
func (s *Service) Renderer() *render.Renderer {
	return s.renderer
}
