package render

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"time"

	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/typeface"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// DefaultBackground is the page color behind the graph.
const DefaultBackground = "#FFFFFF"

// Renderer paints whole graphs onto raster surfaces, fitting the graph
// bounds into the surface.
type Renderer struct {
	tf         *typeface.Typeface
	background string
	logger     logging.Logger
	metrics    *metrics.Registry
}

// Option configures a Renderer.
type Option func(*Renderer)

func WithFont(tf *typeface.Typeface) Option {
	return func(r *Renderer) { r.tf = tf }
}

func WithBackground(hex string) Option {
	return func(r *Renderer) { r.background = hex }
}

func WithLogger(l logging.Logger) Option {
	return func(r *Renderer) { r.logger = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(r *Renderer) { r.metrics = m }
}

// NewRenderer creates a renderer using the default typeface.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		background: DefaultBackground,
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tf == nil {
		r.tf = typeface.MustDefault()
	}
	return r
}

// Paint draws every link, then every node, onto ctx. The graph is only
// read.
func Paint(g *visualization.Graph, ctx Canvas, selected traffic.Category) error {
	if ctx == nil {
		return ErrNoDrawingSurface
	}
	if g == nil {
		return errors.New("render: nil graph")
	}
	for _, l := range g.Links {
		if err := DrawLink(l, ctx, g.ScaleFactor); err != nil {
			return err
		}
	}
	for _, n := range g.Nodes {
		if err := DrawNode(n, ctx, g.ScaleFactor, selected); err != nil {
			return err
		}
	}
	return nil
}

// Render paints g onto a new width x height image.
func (r *Renderer) Render(g *visualization.Graph, width, height int, selected traffic.Category) (*image.RGBA, error) {
	start := time.Now()
	img, err := r.render(g, width, height, selected)
	r.observe("visual", start, err)
	return img, err
}

func (r *Renderer) render(g *visualization.Graph, width, height int, selected traffic.Category) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrNoDrawingSurface
	}
	if g == nil {
		return nil, errors.New("render: nil graph")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	canvas, err := NewRasterCanvas(img,
		WithTypeface(r.tf),
		WithTransform(g.Fit(float64(width), float64(height))))
	if err != nil {
		return nil, err
	}
	canvas.Clear(r.background)

	if err := Paint(g, canvas, selected); err != nil {
		return nil, err
	}
	return img, nil
}

// HitMap paints the pointer areas of g onto a width x height surface, with
// the same fit transform Render uses.
func (r *Renderer) HitMap(g *visualization.Graph, width, height int) (*HitMap, error) {
	start := time.Now()
	hm, err := newHitMap(g, width, height)
	r.observe("hitmap", start, err)
	return hm, err
}

func (r *Renderer) observe(pass string, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		r.logger.Error("render failed", logging.String("pass", pass), logging.Error(err))
	} else {
		r.logger.Debug("rendered", logging.String("pass", pass), logging.Latency(elapsed))
	}
	if r.metrics != nil {
		r.metrics.RecordRender(pass, elapsed, err)
	}
}

// PNGOptions configures PNG output.
type PNGOptions struct {
	Width  int
	Height int
}

// DefaultPNGOptions sizes the image to the graph's own canvas.
func DefaultPNGOptions(g *visualization.Graph) PNGOptions {
	if g == nil {
		return PNGOptions{}
	}
	return PNGOptions{
		Width:  int(math.Ceil(g.Width)),
		Height: int(math.Ceil(g.Height)),
	}
}

// EncodePNG renders g and writes it as PNG.
func (r *Renderer) EncodePNG(w io.Writer, g *visualization.Graph, selected traffic.Category, opts PNGOptions) error {
	img, err := r.Render(g, opts.Width, opts.Height, selected)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

var defaultRenderer = NewRenderer()

// EncodePNG renders g with the default renderer.
func EncodePNG(w io.Writer, g *visualization.Graph, selected traffic.Category, opts PNGOptions) error {
	return defaultRenderer.EncodePNG(w, g, selected, opts)
}
