// Package interaction owns the mutable state around an otherwise pure
// traffic graph: which category is selected, the viewport size, and the
// graph built from them.
package interaction

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
	"github.com/dd0wney/cluso-trafficgraph/pkg/render"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// Relayout reasons.
const (
	ReasonInit      = "init"
	ReasonResize    = "resize"
	ReasonSelection = "selection"
	ReasonRecords   = "records"
)

// Controller routes clicks and resizes to graph rebuilds. It is safe for
// concurrent use; debounced resizes arrive on a timer goroutine.
type Controller struct {
	builder   *visualization.Builder
	renderer  *render.Renderer
	viewport  visualization.Viewport
	debouncer *Debouncer
	logger    logging.Logger
	metrics   *metrics.Registry

	mu          sync.Mutex
	records     []traffic.Record
	viewportW   float64
	viewportH   float64
	selected    traffic.Category
	graph       *visualization.Graph
	seq         uint64
	hitmap      *render.HitMap
	subscribers []func(Relayout)

	// notifyMu orders deliveries; notified is the last sequence delivered.
	notifyMu sync.Mutex
	notified uint64
}

// Relayout is one rebuilt graph. Seq increases with every rebuild of a
// controller, so a receiver can tell a late delivery from a newer one.
type Relayout struct {
	Seq    uint64
	Reason string
	Graph  *visualization.Graph
}

// Option configures a Controller.
type Option func(*Controller)

func WithBuilder(b *visualization.Builder) Option {
	return func(c *Controller) { c.builder = b }
}

func WithRenderer(r *render.Renderer) Option {
	return func(c *Controller) { c.renderer = r }
}

// WithViewport sets the page geometry used to size the graph.
func WithViewport(v visualization.Viewport) Option {
	return func(c *Controller) { c.viewport = v }
}

// WithDebounce sets the resize quiet period.
func WithDebounce(window time.Duration) Option {
	return func(c *Controller) { c.debouncer = NewDebouncer(window) }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController builds the initial graph for the records and viewport.
func NewController(records []traffic.Record, viewportW, viewportH float64, opts ...Option) *Controller {
	c := &Controller{
		records:   records,
		viewportW: viewportW,
		viewportH: viewportH,
		selected:  traffic.None,
		viewport:  visualization.DefaultViewport(),
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.builder == nil {
		c.builder = visualization.NewBuilder(visualization.WithLogger(c.logger), visualization.WithMetrics(c.metrics))
	}
	if c.renderer == nil {
		c.renderer = render.NewRenderer(render.WithLogger(c.logger), render.WithMetrics(c.metrics))
	}
	if c.debouncer == nil {
		c.debouncer = NewDebouncer(DefaultDebounceWindow)
	}

	c.mu.Lock()
	c.rebuildLocked(ReasonInit)
	c.mu.Unlock()
	return c
}

// Graph returns the current graph.
func (c *Controller) Graph() *visualization.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph
}

// Selected returns the selected category, or traffic.None.
func (c *Controller) Selected() traffic.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Viewport returns the last applied viewport size.
func (c *Controller) Viewport() (width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewportW, c.viewportH
}

// Records returns the records the graph is built from.
func (c *Controller) Records() []traffic.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records
}

// Current returns the current graph with its sequence number.
func (c *Controller) Current() Relayout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Relayout{Seq: c.seq, Graph: c.graph}
}

// OnRelayout registers fn to run after rebuilds, outside the state lock.
// Deliveries never go backwards: a rebuild overtaken by a newer one before
// it could be delivered is skipped. fn must not call methods that rebuild.
func (c *Controller) OnRelayout(fn func(Relayout)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// OnNodeClick applies a click on node and returns the selection after it.
// Clicking a more node selects its category, or clears the selection if
// that category was already selected. Other nodes change nothing.
func (c *Controller) OnNodeClick(node visualization.Node) traffic.Category {
	more, ok := node.(*visualization.MoreNode)
	if !ok {
		return c.Selected()
	}

	c.mu.Lock()
	if c.selected == more.Category {
		c.selected = traffic.None
	} else {
		c.selected = more.Category
	}
	selected := c.selected
	c.logger.Info("selection changed", logging.Category(selected.String()))
	if c.metrics != nil {
		c.metrics.RecordSelection(string(selected))
	}
	r, subs := c.rebuildLocked(ReasonSelection), c.subscribersLocked()
	c.mu.Unlock()

	c.publish(subs, r)
	return selected
}

// Toggle clicks the more node of a category.
func (c *Controller) Toggle(category traffic.Category) traffic.Category {
	g := c.Graph()
	block := g.Block(category)
	if block == nil {
		return c.Selected()
	}
	return c.OnNodeClick(block.More)
}

// Click resolves a pixel on the graph's own surface (graph width x height)
// to a node and applies the click. The node is nil when nothing is hit.
func (c *Controller) Click(x, y float64) (visualization.Node, traffic.Category, error) {
	c.mu.Lock()
	hm, err := c.hitmapLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, c.Selected(), err
	}

	node, ok := hm.At(int(math.Floor(x)), int(math.Floor(y)))
	if !ok {
		return nil, c.Selected(), nil
	}
	return node, c.OnNodeClick(node), nil
}

// Resize records a new viewport size. Only the last size of a burst is
// applied, one debounce window after it arrives.
func (c *Controller) Resize(width, height float64) {
	dropped := c.debouncer.Trigger(func() { c.applyResize(width, height) })
	if dropped && c.metrics != nil {
		c.metrics.RecordResizeCoalesced()
	}
}

// FlushResize applies a waiting resize immediately.
func (c *Controller) FlushResize() {
	c.debouncer.Flush()
}

// SetRecords replaces the records and rebuilds.
func (c *Controller) SetRecords(records []traffic.Record) {
	c.mu.Lock()
	c.records = records
	r, subs := c.rebuildLocked(ReasonRecords), c.subscribersLocked()
	c.mu.Unlock()

	c.publish(subs, r)
}

// Close drops any waiting resize.
func (c *Controller) Close() {
	c.debouncer.Stop()
}

func (c *Controller) applyResize(width, height float64) {
	c.mu.Lock()
	c.viewportW, c.viewportH = width, height
	r, subs := c.rebuildLocked(ReasonResize), c.subscribersLocked()
	c.mu.Unlock()

	c.publish(subs, r)
}

func (c *Controller) rebuildLocked(reason string) Relayout {
	width := c.viewport.CanvasWidth(c.viewportW)
	height := c.viewport.LayoutHeight(c.viewportH, c.selected.Valid())
	c.graph = c.builder.Build(c.records, width, height)
	c.seq++
	c.hitmap = nil

	c.logger.Debug("relayout",
		logging.String("reason", reason),
		logging.Dimensions(width, height),
		logging.Category(c.selected.String()))
	if c.metrics != nil {
		c.metrics.RecordRelayout(reason)
	}
	return Relayout{Seq: c.seq, Reason: reason, Graph: c.graph}
}

func (c *Controller) hitmapLocked() (*render.HitMap, error) {
	if c.hitmap != nil {
		return c.hitmap, nil
	}
	opts := render.DefaultPNGOptions(c.graph)
	hm, err := c.renderer.HitMap(c.graph, opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	c.hitmap = hm
	return hm, nil
}

func (c *Controller) subscribersLocked() []func(Relayout) {
	return slices.Clone(c.subscribers)
}

// publish delivers r unless a newer rebuild was delivered first.
func (c *Controller) publish(subs []func(Relayout), r Relayout) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if r.Seq <= c.notified {
		c.logger.Debug("stale relayout skipped", logging.String("reason", r.Reason))
		return
	}
	c.notified = r.Seq
	for _, fn := range subs {
		fn(r)
	}
}
