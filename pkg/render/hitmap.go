package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// hitBackground decodes to "no node".
const hitBackground = "#000000"

// HitMap resolves surface pixels to nodes. Each node's pointer area is
// painted, without anti-aliasing, in a color encoding its index.
type HitMap struct {
	img       *image.RGBA
	nodes     []visualization.Node
	transform visualization.Transform
}

func newHitMap(g *visualization.Graph, width, height int) (*HitMap, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrNoDrawingSurface
	}
	if g == nil {
		return nil, errors.New("render: nil graph")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	transform := g.Fit(float64(width), float64(height))
	canvas, err := NewRasterCanvas(img, WithTransform(transform), Aliased())
	if err != nil {
		return nil, err
	}
	canvas.Clear(hitBackground)

	// Later nodes win: targets and more nodes sit on top of their block.
	for i, n := range g.Nodes {
		if err := DrawPointerArea(n, indexColor(i), canvas, g.ScaleFactor); err != nil {
			return nil, err
		}
	}
	return &HitMap{img: img, nodes: g.Nodes, transform: transform}, nil
}

// At returns the node under surface pixel (x, y).
func (h *HitMap) At(x, y int) (visualization.Node, bool) {
	if !image.Pt(x, y).In(h.img.Bounds()) {
		return nil, false
	}
	c := h.img.RGBAAt(x, y)
	i := int(c.R)<<16 | int(c.G)<<8 | int(c.B)
	if i == 0 || i > len(h.nodes) {
		return nil, false
	}
	return h.nodes[i-1], true
}

// Transform maps graph coordinates to surface pixels.
func (h *HitMap) Transform() visualization.Transform { return h.transform }

// Image exposes the encoded surface, mainly for debugging.
func (h *HitMap) Image() *image.RGBA { return h.img }

// indexColor encodes node index i as a color; 0 is reserved for the
// background.
func indexColor(i int) string {
	return fmt.Sprintf("#%06X", (i+1)&0xFFFFFF)
}
