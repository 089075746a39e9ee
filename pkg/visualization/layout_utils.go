package visualization

import "math"

// FitPadding is the margin kept around the graph when fitting it into a
// surface.
const FitPadding = 40.0

// Bounds returns the extent of everything painted: block outlines, node
// circles and more boxes.
func (g *Graph) Bounds() Rect {
	if len(g.Nodes) == 0 {
		return Rect{}
	}

	bounds := Rect{MinX: math.MaxFloat64, MinY: math.MaxFloat64, MaxX: -math.MaxFloat64, MaxY: -math.MaxFloat64}
	for _, n := range g.Nodes {
		bounds = bounds.Union(NodeRect(n, g.ScaleFactor))
	}
	return bounds
}

// NodeRect is the painted footprint of a node at a scale factor. Block
// outlines do not scale.
func NodeRect(n Node, scale float64) Rect {
	switch n := n.(type) {
	case *CategoryBlock:
		return n.Rect()
	case *SourceNode:
		return RectAround(n.Pos, 2*SourceRadius*scale, 2*SourceRadius*scale)
	case *TargetNode:
		return RectAround(n.Pos, 2*TargetRadius*scale, 2*TargetRadius*scale)
	case *MoreNode:
		return RectAround(n.Pos, MoreWidth*scale, MoreHeight*scale)
	}
	return Rect{}
}

// NodeContains reports whether p falls inside the painted footprint of n.
// Sources and targets are circles.
func NodeContains(n Node, scale float64, p Position) bool {
	var r float64
	switch n.(type) {
	case *SourceNode:
		r = SourceRadius * scale
	case *TargetNode:
		r = TargetRadius * scale
	default:
		return NodeRect(n, scale).Contains(p)
	}
	c := n.Position()
	dx, dy := p.X-c.X, p.Y-c.Y
	return dx*dx+dy*dy <= r*r
}

// Transform maps graph coordinates onto a surface: screen = graph*Scale + Offset.
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Identity leaves coordinates unchanged.
var Identity = Transform{Scale: 1}

// Apply maps a graph position to the surface.
func (t Transform) Apply(p Position) Position {
	return Position{X: p.X*t.Scale + t.OffsetX, Y: p.Y*t.Scale + t.OffsetY}
}

// Invert maps a surface position back to graph coordinates.
func (t Transform) Invert(p Position) Position {
	if t.Scale == 0 {
		return p
	}
	return Position{X: (p.X - t.OffsetX) / t.Scale, Y: (p.Y - t.OffsetY) / t.Scale}
}

// FitTransform scales bounds uniformly into a width x height surface with
// padding on every side, centring the result.
func FitTransform(bounds Rect, width, height, padding float64) Transform {
	rangeX := bounds.Width()
	rangeY := bounds.Height()
	if rangeX < 0.01 {
		rangeX = 1
	}
	if rangeY < 0.01 {
		rangeY = 1
	}

	targetWidth := math.Max(1, width-2*padding)
	targetHeight := math.Max(1, height-2*padding)
	scale := math.Min(targetWidth/rangeX, targetHeight/rangeY)

	return Transform{
		Scale:   scale,
		OffsetX: padding + (targetWidth-rangeX*scale)/2 - bounds.MinX*scale,
		OffsetY: padding + (targetHeight-rangeY*scale)/2 - bounds.MinY*scale,
	}
}

// Fit returns the transform that fits the graph into a surface of the
// given size.
func (g *Graph) Fit(width, height float64) Transform {
	return FitTransform(g.Bounds(), width, height, FitPadding)
}
