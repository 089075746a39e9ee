package render

import (
	"fmt"
	"math"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/typeface"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// Block captions.
const (
	ExpandText   = "expand"
	CollapseText = "collapse"
)

// Text offsets from a node, in pixels at the reference width.
const (
	blockBorderWidth = 2.0
	blockTitleGap    = 10.0
	blockToggleInset = 15.0
	sourceLabelDX    = 25.0
	sourceLabelDY    = 4.0
	targetLabelDX    = 10.0
	targetLabelDY    = 3.0
)

// Draw paints one graph element. element must be a visualization.Node or a
// visualization.Link.
func Draw(element any, ctx Canvas, scale float64, selected traffic.Category) error {
	switch e := element.(type) {
	case visualization.Link:
		return DrawLink(e, ctx, scale)
	case *visualization.Link:
		if e == nil {
			return fmt.Errorf("render: nil link")
		}
		return DrawLink(*e, ctx, scale)
	case visualization.Node:
		return DrawNode(e, ctx, scale, selected)
	default:
		return fmt.Errorf("render: cannot draw %T", element)
	}
}

// DrawNode paints a node's visual representation.
func DrawNode(node visualization.Node, ctx Canvas, scale float64, selected traffic.Category) error {
	if ctx == nil {
		return ErrNoDrawingSurface
	}

	switch n := node.(type) {
	case *visualization.CategoryBlock:
		r := n.Rect()
		ctx.SetStrokeColor(n.BorderColor)
		ctx.SetLineWidth(blockBorderWidth)
		ctx.StrokeRect(r.MinX, r.MinY, r.Width(), r.Height())

		ctx.SetFillColor(visualization.ColorText)
		ctx.SetFontSize(typeface.SizeLarge)
		ctx.SetTextAlign(AlignCenter)
		ctx.FillText(string(n.Category), n.Anchor.X, r.MinY-blockTitleGap)

		caption := ExpandText
		if n.Category == selected {
			caption = CollapseText
		}
		ctx.SetFillColor(visualization.ColorMoreText)
		ctx.SetFontSize(typeface.SizeSmall)
		ctx.FillText(caption, n.Anchor.X, r.MaxY-blockToggleInset)

	case *visualization.SourceNode:
		ctx.SetFillColor(n.Color)
		ctx.FillCircle(n.Pos.X, n.Pos.Y, visualization.SourceRadius*scale)
		ctx.SetFillColor(visualization.ColorText)
		ctx.SetFontSize(typeface.SizeSmall * scale)
		ctx.SetTextAlign(AlignLeft)
		ctx.FillText(n.IP, n.Pos.X+sourceLabelDX*scale, n.Pos.Y+sourceLabelDY*scale)

	case *visualization.TargetNode:
		ctx.SetFillColor(n.Color)
		ctx.FillCircle(n.Pos.X, n.Pos.Y, visualization.TargetRadius*scale)
		ctx.SetFillColor(visualization.ColorText)
		ctx.SetFontSize(typeface.SizeSmall * scale)
		ctx.SetTextAlign(AlignLeft)
		ctx.FillText(n.Label, n.Pos.X+targetLabelDX*scale, n.Pos.Y+targetLabelDY*scale)

	case *visualization.MoreNode:
		// The block paints the caption; the more node is only a click area.

	default:
		return fmt.Errorf("render: unknown node type %T", node)
	}
	return nil
}

// DrawLink paints an edge. A category link stops at the nearest vertical
// edge of its block, level with the source where the block spans it.
func DrawLink(link visualization.Link, ctx Canvas, scale float64) error {
	if ctx == nil {
		return ErrNoDrawingSurface
	}
	if link.Source == nil || link.Target == nil {
		return fmt.Errorf("render: link %v has a missing endpoint", link.Kind)
	}

	ctx.SetStrokeColor(link.Color)
	ctx.SetLineWidth(scale)

	from := link.Source.Pos
	to := link.Target.Position()
	if block, ok := link.Target.(*visualization.CategoryBlock); ok && link.Kind == visualization.CategoryLink {
		to = CategoryLinkEnd(from, block)
	}
	ctx.Line(from.X, from.Y, to.X, to.Y)
	return nil
}

// CategoryLinkEnd is where a category link from p meets block.
func CategoryLinkEnd(p visualization.Position, block *visualization.CategoryBlock) visualization.Position {
	r := block.Rect()
	end := visualization.Position{X: r.MaxX, Y: math.Max(r.MinY, math.Min(r.MaxY, p.Y))}
	if p.X < block.Anchor.X {
		end.X = r.MinX
	}
	return end
}

// DrawPointerArea paints the clickable footprint of a node in a solid
// color. It shares nothing with the visual paint.
func DrawPointerArea(node visualization.Node, color string, ctx Canvas, scale float64) error {
	if ctx == nil {
		return ErrNoDrawingSurface
	}
	ctx.SetFillColor(color)

	switch n := node.(type) {
	case *visualization.CategoryBlock:
		r := n.Rect()
		ctx.FillRect(r.MinX, r.MinY, r.Width(), r.Height())
	case *visualization.SourceNode:
		ctx.FillCircle(n.Pos.X, n.Pos.Y, visualization.SourceRadius*scale)
	case *visualization.TargetNode:
		ctx.FillCircle(n.Pos.X, n.Pos.Y, visualization.TargetRadius*scale)
	case *visualization.MoreNode:
		w := visualization.MoreWidth * scale
		h := visualization.MoreHeight * scale
		ctx.FillRect(n.Pos.X-w/2, n.Pos.Y-h/2, w, h)
	default:
		return fmt.Errorf("render: unknown node type %T", node)
	}
	return nil
}
