package visualization

import (
	"math"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/typeface"
)

// Viewport turns a viewport size into drawing dimensions.
type Viewport struct {
	MaxWidth      float64 `yaml:"max_width" json:"max_width"`
	Padding       float64 `yaml:"padding" json:"padding"`
	DefaultHeight float64 `yaml:"default_height" json:"default_height"`
	HeaderOffset  float64 `yaml:"header_offset" json:"header_offset"`
}

// DefaultViewport returns the standard page geometry.
func DefaultViewport() Viewport {
	return Viewport{
		MaxWidth:      ReferenceWidth,
		Padding:       ViewportPadding,
		DefaultHeight: DefaultHeight,
		HeaderOffset:  HeaderOffset,
	}
}

// CanvasWidth derives the drawing width from the viewport width:
// min(viewport - padding, max width), never below 1.
func (v Viewport) CanvasWidth(viewportWidth float64) float64 {
	return math.Max(1, math.Min(viewportWidth-v.Padding, v.MaxWidth))
}

// LayoutHeight derives the drawing height from the viewport height. With a
// category selected, the graph gives up half its height to the detail table.
func (v Viewport) LayoutHeight(viewportHeight float64, selected bool) float64 {
	h := v.DefaultHeight
	if viewportHeight > 0 {
		h = math.Max(1, viewportHeight-v.HeaderOffset)
	}
	if selected {
		h /= 2
	}
	return h
}

// CanvasWidth applies DefaultViewport.
func CanvasWidth(viewportWidth float64) float64 {
	return DefaultViewport().CanvasWidth(viewportWidth)
}

// LayoutHeight applies DefaultViewport.
func LayoutHeight(viewportHeight float64, selected bool) float64 {
	return DefaultViewport().LayoutHeight(viewportHeight, selected)
}

// ScaleFactor relates a canvas width to the reference width.
func ScaleFactor(width float64) float64 {
	return width / ReferenceWidth
}

// anchorFor returns the fixed quadrant anchor of a category block. Only the
// horizontal offset follows the canvas width.
func anchorFor(c traffic.Category, width float64) Position {
	centerX := width / 2
	offset := BlockOffsetX * ScaleFactor(width)

	var p Position
	switch c {
	case traffic.Internal, traffic.Proxy:
		p.X = centerX - offset
	default:
		p.X = centerX + offset
	}
	switch c {
	case traffic.Internal, traffic.DNS:
		p.Y = UpperAnchorY
	default:
		p.Y = LowerAnchorY
	}
	return p
}

// layoutSources spreads sources evenly down the vertical centre line of the
// model space.
func layoutSources(sources []string, width float64, palette []string) []*SourceNode {
	nodes := make([]*SourceNode, len(sources))
	spacing := ModelHeight / float64(len(sources)+1)
	for i, ip := range sources {
		nodes[i] = &SourceNode{
			IP:    ip,
			Index: i,
			Color: palette[i%len(palette)],
			Pos:   Position{X: width / 2, Y: spacing * float64(i+1)},
		}
	}
	return nodes
}

// blockSize sizes a block from its longest painted label and its row count.
// An empty block gets the minimum size.
func blockSize(labels []string, m typeface.Measurer) (width, height float64, rows int) {
	maxText := 0.0
	for _, l := range labels {
		maxText = math.Max(maxText, m.MeasureText(l, LabelFontSize))
	}
	rows = (len(labels) + BlockColumns - 1) / BlockColumns
	width = math.Max(BlockMinWidth, maxText+BlockLabelPadding)
	height = math.Max(BlockMinHeight, float64(rows)*BlockRowHeight+BlockRowPadding)
	return width, height, rows
}

// layoutBlock places a category block, its retained targets on a two-column
// grid (row-major, highest packets first) and its more node.
func layoutBlock(c traffic.Category, top []traffic.TargetCount, width float64, m typeface.Measurer) *CategoryBlock {
	labels := make([]string, len(top))
	for i, tc := range top {
		labels[i] = TruncateLabel(tc.Target)
	}

	anchor := anchorFor(c, width)
	w, h, rows := blockSize(labels, m)
	left := anchor.X - w/2
	topY := anchor.Y - h/2

	block := &CategoryBlock{
		Category:     c,
		Anchor:       anchor,
		Width:        w,
		Height:       h,
		DefaultColor: c.DefaultColor(),
		BorderColor:  c.DefaultColor(),
		Targets:      make([]*TargetNode, len(top)),
	}

	for i, tc := range top {
		col := i % BlockColumns
		row := i / BlockColumns
		block.Targets[i] = &TargetNode{
			Category: c,
			Target:   tc.Target,
			Label:    labels[i],
			Packets:  tc.Packets,
			Rank:     i,
			Color:    ColorTarget,
			Pos: Position{
				X: left + BlockInset + float64(col)*(w/BlockColumns-BlockInset),
				Y: topY + BlockInset + float64(row)*BlockRowHeight,
			},
		}
	}

	block.More = &MoreNode{
		Category: c,
		Pos:      Position{X: anchor.X, Y: topY + float64(rows)*BlockRowHeight + MoreOffsetY},
	}
	return block
}
