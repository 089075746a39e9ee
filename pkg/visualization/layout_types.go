package visualization

import "math"

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box in model coordinates.
type Rect struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// RectAround returns the box of the given size centred on p.
func RectAround(p Position, width, height float64) Rect {
	return Rect{
		MinX: p.X - width/2,
		MinY: p.Y - height/2,
		MaxX: p.X + width/2,
		MaxY: p.Y + height/2,
	}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Position) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Union returns the smallest box containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// Canvas and layout constants. Lengths are pixels at ReferenceWidth and are
// multiplied by the scale factor where noted.
const (
	// ReferenceWidth is both the canvas width cap and the width at which
	// the scale factor is 1.
	ReferenceWidth = 1920.0
	// ViewportPadding is subtracted from the viewport width (container padding).
	ViewportPadding = 64.0
	// DefaultHeight is used when the viewport height is unknown.
	DefaultHeight = 450.0
	// HeaderOffset is the vertical space taken by page chrome above the graph.
	HeaderOffset = 120.0

	// BlockOffsetX is the horizontal distance from the centre line to a
	// block anchor, scaled.
	BlockOffsetX = 600.0
	// ModelHeight is the fixed vertical extent of the layout. The surface
	// height is absorbed when the graph is fitted, not by moving nodes.
	ModelHeight = 450.0
	// Block anchors are pinned at these model heights.
	UpperAnchorY = 150.0
	LowerAnchorY = 350.0

	BlockMinWidth      = 240.0
	BlockMinHeight     = 70.0
	BlockLabelPadding  = 40.0
	BlockRowHeight     = 20.0
	BlockRowPadding    = 30.0
	BlockColumns       = 2
	BlockInset         = 10.0
	MoreOffsetY        = 15.0
	MoreWidth          = 60.0
	MoreHeight         = 20.0
	SourceRadius       = 20.0
	TargetRadius       = 5.0
	DefaultMaxTargets  = 10
	LabelLimit         = 15
	LabelEllipsis      = "..."
	LabelFontSize      = 12.0 // target labels, measured at this size unscaled
	BlockTitleFontSize = 14.0
)

// Colors that are not tied to a category.
const (
	ColorTarget   = "#737373"
	ColorMoreText = "#0071B2"
	ColorText     = "#000000"
)

// SourcePalette is cycled through in source first-appearance order.
var SourcePalette = []string{"#FFD83D", "#0071B2", "#24A148", "#FF9D2B"}
