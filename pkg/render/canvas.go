// Package render paints traffic graphs. Paint routines work against the
// Canvas abstraction in graph coordinates and never modify the graph.
package render

import (
	"errors"
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrNoDrawingSurface is returned when no surface can be acquired to paint
// on: a nil canvas, a nil image or a non-positive size.
var ErrNoDrawingSurface = errors.New("render: no drawing surface")

// TextAlign positions text horizontally relative to its anchor point.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// Canvas is a 2D drawing context. Coordinates are graph coordinates; the
// implementation maps them onto its surface. Text is drawn with y on the
// baseline.
type Canvas interface {
	SetFillColor(hex string)
	SetStrokeColor(hex string)
	SetLineWidth(width float64)
	SetFontSize(size float64)
	SetTextAlign(align TextAlign)

	FillRect(x, y, width, height float64)
	StrokeRect(x, y, width, height float64)
	FillCircle(cx, cy, radius float64)
	Line(x1, y1, x2, y2 float64)
	FillText(text string, x, y float64)
}

// ParseColor converts "#RRGGBB" to an opaque RGBA color.
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// mustColor parses a color, falling back to black.
func mustColor(hex string) color.RGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	return c
}
