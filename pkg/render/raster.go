package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/dd0wney/cluso-trafficgraph/pkg/typeface"
	"github.com/dd0wney/cluso-trafficgraph/pkg/visualization"
)

// circleSegments is the polygon resolution used for circles.
const circleSegments = 48

// RasterCanvas paints onto an image.RGBA. Shapes go through an
// anti-aliasing rasterizer unless the canvas is aliased, in which case
// every pixel gets exactly the fill color (needed by the hit map).
type RasterCanvas struct {
	img       *image.RGBA
	tf        *typeface.Typeface
	transform visualization.Transform
	aliased   bool

	fill      color.RGBA
	stroke    color.RGBA
	lineWidth float64
	fontSize  float64
	align     TextAlign

	faces map[float64]font.Face
	z     *vector.Rasterizer
}

// CanvasOption configures a RasterCanvas.
type CanvasOption func(*RasterCanvas)

// WithTransform maps graph coordinates onto the image.
func WithTransform(t visualization.Transform) CanvasOption {
	return func(c *RasterCanvas) { c.transform = t }
}

// WithTypeface sets the face used for text. It should be the one the layout
// measured labels with.
func WithTypeface(tf *typeface.Typeface) CanvasOption {
	return func(c *RasterCanvas) { c.tf = tf }
}

// Aliased disables anti-aliasing.
func Aliased() CanvasOption {
	return func(c *RasterCanvas) { c.aliased = true }
}

// NewRasterCanvas wraps img. It fails with ErrNoDrawingSurface when img is
// nil or empty.
func NewRasterCanvas(img *image.RGBA, opts ...CanvasOption) (*RasterCanvas, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoDrawingSurface
	}
	c := &RasterCanvas{
		img:       img,
		transform: visualization.Identity,
		fill:      color.RGBA{A: 0xff},
		stroke:    color.RGBA{A: 0xff},
		lineWidth: 1,
		fontSize:  typeface.SizeSmall,
		faces:     make(map[float64]font.Face),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tf == nil {
		c.tf = typeface.MustDefault()
	}
	return c, nil
}

// Image returns the surface.
func (c *RasterCanvas) Image() *image.RGBA { return c.img }

// Clear fills the whole surface, ignoring the transform.
func (c *RasterCanvas) Clear(hex string) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(mustColor(hex)), image.Point{}, draw.Src)
}

func (c *RasterCanvas) SetFillColor(hex string)      { c.fill = mustColor(hex) }
func (c *RasterCanvas) SetStrokeColor(hex string)    { c.stroke = mustColor(hex) }
func (c *RasterCanvas) SetLineWidth(width float64)   { c.lineWidth = width }
func (c *RasterCanvas) SetFontSize(size float64)     { c.fontSize = size }
func (c *RasterCanvas) SetTextAlign(align TextAlign) { c.align = align }

func (c *RasterCanvas) FillRect(x, y, width, height float64) {
	c.fillDevicePolygon(c.fill, c.rectPoints(x, y, width, height))
}

// StrokeRect strokes the outline centred on the rectangle edges.
func (c *RasterCanvas) StrokeRect(x, y, width, height float64) {
	h := c.lineWidth / 2
	edges := [][4]float64{
		{x - h, y - h, width + 2*h, 2 * h},
		{x - h, y + height - h, width + 2*h, 2 * h},
		{x - h, y + h, 2 * h, height - 2*h},
		{x + width - h, y + h, 2 * h, height - 2*h},
	}
	for _, e := range edges {
		if e[2] > 0 && e[3] > 0 {
			c.fillDevicePolygon(c.stroke, c.rectPoints(e[0], e[1], e[2], e[3]))
		}
	}
}

func (c *RasterCanvas) FillCircle(cx, cy, radius float64) {
	if radius <= 0 {
		return
	}
	center := c.transform.Apply(visualization.Position{X: cx, Y: cy})
	r := radius * c.transform.Scale

	if c.aliased {
		c.fillCircleAliased(center, r)
		return
	}

	pts := make([]visualization.Position, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = visualization.Position{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)}
	}
	c.fillDevicePolygon(c.fill, pts)
}

// Line strokes a straight segment with the current line width.
func (c *RasterCanvas) Line(x1, y1, x2, y2 float64) {
	a := c.transform.Apply(visualization.Position{X: x1, Y: y1})
	b := c.transform.Apply(visualization.Position{X: x2, Y: y2})
	half := math.Max(c.lineWidth*c.transform.Scale, 0.5) / 2

	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		return
	}
	px, py := -dy/length*half, dx/length*half

	c.fillDevicePolygon(c.stroke, []visualization.Position{
		{X: a.X + px, Y: a.Y + py},
		{X: b.X + px, Y: b.Y + py},
		{X: b.X - px, Y: b.Y - py},
		{X: a.X - px, Y: a.Y - py},
	})
}

// FillText draws text with its baseline at y, aligned on x.
func (c *RasterCanvas) FillText(text string, x, y float64) {
	if text == "" {
		return
	}
	face := c.face(c.fontSize * c.transform.Scale)
	if face == nil {
		return
	}

	p := c.transform.Apply(visualization.Position{X: x, Y: y})
	width := typeface.FixedToFloat(font.MeasureString(face, text))
	switch c.align {
	case AlignCenter:
		p.X -= width / 2
	case AlignRight:
		p.X -= width
	}

	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(c.fill),
		Face: face,
		Dot:  fixed.Point26_6{X: typeface.FloatToFixed(p.X), Y: typeface.FloatToFixed(p.Y)},
	}
	d.DrawString(text)
}

func (c *RasterCanvas) face(size float64) font.Face {
	if size <= 0 {
		return nil
	}
	if f, ok := c.faces[size]; ok {
		return f
	}
	f, err := c.tf.NewFace(size)
	if err != nil {
		return nil
	}
	c.faces[size] = f
	return f
}

func (c *RasterCanvas) rectPoints(x, y, width, height float64) []visualization.Position {
	t := c.transform
	return []visualization.Position{
		t.Apply(visualization.Position{X: x, Y: y}),
		t.Apply(visualization.Position{X: x + width, Y: y}),
		t.Apply(visualization.Position{X: x + width, Y: y + height}),
		t.Apply(visualization.Position{X: x, Y: y + height}),
	}
}

// fillDevicePolygon fills a convex polygon given in image coordinates.
func (c *RasterCanvas) fillDevicePolygon(col color.RGBA, pts []visualization.Position) {
	if len(pts) < 3 {
		return
	}
	if c.aliased {
		c.fillConvexAliased(col, pts)
		return
	}

	minX, minY, maxX, maxY := polygonBounds(pts)
	b := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
	clip := b.Intersect(c.img.Bounds())
	if clip.Empty() {
		return
	}

	// The rasterizer covers only the visible part of the polygon's box and
	// its origin is clip.Min; it clamps coverage outside its bounds.
	if c.z == nil {
		c.z = vector.NewRasterizer(clip.Dx(), clip.Dy())
	} else {
		c.z.Reset(clip.Dx(), clip.Dy())
	}
	ox, oy := float64(clip.Min.X), float64(clip.Min.Y)
	c.z.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		c.z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	c.z.ClosePath()
	c.z.Draw(c.img, clip, image.NewUniform(col), image.Point{})
}

// fillConvexAliased sets every pixel whose centre lies inside the polygon.
func (c *RasterCanvas) fillConvexAliased(col color.RGBA, pts []visualization.Position) {
	minX, minY, maxX, maxY := polygonBounds(pts)
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))).
		Intersect(c.img.Bounds())

	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			if insideConvex(pts, float64(px)+0.5, float64(py)+0.5) {
				c.img.SetRGBA(px, py, col)
			}
		}
	}
}

func (c *RasterCanvas) fillCircleAliased(center visualization.Position, r float64) {
	box := image.Rect(int(math.Floor(center.X-r)), int(math.Floor(center.Y-r)), int(math.Ceil(center.X+r)), int(math.Ceil(center.Y+r))).
		Intersect(c.img.Bounds())

	for py := box.Min.Y; py < box.Max.Y; py++ {
		for px := box.Min.X; px < box.Max.X; px++ {
			dx := float64(px) + 0.5 - center.X
			dy := float64(py) + 0.5 - center.Y
			if dx*dx+dy*dy <= r*r {
				c.img.SetRGBA(px, py, c.fill)
			}
		}
	}
}

func polygonBounds(pts []visualization.Position) (minX, minY, maxX, maxY float64) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// insideConvex works for either winding: the point must be on the same
// side of every edge.
func insideConvex(pts []visualization.Position, x, y float64) bool {
	sign := 0.0
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}
