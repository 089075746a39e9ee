// Package typeface provides the one font used for both label measurement in
// the layout engine and text painting in the renderer, so block sizes always
// match what ends up on the canvas.
package typeface

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Label sizes in pixels at the reference width.
const (
	SizeLarge = 14
	SizeSmall = 12
)

// Measurer reports the advance width of a string at a pixel size.
type Measurer interface {
	MeasureText(text string, size float64) float64
}

// Typeface is a parsed font plus a cache of faces for measurement.
// Faces handed out by NewFace are owned by the caller.
type Typeface struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

var (
	defaultOnce sync.Once
	defaultFace *Typeface
	defaultErr  error
)

// Default returns the shared Go Regular typeface.
func Default() (*Typeface, error) {
	defaultOnce.Do(func() {
		defaultFace, defaultErr = Parse(goregular.TTF)
	})
	return defaultFace, defaultErr
}

// MustDefault is Default for package-level wiring; the embedded font cannot
// fail to parse short of a corrupted build.
func MustDefault() *Typeface {
	tf, err := Default()
	if err != nil {
		panic(err)
	}
	return tf
}

// Parse loads a TrueType/OpenType font.
func Parse(ttf []byte) (*Typeface, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Typeface{font: f, faces: make(map[float64]font.Face)}, nil
}

// NewFace creates a face at a pixel size. Faces are not safe for concurrent
// use; each canvas keeps its own.
func (tf *Typeface) NewFace(size float64) (font.Face, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	face, err := opentype.NewFace(tf.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72, // 1pt == 1px
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("new face %vpx: %w", size, err)
	}
	return face, nil
}

// MeasureText returns the advance width of text in pixels. Empty text and
// non-positive sizes measure zero.
func (tf *Typeface) MeasureText(text string, size float64) float64 {
	if text == "" || size <= 0 {
		return 0
	}

	tf.mu.Lock()
	defer tf.mu.Unlock()

	face, ok := tf.faces[size]
	if !ok {
		var err error
		face, err = tf.NewFace(size)
		if err != nil {
			return 0
		}
		tf.faces[size] = face
	}
	return FixedToFloat(font.MeasureString(face, text))
}

// FixedToFloat converts a 26.6 fixed-point value to pixels.
func FixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// FloatToFixed converts pixels to 26.6 fixed point.
func FloatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
